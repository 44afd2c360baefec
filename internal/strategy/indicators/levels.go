package indicators

import "math"

// computeLevels marks pivot lows/highs that dominate lookback bars on each side
// and forward-fills the latest pivot as the active support/resistance.
func computeLevels(f *Frame, lookback int, nearPct float64) {
	n := len(f.Klines)
	if lookback <= 0 {
		return
	}

	for i := lookback; i < n-lookback; i++ {
		low, high := f.Klines[i].Low, f.Klines[i].High
		isSupport, isResistance := true, true
		for j := i - lookback; j <= i+lookback; j++ {
			if f.Klines[j].Low < low {
				isSupport = false
			}
			if f.Klines[j].High > high {
				isResistance = false
			}
		}
		f.Bars[i].IsSupportPivot = isSupport
		f.Bars[i].IsResistancePivot = isResistance
	}

	support, resistance := math.NaN(), math.NaN()
	for i := 0; i < n; i++ {
		b := &f.Bars[i]
		k := f.Klines[i]
		if b.IsSupportPivot {
			support = k.Low
		}
		if b.IsResistancePivot {
			resistance = k.High
		}
		b.Support = support
		b.Resistance = resistance

		if !math.IsNaN(support) && k.Close > 0 {
			b.SupportDistance = (k.Close - support) / k.Close
			b.NearSupport = math.Abs(b.SupportDistance) <= nearPct
		}
		if !math.IsNaN(resistance) && k.Close > 0 {
			b.ResistanceDistance = (resistance - k.Close) / k.Close
			b.NearResistance = math.Abs(b.ResistanceDistance) <= nearPct
		}
	}
}

// computeSweeps flags bars that pierce the previous bar's level and close back
// inside it. Strength is volume times fractional penetration.
func computeSweeps(f *Frame) {
	for i := 1; i < len(f.Klines); i++ {
		k := f.Klines[i]
		prev := &f.Bars[i-1]
		b := &f.Bars[i]
		hunted := !math.IsNaN(b.VolumeSMA) && k.Volume > 1.2*b.VolumeSMA

		if s := prev.Support; !math.IsNaN(s) && s > 0 && k.Low < s && k.Close > s {
			b.BullishSweep = true
			b.SweepStrength = k.Volume * (s - k.Low) / s
			b.SweepHunted = hunted
			f.Zones = append(f.Zones, LiquidityZone{
				Index: i, Time: k.OpenTime, Bullish: true, Level: s, Strength: b.SweepStrength, Hunted: hunted,
			})
		}
		if r := prev.Resistance; !math.IsNaN(r) && r > 0 && k.High > r && k.Close < r {
			b.BearishSweep = true
			strength := k.Volume * (k.High - r) / r
			b.SweepStrength = math.Max(b.SweepStrength, strength)
			b.SweepHunted = hunted
			f.Zones = append(f.Zones, LiquidityZone{
				Index: i, Time: k.OpenTime, Bullish: false, Level: r, Strength: strength, Hunted: hunted,
			})
		}
	}
}
