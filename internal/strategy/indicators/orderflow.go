package indicators

import "math"

const (
	pressureWindow     = 3
	baselineWindow     = 20
	pressureMultiplier = 1.5
	absorptionSpike    = 1.5
	bodySuppression    = 0.5
)

// computeOrderFlow approximates order flow from OHLCV: volume signed by candle
// direction, pressure split by where the close sits in the range, and
// absorption as volume per unit of range.
func computeOrderFlow(f *Frame) {
	n := len(f.Klines)
	buying := make([]float64, n)
	selling := make([]float64, n)
	absorption := make([]float64, n)
	bodies := make([]float64, n)

	cum := 0.0
	for i, k := range f.Klines {
		b := &f.Bars[i]
		rng := k.Range()
		switch {
		case k.Close > k.Open:
			b.Delta = k.Volume
		case k.Close < k.Open:
			b.Delta = -k.Volume
		}
		cum += b.Delta
		b.CumulativeDelta = cum

		b.BuyingPressure = k.Volume * (k.Close - k.Low) / (rng + epsilon)
		b.SellingPressure = k.Volume * (k.High - k.Close) / (rng + epsilon)
		b.Absorption = k.Volume / (rng + epsilon)

		buying[i] = b.BuyingPressure
		selling[i] = b.SellingPressure
		absorption[i] = b.Absorption
		bodies[i] = k.Body()
	}

	buyShort := rollingMean(buying, pressureWindow)
	sellShort := rollingMean(selling, pressureWindow)
	buyBase := rollingMean(buying, baselineWindow)
	sellBase := rollingMean(selling, baselineWindow)
	absBase := rollingMean(absorption, baselineWindow)
	bodyBase := rollingMean(bodies, baselineWindow)

	for i := range f.Bars {
		b := &f.Bars[i]
		if !math.IsNaN(absBase[i]) {
			b.SmartMoneyAbsorption = absorption[i] > absorptionSpike*absBase[i] && bodies[i] < bodySuppression*bodyBase[i]
		}
		if i < pressureWindow || math.IsNaN(sellBase[i]) {
			continue
		}
		momentum := b.CumulativeDelta - f.Bars[i-pressureWindow].CumulativeDelta
		b.BullishOrderFlow = buyShort[i] > pressureMultiplier*sellBase[i] && momentum > 0
		b.BearishOrderFlow = sellShort[i] > pressureMultiplier*buyBase[i] && momentum < 0
	}
}
