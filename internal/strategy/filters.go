package strategy

import (
	"math"

	"smartMoneyBot/internal/domain"
	"smartMoneyBot/internal/strategy/indicators"
)

// evaluateFilters returns the buy/sell condition of each enabled filter.
func (g *Generator) evaluateFilters(frame *indicators.Frame, params domain.Params) map[string]domain.FilterResult {
	i := frame.Len() - 1
	bar, k := &frame.Bars[i], frame.Klines[i]
	out := make(map[string]domain.FilterResult, len(domain.FilterNames))

	if g.cfg.Filters.Volume {
		ok := k.Volume > params.VolumeThreshold
		out[domain.FilterVolume] = domain.FilterResult{Buy: ok, Sell: ok}
	}

	if g.cfg.Filters.KeyLevels {
		rsiKnown := !math.IsNaN(bar.RSI)
		out[domain.FilterKeyLevels] = domain.FilterResult{
			Buy:  bar.NearSupport && k.Close >= bar.Support && rsiKnown && !g.rsi.IsOverbought(bar.RSI),
			Sell: bar.NearResistance && k.Close <= bar.Resistance && rsiKnown && !g.rsi.IsOversold(bar.RSI),
		}
	}

	if g.cfg.Filters.Pattern {
		out[domain.FilterPattern] = domain.FilterResult{
			Buy:  bar.BullishEngulfing || bar.Hammer,
			Sell: bar.BearishEngulfing || bar.ShootingStar,
		}
	}

	if g.cfg.Filters.OrderFlow {
		out[domain.FilterOrderFlow] = domain.FilterResult{
			Buy:  bar.BullishOrderFlow || (bar.SmartMoneyAbsorption && bar.Delta > 0),
			Sell: bar.BearishOrderFlow || (bar.SmartMoneyAbsorption && bar.Delta < 0),
		}
	}

	if g.cfg.Filters.LiquiditySweep {
		var r domain.FilterResult
		for j := i; j >= 0 && j >= i-1; j-- {
			b := &frame.Bars[j]
			if !sweepVolumeOK(b, frame.Klines[j].Volume, params.LiquidityFactor) {
				continue
			}
			r.Buy = r.Buy || b.BullishSweep
			r.Sell = r.Sell || b.BearishSweep
		}
		out[domain.FilterLiquiditySweep] = r
	}

	return out
}

// sweepVolumeOK requires the sweep bar's volume to reach factor times its average.
func sweepVolumeOK(b *indicators.Bar, volume, factor float64) bool {
	if math.IsNaN(b.VolumeSMA) {
		return false
	}
	return volume >= factor*b.VolumeSMA
}
