package regime

import (
	"math"

	"smartMoneyBot/internal/domain"
	"smartMoneyBot/internal/strategy/indicators"
)

const (
	minWinningScore = 4
	maxScore        = 8.0
	strongTrend     = 0.05
	flatMASpread    = 0.01
	lowVolatility   = 0.015
	volumeTrendBand = 0.1

	weakTrendConfidence    = 0.3
	weakSidewaysConfidence = 0.5
)

// Config controls the trailing windows and the per-regime multiplier table.
type Config struct {
	TrendLookback      int
	VolatilityLookback int
	SidewaysThreshold  float64
	Multipliers        map[domain.Regime]domain.Multipliers
}

// DefaultMultipliers returns the built-in multiplier table.
func DefaultMultipliers() map[domain.Regime]domain.Multipliers {
	return map[domain.Regime]domain.Multipliers{
		domain.RegimeBull:     {VolumeThreshold: 0.8, RiskReward: 1.5, LiquidityFactor: 0.9},
		domain.RegimeBear:     {VolumeThreshold: 1.2, RiskReward: 1.2, LiquidityFactor: 1.1},
		domain.RegimeSideways: {VolumeThreshold: 1.0, RiskReward: 1.0, LiquidityFactor: 1.0},
	}
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		TrendLookback:      50,
		VolatilityLookback: 20,
		SidewaysThreshold:  0.02,
		Multipliers:        DefaultMultipliers(),
	}
}

// Scores are the accumulated rule weights per regime.
type Scores struct {
	Bull     int
	Bear     int
	Sideways int
}

// Detection is the outcome of classifying one frame.
type Detection struct {
	Regime      domain.Regime
	Confidence  float64
	Scores      Scores
	Return      float64
	Volatility  float64
	MA20        float64
	MA50        float64
	VolumeTrend float64
}

// Detect classifies the trailing TrendLookback bars of frame. Frames shorter
// than the lookback are reported as sideways with neutral confidence.
func Detect(frame *indicators.Frame, cfg Config) Detection {
	n := frame.Len()
	if cfg.TrendLookback < 2 || n < cfg.TrendLookback {
		return Detection{Regime: domain.RegimeSideways, Confidence: weakSidewaysConfidence}
	}

	closes := frame.Closes()
	window := closes[n-cfg.TrendLookback:]
	d := Detection{
		Return:      totalReturn(window),
		Volatility:  volatility(closes, cfg.VolatilityLookback),
		MA20:        closeSMA(frame.Klines, 20),
		MA50:        closeSMA(frame.Klines, 50),
		VolumeTrend: volumeTrend(frame.Volumes()[n-cfg.TrendLookback:]),
	}
	d.Scores = score(d, closes[n-1], cfg.SidewaysThreshold)
	d.Regime, d.Confidence = pick(d.Scores, d.Return, cfg.SidewaysThreshold)
	return d
}

func score(d Detection, price, threshold float64) Scores {
	var s Scores

	switch {
	case d.Return > strongTrend:
		s.Bull += 3
	case d.Return > threshold:
		s.Bull += 2
	case d.Return > 0:
		s.Bull++
	}
	switch {
	case d.Return < -strongTrend:
		s.Bear += 3
	case d.Return < -threshold:
		s.Bear += 2
	case d.Return < 0:
		s.Bear++
	}

	if price > d.MA20 && d.MA20 > d.MA50 {
		s.Bull += 3
	} else if price > d.MA20 {
		s.Bull++
	}
	if price < d.MA20 && d.MA20 < d.MA50 {
		s.Bear += 3
	} else if price < d.MA20 {
		s.Bear++
	}

	if d.VolumeTrend > volumeTrendBand {
		if d.Return > 0 {
			s.Bull += 2
		} else if d.Return < 0 {
			s.Bear += 2
		}
	}

	if math.Abs(d.Return) < threshold {
		s.Sideways += 3
	}
	if d.MA50 > 0 && math.Abs(d.MA20-d.MA50)/d.MA50 < flatMASpread {
		s.Sideways += 2
	}
	if d.Volatility < lowVolatility {
		s.Sideways += 2
	}
	if math.Abs(d.VolumeTrend) < volumeTrendBand {
		s.Sideways++
	}
	return s
}

// pick chooses the highest score, breaking ties bull, bear, sideways. Below
// the minimum winning score only the sign of the return is trusted.
func pick(s Scores, ret, threshold float64) (domain.Regime, float64) {
	best, regime := s.Bull, domain.RegimeBull
	if s.Bear > best {
		best, regime = s.Bear, domain.RegimeBear
	}
	if s.Sideways > best {
		best, regime = s.Sideways, domain.RegimeSideways
	}
	if best >= minWinningScore {
		return regime, math.Min(1.0, float64(best)/maxScore)
	}

	switch {
	case ret > threshold:
		return domain.RegimeBull, weakTrendConfidence
	case ret < -threshold:
		return domain.RegimeBear, weakTrendConfidence
	default:
		return domain.RegimeSideways, weakSidewaysConfidence
	}
}

// AdjustParameters rescales base by the regime's multipliers. Low confidence
// raises the volume threshold by a further 20% and caps the risk-reward multiplier at 1.
func (c Config) AdjustParameters(base domain.Params, regime domain.Regime, confidence float64) domain.Params {
	m, ok := c.Multipliers[regime]
	if !ok {
		m = domain.Multipliers{VolumeThreshold: 1, RiskReward: 1, LiquidityFactor: 1}
	}

	volumeMult, rrMult := m.VolumeThreshold, m.RiskReward
	if confidence < 0.5 {
		volumeMult *= 1.2
		rrMult = math.Min(rrMult, 1.0)
	}
	return domain.Params{
		VolumeThreshold: base.VolumeThreshold * volumeMult,
		RiskRewardRatio: base.RiskRewardRatio * rrMult,
		LiquidityFactor: base.LiquidityFactor * m.LiquidityFactor,
	}
}

func totalReturn(window []float64) float64 {
	if len(window) < 2 || window[0] <= 0 {
		return 0
	}
	return (window[len(window)-1] - window[0]) / window[0]
}

// volatility is the standard deviation of the last lookback bar-to-bar returns.
func volatility(closes []float64, lookback int) float64 {
	if lookback <= 0 || len(closes) < 2 {
		return 0
	}
	start := len(closes) - lookback - 1
	if start < 0 {
		start = 0
	}
	var rets []float64
	for i := start + 1; i < len(closes); i++ {
		if closes[i-1] > 0 {
			rets = append(rets, closes[i]/closes[i-1]-1)
		}
	}
	if len(rets) == 0 {
		return 0
	}
	mean := 0.0
	for _, r := range rets {
		mean += r
	}
	mean /= float64(len(rets))
	variance := 0.0
	for _, r := range rets {
		variance += (r - mean) * (r - mean)
	}
	return math.Sqrt(variance / float64(len(rets)))
}

// closeSMA is the simple average of the last period closes, shortened to
// the available history.
func closeSMA(klines []*domain.Kline, period int) float64 {
	if period > len(klines) {
		period = len(klines)
	}
	ma := indicators.NewMovingAverage(indicators.MovingAverageConfig{
		IndicatorConfig: indicators.IndicatorConfig{Period: period},
		Type:            indicators.SimpleMovingAverage,
	})
	series := ma.Series(klines)
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

// trailingMean averages up to the last period values.
func trailingMean(values []float64, period int) float64 {
	if len(values) < period {
		period = len(values)
	}
	if period == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// volumeTrend compares the mean volume of the second half of the window to the first.
func volumeTrend(volumes []float64) float64 {
	half := len(volumes) / 2
	if half == 0 {
		return 0
	}
	first := trailingMean(volumes[:half], half)
	second := trailingMean(volumes[half:], len(volumes)-half)
	return (second - first) / (first + 1e-10)
}
