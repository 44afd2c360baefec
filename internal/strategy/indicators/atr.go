package indicators

import (
	"context"
	"fmt"
	"math"

	"smartMoneyBot/internal/domain"
)

// ATRConfig holds configuration for the Average True Range indicator
type ATRConfig struct {
	IndicatorConfig
}

// ATR implements the Average True Range indicator
type ATR struct {
	BaseIndicator
}

// NewATR creates a new Average True Range indicator instance
func NewATR(config ATRConfig) *ATR {
	return &ATR{BaseIndicator: BaseIndicator{Config: config.IndicatorConfig}}
}

// Name returns the name of the indicator
func (a *ATR) Name() string {
	return "ATR"
}

// RequiredDataPoints returns period+1 so at least one smoothing step has run
func (a *ATR) RequiredDataPoints() int {
	return a.Config.Period + 1
}

// Calculate computes the Average True Range value for the latest kline
func (a *ATR) Calculate(ctx context.Context, klines []*domain.Kline) (float64, error) {
	period := a.Config.Period
	if period <= 0 || len(klines) < period+1 {
		return 0, fmt.Errorf("not enough data points for ATR calculation: need %d, got %d", period+1, len(klines))
	}
	return last(a.Series(klines)), nil
}

// Series computes ATR per kline with Wilder's smoothing. The first value is
// available at index 'period'.
func (a *ATR) Series(klines []*domain.Kline) []float64 {
	period := a.Config.Period
	out := nanSeries(len(klines))
	if period <= 0 || len(klines) < period+1 {
		return out
	}

	tr := TrueRange(klines)
	atr := 0.0
	for i := 0; i < period; i++ {
		atr += tr[i]
	}
	atr /= float64(period)

	for i := period; i < len(klines); i++ {
		atr = (atr*float64(period-1) + tr[i]) / float64(period)
		out[i] = atr
	}
	return out
}

// TrueRange returns the true range of each kline. The first one is its high-low range.
func TrueRange(klines []*domain.Kline) []float64 {
	out := make([]float64, len(klines))
	for i, k := range klines {
		if i == 0 {
			out[i] = k.High - k.Low
			continue
		}
		prevClose := klines[i-1].Close
		out[i] = math.Max(k.High-k.Low, math.Max(math.Abs(k.High-prevClose), math.Abs(k.Low-prevClose)))
	}
	return out
}
