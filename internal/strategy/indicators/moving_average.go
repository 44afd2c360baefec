package indicators

import (
	"context"
	"fmt"
	"math"

	"smartMoneyBot/internal/domain"
)

// MovingAverageType defines the type of moving average
type MovingAverageType string

const (
	// SimpleMovingAverage represents a simple moving average
	SimpleMovingAverage MovingAverageType = "SMA"
	// ExponentialMovingAverage represents an exponential moving average
	ExponentialMovingAverage MovingAverageType = "EMA"
)

// MovingAverageConfig holds configuration for moving average indicators
type MovingAverageConfig struct {
	IndicatorConfig
	Type MovingAverageType
}

// MovingAverage implements both SMA and EMA indicators over closing prices
type MovingAverage struct {
	BaseIndicator
	config MovingAverageConfig
}

// NewMovingAverage creates a new moving average indicator instance
func NewMovingAverage(config MovingAverageConfig) *MovingAverage {
	return &MovingAverage{
		BaseIndicator: BaseIndicator{Config: config.IndicatorConfig},
		config:        config,
	}
}

// Name returns the name of the indicator
func (m *MovingAverage) Name() string {
	return string(m.config.Type)
}

// Calculate computes the moving average value based on the configured type
func (m *MovingAverage) Calculate(ctx context.Context, klines []*domain.Kline) (float64, error) {
	if m.config.Type != SimpleMovingAverage && m.config.Type != ExponentialMovingAverage {
		return 0, fmt.Errorf("unsupported moving average type: %s", m.config.Type)
	}
	if len(klines) < m.Config.Period || m.Config.Period <= 0 {
		return 0, fmt.Errorf("not enough data (%d) to calculate %s for period %d", len(klines), m.config.Type, m.Config.Period)
	}
	return last(m.Series(klines)), nil
}

// Series computes the moving average of closes for every kline
func (m *MovingAverage) Series(klines []*domain.Kline) []float64 {
	switch m.config.Type {
	case ExponentialMovingAverage:
		return EMASeries(closes(klines), m.Config.Period)
	case SimpleMovingAverage:
		return rollingMean(closes(klines), m.Config.Period)
	default:
		return nanSeries(len(klines))
	}
}

// EMASeries computes an exponential moving average over values. Leading NaN
// values are skipped; the first EMA is the simple average of the first
// 'period' valid values.
func EMASeries(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 {
		return out
	}

	start := 0
	for start < len(values) && math.IsNaN(values[start]) {
		start++
	}
	if len(values)-start < period {
		return out
	}

	seed := 0.0
	for i := start; i < start+period; i++ {
		seed += values[i]
	}
	ema := seed / float64(period)
	out[start+period-1] = ema

	multiplier := 2.0 / float64(period+1)
	for i := start + period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
		out[i] = ema
	}
	return out
}
