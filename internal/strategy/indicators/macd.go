package indicators

import (
	"context"
	"fmt"

	"smartMoneyBot/internal/domain"
)

// MACDConfig holds the three EMA periods.
type MACDConfig struct {
	Fast   int
	Slow   int
	Signal int
}

// MACDSeries holds the MACD line, its signal line and the histogram.
type MACDSeries struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD implements Moving Average Convergence Divergence on closes.
type MACD struct {
	config MACDConfig
}

// NewMACD creates a new MACD indicator instance.
func NewMACD(config MACDConfig) *MACD {
	return &MACD{config: config}
}

func (m *MACD) Name() string { return "MACD" }

func (m *MACD) RequiredDataPoints() int {
	return m.config.Slow + m.config.Signal - 1
}

// Calculate returns the latest MACD line value.
func (m *MACD) Calculate(ctx context.Context, klines []*domain.Kline) (float64, error) {
	if m.config.Fast <= 0 || m.config.Slow <= 0 || len(klines) < m.config.Slow {
		return 0, fmt.Errorf("not enough data (%d) to calculate MACD for slow period %d", len(klines), m.config.Slow)
	}
	return last(m.Series(klines)), nil
}

// Series returns the MACD line per kline.
func (m *MACD) Series(klines []*domain.Kline) []float64 {
	return m.Compute(klines).MACD
}

// Compute returns all three MACD components.
func (m *MACD) Compute(klines []*domain.Kline) MACDSeries {
	c := closes(klines)
	fast := EMASeries(c, m.config.Fast)
	slow := EMASeries(c, m.config.Slow)

	line := nanSeries(len(c))
	for i := range c {
		line[i] = fast[i] - slow[i] // NaN propagates until both are warm
	}
	signal := EMASeries(line, m.config.Signal)

	hist := nanSeries(len(c))
	for i := range c {
		hist[i] = line[i] - signal[i]
	}
	return MACDSeries{MACD: line, Signal: signal, Histogram: hist}
}
