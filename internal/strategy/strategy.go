package strategy

import (
	"context"
	"fmt"
	"math"

	"smartMoneyBot/internal/domain"
	"smartMoneyBot/internal/ports"
	"smartMoneyBot/internal/strategy/indicators"
)

// Filters selects which confirmations must agree before a side is confirmed.
type Filters struct {
	Volume         bool
	KeyLevels      bool
	Pattern        bool
	OrderFlow      bool
	LiquiditySweep bool
}

// AllFilters enables every filter.
func AllFilters() Filters {
	return Filters{Volume: true, KeyLevels: true, Pattern: true, OrderFlow: true, LiquiditySweep: true}
}

// Enabled reports whether the named filter is on.
func (f Filters) Enabled(name string) bool {
	switch name {
	case domain.FilterVolume:
		return f.Volume
	case domain.FilterKeyLevels:
		return f.KeyLevels
	case domain.FilterPattern:
		return f.Pattern
	case domain.FilterOrderFlow:
		return f.OrderFlow
	case domain.FilterLiquiditySweep:
		return f.LiquiditySweep
	}
	return false
}

// Config holds parameters for the signal generator.
type Config struct {
	Filters Filters

	RSIOverbought float64 // e.g., 70.0
	RSIOversold   float64 // e.g., 30.0

	StopLossBuffer         float64 // Fraction beyond a key level, e.g., 0.001
	StopLossATRMultiplier  float64 // e.g., 1.5
	DefaultStopLossPercent float64 // Fraction of entry, e.g., 0.02
}

// DefaultConfig returns the documented defaults with every filter enabled.
func DefaultConfig() Config {
	return Config{
		Filters:                AllFilters(),
		RSIOverbought:          70,
		RSIOversold:            30,
		StopLossBuffer:         0.001,
		StopLossATRMultiplier:  1.5,
		DefaultStopLossPercent: 0.02,
	}
}

// Generator fuses the enabled filters into one decision for the latest bar.
// It keeps no state between calls.
type Generator struct {
	cfg    Config
	rsi    *indicators.RSI // thresholds only; the frame carries the values
	logger ports.Logger
}

var _ ports.SignalGenerator = (*Generator)(nil)

// New creates a new Generator instance.
func New(cfg Config, logger ports.Logger) (*Generator, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for signal generator")
	}
	if cfg.RSIOverbought <= cfg.RSIOversold || cfg.RSIOverbought > 100 || cfg.RSIOversold < 0 {
		return nil, fmt.Errorf("invalid RSI thresholds (overbought must be > oversold, between 0-100)")
	}
	if cfg.StopLossBuffer < 0 || cfg.StopLossATRMultiplier <= 0 || cfg.DefaultStopLossPercent <= 0 || cfg.DefaultStopLossPercent >= 1 {
		return nil, fmt.Errorf("stop-loss parameters must be positive and the default percent below 1")
	}
	rsi := indicators.NewRSI(indicators.RSIConfig{Overbought: cfg.RSIOverbought, Oversold: cfg.RSIOversold})
	return &Generator{cfg: cfg, rsi: rsi, logger: logger}, nil
}

// Config returns the generator's configuration.
func (g *Generator) Config() Config {
	return g.cfg
}

// GenerateSignal evaluates the latest bar of frame. A side is confirmed only if
// every enabled filter agrees; with no filter enabled nothing is confirmed.
func (g *Generator) GenerateSignal(ctx context.Context, frame *indicators.Frame, position *domain.Position, params domain.Params) domain.Signal {
	bar, k := frame.Last()
	if bar == nil {
		return domain.Signal{Action: domain.ActionHold, Metadata: domain.SignalMetadata{Filters: map[string]domain.FilterResult{}}}
	}

	results := g.evaluateFilters(frame, params)
	meta := domain.SignalMetadata{Filters: results, Session: string(bar.Session)}

	buy, sell := len(results) > 0, len(results) > 0
	for _, r := range results {
		buy = buy && r.Buy
		sell = sell && r.Sell
	}

	var action domain.Action
	switch {
	case position == nil && buy:
		action = domain.ActionBuy
	case position == nil && sell:
		action = domain.ActionSell
	case position != nil && position.Direction == domain.Long && sell:
		action = domain.ActionCloseLong
	case position != nil && position.Direction == domain.Short && buy:
		action = domain.ActionCloseShort
	default:
		return domain.Hold(k.Close, meta)
	}

	sig := domain.Signal{Action: action, EntryPrice: k.Close, Metadata: meta}
	if action.IsEntry() {
		dir := domain.Long
		if action == domain.ActionSell {
			dir = domain.Short
		}
		sig.StopLoss = g.stopLoss(bar, k.Close, dir)
		sig.TakeProfit = TakeProfit(k.Close, sig.StopLoss, params.RiskRewardRatio, dir)
	}

	g.logger.Debug(ctx, "Signal generated", map[string]interface{}{
		"action":     string(sig.Action),
		"price":      sig.EntryPrice,
		"stopLoss":   sig.StopLoss,
		"takeProfit": sig.TakeProfit,
	})
	return sig
}

// TakeProfit places the target rr stop-distances away from entry.
// Returns 0 when rr is not positive.
func TakeProfit(entry, stop, rr float64, dir domain.Direction) float64 {
	if rr <= 0 {
		return 0
	}
	return entry + dir.Sign()*math.Abs(entry-stop)*rr
}

// stopLoss prefers the active key level beyond a small buffer, then an ATR
// multiple, then a fixed percentage of entry.
func (g *Generator) stopLoss(bar *indicators.Bar, entry float64, dir domain.Direction) float64 {
	if dir == domain.Long {
		if !math.IsNaN(bar.Support) && bar.Support > 0 && bar.Support < entry {
			return bar.Support * (1 - g.cfg.StopLossBuffer)
		}
	} else if !math.IsNaN(bar.Resistance) && bar.Resistance > entry {
		return bar.Resistance * (1 + g.cfg.StopLossBuffer)
	}

	if !math.IsNaN(bar.ATR) && bar.ATR > 0 {
		return entry - dir.Sign()*bar.ATR*g.cfg.StopLossATRMultiplier
	}
	return entry * (1 - dir.Sign()*g.cfg.DefaultStopLossPercent)
}
