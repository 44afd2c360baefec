package optimization

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"smartMoneyBot/internal/strategy/backtesting"
)

type setter func(s *backtesting.Setup, v float64)

// setters maps sweepable configuration keys onto a Setup.
var setters = map[string]setter{
	"VOLUME_THRESHOLD":          func(s *backtesting.Setup, v float64) { s.Backtest.Params.VolumeThreshold = v },
	"RISK_REWARD_RATIO":         func(s *backtesting.Setup, v float64) { s.Backtest.Params.RiskRewardRatio = v },
	"LIQUIDITY_FACTOR":          func(s *backtesting.Setup, v float64) { s.Backtest.Params.LiquidityFactor = v },
	"RISK_PERCENTAGE":           func(s *backtesting.Setup, v float64) { s.Backtest.RiskPercentage = v },
	"RSI_PERIOD":                func(s *backtesting.Setup, v float64) { s.Backtest.Indicators.RSIPeriod = int(v) },
	"MACD_FAST":                 func(s *backtesting.Setup, v float64) { s.Backtest.Indicators.MACDFast = int(v) },
	"MACD_SLOW":                 func(s *backtesting.Setup, v float64) { s.Backtest.Indicators.MACDSlow = int(v) },
	"MACD_SIGNAL":               func(s *backtesting.Setup, v float64) { s.Backtest.Indicators.MACDSignal = int(v) },
	"ATR_PERIOD":                func(s *backtesting.Setup, v float64) { s.Backtest.Indicators.ATRPeriod = int(v) },
	"SR_LOOKBACK":               func(s *backtesting.Setup, v float64) { s.Backtest.Indicators.SRLookback = int(v) },
	"VOLUME_SMA_PERIOD":         func(s *backtesting.Setup, v float64) { s.Backtest.Indicators.VolumeSMAPeriod = int(v) },
	"RSI_OVERBOUGHT":            func(s *backtesting.Setup, v float64) { s.Strategy.RSIOverbought = v },
	"RSI_OVERSOLD":              func(s *backtesting.Setup, v float64) { s.Strategy.RSIOversold = v },
	"STOP_LOSS_BUFFER":          func(s *backtesting.Setup, v float64) { s.Strategy.StopLossBuffer = v },
	"STOP_LOSS_ATR_MULTIPLIER":  func(s *backtesting.Setup, v float64) { s.Strategy.StopLossATRMultiplier = v },
	"DEFAULT_STOP_LOSS_PERCENT": func(s *backtesting.Setup, v float64) { s.Strategy.DefaultStopLossPercent = v },
	"TREND_LOOKBACK": func(s *backtesting.Setup, v float64) {
		if s.Regime != nil {
			s.Regime.TrendLookback = int(v)
		}
	},
	"VOLATILITY_LOOKBACK": func(s *backtesting.Setup, v float64) {
		if s.Regime != nil {
			s.Regime.VolatilityLookback = int(v)
		}
	},
	"SIDEWAYS_THRESHOLD": func(s *backtesting.Setup, v float64) {
		if s.Regime != nil {
			s.Regime.SidewaysThreshold = v
		}
	},
}

// ParameterNames lists the keys accepted in a ParameterRange.
func ParameterNames() []string {
	names := make([]string, 0, len(setters))
	for name := range setters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var intParameters = map[string]bool{
	"RSI_PERIOD":          true,
	"MACD_FAST":           true,
	"MACD_SLOW":           true,
	"MACD_SIGNAL":         true,
	"ATR_PERIOD":          true,
	"SR_LOOKBACK":         true,
	"VOLUME_SMA_PERIOD":   true,
	"TREND_LOOKBACK":      true,
	"VOLATILITY_LOOKBACK": true,
}

// ParseParameterRange parses NAME=min:max:step. A bare NAME=value sweeps a
// single value.
func ParseParameterRange(raw string) (ParameterRange, error) {
	name, bounds, ok := strings.Cut(raw, "=")
	if !ok {
		return ParameterRange{}, fmt.Errorf("parameter range %q: expected NAME=min:max:step", raw)
	}
	name = strings.ToUpper(strings.TrimSpace(name))
	if _, known := setters[name]; !known {
		return ParameterRange{}, fmt.Errorf("unknown sweep parameter %q", name)
	}

	parts := strings.Split(bounds, ":")
	values := make([]float64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return ParameterRange{}, fmt.Errorf("parameter range %q: %w", raw, err)
		}
		values[i] = v
	}

	r := ParameterRange{Name: name, IsInt: intParameters[name]}
	switch len(values) {
	case 1:
		r.Min, r.Max, r.Step = values[0], values[0], 1
	case 3:
		r.Min, r.Max, r.Step = values[0], values[1], values[2]
	default:
		return ParameterRange{}, fmt.Errorf("parameter range %q: expected NAME=min:max:step", raw)
	}
	if r.Step <= 0 || r.Max < r.Min {
		return ParameterRange{}, fmt.Errorf("invalid range for %s: min %g max %g step %g", r.Name, r.Min, r.Max, r.Step)
	}
	return r, nil
}
