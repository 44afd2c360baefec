package backtesting

import (
	"fmt"

	"smartMoneyBot/internal/id"
	"smartMoneyBot/internal/ports"
	"smartMoneyBot/internal/risk"
	"smartMoneyBot/internal/strategy"
	"smartMoneyBot/internal/strategy/regime"
)

// Setup describes a complete pipeline: generator, optional regime adapter,
// optional risk gate and the engine itself.
type Setup struct {
	Backtest BacktestConfig
	Strategy strategy.Config
	Regime   *regime.Config   // nil runs the bare generator
	Risk     *risk.RiskConfig // nil sizes positions from RiskPercentage
}

// DefaultSetup enables every filter and the regime adapter, without a risk gate.
func DefaultSetup() Setup {
	rc := regime.DefaultConfig()
	return Setup{
		Backtest: DefaultBacktestConfig(),
		Strategy: strategy.DefaultConfig(),
		Regime:   &rc,
	}
}

// NewSignalGenerator builds the generator chain described by s.
func (s Setup) NewSignalGenerator(logger ports.Logger) (ports.SignalGenerator, error) {
	gen, err := strategy.New(s.Strategy, logger)
	if err != nil {
		return nil, fmt.Errorf("creating signal generator: %w", err)
	}
	if s.Regime == nil {
		return gen, nil
	}
	adapter, err := regime.NewAdapter(gen, *s.Regime, logger)
	if err != nil {
		return nil, fmt.Errorf("creating regime adapter: %w", err)
	}
	return adapter, nil
}

// NewEngine builds a fresh engine from s. Every call returns an independent
// engine, so sweeps can run them concurrently.
func (s Setup) NewEngine(logger ports.Logger) (*Engine, error) {
	gen, err := s.NewSignalGenerator(logger)
	if err != nil {
		return nil, err
	}

	var opts []Option
	if s.Risk != nil {
		rc := *s.Risk
		rc.InitialBalance = s.Backtest.InitialBalance
		rm, err := risk.NewRiskManager(rc, logger, risk.WithIDGenerator(id.NewGenerator(s.Backtest.Seed)))
		if err != nil {
			return nil, fmt.Errorf("creating risk manager: %w", err)
		}
		opts = append(opts, WithRiskManager(rm))
	}
	return NewEngine(s.Backtest, gen, logger, opts...)
}
