package backtesting

import (
	"context"
	"fmt"
	"math"
	"time"

	"smartMoneyBot/internal/domain"
	"smartMoneyBot/internal/id"
	"smartMoneyBot/internal/ports"
	"smartMoneyBot/internal/risk"
	"smartMoneyBot/internal/strategy"
	"smartMoneyBot/internal/strategy/analytics"
	"smartMoneyBot/internal/strategy/indicators"
)

// BacktestConfig holds configuration for backtesting
type BacktestConfig struct {
	Symbol              string
	InitialBalance      float64
	Commission          float64 // Fraction of notional charged on entry and on exit
	Slippage            float64 // Fractional adverse adjustment applied to every fill
	RiskPercentage      float64 // Percent of balance risked per trade
	MinPositionSize     float64 // Units
	FallbackPositionPct float64 // Percent of balance used when the stop distance is not positive
	MinCandles          int     // Below this a low-data warning is logged
	Seed                int64   // Entropy seed for trade IDs

	Params     domain.Params
	Indicators indicators.Config
}

// DefaultBacktestConfig returns the documented defaults.
func DefaultBacktestConfig() BacktestConfig {
	return BacktestConfig{
		Symbol:              "BTCUSDT",
		InitialBalance:      10000,
		Commission:          0.001,
		Slippage:            0.0005,
		RiskPercentage:      2,
		MinPositionSize:     0.001,
		FallbackPositionPct: 10,
		MinCandles:          30,
		Seed:                1,
		Params:              domain.Params{VolumeThreshold: 100000, RiskRewardRatio: 2, LiquidityFactor: 1},
		Indicators:          indicators.DefaultConfig(),
	}
}

// Option customises an Engine.
type Option func(*Engine)

// WithRiskManager gates every entry through rm. The manager then owns sizing
// and mirrors every open and close.
func WithRiskManager(rm *risk.RiskManager) Option {
	return func(e *Engine) { e.risk = rm }
}

// Engine replays candles through a signal generator with at most one open
// position. A run is strictly sequential; separate engines share nothing.
type Engine struct {
	cfg       BacktestConfig
	generator ports.SignalGenerator
	risk      *risk.RiskManager
	logger    ports.Logger

	ids      *id.Generator
	balance  float64
	position *domain.Position
	trades   []domain.Trade
	curve    []domain.EquityPoint
	signals  []domain.SignalRecord
}

// NewEngine creates a backtest engine for one symbol.
func NewEngine(cfg BacktestConfig, generator ports.SignalGenerator, logger ports.Logger, opts ...Option) (*Engine, error) {
	if generator == nil {
		return nil, fmt.Errorf("signal generator is required for backtest engine")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for backtest engine")
	}
	if cfg.InitialBalance <= 0 {
		return nil, fmt.Errorf("initial balance must be positive")
	}
	if cfg.Commission < 0 || cfg.Slippage < 0 || cfg.Slippage >= 1 {
		return nil, fmt.Errorf("commission and slippage must be non-negative fractions")
	}
	if cfg.RiskPercentage <= 0 || cfg.FallbackPositionPct <= 0 {
		return nil, fmt.Errorf("risk percentage and fallback position percent must be positive")
	}

	e := &Engine{cfg: cfg, generator: generator, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run simulates klines bar by bar. Data problems are reported through the
// result's Success and Error fields, never as a Go error.
func (e *Engine) Run(ctx context.Context, klines []*domain.Kline) *domain.BacktestResult {
	if len(klines) == 0 {
		e.logger.Warn(ctx, "Backtest requested without data", map[string]interface{}{"symbol": e.cfg.Symbol})
		return domain.Failed(e.cfg.Symbol, e.cfg.InitialBalance, ports.ErrNoData.Error())
	}
	for i, k := range klines {
		if k == nil {
			return domain.Failed(e.cfg.Symbol, e.cfg.InitialBalance, fmt.Sprintf("missing candle at index %d", i))
		}
	}
	if len(klines) < e.cfg.MinCandles {
		e.logger.Warn(ctx, "Backtest running on limited data", map[string]interface{}{
			"candles": len(klines),
			"minimum": e.cfg.MinCandles,
		})
	}

	e.reset()
	for i, k := range klines {
		if err := ctx.Err(); err != nil {
			return domain.Failed(e.cfg.Symbol, e.cfg.InitialBalance, fmt.Sprintf("%v: %v", ports.ErrContextCanceled, err))
		}

		e.curve = append(e.curve, domain.EquityPoint{
			Time:    k.OpenTime,
			Balance: e.balance,
			Equity:  e.balance + e.position.UnrealizedPNL(k.Close),
		})

		if e.position != nil {
			e.checkExits(ctx, k)
		}

		if e.position == nil {
			frame := indicators.Compute(klines[:i+1], e.cfg.Indicators)
			sig := e.generator.GenerateSignal(ctx, frame, nil, e.cfg.Params)
			if sig.Action != domain.ActionHold {
				e.signals = append(e.signals, domain.SignalRecord{Time: k.OpenTime, Symbol: e.cfg.Symbol, Signal: sig})
			}
			if sig.Action.IsEntry() {
				e.enter(ctx, k, sig)
			}
		}
	}

	last := klines[len(klines)-1]
	if e.position != nil {
		e.exit(ctx, last.Close, last.OpenTime, domain.ExitEndOfBacktest)
	}

	result := &domain.BacktestResult{
		Success:        true,
		Symbol:         e.cfg.Symbol,
		StartDate:      klines[0].OpenTime,
		EndDate:        last.OpenTime,
		InitialBalance: e.cfg.InitialBalance,
		FinalBalance:   e.balance,
		EquityCurve:    e.curve,
		Trades:         e.trades,
		Signals:        e.signals,
	}
	result.Metrics = analytics.ComputeMetrics(e.curve, e.trades, e.cfg.InitialBalance, e.balance)

	e.logger.Info(ctx, "Backtest finished", map[string]interface{}{
		"symbol":       e.cfg.Symbol,
		"candles":      len(klines),
		"trades":       len(e.trades),
		"finalBalance": e.balance,
	})
	return result
}

func (e *Engine) reset() {
	e.ids = id.NewGenerator(e.cfg.Seed)
	e.balance = e.cfg.InitialBalance
	e.position = nil
	e.trades = []domain.Trade{}
	e.curve = []domain.EquityPoint{}
	e.signals = []domain.SignalRecord{}
}

// fill applies slippage: buys fill above the reference price, sells below.
func (e *Engine) fill(price float64, buy bool) float64 {
	if buy {
		return price * (1 + e.cfg.Slippage)
	}
	return price * (1 - e.cfg.Slippage)
}

// checkExits tests the stop before the target.
func (e *Engine) checkExits(ctx context.Context, k *domain.Kline) {
	p := e.position
	switch {
	case p.StopHit(k.High, k.Low):
		e.exit(ctx, p.StopLoss, k.OpenTime, domain.ExitStopLoss)
	case p.TargetHit(k.High, k.Low):
		e.exit(ctx, p.TakeProfit, k.OpenTime, domain.ExitTakeProfit)
	}
}

func (e *Engine) exit(ctx context.Context, level float64, at time.Time, reason domain.ExitReason) {
	p := e.position
	price := e.fill(level, !p.IsLong())
	commission := p.Size * price * e.cfg.Commission

	trade := domain.CloseTrade(p, price, at, commission, reason)
	e.balance += trade.GrossProfit - commission
	e.trades = append(e.trades, trade)
	e.position = nil

	if e.risk != nil {
		if _, err := e.risk.ClosePosition(ctx, p.TradeID, price, at, commission, reason); err != nil {
			e.logger.Error(ctx, err, "Risk manager could not close position", map[string]interface{}{"tradeID": p.TradeID})
		}
	}

	e.logger.Info(ctx, "Position closed", map[string]interface{}{
		"tradeID":   trade.ID,
		"reason":    string(reason),
		"exitPrice": price,
		"netProfit": trade.NetProfit,
		"balance":   e.balance,
	})
}

func (e *Engine) enter(ctx context.Context, k *domain.Kline, sig domain.Signal) {
	dir := domain.Long
	if sig.Action == domain.ActionSell {
		dir = domain.Short
	}
	entry := e.fill(sig.EntryPrice, dir == domain.Long)
	stop := sig.StopLoss
	distance := math.Abs(entry - stop)

	if dir.Sign()*(entry-stop) <= 0 {
		e.logger.Debug(ctx, "Entry skipped: stop on the wrong side after slippage", map[string]interface{}{
			"entry": entry,
			"stop":  stop,
		})
		return
	}

	rr := e.cfg.Params.RiskRewardRatio
	if sig.Metadata.Regime != nil {
		rr = sig.Metadata.Regime.Params.RiskRewardRatio
	}
	target := sig.TakeProfit
	if target <= 0 || e.risk != nil {
		// The risk gate measures reward against the filled entry.
		target = strategy.TakeProfit(entry, stop, rr, dir)
	}

	req := risk.TradeRequest{Symbol: e.cfg.Symbol, Direction: dir, Entry: entry, StopLoss: stop, TakeProfit: target, Time: k.OpenTime}
	var size float64
	if e.risk != nil {
		v := e.risk.ValidateTrade(ctx, req)
		if !v.Valid {
			e.logger.Debug(ctx, "Entry rejected by risk manager", map[string]interface{}{"reasons": v.Reasons})
			return
		}
		size = v.Sizing.Size
	} else {
		size = e.positionSize(entry, distance)
	}

	commission := size * entry * e.cfg.Commission
	if e.balance <= 0 || commission >= e.balance {
		e.logger.Warn(ctx, ports.ErrInsufficientFunds.Error(), map[string]interface{}{
			"balance": e.balance,
			"size":    size,
		})
		return
	}

	tradeID := ""
	if e.risk != nil {
		req.Commission = commission
		pos, _, err := e.risk.OpenPosition(ctx, req)
		if err != nil {
			e.logger.Debug(ctx, "Entry rejected by risk manager", map[string]interface{}{"error": err.Error()})
			return
		}
		tradeID = pos.TradeID
	} else {
		tradeID = e.ids.New(k.OpenTime)
	}

	e.balance -= commission
	e.position = &domain.Position{
		TradeID:         tradeID,
		Symbol:          e.cfg.Symbol,
		Direction:       dir,
		EntryPrice:      entry,
		StopLoss:        stop,
		TakeProfit:      target,
		Size:            size,
		EntryTime:       k.OpenTime,
		RiskAmount:      size * distance,
		RiskRewardRatio: math.Abs(target-entry) / distance,
		EntryCommission: commission,
	}
	if target <= 0 {
		e.position.RiskRewardRatio = 0
	}

	e.logger.Info(ctx, "Position opened", map[string]interface{}{
		"tradeID":    tradeID,
		"direction":  string(dir),
		"entry":      entry,
		"stopLoss":   stop,
		"takeProfit": target,
		"size":       size,
	})
}

// positionSize risks RiskPercentage of the balance over the stop distance,
// never below MinPositionSize.
func (e *Engine) positionSize(entry, distance float64) float64 {
	var size float64
	if distance > 0 {
		size = e.balance * e.cfg.RiskPercentage / 100 / distance
	} else {
		size = e.balance * e.cfg.FallbackPositionPct / 100 / entry
	}
	return math.Max(size, e.cfg.MinPositionSize)
}
