package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"smartMoneyBot/internal/domain"
	"smartMoneyBot/internal/ports"
	"smartMoneyBot/internal/strategy"
	"smartMoneyBot/internal/strategy/indicators"
)

// MonitorConfig controls what the signal monitor polls and how often.
type MonitorConfig struct {
	Symbol       string
	Interval     string
	CandleLimit  int
	PollInterval time.Duration
	Indicators   indicators.Config
	Params       domain.Params
}

// Option customises a SignalMonitor.
type Option func(*SignalMonitor)

// WithClock overrides the time source used to drop still-forming candles.
func WithClock(clock func() time.Time) Option {
	return func(m *SignalMonitor) { m.clock = clock }
}

// SignalMonitor polls candles, evaluates the latest closed bar and records
// every non-HOLD signal. It tracks a virtual position so the generator can
// emit close signals; no orders are placed.
type SignalMonitor struct {
	cfg       MonitorConfig
	source    ports.CandleSource
	generator ports.SignalGenerator
	signals   ports.SignalRepository // optional
	logger    ports.Logger
	clock     func() time.Time

	mu       sync.Mutex // Protects the fields below
	position *domain.Position
	lastBar  time.Time
}

// NewSignalMonitor creates a new monitor. signals may be nil.
func NewSignalMonitor(
	cfg MonitorConfig,
	source ports.CandleSource,
	generator ports.SignalGenerator,
	signals ports.SignalRepository,
	logger ports.Logger,
	opts ...Option,
) (*SignalMonitor, error) {
	if source == nil || generator == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for SignalMonitor")
	}
	if cfg.Symbol == "" {
		return nil, fmt.Errorf("%w: monitor symbol is required", ports.ErrConfigurationError)
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("%w: poll interval must be positive", ports.ErrConfigurationError)
	}
	if cfg.CandleLimit <= 0 {
		cfg.CandleLimit = 500
	}

	m := &SignalMonitor{
		cfg:       cfg,
		source:    source,
		generator: generator,
		signals:   signals,
		logger:    logger,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Run polls until ctx is cancelled. A failed iteration is logged and retried
// after the same poll interval.
func (m *SignalMonitor) Run(ctx context.Context) error {
	m.logger.Info(ctx, "Starting signal monitor", map[string]interface{}{
		"symbol":       m.cfg.Symbol,
		"interval":     m.cfg.Interval,
		"pollInterval": m.cfg.PollInterval.String(),
	})
	if err := m.source.Ping(ctx); err != nil {
		m.logger.Warn(ctx, "Candle source not reachable yet", map[string]interface{}{"error": err.Error()})
	}

	for {
		if _, err := m.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			m.logger.Error(ctx, err, "Monitor iteration failed, retrying after poll interval")
		}

		select {
		case <-ctx.Done():
			m.logger.Info(ctx, "Signal monitor stopped")
			return nil
		case <-time.After(m.cfg.PollInterval):
		}
	}
	m.logger.Info(ctx, "Signal monitor stopped")
	return nil
}

// RunOnce evaluates the newest closed candle. A bar already evaluated
// yields HOLD without calling the generator again.
func (m *SignalMonitor) RunOnce(ctx context.Context) (domain.Signal, error) {
	klines, err := m.source.GetKlines(ctx, m.cfg.Symbol, m.cfg.Interval, m.cfg.CandleLimit)
	if err != nil {
		return domain.Signal{}, fmt.Errorf("fetching candles for %s: %w", m.cfg.Symbol, err)
	}
	klines = m.closed(klines)
	if len(klines) == 0 {
		return domain.Signal{}, fmt.Errorf("%s %s: %w", m.cfg.Symbol, m.cfg.Interval, ports.ErrNoData)
	}
	latest := klines[len(klines)-1]

	m.mu.Lock()
	defer m.mu.Unlock()

	if !latest.OpenTime.After(m.lastBar) {
		m.logger.Debug(ctx, "No new closed candle", map[string]interface{}{"bar": latest.OpenTime})
		return domain.Hold(latest.Close, domain.SignalMetadata{}), nil
	}
	m.lastBar = latest.OpenTime

	m.checkVirtualExits(ctx, latest)

	frame := indicators.Compute(klines, m.cfg.Indicators)
	sig := m.generator.GenerateSignal(ctx, frame, m.position, m.cfg.Params)
	if sig.Action == domain.ActionHold {
		m.logger.Debug(ctx, "HOLD", map[string]interface{}{"price": sig.EntryPrice, "bar": latest.OpenTime})
		return sig, nil
	}

	m.apply(latest, sig)

	fields := map[string]interface{}{
		"symbol":     m.cfg.Symbol,
		"action":     string(sig.Action),
		"price":      sig.EntryPrice,
		"stopLoss":   sig.StopLoss,
		"takeProfit": sig.TakeProfit,
		"session":    sig.Metadata.Session,
	}
	if info := sig.Metadata.Regime; info != nil {
		fields["regime"] = string(info.Regime)
		fields["confidence"] = info.Confidence
	}
	m.logger.Info(ctx, "Signal emitted", fields)

	if m.signals != nil {
		rec := &domain.SignalRecord{Time: latest.OpenTime, Symbol: m.cfg.Symbol, Signal: sig}
		if _, err := m.signals.SaveSignal(ctx, rec); err != nil {
			return sig, fmt.Errorf("saving signal: %w", err)
		}
	}
	return sig, nil
}

// Position returns a copy of the virtual position, or nil when flat.
func (m *SignalMonitor) Position() *domain.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.position == nil {
		return nil
	}
	p := *m.position
	return &p
}

// closed drops a trailing candle that has not closed yet.
func (m *SignalMonitor) closed(klines []*domain.Kline) []*domain.Kline {
	if n := len(klines); n > 0 && klines[n-1].CloseTime.After(m.clock()) {
		return klines[:n-1]
	}
	return klines
}

// checkVirtualExits flattens the virtual position when the bar touched its
// stop (checked first) or target. Assumes m.mu is held.
func (m *SignalMonitor) checkVirtualExits(ctx context.Context, k *domain.Kline) {
	p := m.position
	if p == nil {
		return
	}
	var reason domain.ExitReason
	switch {
	case p.StopHit(k.High, k.Low):
		reason = domain.ExitStopLoss
	case p.TargetHit(k.High, k.Low):
		reason = domain.ExitTakeProfit
	default:
		return
	}
	m.position = nil
	m.logger.Info(ctx, "Virtual position closed", map[string]interface{}{
		"tradeID": p.TradeID,
		"reason":  string(reason),
	})
}

// apply moves the virtual position according to sig. Assumes m.mu is held.
func (m *SignalMonitor) apply(k *domain.Kline, sig domain.Signal) {
	switch sig.Action {
	case domain.ActionBuy, domain.ActionSell:
		dir := domain.Long
		if sig.Action == domain.ActionSell {
			dir = domain.Short
		}
		target := sig.TakeProfit
		if target <= 0 {
			target = strategy.TakeProfit(sig.EntryPrice, sig.StopLoss, m.cfg.Params.RiskRewardRatio, dir)
		}
		m.position = &domain.Position{
			TradeID:    fmt.Sprintf("virtual-%d", k.OpenTime.UnixMilli()),
			Symbol:     m.cfg.Symbol,
			Direction:  dir,
			EntryPrice: sig.EntryPrice,
			StopLoss:   sig.StopLoss,
			TakeProfit: target,
			Size:       1,
			EntryTime:  k.OpenTime,
		}
	case domain.ActionCloseLong, domain.ActionCloseShort:
		m.position = nil
	}
}
