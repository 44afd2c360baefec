package risk

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"smartMoneyBot/internal/domain"
	"smartMoneyBot/internal/id"
	"smartMoneyBot/internal/ports"
	"smartMoneyBot/internal/strategy/analytics"
)

// RiskConfig holds the account-level risk limits. Percentages are 0-100.
type RiskConfig struct {
	InitialBalance     float64
	RiskPerTradePct    float64
	MaxDrawdownPct     float64
	MaxRiskPerDayPct   float64
	MaxTradesPerDay    int
	MaxPositionSizePct float64
	MinRiskRewardRatio float64
	Leverage           int
	MaxOpenPositions   int
}

// DefaultRiskConfig returns the documented defaults.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		InitialBalance:     10000,
		RiskPerTradePct:    2,
		MaxDrawdownPct:     20,
		MaxRiskPerDayPct:   6,
		MaxTradesPerDay:    10,
		MaxPositionSizePct: 50,
		MinRiskRewardRatio: 1.5,
		Leverage:           1,
		MaxOpenPositions:   1,
	}
}

// rrTolerance absorbs float error when a target is placed at exactly the
// minimum ratio.
const rrTolerance = 1e-9

// RiskStats holds the manager's running account state
type RiskStats struct {
	Balance            float64
	PeakBalance        float64
	CurrentDrawdownPct float64
	DailyRiskUsedPct   float64
	DailyTrades        int
	OpenPositions      int
	Day                time.Time
}

// TradeRequest is a proposed entry. TakeProfit is optional (0 = none).
type TradeRequest struct {
	Symbol         string
	Direction      domain.Direction
	Entry          float64
	StopLoss       float64
	TakeProfit     float64
	RiskAdjustment float64 // Scales the per-trade risk; 0 means 1
	Commission     float64 // Entry commission, charged to the balance on open
	Time           time.Time
}

// Sizing is the position size a request would receive.
type Sizing struct {
	Size            float64
	RiskAmount      float64
	RiskPct         float64
	Notional        float64
	RiskRewardRatio float64
}

// Validation is the outcome of ValidateTrade.
type Validation struct {
	Valid   bool
	Reasons []string
	Sizing  Sizing
}

// Option customises a RiskManager.
type Option func(*RiskManager)

// WithClock overrides the time source used for daily rollover.
func WithClock(clock func() time.Time) Option {
	return func(r *RiskManager) { r.clock = clock }
}

// WithIDGenerator sets the generator for position trade IDs.
func WithIDGenerator(g *id.Generator) Option {
	return func(r *RiskManager) { r.ids = g }
}

// RiskManager sizes positions, enforces per-trade and per-day budgets and
// tracks open positions, drawdown and closed-trade performance.
type RiskManager struct {
	mu     sync.Mutex
	config RiskConfig
	stats  RiskStats
	open   map[string]*domain.Position
	closed []domain.Trade
	clock  func() time.Time
	ids    *id.Generator
	logger ports.Logger
}

// NewRiskManager creates a new risk manager instance
func NewRiskManager(config RiskConfig, logger ports.Logger, opts ...Option) (*RiskManager, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for risk manager")
	}
	if config.InitialBalance <= 0 {
		return nil, fmt.Errorf("initial balance must be positive")
	}
	if config.RiskPerTradePct <= 0 || config.MaxPositionSizePct <= 0 {
		return nil, fmt.Errorf("risk per trade and max position size must be positive")
	}
	if config.Leverage <= 0 {
		config.Leverage = 1
	}
	if config.MaxOpenPositions <= 0 {
		config.MaxOpenPositions = 1
	}

	r := &RiskManager{
		config: config,
		stats: RiskStats{
			Balance:     config.InitialBalance,
			PeakBalance: config.InitialBalance,
		},
		open:   make(map[string]*domain.Position),
		clock:  time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.ids == nil {
		r.ids = id.NewGenerator(1)
	}
	r.stats.Day = dayOf(r.clock())
	return r, nil
}

// CalculatePositionSize returns units to trade so that a stop-out loses
// RiskPerTradePct of the balance (scaled by riskAdjustment and leverage),
// clamped so the notional stays within MaxPositionSizePct of leveraged balance.
func (r *RiskManager) CalculatePositionSize(entry, stop, riskAdjustment float64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.positionSize(entry, stop, riskAdjustment)
}

func (r *RiskManager) positionSize(entry, stop, riskAdjustment float64) float64 {
	distance := math.Abs(entry - stop)
	if distance <= 0 || entry <= 0 || r.stats.Balance <= 0 {
		return 0
	}
	if riskAdjustment <= 0 {
		riskAdjustment = 1
	}
	leverage := float64(r.config.Leverage)
	size := r.stats.Balance * r.config.RiskPerTradePct / 100 * riskAdjustment / distance * leverage
	maxSize := r.stats.Balance * r.config.MaxPositionSizePct / 100 * leverage / entry
	return math.Min(size, maxSize)
}

// ValidateTrade checks a request against every limit and reports all violations.
func (r *RiskManager) ValidateTrade(ctx context.Context, req TradeRequest) Validation {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rollover(req.Time)
	return r.validate(req)
}

func (r *RiskManager) validate(req TradeRequest) Validation {
	var reasons []string

	switch {
	case !req.Direction.Valid():
		reasons = append(reasons, fmt.Sprintf("invalid direction %q", req.Direction))
	case req.Entry <= 0:
		reasons = append(reasons, "entry price must be positive")
	case req.Direction == domain.Long && req.StopLoss >= req.Entry:
		reasons = append(reasons, "stop loss must be below entry for a long")
	case req.Direction == domain.Short && req.StopLoss <= req.Entry:
		reasons = append(reasons, "stop loss must be above entry for a short")
	}

	sizing := Sizing{}
	if len(reasons) == 0 {
		sizing.Size = r.positionSize(req.Entry, req.StopLoss, req.RiskAdjustment)
		sizing.RiskAmount = sizing.Size * math.Abs(req.Entry-req.StopLoss)
		sizing.Notional = sizing.Size * req.Entry
		if r.stats.Balance > 0 {
			sizing.RiskPct = sizing.RiskAmount / r.stats.Balance * 100
		}
		if sizing.Size <= 0 {
			reasons = append(reasons, "position size is zero")
		}

		if req.TakeProfit > 0 {
			reward := req.Direction.Sign() * (req.TakeProfit - req.Entry)
			sizing.RiskRewardRatio = reward / math.Abs(req.Entry-req.StopLoss)
			if reward <= 0 {
				reasons = append(reasons, "take profit is on the wrong side of entry")
			} else if sizing.RiskRewardRatio < r.config.MinRiskRewardRatio-rrTolerance {
				reasons = append(reasons, fmt.Sprintf("risk-reward %.2f below minimum %.2f", sizing.RiskRewardRatio, r.config.MinRiskRewardRatio))
			}
		}
	}

	if r.stats.CurrentDrawdownPct >= r.config.MaxDrawdownPct {
		reasons = append(reasons, fmt.Sprintf("drawdown %.2f%% at or above maximum %.2f%%", r.stats.CurrentDrawdownPct, r.config.MaxDrawdownPct))
	}
	if r.stats.DailyRiskUsedPct+sizing.RiskPct > r.config.MaxRiskPerDayPct {
		reasons = append(reasons, fmt.Sprintf("daily risk %.2f%% would exceed maximum %.2f%%", r.stats.DailyRiskUsedPct+sizing.RiskPct, r.config.MaxRiskPerDayPct))
	}
	if r.stats.DailyTrades >= r.config.MaxTradesPerDay {
		reasons = append(reasons, fmt.Sprintf("daily trades %d at maximum %d", r.stats.DailyTrades, r.config.MaxTradesPerDay))
	}
	if len(r.open) >= r.config.MaxOpenPositions {
		reasons = append(reasons, "max open positions reached")
	}

	return Validation{Valid: len(reasons) == 0, Reasons: reasons, Sizing: sizing}
}

// OpenPosition validates req and, if accepted, starts tracking a position.
// A rejection wraps ports.ErrRiskLimit and still returns the validation.
func (r *RiskManager) OpenPosition(ctx context.Context, req TradeRequest) (*domain.Position, Validation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rollover(req.Time)
	v := r.validate(req)
	if !v.Valid {
		r.logger.Warn(ctx, "Trade rejected by risk manager", map[string]interface{}{
			"symbol":  req.Symbol,
			"reasons": strings.Join(v.Reasons, "; "),
		})
		return nil, v, fmt.Errorf("%w: %s", ports.ErrRiskLimit, strings.Join(v.Reasons, "; "))
	}

	at := req.Time
	if at.IsZero() {
		at = r.clock()
	}
	pos := &domain.Position{
		TradeID:         r.ids.New(at),
		Symbol:          req.Symbol,
		Direction:       req.Direction,
		EntryPrice:      req.Entry,
		StopLoss:        req.StopLoss,
		TakeProfit:      req.TakeProfit,
		Size:            v.Sizing.Size,
		EntryTime:       at,
		RiskAmount:      v.Sizing.RiskAmount,
		RiskRewardRatio: v.Sizing.RiskRewardRatio,
		EntryCommission: req.Commission,
	}
	r.open[pos.TradeID] = pos
	r.applyPNL(-req.Commission)
	r.stats.OpenPositions = len(r.open)
	r.stats.DailyTrades++
	r.stats.DailyRiskUsedPct += v.Sizing.RiskPct

	r.logger.Info(ctx, "Position opened", map[string]interface{}{
		"tradeID":   pos.TradeID,
		"direction": string(pos.Direction),
		"size":      pos.Size,
		"riskPct":   v.Sizing.RiskPct,
	})
	return pos, v, nil
}

// ClosePosition closes a tracked position at exitPrice, charges exitCommission
// and rolls the balance, peak balance and drawdown.
func (r *RiskManager) ClosePosition(ctx context.Context, tradeID string, exitPrice float64, exitTime time.Time, exitCommission float64, reason domain.ExitReason) (domain.Trade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos, ok := r.open[tradeID]
	if !ok {
		return domain.Trade{}, fmt.Errorf("%w: %s", ports.ErrPositionNotFound, tradeID)
	}
	delete(r.open, tradeID)

	trade := domain.CloseTrade(pos, exitPrice, exitTime, exitCommission, reason)
	r.closed = append(r.closed, trade)
	r.stats.OpenPositions = len(r.open)
	r.applyPNL(trade.GrossProfit - exitCommission)

	r.logger.Info(ctx, "Position closed", map[string]interface{}{
		"tradeID":     tradeID,
		"netProfit":   trade.NetProfit,
		"balance":     r.stats.Balance,
		"drawdownPct": r.stats.CurrentDrawdownPct,
	})
	return trade, nil
}

func (r *RiskManager) applyPNL(pnl float64) {
	r.stats.Balance += pnl
	if r.stats.Balance >= r.stats.PeakBalance {
		r.stats.PeakBalance = r.stats.Balance
		r.stats.CurrentDrawdownPct = 0
		return
	}
	r.stats.CurrentDrawdownPct = (r.stats.PeakBalance - r.stats.Balance) / r.stats.PeakBalance * 100
}

// ResetDailyLimits clears the daily trade count and used risk budget.
func (r *RiskManager) ResetDailyLimits() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetDaily(dayOf(r.clock()))
}

func (r *RiskManager) resetDaily(day time.Time) {
	r.stats.DailyTrades = 0
	r.stats.DailyRiskUsedPct = 0
	r.stats.Day = day
}

// rollover resets the daily counters when at falls on a new calendar day (UTC).
func (r *RiskManager) rollover(at time.Time) {
	if at.IsZero() {
		at = r.clock()
	}
	if day := dayOf(at); !day.Equal(r.stats.Day) {
		r.resetDaily(day)
	}
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// GetStats returns a copy of the current risk statistics
func (r *RiskManager) GetStats() RiskStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// OpenPositions returns the tracked open positions ordered by entry time.
func (r *RiskManager) OpenPositions() []domain.Position {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Position, 0, len(r.open))
	for _, p := range r.open {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TradeID < out[j].TradeID })
	return out
}

// PerformanceMetrics aggregates the closed positions. Percent fields are 0-100.
type PerformanceMetrics struct {
	TotalTrades        int
	WinningTrades      int
	LosingTrades       int
	WinRate            float64
	AvgWinPct          float64
	AvgLossPct         float64
	ProfitFactor       domain.Ratio
	Expectancy         float64
	SharpeRatio        float64
	TotalPNL           float64
	Balance            float64
	PeakBalance        float64
	CurrentDrawdownPct float64
}

// GetPerformanceMetrics summarises every closed position.
func (r *RiskManager) GetPerformanceMetrics() PerformanceMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := PerformanceMetrics{
		TotalTrades:        len(r.closed),
		ProfitFactor:       analytics.ProfitFactor(r.closed),
		SharpeRatio:        analytics.TradeSharpe(r.closed),
		Balance:            r.stats.Balance,
		PeakBalance:        r.stats.PeakBalance,
		CurrentDrawdownPct: r.stats.CurrentDrawdownPct,
	}
	var winPct, lossPct float64
	for _, t := range r.closed {
		m.TotalPNL += t.NetProfit
		switch {
		case t.NetProfit > 0:
			m.WinningTrades++
			winPct += t.ReturnPct()
		case t.NetProfit < 0:
			m.LosingTrades++
			lossPct += math.Abs(t.ReturnPct())
		}
	}
	if m.TotalTrades == 0 {
		return m
	}
	if m.WinningTrades > 0 {
		m.AvgWinPct = winPct / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AvgLossPct = lossPct / float64(m.LosingTrades)
	}
	winRate := float64(m.WinningTrades) / float64(m.TotalTrades)
	m.WinRate = winRate * 100
	m.Expectancy = winRate*m.AvgWinPct - (1-winRate)*m.AvgLossPct
	return m
}
