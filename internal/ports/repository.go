package ports

import (
	"context"

	"smartMoneyBot/internal/domain"
)

// RunSummary is a lightweight listing entry for a stored backtest.
type RunSummary struct {
	ID           string
	Symbol       string
	FinalBalance float64
	NetProfit    float64
	TotalTrades  int
	SharpeRatio  float64
}

// ResultRepository stores flat backtest results.
type ResultRepository interface {
	// SaveRun persists a result and returns its ID (assigning one if empty).
	SaveRun(ctx context.Context, result *domain.BacktestResult) (string, error)
	// LoadRun restores a previously saved result.
	// Returns ErrNotFound if no run has that ID.
	LoadRun(ctx context.Context, id string) (*domain.BacktestResult, error)
	// ListRuns returns summaries ordered by net profit descending.
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
}

// SignalRepository records signals emitted by the live monitor.
type SignalRepository interface {
	SaveSignal(ctx context.Context, record *domain.SignalRecord) (int64, error)
	// RecentSignals returns the newest signals for a symbol, newest first.
	RecentSignals(ctx context.Context, symbol string, limit int) ([]*domain.SignalRecord, error)
}
