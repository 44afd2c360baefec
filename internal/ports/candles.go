package ports

import (
	"context"
	"time"

	"smartMoneyBot/internal/domain"
)

// CandleSource delivers historical candles ordered by ascending open time.
// Order placement is deliberately absent: the system only consumes market data.
type CandleSource interface {
	// GetKlines retrieves the most recent klines for the given symbol.
	GetKlines(ctx context.Context, symbol string, interval string, limit int) ([]*domain.Kline, error)

	// GetKlinesRange retrieves all klines between start and end, paginating as needed.
	GetKlinesRange(ctx context.Context, symbol string, interval string, start, end time.Time) ([]*domain.Kline, error)

	// Ping checks the connectivity to the data provider.
	Ping(ctx context.Context) error
}
