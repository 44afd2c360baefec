package ports

import (
	"context"

	"smartMoneyBot/internal/domain"
	"smartMoneyBot/internal/strategy/indicators"
)

// SignalGenerator turns the latest bar of an indicator frame into a decision.
// Implementations must be stateless between calls; position is nil when flat.
type SignalGenerator interface {
	GenerateSignal(ctx context.Context, frame *indicators.Frame, position *domain.Position, params domain.Params) domain.Signal
}
