package port

import (
	"context"

	"arbscan/internal/domain/model"
)

// OpportunityRepository persists scored opportunities. Historical prices are
// never stored; only the scanner's output is.
type OpportunityRepository interface {
	SaveOpportunity(ctx context.Context, opp *model.ArbitrageOpportunity) error
	GetLatestBySymbol(ctx context.Context, symbol string) (*model.ArbitrageOpportunity, error)
	DeleteOlderThan(ctx context.Context, beforeMs int64) error
}

// SignalPublisher pushes detected opportunities to downstream consumers.
type SignalPublisher interface {
	PublishOpportunity(ctx context.Context, opp *model.ArbitrageOpportunity) error
}
