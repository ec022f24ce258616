// Package storage defines the in-memory opportunity repository used when no
// database backend is enabled, and by tests.
package storage

import (
	"context"
	"sync"

	"arbscan/internal/application/port"
	"arbscan/internal/domain/model"
)

// InMemoryRepo keeps opportunities in a slice, newest appended last.
type InMemoryRepo struct {
	mu   sync.Mutex
	opps []*model.ArbitrageOpportunity
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{}
}

func (r *InMemoryRepo) SaveOpportunity(_ context.Context, opp *model.ArbitrageOpportunity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opps = append(r.opps, opp)
	return nil
}

func (r *InMemoryRepo) GetLatestBySymbol(_ context.Context, symbol string) (*model.ArbitrageOpportunity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *model.ArbitrageOpportunity
	for _, opp := range r.opps {
		if opp.Symbol != symbol {
			continue
		}
		if latest == nil || opp.Timestamp > latest.Timestamp {
			latest = opp
		}
	}
	return latest, nil
}

func (r *InMemoryRepo) DeleteOlderThan(_ context.Context, beforeMs int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.opps[:0]
	for _, opp := range r.opps {
		if opp.Timestamp >= beforeMs {
			kept = append(kept, opp)
		}
	}
	r.opps = kept
	return nil
}

var _ port.OpportunityRepository = (*InMemoryRepo)(nil)
