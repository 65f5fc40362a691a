package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/noah-isme/pos-pricing/internal/pricing"
	"github.com/noah-isme/pos-pricing/internal/resilience"
)

// GuardedSource trips a circuit breaker when the inner source keeps failing, so lookups
// fail fast with resilience.ErrOpenCircuit while the store recovers.
type GuardedSource struct {
	Inner   ProfileSource
	Breaker *resilience.Breaker
}

// Profiles implements ProfileSource.
func (s GuardedSource) Profiles(ctx context.Context, ids []uuid.UUID) (pricing.ProfileLookup, error) {
	if s.Breaker == nil {
		return s.Inner.Profiles(ctx, ids)
	}
	var out pricing.ProfileLookup
	err := s.Breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.Inner.Profiles(ctx, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
