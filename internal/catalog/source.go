package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/noah-isme/pos-pricing/internal/pricing"
)

// ProfileSource resolves tax profiles for a set of products. Products without a
// profile are simply absent from the returned lookup.
type ProfileSource interface {
	Profiles(ctx context.Context, ids []uuid.UUID) (pricing.ProfileLookup, error)
}

// StaticSource serves profiles from memory.
type StaticSource map[uuid.UUID]pricing.ProductTaxProfile

// Profiles implements ProfileSource.
func (s StaticSource) Profiles(_ context.Context, ids []uuid.UUID) (pricing.ProfileLookup, error) {
	out := make(pricing.ProfileLookup, len(ids))
	for _, id := range ids {
		if p, ok := s[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
