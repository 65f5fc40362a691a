package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pos-pricing/internal/cache"
	"github.com/noah-isme/pos-pricing/internal/pricing"
)

// CachedSource fronts another source with a Redis cache. Products the inner source
// does not know are cached as empty profiles so repeated misses stay cheap.
type CachedSource struct {
	Inner  ProfileSource
	Cache  *cache.Cache
	Logger zerolog.Logger
}

// Profiles implements ProfileSource.
func (s CachedSource) Profiles(ctx context.Context, ids []uuid.UUID) (pricing.ProfileLookup, error) {
	ids = uniqueIDs(ids)
	out := make(pricing.ProfileLookup, len(ids))
	missing := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		var profile pricing.ProductTaxProfile
		found, err := s.Cache.GetJSON(ctx, cache.KeyTaxProfile(id), &profile)
		if err != nil {
			s.Logger.Warn().Err(err).Str("product_id", id.String()).Msg("tax profile cache read failed")
		}
		if err != nil || !found {
			missing = append(missing, id)
			continue
		}
		if profile != (pricing.ProductTaxProfile{}) {
			out[id] = profile
		}
	}
	if len(missing) == 0 || s.Inner == nil {
		return out, nil
	}

	loaded, err := s.Inner.Profiles(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, id := range missing {
		profile, ok := loaded[id]
		if ok {
			out[id] = profile
		}
		if err := s.Cache.SetJSON(ctx, cache.KeyTaxProfile(id), profile); err != nil {
			s.Logger.Warn().Err(err).Str("product_id", id.String()).Msg("tax profile cache write failed")
		}
	}
	return out, nil
}

// Invalidate drops cached profiles so the next lookup reads through to the inner source.
func (s CachedSource) Invalidate(ctx context.Context, ids ...uuid.UUID) error {
	keys := make([]string, 0, len(ids))
	for _, id := range uniqueIDs(ids) {
		keys = append(keys, cache.KeyTaxProfile(id))
	}
	return s.Cache.Delete(ctx, keys...)
}
