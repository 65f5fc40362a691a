package ratelimit

import (
	"context"
	"time"

	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// FixedWindow counts events in fixed periods using a ulule/limiter store. It backs the
// quote routes when the service runs without Redis.
type FixedWindow struct {
	Store limiter.Store
}

// NewMemory returns a FixedWindow keeping its counters in process memory.
func NewMemory(prefix string) *FixedWindow {
	return &FixedWindow{Store: memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          prefix,
		CleanUpInterval: time.Minute,
	})}
}

// Allow implements Limiter.
func (l *FixedWindow) Allow(ctx context.Context, key string, rate Rate) (Decision, error) {
	if l == nil || l.Store == nil || rate.unlimited() {
		return allowAll(rate), nil
	}
	res, err := limiter.New(l.Store, limiter.Rate{Period: rate.Window, Limit: int64(rate.Max)}).Get(ctx, key)
	if err != nil {
		return Decision{Reset: time.Now().Add(rate.Window)}, err
	}
	return Decision{
		Allowed:   !res.Reached,
		Remaining: int(res.Remaining),
		Reset:     time.Unix(res.Reset, 0),
	}, nil
}
