package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pos-pricing/internal/cache"
	"github.com/noah-isme/pos-pricing/internal/pricing"
)

type countingSource struct {
	inner ProfileSource
	calls [][]uuid.UUID
	err   error
}

func (c *countingSource) Profiles(ctx context.Context, ids []uuid.UUID) (pricing.ProfileLookup, error) {
	c.calls = append(c.calls, ids)
	if c.err != nil {
		return nil, c.err
	}
	return c.inner.Profiles(ctx, ids)
}

func TestCachedSourceReadThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	known := uuid.New()
	unknown := uuid.New()
	rate := decimal.NewFromInt(5)
	inner := &countingSource{inner: StaticSource{known: {TaxRate: &rate}}}
	src := CachedSource{Inner: inner, Cache: cache.New(client, time.Minute)}
	ctx := context.Background()

	first, err := src.Profiles(ctx, []uuid.UUID{known, unknown})
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.True(t, first[known].TaxRate.Equal(rate))
	require.Len(t, inner.calls, 1)
	require.True(t, mr.Exists(cache.KeyTaxProfile(known)))
	require.True(t, mr.Exists(cache.KeyTaxProfile(unknown)))

	second, err := src.Profiles(ctx, []uuid.UUID{known, unknown})
	require.NoError(t, err)
	require.Len(t, inner.calls, 1, "second lookup should be served from cache")
	require.True(t, second[known].TaxRate.Equal(rate))
	_, ok := second[unknown]
	require.False(t, ok)
}

func TestCachedSourceDegradesWithoutRedis(t *testing.T) {
	id := uuid.New()
	taxable := false
	inner := &countingSource{inner: StaticSource{id: {Taxable: &taxable}}}
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0", DialTimeout: 50 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })

	got, err := CachedSource{Inner: inner, Cache: cache.New(client, time.Minute)}.Profiles(context.Background(), []uuid.UUID{id})
	require.NoError(t, err)
	require.False(t, *got[id].Taxable)
}

func TestCachedSourcePropagatesInnerError(t *testing.T) {
	boom := errors.New("db down")
	src := CachedSource{Inner: &countingSource{err: boom}, Cache: cache.New(nil, 0)}
	_, err := src.Profiles(context.Background(), []uuid.UUID{uuid.New()})
	require.ErrorIs(t, err, boom)
}

func TestCachedSourceInvalidate(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	id := uuid.New()
	inner := &countingSource{inner: StaticSource{}}
	src := CachedSource{Inner: inner, Cache: cache.New(client, time.Minute)}
	ctx := context.Background()

	_, err := src.Profiles(ctx, []uuid.UUID{id})
	require.NoError(t, err)
	require.True(t, mr.Exists(cache.KeyTaxProfile(id)))

	require.NoError(t, src.Invalidate(ctx, id, id))
	require.False(t, mr.Exists(cache.KeyTaxProfile(id)))

	_, err = src.Profiles(ctx, []uuid.UUID{id})
	require.NoError(t, err)
	require.Len(t, inner.calls, 2)
}
