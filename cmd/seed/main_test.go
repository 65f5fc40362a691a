package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pos-pricing/internal/cache"
	"github.com/noah-isme/pos-pricing/internal/config"
	"github.com/noah-isme/pos-pricing/internal/pricing"
	"github.com/noah-isme/pos-pricing/internal/promo"
)

const fixtureJSON = `{
  "taxProfiles": {
    "6f1c8a9e-3d4b-4c5a-9e8f-1a2b3c4d5e6f": {"taxRate": "21", "taxIncluded": true}
  },
  "promotions": [
    {"code": "welcome5", "kind": "fixed", "value": "5", "minSpend": "20", "combinable": true, "priority": 2}
  ]
}`

func TestReadFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(fixtureJSON), 0o600))

	f, err := readFixture(path)
	require.NoError(t, err)
	profile := f.TaxProfiles[uuid.MustParse("6f1c8a9e-3d4b-4c5a-9e8f-1a2b3c4d5e6f")]
	require.Equal(t, "21", profile.TaxRate.String())
	require.True(t, *profile.TaxIncluded)
	require.Nil(t, profile.Taxable)
	require.Len(t, f.Promotions, 1)

	_, err = readFixture(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

const fixtureYAML = `
taxProfiles:
  6f1c8a9e-3d4b-4c5a-9e8f-1a2b3c4d5e6f:
    taxRate: "21"
    taxable: false
promotions:
  - code: welcome5
    kind: fixed
    value: "5"
    combinable: true
`

func TestReadFixtureYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixtureYAML), 0o600))

	f, err := readFixture(path)
	require.NoError(t, err)
	profile := f.TaxProfiles[uuid.MustParse("6f1c8a9e-3d4b-4c5a-9e8f-1a2b3c4d5e6f")]
	require.Equal(t, "21", profile.TaxRate.String())
	require.False(t, *profile.Taxable)
	require.Nil(t, profile.TaxIncluded)
	require.Len(t, f.Promotions, 1)
	require.True(t, f.Promotions[0].Combinable)
	require.Equal(t, "5", f.Promotions[0].Value.String())
}

func TestSeedPromotions(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(fixtureJSON), 0o600))
	f, err := readFixture(path)
	require.NoError(t, err)

	require.NoError(t, seedPromotions(context.Background(), client, f.Promotions, zerolog.Nop()))

	rule, err := promo.Store{Cache: cache.New(client, 0)}.Get(context.Background(), "WELCOME5")
	require.NoError(t, err)
	require.Equal(t, pricing.DiscountFixedAmount, rule.Kind)
	require.Equal(t, "20", rule.MinSpend.String())
}

func TestSeedRequiresBackends(t *testing.T) {
	err := seedPromotions(context.Background(), nil, []promo.Rule{{Code: "X"}}, zerolog.Nop())
	require.Error(t, err)

	profiles := map[uuid.UUID]pricing.ProductTaxProfile{uuid.New(): {}}
	err = seedProfiles(context.Background(), &config.Config{}, nil, profiles, zerolog.Nop())
	require.Error(t, err)
}
