package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"TAX_ENABLED":              "",
		"TAX_DEFAULT_RATE_PERCENT": "",
		"PRICES_INCLUDE_TAX":       "",
		"CATALOG_CACHE_TTL":        "",
		"PROMO_MAX_STACK":          "",
		"RUN_MIGRATIONS":           "",
		"PORT":                     "",
		"HTTP_MAX_BODY_BYTES":      "",
		"OBS_ENABLE_PPROF":         "",
	})
	require.NoError(t, err)

	policy := cfg.TaxPolicy()
	require.True(t, policy.TaxEnabled)
	require.Equal(t, "10", policy.DefaultTaxRatePercent.String())
	require.False(t, policy.PricesIncludeTaxByDefault)
	require.Equal(t, 10*time.Minute, cfg.CatalogCacheTTL)
	require.Equal(t, 3, cfg.PromoMaxStack)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, int64(1<<20), cfg.MaxBodyBytes)
	require.False(t, cfg.PprofEnabled)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"TAX_ENABLED":              "false",
		"TAX_DEFAULT_RATE_PERCENT": "16",
		"PRICES_INCLUDE_TAX":       "yes",
		"CATALOG_CACHE_TTL":        "30s",
		"PROMO_MAX_STACK":          "1",
		"CORS_ALLOWED_ORIGINS":     "https://pos.example, ,https://admin.example",
		"PORT":                     ":9090",
	})
	require.NoError(t, err)

	policy := cfg.TaxPolicy()
	require.False(t, policy.TaxEnabled)
	require.Equal(t, "16", policy.DefaultTaxRatePercent.String())
	require.True(t, policy.PricesIncludeTaxByDefault)
	require.Equal(t, 30*time.Second, cfg.CatalogCacheTTL)
	require.Equal(t, 1, cfg.PromoMaxStack)
	require.Equal(t, []string{"https://pos.example", "https://admin.example"}, cfg.CORSAllowedOrigins)
	require.Equal(t, ":9090", cfg.HTTPAddr())
}

func TestLoadRejectsInvalidRate(t *testing.T) {
	_, err := LoadForTests(map[string]string{"TAX_DEFAULT_RATE_PERCENT": "abc"})
	require.Error(t, err)

	_, err = LoadForTests(map[string]string{"TAX_DEFAULT_RATE_PERCENT": "120"})
	require.Error(t, err)
}

func TestLoadMigrationsNeedDatabase(t *testing.T) {
	_, err := LoadForTests(map[string]string{"RUN_MIGRATIONS": "true", "DATABASE_URL": ""})
	require.Error(t, err)
}
