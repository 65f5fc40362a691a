// Command seed loads tax profiles into Postgres and promotions into Redis from a JSON or
// YAML fixture.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/pos-pricing/internal/cache"
	"github.com/noah-isme/pos-pricing/internal/catalog"
	"github.com/noah-isme/pos-pricing/internal/config"
	"github.com/noah-isme/pos-pricing/internal/obs"
	"github.com/noah-isme/pos-pricing/internal/pricing"
	"github.com/noah-isme/pos-pricing/internal/promo"
)

// Fixture is the seed file layout.
type Fixture struct {
	TaxProfiles map[uuid.UUID]pricing.ProductTaxProfile `json:"taxProfiles"`
	Promotions  []promo.Rule                             `json:"promotions"`
}

func main() {
	path := flag.String("file", "seed.json", "path to the seed fixture")
	flag.Parse()

	cfg := config.MustLoad()
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel)

	fixture, err := readFixture(*path)
	if err != nil {
		logger.Fatal().Err(err).Str("file", *path).Msg("read fixture")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if cfg.RunMigrations {
		if err := catalog.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("parse redis url")
		}
		redisClient = redis.NewClient(opts)
		defer func() { _ = redisClient.Close() }()
	}

	if err := seedProfiles(ctx, cfg, redisClient, fixture.TaxProfiles, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed tax profiles")
	}
	if err := seedPromotions(ctx, redisClient, fixture.Promotions, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed promotions")
	}
	logger.Info().
		Int("tax_profiles", len(fixture.TaxProfiles)).
		Int("promotions", len(fixture.Promotions)).
		Msg("seeding completed")
}

func readFixture(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if data, err = yamlToJSON(data); err != nil {
			return Fixture{}, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return Fixture{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return f, nil
}

// yamlToJSON lets YAML fixtures reuse the JSON decoders of the domain types.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

func seedProfiles(ctx context.Context, cfg *config.Config, client *redis.Client, profiles map[uuid.UUID]pricing.ProductTaxProfile, logger zerolog.Logger) error {
	if len(profiles) == 0 {
		return nil
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required to seed %d tax profiles", len(profiles))
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	ids := make([]uuid.UUID, 0, len(profiles))
	for id, profile := range profiles {
		if err := catalog.UpsertProfile(ctx, pool, id, profile); err != nil {
			return err
		}
		ids = append(ids, id)
	}
	// Cached profiles would otherwise shadow the new rows until they expire.
	cached := catalog.CachedSource{Cache: cache.New(client, 0), Logger: logger}
	if err := cached.Invalidate(ctx, ids...); err != nil {
		logger.Warn().Err(err).Msg("invalidate cached tax profiles")
	}
	return nil
}

func seedPromotions(ctx context.Context, client *redis.Client, rules []promo.Rule, logger zerolog.Logger) error {
	if len(rules) == 0 {
		return nil
	}
	if client == nil {
		return fmt.Errorf("REDIS_URL is required to seed %d promotions", len(rules))
	}
	store := promo.Store{Cache: cache.New(client, 0)}
	for _, rule := range rules {
		if err := store.Put(ctx, rule); err != nil {
			return err
		}
		logger.Debug().Str("code", promo.NormalizeCode(rule.Code)).Msg("promotion stored")
	}
	return nil
}
