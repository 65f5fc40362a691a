package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/pos-pricing/internal/cache"
	"github.com/noah-isme/pos-pricing/internal/catalog"
	"github.com/noah-isme/pos-pricing/internal/config"
	"github.com/noah-isme/pos-pricing/internal/health"
	"github.com/noah-isme/pos-pricing/internal/obs"
	"github.com/noah-isme/pos-pricing/internal/promo"
	"github.com/noah-isme/pos-pricing/internal/quote"
	"github.com/noah-isme/pos-pricing/internal/ratelimit"
	"github.com/noah-isme/pos-pricing/internal/resilience"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracingEnabled := cfg.TracingEnabled
	if tracingEnabled {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			Endpoint:      cfg.OTLPEndpoint,
			SamplingRatio: cfg.TracingSampling,
			Environment:   cfg.AppEnv,
			Version:       version,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	if cfg.RunMigrations {
		if err := catalog.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
		logger.Info().Msg("catalog migrations applied")
	}

	pool := openPostgres(ctx, cfg, logger)
	if pool != nil {
		defer pool.Close()
	}
	redisClient := openRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
	}

	var profiles catalog.ProfileSource = catalog.StaticSource{}
	if pool != nil {
		breaker := resilience.NewBreaker(cfg.CatalogBreakerMinRequests, 0.5, cfg.CatalogBreakerOpenFor).
			WithTarget("catalog_postgres").
			WithLogger(logger.With().Str("component", "catalog").Logger())
		if cfg.MetricsEnabled {
			breaker.WithMetrics(resilience.NewBreakerMetrics(cfg.MetricsNamespace, nil))
		}
		profiles = catalog.GuardedSource{Inner: catalog.PostgresSource{DB: pool}, Breaker: breaker}
	}
	if redisClient != nil {
		profiles = catalog.CachedSource{
			Inner:  profiles,
			Cache:  cache.New(redisClient, cfg.CatalogCacheTTL),
			Logger: logger.With().Str("component", "catalog").Logger(),
		}
	}

	var promos quote.PromoLookup
	if redisClient != nil {
		promos = promo.Store{Cache: cache.New(redisClient, 0)}
	}

	var limiter ratelimit.Limiter = ratelimit.NewMemory("pos:ratelimit")
	if redisClient != nil {
		limiter = ratelimit.SlidingWindow{Client: redisClient, Prefix: "pos:ratelimit:"}
	}

	var (
		httpMetrics    *obs.HTTPMetrics
		pricingMetrics *obs.PricingMetrics
	)
	if cfg.MetricsEnabled {
		httpMetrics = obs.NewHTTPMetrics(cfg.MetricsNamespace, nil, nil)
		pricingMetrics = obs.NewPricingMetrics(cfg.MetricsNamespace, nil)
	}

	svc := &quote.Service{
		Profiles: profiles,
		Promos:   promos,
		Policy:   cfg.TaxPolicy(),
		MaxStack: cfg.PromoMaxStack,
		MaxLines: cfg.MaxQuoteLines,
		Metrics:  pricingMetrics,
		Logger:   logger.With().Str("component", "quote").Logger(),
	}

	var handler http.Handler = newRouter(routerDeps{
		Config:      cfg,
		Logger:      logger,
		Quote:       &quote.Handler{Svc: svc},
		Health:      readiness(pool, redisClient),
		Limiter:     limiter,
		HTTPMetrics: httpMetrics,
	})
	if tracingEnabled {
		handler = otelhttp.NewHandler(handler, obs.ServiceName,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return "HTTP " + r.Method
			}),
		)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).
			Bool("postgres", pool != nil).
			Bool("redis", redisClient != nil).
			Str("default_tax_rate", cfg.DefaultTaxRatePercent.String()).
			Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case <-ctx.Done():
		health.SetReady(false)
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown")
		}
	}
}

// openPostgres connects when DATABASE_URL is set. Without it, tax profiles come from store defaults.
func openPostgres(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	if cfg.DatabaseURL == "" {
		logger.Warn().Msg("DATABASE_URL not set; pricing with store tax defaults only")
		return nil
	}
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = obs.ServiceName

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(connectCtx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

// openRedis connects when REDIS_URL is set. Without it, caching and promotions are disabled
// and rate limiting falls back to process memory.
func openRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *redis.Client {
	if cfg.RedisURL == "" {
		logger.Warn().Msg("REDIS_URL not set; promotions and profile caching disabled")
		return nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if cfg.MetricsEnabled {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return client
}

func readiness(pool *pgxpool.Pool, client *redis.Client) health.Handler {
	h := health.Handler{Timeout: 500 * time.Millisecond}
	if pool != nil {
		h.DB = pool.Ping
	}
	if client != nil {
		h.Redis = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}
	return h
}
