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
	"github.com/shopspring/decimal"

	"github.com/noah-isme/dulceria-api/internal/app"
	"github.com/noah-isme/dulceria-api/internal/audit"
	"github.com/noah-isme/dulceria-api/internal/auth"
	"github.com/noah-isme/dulceria-api/internal/catalog"
	"github.com/noah-isme/dulceria-api/internal/common"
	"github.com/noah-isme/dulceria-api/internal/config"
	"github.com/noah-isme/dulceria-api/internal/discount"
	"github.com/noah-isme/dulceria-api/internal/health"
	"github.com/noah-isme/dulceria-api/internal/lock"
	"github.com/noah-isme/dulceria-api/internal/obs"
	"github.com/noah-isme/dulceria-api/internal/pricing"
	"github.com/noah-isme/dulceria-api/internal/ratelimit"
	"github.com/noah-isme/dulceria-api/internal/resilience"
	"github.com/noah-isme/dulceria-api/internal/security"
	"github.com/noah-isme/dulceria-api/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	decimal.MarshalJSONWithoutQuotes = true

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)

	tracingEnabled := false
	shutdownTracer, err := obs.InitTracer(context.Background(), obs.TracingConfig{
		ServiceName:   "dulceria-api",
		Endpoint:      cfg.TracingEndpoint,
		Exporter:      cfg.TracingExporter,
		SamplingRatio: cfg.TracingSampling,
		Environment:   cfg.AppEnv,
	})
	if err != nil {
		logger.Error().Err(err).Msg("initialise tracing")
	} else {
		tracingEnabled = cfg.TracingExporter != "none" && cfg.TracingExporter != "off"
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				logger.Error().Err(err).Msg("shutdown tracer")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DBAutoMigrate {
		if err := app.RunMigrations(migrations.FS, cfg.DatabaseURL, logger); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
	}

	startCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "dulceria-api"

	pool, err := pgxpool.NewWithConfig(startCtx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(startCtx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if cfg.MetricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(startCtx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	engine := discount.NewEngine(nil)
	cacheBreaker := resilience.NewBreaker(cfg.CacheBreakerMinRequests, cfg.CacheBreakerFailureRatio, cfg.CacheBreakerOpenFor).
		WithTarget("catalog_cache").
		WithLogger(logger)
	catalogService := catalog.NewService(catalog.ServiceConfig{
		Store:             catalog.NewPGStore(pool),
		Cache:             catalog.NewCache(redisClient, cfg.CatalogCacheTTL).WithBreaker(cacheBreaker),
		Locker:            lock.NewRedis(redisClient, "dulceria:lock:"),
		Engine:            engine,
		LowStockThreshold: cfg.LowStockThreshold,
		Logger:            logger.With().Str("component", "catalog").Logger(),
	})
	pricingService := pricing.NewService(pricing.ServiceConfig{
		Variants: catalogService,
		Engine:   engine,
		TaxBps:   cfg.PricingTaxRateBPS,
		Currency: cfg.CurrencyCode,
		Logger:   logger.With().Str("component", "pricing").Logger(),
	})

	verifier, err := auth.NewVerifier(auth.VerifierConfig{
		Secret:    cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
		Audience:  cfg.JWTAudience,
		ClockSkew: cfg.JWTClockSkew,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise token verifier")
	}

	quoteLimiter, err := ratelimit.New(cfg.QuoteRateLimit, redisClient, "ratelimit:price")
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter")
	}

	auditStore := audit.NewPGStore(pool)
	auditLogger := logger.With().Str("component", "audit").Logger()

	var httpMetrics *obs.HTTPMetrics
	if cfg.MetricsEnabled {
		httpMetrics = obs.NewHTTPMetrics(cfg.MetricsNamespace, obs.ParseBucketsCSV(cfg.MetricsBucketsMS), nil)
	}

	router := newRouter(routerDeps{
		Config:  cfg,
		Logger:  logger,
		Metrics: httpMetrics,
		Tracing: tracingEnabled,
		Catalog: catalog.NewHandler(catalog.HandlerConfig{Service: catalogService}),
		Pricing: pricing.NewHandler(pricingService),
		Auth:    auth.Middleware{Verifier: verifier},
		Audit: audit.HTTPRecorder{
			Service: &audit.Service{Store: auditStore, Enabled: cfg.AuditEnabled, SamplingRate: cfg.AuditSamplingRate},
			OnError: func(err error) { auditLogger.Error().Err(err).Msg("record audit log") },
		},
		AuditLogs: audit.Handler{Store: auditStore},
		Idem:      common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL},
		QuoteLimit: ratelimit.Handler{
			Limiter: quoteLimiter,
			Config:  ratelimit.Config{Key: ratelimit.ByClientIP},
			OnError: func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") },
		},
		Headers: security.Headers{
			Enable:     cfg.SecurityHeadersEnabled,
			EnableHSTS: cfg.SecurityHSTSEnabled,
			HSTSMaxAge: cfg.SecurityHSTSMaxAge,
		},
		Health: health.Handler{
			Checker:      health.Deps{DB: pool, Redis: redisClient},
			DBTimeout:    cfg.HealthDBTimeout,
			RedisTimeout: cfg.HealthRedisTimeout,
		},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case <-ctx.Done():
		health.SetReady(false)
		logger.Info().Msg("shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown")
		}
	}
}
