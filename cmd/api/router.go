package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/dulceria-api/internal/audit"
	"github.com/noah-isme/dulceria-api/internal/auth"
	"github.com/noah-isme/dulceria-api/internal/catalog"
	"github.com/noah-isme/dulceria-api/internal/common"
	"github.com/noah-isme/dulceria-api/internal/config"
	"github.com/noah-isme/dulceria-api/internal/health"
	"github.com/noah-isme/dulceria-api/internal/obs"
	"github.com/noah-isme/dulceria-api/internal/pricing"
	"github.com/noah-isme/dulceria-api/internal/ratelimit"
	"github.com/noah-isme/dulceria-api/internal/security"
)

type routerDeps struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Metrics    *obs.HTTPMetrics
	Tracing    bool
	Catalog    *catalog.Handler
	Pricing    *pricing.Handler
	Auth       auth.Middleware
	Audit      audit.HTTPRecorder
	AuditLogs  audit.Handler
	Idem       common.Idem
	QuoteLimit ratelimit.Handler
	Headers    security.Headers
	Health     health.Handler
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if d.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if d.Metrics != nil {
		r.Use(obs.HTTPObs{Metrics: d.Metrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(d.Headers.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(d.Config),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-Total-Count", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if d.Metrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}
	if d.Config != nil && d.Config.PprofEnabled {
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), d.Config.PprofUser, d.Config.PprofPass))
	}

	r.Get("/health/live", d.Health.Live)
	r.Get("/health/ready", d.Health.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/products/{slug}", d.Catalog.ProductDetail)
		v.Get("/variants/{id}", d.Catalog.VariantDetail)
		v.With(d.QuoteLimit.Middleware).Get("/variants/{id}/price", d.Catalog.VariantPrice)
		v.With(d.QuoteLimit.Middleware).Post("/cart/quote", d.Pricing.Quote)

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(d.Auth.RequireAuth)
			admin.Use(auth.RequireRole(common.RoleAdmin))

			admin.With(d.Audit.Middleware(audit.HTTPConfig{Action: "product.create", ResourceType: "product"})).
				Post("/products", d.Catalog.CreateProduct)
			admin.With(d.Audit.Middleware(audit.HTTPConfig{Action: "variant.create", ResourceType: "variant"})).
				Post("/variants", d.Catalog.CreateVariant)
			admin.With(
				d.Idem.Middleware,
				d.Audit.Middleware(audit.HTTPConfig{Action: "variant.batch_create", ResourceType: "product", ResourceIDParam: "id"}),
			).Post("/products/{id}/variants/batch", d.Catalog.BatchCreateVariants)
			admin.With(d.Audit.Middleware(audit.HTTPConfig{Action: "variant.discounts.update", ResourceType: "variant", ResourceIDParam: "id"})).
				Put("/variants/{id}/discounts", d.Catalog.UpdateDiscounts)
			admin.Get("/audit-logs", d.AuditLogs.List)
		})
	})

	return r
}

func allowedOrigins(cfg *config.Config) []string {
	if cfg == nil || len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
