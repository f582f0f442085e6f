// Package app wires the HTTP surface of the offer-pricing API.
package app

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/magiccart-api/internal/analytics"
	"github.com/noah-isme/magiccart-api/internal/cache"
	"github.com/noah-isme/magiccart-api/internal/catalog"
	"github.com/noah-isme/magiccart-api/internal/checkout"
	"github.com/noah-isme/magiccart-api/internal/common"
	"github.com/noah-isme/magiccart-api/internal/config"
	"github.com/noah-isme/magiccart-api/internal/health"
	"github.com/noah-isme/magiccart-api/internal/obs"
	"github.com/noah-isme/magiccart-api/internal/pricing"
	"github.com/noah-isme/magiccart-api/internal/ratelimit"
	"github.com/noah-isme/magiccart-api/internal/repo"
	"github.com/noah-isme/magiccart-api/internal/resilience"
	"github.com/noah-isme/magiccart-api/internal/rules"
	"github.com/noah-isme/magiccart-api/internal/security"
	"github.com/noah-isme/magiccart-api/internal/shipping"
	"github.com/noah-isme/magiccart-api/internal/tax"
)

// Dependencies enumerates the infrastructure the router is built from.
type Dependencies struct {
	Config  *config.Config
	Logger  zerolog.Logger
	DB      repo.DBTX
	Redis   *redis.Client
	Tasks   analytics.Enqueuer
	Probes  map[string]health.Probe
	Metrics *obs.HTTPMetrics
	Tracing bool
}

// Handlers groups the HTTP handlers of every module.
type Handlers struct {
	Pricing   *pricing.Handler
	Checkout  *checkout.Handler
	Catalog   *catalog.Handler
	Analytics *analytics.Handler
	Health    health.Handler
}

// NewHandlers builds services over the Postgres repositories and Redis caches.
func NewHandlers(deps Dependencies) (Handlers, error) {
	cfg := deps.Config
	if cfg == nil {
		return Handlers{}, errors.New("app: config is required")
	}
	logger := deps.Logger

	catalogRepo := repo.GuardedCatalog{Repo: repo.NewCatalogRepo(deps.DB), Breaker: newStoreBreaker(cfg, "catalog", logger)}
	lookup := catalog.CachedLookup{
		Products: catalogRepo,
		Vendors:  catalogRepo,
		Cache:    catalog.NewCache(deps.Redis, cfg.Cache.CatalogTTL),
		Logger:   logger.With().Str("component", "catalog_cache").Logger(),
	}

	taxPolicy := tax.DefaultLocationRate{Rate: cfg.Pricing.TaxRate, DefaultLocation: cfg.Pricing.DefaultLocation}
	shippingPolicy := shipping.NewFlatRate(cfg.Pricing.ShippingCost, cfg.Pricing.ShippingDays)

	aggregator, err := pricing.NewAggregator(pricing.AggregatorConfig{
		Products: lookup,
		Vendors:  lookup,
		Offers:   catalogRepo,
		Tax:      taxPolicy,
		Shipping: shippingPolicy,
		Logger:   logger.With().Str("component", "aggregator").Logger(),
	})
	if err != nil {
		return Handlers{}, err
	}
	selector, err := rules.NewSelector(repo.GuardedRules{
		Repo:    repo.NewRulesRepo(deps.DB),
		Breaker: newStoreBreaker(cfg, "rules", logger),
	})
	if err != nil {
		return Handlers{}, err
	}
	pricingSvc, err := pricing.NewService(pricing.ServiceConfig{
		Aggregator:      aggregator,
		Selector:        selector,
		Tax:             taxPolicy,
		DefaultLocation: cfg.Pricing.DefaultLocation,
		Logger:          logger.With().Str("component", "pricing").Logger(),
	})
	if err != nil {
		return Handlers{}, err
	}

	var recorder checkout.SelectionRecorder
	if deps.Tasks != nil {
		recorder = analytics.Recorder{
			Client:    deps.Tasks,
			Queue:     cfg.Worker.Queue,
			MaxRetry:  cfg.Worker.MaxRetry,
			Retention: 24 * time.Hour,
			Logger:    logger.With().Str("component", "analytics_recorder").Logger(),
		}
	}
	checkoutLogger := logger.With().Str("component", "checkout").Logger()
	validator, err := checkout.NewValidator(checkout.ValidatorConfig{
		Products:                lookup,
		Vendors:                 lookup,
		Offers:                  catalogRepo,
		Generator:               checkout.NewGenerator(checkoutLogger),
		Recorder:                recorder,
		DefaultIntegrationLevel: catalog.ParseIntegrationLevel(cfg.Pricing.DefaultIntegrationLevel),
		Logger:                  checkoutLogger,
	})
	if err != nil {
		return Handlers{}, err
	}

	catalogSvc, err := catalog.NewService(catalog.ServiceConfig{Products: lookup, Vendors: lookup})
	if err != nil {
		return Handlers{}, err
	}

	analyticsSvc := &analytics.Service{
		Q:   repo.NewSelectionRepo(deps.DB),
		R:   deps.Redis,
		TTL: cfg.Cache.AnalyticsTTL,
	}

	return Handlers{
		Pricing:   pricing.NewHandler(pricing.HandlerConfig{Service: pricingSvc}),
		Checkout:  checkout.NewHandler(checkout.HandlerConfig{Validator: validator}),
		Catalog:   catalog.NewHandler(catalog.HandlerConfig{Service: catalogSvc}),
		Analytics: &analytics.Handler{Svc: analyticsSvc},
		Health:    health.Handler{Probes: deps.Probes},
	}, nil
}

// newStoreBreaker returns nil when the breaker is disabled; a nil breaker passes calls through.
func newStoreBreaker(cfg *config.Config, target string, logger zerolog.Logger) *resilience.Breaker {
	if !cfg.Breaker.Enabled {
		return nil
	}
	return resilience.NewBreaker(resilience.Config{
		Target:       target,
		MinRequests:  cfg.Breaker.MinRequests,
		FailureRatio: cfg.Breaker.FailureRatio,
		OpenFor:      cfg.Breaker.OpenFor,
		Ignore:       repo.IsStoreAnswer,
		Logger:       logger.With().Str("component", "store_breaker").Logger(),
	})
}

// NewLimiter picks the rate limiter backend named in cfg.
func NewLimiter(cfg config.RateLimitConfig, client *redis.Client) (ratelimit.Allower, error) {
	switch cfg.Backend {
	case "ulule":
		return ratelimit.NewUluleRedis(client, cache.PrefixRateLimit)
	case "sliding", "":
		return ratelimit.SlidingWindow{Client: client, Prefix: cache.PrefixRateLimit}, nil
	default:
		return nil, fmt.Errorf("app: unknown rate limit backend %q", cfg.Backend)
	}
}

// NewRouter assembles middleware and routes.
func NewRouter(deps Dependencies) (http.Handler, error) {
	h, err := NewHandlers(deps)
	if err != nil {
		return nil, err
	}
	cfg := deps.Config
	limiter, err := NewLimiter(cfg.RateLimit, deps.Redis)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	r.Use(obs.SessionMiddleware)
	if deps.Tracing {
		r.Use(obs.TracingMiddleware("magiccart-api"))
	}
	if deps.Metrics != nil {
		r.Use(obs.HTTPObs{Metrics: deps.Metrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.CORS(cfg.CORSAllowedOrigins))
	r.Use(security.Headers{Enable: cfg.Security.HeadersEnabled, EnableHSTS: cfg.AppEnv == "production"}.Middleware)

	if cfg.Obs.EnablePrometheus {
		r.Handle("/metrics", promhttp.Handler())
	}
	r.Get("/health/live", h.Health.Live)
	r.Get("/health/ready", h.Health.Ready)

	idem := common.Idem{R: deps.Redis, TTL: cfg.Cache.IdempotencyTTL}
	limit := ratelimit.Handler{
		Limiter: limiter,
		Config:  ratelimit.Config{Key: ratelimit.ClientIPKey("api:"), Window: cfg.RateLimit.Window, Max: cfg.RateLimit.Max},
		OnError: func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") },
	}

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(limit.Middleware)
		v.Use(security.BodyLimit{Max: cfg.Security.BodyLimitBytes}.Middleware)

		v.Get("/bidding-rules", h.Pricing.BiddingRules)
		v.With(idem.Middleware).Post("/validate-selection", h.Checkout.ValidateSelection)
		v.Get("/products/{id}", h.Catalog.ProductDetail)
		v.Get("/vendors", h.Catalog.Vendors)
		v.Get("/analytics/selections", h.Analytics.Selections)
	})

	return r, nil
}
