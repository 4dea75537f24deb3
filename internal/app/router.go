package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ANUSHA12-K/juicy-cart-delight/internal/auth"
	"github.com/ANUSHA12-K/juicy-cart-delight/internal/cart"
	"github.com/ANUSHA12-K/juicy-cart-delight/internal/catalog"
	"github.com/ANUSHA12-K/juicy-cart-delight/internal/checkout"
	"github.com/ANUSHA12-K/juicy-cart-delight/internal/common"
	"github.com/ANUSHA12-K/juicy-cart-delight/internal/config"
	"github.com/ANUSHA12-K/juicy-cart-delight/internal/health"
	"github.com/ANUSHA12-K/juicy-cart-delight/internal/lock"
	"github.com/ANUSHA12-K/juicy-cart-delight/internal/obs"
	"github.com/ANUSHA12-K/juicy-cart-delight/internal/order"
	"github.com/ANUSHA12-K/juicy-cart-delight/internal/ratelimit"
	"github.com/ANUSHA12-K/juicy-cart-delight/internal/security"
)

// RouterConfig lists everything the HTTP surface depends on. Repositories are
// interfaces so the router can be exercised without Postgres.
type RouterConfig struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Products  catalog.Repository
	CartItems cart.Repository
	Orders    order.Repository
	Redis     *redis.Client
	Tokens    auth.TokenParser
	Retrier   checkout.ClearRetrier
	Limiter   ratelimit.Limiter
	Health    health.Checker

	// Metrics enables request metrics and /metrics when set.
	Metrics  *obs.HTTPMetrics
	Gatherer prometheus.Gatherer
	Tracing  bool

	// Background scopes housekeeping goroutines. Nil disables them.
	Background context.Context
}

// NewRouter builds the API router.
func NewRouter(rc RouterConfig) (http.Handler, error) {
	cfg := rc.Config
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	if rc.Products == nil || rc.CartItems == nil || rc.Orders == nil {
		return nil, errors.New("app: products, cart items and orders repositories are required")
	}
	if rc.Redis == nil {
		return nil, errors.New("app: redis client is required")
	}

	validate := validator.New()

	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Repository: rc.Products,
		Cache:      catalog.NewCache(rc.Redis, cfg.CatalogCacheTTL),
	})
	if err != nil {
		return nil, err
	}
	catalogHandler := catalog.NewHandler(catalog.HandlerConfig{Service: catalogService})

	sessions, err := cart.NewSessions(rc.CartItems, cfg.GuestCartIdleTTL)
	if err != nil {
		return nil, err
	}
	locker := lock.Locker{R: rc.Redis, RetryBackoff: cfg.CartLockBackoff}
	cartHandler := &cart.Handler{
		Sessions: sessions,
		Products: catalogService,
		Locker:   locker,
		LockTTL:  cfg.CartLockTTL,
		Validate: validate,
		Currency: cfg.CurrencyCode,
		Logger:   rc.Logger.With().Str("module", "cart").Logger(),
	}

	checkoutService := &checkout.Service{
		Orders:          rc.Orders,
		Retrier:         rc.Retrier,
		Logger:          rc.Logger.With().Str("module", "checkout").Logger(),
		DeliveryMinDays: cfg.DeliveryMinDays,
		DeliveryMaxDays: cfg.DeliveryMaxDays,
	}
	checkoutHandler, err := checkout.NewHandler(checkout.HandlerConfig{
		Service:  checkoutService,
		Sessions: sessions,
		Locker:   locker,
		LockTTL:  cfg.CartLockTTL,
		Validate: validate,
		Logger:   rc.Logger.With().Str("module", "checkout").Logger(),
	})
	if err != nil {
		return nil, fmt.Errorf("checkout handler: %w", err)
	}

	orderHandler := &order.Handler{Repo: rc.Orders, Logger: rc.Logger.With().Str("module", "order").Logger()}
	fulfillmentHandler := &order.FulfillmentHandler{
		Repo:     rc.Orders,
		Validate: validate,
		Logger:   rc.Logger.With().Str("module", "fulfillment").Logger(),
	}

	authMiddleware := auth.Middleware{Tokens: rc.Tokens}
	sessionHandler := auth.SessionHandler{}
	idem := common.Idem{R: rc.Redis, TTL: cfg.IdempotencyTTL}
	limit := ratelimit.Handler{
		Limiter: rc.Limiter,
		Config: ratelimit.Config{
			Key:    ratelimit.ByClientIP("api:"),
			Window: cfg.RateLimitWindow,
			Max:    cfg.RateLimitRequests,
		},
		OnError: func(err error) {
			rc.Logger.Warn().Err(err).Msg("rate limiter unavailable")
		},
	}
	healthHandler := health.Handler{Checker: rc.Health}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if rc.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if rc.Metrics != nil {
		r.Use(obs.HTTPObs{Metrics: rc.Metrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: rc.Logger}.Middleware)
	r.Use(security.CORS(cfg.CORSAllowedOrigins))
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.AppEnv == "production"}.Middleware)

	if rc.Metrics != nil {
		gatherer := rc.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(limit.Middleware)
		v.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)
		v.Use(authMiddleware.Authenticate)

		v.Post("/session", sessionHandler.Issue)

		v.Get("/products", catalogHandler.Products)
		v.Get("/products/{id}", catalogHandler.Product)

		v.Route("/cart", func(c chi.Router) {
			c.Get("/", cartHandler.Get)
			c.Post("/items", cartHandler.AddItem)
			c.Patch("/items/{itemId}", cartHandler.UpdateItem)
			c.Delete("/items/{itemId}", cartHandler.RemoveItem)
			c.With(authMiddleware.RequireAuth).Post("/merge", cartHandler.Merge)
		})

		v.With(authMiddleware.RequireAuth, idem.Middleware).Post("/checkout", checkoutHandler.Checkout)

		v.Group(func(authR chi.Router) {
			authR.Use(authMiddleware.RequireAuth)
			authR.Get("/orders", orderHandler.List)
			authR.Get("/orders/latest", orderHandler.Latest)
			authR.Get("/orders/{orderId}", orderHandler.Get)
		})

		v.Route("/fulfillment", func(f chi.Router) {
			f.Use(order.RequireFulfillmentKey(cfg.FulfillmentAPIKey))
			f.Patch("/orders/{orderId}/status", fulfillmentHandler.PatchStatus)
		})
	})

	if rc.Background != nil {
		go evictIdleStores(rc.Background, sessions, cfg.GuestCartIdleTTL, rc.Logger)
	}
	return r, nil
}

// evictIdleStores sweeps the registry so idle carts are released even when
// no new identity arrives.
func evictIdleStores(ctx context.Context, sessions *cart.Sessions, idle time.Duration, logger zerolog.Logger) {
	if idle <= 0 {
		return
	}
	interval := idle / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Evict(); n > 0 {
				logger.Debug().Int("evicted", n).Msg("idle carts evicted")
			}
		}
	}
}
