package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"cafemenu-cache/internal/cache"
	"cafemenu-cache/internal/catalog"
	"cafemenu-cache/internal/config"
	"cafemenu-cache/internal/middleware"
	"cafemenu-cache/internal/monitor"
)

// RouterDeps carries everything the HTTP surface needs. MetricsHandler and
// the observers come from the Prometheus collector and may be nil.
type RouterDeps struct {
	Cache    *cache.MemoryCache
	Monitor  *monitor.Monitor
	Manager  *catalog.ProductCacheManager
	Products *catalog.ProductService

	MetricsHandler http.Handler
	HTTPObserver   middleware.HTTPObserver
	WarmupObserver WarmupObserver

	CORS   config.CORS
	Logger *zap.Logger
}

// NewRouter assembles the chi router with the shared middleware chain and
// all admin and search routes.
func NewRouter(deps RouterDeps) chi.Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cacheHandler := NewCacheHandler(deps.Cache, deps.Monitor, deps.Manager, deps.Products, deps.WarmupObserver, logger)
	productHandler := NewProductHandler(deps.Products, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger, deps.HTTPObserver))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.CORS.AllowedOrigins,
		AllowedMethods: deps.CORS.AllowedMethods,
		AllowedHeaders: deps.CORS.AllowedHeaders,
		MaxAge:         deps.CORS.MaxAge,
	}))

	r.Get("/health", cacheHandler.Health)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/cache", func(r chi.Router) {
			r.Get("/stats", cacheHandler.Stats)
			r.Get("/report", cacheHandler.Report)

			// Warmup hits the data source for a whole tenant catalog, so it
			// sits behind its own breaker.
			r.Group(func(r chi.Router) {
				r.Use(middleware.CircuitBreaker(middleware.DefaultCircuitBreakerConfig("warmup"), logger))
				r.Post("/warmup/{tenantID}", cacheHandler.Warmup)
			})

			r.Delete("/tenants/{tenantID}", cacheHandler.Invalidate)
		})

		r.Get("/products/search", productHandler.Search)
	})

	return r
}
