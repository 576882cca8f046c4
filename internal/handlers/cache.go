package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"cafemenu-cache/internal/cache"
	"cafemenu-cache/internal/catalog"
	"cafemenu-cache/internal/monitor"
	"cafemenu-cache/pkg/api"
)

// WarmupObserver records warmup durations. Implemented by the Prometheus
// collector; may be nil.
type WarmupObserver interface {
	ObserveWarmup(d time.Duration)
}

// CacheHandler exposes cache administration: statistics, the performance
// report, tenant warmup and tenant invalidation.
type CacheHandler struct {
	cache    *cache.MemoryCache
	monitor  *monitor.Monitor
	manager  *catalog.ProductCacheManager
	products *catalog.ProductService
	observer WarmupObserver
	logger   *zap.Logger
}

func NewCacheHandler(
	c *cache.MemoryCache,
	mon *monitor.Monitor,
	manager *catalog.ProductCacheManager,
	products *catalog.ProductService,
	observer WarmupObserver,
	logger *zap.Logger,
) *CacheHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheHandler{
		cache:    c,
		monitor:  mon,
		manager:  manager,
		products: products,
		observer: observer,
		logger:   logger,
	}
}

// Stats handles GET /api/cache/stats.
func (h *CacheHandler) Stats(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, h.cache.Statistics())
}

// Report handles GET /api/cache/report.
func (h *CacheHandler) Report(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, h.monitor.BuildReport())
}

// Warmup handles POST /api/cache/warmup/{tenantID}. Warmup is synchronous;
// the response reports how long it took.
func (h *CacheHandler) Warmup(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := urlParamInt(r, "tenantID")
	if !ok || tenantID < 1 {
		api.Error(w, http.StatusBadRequest, "tenantID must be a positive integer")
		return
	}

	start := time.Now()
	if err := h.manager.Warmup(r.Context(), tenantID); err != nil {
		handleServiceError(w, err, h.logger)
		return
	}
	elapsed := time.Since(start)
	if h.observer != nil {
		h.observer.ObserveWarmup(elapsed)
	}

	h.logger.Info("tenant cache warmed",
		zap.Int("tenant_id", tenantID),
		zap.Duration("duration", elapsed))

	api.Success(w, http.StatusOK, api.WarmupResponse{
		TenantID:   tenantID,
		DurationMS: elapsed.Milliseconds(),
		Status:     "warmed",
	})
}

// Invalidate handles DELETE /api/cache/tenants/{tenantID}. An optional
// categoryId query parameter narrows the purge to one category.
func (h *CacheHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := urlParamInt(r, "tenantID")
	if !ok || tenantID < 1 {
		api.Error(w, http.StatusBadRequest, "tenantID must be a positive integer")
		return
	}

	response := api.InvalidateResponse{TenantID: tenantID}
	if raw := r.URL.Query().Get("categoryId"); raw != "" {
		categoryID, err := parsePositiveInt(raw)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "categoryId must be a positive integer")
			return
		}
		h.products.InvalidateCategory(tenantID, categoryID)
		response.CategoryID = &categoryID
	} else {
		h.products.Invalidate(tenantID)
	}

	h.logger.Info("tenant cache invalidated",
		zap.Int("tenant_id", tenantID),
		zap.Any("category_id", response.CategoryID))

	api.Success(w, http.StatusOK, response)
}

// Health handles GET /health.
func (h *CacheHandler) Health(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}
