package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafemenu-cache/internal/cache"
	"cafemenu-cache/internal/catalog"
	"cafemenu-cache/internal/config"
	"cafemenu-cache/internal/monitor"
	"cafemenu-cache/internal/repository"
)

func newTestRouter(t *testing.T) (http.Handler, *cache.MemoryCache) {
	t.Helper()

	store := repository.NewMemoryStore()
	store.SetTenants([]catalog.Tenant{{ID: 1, Name: "Cafe", IsActive: true}})
	store.SetCategories(1, []catalog.Category{{ID: 1, TenantID: 1, Name: "Coffee"}})
	store.SetProducts(1, []catalog.Product{
		{ID: 1, TenantID: 1, Name: "Espresso", CategoryID: 1, CategoryName: "Coffee", CreatedDate: time.Now()},
		{ID: 2, TenantID: 1, Name: "Cappuccino", CategoryID: 1, CategoryName: "Coffee", CreatedDate: time.Now()},
	})

	c := cache.NewMemoryCache(cache.Options{})
	tracker := cache.NewAccessTracker(nil)
	manager := catalog.NewProductCacheManager(c, tracker, store, store, nil, catalog.ManagerOptions{})
	products := catalog.NewProductService(c, tracker, nil, store, manager, time.Hour)
	mon := monitor.New(c, tracker, nil, monitor.Options{})

	router := NewRouter(RouterDeps{
		Cache:    c,
		Monitor:  mon,
		Manager:  manager,
		Products: products,
		CORS:     config.CORS{AllowedOrigins: []string{"*"}},
	})
	return router, c
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestSearchValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name string
		url  string
	}{
		{"term too short", "/api/products/search?q=ab&tenantId=1"},
		{"missing term", "/api/products/search?tenantId=1"},
		{"missing tenant", "/api/products/search?q=espresso"},
		{"non-numeric tenant", "/api/products/search?q=espresso&tenantId=x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSearchReturnsProducts(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/search?q=espresso&tenantId=1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var products []catalog.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	require.Len(t, products, 1)
	assert.Equal(t, "Espresso", products[0].Name)
}

func TestStatsEndpoint(t *testing.T) {
	router, c := newTestRouter(t)
	c.Set("key", "value")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cache/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var stats cache.Statistics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalItems)
}

func TestReportEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cache/report", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var report monitor.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.NotEmpty(t, report.RecommendedActions)
}

func TestWarmupEndpoint(t *testing.T) {
	router, c := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/cache/warmup/1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, c.Exists("popular_products:1"))
	assert.True(t, c.Exists("product_chunk_index:1"))
}

func TestWarmupRejectsBadTenant(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{"/api/cache/warmup/0", "/api/cache/warmup/abc"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestInvalidateEndpoint(t *testing.T) {
	router, c := newTestRouter(t)

	// Warm first so there is something to drop.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/cache/warmup/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/cache/tenants/1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, c.Exists("popular_products:1"))
	assert.Empty(t, c.Keys("product_chunk:1:*"))
}

func TestInvalidateCategoryScoped(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/cache/tenants/1?categoryId=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(2), resp["categoryId"])
}

func TestInvalidateRejectsBadCategory(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/cache/tenants/1?categoryId=zero", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestIDIsPropagated(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "fixed-id", rec.Header().Get("X-Request-ID"))
}
