package catalog

import (
	"context"
	"time"

	"cafemenu-cache/internal/cache"
)

// ProductService serves product reads through the cache. Misses load from
// the data source and populate the cache with the product TTL; data-source
// errors pass through unchanged.
type ProductService struct {
	deps   serviceDeps
	source ProductSource
	chunks *ProductCacheManager
	ttl    time.Duration
}

// NewProductService wires the service. chunks may be nil when the chunked
// layer is not in play (the explicit invalidation then only covers the plain
// product keys).
func NewProductService(
	c *cache.MemoryCache,
	tracker *cache.AccessTracker,
	metrics CacheMetrics,
	source ProductSource,
	chunks *ProductCacheManager,
	ttl time.Duration,
) *ProductService {
	if ttl <= 0 {
		ttl = DefaultTTLs().Product
	}
	return &ProductService{
		deps:   newServiceDeps(c, tracker, metrics),
		source: source,
		chunks: chunks,
		ttl:    ttl,
	}
}

// GetByID returns one product, cached per (product, tenant).
func (s *ProductService) GetByID(ctx context.Context, id, tenantID int) (*Product, error) {
	key := keyProductByID(id, tenantID)
	if p, ok := getCached[*Product](s.deps.cache, key); ok {
		s.deps.observe(key, "product", true)
		return p, nil
	}
	s.deps.observe(key, "product", false)

	p, err := s.source.ProductByID(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	s.deps.cache.SetWithTTL(key, p, s.ttl)
	return p, nil
}

// GetAll returns the tenant's full product list.
func (s *ProductService) GetAll(ctx context.Context, tenantID int) ([]Product, error) {
	key := keyAllProducts(tenantID)
	if products, ok := getCached[[]Product](s.deps.cache, key); ok {
		s.deps.observe(key, "product", true)
		return products, nil
	}
	s.deps.observe(key, "product", false)

	products, err := s.source.AllProducts(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	s.deps.cache.SetWithTTL(key, products, s.ttl)
	return products, nil
}

// GetByCategory returns the products of one category.
func (s *ProductService) GetByCategory(ctx context.Context, categoryID, tenantID int) ([]Product, error) {
	key := keyProductsByCategory(categoryID, tenantID)
	if products, ok := getCached[[]Product](s.deps.cache, key); ok {
		s.deps.observe(key, "product", true)
		return products, nil
	}
	s.deps.observe(key, "product", false)

	products, err := s.source.ProductsByCategory(ctx, categoryID, tenantID)
	if err != nil {
		return nil, err
	}
	s.deps.cache.SetWithTTL(key, products, s.ttl)
	return products, nil
}

// GetWithProperties returns the product list with property values attached.
func (s *ProductService) GetWithProperties(ctx context.Context, tenantID int) ([]Product, error) {
	key := keyProductsWithProperties(tenantID)
	if products, ok := getCached[[]Product](s.deps.cache, key); ok {
		s.deps.observe(key, "product", true)
		return products, nil
	}
	s.deps.observe(key, "product", false)

	products, err := s.source.ProductsWithProperties(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	s.deps.cache.SetWithTTL(key, products, s.ttl)
	return products, nil
}

// Search goes through the chunked layer when present, falling back to the
// data source otherwise.
func (s *ProductService) Search(ctx context.Context, term string, tenantID int) ([]Product, error) {
	if s.chunks != nil {
		return s.chunks.SearchWithCache(ctx, term, tenantID)
	}
	return s.source.SearchProducts(ctx, term, tenantID)
}

// Invalidate drops every cached product view of the tenant, including the
// chunked layer. A first-class operation: callers invalidate through this,
// never by reaching into cache internals.
func (s *ProductService) Invalidate(tenantID int) {
	s.deps.cache.RemoveByPattern(patternProducts(tenantID))
	if s.chunks != nil {
		s.chunks.Invalidate(tenantID)
	}
}

// InvalidateCategory narrows invalidation to one category's views.
func (s *ProductService) InvalidateCategory(tenantID, categoryID int) {
	s.deps.cache.Remove(keyProductsByCategory(categoryID, tenantID))
	s.deps.cache.Remove(keyAllProducts(tenantID))
	s.deps.cache.Remove(keyProductsWithProperties(tenantID))
	if s.chunks != nil {
		s.chunks.InvalidateCategory(tenantID, categoryID)
	}
}
