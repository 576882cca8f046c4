package catalog

import (
	"context"
	"time"

	"cafemenu-cache/internal/cache"
)

// CategoryService serves category reads through the cache.
type CategoryService struct {
	deps   serviceDeps
	source CategorySource
	ttl    time.Duration
}

func NewCategoryService(
	c *cache.MemoryCache,
	tracker *cache.AccessTracker,
	metrics CacheMetrics,
	source CategorySource,
	ttl time.Duration,
) *CategoryService {
	if ttl <= 0 {
		ttl = DefaultTTLs().Category
	}
	return &CategoryService{
		deps:   newServiceDeps(c, tracker, metrics),
		source: source,
		ttl:    ttl,
	}
}

// GetByID returns one category, cached per (category, tenant).
func (s *CategoryService) GetByID(ctx context.Context, id, tenantID int) (*Category, error) {
	key := keyCategoryByID(id, tenantID)
	if category, ok := getCached[*Category](s.deps.cache, key); ok {
		s.deps.observe(key, "category", true)
		return category, nil
	}
	s.deps.observe(key, "category", false)

	category, err := s.source.CategoryByID(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	s.deps.cache.SetWithTTL(key, category, s.ttl)
	return category, nil
}

// GetAll returns the tenant's category list.
func (s *CategoryService) GetAll(ctx context.Context, tenantID int) ([]Category, error) {
	key := keyAllCategories(tenantID)
	if categories, ok := getCached[[]Category](s.deps.cache, key); ok {
		s.deps.observe(key, "category", true)
		return categories, nil
	}
	s.deps.observe(key, "category", false)

	categories, err := s.source.Categories(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	s.deps.cache.SetWithTTL(key, categories, s.ttl)
	return categories, nil
}

// GetRoots returns only the tenant's top-level categories.
func (s *CategoryService) GetRoots(ctx context.Context, tenantID int) ([]Category, error) {
	categories, err := s.GetAll(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	roots := make([]Category, 0)
	for _, c := range categories {
		if c.ParentCategoryID == nil {
			roots = append(roots, c)
		}
	}
	return roots, nil
}

// Invalidate drops every cached category view of the tenant.
func (s *CategoryService) Invalidate(tenantID int) {
	s.deps.cache.RemoveByPattern(patternCategories(tenantID))
}
