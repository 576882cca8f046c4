package catalog

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"cafemenu-cache/internal/cache"
	apperrors "cafemenu-cache/pkg/errors"

	"go.uber.org/zap"
)

// Chunk cache key layout. A chunk key decomposes back into its ChunkInfo via
// parseChunkKey; the index and popular keys are per tenant.
const (
	chunkKeyPrefix      = "product_chunk:"
	chunkIndexKeyPrefix = "product_chunk_index:"
	popularKeyPrefix    = "popular_products:"
)

// ChunkInfo identifies one chunk, parsed back out of its own cache key.
type ChunkInfo struct {
	TenantID   int `json:"tenantId"`
	CategoryID int `json:"categoryId"`
	ChunkIndex int `json:"chunkIndex"`
}

// ChunkIndex maps chunk cache key to chunk metadata. It is a derived,
// rebuildable artifact: losing it only costs a lazy rebuild, never data.
type ChunkIndex map[string]ChunkInfo

// ManagerOptions tunes the chunking and search behaviour. Zero fields take
// the documented defaults.
type ManagerOptions struct {
	// ChunkSize is the number of products per chunk (default 1000).
	ChunkSize int

	// PopularCount is how many recent products the popular subset holds
	// (default: one chunk's worth).
	PopularCount int

	// MaxResidentChunks caps how many chunks one warmup may leave resident
	// per tenant (default 50). Categories past the cap are not chunked;
	// their searches fall back to the data source.
	MaxResidentChunks int

	// TTLs. Chunks are more volatile than the popular subset, so they get
	// the shortest duration.
	ChunkTTL   time.Duration // default 30m
	PopularTTL time.Duration // default 2h
	IndexTTL   time.Duration // default 1h

	// Search bounds.
	PopularSearchLimit int // results served from the popular subset, default 20
	ChunkScanLimit     int // chunks inspected per search, default 10
	SearchResultLimit  int // overall result cap, default 50

	Logger *zap.Logger
}

func (o *ManagerOptions) applyDefaults() {
	if o.ChunkSize <= 0 {
		o.ChunkSize = 1000
	}
	if o.PopularCount <= 0 {
		o.PopularCount = o.ChunkSize
	}
	if o.MaxResidentChunks <= 0 {
		o.MaxResidentChunks = 50
	}
	if o.ChunkTTL <= 0 {
		o.ChunkTTL = 30 * time.Minute
	}
	if o.PopularTTL <= 0 {
		o.PopularTTL = 2 * time.Hour
	}
	if o.IndexTTL <= 0 {
		o.IndexTTL = time.Hour
	}
	if o.PopularSearchLimit <= 0 {
		o.PopularSearchLimit = 20
	}
	if o.ChunkScanLimit <= 0 {
		o.ChunkScanLimit = 10
	}
	if o.SearchResultLimit <= 0 {
		o.SearchResultLimit = 50
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// ProductCacheManager keeps a very large per-tenant product set cache-friendly
// by partitioning it into bounded chunks, prioritizing a popular subset, and
// bounding search fan-out across chunks. It sits above the cache engine and
// falls back to the data source when the chunk index is cold.
type ProductCacheManager struct {
	cache    *cache.MemoryCache
	tracker  *cache.AccessTracker
	products ProductSource
	catsrc   CategorySource
	metrics  CacheMetrics
	opts     ManagerOptions
	logger   *zap.Logger
}

// NewProductCacheManager wires the manager. tracker and metrics may be nil.
func NewProductCacheManager(
	c *cache.MemoryCache,
	tracker *cache.AccessTracker,
	products ProductSource,
	categories CategorySource,
	metrics CacheMetrics,
	opts ManagerOptions,
) *ProductCacheManager {
	opts.applyDefaults()
	if metrics == nil {
		metrics = noopCacheMetrics{}
	}
	return &ProductCacheManager{
		cache:    c,
		tracker:  tracker,
		products: products,
		catsrc:   categories,
		metrics:  metrics,
		opts:     opts,
		logger:   opts.Logger,
	}
}

// Warmup populates the popular subset, chunks every category of the tenant,
// and rebuilds the chunk index. One category failing does not abort the
// others: each category's chunking is independent and best-effort. Any
// failure is reported as a single wrapped error identifying the tenant;
// already-written chunks stay valid (no rollback).
func (m *ProductCacheManager) Warmup(ctx context.Context, tenantID int) error {
	started := time.Now()

	if err := m.cachePopularProducts(ctx, tenantID); err != nil {
		return apperrors.Wrapf(err, "cache warmup failed for tenant %d", tenantID)
	}

	if err := m.createCategoryChunks(ctx, tenantID); err != nil {
		return apperrors.Wrapf(err, "cache warmup failed for tenant %d", tenantID)
	}

	chunks := m.rebuildChunkIndex(tenantID)

	m.logger.Info("product cache warmup complete",
		zap.Int("tenant_id", tenantID),
		zap.Int("chunks", chunks),
		zap.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// cachePopularProducts stores the tenant's most recent products under the
// popular key. Recent items stand in for popularity until real demand data
// exists.
func (m *ProductCacheManager) cachePopularProducts(ctx context.Context, tenantID int) error {
	recent, err := m.products.RecentProducts(ctx, m.opts.PopularCount, tenantID)
	if err != nil {
		return err
	}
	m.cache.SetWithTTL(popularKey(tenantID), recent, m.opts.PopularTTL)
	return nil
}

// createCategoryChunks splits every category's products into fixed-size
// chunks. A failing category is logged and skipped; the first failure is
// still reported to the caller after the remaining categories are done.
func (m *ProductCacheManager) createCategoryChunks(ctx context.Context, tenantID int) error {
	categories, err := m.catsrc.Categories(ctx, tenantID)
	if err != nil {
		return err
	}

	var firstErr error
	budget := m.opts.MaxResidentChunks
	for _, category := range categories {
		if budget <= 0 {
			m.logger.Warn("resident chunk cap reached, remaining categories not chunked",
				zap.Int("tenant_id", tenantID),
				zap.Int("cap", m.opts.MaxResidentChunks),
			)
			break
		}
		written, err := m.cacheCategoryChunks(ctx, category.ID, tenantID, budget)
		budget -= written
		if err != nil {
			m.logger.Warn("category chunking failed",
				zap.Int("tenant_id", tenantID),
				zap.Int("category_id", category.ID),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = fmt.Errorf("category %d: %w", category.ID, err)
			}
		}
	}
	return firstErr
}

// cacheCategoryChunks writes up to budget chunks for one category and reports
// how many it wrote.
func (m *ProductCacheManager) cacheCategoryChunks(ctx context.Context, categoryID, tenantID, budget int) (int, error) {
	products, err := m.products.ProductsByCategory(ctx, categoryID, tenantID)
	if err != nil {
		return 0, err
	}

	written := 0
	for i := 0; i < len(products); i += m.opts.ChunkSize {
		if written == budget {
			break
		}
		end := i + m.opts.ChunkSize
		if end > len(products) {
			end = len(products)
		}
		key := chunkKey(tenantID, categoryID, i/m.opts.ChunkSize)
		m.cache.SetWithTTL(key, products[i:end], m.opts.ChunkTTL)
		written++
	}
	return written, nil
}

// rebuildChunkIndex rescans the tenant's current chunk keys and stores the
// resulting index. Keys that do not decode are dropped, never an error.
func (m *ProductCacheManager) rebuildChunkIndex(tenantID int) int {
	index := make(ChunkIndex)
	for _, key := range m.cache.Keys(chunkPattern(tenantID)) {
		if info, ok := parseChunkKey(key); ok {
			index[key] = info
		}
	}
	m.cache.SetWithTTL(chunkIndexKey(tenantID), index, m.opts.IndexTTL)
	return len(index)
}

// SearchWithCache searches the popular subset first; only when that yields
// nothing does it fan out into the chunks.
func (m *ProductCacheManager) SearchWithCache(ctx context.Context, term string, tenantID int) ([]Product, error) {
	popular, ok := m.popularProducts(tenantID)
	if ok {
		results := filterProducts(popular, term, m.opts.PopularSearchLimit)
		if len(results) > 0 {
			return results, nil
		}
	}
	return m.SearchInChunks(ctx, term, tenantID)
}

// SearchInChunks scans cached chunks in index order, up to the configured
// chunk and result caps. A missing or expired index bypasses caching
// entirely and delegates straight to the data source. Degradation is
// graceful, never an error.
func (m *ProductCacheManager) SearchInChunks(ctx context.Context, term string, tenantID int) ([]Product, error) {
	indexKey := chunkIndexKey(tenantID)
	raw, ok := m.cache.Get(indexKey)
	if !ok {
		m.metrics.Miss("product_chunk_index")
		return m.products.SearchProducts(ctx, term, tenantID)
	}
	index, ok := raw.(ChunkIndex)
	if !ok {
		m.metrics.Miss("product_chunk_index")
		return m.products.SearchProducts(ctx, term, tenantID)
	}
	m.metrics.Hit("product_chunk_index")

	results := make([]Product, 0)
	for _, key := range orderedChunkKeys(index, m.opts.ChunkScanLimit) {
		raw, ok := m.cache.Get(key)
		m.recordAccess(key, ok)

		if !ok {
			continue
		}
		products, ok := raw.([]Product)
		if !ok {
			continue
		}

		results = append(results, filterProducts(products, term, m.opts.SearchResultLimit-len(results))...)
		if len(results) >= m.opts.SearchResultLimit {
			break
		}
	}
	return results, nil
}

// Invalidate removes all of the tenant's chunk keys, the popular subset and
// the chunk index. Called when the tenant's products change wholesale.
func (m *ProductCacheManager) Invalidate(tenantID int) {
	m.cache.RemoveByPattern(chunkPattern(tenantID))
	m.cache.Remove(popularKey(tenantID))
	m.cache.Remove(chunkIndexKey(tenantID))
	m.logger.Debug("product cache invalidated", zap.Int("tenant_id", tenantID))
}

// InvalidateCategory removes only one category's chunk keys, plus the now
// stale chunk index (it is rebuildable, so dropping it is always safe).
func (m *ProductCacheManager) InvalidateCategory(tenantID, categoryID int) {
	m.cache.RemoveByPattern(categoryChunkPattern(tenantID, categoryID))
	m.cache.Remove(chunkIndexKey(tenantID))
	m.logger.Debug("category chunk cache invalidated",
		zap.Int("tenant_id", tenantID),
		zap.Int("category_id", categoryID),
	)
}

func (m *ProductCacheManager) popularProducts(tenantID int) ([]Product, bool) {
	key := popularKey(tenantID)
	raw, ok := m.cache.Get(key)
	m.recordAccess(key, ok)
	if ok {
		m.metrics.Hit("popular_products")
	} else {
		m.metrics.Miss("popular_products")
	}
	if !ok {
		return nil, false
	}
	products, ok := raw.([]Product)
	return products, ok
}

func (m *ProductCacheManager) recordAccess(key string, hit bool) {
	if m.tracker != nil {
		m.tracker.RecordAccess(key, hit)
	}
}

// filterProducts returns up to limit products whose name or category name
// contains term, case-insensitively.
func filterProducts(products []Product, term string, limit int) []Product {
	if limit <= 0 {
		return nil
	}
	needle := strings.ToLower(term)
	matches := make([]Product, 0)
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.CategoryName), needle) {
			matches = append(matches, p)
			if len(matches) == limit {
				break
			}
		}
	}
	return matches
}

// orderedChunkKeys returns up to limit chunk keys in deterministic index
// order (category, then chunk number).
func orderedChunkKeys(index ChunkIndex, limit int) []string {
	keys := make([]string, 0, len(index))
	for key := range index {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := index[keys[i]], index[keys[j]]
		if a.CategoryID != b.CategoryID {
			return a.CategoryID < b.CategoryID
		}
		return a.ChunkIndex < b.ChunkIndex
	})
	if len(keys) > limit {
		keys = keys[:limit]
	}
	return keys
}

// Key builders and the fixed-arity chunk key grammar.

func chunkKey(tenantID, categoryID, chunk int) string {
	return fmt.Sprintf("%s%d:category:%d:chunk:%d", chunkKeyPrefix, tenantID, categoryID, chunk)
}

func chunkPattern(tenantID int) string {
	return fmt.Sprintf("%s%d:*", chunkKeyPrefix, tenantID)
}

func categoryChunkPattern(tenantID, categoryID int) string {
	return fmt.Sprintf("%s%d:category:%d:*", chunkKeyPrefix, tenantID, categoryID)
}

func chunkIndexKey(tenantID int) string {
	return fmt.Sprintf("%s%d", chunkIndexKeyPrefix, tenantID)
}

func popularKey(tenantID int) string {
	return fmt.Sprintf("%s%d", popularKeyPrefix, tenantID)
}

// parseChunkKey decodes product_chunk:{tenant}:category:{cat}:chunk:{n}.
// Keys of the wrong arity or with non-numeric fields are skipped by callers,
// never treated as errors.
func parseChunkKey(key string) (ChunkInfo, bool) {
	parts := strings.Split(key, ":")
	if len(parts) != 6 || parts[0]+":" != chunkKeyPrefix || parts[2] != "category" || parts[4] != "chunk" {
		return ChunkInfo{}, false
	}

	tenantID, err1 := strconv.Atoi(parts[1])
	categoryID, err2 := strconv.Atoi(parts[3])
	chunkIdx, err3 := strconv.Atoi(parts[5])
	if err1 != nil || err2 != nil || err3 != nil {
		return ChunkInfo{}, false
	}

	return ChunkInfo{TenantID: tenantID, CategoryID: categoryID, ChunkIndex: chunkIdx}, true
}
