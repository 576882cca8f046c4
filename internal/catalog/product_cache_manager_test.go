package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafemenu-cache/internal/cache"
)

// stubSource is a scripted ProductSource and CategorySource that counts how
// often the manager falls back to it.
type stubSource struct {
	productsByCategory map[int][]Product
	recent             []Product
	searchResults      []Product
	categories         []Category

	categoryErr map[int]error

	searchCalls  int
	recentCalls  int
	byCatCalls   int
	catListCalls int
}

func (s *stubSource) ProductByID(ctx context.Context, id, tenantID int) (*Product, error) {
	return nil, errors.New("not scripted")
}

func (s *stubSource) ProductsByCategory(ctx context.Context, categoryID, tenantID int) ([]Product, error) {
	s.byCatCalls++
	if err := s.categoryErr[categoryID]; err != nil {
		return nil, err
	}
	return s.productsByCategory[categoryID], nil
}

func (s *stubSource) RecentProducts(ctx context.Context, count, tenantID int) ([]Product, error) {
	s.recentCalls++
	if count < len(s.recent) {
		return s.recent[:count], nil
	}
	return s.recent, nil
}

func (s *stubSource) SearchProducts(ctx context.Context, term string, tenantID int) ([]Product, error) {
	s.searchCalls++
	return s.searchResults, nil
}

func (s *stubSource) AllProducts(ctx context.Context, tenantID int) ([]Product, error) {
	all := make([]Product, 0)
	for _, products := range s.productsByCategory {
		all = append(all, products...)
	}
	return all, nil
}

func (s *stubSource) ProductsWithProperties(ctx context.Context, tenantID int) ([]Product, error) {
	return s.AllProducts(ctx, tenantID)
}

func (s *stubSource) CategoryByID(ctx context.Context, id, tenantID int) (*Category, error) {
	return nil, errors.New("not scripted")
}

func (s *stubSource) Categories(ctx context.Context, tenantID int) ([]Category, error) {
	s.catListCalls++
	return s.categories, nil
}

func makeProducts(categoryID, count int) []Product {
	products := make([]Product, count)
	for i := range products {
		products[i] = Product{
			ID:           categoryID*100000 + i,
			TenantID:     7,
			Name:         fmt.Sprintf("Product %d-%d", categoryID, i),
			CategoryID:   categoryID,
			CategoryName: fmt.Sprintf("Category %d", categoryID),
		}
	}
	return products
}

func newManagerSetup(source *stubSource, opts ManagerOptions) (*ProductCacheManager, *cache.MemoryCache, *cache.AccessTracker) {
	c := cache.NewMemoryCache(cache.Options{})
	tracker := cache.NewAccessTracker(nil)
	return NewProductCacheManager(c, tracker, source, source, nil, opts), c, tracker
}

func TestWarmupChunksAllCategories(t *testing.T) {
	source := &stubSource{
		categories: []Category{
			{ID: 1, TenantID: 7}, {ID: 2, TenantID: 7}, {ID: 3, TenantID: 7},
		},
		productsByCategory: map[int][]Product{
			1: makeProducts(1, 1200),
			2: makeProducts(2, 50),
			3: {},
		},
		recent: makeProducts(1, 10),
	}
	m, c, _ := newManagerSetup(source, ManagerOptions{ChunkSize: 1000})

	require.NoError(t, m.Warmup(context.Background(), 7))

	// 1200 products chunk into 2, 50 into 1, 0 into none.
	assert.True(t, c.Exists("product_chunk:7:category:1:chunk:0"))
	assert.True(t, c.Exists("product_chunk:7:category:1:chunk:1"))
	assert.True(t, c.Exists("product_chunk:7:category:2:chunk:0"))
	assert.False(t, c.Exists("product_chunk:7:category:3:chunk:0"))

	assert.True(t, c.Exists("popular_products:7"))

	raw, ok := c.Get("product_chunk_index:7")
	require.True(t, ok)
	index, ok := raw.(ChunkIndex)
	require.True(t, ok)
	assert.Len(t, index, 3)
	assert.Equal(t, ChunkInfo{TenantID: 7, CategoryID: 1, ChunkIndex: 1},
		index["product_chunk:7:category:1:chunk:1"])
}

func TestWarmupChunkSizes(t *testing.T) {
	source := &stubSource{
		categories:         []Category{{ID: 1, TenantID: 7}},
		productsByCategory: map[int][]Product{1: makeProducts(1, 2500)},
	}
	m, c, _ := newManagerSetup(source, ManagerOptions{ChunkSize: 1000})

	require.NoError(t, m.Warmup(context.Background(), 7))

	sizes := make([]int, 3)
	for i := 0; i < 3; i++ {
		raw, ok := c.Get(fmt.Sprintf("product_chunk:7:category:1:chunk:%d", i))
		require.True(t, ok)
		sizes[i] = len(raw.([]Product))
	}
	assert.Equal(t, []int{1000, 1000, 500}, sizes)
	assert.False(t, c.Exists("product_chunk:7:category:1:chunk:3"))
}

func TestWarmupContinuesPastFailingCategory(t *testing.T) {
	source := &stubSource{
		categories: []Category{{ID: 1, TenantID: 7}, {ID: 2, TenantID: 7}},
		productsByCategory: map[int][]Product{
			2: makeProducts(2, 10),
		},
		categoryErr: map[int]error{1: errors.New("store offline")},
	}
	m, c, _ := newManagerSetup(source, ManagerOptions{ChunkSize: 1000})

	err := m.Warmup(context.Background(), 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache warmup failed for tenant 7")

	// The healthy category was still chunked and indexed.
	assert.True(t, c.Exists("product_chunk:7:category:2:chunk:0"))
	raw, ok := c.Get("product_chunk_index:7")
	_ = raw
	assert.False(t, ok, "index is not rebuilt when warmup reports failure")
}

func TestWarmupHonorsResidentChunkCap(t *testing.T) {
	source := &stubSource{
		categories: []Category{{ID: 1, TenantID: 7}, {ID: 2, TenantID: 7}},
		productsByCategory: map[int][]Product{
			1: makeProducts(1, 30),
			2: makeProducts(2, 30),
		},
	}
	m, c, _ := newManagerSetup(source, ManagerOptions{ChunkSize: 10, MaxResidentChunks: 3})

	require.NoError(t, m.Warmup(context.Background(), 7))

	// Category 1 consumes the whole budget; category 2 is never chunked.
	assert.True(t, c.Exists(chunkKey(7, 1, 0)))
	assert.True(t, c.Exists(chunkKey(7, 1, 2)))
	assert.False(t, c.Exists(chunkKey(7, 2, 0)))

	raw, ok := c.Get(chunkIndexKey(7))
	require.True(t, ok)
	assert.Len(t, raw.(ChunkIndex), 3)
}

func TestSearchServesPopularFirst(t *testing.T) {
	source := &stubSource{}
	m, c, _ := newManagerSetup(source, ManagerOptions{})

	popular := []Product{
		{ID: 1, Name: "Espresso", CategoryName: "Coffee"},
		{ID: 2, Name: "Cappuccino", CategoryName: "Coffee"},
	}
	c.SetWithTTL("popular_products:7", popular, time.Hour)

	results, err := m.SearchWithCache(context.Background(), "espresso", 7)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].ID)
	assert.Zero(t, source.searchCalls, "popular hit must not touch the data source")
}

func TestSearchFallsThroughToChunks(t *testing.T) {
	source := &stubSource{
		categories:         []Category{{ID: 1, TenantID: 7}},
		productsByCategory: map[int][]Product{1: makeProducts(1, 30)},
		recent:             []Product{{ID: 99, Name: "Unrelated", CategoryName: "Other"}},
	}
	m, _, _ := newManagerSetup(source, ManagerOptions{ChunkSize: 10})
	require.NoError(t, m.Warmup(context.Background(), 7))

	results, err := m.SearchWithCache(context.Background(), "Product 1-5", 7)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Zero(t, source.searchCalls, "chunk hit must not touch the data source")
}

func TestSearchInChunksIndexMissDelegates(t *testing.T) {
	source := &stubSource{searchResults: makeProducts(1, 3)}
	m, _, _ := newManagerSetup(source, ManagerOptions{})

	results, err := m.SearchInChunks(context.Background(), "anything", 7)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, 1, source.searchCalls)
}

func TestSearchInChunksHonorsResultCap(t *testing.T) {
	source := &stubSource{
		categories:         []Category{{ID: 1, TenantID: 7}},
		productsByCategory: map[int][]Product{1: makeProducts(1, 200)},
	}
	m, _, _ := newManagerSetup(source, ManagerOptions{ChunkSize: 100, SearchResultLimit: 50})
	require.NoError(t, m.Warmup(context.Background(), 7))

	// Every product matches the shared prefix.
	results, err := m.SearchInChunks(context.Background(), "Product 1-", 7)
	require.NoError(t, err)
	assert.Len(t, results, 50)
}

func TestSearchInChunksScanLimit(t *testing.T) {
	source := &stubSource{categories: []Category{}}
	m, c, tracker := newManagerSetup(source, ManagerOptions{ChunkScanLimit: 2})

	// Five single-product chunks; only the first two in index order may be
	// scanned, and the match lives in the last chunk.
	index := make(ChunkIndex)
	for i := 0; i < 5; i++ {
		key := chunkKey(7, 1, i)
		c.SetWithTTL(key, []Product{{ID: i, Name: fmt.Sprintf("Item %d", i)}}, time.Hour)
		index[key] = ChunkInfo{TenantID: 7, CategoryID: 1, ChunkIndex: i}
	}
	c.SetWithTTL(chunkIndexKey(7), index, time.Hour)

	results, err := m.SearchInChunks(context.Background(), "Item 4", 7)
	require.NoError(t, err)
	assert.Empty(t, results)

	// The scan touched exactly the first two chunks, in order.
	_, ok := tracker.Snapshot(chunkKey(7, 1, 0))
	assert.True(t, ok)
	_, ok = tracker.Snapshot(chunkKey(7, 1, 1))
	assert.True(t, ok)
	_, ok = tracker.Snapshot(chunkKey(7, 1, 2))
	assert.False(t, ok)
}

func TestInvalidateRemovesChunksIndexAndPopular(t *testing.T) {
	source := &stubSource{
		categories:         []Category{{ID: 1, TenantID: 7}},
		productsByCategory: map[int][]Product{1: makeProducts(1, 20)},
		recent:             makeProducts(1, 5),
	}
	m, c, _ := newManagerSetup(source, ManagerOptions{ChunkSize: 10})
	require.NoError(t, m.Warmup(context.Background(), 7))

	// A different tenant's entries must survive.
	c.SetWithTTL(chunkKey(8, 1, 0), makeProducts(1, 1), time.Hour)

	m.Invalidate(7)

	assert.False(t, c.Exists("popular_products:7"))
	assert.False(t, c.Exists("product_chunk_index:7"))
	assert.Empty(t, c.Keys("product_chunk:7:*"))
	assert.True(t, c.Exists(chunkKey(8, 1, 0)))
}

func TestInvalidateCategoryIsScoped(t *testing.T) {
	source := &stubSource{
		categories: []Category{{ID: 1, TenantID: 7}, {ID: 2, TenantID: 7}},
		productsByCategory: map[int][]Product{
			1: makeProducts(1, 5),
			2: makeProducts(2, 5),
		},
	}
	m, c, _ := newManagerSetup(source, ManagerOptions{ChunkSize: 10})
	require.NoError(t, m.Warmup(context.Background(), 7))

	m.InvalidateCategory(7, 1)

	assert.False(t, c.Exists(chunkKey(7, 1, 0)))
	assert.True(t, c.Exists(chunkKey(7, 2, 0)))
	assert.False(t, c.Exists(chunkIndexKey(7)), "stale index is dropped")
}

func TestParseChunkKey(t *testing.T) {
	tests := []struct {
		key  string
		want ChunkInfo
		ok   bool
	}{
		{"product_chunk:7:category:3:chunk:2", ChunkInfo{7, 3, 2}, true},
		{"product_chunk:1:category:1:chunk:0", ChunkInfo{1, 1, 0}, true},
		{"product_chunk:7:category:3:chunk", ChunkInfo{}, false},
		{"product_chunk:7:category:3:chunk:2:extra", ChunkInfo{}, false},
		{"product_chunk:x:category:3:chunk:2", ChunkInfo{}, false},
		{"product_chunk:7:category:y:chunk:2", ChunkInfo{}, false},
		{"product_chunk:7:kategorie:3:chunk:2", ChunkInfo{}, false},
		{"popular_products:7", ChunkInfo{}, false},
		{"", ChunkInfo{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := parseChunkKey(tt.key)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOrderedChunkKeysDeterministic(t *testing.T) {
	index := ChunkIndex{
		chunkKey(7, 2, 0): {7, 2, 0},
		chunkKey(7, 1, 1): {7, 1, 1},
		chunkKey(7, 1, 0): {7, 1, 0},
		chunkKey(7, 3, 0): {7, 3, 0},
	}

	keys := orderedChunkKeys(index, 3)
	assert.Equal(t, []string{
		chunkKey(7, 1, 0),
		chunkKey(7, 1, 1),
		chunkKey(7, 2, 0),
	}, keys)
}
