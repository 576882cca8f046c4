package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafemenu-cache/internal/catalog"
	appErrors "cafemenu-cache/pkg/errors"
)

func seededStore() *MemoryStore {
	store := NewMemoryStore()
	store.SetTenants([]catalog.Tenant{
		{ID: 1, Name: "Active Cafe", IsActive: true},
		{ID: 2, Name: "Closed Cafe", IsActive: false},
	})
	store.SetProducts(1, []catalog.Product{
		{ID: 1, TenantID: 1, Name: "Espresso", CategoryID: 1, CategoryName: "Coffee", CreatedDate: time.Now().Add(-time.Hour)},
		{ID: 2, TenantID: 1, Name: "Latte", CategoryID: 1, CategoryName: "Coffee", CreatedDate: time.Now()},
		{ID: 3, TenantID: 1, Name: "Old Special", CategoryID: 2, CategoryName: "Seasonal", IsDeleted: true},
	})
	store.SetUsers(1, []catalog.User{{ID: 1, TenantID: 1, Username: "Admin"}})
	return store
}

func TestProductByIDSkipsDeleted(t *testing.T) {
	store := seededStore()
	ctx := context.Background()

	p, err := store.ProductByID(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "Espresso", p.Name)

	_, err = store.ProductByID(ctx, 3, 1)
	assert.True(t, appErrors.IsNotFound(err), "deleted products read as missing")
}

func TestProductByIDIsTenantScoped(t *testing.T) {
	store := seededStore()

	_, err := store.ProductByID(context.Background(), 1, 2)
	assert.True(t, appErrors.IsNotFound(err))
}

func TestRecentProductsOrderAndLimit(t *testing.T) {
	store := seededStore()

	recent, err := store.RecentProducts(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "Latte", recent[0].Name, "newest first")
}

func TestSearchMatchesNameAndCategory(t *testing.T) {
	store := seededStore()
	ctx := context.Background()

	byName, err := store.SearchProducts(ctx, "latte", 1)
	require.NoError(t, err)
	assert.Len(t, byName, 1)

	byCategory, err := store.SearchProducts(ctx, "coffee", 1)
	require.NoError(t, err)
	assert.Len(t, byCategory, 2)
}

func TestUserByUsernameCaseInsensitive(t *testing.T) {
	store := seededStore()

	u, err := store.UserByUsername(context.Background(), "admin", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, u.ID)
}

func TestActiveTenantsFiltersInactive(t *testing.T) {
	store := seededStore()

	tenants, err := store.ActiveTenants(context.Background())
	require.NoError(t, err)
	require.Len(t, tenants, 1)
	assert.Equal(t, "Active Cafe", tenants[0].Name)
}
