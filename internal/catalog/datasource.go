package catalog

import "context"

// ProductSource loads products from the backing store on cache miss. A
// missing product is reported through a NOT_FOUND error; every other error
// is propagated to the caller unchanged. The cache has no authority over
// data-source failure semantics.
type ProductSource interface {
	ProductByID(ctx context.Context, id, tenantID int) (*Product, error)
	ProductsByCategory(ctx context.Context, categoryID, tenantID int) ([]Product, error)
	RecentProducts(ctx context.Context, count, tenantID int) ([]Product, error)
	SearchProducts(ctx context.Context, term string, tenantID int) ([]Product, error)
	AllProducts(ctx context.Context, tenantID int) ([]Product, error)
	ProductsWithProperties(ctx context.Context, tenantID int) ([]Product, error)
}

// CategorySource loads a tenant's categories.
type CategorySource interface {
	CategoryByID(ctx context.Context, id, tenantID int) (*Category, error)
	Categories(ctx context.Context, tenantID int) ([]Category, error)
}

// PropertySource loads a tenant's property definitions.
type PropertySource interface {
	PropertyByID(ctx context.Context, id, tenantID int) (*Property, error)
	Properties(ctx context.Context, tenantID int) ([]Property, error)
}

// UserSource loads tenant-scoped user records.
type UserSource interface {
	UserByID(ctx context.Context, id, tenantID int) (*User, error)
	UserByUsername(ctx context.Context, username string, tenantID int) (*User, error)
	Users(ctx context.Context, tenantID int) ([]User, error)
}

// TenantSource loads tenant records.
type TenantSource interface {
	TenantByID(ctx context.Context, id int) (*Tenant, error)
	ActiveTenants(ctx context.Context) ([]Tenant, error)
}

// DataSource is the full backing-store contract consumed by the services and
// the product cache manager.
type DataSource interface {
	ProductSource
	CategorySource
	PropertySource
	UserSource
	TenantSource
}
