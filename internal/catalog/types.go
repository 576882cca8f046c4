// Package catalog holds the multi-tenant catalog domain: the entity types,
// the data-source contract the cache falls back to, the read-through entity
// services, and the chunked product cache manager.
package catalog

import "time"

// Product is a catalog item. Name and CategoryName are the fields search
// matches against.
type Product struct {
	ID           int               `json:"id"`
	TenantID     int               `json:"tenantId"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	CategoryID   int               `json:"categoryId"`
	CategoryName string            `json:"categoryName"`
	Price        float64           `json:"price"`
	ImagePath    string            `json:"imagePath"`
	IsDeleted    bool              `json:"isDeleted"`
	CreatedDate  time.Time         `json:"createdDate"`
	Properties   []ProductProperty `json:"properties,omitempty"`
}

// ProductProperty is one key/value attribute attached to a product.
type ProductProperty struct {
	PropertyID int    `json:"propertyId"`
	Key        string `json:"key"`
	Value      string `json:"value"`
}

// Category is one node of a tenant's category tree.
type Category struct {
	ID               int       `json:"id"`
	TenantID         int       `json:"tenantId"`
	Name             string    `json:"name"`
	ParentCategoryID *int      `json:"parentCategoryId,omitempty"`
	IsDeleted        bool      `json:"isDeleted"`
	CreatedDate      time.Time `json:"createdDate"`
}

// Property is a reusable attribute definition scoped to a tenant.
type Property struct {
	ID          int       `json:"id"`
	TenantID    int       `json:"tenantId"`
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	IsDeleted   bool      `json:"isDeleted"`
	CreatedDate time.Time `json:"createdDate"`
}

// User is a tenant-scoped account. Only lookup fields are cached; credential
// handling stays outside this module.
type User struct {
	ID          int       `json:"id"`
	TenantID    int       `json:"tenantId"`
	Name        string    `json:"name"`
	Surname     string    `json:"surname"`
	Username    string    `json:"username"`
	IsDeleted   bool      `json:"isDeleted"`
	CreatedDate time.Time `json:"createdDate"`
}

// FullName joins the user's name parts for display.
func (u User) FullName() string {
	return u.Name + " " + u.Surname
}

// Tenant is one isolated catalog namespace.
type Tenant struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	IsActive    bool      `json:"isActive"`
	CreatedDate time.Time `json:"createdDate"`
}
