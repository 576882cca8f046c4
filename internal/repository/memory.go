// Package repository provides the data-source implementations backing the
// catalog services.
package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"cafemenu-cache/internal/catalog"
	appErrors "cafemenu-cache/pkg/errors"
)

// MemoryStore is an in-memory catalog.DataSource. It backs local runs and
// tests; a database-backed source slots in behind the same interface.
type MemoryStore struct {
	mu         sync.RWMutex
	products   map[int][]catalog.Product
	categories map[int][]catalog.Category
	properties map[int][]catalog.Property
	users      map[int][]catalog.User
	tenants    []catalog.Tenant
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:   make(map[int][]catalog.Product),
		categories: make(map[int][]catalog.Category),
		properties: make(map[int][]catalog.Property),
		users:      make(map[int][]catalog.User),
	}
}

// SetProducts replaces the product set of one tenant.
func (s *MemoryStore) SetProducts(tenantID int, products []catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[tenantID] = products
}

// SetCategories replaces the category set of one tenant.
func (s *MemoryStore) SetCategories(tenantID int, categories []catalog.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[tenantID] = categories
}

// SetProperties replaces the property set of one tenant.
func (s *MemoryStore) SetProperties(tenantID int, properties []catalog.Property) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.properties[tenantID] = properties
}

// SetUsers replaces the user set of one tenant.
func (s *MemoryStore) SetUsers(tenantID int, users []catalog.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[tenantID] = users
}

// SetTenants replaces the tenant registry.
func (s *MemoryStore) SetTenants(tenants []catalog.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants = tenants
}

func (s *MemoryStore) ProductByID(ctx context.Context, id, tenantID int) (*catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.products[tenantID] {
		if s.products[tenantID][i].ID == id && !s.products[tenantID][i].IsDeleted {
			p := s.products[tenantID][i]
			return &p, nil
		}
	}
	return nil, appErrors.NewNotFound(fmt.Sprintf("product %d not found for tenant %d", id, tenantID))
}

func (s *MemoryStore) ProductsByCategory(ctx context.Context, categoryID, tenantID int) ([]catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.Product, 0)
	for _, p := range s.products[tenantID] {
		if p.CategoryID == categoryID && !p.IsDeleted {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemoryStore) RecentProducts(ctx context.Context, count, tenantID int) ([]catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	live := make([]catalog.Product, 0, len(s.products[tenantID]))
	for _, p := range s.products[tenantID] {
		if !p.IsDeleted {
			live = append(live, p)
		}
	}
	sort.Slice(live, func(i, j int) bool {
		return live[i].CreatedDate.After(live[j].CreatedDate)
	})
	if count > 0 && len(live) > count {
		live = live[:count]
	}
	return live, nil
}

func (s *MemoryStore) SearchProducts(ctx context.Context, term string, tenantID int) ([]catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	needle := strings.ToLower(term)
	out := make([]catalog.Product, 0)
	for _, p := range s.products[tenantID] {
		if p.IsDeleted {
			continue
		}
		if strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.CategoryName), needle) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemoryStore) AllProducts(ctx context.Context, tenantID int) ([]catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.Product, 0, len(s.products[tenantID]))
	for _, p := range s.products[tenantID] {
		if !p.IsDeleted {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemoryStore) ProductsWithProperties(ctx context.Context, tenantID int) ([]catalog.Product, error) {
	return s.AllProducts(ctx, tenantID)
}

func (s *MemoryStore) CategoryByID(ctx context.Context, id, tenantID int) (*catalog.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.categories[tenantID] {
		if s.categories[tenantID][i].ID == id {
			c := s.categories[tenantID][i]
			return &c, nil
		}
	}
	return nil, appErrors.NewNotFound(fmt.Sprintf("category %d not found for tenant %d", id, tenantID))
}

func (s *MemoryStore) Categories(ctx context.Context, tenantID int) ([]catalog.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.Category, len(s.categories[tenantID]))
	copy(out, s.categories[tenantID])
	return out, nil
}

func (s *MemoryStore) PropertyByID(ctx context.Context, id, tenantID int) (*catalog.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.properties[tenantID] {
		if s.properties[tenantID][i].ID == id {
			p := s.properties[tenantID][i]
			return &p, nil
		}
	}
	return nil, appErrors.NewNotFound(fmt.Sprintf("property %d not found for tenant %d", id, tenantID))
}

func (s *MemoryStore) Properties(ctx context.Context, tenantID int) ([]catalog.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.Property, len(s.properties[tenantID]))
	copy(out, s.properties[tenantID])
	return out, nil
}

func (s *MemoryStore) UserByID(ctx context.Context, id, tenantID int) (*catalog.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.users[tenantID] {
		if s.users[tenantID][i].ID == id {
			u := s.users[tenantID][i]
			return &u, nil
		}
	}
	return nil, appErrors.NewNotFound(fmt.Sprintf("user %d not found for tenant %d", id, tenantID))
}

func (s *MemoryStore) UserByUsername(ctx context.Context, username string, tenantID int) (*catalog.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.users[tenantID] {
		if strings.EqualFold(s.users[tenantID][i].Username, username) {
			u := s.users[tenantID][i]
			return &u, nil
		}
	}
	return nil, appErrors.NewNotFound(fmt.Sprintf("user %q not found for tenant %d", username, tenantID))
}

func (s *MemoryStore) Users(ctx context.Context, tenantID int) ([]catalog.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.User, len(s.users[tenantID]))
	copy(out, s.users[tenantID])
	return out, nil
}

func (s *MemoryStore) TenantByID(ctx context.Context, id int) (*catalog.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.tenants {
		if s.tenants[i].ID == id {
			t := s.tenants[i]
			return &t, nil
		}
	}
	return nil, appErrors.NewNotFound(fmt.Sprintf("tenant %d not found", id))
}

func (s *MemoryStore) ActiveTenants(ctx context.Context) ([]catalog.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		if t.IsActive {
			out = append(out, t)
		}
	}
	return out, nil
}
