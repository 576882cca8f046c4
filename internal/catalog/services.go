package catalog

import (
	"context"
	"time"

	"cafemenu-cache/internal/cache"
)

// PropertyService serves property-definition reads through the cache.
// Properties are the most stable entity class, hence the longest TTL.
type PropertyService struct {
	deps   serviceDeps
	source PropertySource
	ttl    time.Duration
}

func NewPropertyService(
	c *cache.MemoryCache,
	tracker *cache.AccessTracker,
	metrics CacheMetrics,
	source PropertySource,
	ttl time.Duration,
) *PropertyService {
	if ttl <= 0 {
		ttl = DefaultTTLs().Property
	}
	return &PropertyService{deps: newServiceDeps(c, tracker, metrics), source: source, ttl: ttl}
}

func (s *PropertyService) GetByID(ctx context.Context, id, tenantID int) (*Property, error) {
	key := keyPropertyByID(id, tenantID)
	if property, ok := getCached[*Property](s.deps.cache, key); ok {
		s.deps.observe(key, "property", true)
		return property, nil
	}
	s.deps.observe(key, "property", false)

	property, err := s.source.PropertyByID(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	s.deps.cache.SetWithTTL(key, property, s.ttl)
	return property, nil
}

func (s *PropertyService) GetAll(ctx context.Context, tenantID int) ([]Property, error) {
	key := keyAllProperties(tenantID)
	if properties, ok := getCached[[]Property](s.deps.cache, key); ok {
		s.deps.observe(key, "property", true)
		return properties, nil
	}
	s.deps.observe(key, "property", false)

	properties, err := s.source.Properties(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	s.deps.cache.SetWithTTL(key, properties, s.ttl)
	return properties, nil
}

func (s *PropertyService) Invalidate(tenantID int) {
	s.deps.cache.RemoveByPattern(patternProperties(tenantID))
}

// UserService serves user reads through the cache, including the
// by-username lookup the login path hits hardest.
type UserService struct {
	deps   serviceDeps
	source UserSource
	ttl    time.Duration
}

func NewUserService(
	c *cache.MemoryCache,
	tracker *cache.AccessTracker,
	metrics CacheMetrics,
	source UserSource,
	ttl time.Duration,
) *UserService {
	if ttl <= 0 {
		ttl = DefaultTTLs().User
	}
	return &UserService{deps: newServiceDeps(c, tracker, metrics), source: source, ttl: ttl}
}

func (s *UserService) GetByID(ctx context.Context, id, tenantID int) (*User, error) {
	key := keyUserByID(id, tenantID)
	if user, ok := getCached[*User](s.deps.cache, key); ok {
		s.deps.observe(key, "user", true)
		return user, nil
	}
	s.deps.observe(key, "user", false)

	user, err := s.source.UserByID(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	s.deps.cache.SetWithTTL(key, user, s.ttl)
	return user, nil
}

func (s *UserService) GetByUsername(ctx context.Context, username string, tenantID int) (*User, error) {
	key := keyUserByUsername(username, tenantID)
	if user, ok := getCached[*User](s.deps.cache, key); ok {
		s.deps.observe(key, "user", true)
		return user, nil
	}
	s.deps.observe(key, "user", false)

	user, err := s.source.UserByUsername(ctx, username, tenantID)
	if err != nil {
		return nil, err
	}
	s.deps.cache.SetWithTTL(key, user, s.ttl)
	return user, nil
}

func (s *UserService) GetAll(ctx context.Context, tenantID int) ([]User, error) {
	key := keyAllUsers(tenantID)
	if users, ok := getCached[[]User](s.deps.cache, key); ok {
		s.deps.observe(key, "user", true)
		return users, nil
	}
	s.deps.observe(key, "user", false)

	users, err := s.source.Users(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	s.deps.cache.SetWithTTL(key, users, s.ttl)
	return users, nil
}

func (s *UserService) Invalidate(tenantID int) {
	s.deps.cache.RemoveByPattern(patternUsers(tenantID))
}

// TenantService serves tenant reads through the cache. Tenant records are
// nearly immutable, so they carry the longest default TTL of all.
type TenantService struct {
	deps   serviceDeps
	source TenantSource
	ttl    time.Duration
}

func NewTenantService(
	c *cache.MemoryCache,
	tracker *cache.AccessTracker,
	metrics CacheMetrics,
	source TenantSource,
	ttl time.Duration,
) *TenantService {
	if ttl <= 0 {
		ttl = DefaultTTLs().Tenant
	}
	return &TenantService{deps: newServiceDeps(c, tracker, metrics), source: source, ttl: ttl}
}

func (s *TenantService) GetByID(ctx context.Context, id int) (*Tenant, error) {
	key := keyTenantByID(id)
	if tenant, ok := getCached[*Tenant](s.deps.cache, key); ok {
		s.deps.observe(key, "tenant", true)
		return tenant, nil
	}
	s.deps.observe(key, "tenant", false)

	tenant, err := s.source.TenantByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.deps.cache.SetWithTTL(key, tenant, s.ttl)
	return tenant, nil
}

func (s *TenantService) GetActive(ctx context.Context) ([]Tenant, error) {
	key := keyActiveTenants()
	if tenants, ok := getCached[[]Tenant](s.deps.cache, key); ok {
		s.deps.observe(key, "tenant", true)
		return tenants, nil
	}
	s.deps.observe(key, "tenant", false)

	tenants, err := s.source.ActiveTenants(ctx)
	if err != nil {
		return nil, err
	}
	s.deps.cache.SetWithTTL(key, tenants, s.ttl)
	return tenants, nil
}

// Invalidate drops the cached tenant record and the active-tenant list.
func (s *TenantService) Invalidate(tenantID int) {
	s.deps.cache.Remove(keyTenantByID(tenantID))
	s.deps.cache.Remove(keyActiveTenants())
}

// PurgeTenant removes every tenant-suffixed key in one sweep. Chunk keys do
// not carry the tenant suffix, so callers pair this with the product cache
// manager's Invalidate for a full per-tenant purge.
func (s *TenantService) PurgeTenant(tenantID int) int {
	return s.deps.cache.RemoveByPattern(patternTenant(tenantID))
}
