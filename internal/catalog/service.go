package catalog

import (
	"time"

	"cafemenu-cache/internal/cache"
)

// TTLs are the per-entity-class cache durations. The defaults mirror how
// volatile each entity is in practice: tenants barely change, users churn
// the most.
type TTLs struct {
	Product  time.Duration
	Category time.Duration
	User     time.Duration
	Property time.Duration
	Tenant   time.Duration
}

// DefaultTTLs returns the standard per-entity durations.
func DefaultTTLs() TTLs {
	return TTLs{
		Product:  60 * time.Minute,
		Category: 120 * time.Minute,
		User:     30 * time.Minute,
		Property: 240 * time.Minute,
		Tenant:   1440 * time.Minute,
	}
}

// serviceDeps bundles what every read-through service needs: the cache
// engine, the access tracker it feeds, and the metrics sink. Updating the
// tracker and the cache are two separate, non-atomic operations.
type serviceDeps struct {
	cache   *cache.MemoryCache
	tracker *cache.AccessTracker
	metrics CacheMetrics
}

func newServiceDeps(c *cache.MemoryCache, tracker *cache.AccessTracker, metrics CacheMetrics) serviceDeps {
	if metrics == nil {
		metrics = noopCacheMetrics{}
	}
	return serviceDeps{cache: c, tracker: tracker, metrics: metrics}
}

// observe records one cache access for both the tracker and the metrics sink.
func (d serviceDeps) observe(key, entity string, hit bool) {
	if d.tracker != nil {
		d.tracker.RecordAccess(key, hit)
	}
	if hit {
		d.metrics.Hit(entity)
	} else {
		d.metrics.Miss(entity)
	}
}

// getCached fetches key and type-asserts the value. A value of the wrong
// type counts as a miss; the next Set overwrites it.
func getCached[T any](c *cache.MemoryCache, key string) (T, bool) {
	var zero T
	raw, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	v, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return v, true
}
