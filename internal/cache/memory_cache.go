// Package cache implements the in-process TTL cache that backs the
// multi-tenant catalog lookups.
//
// Key Features:
//   - Per-key TTL with lazy expiration on read plus a background sweeper
//   - Wildcard pattern removal for tenant/entity-scoped invalidation
//   - Lock-free concurrent access (sync.Map, per-entry atomic timestamps)
//   - Structural statistics and a real hit/miss ratio
//   - Explicit Start/Stop lifecycle owned by the composition root
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultTTL is applied when a caller stores a value without naming one.
const DefaultTTL = time.Hour

// DefaultSweepInterval is how often the background sweeper removes expired
// entries when no interval is configured.
const DefaultSweepInterval = 5 * time.Minute

// Options configures a MemoryCache. The zero value is usable: defaults are
// filled in by NewMemoryCache.
type Options struct {
	// DefaultTTL is used by Set when the caller does not specify a TTL.
	DefaultTTL time.Duration

	// SweepInterval is the period of the background expiry sweep.
	SweepInterval time.Duration

	// Clock overrides the time source. Tests use this to cross TTL
	// boundaries without sleeping.
	Clock func() time.Time

	Logger *zap.Logger
}

// MemoryCache is a thread-safe key/value store with per-entry expiration and
// pattern-scoped bulk removal. All operations are safe under arbitrary
// concurrent callers; enumeration-based operations work over a snapshot of
// the key set and may miss keys inserted or removed mid-scan.
type MemoryCache struct {
	items sync.Map // string -> *entry

	defaultTTL    time.Duration
	sweepInterval time.Duration
	now           func() time.Time
	logger        *zap.Logger

	// Hit/miss counters feed the statistics hit ratio.
	hits   atomic.Int64
	misses atomic.Int64

	lifecycle sync.Mutex
	started   bool
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// Statistics is a point-in-time summary computed by scanning all entries.
// Ages are in minutes relative to the scan instant and cover only live
// entries. TotalItems is structural: it includes expired entries the sweeper
// has not collected yet.
type Statistics struct {
	TotalItems    int     `json:"totalItems"`
	ActiveItems   int     `json:"activeItems"`
	ExpiredItems  int     `json:"expiredItems"`
	OldestItemAge float64 `json:"oldestItemAgeMinutes"`
	NewestItemAge float64 `json:"newestItemAgeMinutes"`
	HitRatio      float64 `json:"hitRatio"`
}

// NewMemoryCache creates the cache. The background sweeper is not started
// here; call Start once the owner is ready to manage the lifecycle.
func NewMemoryCache(opts Options) *MemoryCache {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = DefaultTTL
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &MemoryCache{
		defaultTTL:    opts.DefaultTTL,
		sweepInterval: opts.SweepInterval,
		now:           opts.Clock,
		logger:        opts.Logger,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Get returns the value stored under key. A miss is a normal outcome, not an
// error: the second return is false when the key is absent or expired. An
// expired entry found here is removed as a side effect (lazy expiration).
func (c *MemoryCache) Get(key string) (any, bool) {
	v, ok := c.items.Load(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	e := v.(*entry)
	now := c.now()
	if e.expired(now) {
		// Only delete the exact entry we read, so a concurrent Set of a
		// fresh value under the same key is never lost.
		c.items.CompareAndDelete(key, v)
		c.misses.Add(1)
		return nil, false
	}

	e.touch(now)
	c.hits.Add(1)
	return e.value, true
}

// Set stores value under key with the default TTL.
func (c *MemoryCache) Set(key string, value any) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL stores value under key, replacing any existing entry. The write
// is observable immediately by concurrent Gets. A zero or negative ttl yields
// an entry that is already expired and will never be served.
func (c *MemoryCache) SetWithTTL(key string, value any, ttl time.Duration) {
	c.items.Store(key, newEntry(value, c.now(), ttl))
}

// Remove deletes the entry for key, reporting whether one existed. Idempotent.
func (c *MemoryCache) Remove(key string) bool {
	_, existed := c.items.LoadAndDelete(key)
	return existed
}

// Exists reports whether key holds a live entry. Expired entries are lazily
// removed, as in Get, but the access timestamp is not refreshed and the
// hit/miss counters are untouched.
func (c *MemoryCache) Exists(key string) bool {
	v, ok := c.items.Load(key)
	if !ok {
		return false
	}
	if v.(*entry).expired(c.now()) {
		c.items.CompareAndDelete(key, v)
		return false
	}
	return true
}

// Clear removes all entries unconditionally.
func (c *MemoryCache) Clear() {
	c.items.Range(func(key, _ any) bool {
		c.items.Delete(key)
		return true
	})
}

// RemoveByPattern removes every key matching the glob pattern and returns the
// number removed. Matching is anchored and case-insensitive; '*' matches any
// run of characters. Malformed patterns degrade to a substring check instead
// of failing, so invalidation never aborts.
func (c *MemoryCache) RemoveByPattern(pattern string) int {
	if pattern == "*" {
		removed := 0
		c.items.Range(func(key, v any) bool {
			if c.items.CompareAndDelete(key, v) {
				removed++
			}
			return true
		})
		return removed
	}

	match := newMatcher(pattern)
	removed := 0
	c.items.Range(func(key, v any) bool {
		if match(key.(string)) && c.items.CompareAndDelete(key, v) {
			removed++
		}
		return true
	})

	c.logger.Debug("removed cache entries by pattern",
		zap.String("pattern", pattern),
		zap.Int("count", removed),
	)
	return removed
}

// Keys returns the keys matching the glob pattern. "*" is a fast path meaning
// all keys. The result is a snapshot; concurrent mutations may or may not be
// reflected.
func (c *MemoryCache) Keys(pattern string) []string {
	keys := make([]string, 0)
	if pattern == "*" {
		c.items.Range(func(key, _ any) bool {
			keys = append(keys, key.(string))
			return true
		})
		return keys
	}

	match := newMatcher(pattern)
	c.items.Range(func(key, _ any) bool {
		if k := key.(string); match(k) {
			keys = append(keys, k)
		}
		return true
	})
	return keys
}

// Size returns the structural entry count, including expired entries the
// sweeper has not collected yet.
func (c *MemoryCache) Size() int {
	n := 0
	c.items.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Statistics scans all entries and summarizes them. The hit ratio is derived
// from the cache's own hit/miss counters; it is 0 before any traffic.
func (c *MemoryCache) Statistics() Statistics {
	now := c.now()

	var stats Statistics
	var oldest, newest time.Time

	c.items.Range(func(_, v any) bool {
		e := v.(*entry)
		stats.TotalItems++
		if e.expired(now) {
			stats.ExpiredItems++
			return true
		}
		stats.ActiveItems++
		if oldest.IsZero() || e.createdAt.Before(oldest) {
			oldest = e.createdAt
		}
		if newest.IsZero() || e.createdAt.After(newest) {
			newest = e.createdAt
		}
		return true
	})

	if !oldest.IsZero() {
		stats.OldestItemAge = now.Sub(oldest).Minutes()
		stats.NewestItemAge = now.Sub(newest).Minutes()
	}
	stats.HitRatio = c.hitRatio()
	return stats
}

func (c *MemoryCache) hitRatio() float64 {
	hits := c.hits.Load()
	total := hits + c.misses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// SweepExpired removes every currently expired entry and returns the number
// removed. Called by the background loop and by the performance monitor
// during emergency cleanup.
func (c *MemoryCache) SweepExpired() int {
	now := c.now()
	removed := 0
	c.items.Range(func(key, v any) bool {
		if v.(*entry).expired(now) && c.items.CompareAndDelete(key, v) {
			removed++
		}
		return true
	})
	return removed
}

// Start launches the background expiry sweeper. It runs until Stop is called
// or ctx is cancelled. A failure inside one sweep is logged and the loop
// carries on with the next scheduled tick.
func (c *MemoryCache) Start(ctx context.Context) {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	if c.started {
		return
	}
	c.started = true
	go c.sweepLoop(ctx)
}

// Stop terminates the sweeper and waits for it to exit. Safe to call more
// than once, and safe to call even if Start never ran.
func (c *MemoryCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
	c.lifecycle.Lock()
	started := c.started
	c.lifecycle.Unlock()
	if started {
		<-c.done
	}
}

func (c *MemoryCache) sweepLoop(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-ticker.C:
			c.runSweep()
		}
	}
}

// runSweep executes one sweep cycle. A panic inside the scan must not kill
// the loop: it is recovered and logged, and the next tick retries.
func (c *MemoryCache) runSweep() {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("cache sweep failed", zap.Any("panic", r))
		}
	}()

	if removed := c.SweepExpired(); removed > 0 {
		c.logger.Debug("swept expired cache entries", zap.Int("count", removed))
	}
}
