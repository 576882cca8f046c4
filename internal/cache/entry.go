package cache

import (
	"sync/atomic"
	"time"
)

// entry is a single cached value together with its bookkeeping timestamps.
// value, createdAt and expiresAt are immutable once the entry is stored; Set
// always installs a fresh entry (last writer wins). Only the last-access
// timestamp is refreshed in place, atomically, so concurrent readers never
// observe a partially written entry.
type entry struct {
	value     any
	createdAt time.Time
	expiresAt time.Time

	// lastAccessed holds unix nanoseconds of the most recent hit.
	lastAccessed atomic.Int64
}

func newEntry(value any, now time.Time, ttl time.Duration) *entry {
	e := &entry{
		value:     value,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
	e.lastAccessed.Store(now.UnixNano())
	return e
}

// expired reports whether the entry is past its expiry at the given instant.
// The boundary counts as expired: an entry whose expiresAt equals now is dead.
func (e *entry) expired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

func (e *entry) touch(now time.Time) {
	e.lastAccessed.Store(now.UnixNano())
}

func (e *entry) lastAccessedAt() time.Time {
	return time.Unix(0, e.lastAccessed.Load())
}
