package cache

import (
	"sync"
	"time"
)

// AccessMetric is the per-key usage record kept by the AccessTracker. It is
// bookkeeping independent of the cache engine's own state: callers record
// accesses explicitly, and the two structures are not updated atomically with
// respect to each other.
type AccessMetric struct {
	AccessCount int64
	HitCount    int64
	LastAccess  time.Time
}

// HitRatio is hits over accesses for this key, 0 when never accessed.
func (m AccessMetric) HitRatio() float64 {
	if m.AccessCount == 0 {
		return 0
	}
	return float64(m.HitCount) / float64(m.AccessCount)
}

// AccessTracker records per-key access and hit counts so the performance
// monitor can rank chunk keys by usage. Metrics never expire on their own;
// they are only dropped via Forget during eviction bookkeeping cleanup.
type AccessTracker struct {
	mu      sync.Mutex
	metrics map[string]*AccessMetric
	now     func() time.Time
}

// NewAccessTracker creates an empty tracker. clock may be nil.
func NewAccessTracker(clock func() time.Time) *AccessTracker {
	if clock == nil {
		clock = time.Now
	}
	return &AccessTracker{
		metrics: make(map[string]*AccessMetric),
		now:     clock,
	}
}

// RecordAccess notes one access to key, counting it as a hit when hit is true.
func (t *AccessTracker) RecordAccess(key string, hit bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	m, ok := t.metrics[key]
	if !ok {
		m = &AccessMetric{}
		t.metrics[key] = m
	}

	m.AccessCount++
	m.LastAccess = t.now()
	if hit {
		m.HitCount++
	}
}

// Snapshot returns a copy of the metric for key, if one exists.
func (t *AccessTracker) Snapshot(key string) (AccessMetric, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	m, ok := t.metrics[key]
	if !ok {
		return AccessMetric{}, false
	}
	return *m, true
}

// EvictionCandidates filters the candidate keys down to those recorded with
// an access count below threshold. This is deliberately a coarse frequency
// filter, not LRU: keys the tracker has never seen are not candidates, and
// recency plays no part in the ranking.
func (t *AccessTracker) EvictionCandidates(keys []string, threshold int64) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	candidates := make([]string, 0)
	for _, key := range keys {
		if m, ok := t.metrics[key]; ok && m.AccessCount < threshold {
			candidates = append(candidates, key)
		}
	}
	return candidates
}

// Forget drops the metric for key. Called when the monitor evicts the key so
// the tracker does not accumulate records for entries that no longer exist.
func (t *AccessTracker) Forget(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.metrics, key)
}

// Len returns the number of tracked keys.
func (t *AccessTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.metrics)
}
