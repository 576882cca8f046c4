// Package monitor runs the cache performance control loop: it periodically
// inspects cache statistics, decides whether configured thresholds are
// violated, and triggers remediation against the cache engine and the access
// tracker.
package monitor

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"cafemenu-cache/internal/cache"

	"go.uber.org/zap"
)

// Thresholds are the health limits evaluated every cycle. They are
// configuration, not constants, and can be swapped at runtime via
// UpdateThresholds (the config watcher uses this for hot reload).
type Thresholds struct {
	// MaxItems is the cache item ceiling; beyond it an emergency cleanup runs.
	MaxItems int

	// MinHitRatio is the efficiency floor; below it the optimize hook fires.
	MinHitRatio float64

	// MaxMemoryMB is the estimated memory ceiling used in reporting.
	MaxMemoryMB float64

	// ExpiredBacklog is the number of unswept expired entries that triggers
	// an extra sweep.
	ExpiredBacklog int

	// EvictionAccessThreshold marks chunk keys with fewer recorded accesses
	// as eviction-eligible. A coarse frequency filter, not LRU.
	EvictionAccessThreshold int64

	// EvictionBatch caps how many low-usage chunk keys one emergency cleanup
	// may remove (bounded blast radius per cycle).
	EvictionBatch int
}

// DefaultThresholds mirrors the configuration defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxItems:                100000,
		MinHitRatio:             0.7,
		MaxMemoryMB:             512,
		ExpiredBacklog:          1000,
		EvictionAccessThreshold: 5,
		EvictionBatch:           10,
	}
}

// OptimizeHook is the extension point invoked when the hit ratio falls below
// the configured floor.
//
// Precondition: stats is the statistics snapshot that violated the floor.
// Postcondition: the hook must return quickly and must not block the control
// loop; an error is logged and treated as a failed cycle (backoff applies).
// The default hook does nothing; it exists so a real heuristic (TTL tuning,
// chunk-size adjustment, warmup re-prioritization) can be plugged in without
// changing the loop's shape.
type OptimizeHook func(ctx context.Context, stats cache.Statistics) error

// Report is the on-demand performance summary. It is computed from current
// cache state and never stored.
type Report struct {
	TotalItems         int      `json:"totalItems"`
	ActiveItems        int      `json:"activeItems"`
	ExpiredItems       int      `json:"expiredItems"`
	OverallHitRatio    float64  `json:"overallHitRatio"`
	MemoryUsageMB      float64  `json:"memoryUsageMB"`
	RecommendedActions []string `json:"recommendedActions"`
}

// Options configures a Monitor.
type Options struct {
	// Interval between control-loop cycles.
	Interval time.Duration

	// ErrorBackoff is the extra wait after a failed cycle.
	ErrorBackoff time.Duration

	// ChunkKeyPattern selects the keys eligible for least-used eviction.
	ChunkKeyPattern string

	// AvgEntryKB is the per-entry size heuristic behind the memory estimate.
	AvgEntryKB float64

	Thresholds Thresholds
	Optimize   OptimizeHook
	Logger     *zap.Logger
}

// Metrics receives counts produced by the control loop. Implemented by the
// observability collector; nil-safe via the noop default.
type Metrics interface {
	SweptExpired(count int)
	EvictedChunks(count int)
}

type noopMetrics struct{}

func (noopMetrics) SweptExpired(int)  {}
func (noopMetrics) EvictedChunks(int) {}

// Monitor owns the always-running control loop. It is constructed idle;
// Start launches the loop and Stop joins it.
type Monitor struct {
	cache   *cache.MemoryCache
	tracker *cache.AccessTracker
	metrics Metrics
	logger  *zap.Logger

	interval     time.Duration
	errorBackoff time.Duration
	chunkPattern string
	avgEntryKB   float64
	optimize     OptimizeHook

	mu         sync.RWMutex
	thresholds Thresholds

	lifecycle sync.Mutex
	started   bool
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// New creates a Monitor over the given cache and tracker.
func New(c *cache.MemoryCache, tracker *cache.AccessTracker, metrics Metrics, opts Options) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.ErrorBackoff <= 0 {
		opts.ErrorBackoff = time.Minute
	}
	if opts.ChunkKeyPattern == "" {
		opts.ChunkKeyPattern = "product_chunk:*"
	}
	if opts.AvgEntryKB <= 0 {
		opts.AvgEntryKB = 1.0
	}
	if opts.Thresholds == (Thresholds{}) {
		opts.Thresholds = DefaultThresholds()
	}
	if opts.Optimize == nil {
		opts.Optimize = func(context.Context, cache.Statistics) error { return nil }
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &Monitor{
		cache:        c,
		tracker:      tracker,
		metrics:      metrics,
		logger:       opts.Logger,
		interval:     opts.Interval,
		errorBackoff: opts.ErrorBackoff,
		chunkPattern: opts.ChunkKeyPattern,
		avgEntryKB:   opts.AvgEntryKB,
		optimize:     opts.Optimize,
		thresholds:   opts.Thresholds,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// UpdateThresholds swaps the health limits used by subsequent cycles.
func (m *Monitor) UpdateThresholds(t Thresholds) {
	m.mu.Lock()
	m.thresholds = t
	m.mu.Unlock()
	m.logger.Info("cache monitor thresholds updated",
		zap.Int("max_items", t.MaxItems),
		zap.Float64("min_hit_ratio", t.MinHitRatio),
		zap.Float64("max_memory_mb", t.MaxMemoryMB),
	)
}

func (m *Monitor) currentThresholds() Thresholds {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.thresholds
}

// Start launches the control loop.
func (m *Monitor) Start(ctx context.Context) {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	if m.started {
		return
	}
	m.started = true
	go m.run(ctx)
}

// Stop terminates the loop and waits for it to exit. Idempotent.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
	m.lifecycle.Lock()
	started := m.started
	m.lifecycle.Unlock()
	if started {
		<-m.done
	}
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	timer := time.NewTimer(m.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		case <-timer.C:
		}

		wait := m.interval
		if err := m.runCycle(ctx); err != nil {
			// A single failed cycle must never stop future ones: back off
			// and retry on the next tick.
			m.logger.Error("cache monitor cycle failed", zap.Error(err))
			wait = m.errorBackoff
		}
		timer.Reset(wait)
	}
}

// runCycle performs one evaluation pass. Panics are converted to errors so a
// misbehaving hook cannot kill the loop.
func (m *Monitor) runCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("monitor cycle panic: %v", r)
		}
	}()

	t := m.currentThresholds()
	stats := m.cache.Statistics()

	// Item ceiling check, plus a process-memory check standing in for the
	// original host memory probe.
	if stats.TotalItems > t.MaxItems || heapAllocMB() > t.MaxMemoryMB {
		m.emergencyCleanup(t)
		stats = m.cache.Statistics()
	}

	// Efficiency check: a low hit ratio hands control to the strategy hook.
	if stats.HitRatio > 0 && stats.HitRatio < t.MinHitRatio {
		if hookErr := m.optimize(ctx, stats); hookErr != nil {
			return fmt.Errorf("optimize hook: %w", hookErr)
		}
	}

	// Expired backlog check. Lazy plus background expiry normally keeps this
	// low; the explicit sweep surfaces heavy backlogs sooner.
	if stats.ExpiredItems > t.ExpiredBacklog {
		if removed := m.cache.SweepExpired(); removed > 0 {
			m.metrics.SweptExpired(removed)
			m.logger.Info("monitor swept expired backlog", zap.Int("count", removed))
		}
	}

	return nil
}

func heapAllocMB() float64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return float64(ms.HeapAlloc) / (1024 * 1024)
}

// emergencyCleanup sweeps expired entries, then removes a bounded batch of
// low-usage chunk keys. Never evicts more than the configured batch in one
// invocation, no matter how many keys qualify.
func (m *Monitor) emergencyCleanup(t Thresholds) {
	if removed := m.cache.SweepExpired(); removed > 0 {
		m.metrics.SweptExpired(removed)
	}

	chunkKeys := m.cache.Keys(m.chunkPattern)
	candidates := m.tracker.EvictionCandidates(chunkKeys, t.EvictionAccessThreshold)

	evicted := 0
	for _, key := range candidates {
		if evicted >= t.EvictionBatch {
			break
		}
		if m.cache.Remove(key) {
			evicted++
		}
		m.tracker.Forget(key)
	}

	if evicted > 0 {
		m.metrics.EvictedChunks(evicted)
	}
	m.logger.Warn("emergency cache cleanup",
		zap.Int("candidates", len(candidates)),
		zap.Int("evicted", evicted),
	)
}

// EmergencyCleanup runs the remediation path outside the loop schedule. The
// admin surface and tests use this.
func (m *Monitor) EmergencyCleanup() {
	m.emergencyCleanup(m.currentThresholds())
}

// BuildReport assembles the performance report from current cache state.
func (m *Monitor) BuildReport() Report {
	t := m.currentThresholds()
	stats := m.cache.Statistics()
	memoryMB := float64(m.cache.Size()) * m.avgEntryKB / 1024

	report := Report{
		TotalItems:      stats.TotalItems,
		ActiveItems:     stats.ActiveItems,
		ExpiredItems:    stats.ExpiredItems,
		OverallHitRatio: stats.HitRatio,
		MemoryUsageMB:   memoryMB,
	}

	if stats.TotalItems > t.MaxItems {
		report.RecommendedActions = append(report.RecommendedActions,
			"Cache item count exceeds the configured ceiling; cleanup recommended.")
	}
	if stats.HitRatio > 0 && stats.HitRatio < t.MinHitRatio {
		report.RecommendedActions = append(report.RecommendedActions,
			"Cache hit ratio is below the configured floor; strategy optimization needed.")
	}
	if memoryMB > t.MaxMemoryMB {
		report.RecommendedActions = append(report.RecommendedActions,
			"Estimated memory usage is high; consider reducing chunk size.")
	}
	if len(report.RecommendedActions) == 0 {
		report.RecommendedActions = append(report.RecommendedActions,
			"Cache performance is optimal.")
	}
	return report
}
