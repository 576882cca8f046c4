package monitor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafemenu-cache/internal/cache"
)

type recordingMetrics struct {
	swept   int
	evicted int
}

func (m *recordingMetrics) SweptExpired(count int)  { m.swept += count }
func (m *recordingMetrics) EvictedChunks(count int) { m.evicted += count }

func newTestSetup() (*cache.MemoryCache, *cache.AccessTracker) {
	c := cache.NewMemoryCache(cache.Options{})
	return c, cache.NewAccessTracker(nil)
}

func TestEmergencyCleanupBoundedEviction(t *testing.T) {
	c, tracker := newTestSetup()
	metrics := &recordingMetrics{}

	// 100 cold chunk keys, all eviction-eligible.
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("product_chunk:7:category:1:chunk:%d", i)
		c.Set(key, i)
		tracker.RecordAccess(key, true)
	}

	thresholds := DefaultThresholds()
	thresholds.EvictionBatch = 10
	m := New(c, tracker, metrics, Options{Thresholds: thresholds})

	m.EmergencyCleanup()

	assert.Equal(t, 10, metrics.evicted, "eviction is capped per invocation")
	assert.Equal(t, 90, c.Size())

	// A second invocation removes the next batch.
	m.EmergencyCleanup()
	assert.Equal(t, 20, metrics.evicted)
	assert.Equal(t, 80, c.Size())
}

func TestEmergencyCleanupSkipsHotChunks(t *testing.T) {
	c, tracker := newTestSetup()

	c.Set("product_chunk:7:category:1:chunk:0", "hot")
	for i := 0; i < 20; i++ {
		tracker.RecordAccess("product_chunk:7:category:1:chunk:0", true)
	}
	c.Set("product_chunk:7:category:1:chunk:1", "cold")
	tracker.RecordAccess("product_chunk:7:category:1:chunk:1", false)

	m := New(c, tracker, nil, Options{})
	m.EmergencyCleanup()

	assert.True(t, c.Exists("product_chunk:7:category:1:chunk:0"))
	assert.False(t, c.Exists("product_chunk:7:category:1:chunk:1"))
}

func TestEmergencyCleanupIgnoresNonChunkKeys(t *testing.T) {
	c, tracker := newTestSetup()

	c.Set("product:1:7", "entity")
	tracker.RecordAccess("product:1:7", false)

	m := New(c, tracker, nil, Options{})
	m.EmergencyCleanup()

	assert.True(t, c.Exists("product:1:7"), "entity keys are never evicted by usage")
}

func TestUpdateThresholdsHotReload(t *testing.T) {
	c, tracker := newTestSetup()
	m := New(c, tracker, nil, Options{})

	updated := DefaultThresholds()
	updated.MaxItems = 42
	m.UpdateThresholds(updated)

	assert.Equal(t, 42, m.currentThresholds().MaxItems)
}

func TestBuildReportOptimal(t *testing.T) {
	c, tracker := newTestSetup()

	c.Set("key", "value")
	c.Get("key") // 100% hit ratio

	m := New(c, tracker, nil, Options{})
	report := m.BuildReport()

	assert.Equal(t, 1, report.TotalItems)
	assert.Equal(t, []string{"Cache performance is optimal."}, report.RecommendedActions)
}

func TestBuildReportFlagsViolations(t *testing.T) {
	c, tracker := newTestSetup()

	// Traffic with a poor hit ratio and more items than allowed.
	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("key:%d", i), i)
	}
	c.Get("key:0")
	c.Get("missing-1")
	c.Get("missing-2")

	thresholds := DefaultThresholds()
	thresholds.MaxItems = 3
	thresholds.MinHitRatio = 0.9
	m := New(c, tracker, nil, Options{Thresholds: thresholds})

	report := m.BuildReport()
	require.Len(t, report.RecommendedActions, 2)
	assert.Contains(t, report.RecommendedActions[0], "item count")
	assert.Contains(t, report.RecommendedActions[1], "hit ratio")
}

func TestRunCycleSweepsExpiredBacklog(t *testing.T) {
	current := time.Now()
	c := cache.NewMemoryCache(cache.Options{Clock: func() time.Time { return current }})
	tracker := cache.NewAccessTracker(nil)
	metrics := &recordingMetrics{}

	for i := 0; i < 20; i++ {
		c.SetWithTTL(fmt.Sprintf("key:%d", i), i, time.Minute)
	}
	current = current.Add(2 * time.Minute)

	thresholds := DefaultThresholds()
	thresholds.ExpiredBacklog = 10
	m := New(c, tracker, metrics, Options{Thresholds: thresholds})

	require.NoError(t, m.runCycle(context.Background()))
	assert.Equal(t, 20, metrics.swept)
	assert.Equal(t, 0, c.Size())
}

func TestRunCycleInvokesOptimizeHook(t *testing.T) {
	c, tracker := newTestSetup()

	c.Set("key", "value")
	c.Get("key")
	c.Get("miss-1")
	c.Get("miss-2") // hit ratio 1/3

	var hookStats cache.Statistics
	hook := func(ctx context.Context, stats cache.Statistics) error {
		hookStats = stats
		return nil
	}
	m := New(c, tracker, nil, Options{Optimize: hook})

	require.NoError(t, m.runCycle(context.Background()))
	assert.InDelta(t, 1.0/3.0, hookStats.HitRatio, 0.001)
}

func TestRunCycleRecoversFromHookPanic(t *testing.T) {
	c, tracker := newTestSetup()

	c.Set("key", "value")
	c.Get("key")
	c.Get("miss") // hit ratio 0.5, below the floor

	hook := func(ctx context.Context, stats cache.Statistics) error {
		panic("misbehaving hook")
	}
	m := New(c, tracker, nil, Options{Optimize: hook})

	err := m.runCycle(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
}

func TestMonitorStartStop(t *testing.T) {
	c, tracker := newTestSetup()
	m := New(c, tracker, nil, Options{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	m.Stop()
	m.Stop() // idempotent
}

func TestStopWithoutStart(t *testing.T) {
	c, tracker := newTestSetup()
	m := New(c, tracker, nil, Options{})
	m.Stop()
}
