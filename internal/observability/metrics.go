// Package observability holds the Prometheus metric set for the cache
// service. One Collector instance owns its own registry, so tests can build
// as many as they need without duplicate-registration panics.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application.
type Collector struct {
	registry *prometheus.Registry

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
	CacheItems  prometheus.GaugeFunc

	// Control-loop metrics
	ExpiredSwept   prometheus.Counter
	ChunkEvictions prometheus.Counter

	// Warmup metrics
	WarmupDuration prometheus.Histogram

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewCollector creates a collector with the given namespace. sizeFn feeds the
// cache item gauge; it is sampled at scrape time and may be nil.
func NewCollector(namespace string, sizeFn func() float64) *Collector {
	registry := prometheus.NewRegistry()

	if sizeFn == nil {
		sizeFn = func() float64 { return 0 }
	}

	c := &Collector{
		registry: registry,
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits, by entity class",
			},
			[]string{"entity"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses, by entity class",
			},
			[]string{"entity"},
		),
		CacheItems: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cache_items",
				Help:      "Structural cache entry count, including unswept expired entries",
			},
			sizeFn,
		),
		ExpiredSwept: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_expired_swept_total",
				Help:      "Total expired entries removed by sweeps",
			},
		),
		ChunkEvictions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_chunk_evictions_total",
				Help:      "Total low-usage chunk keys evicted under pressure",
			},
		),
		WarmupDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cache_warmup_duration_seconds",
				Help:      "Duration of product cache warmups",
				Buckets:   prometheus.DefBuckets,
			},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		c.CacheHits,
		c.CacheMisses,
		c.CacheItems,
		c.ExpiredSwept,
		c.ChunkEvictions,
		c.WarmupDuration,
		c.HTTPRequests,
		c.HTTPDuration,
	)
	return c
}

// Handler exposes the collector's registry for scraping.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Hit implements the catalog metrics sink.
func (c *Collector) Hit(entity string) {
	c.CacheHits.WithLabelValues(entity).Inc()
}

// Miss implements the catalog metrics sink.
func (c *Collector) Miss(entity string) {
	c.CacheMisses.WithLabelValues(entity).Inc()
}

// SweptExpired implements the monitor metrics sink.
func (c *Collector) SweptExpired(count int) {
	c.ExpiredSwept.Add(float64(count))
}

// EvictedChunks implements the monitor metrics sink.
func (c *Collector) EvictedChunks(count int) {
	c.ChunkEvictions.Add(float64(count))
}

// ObserveWarmup records one warmup duration.
func (c *Collector) ObserveWarmup(d time.Duration) {
	c.WarmupDuration.Observe(d.Seconds())
}

// ObserveHTTP records one handled request.
func (c *Collector) ObserveHTTP(method, route string, status int, d time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, statusText(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func statusText(status int) string {
	switch {
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
