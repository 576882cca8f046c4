package catalog

// CacheMetrics receives hit/miss observations per entity class. Implemented
// by the observability collector; a nil metrics sink falls back to the noop.
type CacheMetrics interface {
	Hit(entity string)
	Miss(entity string)
}

type noopCacheMetrics struct{}

func (noopCacheMetrics) Hit(string)  {}
func (noopCacheMetrics) Miss(string) {}
