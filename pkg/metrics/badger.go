package metrics

// BadgerMetrics records cache statistics of the badger native driver.
//
// A nil BadgerMetrics is valid; use RecordBadgerCache to call it.
type BadgerMetrics interface {
	// RecordCache reports cumulative hits and misses and the current hit
	// ratio (0.0 to 1.0) of a badger cache ("block" or "index").
	RecordCache(cacheType string, hits, misses uint64, ratio float64)
}

// NewBadgerMetrics creates a Prometheus-backed BadgerMetrics instance.
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewBadgerMetrics() BadgerMetrics {
	if !IsEnabled() || newPrometheusBadgerMetrics == nil {
		return nil
	}
	return newPrometheusBadgerMetrics()
}

var newPrometheusBadgerMetrics func() BadgerMetrics

// RegisterBadgerMetricsConstructor registers the Prometheus constructor.
// Called by pkg/metrics/prometheus during package initialization.
func RegisterBadgerMetricsConstructor(constructor func() BadgerMetrics) {
	newPrometheusBadgerMetrics = constructor
}

// RecordBadgerCache is a nil-safe wrapper around BadgerMetrics.RecordCache.
func RecordBadgerCache(m BadgerMetrics, cacheType string, hits, misses uint64, ratio float64) {
	if m != nil {
		m.RecordCache(cacheType, hits, misses, ratio)
	}
}
