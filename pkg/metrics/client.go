package metrics

import (
	"time"
)

// ClientMetrics records dispatcher and registry activity.
//
// Implementations must be safe for concurrent use. A nil ClientMetrics is
// valid everywhere; use the package helpers to call it.
type ClientMetrics interface {
	// ObserveOperation records one dispatcher operation and its outcome.
	ObserveOperation(operation string, duration time.Duration, err error)

	// RecordBytes records payload bytes moved in direction "read" or "write".
	RecordBytes(direction string, bytes int64)

	// SetSessions reports the number of live sessions.
	SetSessions(n int)

	// SetOpenHandles reports the number of live handles of kind.
	SetOpenHandles(kind string, n int)

	// RecordSessionFailure counts a session that failed to initialize.
	RecordSessionFailure(driver string)
}

// NewClientMetrics creates the Prometheus-backed ClientMetrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called) or if the
// prometheus sub-package has not been linked in.
//
//	metrics.InitRegistry()
//	m := metrics.NewClientMetrics()
//	d := dispatcher.New(reg, dispatcher.Options{Metrics: m})
func NewClientMetrics() ClientMetrics {
	if !IsEnabled() || newPrometheusClientMetrics == nil {
		return nil
	}
	return newPrometheusClientMetrics()
}

// newPrometheusClientMetrics is set by pkg/metrics/prometheus to avoid an
// import cycle.
var newPrometheusClientMetrics func() ClientMetrics

// RegisterClientMetricsConstructor registers the Prometheus constructor.
// Called by pkg/metrics/prometheus during package initialization.
func RegisterClientMetricsConstructor(constructor func() ClientMetrics) {
	newPrometheusClientMetrics = constructor
}

// ObserveOperation is a nil-safe wrapper around ClientMetrics.ObserveOperation.
//
//	start := time.Now()
//	err := doOpen()
//	metrics.ObserveOperation(m, "open", time.Since(start), err)
func ObserveOperation(m ClientMetrics, operation string, duration time.Duration, err error) {
	if m != nil {
		m.ObserveOperation(operation, duration, err)
	}
}

// RecordBytes is a nil-safe wrapper around ClientMetrics.RecordBytes.
func RecordBytes(m ClientMetrics, direction string, bytes int64) {
	if m != nil && bytes > 0 {
		m.RecordBytes(direction, bytes)
	}
}

// SetSessions is a nil-safe wrapper around ClientMetrics.SetSessions.
func SetSessions(m ClientMetrics, n int) {
	if m != nil {
		m.SetSessions(n)
	}
}

// SetOpenHandles is a nil-safe wrapper around ClientMetrics.SetOpenHandles.
func SetOpenHandles(m ClientMetrics, kind string, n int) {
	if m != nil {
		m.SetOpenHandles(kind, n)
	}
}

// RecordSessionFailure is a nil-safe wrapper around
// ClientMetrics.RecordSessionFailure.
func RecordSessionFailure(m ClientMetrics, driver string) {
	if m != nil {
		m.RecordSessionFailure(driver)
	}
}
