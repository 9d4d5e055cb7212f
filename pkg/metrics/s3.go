package metrics

import (
	"time"
)

// S3Metrics records S3 API calls made by the s3 native driver.
//
// A nil S3Metrics is valid; use the package helpers to call it.
type S3Metrics interface {
	// ObserveOperation records one S3 API call (e.g. "GetObject") and its
	// outcome.
	ObserveOperation(operation string, duration time.Duration, err error)

	// RecordBytes records bytes moved by operation.
	RecordBytes(operation string, bytes int64)
}

// NewS3Metrics creates a Prometheus-backed S3Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called). When nil
// is returned, the s3 driver records nothing.
//
//	metrics.InitRegistry()
//	drv, err := s3.NewDriver(ctx, s3.Config{Bucket: ..., Metrics: metrics.NewS3Metrics()})
func NewS3Metrics() S3Metrics {
	if !IsEnabled() || newPrometheusS3Metrics == nil {
		return nil
	}
	return newPrometheusS3Metrics()
}

// newPrometheusS3Metrics is implemented in pkg/metrics/prometheus/s3.go.
var newPrometheusS3Metrics func() S3Metrics

// RegisterS3MetricsConstructor registers the Prometheus S3 metrics constructor.
// Called by pkg/metrics/prometheus during package initialization.
func RegisterS3MetricsConstructor(constructor func() S3Metrics) {
	newPrometheusS3Metrics = constructor
}

// ObserveS3Operation records an S3 operation with its duration and outcome.
//
//	start := time.Now()
//	_, err := client.PutObject(ctx, input)
//	metrics.ObserveS3Operation(m, "PutObject", time.Since(start), err)
func ObserveS3Operation(m S3Metrics, operation string, duration time.Duration, err error) {
	if m != nil {
		m.ObserveOperation(operation, duration, err)
	}
}

// RecordS3Bytes records bytes transferred by an S3 operation.
func RecordS3Bytes(m S3Metrics, operation string, bytes int64) {
	if m != nil && bytes > 0 {
		m.RecordBytes(operation, bytes)
	}
}
