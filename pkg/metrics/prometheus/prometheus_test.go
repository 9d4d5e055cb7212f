package prometheus

import (
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/marmos91/remotefs/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withRegistry(t *testing.T) {
	t.Helper()
	metrics.ResetRegistry()
	metrics.InitRegistry()
	t.Cleanup(metrics.ResetRegistry)
}

func TestConstructorsDisabled(t *testing.T) {
	metrics.ResetRegistry()

	assert.Nil(t, NewClientMetrics())
	assert.Nil(t, NewS3Metrics())
	assert.Nil(t, NewBadgerMetrics())

	// The package-level helpers accept nil collectors.
	metrics.ObserveOperation(nil, "open", time.Millisecond, nil)
	metrics.RecordBytes(nil, "read", 10)
}

func TestClientMetrics(t *testing.T) {
	withRegistry(t)

	m := NewClientMetrics()
	require.NotNil(t, m)
	cm := m.(*clientMetrics)

	m.ObserveOperation("open", 2*time.Millisecond, nil)
	m.ObserveOperation("open", time.Millisecond, &fakeCoded{})
	m.RecordBytes("read", 128)
	m.RecordBytes("read", 0)
	m.SetSessions(3)
	m.SetOpenHandles("file", 2)
	m.RecordSessionFailure("memory")

	assert.Equal(t, 1.0, testutil.ToFloat64(cm.operationsTotal.WithLabelValues("open", "None")))
	assert.Equal(t, 128.0, testutil.ToFloat64(cm.bytesTransferred.WithLabelValues("read")))
	assert.Equal(t, 3.0, testutil.ToFloat64(cm.sessions))
	assert.Equal(t, 2.0, testutil.ToFloat64(cm.openHandles.WithLabelValues("file")))
	assert.Equal(t, 1.0, testutil.ToFloat64(cm.sessionFailures.WithLabelValues("memory")))
	assert.Equal(t, 2, testutil.CollectAndCount(cm.operationsTotal))
}

func TestS3Metrics(t *testing.T) {
	withRegistry(t)

	m := NewS3Metrics()
	require.NotNil(t, m)
	sm := m.(*s3Metrics)

	m.ObserveOperation("PutObject", 10*time.Millisecond, nil)
	m.ObserveOperation("PutObject", 10*time.Millisecond, errors.New("boom"))
	m.RecordBytes("GetObject", 64)
	m.RecordBytes("PutObject", 32)

	assert.Equal(t, 1.0, testutil.ToFloat64(sm.operationsTotal.WithLabelValues("PutObject", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sm.operationsTotal.WithLabelValues("PutObject", "error")))
	assert.Equal(t, 64.0, testutil.ToFloat64(sm.bytesTransferred.WithLabelValues("GetObject", "read")))
	assert.Equal(t, 32.0, testutil.ToFloat64(sm.bytesTransferred.WithLabelValues("PutObject", "write")))
}

func TestBadgerMetrics(t *testing.T) {
	withRegistry(t)

	m := NewBadgerMetrics()
	require.NotNil(t, m)

	metrics.RecordBadgerCache(m, "block", 9, 1, 0.9)

	bm := m.(*badgerMetrics)
	assert.Equal(t, 0.9, testutil.ToFloat64(bm.cacheHitRatio.WithLabelValues("block")))
	assert.Equal(t, 9.0, testutil.ToFloat64(bm.cacheHits.WithLabelValues("block")))
	assert.Equal(t, 1.0, testutil.ToFloat64(bm.cacheMisses.WithLabelValues("block")))
}

// fakeCoded is an error whose code is derived from its errno.
type fakeCoded struct{}

func (*fakeCoded) Error() string { return "no such file" }
func (*fakeCoded) Unwrap() error { return syscall.ENOENT }
