// Package badger implements a native driver persisted in an embedded
// BadgerDB key-value store.
//
// Every host/share pair owns a tree of inodes identified by UUID. Directory
// entries, inode attributes and file contents live under separate key
// prefixes (see encoding.go), so a rename only rewrites two entry keys.
//
// Open loads the file contents into memory; writes are buffered and
// committed in a single transaction when the file is closed.
package badger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/marmos91/remotefs/internal/logger"
	"github.com/marmos91/remotefs/internal/telemetry"
	"github.com/marmos91/remotefs/pkg/metrics"
	"github.com/marmos91/remotefs/pkg/native"
)

// DriverName is reported by Driver.Name.
const DriverName = "badger"

// DefaultMetricsInterval is how often cache statistics are exported.
const DefaultMetricsInterval = 30 * time.Second

// Config configures a Driver.
type Config struct {
	// Dir is the database directory. Ignored when InMemory is set.
	Dir string `mapstructure:"dir" yaml:"dir" validate:"required_without=InMemory"`

	// InMemory keeps the database in memory only.
	InMemory bool `mapstructure:"in_memory" yaml:"in_memory"`

	// AutoCreate makes unknown servers and shares spring into existence on
	// first use. When false, only shares listed in Shares or added with
	// AddShare are reachable.
	AutoCreate bool `mapstructure:"auto_create" yaml:"auto_create"`

	// Shares are "host/share" pairs created when the driver opens.
	Shares []string `mapstructure:"shares" yaml:"shares"`

	// SyncWrites fsyncs every commit.
	SyncWrites bool `mapstructure:"sync_writes" yaml:"sync_writes"`

	// MetricsInterval is the cache statistics export period.
	MetricsInterval time.Duration `mapstructure:"metrics_interval" yaml:"metrics_interval"`

	// Metrics is an optional metrics collector.
	Metrics metrics.BadgerMetrics `mapstructure:"-" yaml:"-"`
}

// Driver is a native.Driver backed by BadgerDB.
type Driver struct {
	cfg Config
	db  *badgerdb.DB

	contexts  atomic.Int64
	openFiles atomic.Int64

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

var _ native.Driver = (*Driver)(nil)

// NewDriver opens the database and creates the configured shares. The
// caller must Close the driver.
func NewDriver(cfg Config) (*Driver, error) {
	if !cfg.InMemory && cfg.Dir == "" {
		return nil, fmt.Errorf("badger: database directory is required")
	}
	if cfg.MetricsInterval == 0 {
		cfg.MetricsInterval = DefaultMetricsInterval
	}

	opts := badgerdb.DefaultOptions(cfg.Dir).
		WithLogger(badgerLogger{}).
		WithSyncWrites(cfg.SyncWrites)
	if cfg.InMemory {
		opts = badgerdb.DefaultOptions("").WithInMemory(true).WithLogger(badgerLogger{})
	}

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: failed to open database: %w", err)
	}

	d := &Driver{
		cfg:  cfg,
		db:   db,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	for _, hs := range cfg.Shares {
		host, share, ok := strings.Cut(hs, "/")
		if !ok || host == "" || share == "" {
			_ = db.Close()
			return nil, fmt.Errorf("badger: invalid share %q, want host/share", hs)
		}
		if err := d.AddShare(host, share); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	if cfg.Metrics != nil && cfg.MetricsInterval > 0 {
		go d.reportCacheMetrics(cfg.MetricsInterval)
	} else {
		close(d.done)
	}

	logger.Debug("Badger driver opened",
		logger.KeyDriver, DriverName,
		logger.KeyPath, cfg.Dir,
		"in_memory", cfg.InMemory)
	return d, nil
}

// Name implements native.Driver.
func (d *Driver) Name() string {
	return DriverName
}

// NewContext implements native.Driver.
func (d *Driver) NewContext(opts native.ContextOptions) (native.Context, error) {
	if opts.Server == "" || strings.ContainsAny(opts.Server, "/\x00") {
		return nil, fmt.Errorf("badger: invalid server name %q: %w", opts.Server, syscall.EINVAL)
	}
	d.contexts.Add(1)
	return &Context{driver: d, opts: opts}, nil
}

// AddShare creates an empty share on host unless it already exists.
func (d *Driver) AddShare(host, share string) error {
	return d.db.Update(func(txn *badgerdb.Txn) error {
		_, err := d.shareRoot(txn, strings.ToLower(host), share, true)
		return err
	})
}

// LiveContexts returns the number of contexts that have not been freed.
func (d *Driver) LiveContexts() int {
	return int(d.contexts.Load())
}

// OpenFiles returns the number of files that have not been closed.
func (d *Driver) OpenFiles() int {
	return int(d.openFiles.Load())
}

// Close stops the metrics loop and closes the database. It is safe to call
// more than once.
func (d *Driver) Close() error {
	d.closeOnce.Do(func() {
		close(d.stop)
		<-d.done
		d.closeErr = d.db.Close()
	})
	return d.closeErr
}

func (d *Driver) reportCacheMetrics(interval time.Duration) {
	defer close(d.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			d.recordCacheMetrics()
		}
	}
}

func (d *Driver) recordCacheMetrics() {
	if m := d.db.BlockCacheMetrics(); m != nil {
		metrics.RecordBadgerCache(d.cfg.Metrics, "block", m.Hits(), m.Misses(), m.Ratio())
	}
	if m := d.db.IndexCacheMetrics(); m != nil {
		metrics.RecordBadgerCache(d.cfg.Metrics, "index", m.Hits(), m.Misses(), m.Ratio())
	}
}

// view runs fn in a read-only transaction under a span.
func (d *Driver) view(ctx context.Context, op string, fn func(txn *badgerdb.Txn) error) error {
	_, span := telemetry.StartSpan(ctx, telemetry.BadgerSpanName(op))
	defer span.End()
	return d.db.View(fn)
}

// update runs fn in a read-write transaction under a span.
func (d *Driver) update(ctx context.Context, op string, fn func(txn *badgerdb.Txn) error) error {
	_, span := telemetry.StartSpan(ctx, telemetry.BadgerSpanName(op))
	defer span.End()
	return d.db.Update(fn)
}

// badgerLogger routes badger's internal logging to the remotefs logger.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...any) {
	logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)), logger.KeyDriver, DriverName)
}

func (badgerLogger) Warningf(format string, args ...any) {
	logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)), logger.KeyDriver, DriverName)
}

// Infof is demoted to debug; badger reports every compaction at info.
func (badgerLogger) Infof(format string, args ...any) {
	logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)), logger.KeyDriver, DriverName)
}

func (badgerLogger) Debugf(format string, args ...any) {
	logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)), logger.KeyDriver, DriverName)
}
