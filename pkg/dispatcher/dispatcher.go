// Package dispatcher implements the remote file operation set.
//
// Every operation parses its URL, resolves the session for the URL's
// credentials through the registry, runs the native call on the canonical
// remote path and, for open and opendir, stores the resulting native
// resource in a handle table. Handle operations re-resolve the session
// through the stored entry, never through a URL.
//
// Errors are returned per call as *fserrors.Error; there is no shared
// last-error state.
package dispatcher

import (
	"context"
	"io/fs"
	"time"

	"github.com/marmos91/remotefs/internal/logger"
	"github.com/marmos91/remotefs/internal/telemetry"
	fserrors "github.com/marmos91/remotefs/pkg/errors"
	"github.com/marmos91/remotefs/pkg/handle"
	"github.com/marmos91/remotefs/pkg/metrics"
	"github.com/marmos91/remotefs/pkg/native"
	"github.com/marmos91/remotefs/pkg/session"
	"github.com/marmos91/remotefs/pkg/smburl"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultScheme is the only URL scheme accepted unless Options says
	// otherwise.
	DefaultScheme = "smb"

	// DefaultFileMode is the permission requested when open creates a file.
	DefaultFileMode fs.FileMode = 0o666
)

// Options configure a Dispatcher.
type Options struct {
	// Scheme is the accepted URL scheme. Default "smb".
	Scheme string

	// MaxHandles bounds the number of open files and directories.
	// Default handle.DefaultCapacity.
	MaxHandles int

	// FileMode is the permission used when open creates a file.
	// Default 0666.
	FileMode fs.FileMode

	// Metrics is optional.
	Metrics metrics.ClientMetrics
}

// resource is the value stored behind a handle. It owns one session
// reference, released when the handle is closed.
type resource struct {
	session *session.Session
	target  string // redacted URL, for logs
	file    native.File
	dir     native.Dir
}

// Dispatcher runs remote file operations. It is safe for concurrent use;
// operations on the same handle are not serialized against each other.
type Dispatcher struct {
	registry *session.Registry
	handles  *handle.Table[*resource]
	scheme   string
	fileMode fs.FileMode
	metrics  metrics.ClientMetrics
}

// New creates a dispatcher over registry.
func New(registry *session.Registry, opts Options) *Dispatcher {
	scheme := opts.Scheme
	if scheme == "" {
		scheme = DefaultScheme
	}
	fileMode := opts.FileMode
	if fileMode == 0 {
		fileMode = DefaultFileMode
	}

	return &Dispatcher{
		registry: registry,
		handles:  handle.New[*resource](opts.MaxHandles),
		scheme:   scheme,
		fileMode: fileMode,
		metrics:  opts.Metrics,
	}
}

// Registry returns the session registry.
func (d *Dispatcher) Registry() *session.Registry {
	return d.registry
}

// Scheme returns the accepted URL scheme.
func (d *Dispatcher) Scheme() string {
	return d.scheme
}

// OpenHandles returns the number of live file and directory handles.
func (d *Dispatcher) OpenHandles() int {
	return d.handles.Len()
}

// scope carries the tracing and logging state of one operation.
type scope struct {
	d     *Dispatcher
	op    string
	ctx   context.Context
	span  trace.Span
	start time.Time
}

func (d *Dispatcher) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) *scope {
	ctx, span := telemetry.StartOperation(ctx, op, attrs...)
	lc := logger.NewLogContext(op).WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx))
	return &scope{
		d:     d,
		op:    op,
		ctx:   logger.WithContext(ctx, lc),
		span:  span,
		start: lc.StartTime,
	}
}

// target records the URL being operated on. The password never reaches logs.
func (sc *scope) target(c smburl.Components) {
	sc.ctx = logger.WithContext(sc.ctx, logger.FromContext(sc.ctx).WithURL(c.String(), c.Share()))
	sc.span.SetAttributes(telemetry.Host(c.Host), telemetry.Share(c.Share()), telemetry.Path(c.Path))
}

func (sc *scope) session(s *session.Session) {
	sc.ctx = logger.WithContext(sc.ctx, logger.FromContext(sc.ctx).WithSession(s.ID()))
	sc.span.SetAttributes(telemetry.SessionID(s.ID()))
}

func (sc *scope) handle(id handle.ID) {
	sc.ctx = logger.WithContext(sc.ctx, logger.FromContext(sc.ctx).WithHandle(int64(id)))
	sc.span.SetAttributes(telemetry.Handle(int64(id)))
}

// end finishes the operation. It must be deferred with a pointer to the
// operation's error result.
func (sc *scope) end(errp *error) {
	err := *errp
	if err != nil {
		telemetry.RecordError(sc.ctx, err)
		sc.span.SetAttributes(telemetry.ErrorCode(fserrors.CodeOf(err).String()))
		logger.DebugCtx(sc.ctx, "Operation failed", logger.Err(err),
			logger.KeyErrorCode, fserrors.CodeOf(err).String())
	} else {
		logger.DebugCtx(sc.ctx, "Operation complete", logger.DurationMs(logger.Duration(sc.start)))
	}
	sc.span.End()
	metrics.ObserveOperation(sc.d.metrics, sc.op, time.Since(sc.start), err)
}

// resolve parses rawURL and returns the session for its credentials. The
// caller owns one session reference on success.
func (d *Dispatcher) resolve(sc *scope, rawURL string) (smburl.Components, *session.Session, error) {
	c := smburl.Parse(rawURL)
	sc.target(c)

	if c.Protocol != d.scheme {
		return c, nil, fserrors.NewInvalidArgumentError(sc.op, c.String(),
			"unsupported scheme %q, want %q", c.Protocol, d.scheme)
	}
	if c.Host == "" {
		return c, nil, fserrors.NewInvalidArgumentError(sc.op, c.String(), "missing host")
	}

	s, err := d.registry.GetOrCreate(sc.ctx, session.KeyFromURL(c))
	if err != nil {
		return c, nil, err
	}
	sc.session(s)
	return c, s, nil
}

// release drops a session reference taken by resolve or held by a handle.
func (d *Dispatcher) release(sc *scope, s *session.Session) {
	if err := s.Release(); err != nil {
		logger.WarnCtx(sc.ctx, "Failed to release session", logger.Err(err))
	}
}

// lookup returns the live entry for id, checking its kind.
func (d *Dispatcher) lookup(sc *scope, id handle.ID, kind handle.Kind) (*resource, error) {
	sc.handle(id)
	e, err := d.handles.LookupKind(id, kind)
	if err != nil {
		return nil, err
	}
	sc.ctx = logger.WithContext(sc.ctx, logger.FromContext(sc.ctx).
		WithURL(e.Value.target, "").WithSession(e.Value.session.ID()))
	return e.Value, nil
}

// allocate stores r under a new handle. On failure the caller still owns r.
func (d *Dispatcher) allocate(sc *scope, kind handle.Kind, r *resource) (handle.ID, error) {
	id, err := d.handles.Allocate(kind, r)
	if err != nil {
		return 0, err
	}
	sc.handle(id)
	d.reportHandles()
	return id, nil
}

// free removes id from the table. Of two concurrent closes only one wins.
func (d *Dispatcher) free(id handle.ID) (*resource, error) {
	e, err := d.handles.Free(id)
	if err != nil {
		return nil, err
	}
	d.reportHandles()
	return e.Value, nil
}

func (d *Dispatcher) reportHandles() {
	if d.metrics == nil {
		return
	}
	var files, dirs int
	d.handles.Range(func(e handle.Entry[*resource]) bool {
		if e.Kind == handle.KindFile {
			files++
		} else {
			dirs++
		}
		return true
	})
	metrics.SetOpenHandles(d.metrics, handle.KindFile.String(), files)
	metrics.SetOpenHandles(d.metrics, handle.KindDirectory.String(), dirs)
}

// nativeErr converts a driver error for the operation in sc.
func (sc *scope) nativeErr(path string, err error) error {
	return fserrors.FromNative(sc.op, path, err)
}
