package logger

import (
	"context"
	"time"
)

type contextKey struct{}

var logContextKey = contextKey{}

// LogContext holds per-operation logging fields. Values are copied on
// every With* call so a LogContext stored in a context is never mutated.
type LogContext struct {
	TraceID   string
	SpanID    string
	Operation string // open, read, url_stat, ...
	URL       string // redacted URL, never carries the password
	Share     string
	SessionID string
	Handle    int64
	StartTime time.Time
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext starts a LogContext for operation.
func NewLogContext(operation string) *LogContext {
	return &LogContext{
		Operation: operation,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	c := *lc
	return &c
}

// WithURL returns a copy with the target set.
func (lc *LogContext) WithURL(url, share string) *LogContext {
	c := lc.Clone()
	if c != nil {
		c.URL = url
		c.Share = share
	}
	return c
}

// WithSession returns a copy with the session set.
func (lc *LogContext) WithSession(id string) *LogContext {
	c := lc.Clone()
	if c != nil {
		c.SessionID = id
	}
	return c
}

// WithHandle returns a copy with the handle set.
func (lc *LogContext) WithHandle(h int64) *LogContext {
	c := lc.Clone()
	if c != nil {
		c.Handle = h
	}
	return c
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	c := lc.Clone()
	if c != nil {
		c.TraceID = traceID
		c.SpanID = spanID
	}
	return c
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return Duration(lc.StartTime)
}

// withContextFields prepends the LogContext fields to args.
func withContextFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}

	out := make([]any, 0, 14+len(args))
	if lc.TraceID != "" {
		out = append(out, KeyTraceID, lc.TraceID)
	}
	if lc.SpanID != "" {
		out = append(out, KeySpanID, lc.SpanID)
	}
	if lc.Operation != "" {
		out = append(out, KeyOperation, lc.Operation)
	}
	if lc.URL != "" {
		out = append(out, KeyURL, lc.URL)
	}
	if lc.Share != "" {
		out = append(out, KeyShare, lc.Share)
	}
	if lc.SessionID != "" {
		out = append(out, KeySessionID, lc.SessionID)
	}
	if lc.Handle != 0 {
		out = append(out, KeyHandle, lc.Handle)
	}
	return append(out, args...)
}
