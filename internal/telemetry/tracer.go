package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys. Generic filesystem keys use the "fs." prefix.
const (
	AttrOperation  = "fs.operation"
	AttrProtocol   = "fs.protocol"
	AttrHost       = "fs.host"
	AttrShare      = "fs.share"
	AttrPath       = "fs.path"
	AttrHandle     = "fs.handle"
	AttrMode       = "fs.mode"
	AttrOffset     = "fs.offset"
	AttrCount      = "fs.count"
	AttrSize       = "fs.size"
	AttrEOF        = "fs.eof"
	AttrBytesRead  = "fs.bytes_read"
	AttrBytesWrite = "fs.bytes_written"
	AttrErrorCode  = "fs.error_code"

	AttrSessionID = "session.id"
	AttrDriver    = "session.driver"

	AttrBucket = "storage.bucket"
	AttrKey    = "storage.key"
)

// Span names. Format: <component>.<operation>
const (
	SpanSessionCreate = "session.create"
)

// S3SpanName returns the span name for an S3 API call, e.g. "s3.GetObject".
func S3SpanName(op string) string {
	return "s3." + op
}

// BadgerSpanName returns the span name for a badger transaction.
func BadgerSpanName(op string) string {
	return "badger." + op
}

// OperationSpanName returns the span name for a dispatcher operation.
func OperationSpanName(op string) string {
	return "remotefs." + op
}

// StartOperation starts the span for a dispatcher operation.
func StartOperation(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := make([]attribute.KeyValue, 0, len(attrs)+1)
	all = append(all, attribute.String(AttrOperation, op))
	all = append(all, attrs...)
	return StartSpan(ctx, OperationSpanName(op),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(all...),
	)
}

// Host returns an attribute for the server name.
func Host(h string) attribute.KeyValue {
	return attribute.String(AttrHost, h)
}

// Share returns an attribute for the share name.
func Share(s string) attribute.KeyValue {
	return attribute.String(AttrShare, s)
}

// Path returns an attribute for a canonical remote path.
func Path(p string) attribute.KeyValue {
	return attribute.String(AttrPath, p)
}

// Handle returns an attribute for a handle ID.
func Handle(id int64) attribute.KeyValue {
	return attribute.Int64(AttrHandle, id)
}

// Mode returns an attribute for permission bits rendered in octal.
func Mode(m uint32) attribute.KeyValue {
	return attribute.String(AttrMode, fmt.Sprintf("%#o", m))
}

// Count returns an attribute for a requested byte count.
func Count(n int) attribute.KeyValue {
	return attribute.Int(AttrCount, n)
}

// Offset returns an attribute for a file offset.
func Offset(off int64) attribute.KeyValue {
	return attribute.Int64(AttrOffset, off)
}

// BytesRead returns an attribute for bytes actually read.
func BytesRead(n int) attribute.KeyValue {
	return attribute.Int(AttrBytesRead, n)
}

// BytesWritten returns an attribute for bytes actually written.
func BytesWritten(n int) attribute.KeyValue {
	return attribute.Int(AttrBytesWrite, n)
}

// EOF returns an attribute for end of stream.
func EOF(eof bool) attribute.KeyValue {
	return attribute.Bool(AttrEOF, eof)
}

// SessionID returns an attribute for a session ID.
func SessionID(id string) attribute.KeyValue {
	return attribute.String(AttrSessionID, id)
}

// Driver returns an attribute for the native driver name.
func Driver(name string) attribute.KeyValue {
	return attribute.String(AttrDriver, name)
}

// ErrorCode returns an attribute for an error code name.
func ErrorCode(code string) attribute.KeyValue {
	return attribute.String(AttrErrorCode, code)
}

// Bucket returns an attribute for an object store bucket.
func Bucket(b string) attribute.KeyValue {
	return attribute.String(AttrBucket, b)
}

// Key returns an attribute for an object key.
func Key(k string) attribute.KeyValue {
	return attribute.String(AttrKey, k)
}
