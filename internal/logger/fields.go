package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging. Use them consistently so logs
// can be aggregated and queried.
const (
	// Tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Operation
	KeyOperation  = "operation"   // dispatcher operation: open, read, url_stat, ...
	KeyURL        = "url"         // redacted URL
	KeyRemotePath = "remote_path" // canonical proto://host/path target
	KeyProtocol   = "protocol"
	KeyHost       = "host"
	KeyShare      = "share"
	KeyPath       = "path"
	KeyMode       = "mode"
	KeyFlags      = "flags"

	// Handles and sessions
	KeyHandle      = "handle"
	KeyHandleKind  = "handle_kind"
	KeySessionID   = "session_id"
	KeyFingerprint = "fingerprint" // digest of the session key
	KeyUser        = "user"
	KeyWorkgroup   = "workgroup"
	KeyRefs        = "refs"
	KeySessions    = "sessions"
	KeyDriver      = "driver"

	// I/O
	KeyOffset       = "offset"
	KeyWhence       = "whence"
	KeyCount        = "count"
	KeyBytesRead    = "bytes_read"
	KeyBytesWritten = "bytes_written"
	KeyEOF          = "eof"
	KeySize         = "size"

	// Directory iteration
	KeyName    = "name"
	KeyEntries = "entries"

	// Storage backends
	KeyBucket = "bucket"
	KeyKey    = "key"
	KeyRegion = "region"

	// Metadata
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyErrorCode  = "error_code"
	KeyOldPath    = "old_path"
	KeyNewPath    = "new_path"
)

// Err returns a slog.Attr for an error. A nil error yields an empty attr,
// which handlers drop.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Handle returns a slog.Attr for a handle ID.
func Handle(id int64) slog.Attr {
	return slog.Int64(KeyHandle, id)
}

// Mode returns a slog.Attr for permission bits in octal.
func Mode(m uint32) slog.Attr {
	return slog.String(KeyMode, fmt.Sprintf("%#o", m))
}

// SessionID returns a slog.Attr for a session identifier.
func SessionID(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

// Host returns a slog.Attr for a server name.
func Host(h string) slog.Attr {
	return slog.String(KeyHost, h)
}

// RemotePath returns a slog.Attr for a canonical remote path.
func RemotePath(p string) slog.Attr {
	return slog.String(KeyRemotePath, p)
}

// Size returns a slog.Attr for file size
func Size(s uint64) slog.Attr {
	return slog.Uint64(KeySize, s)
}

// DurationMs returns a slog.Attr with the elapsed milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}
