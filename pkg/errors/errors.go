// Package errors provides the error codes reported by remotefs operations.
// This is a leaf package with no internal dependencies so it can be imported
// by the URL parser, the handle table, the session registry, the native
// drivers and the dispatcher alike.
//
// Callers usually import it under an alias:
//
//	import fserrors "github.com/marmos91/remotefs/pkg/errors"
package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// ErrorCode represents the kind of failure that occurred.
type ErrorCode int

const (
	// ErrNone is reported for a nil error.
	ErrNone ErrorCode = iota

	// ErrInvalidArgument indicates a malformed argument: a bad URL scheme,
	// an unparseable open mode, a handle of the wrong kind or a cross-session
	// rename.
	ErrInvalidArgument

	// ErrConnectionFailed indicates a native context could not be created
	// or initialized for a session key.
	ErrConnectionFailed

	// ErrPermissionDenied indicates the remote side refused access (POSIX EACCES).
	ErrPermissionDenied

	// ErrNotFound indicates the remote object or the handle does not exist.
	ErrNotFound

	// ErrAlreadyExists indicates the remote object already exists.
	ErrAlreadyExists

	// ErrResourceExhausted indicates the handle space is full.
	ErrResourceExhausted

	// ErrNotEmpty indicates a directory is not empty.
	ErrNotEmpty

	// ErrIsDirectory indicates the operation is not valid on a directory.
	ErrIsDirectory

	// ErrNotDirectory indicates the operation requires a directory.
	ErrNotDirectory

	// ErrOther covers every native failure without a more specific code.
	ErrOther
)

// String returns a human-readable name for the error code.
func (c ErrorCode) String() string {
	switch c {
	case ErrNone:
		return "None"
	case ErrInvalidArgument:
		return "InvalidArgument"
	case ErrConnectionFailed:
		return "ConnectionFailed"
	case ErrPermissionDenied:
		return "PermissionDenied"
	case ErrNotFound:
		return "NotFound"
	case ErrAlreadyExists:
		return "AlreadyExists"
	case ErrResourceExhausted:
		return "ResourceExhausted"
	case ErrNotEmpty:
		return "NotEmpty"
	case ErrIsDirectory:
		return "IsDirectory"
	case ErrNotDirectory:
		return "NotDirectory"
	case ErrOther:
		return "Other"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// Errno returns the POSIX errno conventionally associated with the code.
func (c ErrorCode) Errno() syscall.Errno {
	switch c {
	case ErrNone:
		return 0
	case ErrInvalidArgument:
		return syscall.EINVAL
	case ErrConnectionFailed:
		return syscall.ECONNREFUSED
	case ErrPermissionDenied:
		return syscall.EACCES
	case ErrNotFound:
		return syscall.ENOENT
	case ErrAlreadyExists:
		return syscall.EEXIST
	case ErrResourceExhausted:
		return syscall.EMFILE
	case ErrNotEmpty:
		return syscall.ENOTEMPTY
	case ErrIsDirectory:
		return syscall.EISDIR
	case ErrNotDirectory:
		return syscall.ENOTDIR
	default:
		return syscall.EIO
	}
}

// Error is the error type returned by every remotefs operation.
type Error struct {
	Code ErrorCode
	Op   string // operation name: open, stat, rename, ...
	Path string // canonical remote path, never carries credentials
	Err  error  // underlying cause, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Code.String()
	if e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.Op != "" && e.Path != "":
		return fmt.Sprintf("%s %s: %s", e.Op, e.Path, msg)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, msg)
	default:
		return msg
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error carrying the same code, so that
// errors.Is(err, &Error{Code: ErrNotFound}) works through wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Op == "" && t.Path == "" && t.Err == nil
}

// New creates an error with the given code and a formatted message.
func New(code ErrorCode, op, path, format string, args ...any) *Error {
	return &Error{
		Code: code,
		Op:   op,
		Path: path,
		Err:  fmt.Errorf(format, args...),
	}
}

// Wrap attaches a code to an existing error.
func Wrap(code ErrorCode, op, path string, err error) *Error {
	return &Error{Code: code, Op: op, Path: path, Err: err}
}

// NewInvalidArgumentError creates an InvalidArgument error.
func NewInvalidArgumentError(op, path, format string, args ...any) *Error {
	return New(ErrInvalidArgument, op, path, format, args...)
}

// NewNotFoundError creates a NotFound error.
func NewNotFoundError(op, path, what string) *Error {
	return New(ErrNotFound, op, path, "%s not found", what)
}

// NewPermissionDeniedError creates a PermissionDenied error.
func NewPermissionDeniedError(op, path string) *Error {
	return &Error{Code: ErrPermissionDenied, Op: op, Path: path, Err: fs.ErrPermission}
}

// NewConnectionFailedError creates a ConnectionFailed error wrapping cause.
func NewConnectionFailedError(op, target string, cause error) *Error {
	return Wrap(ErrConnectionFailed, op, target, cause)
}

// NewResourceExhaustedError creates a ResourceExhausted error.
func NewResourceExhaustedError(op string, capacity int) *Error {
	return New(ErrResourceExhausted, op, "", "all %d handle slots in use", capacity)
}

// FromNative classifies an error returned by a native driver.
// Errors that already carry a code are returned unchanged. A nil error
// yields nil.
func FromNative(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var fsErr *Error
	if errors.As(err, &fsErr) {
		return err
	}
	return &Error{Code: classify(err), Op: op, Path: path, Err: err}
}

// classify maps stdlib and errno errors onto codes. ENOTEMPTY is checked
// before fs.ErrExist because syscall.Errno reports ENOTEMPTY as ErrExist.
func classify(err error) ErrorCode {
	switch {
	case errors.Is(err, syscall.ENOTEMPTY):
		return ErrNotEmpty
	case errors.Is(err, syscall.EISDIR):
		return ErrIsDirectory
	case errors.Is(err, syscall.ENOTDIR):
		return ErrNotDirectory
	case errors.Is(err, syscall.EMFILE), errors.Is(err, syscall.ENFILE):
		return ErrResourceExhausted
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, syscall.ENETUNREACH):
		return ErrConnectionFailed
	case errors.Is(err, fs.ErrNotExist):
		return ErrNotFound
	case errors.Is(err, fs.ErrPermission):
		return ErrPermissionDenied
	case errors.Is(err, fs.ErrExist):
		return ErrAlreadyExists
	case errors.Is(err, fs.ErrInvalid), errors.Is(err, syscall.EINVAL),
		errors.Is(err, syscall.EXDEV):
		return ErrInvalidArgument
	default:
		return ErrOther
	}
}

// CodeOf reports the code carried by err. Errors without a code are
// classified the same way native errors are.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrNone
	}
	var fsErr *Error
	if errors.As(err, &fsErr) {
		return fsErr.Code
	}
	return classify(err)
}

// IsNotFound reports whether err carries ErrNotFound.
func IsNotFound(err error) bool { return CodeOf(err) == ErrNotFound }

// IsPermissionDenied reports whether err carries ErrPermissionDenied.
func IsPermissionDenied(err error) bool { return CodeOf(err) == ErrPermissionDenied }

// IsInvalidArgument reports whether err carries ErrInvalidArgument.
func IsInvalidArgument(err error) bool { return CodeOf(err) == ErrInvalidArgument }
