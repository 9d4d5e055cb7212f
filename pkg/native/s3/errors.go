package s3

import (
	"errors"
	"io/fs"
	"net"
	"strings"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// isNotFoundError returns true if the error indicates the object or bucket
// doesn't exist.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) || errors.As(err, &noSuchBucket) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket", "404":
			return true
		}
	}
	return false
}

// isAccessDeniedError returns true if the credentials were rejected or lack
// permission.
func isAccessDeniedError(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "AccessDenied", "Forbidden", "403", "InvalidAccessKeyId",
		"SignatureDoesNotMatch", "AllAccessDisabled":
		return true
	}
	return false
}

// isInvalidRangeError returns true if the error indicates an invalid byte
// range, which S3 reports for reads at or past the end of an object.
func isInvalidRangeError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "InvalidRange"
	}
	return strings.Contains(err.Error(), "InvalidRange")
}

// isUnreachableError returns true for transport failures.
func isUnreachableError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// pathError converts an SDK error into the errno-carrying form native
// callers classify. Unrecognized errors are kept as is.
func pathError(op, path string, err error) error {
	if err == nil {
		return nil
	}

	var errno syscall.Errno
	switch {
	case isNotFoundError(err):
		errno = syscall.ENOENT
	case isAccessDeniedError(err):
		errno = syscall.EACCES
	case isUnreachableError(err):
		errno = syscall.ECONNREFUSED
	default:
		return &fs.PathError{Op: op, Path: path, Err: err}
	}
	return &fs.PathError{Op: op, Path: path, Err: &apiError{errno: errno, cause: err}}
}

// apiError pairs the errno used for classification with the SDK error.
type apiError struct {
	errno syscall.Errno
	cause error
}

func (e *apiError) Error() string {
	return e.errno.Error() + ": " + e.cause.Error()
}

func (e *apiError) Unwrap() []error {
	return []error{e.errno, e.cause}
}

func errnoPath(op, path string, errno syscall.Errno) error {
	return &fs.PathError{Op: op, Path: path, Err: errno}
}
