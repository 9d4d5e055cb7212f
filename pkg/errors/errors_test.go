package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodeString(t *testing.T) {
	assert.Equal(t, "NotFound", ErrNotFound.String())
	assert.Equal(t, "ResourceExhausted", ErrResourceExhausted.String())
	assert.Equal(t, "Unknown(99)", ErrorCode(99).String())
}

func TestFromNative(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"not exist", fs.ErrNotExist, ErrNotFound},
		{"path error enoent", &os.PathError{Op: "open", Path: "/x", Err: syscall.ENOENT}, ErrNotFound},
		{"permission", fs.ErrPermission, ErrPermissionDenied},
		{"eacces", syscall.EACCES, ErrPermissionDenied},
		{"exist", fs.ErrExist, ErrAlreadyExists},
		{"not empty before exist", syscall.ENOTEMPTY, ErrNotEmpty},
		{"is dir", syscall.EISDIR, ErrIsDirectory},
		{"not dir", syscall.ENOTDIR, ErrNotDirectory},
		{"cross share rename", &os.LinkError{Op: "rename", Old: "a", New: "b", Err: syscall.EXDEV}, ErrInvalidArgument},
		{"refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), ErrConnectionFailed},
		{"opaque", errors.New("boom"), ErrOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromNative("op", "smb://h/s", tt.err)
			require.Error(t, err)
			assert.Equal(t, tt.want, CodeOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestFromNativeKeepsCode(t *testing.T) {
	orig := NewInvalidArgumentError("open", "", "bad mode %q", "q")
	wrapped := fmt.Errorf("context: %w", orig)

	assert.Same(t, wrapped, FromNative("read", "p", wrapped))
	assert.Equal(t, ErrInvalidArgument, CodeOf(wrapped))
	assert.NoError(t, FromNative("read", "p", nil))
	assert.Equal(t, ErrNone, CodeOf(nil))
}

func TestErrorIs(t *testing.T) {
	err := NewNotFoundError("lookup", "", "handle")
	assert.ErrorIs(t, fmt.Errorf("wrapped: %w", err), &Error{Code: ErrNotFound})
	assert.NotErrorIs(t, err, &Error{Code: ErrPermissionDenied})
	assert.True(t, IsNotFound(err))
	assert.False(t, IsPermissionDenied(err))
}

func TestErrorMessage(t *testing.T) {
	err := NewPermissionDeniedError("open", "smb://host/share/file")
	assert.Equal(t, "open smb://host/share/file: permission denied", err.Error())
	assert.Equal(t, syscall.EACCES, err.Code.Errno())

	err = NewResourceExhaustedError("allocate", 2)
	assert.Equal(t, "allocate: all 2 handle slots in use", err.Error())
}
