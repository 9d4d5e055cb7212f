// Package native defines the blocking client contract remotefs drives.
//
// A Driver creates Contexts. A Context is an authenticated connection to one
// server on behalf of one set of credentials; it resolves canonical remote
// paths ("proto://host/share/path") into files and directories. Every call
// is synchronous. Implementations live in the sub-packages (memory, local,
// s3, badger).
package native

import (
	"context"
	"io/fs"
)

// Credentials are returned by an AuthFunc when a Context needs to
// authenticate against a share.
type Credentials struct {
	Workgroup string
	Username  string
	Password  string
}

// AuthFunc supplies credentials for server and share. It is called by the
// Context, possibly several times, whenever the remote side asks for them.
type AuthFunc func(server, share string) Credentials

// ContextOptions configure a new Context.
type ContextOptions struct {
	// Protocol is the URL scheme the context serves.
	Protocol string
	// Server is the host the context is bound to, lowercased.
	Server string
	// Auth is the credential callback.
	Auth AuthFunc
}

// Driver creates native contexts.
type Driver interface {
	// Name identifies the driver in logs and metrics.
	Name() string

	// NewContext allocates a context. It does not contact the server; Init does.
	NewContext(opts ContextOptions) (Context, error)
}

// Context is one authenticated native connection.
//
// Paths are canonical remote paths as produced by smburl.Components.RemotePath.
// Flags use the os.O_* constants.
type Context interface {
	// Init connects and authenticates. It must be called once before any
	// other method.
	Init(ctx context.Context) error

	Open(ctx context.Context, path string, flags int, perm fs.FileMode) (File, error)
	Stat(ctx context.Context, path string) (Stat, error)
	Rename(ctx context.Context, from, to string) error
	Unlink(ctx context.Context, path string) error
	Mkdir(ctx context.Context, path string, perm fs.FileMode) error
	Rmdir(ctx context.Context, path string) error
	Chmod(ctx context.Context, path string, perm fs.FileMode) error
	Opendir(ctx context.Context, path string) (Dir, error)

	// Free releases the connection. Files and directories opened through
	// the context must be closed first.
	Free() error
}

// File is an open remote file.
type File interface {
	// Read returns 0, io.EOF at end of file.
	Read(ctx context.Context, p []byte) (int, error)
	Write(ctx context.Context, p []byte) (int, error)
	Seek(ctx context.Context, offset int64, whence int) (int64, error)
	Stat(ctx context.Context) (Stat, error)
	Close(ctx context.Context) error
}

// Dir is an open directory stream.
type Dir interface {
	// Next returns the next entry, or io.EOF once the stream is exhausted.
	Next(ctx context.Context) (Dirent, error)
	// Rewind restarts the stream from the first entry.
	Rewind(ctx context.Context) error
	Close(ctx context.Context) error
}
