package memory

import (
	"context"
	"io"
	"os"
	"testing"

	fserrors "github.com/marmos91/remotefs/pkg/errors"
	"github.com/marmos91/remotefs/pkg/native"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(t *testing.T, d *Driver, host string, creds native.Credentials) native.Context {
	t.Helper()
	nc, err := d.NewContext(native.ContextOptions{
		Protocol: "smb",
		Server:   host,
		Auth:     func(string, string) native.Credentials { return creds },
	})
	require.NoError(t, err)
	require.NoError(t, nc.Init(context.Background()))
	t.Cleanup(func() { _ = nc.Free() })
	return nc
}

func TestInitUnknownServer(t *testing.T) {
	d := NewDriver(Config{})
	nc, err := d.NewContext(native.ContextOptions{Server: "nowhere"})
	require.NoError(t, err)

	err = nc.Init(context.Background())
	assert.Equal(t, fserrors.ErrConnectionFailed, fserrors.CodeOf(err))
	require.NoError(t, nc.Free())
	assert.Equal(t, 0, d.LiveContexts())
}

func TestInitChecksAccounts(t *testing.T) {
	d := NewDriver(Config{})
	d.AddShare("server", "share")
	d.AddAccount("server", "alice", "secret")

	nc, err := d.NewContext(native.ContextOptions{
		Server: "server",
		Auth: func(string, string) native.Credentials {
			return native.Credentials{Username: "alice", Password: "wrong"}
		},
	})
	require.NoError(t, err)
	assert.True(t, fserrors.IsPermissionDenied(nc.Init(context.Background())))

	ok := newContext(t, d, "SERVER", native.Credentials{Workgroup: "WG", Username: "alice", Password: "secret"})
	assert.Equal(t, "WG", ok.(*Context).Credentials().Workgroup)
}

func TestFileLifecycle(t *testing.T) {
	ctx := context.Background()
	d := NewDriver(Config{})
	d.AddShare("server", "share")
	nc := newContext(t, d, "server", native.Credentials{})

	f, err := nc.Open(ctx, "smb://server/share/hello.txt", os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	require.NoError(t, err)
	n, err := f.Write(ctx, []byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	require.NoError(t, f.Close(ctx))

	f, err = nc.Open(ctx, "smb://server/share/hello.txt", os.O_RDONLY, 0)
	require.NoError(t, err)
	pos, err := f.Seek(ctx, 6, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(6), pos)

	buf := make([]byte, 32)
	n, err = f.Read(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, "world", string(buf[:n]))
	_, err = f.Read(ctx, buf)
	assert.ErrorIs(t, err, io.EOF)

	st, err := f.Stat(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), st.Size)
	assert.False(t, st.IsDir())
	require.NoError(t, f.Close(ctx))

	assert.Equal(t, 0, d.OpenFiles())
}

func TestOpenFlags(t *testing.T) {
	ctx := context.Background()
	d := NewDriver(Config{})
	d.AddShare("server", "share")
	nc := newContext(t, d, "server", native.Credentials{})
	path := "smb://server/share/f"

	_, err := nc.Open(ctx, path, os.O_RDONLY, 0)
	assert.True(t, fserrors.IsNotFound(fserrors.FromNative("open", path, err)))

	f, err := nc.Open(ctx, path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	require.NoError(t, err)
	_, _ = f.Write(ctx, []byte("abc"))
	require.NoError(t, f.Close(ctx))

	_, err = nc.Open(ctx, path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	assert.Equal(t, fserrors.ErrAlreadyExists, fserrors.CodeOf(err))

	f, err = nc.Open(ctx, path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, _ = f.Write(ctx, []byte("def"))
	_, err = f.Read(ctx, make([]byte, 1))
	assert.Error(t, err)
	require.NoError(t, f.Close(ctx))

	st, err := nc.Stat(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), st.Size)
}

func TestPermissions(t *testing.T) {
	ctx := context.Background()
	d := NewDriver(Config{OptimisticModes: true})
	d.AddShare("server", "share")
	nc := newContext(t, d, "server", native.Credentials{})

	path := "smb://server/share/secret"
	f, err := nc.Open(ctx, path, os.O_WRONLY|os.O_CREATE, 0o200)
	require.NoError(t, err)
	require.NoError(t, f.Close(ctx))

	_, err = nc.Open(ctx, path, os.O_RDONLY, 0)
	assert.True(t, fserrors.IsPermissionDenied(err))

	st, err := nc.Stat(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, uint32(0o755), st.Mode&native.ModePerm, "stat reports optimistic bits")

	require.NoError(t, nc.Mkdir(ctx, "smb://server/share/locked", 0))
	_, err = nc.Opendir(ctx, "smb://server/share/locked")
	assert.True(t, fserrors.IsPermissionDenied(err))
	_, err = nc.Open(ctx, "smb://server/share/locked", os.O_RDONLY, 0)
	assert.True(t, fserrors.IsPermissionDenied(err))
}

func TestDirectories(t *testing.T) {
	ctx := context.Background()
	d := NewDriver(Config{AutoCreate: true})
	nc := newContext(t, d, "server", native.Credentials{})

	require.NoError(t, nc.Mkdir(ctx, "smb://server/share/dir", 0o755))
	assert.Equal(t, fserrors.ErrAlreadyExists, fserrors.CodeOf(nc.Mkdir(ctx, "smb://server/share/dir", 0o755)))

	for _, name := range []string{"b", "a"} {
		f, err := nc.Open(ctx, "smb://server/share/dir/"+name, os.O_WRONLY|os.O_CREATE, 0o644)
		require.NoError(t, err)
		require.NoError(t, f.Close(ctx))
	}

	dir, err := nc.Opendir(ctx, "smb://server/share/dir")
	require.NoError(t, err)

	var names []string
	for {
		e, err := dir.Next(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"a", "b"}, names)

	require.NoError(t, dir.Rewind(ctx))
	e, err := dir.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", e.Name)
	require.NoError(t, dir.Close(ctx))
	assert.Equal(t, 0, d.OpenDirs())

	assert.Equal(t, fserrors.ErrNotEmpty, fserrors.CodeOf(nc.Rmdir(ctx, "smb://server/share/dir")))
	assert.Equal(t, fserrors.ErrIsDirectory, fserrors.CodeOf(nc.Unlink(ctx, "smb://server/share/dir")))
	assert.Equal(t, fserrors.ErrNotDirectory, fserrors.CodeOf(nc.Rmdir(ctx, "smb://server/share/dir/a")))

	require.NoError(t, nc.Unlink(ctx, "smb://server/share/dir/a"))
	require.NoError(t, nc.Unlink(ctx, "smb://server/share/dir/b"))
	require.NoError(t, nc.Rmdir(ctx, "smb://server/share/dir"))

	shares, err := nc.Opendir(ctx, "smb://server/")
	require.NoError(t, err)
	e, err = shares.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, native.Dirent{Name: "share", Type: native.EntryShare}, e)
	require.NoError(t, shares.Close(ctx))
}

func TestRename(t *testing.T) {
	ctx := context.Background()
	d := NewDriver(Config{})
	d.AddShare("server", "share")
	d.AddShare("server", "other")
	nc := newContext(t, d, "server", native.Credentials{})

	f, err := nc.Open(ctx, "smb://server/share/a", os.O_WRONLY|os.O_CREATE, 0o644)
	require.NoError(t, err)
	require.NoError(t, f.Close(ctx))
	require.NoError(t, nc.Mkdir(ctx, "smb://server/share/d", 0o755))

	require.NoError(t, nc.Rename(ctx, "smb://server/share/a", "smb://server/share/d/b"))
	_, err = nc.Stat(ctx, "smb://server/share/a")
	assert.True(t, fserrors.IsNotFound(err))
	_, err = nc.Stat(ctx, "smb://server/share/d/b")
	assert.NoError(t, err)

	err = nc.Rename(ctx, "smb://server/share/d", "smb://server/share/d/sub")
	assert.True(t, fserrors.IsInvalidArgument(err))

	err = nc.Rename(ctx, "smb://server/share/d/b", "smb://server/other/b")
	assert.Error(t, err)

	err = nc.Rename(ctx, "smb://server/share/d/b", "smb://elsewhere/share/b")
	assert.True(t, fserrors.IsInvalidArgument(err))
}

func TestChmod(t *testing.T) {
	ctx := context.Background()
	d := NewDriver(Config{})
	d.AddShare("server", "share")
	nc := newContext(t, d, "server", native.Credentials{})

	require.NoError(t, nc.Mkdir(ctx, "smb://server/share/d", 0o755))
	require.NoError(t, nc.Chmod(ctx, "smb://server/share/d", 0o700))

	st, err := nc.Stat(ctx, "smb://server/share/d")
	require.NoError(t, err)
	assert.True(t, st.IsDir())
	assert.Equal(t, uint32(0o700), st.Mode&native.ModePerm)

	assert.True(t, fserrors.IsNotFound(nc.Chmod(ctx, "smb://server/share/missing", 0o644)))
}
