package s3

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	fserrors "github.com/marmos91/remotefs/pkg/errors"
	"github.com/marmos91/remotefs/pkg/native"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDriverDefaults(t *testing.T) {
	d, err := NewDriver(Config{KeyPrefix: "data"})
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", d.cfg.Region)
	assert.Equal(t, 1, d.cfg.MaxAttempts)
	assert.Equal(t, "data/", d.cfg.KeyPrefix)
	assert.Equal(t, DriverName, d.Name())

	_, err = NewDriver(Config{MaxAttempts: -1})
	assert.Error(t, err)
}

func TestCredentialsFor(t *testing.T) {
	d, err := NewDriver(Config{AccessKeyID: "AK", SecretAccessKey: "SK"})
	require.NoError(t, err)

	ak, sk := d.credentialsFor(native.Credentials{Username: "alice", Password: "pw"})
	assert.Equal(t, "alice", ak)
	assert.Equal(t, "pw", sk)

	ak, sk = d.credentialsFor(native.Credentials{Username: "guest", Password: "x"})
	assert.Equal(t, "AK", ak)
	assert.Equal(t, "SK", sk)

	ak, sk = d.credentialsFor(native.Credentials{Username: "alice"})
	assert.Equal(t, "AK", ak)
	assert.Equal(t, "SK", sk)
}

func TestContextLifecycle(t *testing.T) {
	d, err := NewDriver(Config{})
	require.NoError(t, err)

	_, err = d.NewContext(native.ContextOptions{})
	assert.Error(t, err)

	nc, err := d.NewContext(native.ContextOptions{Protocol: "smb", Server: "s3"})
	require.NoError(t, err)
	assert.Equal(t, 1, d.LiveContexts())

	_, err = nc.Stat(context.Background(), "smb://s3/bucket/key")
	assert.ErrorIs(t, err, errNotConnected)

	require.NoError(t, nc.Free())
	assert.Error(t, nc.Free())
	assert.Equal(t, 0, d.LiveContexts())
}

func TestResolve(t *testing.T) {
	d, err := NewDriver(Config{KeyPrefix: "pfx"})
	require.NoError(t, err)
	c := &Context{driver: d, opts: native.ContextOptions{Server: "s3"}}

	tests := []struct {
		remote string
		bucket string
		key    string
		dirKey string
		root   bool
	}{
		{"smb://s3/", "", "", "", true},
		{"smb://s3/bucket", "bucket", "pfx", "pfx/", true},
		{"smb://s3/bucket/a/b.txt", "bucket", "pfx/a/b.txt", "pfx/a/b.txt/", false},
		{"smb://s3/bucket/a/../c", "bucket", "pfx/c", "pfx/c/", false},
		{"smb://s3/bucket/with%20space", "bucket", "pfx/with space", "pfx/with space/", false},
	}
	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			got, err := c.resolve("stat", tt.remote)
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, got.bucket)
			assert.Equal(t, tt.key, got.key)
			assert.Equal(t, tt.dirKey, got.dirKey())
			assert.Equal(t, tt.root, c.isRoot(got))
		})
	}

	_, err = c.resolve("stat", "smb://elsewhere/bucket/a")
	assert.True(t, fserrors.IsInvalidArgument(err))
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want fserrors.ErrorCode
	}{
		{"no such key", &types.NoSuchKey{}, fserrors.ErrNotFound},
		{"no such bucket", &types.NoSuchBucket{}, fserrors.ErrNotFound},
		{"generic 404", &smithy.GenericAPIError{Code: "NotFound"}, fserrors.ErrNotFound},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, fserrors.ErrPermissionDenied},
		{"bad key", &smithy.GenericAPIError{Code: "InvalidAccessKeyId"}, fserrors.ErrPermissionDenied},
		{"other api", &smithy.GenericAPIError{Code: "SlowDown"}, fserrors.ErrOther},
		{"plain", errors.New("boom"), fserrors.ErrOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pathError("stat", "smb://s3/b/k", tt.err)
			assert.Equal(t, tt.want, fserrors.CodeOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, pathError("stat", "x", nil))
	assert.True(t, isInvalidRangeError(&smithy.GenericAPIError{Code: "InvalidRange"}))
	assert.True(t, isInvalidRangeError(fmt.Errorf("api error InvalidRange: bad")))
	assert.False(t, isInvalidRangeError(nil))
}

func TestModeMetadata(t *testing.T) {
	meta := modeMetadata(0o640)
	assert.Equal(t, "640", meta[metaMode])
	assert.EqualValues(t, 0o640, modeFrom(meta, 0o644))

	assert.EqualValues(t, 0o644, modeFrom(nil, 0o644))
	assert.EqualValues(t, 0o755, modeFrom(map[string]string{metaMode: "bogus"}, 0o755))
	assert.EqualValues(t, 0o7777, modeFrom(map[string]string{metaMode: "177777"}, 0))
}

func TestEntryStat(t *testing.T) {
	st := entry{exists: true, size: 1025, mode: 0o600}.stat()
	assert.False(t, st.IsDir())
	assert.EqualValues(t, 1025, st.Size)
	assert.EqualValues(t, 3, st.Blocks)
	assert.EqualValues(t, 0o600, st.Perm())

	st = entry{exists: true, dir: true, mode: 0o755}.stat()
	assert.True(t, st.IsDir())
	assert.EqualValues(t, 2, st.Nlink)
	assert.Zero(t, st.Size)
}

func TestFileBuffering(t *testing.T) {
	ctx := context.Background()
	f := &file{path: "smb://s3/b/k", read: true, write: true, loaded: true, mode: 0o644}

	n, err := f.Write(ctx, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	_, err = f.Seek(ctx, 1, 0)
	require.NoError(t, err)
	buf := make([]byte, 8)
	n, err = f.Read(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, "ello", string(buf[:n]))

	pos, err := f.Seek(ctx, 2, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 7, pos)
	_, err = f.Write(ctx, []byte("!"))
	require.NoError(t, err)

	st, err := f.Stat(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 8, st.Size)
	assert.Equal(t, []byte("hello\x00\x00!"), f.buf)

	_, err = f.Seek(ctx, -1, 0)
	assert.True(t, fserrors.IsInvalidArgument(err))
	_, err = f.Seek(ctx, 0, 7)
	assert.True(t, fserrors.IsInvalidArgument(err))
}

func TestDirSnapshot(t *testing.T) {
	ctx := context.Background()
	calls := 0
	d := &dir{list: func(context.Context) ([]native.Dirent, error) {
		calls++
		return []native.Dirent{{Name: "a", Type: native.EntryFile}, {Name: "b", Type: native.EntryDir}}, nil
	}}

	var names []string
	for {
		ent, err := d.Next(ctx)
		if err != nil {
			break
		}
		names = append(names, ent.Name)
	}
	assert.Equal(t, []string{"a", "b"}, names)
	assert.Equal(t, 1, calls)

	require.NoError(t, d.Rewind(ctx))
	ent, err := d.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", ent.Name)
	assert.Equal(t, 2, calls)

	require.NoError(t, d.Close(ctx))
	assert.Error(t, d.Close(ctx))
	_, err = d.Next(ctx)
	assert.Error(t, err)
}
