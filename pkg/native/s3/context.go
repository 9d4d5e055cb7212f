package s3

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/remotefs/internal/logger"
	"github.com/marmos91/remotefs/pkg/native"
	"github.com/marmos91/remotefs/pkg/smburl"
)

const (
	defaultFileMode uint32 = 0o644
	defaultDirMode  uint32 = 0o755
)

// Context is a native.Context holding one S3 client.
type Context struct {
	driver *Driver
	opts   native.ContextOptions

	mu    sync.Mutex
	s3    *s3.Client
	freed bool
}

var _ native.Context = (*Context)(nil)

// Init implements native.Context. It builds the client with the session's
// credentials and verifies them with ListBuckets.
func (c *Context) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var creds native.Credentials
	if c.opts.Auth != nil {
		creds = c.opts.Auth(c.opts.Server, "")
	}
	accessKey, secret := c.driver.credentialsFor(creds)

	cfg := c.driver.cfg
	client, err := NewClientFromConfig(ctx, cfg.Endpoint, cfg.Region, accessKey, secret, cfg.ForcePathStyle, cfg.MaxAttempts)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.s3 = client
	c.mu.Unlock()

	if _, err := c.listBuckets(ctx); err != nil {
		c.mu.Lock()
		c.s3 = nil
		c.mu.Unlock()
		return pathError("connect", c.opts.Server, err)
	}

	logger.DebugCtx(ctx, "S3 context ready",
		logger.KeyHost, c.opts.Server,
		logger.KeyRegion, cfg.Region,
		logger.KeyUser, creds.Username)
	return nil
}

// Free implements native.Context.
func (c *Context) Free() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.freed {
		return fmt.Errorf("s3: context for %s freed twice: %w", c.opts.Server, fs.ErrClosed)
	}
	c.freed = true
	c.s3 = nil
	c.driver.contexts.Add(-1)
	return nil
}

func (c *Context) client() (*s3.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.s3 == nil {
		return nil, fmt.Errorf("%w (%s): %w", errNotConnected, c.opts.Server, syscall.ENOTCONN)
	}
	return c.s3, nil
}

// target is a resolved remote path.
type target struct {
	remote string
	loc    smburl.Location
	bucket string
	key    string // object key, empty for the bucket root
}

// dirKey is the key prefix of the target's children.
func (t target) dirKey() string {
	if t.key == "" {
		return ""
	}
	return t.key + "/"
}

func (c *Context) resolve(op, remote string) (target, error) {
	loc := smburl.SplitRemotePath(remote)
	if !strings.EqualFold(loc.Host, c.opts.Server) {
		return target{}, errnoPath(op, remote, syscall.EINVAL)
	}
	t := target{remote: remote, loc: loc, bucket: loc.Share}
	if loc.Path != "" {
		t.key = c.driver.cfg.KeyPrefix + loc.Path
	} else if c.driver.cfg.KeyPrefix != "" && loc.Share != "" {
		t.key = strings.TrimSuffix(c.driver.cfg.KeyPrefix, "/")
	}
	return t, nil
}

// isRoot reports whether t addresses the bucket root or the server itself.
func (c *Context) isRoot(t target) bool {
	return t.bucket == "" || t.loc.IsShareRoot()
}

// entry describes what a target currently is.
type entry struct {
	exists bool
	dir    bool
	size   int64
	mode   uint32
	mtime  time.Time
	marker bool // dir backed by a marker object
}

// lookup finds what t refers to: an object, a marker directory, an
// implicit prefix directory, or nothing.
func (c *Context) lookup(ctx context.Context, op string, t target) (entry, error) {
	if t.bucket == "" {
		return entry{exists: true, dir: true, mode: defaultDirMode}, nil
	}
	if c.isRoot(t) {
		if err := c.headBucket(ctx, t.bucket); err != nil {
			return entry{}, pathError(op, t.remote, err)
		}
		return entry{exists: true, dir: true, mode: defaultDirMode}, nil
	}

	head, err := c.headObject(ctx, t.bucket, t.key)
	if err == nil {
		return entry{
			exists: true,
			size:   aws.ToInt64(head.ContentLength),
			mode:   modeFrom(head.Metadata, defaultFileMode),
			mtime:  aws.ToTime(head.LastModified),
		}, nil
	}
	if !isNotFoundError(err) {
		return entry{}, pathError(op, t.remote, err)
	}

	head, err = c.headObject(ctx, t.bucket, t.dirKey())
	if err == nil {
		return entry{
			exists: true,
			dir:    true,
			marker: true,
			mode:   modeFrom(head.Metadata, defaultDirMode),
			mtime:  aws.ToTime(head.LastModified),
		}, nil
	}
	if !isNotFoundError(err) {
		return entry{}, pathError(op, t.remote, err)
	}

	l, err := c.list(ctx, t.bucket, t.dirKey(), true, 1)
	if err != nil {
		return entry{}, pathError(op, t.remote, err)
	}
	if len(l.keys)+len(l.prefixes) > 0 {
		return entry{exists: true, dir: true, mode: defaultDirMode}, nil
	}
	return entry{}, nil
}

func (e entry) stat() native.Stat {
	st := native.Stat{
		Nlink:   1,
		Blksize: native.DefaultBlockSize,
		Atime:   native.Unix32(e.mtime),
		Mtime:   native.Unix32(e.mtime),
		Ctime:   native.Unix32(e.mtime),
	}
	if e.dir {
		st.Mode = native.ModeDir | e.mode
		st.Nlink = 2
		return st
	}
	st.Mode = native.ModeRegular | e.mode
	st.Size = uint64(e.size)
	st.Blocks = native.Blocks(st.Size)
	return st
}

// Stat implements native.Context.
func (c *Context) Stat(ctx context.Context, remote string) (native.Stat, error) {
	if err := ctx.Err(); err != nil {
		return native.Stat{}, err
	}
	t, err := c.resolve("stat", remote)
	if err != nil {
		return native.Stat{}, err
	}
	e, err := c.lookup(ctx, "stat", t)
	if err != nil {
		return native.Stat{}, err
	}
	if !e.exists {
		return native.Stat{}, errnoPath("stat", remote, syscall.ENOENT)
	}
	return e.stat(), nil
}

// Open implements native.Context. Permission bits stored in the object
// metadata are enforced for the owner class.
func (c *Context) Open(ctx context.Context, remote string, flags int, perm fs.FileMode) (native.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := c.resolve("open", remote)
	if err != nil {
		return nil, err
	}
	if c.isRoot(t) {
		return nil, errnoPath("open", remote, syscall.EISDIR)
	}

	acc := flags & (os.O_RDONLY | os.O_WRONLY | os.O_RDWR)
	f := &file{
		c:      c,
		bucket: t.bucket,
		key:    t.key,
		path:   remote,
		read:   acc == os.O_RDONLY || acc == os.O_RDWR,
		write:  acc == os.O_WRONLY || acc == os.O_RDWR,
		append: flags&os.O_APPEND != 0,
	}

	e, err := c.lookup(ctx, "open", t)
	if err != nil {
		return nil, err
	}

	switch {
	case e.dir:
		if e.mode&0o400 == 0 {
			return nil, errnoPath("open", remote, syscall.EACCES)
		}
		return nil, errnoPath("open", remote, syscall.EISDIR)
	case !e.exists && flags&os.O_CREATE == 0:
		return nil, errnoPath("open", remote, syscall.ENOENT)
	case e.exists && flags&os.O_CREATE != 0 && flags&os.O_EXCL != 0:
		return nil, errnoPath("open", remote, syscall.EEXIST)
	case e.exists && ((f.read && e.mode&0o400 == 0) || (f.write && e.mode&0o200 == 0)):
		return nil, errnoPath("open", remote, syscall.EACCES)
	}

	if !e.exists {
		f.mode = uint32(perm.Perm())
		if err := c.putObject(ctx, t.bucket, t.key, nil, f.mode); err != nil {
			return nil, pathError("open", remote, err)
		}
		f.mtime = time.Now()
		f.loaded = f.write
		return f, nil
	}

	f.mode = e.mode
	f.size = e.size
	f.mtime = e.mtime

	if f.write {
		if flags&os.O_TRUNC != 0 {
			f.dirty = true
		} else if e.size > 0 {
			data, err := c.getAll(ctx, t.bucket, t.key)
			if err != nil {
				return nil, pathError("open", remote, err)
			}
			f.buf = data
		}
		f.loaded = true
	}
	return f, nil
}

// Rename implements native.Context. Directories are moved key by key.
func (c *Context) Rename(ctx context.Context, from, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := c.resolve("rename", from)
	if err != nil {
		return err
	}
	dst, err := c.resolve("rename", to)
	if err != nil {
		return err
	}
	if src.bucket != dst.bucket {
		return &os.LinkError{Op: "rename", Old: from, New: to, Err: syscall.EXDEV}
	}
	if c.isRoot(src) || c.isRoot(dst) {
		return &os.LinkError{Op: "rename", Old: from, New: to, Err: syscall.EACCES}
	}
	if strings.HasPrefix(dst.key+"/", src.dirKey()) {
		if dst.key == src.key {
			return nil
		}
		return &os.LinkError{Op: "rename", Old: from, New: to, Err: syscall.EINVAL}
	}

	e, err := c.lookup(ctx, "rename", src)
	if err != nil {
		return err
	}
	if !e.exists {
		return &os.LinkError{Op: "rename", Old: from, New: to, Err: syscall.ENOENT}
	}

	if !e.dir {
		if err := c.copyObject(ctx, src.bucket, src.key, dst.key, nil); err != nil {
			return pathError("rename", from, err)
		}
		return pathError("rename", from, c.deleteObject(ctx, src.bucket, src.key))
	}

	all, err := c.list(ctx, src.bucket, src.dirKey(), false, 0)
	if err != nil {
		return pathError("rename", from, err)
	}
	for _, key := range all.keys {
		newKey := dst.dirKey() + strings.TrimPrefix(key, src.dirKey())
		if err := c.copyObject(ctx, src.bucket, key, newKey, nil); err != nil {
			return pathError("rename", from, err)
		}
		if err := c.deleteObject(ctx, src.bucket, key); err != nil {
			return pathError("rename", from, err)
		}
	}
	return nil
}

// Unlink implements native.Context.
func (c *Context) Unlink(ctx context.Context, remote string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t, err := c.resolve("unlink", remote)
	if err != nil {
		return err
	}
	if c.isRoot(t) {
		return errnoPath("unlink", remote, syscall.EISDIR)
	}

	e, err := c.lookup(ctx, "unlink", t)
	switch {
	case err != nil:
		return err
	case !e.exists:
		return errnoPath("unlink", remote, syscall.ENOENT)
	case e.dir:
		return errnoPath("unlink", remote, syscall.EISDIR)
	}
	return pathError("unlink", remote, c.deleteObject(ctx, t.bucket, t.key))
}

// Mkdir implements native.Context by writing a marker object.
func (c *Context) Mkdir(ctx context.Context, remote string, perm fs.FileMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t, err := c.resolve("mkdir", remote)
	if err != nil {
		return err
	}
	if c.isRoot(t) {
		return errnoPath("mkdir", remote, syscall.EEXIST)
	}

	e, err := c.lookup(ctx, "mkdir", t)
	if err != nil {
		return err
	}
	if e.exists {
		return errnoPath("mkdir", remote, syscall.EEXIST)
	}
	return pathError("mkdir", remote, c.putObject(ctx, t.bucket, t.dirKey(), nil, uint32(perm.Perm())))
}

// Rmdir implements native.Context.
func (c *Context) Rmdir(ctx context.Context, remote string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t, err := c.resolve("rmdir", remote)
	if err != nil {
		return err
	}
	if c.isRoot(t) {
		return errnoPath("rmdir", remote, syscall.EACCES)
	}

	e, err := c.lookup(ctx, "rmdir", t)
	switch {
	case err != nil:
		return err
	case !e.exists:
		return errnoPath("rmdir", remote, syscall.ENOENT)
	case !e.dir:
		return errnoPath("rmdir", remote, syscall.ENOTDIR)
	}

	l, err := c.list(ctx, t.bucket, t.dirKey(), true, 2)
	if err != nil {
		return pathError("rmdir", remote, err)
	}
	for _, key := range l.keys {
		if key != t.dirKey() {
			return errnoPath("rmdir", remote, syscall.ENOTEMPTY)
		}
	}
	if len(l.prefixes) > 0 {
		return errnoPath("rmdir", remote, syscall.ENOTEMPTY)
	}
	return pathError("rmdir", remote, c.deleteObject(ctx, t.bucket, t.dirKey()))
}

// Chmod implements native.Context. File modes are rewritten in place with a
// metadata-replacing copy; directories get a marker object carrying the mode.
func (c *Context) Chmod(ctx context.Context, remote string, perm fs.FileMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t, err := c.resolve("chmod", remote)
	if err != nil {
		return err
	}
	if c.isRoot(t) {
		return errnoPath("chmod", remote, syscall.EPERM)
	}

	e, err := c.lookup(ctx, "chmod", t)
	switch {
	case err != nil:
		return err
	case !e.exists:
		return errnoPath("chmod", remote, syscall.ENOENT)
	case e.dir:
		return pathError("chmod", remote, c.putObject(ctx, t.bucket, t.dirKey(), nil, uint32(perm.Perm())))
	}
	meta := modeMetadata(uint32(perm.Perm()))
	return pathError("chmod", remote, c.copyObject(ctx, t.bucket, t.key, t.key, meta))
}

// Opendir implements native.Context. A path without a share lists buckets.
func (c *Context) Opendir(ctx context.Context, remote string) (native.Dir, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := c.resolve("opendir", remote)
	if err != nil {
		return nil, err
	}

	if t.bucket == "" {
		return &dir{list: func(ctx context.Context) ([]native.Dirent, error) {
			names, err := c.listBuckets(ctx)
			if err != nil {
				return nil, pathError("readdir", remote, err)
			}
			out := make([]native.Dirent, 0, len(names))
			for _, n := range names {
				out = append(out, native.Dirent{Name: n, Type: native.EntryShare})
			}
			return out, nil
		}}, nil
	}

	e, err := c.lookup(ctx, "opendir", t)
	switch {
	case err != nil:
		return nil, err
	case !e.exists:
		return nil, errnoPath("opendir", remote, syscall.ENOENT)
	case !e.dir:
		return nil, errnoPath("opendir", remote, syscall.ENOTDIR)
	case e.mode&0o400 == 0:
		return nil, errnoPath("opendir", remote, syscall.EACCES)
	}

	prefix := t.dirKey()
	return &dir{list: func(ctx context.Context) ([]native.Dirent, error) {
		l, err := c.list(ctx, t.bucket, prefix, true, 0)
		if err != nil {
			return nil, pathError("readdir", remote, err)
		}
		out := make([]native.Dirent, 0, len(l.prefixes)+len(l.keys))
		for _, p := range l.prefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(p, prefix), "/")
			out = append(out, native.Dirent{Name: name, Type: native.EntryDir})
		}
		for _, k := range l.keys {
			if k == prefix {
				continue
			}
			out = append(out, native.Dirent{Name: strings.TrimPrefix(k, prefix), Type: native.EntryFile})
		}
		return out, nil
	}}, nil
}
