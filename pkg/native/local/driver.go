// Package local implements a native driver over the local filesystem.
//
// Every server is a directory under Root and every share a directory below
// it, so smb://host/share/a/b resolves to <Root>/<host>/<share>/a/b. Hosts
// are matched lowercased. Credentials are accepted as supplied; access is
// governed by the permissions of the process.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/marmos91/remotefs/internal/logger"
	"github.com/marmos91/remotefs/pkg/native"
	"github.com/marmos91/remotefs/pkg/smburl"
)

// DriverName is reported by Driver.Name.
const DriverName = "local"

// Config configures a Driver.
type Config struct {
	// Root holds one directory per server.
	Root string `mapstructure:"root" yaml:"root" validate:"required"`

	// AutoCreate creates missing server and share directories on first use.
	AutoCreate bool `mapstructure:"auto_create" yaml:"auto_create"`

	// DirMode is used for directories created by AutoCreate. Default 0755.
	DirMode fs.FileMode `mapstructure:"dir_mode" yaml:"dir_mode"`
}

// Driver is a native.Driver backed by the local filesystem.
type Driver struct {
	cfg      Config
	contexts atomic.Int64
}

var _ native.Driver = (*Driver)(nil)

// NewDriver validates cfg and creates a driver. Root must exist unless
// AutoCreate is set, in which case it is created.
func NewDriver(cfg Config) (*Driver, error) {
	if cfg.Root == "" {
		return nil, errors.New("local: root is required")
	}
	if cfg.DirMode == 0 {
		cfg.DirMode = 0o755
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("local: resolve root: %w", err)
	}
	cfg.Root = root

	if cfg.AutoCreate {
		if err := os.MkdirAll(root, cfg.DirMode); err != nil {
			return nil, fmt.Errorf("local: create root: %w", err)
		}
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("local: root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("local: root %s is not a directory", root)
	}

	return &Driver{cfg: cfg}, nil
}

// Name implements native.Driver.
func (d *Driver) Name() string {
	return DriverName
}

// Root returns the absolute root directory.
func (d *Driver) Root() string {
	return d.cfg.Root
}

// LiveContexts returns the number of contexts that have not been freed.
func (d *Driver) LiveContexts() int {
	return int(d.contexts.Load())
}

// NewContext implements native.Driver.
func (d *Driver) NewContext(opts native.ContextOptions) (native.Context, error) {
	if opts.Server == "" || !validName(opts.Server) {
		return nil, fmt.Errorf("local: invalid server name %q: %w", opts.Server, syscall.EINVAL)
	}
	d.contexts.Add(1)
	return &Context{
		driver: d,
		opts:   opts,
		dir:    filepath.Join(d.cfg.Root, strings.ToLower(opts.Server)),
	}, nil
}

// Context is a native.Context bound to one server directory.
type Context struct {
	driver *Driver
	opts   native.ContextOptions
	dir    string

	ready atomic.Bool
	freed atomic.Bool
}

var _ native.Context = (*Context)(nil)

// Init implements native.Context. An unknown server is refused.
func (c *Context) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if c.opts.Auth != nil {
		creds := c.opts.Auth(c.opts.Server, "")
		logger.DebugCtx(ctx, "Local context authenticating",
			logger.KeyHost, c.opts.Server,
			logger.KeyUser, creds.Username,
			logger.KeyWorkgroup, creds.Workgroup)
	}

	if c.driver.cfg.AutoCreate {
		if err := os.MkdirAll(c.dir, c.driver.cfg.DirMode); err != nil {
			return err
		}
	}

	info, err := os.Stat(c.dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("local: no route to server %q: %w", c.opts.Server, syscall.ECONNREFUSED)
	}
	c.ready.Store(true)
	return nil
}

// Free implements native.Context.
func (c *Context) Free() error {
	if c.freed.Swap(true) {
		return fmt.Errorf("local: context for %s freed twice: %w", c.opts.Server, fs.ErrClosed)
	}
	c.driver.contexts.Add(-1)
	return nil
}

// resolve maps a canonical remote path to a local path.
func (c *Context) resolve(op, remote string) (string, smburl.Location, error) {
	if !c.ready.Load() || c.freed.Load() {
		return "", smburl.Location{}, fmt.Errorf("local: context for %s is not connected: %w", c.opts.Server, syscall.ENOTCONN)
	}

	loc := smburl.SplitRemotePath(remote)
	if !strings.EqualFold(loc.Host, c.opts.Server) {
		return "", loc, &fs.PathError{Op: op, Path: remote, Err: syscall.EINVAL}
	}
	if loc.Share == "" {
		return c.dir, loc, nil
	}
	if !validName(loc.Share) {
		return "", loc, &fs.PathError{Op: op, Path: remote, Err: syscall.EINVAL}
	}

	share := filepath.Join(c.dir, loc.Share)
	if c.driver.cfg.AutoCreate {
		if err := os.MkdirAll(share, c.driver.cfg.DirMode); err != nil {
			return "", loc, err
		}
	}
	return filepath.Join(share, filepath.FromSlash(loc.Path)), loc, nil
}

// validName rejects names that would leave their parent directory.
func validName(name string) bool {
	return name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

// Open implements native.Context. Directories cannot be opened as files.
func (c *Context) Open(ctx context.Context, remote string, flags int, perm fs.FileMode) (native.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, loc, err := c.resolve("open", remote)
	if err != nil {
		return nil, err
	}
	if loc.Share == "" {
		return nil, &fs.PathError{Op: "open", Path: remote, Err: syscall.EISDIR}
	}

	f, err := os.OpenFile(p, flags, perm)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, &fs.PathError{Op: "open", Path: remote, Err: syscall.EISDIR}
	}
	return &file{f: f}, nil
}

// Stat implements native.Context.
func (c *Context) Stat(ctx context.Context, remote string) (native.Stat, error) {
	if err := ctx.Err(); err != nil {
		return native.Stat{}, err
	}
	p, _, err := c.resolve("stat", remote)
	if err != nil {
		return native.Stat{}, err
	}
	return statPath(p)
}

// Rename implements native.Context. Both paths must be on the same share.
func (c *Context) Rename(ctx context.Context, from, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, srcLoc, err := c.resolve("rename", from)
	if err != nil {
		return err
	}
	dst, dstLoc, err := c.resolve("rename", to)
	if err != nil {
		return err
	}
	if srcLoc.Share != dstLoc.Share {
		return &os.LinkError{Op: "rename", Old: from, New: to, Err: syscall.EXDEV}
	}
	if srcLoc.IsShareRoot() || dstLoc.IsShareRoot() {
		return &os.LinkError{Op: "rename", Old: from, New: to, Err: syscall.EACCES}
	}
	return os.Rename(src, dst)
}

// Unlink implements native.Context.
func (c *Context) Unlink(ctx context.Context, remote string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, _, err := c.resolve("unlink", remote)
	if err != nil {
		return err
	}
	info, err := os.Lstat(p)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return &fs.PathError{Op: "unlink", Path: remote, Err: syscall.EISDIR}
	}
	return os.Remove(p)
}

// Mkdir implements native.Context.
func (c *Context) Mkdir(ctx context.Context, remote string, perm fs.FileMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, loc, err := c.resolve("mkdir", remote)
	if err != nil {
		return err
	}
	if loc.IsShareRoot() {
		return &fs.PathError{Op: "mkdir", Path: remote, Err: syscall.EEXIST}
	}
	return os.Mkdir(p, perm)
}

// Rmdir implements native.Context.
func (c *Context) Rmdir(ctx context.Context, remote string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, loc, err := c.resolve("rmdir", remote)
	if err != nil {
		return err
	}
	if loc.IsShareRoot() {
		return &fs.PathError{Op: "rmdir", Path: remote, Err: syscall.EACCES}
	}
	info, err := os.Lstat(p)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &fs.PathError{Op: "rmdir", Path: remote, Err: syscall.ENOTDIR}
	}
	return os.Remove(p)
}

// Chmod implements native.Context.
func (c *Context) Chmod(ctx context.Context, remote string, perm fs.FileMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, _, err := c.resolve("chmod", remote)
	if err != nil {
		return err
	}
	return os.Chmod(p, perm.Perm())
}

// Opendir implements native.Context. A path without a share lists the
// server's share directories.
func (c *Context) Opendir(ctx context.Context, remote string) (native.Dir, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, loc, err := c.resolve("opendir", remote)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "opendir", Path: remote, Err: syscall.ENOTDIR}
	}

	// Fail now on unreadable directories, as opendir(3) would.
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	_ = f.Close()

	return &dir{path: p, shares: loc.Share == ""}, nil
}
