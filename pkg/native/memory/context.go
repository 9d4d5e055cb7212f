package memory

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/marmos91/remotefs/pkg/native"
	"github.com/marmos91/remotefs/pkg/smburl"
)

// Context is a native.Context bound to one server of a Driver.
type Context struct {
	driver *Driver
	opts   native.ContextOptions

	mu    sync.Mutex
	srv   *server
	creds native.Credentials
	freed bool
}

var _ native.Context = (*Context)(nil)

// Credentials returns what the auth callback supplied during Init.
func (c *Context) Credentials() native.Credentials {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds
}

// Init implements native.Context.
func (c *Context) Init(ctx context.Context) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	var creds native.Credentials
	if c.opts.Auth != nil {
		creds = c.opts.Auth(c.opts.Server, "")
	}

	c.driver.mu.Lock()
	srv := c.driver.serverLocked(c.opts.Server, c.driver.cfg.AutoCreate)
	c.driver.mu.Unlock()

	if srv == nil {
		return fmt.Errorf("memory: no route to server %q: %w", c.opts.Server, syscall.ECONNREFUSED)
	}

	c.driver.mu.RLock()
	err := srv.authenticate(creds)
	c.driver.mu.RUnlock()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.srv = srv
	c.creds = creds
	c.mu.Unlock()
	return nil
}

// Free implements native.Context.
func (c *Context) Free() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.freed {
		return fmt.Errorf("memory: context for %s freed twice: %w", c.opts.Server, fs.ErrClosed)
	}
	c.freed = true
	c.srv = nil
	c.driver.contexts.Add(-1)
	return nil
}

func (c *Context) server() (*server, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.srv == nil {
		return nil, fmt.Errorf("memory: context for %s is not initialized: %w", c.opts.Server, syscall.ENOTCONN)
	}
	return c.srv, nil
}

// locate decodes path and checks it targets this context's server.
func (c *Context) locate(op, path string) (*server, smburl.Location, error) {
	srv, err := c.server()
	if err != nil {
		return nil, smburl.Location{}, err
	}
	loc := smburl.SplitRemotePath(path)
	if !strings.EqualFold(loc.Host, c.opts.Server) {
		return nil, loc, &fs.PathError{Op: op, Path: path, Err: syscall.EINVAL}
	}
	return srv, loc, nil
}

// shareLocked returns the root of the addressed share. Caller holds d.mu.
func (c *Context) shareLocked(srv *server, loc smburl.Location) (*node, bool) {
	root, ok := srv.shares[loc.Share]
	if !ok && c.driver.cfg.AutoCreate && loc.Share != "" {
		root = c.driver.newNode(loc.Share, true, 0o777)
		srv.shares[loc.Share] = root
		ok = true
	}
	return root, ok
}

// walkLocked resolves loc to a node. Caller holds d.mu.
func (c *Context) walkLocked(srv *server, loc smburl.Location) (*node, syscall.Errno) {
	root, ok := c.shareLocked(srv, loc)
	if !ok {
		return nil, syscall.ENOENT
	}
	if loc.IsShareRoot() {
		return root, 0
	}

	cur := root
	for _, seg := range strings.Split(loc.Path, "/") {
		if !cur.dir {
			return nil, syscall.ENOTDIR
		}
		next, ok := cur.children[seg]
		if !ok {
			return nil, syscall.ENOENT
		}
		cur = next
	}
	return cur, 0
}

// parentLocked resolves the directory that holds loc. Caller holds d.mu.
func (c *Context) parentLocked(srv *server, loc smburl.Location) (*node, string, syscall.Errno) {
	if loc.IsShareRoot() {
		return nil, "", syscall.EACCES
	}
	parentPath, name := splitParent(loc.Path)
	parent, errno := c.walkLocked(srv, smburl.Location{
		Protocol: loc.Protocol,
		Host:     loc.Host,
		Share:    loc.Share,
		Path:     parentPath,
	})
	if errno != 0 {
		return nil, "", errno
	}
	if !parent.dir {
		return nil, "", syscall.ENOTDIR
	}
	return parent, name, 0
}

// Open implements native.Context.
func (c *Context) Open(ctx context.Context, path string, flags int, perm fs.FileMode) (native.File, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	srv, loc, err := c.locate("open", path)
	if err != nil {
		return nil, err
	}

	d := c.driver
	d.mu.Lock()
	defer d.mu.Unlock()

	fail := func(errno syscall.Errno) (native.File, error) {
		return nil, &fs.PathError{Op: "open", Path: path, Err: errno}
	}

	acc := flags & (os.O_RDONLY | os.O_WRONLY | os.O_RDWR)
	wantRead := acc == os.O_RDONLY || acc == os.O_RDWR
	wantWrite := acc == os.O_WRONLY || acc == os.O_RDWR

	n, errno := c.walkLocked(srv, loc)
	switch {
	case errno == syscall.ENOENT && flags&os.O_CREATE != 0:
		parent, name, perrno := c.parentLocked(srv, loc)
		if perrno != 0 {
			return fail(perrno)
		}
		if !parent.canWrite() {
			return fail(syscall.EACCES)
		}
		n = d.newNode(name, false, uint32(perm.Perm()))
		parent.children[name] = n
		parent.touch()
	case errno != 0:
		return fail(errno)
	case flags&os.O_CREATE != 0 && flags&os.O_EXCL != 0:
		return fail(syscall.EEXIST)
	case n.dir:
		if !n.canRead() {
			return fail(syscall.EACCES)
		}
		return fail(syscall.EISDIR)
	default:
		if (wantRead && !n.canRead()) || (wantWrite && !n.canWrite()) {
			return fail(syscall.EACCES)
		}
	}

	if flags&os.O_TRUNC != 0 && wantWrite {
		n.data = nil
		n.touch()
	}

	d.openFiles.Add(1)
	return &file{
		driver: d,
		node:   n,
		path:   path,
		read:   wantRead,
		write:  wantWrite,
		append: flags&os.O_APPEND != 0,
	}, nil
}

// Stat implements native.Context.
func (c *Context) Stat(ctx context.Context, path string) (native.Stat, error) {
	if err := checkContext(ctx); err != nil {
		return native.Stat{}, err
	}
	srv, loc, err := c.locate("stat", path)
	if err != nil {
		return native.Stat{}, err
	}

	c.driver.mu.Lock()
	defer c.driver.mu.Unlock()

	n, errno := c.walkLocked(srv, loc)
	if errno != 0 {
		return native.Stat{}, &fs.PathError{Op: "stat", Path: path, Err: errno}
	}
	return n.stat(c.driver.cfg.OptimisticModes), nil
}

// Rename implements native.Context.
func (c *Context) Rename(ctx context.Context, from, to string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	srv, src, err := c.locate("rename", from)
	if err != nil {
		return err
	}
	_, dst, err := c.locate("rename", to)
	if err != nil {
		return err
	}

	fail := func(errno syscall.Errno) error {
		return &os.LinkError{Op: "rename", Old: from, New: to, Err: errno}
	}
	if src.Share != dst.Share {
		return fail(syscall.EXDEV)
	}

	c.driver.mu.Lock()
	defer c.driver.mu.Unlock()

	n, errno := c.walkLocked(srv, src)
	if errno != 0 {
		return fail(errno)
	}
	srcParent, srcName, errno := c.parentLocked(srv, src)
	if errno != 0 {
		return fail(errno)
	}
	dstParent, dstName, errno := c.parentLocked(srv, dst)
	if errno != 0 {
		return fail(errno)
	}
	if !srcParent.canWrite() || !dstParent.canWrite() {
		return fail(syscall.EACCES)
	}
	if n == dstParent || n.isAncestorOf(dstParent) {
		return fail(syscall.EINVAL)
	}

	if existing, ok := dstParent.children[dstName]; ok {
		if existing == n {
			return nil
		}
		switch {
		case existing.dir && !n.dir:
			return fail(syscall.EISDIR)
		case !existing.dir && n.dir:
			return fail(syscall.ENOTDIR)
		case existing.dir && len(existing.children) > 0:
			return fail(syscall.ENOTEMPTY)
		}
	}

	delete(srcParent.children, srcName)
	n.name = dstName
	dstParent.children[dstName] = n
	srcParent.touch()
	dstParent.touch()
	n.ctime = dstParent.mtime
	return nil
}

// Unlink implements native.Context.
func (c *Context) Unlink(ctx context.Context, path string) error {
	return c.remove(ctx, "unlink", path, false)
}

// Rmdir implements native.Context.
func (c *Context) Rmdir(ctx context.Context, path string) error {
	return c.remove(ctx, "rmdir", path, true)
}

func (c *Context) remove(ctx context.Context, op, path string, wantDir bool) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	srv, loc, err := c.locate(op, path)
	if err != nil {
		return err
	}

	fail := func(errno syscall.Errno) error {
		return &fs.PathError{Op: op, Path: path, Err: errno}
	}

	c.driver.mu.Lock()
	defer c.driver.mu.Unlock()

	n, errno := c.walkLocked(srv, loc)
	if errno != 0 {
		return fail(errno)
	}
	parent, name, errno := c.parentLocked(srv, loc)
	if errno != 0 {
		return fail(errno)
	}
	switch {
	case wantDir && !n.dir:
		return fail(syscall.ENOTDIR)
	case !wantDir && n.dir:
		return fail(syscall.EISDIR)
	case wantDir && len(n.children) > 0:
		return fail(syscall.ENOTEMPTY)
	case !parent.canWrite():
		return fail(syscall.EACCES)
	}

	delete(parent.children, name)
	parent.touch()
	return nil
}

// Mkdir implements native.Context.
func (c *Context) Mkdir(ctx context.Context, path string, perm fs.FileMode) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	srv, loc, err := c.locate("mkdir", path)
	if err != nil {
		return err
	}

	fail := func(errno syscall.Errno) error {
		return &fs.PathError{Op: "mkdir", Path: path, Err: errno}
	}

	c.driver.mu.Lock()
	defer c.driver.mu.Unlock()

	if _, errno := c.walkLocked(srv, loc); errno == 0 {
		return fail(syscall.EEXIST)
	}
	parent, name, errno := c.parentLocked(srv, loc)
	if errno != 0 {
		return fail(errno)
	}
	if !parent.canWrite() {
		return fail(syscall.EACCES)
	}

	parent.children[name] = c.driver.newNode(name, true, uint32(perm.Perm()))
	parent.touch()
	return nil
}

// Chmod implements native.Context.
func (c *Context) Chmod(ctx context.Context, path string, perm fs.FileMode) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	srv, loc, err := c.locate("chmod", path)
	if err != nil {
		return err
	}

	c.driver.mu.Lock()
	defer c.driver.mu.Unlock()

	n, errno := c.walkLocked(srv, loc)
	if errno != 0 {
		return &fs.PathError{Op: "chmod", Path: path, Err: errno}
	}
	n.perm = uint32(perm.Perm())
	n.ctime = n.mtime
	return nil
}

// Opendir implements native.Context. A path without a share lists the
// server's shares.
func (c *Context) Opendir(ctx context.Context, path string) (native.Dir, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	srv, loc, err := c.locate("opendir", path)
	if err != nil {
		return nil, err
	}

	d := c.driver
	if loc.Share == "" {
		d.openDirs.Add(1)
		return &dir{driver: d, list: func() []native.Dirent { return c.shareEntries(srv) }}, nil
	}

	d.mu.Lock()
	n, errno := c.walkLocked(srv, loc)
	switch {
	case errno != 0:
	case !n.dir:
		errno = syscall.ENOTDIR
	case !n.canRead():
		errno = syscall.EACCES
	}
	d.mu.Unlock()
	if errno != 0 {
		return nil, &fs.PathError{Op: "opendir", Path: path, Err: errno}
	}

	d.openDirs.Add(1)
	return &dir{driver: d, list: func() []native.Dirent {
		d.mu.RLock()
		defer d.mu.RUnlock()
		return n.entries()
	}}, nil
}

func (c *Context) shareEntries(srv *server) []native.Dirent {
	c.driver.mu.RLock()
	defer c.driver.mu.RUnlock()

	root := &node{dir: true, children: srv.shares}
	entries := root.entries()
	for i := range entries {
		entries[i].Type = native.EntryShare
	}
	return entries
}
