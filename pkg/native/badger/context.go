package badger

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/marmos91/remotefs/pkg/native"
	"github.com/marmos91/remotefs/pkg/smburl"
)

// Context is a native.Context bound to one host of a Driver.
type Context struct {
	driver *Driver
	opts   native.ContextOptions

	mu    sync.Mutex
	ready bool
	freed bool
}

var _ native.Context = (*Context)(nil)

// shareRoot returns the root inode id of host/share, creating it when
// create is set.
func (d *Driver) shareRoot(txn *badgerdb.Txn, host, share string, create bool) (uuid.UUID, error) {
	id, err := getID(txn, keyShare(host, share))
	if err == nil || !errors.Is(err, syscall.ENOENT) || !create || share == "" {
		return id, err
	}

	root := newInode(true, 0o777)
	if err := putInode(txn, root); err != nil {
		return uuid.Nil, err
	}
	if err := txn.Set(keyShare(host, share), root.ID[:]); err != nil {
		return uuid.Nil, err
	}
	return root.ID, nil
}

// hostExists reports whether any share is registered on host.
func hostExists(txn *badgerdb.Txn, host string) bool {
	opts := badgerdb.DefaultIteratorOptions
	opts.Prefix = keyHostShares(host)
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()
	it.Rewind()
	return it.Valid()
}

// Init implements native.Context. Servers without shares are unreachable
// unless the driver auto-creates them.
func (c *Context) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.opts.Auth != nil {
		_ = c.opts.Auth(c.opts.Server, "")
	}

	host := strings.ToLower(c.opts.Server)
	if !c.driver.cfg.AutoCreate {
		var known bool
		err := c.driver.view(ctx, "connect", func(txn *badgerdb.Txn) error {
			known = hostExists(txn, host)
			return nil
		})
		if err != nil {
			return err
		}
		if !known {
			return fmt.Errorf("badger: no route to server %q: %w", c.opts.Server, syscall.ECONNREFUSED)
		}
	}

	c.mu.Lock()
	c.ready = true
	c.mu.Unlock()
	return nil
}

// Free implements native.Context.
func (c *Context) Free() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.freed {
		return fmt.Errorf("badger: context for %s freed twice: %w", c.opts.Server, fs.ErrClosed)
	}
	c.freed = true
	c.ready = false
	c.driver.contexts.Add(-1)
	return nil
}

// locate decodes path and checks it targets this context's server.
func (c *Context) locate(op, path string) (smburl.Location, error) {
	c.mu.Lock()
	ready := c.ready
	c.mu.Unlock()
	if !ready {
		return smburl.Location{}, fmt.Errorf("badger: context for %s is not initialized: %w", c.opts.Server, syscall.ENOTCONN)
	}

	loc := smburl.SplitRemotePath(path)
	if !strings.EqualFold(loc.Host, c.opts.Server) || strings.Contains(loc.Share, "/") {
		return loc, &fs.PathError{Op: op, Path: path, Err: syscall.EINVAL}
	}
	return loc, nil
}

// txn runs fn in a read-write transaction when write is set or shares may
// be auto-created, and in a read-only one otherwise.
func (c *Context) txn(ctx context.Context, op string, write bool, fn func(txn *badgerdb.Txn) error) error {
	if write || c.driver.cfg.AutoCreate {
		return c.driver.update(ctx, op, fn)
	}
	return c.driver.view(ctx, op, fn)
}

// walk resolves loc to an inode. The host root has no inode and yields
// EISDIR; callers handle it first.
func (c *Context) walk(txn *badgerdb.Txn, loc smburl.Location) (*inode, error) {
	if loc.Share == "" {
		return nil, syscall.EISDIR
	}
	id, err := c.driver.shareRoot(txn, strings.ToLower(c.opts.Server), loc.Share, c.driver.cfg.AutoCreate)
	if err != nil {
		return nil, err
	}
	n, err := getInode(txn, id)
	if err != nil || loc.IsShareRoot() {
		return n, err
	}

	for _, seg := range strings.Split(loc.Path, "/") {
		if !n.Dir {
			return nil, syscall.ENOTDIR
		}
		id, err := getID(txn, keyEntry(n.ID, seg))
		if err != nil {
			return nil, err
		}
		if n, err = getInode(txn, id); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// parent resolves the directory holding loc and the entry name.
func (c *Context) parent(txn *badgerdb.Txn, loc smburl.Location) (*inode, string, error) {
	if loc.IsShareRoot() {
		return nil, "", syscall.EACCES
	}
	dir, name := splitParent(loc.Path)
	p, err := c.walk(txn, smburl.Location{
		Protocol: loc.Protocol,
		Host:     loc.Host,
		Share:    loc.Share,
		Path:     dir,
	})
	if err != nil {
		return nil, "", err
	}
	if !p.Dir {
		return nil, "", syscall.ENOTDIR
	}
	return p, name, nil
}

func splitParent(rel string) (parent, name string) {
	i := strings.LastIndex(rel, "/")
	if i < 0 {
		return "", rel
	}
	return rel[:i], rel[i+1:]
}

func hostRootStat() native.Stat {
	return native.Stat{
		Mode:    native.ModeDir | 0o755,
		Nlink:   2,
		Blksize: native.DefaultBlockSize,
	}
}

// Open implements native.Context.
func (c *Context) Open(ctx context.Context, path string, flags int, perm fs.FileMode) (native.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	loc, err := c.locate("open", path)
	if err != nil {
		return nil, err
	}
	if loc.Share == "" {
		return nil, &fs.PathError{Op: "open", Path: path, Err: syscall.EISDIR}
	}

	acc := flags & (os.O_RDONLY | os.O_WRONLY | os.O_RDWR)
	f := &file{
		driver: c.driver,
		path:   path,
		read:   acc == os.O_RDONLY || acc == os.O_RDWR,
		write:  acc == os.O_WRONLY || acc == os.O_RDWR,
		append: flags&os.O_APPEND != 0,
	}
	create := flags&os.O_CREATE != 0

	err = c.txn(ctx, "open", create || flags&os.O_TRUNC != 0, func(txn *badgerdb.Txn) error {
		n, err := c.walk(txn, loc)
		switch {
		case errors.Is(err, syscall.ENOENT) && create:
			p, name, err := c.parent(txn, loc)
			if err != nil {
				return err
			}
			if !p.canWrite() {
				return syscall.EACCES
			}
			n = newInode(false, uint32(perm.Perm()))
			if err := putInode(txn, n); err != nil {
				return err
			}
			if err := txn.Set(keyEntry(p.ID, name), n.ID[:]); err != nil {
				return err
			}
			p.touch()
			if err := putInode(txn, p); err != nil {
				return err
			}
			f.node = *n
			return nil
		case err != nil:
			return err
		case create && flags&os.O_EXCL != 0:
			return syscall.EEXIST
		case n.Dir:
			if !n.canRead() {
				return syscall.EACCES
			}
			return syscall.EISDIR
		case (f.read && !n.canRead()) || (f.write && !n.canWrite()):
			return syscall.EACCES
		}

		if flags&os.O_TRUNC != 0 && f.write {
			n.Size = 0
			n.touch()
			if err := txn.Delete(keyData(n.ID)); err != nil {
				return err
			}
			if err := putInode(txn, n); err != nil {
				return err
			}
		} else {
			data, err := getData(txn, n.ID)
			if err != nil {
				return err
			}
			f.buf = data
		}
		f.node = *n
		return nil
	})
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: path, Err: err}
	}

	c.driver.openFiles.Add(1)
	return f, nil
}

// Stat implements native.Context.
func (c *Context) Stat(ctx context.Context, path string) (native.Stat, error) {
	if err := ctx.Err(); err != nil {
		return native.Stat{}, err
	}
	loc, err := c.locate("stat", path)
	if err != nil {
		return native.Stat{}, err
	}
	if loc.Share == "" {
		return hostRootStat(), nil
	}

	var st native.Stat
	err = c.txn(ctx, "stat", false, func(txn *badgerdb.Txn) error {
		n, err := c.walk(txn, loc)
		if err != nil {
			return err
		}
		st = n.stat()
		return nil
	})
	if err != nil {
		return native.Stat{}, &fs.PathError{Op: "stat", Path: path, Err: err}
	}
	return st, nil
}

// Rename implements native.Context.
func (c *Context) Rename(ctx context.Context, from, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := c.locate("rename", from)
	if err != nil {
		return err
	}
	dst, err := c.locate("rename", to)
	if err != nil {
		return err
	}

	fail := func(err error) error {
		return &os.LinkError{Op: "rename", Old: from, New: to, Err: err}
	}
	if src.Share != dst.Share {
		return fail(syscall.EXDEV)
	}
	if src.Share == "" {
		return fail(syscall.EACCES)
	}
	if src.Path == dst.Path {
		return nil
	}
	if strings.HasPrefix(dst.Path+"/", src.Path+"/") {
		return fail(syscall.EINVAL)
	}

	err = c.txn(ctx, "rename", true, func(txn *badgerdb.Txn) error {
		n, err := c.walk(txn, src)
		if err != nil {
			return err
		}
		srcParent, srcName, err := c.parent(txn, src)
		if err != nil {
			return err
		}
		dstParent, dstName, err := c.parent(txn, dst)
		if err != nil {
			return err
		}
		if !srcParent.canWrite() || !dstParent.canWrite() {
			return syscall.EACCES
		}

		existingID, err := getID(txn, keyEntry(dstParent.ID, dstName))
		switch {
		case err == nil:
			existing, err := getInode(txn, existingID)
			if err != nil {
				return err
			}
			switch {
			case existing.Dir && !n.Dir:
				return syscall.EISDIR
			case !existing.Dir && n.Dir:
				return syscall.ENOTDIR
			case existing.Dir:
				children, err := listEntries(txn, existing.ID, 1)
				if err != nil {
					return err
				}
				if len(children) > 0 {
					return syscall.ENOTEMPTY
				}
			}
			if err := deleteInode(txn, existing.ID); err != nil {
				return err
			}
		case !errors.Is(err, syscall.ENOENT):
			return err
		}

		if err := txn.Delete(keyEntry(srcParent.ID, srcName)); err != nil {
			return err
		}
		if err := txn.Set(keyEntry(dstParent.ID, dstName), n.ID[:]); err != nil {
			return err
		}

		srcParent.touch()
		if err := putInode(txn, srcParent); err != nil {
			return err
		}
		if dstParent.ID != srcParent.ID {
			dstParent.touch()
			if err := putInode(txn, dstParent); err != nil {
				return err
			}
		}
		n.Ctime = srcParent.Mtime
		return putInode(txn, n)
	})
	if err != nil {
		return fail(err)
	}
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
	if err := ctx.Err(); err != nil {
		return err
	}
	loc, err := c.locate(op, path)
	if err != nil {
		return err
	}
	if loc.Share == "" {
		return &fs.PathError{Op: op, Path: path, Err: syscall.EACCES}
	}

	err = c.txn(ctx, op, true, func(txn *badgerdb.Txn) error {
		n, err := c.walk(txn, loc)
		if err != nil {
			return err
		}
		p, name, err := c.parent(txn, loc)
		if err != nil {
			return err
		}
		switch {
		case wantDir && !n.Dir:
			return syscall.ENOTDIR
		case !wantDir && n.Dir:
			return syscall.EISDIR
		case !p.canWrite():
			return syscall.EACCES
		}
		if wantDir {
			children, err := listEntries(txn, n.ID, 1)
			if err != nil {
				return err
			}
			if len(children) > 0 {
				return syscall.ENOTEMPTY
			}
		}

		if err := txn.Delete(keyEntry(p.ID, name)); err != nil {
			return err
		}
		if err := deleteInode(txn, n.ID); err != nil {
			return err
		}
		p.touch()
		return putInode(txn, p)
	})
	if err != nil {
		return &fs.PathError{Op: op, Path: path, Err: err}
	}
	return nil
}

// Mkdir implements native.Context.
func (c *Context) Mkdir(ctx context.Context, path string, perm fs.FileMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc, err := c.locate("mkdir", path)
	if err != nil {
		return err
	}
	if loc.Share == "" {
		return &fs.PathError{Op: "mkdir", Path: path, Err: syscall.EEXIST}
	}

	err = c.txn(ctx, "mkdir", true, func(txn *badgerdb.Txn) error {
		_, err := c.walk(txn, loc)
		if err == nil {
			return syscall.EEXIST
		}
		if !errors.Is(err, syscall.ENOENT) {
			return err
		}
		p, name, err := c.parent(txn, loc)
		if err != nil {
			return err
		}
		if !p.canWrite() {
			return syscall.EACCES
		}

		n := newInode(true, uint32(perm.Perm()))
		if err := putInode(txn, n); err != nil {
			return err
		}
		if err := txn.Set(keyEntry(p.ID, name), n.ID[:]); err != nil {
			return err
		}
		p.touch()
		return putInode(txn, p)
	})
	if err != nil {
		return &fs.PathError{Op: "mkdir", Path: path, Err: err}
	}
	return nil
}

// Chmod implements native.Context.
func (c *Context) Chmod(ctx context.Context, path string, perm fs.FileMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc, err := c.locate("chmod", path)
	if err != nil {
		return err
	}
	if loc.Share == "" {
		return &fs.PathError{Op: "chmod", Path: path, Err: syscall.EPERM}
	}

	err = c.txn(ctx, "chmod", true, func(txn *badgerdb.Txn) error {
		n, err := c.walk(txn, loc)
		if err != nil {
			return err
		}
		n.Mode = uint32(perm.Perm())
		n.Ctime = time.Now()
		return putInode(txn, n)
	})
	if err != nil {
		return &fs.PathError{Op: "chmod", Path: path, Err: err}
	}
	return nil
}

// Opendir implements native.Context. The host root lists shares.
func (c *Context) Opendir(ctx context.Context, path string) (native.Dir, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	loc, err := c.locate("opendir", path)
	if err != nil {
		return nil, err
	}
	host := strings.ToLower(c.opts.Server)

	if loc.Share == "" {
		return &dir{list: func(ctx context.Context) ([]native.Dirent, error) {
			var out []native.Dirent
			err := c.driver.view(ctx, "readdir", func(txn *badgerdb.Txn) error {
				prefix := keyHostShares(host)
				opts := badgerdb.DefaultIteratorOptions
				opts.Prefix = prefix
				opts.PrefetchValues = false
				it := txn.NewIterator(opts)
				defer it.Close()
				for it.Rewind(); it.Valid(); it.Next() {
					name := strings.TrimPrefix(string(it.Item().Key()), string(prefix))
					out = append(out, native.Dirent{Name: name, Type: native.EntryShare})
				}
				return nil
			})
			return out, err
		}}, nil
	}

	var id uuid.UUID
	err = c.txn(ctx, "opendir", false, func(txn *badgerdb.Txn) error {
		n, err := c.walk(txn, loc)
		switch {
		case err != nil:
			return err
		case !n.Dir:
			return syscall.ENOTDIR
		case !n.canRead():
			return syscall.EACCES
		}
		id = n.ID
		return nil
	})
	if err != nil {
		return nil, &fs.PathError{Op: "opendir", Path: path, Err: err}
	}

	return &dir{list: func(ctx context.Context) ([]native.Dirent, error) {
		var out []native.Dirent
		err := c.driver.view(ctx, "readdir", func(txn *badgerdb.Txn) error {
			entries, err := listEntries(txn, id, 0)
			if err != nil {
				return err
			}
			out = make([]native.Dirent, 0, len(entries))
			for _, e := range entries {
				n, err := getInode(txn, e.id)
				if err != nil {
					return err
				}
				typ := native.EntryFile
				if n.Dir {
					typ = native.EntryDir
				}
				out = append(out, native.Dirent{Name: e.name, Type: typ})
			}
			return nil
		})
		if err != nil {
			return nil, &fs.PathError{Op: "readdir", Path: path, Err: err}
		}
		return out, nil
	}}, nil
}
