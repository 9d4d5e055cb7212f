package badger

import (
	"context"
	"io"
	"io/fs"
	"sync"
	"syscall"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/marmos91/remotefs/pkg/native"
)

// file buffers the whole contents between Open and Close.
type file struct {
	driver *Driver
	node   inode
	path   string

	read   bool
	write  bool
	append bool

	mu     sync.Mutex
	buf    []byte
	offset int64
	dirty  bool
	closed bool
}

func (f *file) pathErr(op string, err error) error {
	return &fs.PathError{Op: op, Path: f.path, Err: err}
}

func (f *file) Read(ctx context.Context, p []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, f.pathErr("read", fs.ErrClosed)
	}
	if !f.read {
		return 0, f.pathErr("read", syscall.EBADF)
	}
	if f.offset >= int64(len(f.buf)) {
		return 0, io.EOF
	}
	n := copy(p, f.buf[f.offset:])
	f.offset += int64(n)
	return n, nil
}

func (f *file) Write(ctx context.Context, p []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, f.pathErr("write", fs.ErrClosed)
	}
	if !f.write {
		return 0, f.pathErr("write", syscall.EBADF)
	}

	if f.append {
		f.offset = int64(len(f.buf))
	}
	end := f.offset + int64(len(p))
	if end > int64(len(f.buf)) {
		grown := make([]byte, end)
		copy(grown, f.buf)
		f.buf = grown
	}
	copy(f.buf[f.offset:], p)
	f.offset = end
	f.dirty = true
	f.node.Mtime = time.Now()
	return len(p), nil
}

func (f *file) Seek(ctx context.Context, offset int64, whence int) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, f.pathErr("seek", fs.ErrClosed)
	}

	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = f.offset
	case io.SeekEnd:
		base = int64(len(f.buf))
	default:
		return 0, f.pathErr("seek", syscall.EINVAL)
	}

	pos := base + offset
	if pos < 0 {
		return 0, f.pathErr("seek", syscall.EINVAL)
	}
	f.offset = pos
	return pos, nil
}

func (f *file) Stat(ctx context.Context) (native.Stat, error) {
	if err := ctx.Err(); err != nil {
		return native.Stat{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return native.Stat{}, f.pathErr("fstat", fs.ErrClosed)
	}
	n := f.node
	n.Size = int64(len(f.buf))
	return n.stat(), nil
}

// Close commits buffered writes. A file unlinked while open is dropped.
func (f *file) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return f.pathErr("close", fs.ErrClosed)
	}
	f.closed = true
	f.driver.openFiles.Add(-1)

	if !f.dirty {
		return nil
	}
	data := f.buf
	f.buf = nil

	err := f.driver.update(ctx, "commit", func(txn *badgerdb.Txn) error {
		n, err := getInode(txn, f.node.ID)
		if err == syscall.ENOENT {
			return nil
		}
		if err != nil {
			return err
		}
		if err := txn.Set(keyData(n.ID), data); err != nil {
			return err
		}
		n.Size = int64(len(data))
		n.touch()
		return putInode(txn, n)
	})
	if err != nil {
		return f.pathErr("close", err)
	}
	return nil
}

// dir snapshots its listing on first read and again after Rewind.
type dir struct {
	list func(ctx context.Context) ([]native.Dirent, error)

	mu      sync.Mutex
	entries []native.Dirent
	loaded  bool
	pos     int
	closed  bool
}

func (d *dir) Next(ctx context.Context) (native.Dirent, error) {
	if err := ctx.Err(); err != nil {
		return native.Dirent{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return native.Dirent{}, fs.ErrClosed
	}
	if !d.loaded {
		entries, err := d.list(ctx)
		if err != nil {
			return native.Dirent{}, err
		}
		d.entries, d.loaded, d.pos = entries, true, 0
	}
	if d.pos >= len(d.entries) {
		return native.Dirent{}, io.EOF
	}
	e := d.entries[d.pos]
	d.pos++
	return e, nil
}

func (d *dir) Rewind(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return fs.ErrClosed
	}
	d.loaded, d.entries, d.pos = false, nil, 0
	return nil
}

func (d *dir) Close(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return fs.ErrClosed
	}
	d.closed = true
	return nil
}
