package s3

import (
	"context"
	"io"
	"io/fs"
	"sync"
	"syscall"
	"time"

	"github.com/marmos91/remotefs/pkg/native"
)

// file is an open object. Read-only files issue ranged GETs; writable files
// hold the whole object in buf and upload it on Close when dirty.
type file struct {
	c      *Context
	bucket string
	key    string
	path   string

	read   bool
	write  bool
	append bool

	mu     sync.Mutex
	offset int64
	size   int64
	mode   uint32
	mtime  time.Time
	buf    []byte
	loaded bool
	dirty  bool
	closed bool
}

func (f *file) pathErr(op string, err error) error {
	return &fs.PathError{Op: op, Path: f.path, Err: err}
}

func (f *file) length() int64 {
	if f.loaded {
		return int64(len(f.buf))
	}
	return f.size
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
	if f.offset >= f.length() {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	if f.loaded {
		n := copy(p, f.buf[f.offset:])
		f.offset += int64(n)
		return n, nil
	}

	if rest := f.size - f.offset; int64(len(p)) > rest {
		p = p[:rest]
	}
	n, err := f.c.getRange(ctx, f.bucket, f.key, f.offset, p)
	if err != nil {
		if isInvalidRangeError(err) {
			return 0, io.EOF
		}
		return 0, pathError("read", f.path, err)
	}
	if n == 0 {
		return 0, io.EOF
	}
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
	f.mtime = time.Now()
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
		base = f.length()
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
	e := entry{exists: true, size: f.length(), mode: f.mode, mtime: f.mtime}
	return e.stat(), nil
}

// Close uploads buffered changes. The handle is closed even when the upload
// fails.
func (f *file) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return f.pathErr("close", fs.ErrClosed)
	}
	f.closed = true

	if !f.dirty {
		return nil
	}
	data := f.buf
	f.buf = nil
	return pathError("close", f.path, f.c.putObject(ctx, f.bucket, f.key, data, f.mode))
}

// dir is a snapshot of one listing level, taken on open and on Rewind.
type dir struct {
	list    func(ctx context.Context) ([]native.Dirent, error)
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
	ent := d.entries[d.pos]
	d.pos++
	return ent, nil
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
