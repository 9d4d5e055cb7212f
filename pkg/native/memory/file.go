package memory

import (
	"context"
	"io"
	"io/fs"
	"sync"
	"syscall"
	"time"

	"github.com/marmos91/remotefs/pkg/native"
)

type file struct {
	driver *Driver
	node   *node
	path   string

	read   bool
	write  bool
	append bool

	mu     sync.Mutex
	offset int64
	closed bool
}

func (f *file) pathErr(op string, err error) error {
	return &fs.PathError{Op: op, Path: f.path, Err: err}
}

func (f *file) Read(ctx context.Context, p []byte) (int, error) {
	if err := checkContext(ctx); err != nil {
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

	f.driver.mu.Lock()
	defer f.driver.mu.Unlock()

	if f.offset >= int64(len(f.node.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.node.data[f.offset:])
	f.offset += int64(n)
	f.node.atime = time.Now()
	return n, nil
}

func (f *file) Write(ctx context.Context, p []byte) (int, error) {
	if err := checkContext(ctx); err != nil {
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

	f.driver.mu.Lock()
	defer f.driver.mu.Unlock()

	if f.append {
		f.offset = int64(len(f.node.data))
	}
	end := f.offset + int64(len(p))
	if end > int64(len(f.node.data)) {
		grown := make([]byte, end)
		copy(grown, f.node.data)
		f.node.data = grown
	}
	copy(f.node.data[f.offset:], p)
	f.offset = end
	f.node.touch()
	return len(p), nil
}

func (f *file) Seek(ctx context.Context, offset int64, whence int) (int64, error) {
	if err := checkContext(ctx); err != nil {
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
		f.driver.mu.RLock()
		base = int64(len(f.node.data))
		f.driver.mu.RUnlock()
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
	if err := checkContext(ctx); err != nil {
		return native.Stat{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return native.Stat{}, f.pathErr("fstat", fs.ErrClosed)
	}

	f.driver.mu.RLock()
	defer f.driver.mu.RUnlock()
	return f.node.stat(f.driver.cfg.OptimisticModes), nil
}

func (f *file) Close(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return f.pathErr("close", fs.ErrClosed)
	}
	f.closed = true
	f.driver.openFiles.Add(-1)
	return nil
}
