package local

import (
	"context"
	"io"
	"io/fs"
	"os"
	"sync"

	"github.com/marmos91/remotefs/pkg/native"
)

type file struct {
	f *os.File
}

func (f *file) Read(ctx context.Context, p []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return f.f.Read(p)
}

func (f *file) Write(ctx context.Context, p []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return f.f.Write(p)
}

func (f *file) Seek(ctx context.Context, offset int64, whence int) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return f.f.Seek(offset, whence)
}

func (f *file) Stat(ctx context.Context) (native.Stat, error) {
	if err := ctx.Err(); err != nil {
		return native.Stat{}, err
	}
	return statFile(f.f)
}

func (f *file) Close(_ context.Context) error {
	return f.f.Close()
}

// dir snapshots the directory on first read and again after Rewind.
type dir struct {
	path   string
	shares bool

	mu      sync.Mutex
	entries []native.Dirent
	loaded  bool
	pos     int
	closed  bool
}

func (d *dir) load() error {
	list, err := os.ReadDir(d.path)
	if err != nil {
		return err
	}

	d.entries = d.entries[:0]
	for _, e := range list {
		typ := entryType(e.Type())
		if d.shares {
			if !e.IsDir() {
				continue
			}
			typ = native.EntryShare
		}
		d.entries = append(d.entries, native.Dirent{Name: e.Name(), Type: typ})
	}
	d.loaded = true
	d.pos = 0
	return nil
}

func entryType(m fs.FileMode) native.EntryType {
	switch {
	case m.IsDir():
		return native.EntryDir
	case m&fs.ModeSymlink != 0:
		return native.EntryLink
	case m.IsRegular():
		return native.EntryFile
	default:
		return native.EntryUnknown
	}
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
		if err := d.load(); err != nil {
			return native.Dirent{}, err
		}
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
	d.loaded = false
	d.pos = 0
	return nil
}

func (d *dir) Close(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return fs.ErrClosed
	}
	d.closed = true
	d.entries = nil
	return nil
}
