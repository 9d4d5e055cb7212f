package memory

import (
	"context"
	"io"
	"io/fs"
	"sync"

	"github.com/marmos91/remotefs/pkg/native"
)

// dir snapshots its listing on first read and again after Rewind.
type dir struct {
	driver *Driver
	list   func() []native.Dirent

	mu      sync.Mutex
	entries []native.Dirent
	loaded  bool
	pos     int
	closed  bool
}

func (d *dir) Next(ctx context.Context) (native.Dirent, error) {
	if err := checkContext(ctx); err != nil {
		return native.Dirent{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return native.Dirent{}, fs.ErrClosed
	}
	if !d.loaded {
		d.entries = d.list()
		d.loaded = true
	}
	if d.pos >= len(d.entries) {
		return native.Dirent{}, io.EOF
	}
	e := d.entries[d.pos]
	d.pos++
	return e, nil
}

func (d *dir) Rewind(ctx context.Context) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return fs.ErrClosed
	}
	d.loaded = false
	d.entries = nil
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
	d.driver.openDirs.Add(-1)
	return nil
}
