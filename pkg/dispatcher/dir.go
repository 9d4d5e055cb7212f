package dispatcher

import (
	"context"
	"errors"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/marmos91/remotefs/internal/logger"
	"github.com/marmos91/remotefs/internal/telemetry"
	"github.com/marmos91/remotefs/pkg/handle"
	"github.com/marmos91/remotefs/pkg/native"
)

// Opendir opens the directory at rawURL and returns a directory handle.
// A URL naming only a host lists that host's shares.
func (d *Dispatcher) Opendir(ctx context.Context, rawURL string) (id handle.ID, err error) {
	sc := d.begin(ctx, "opendir")
	defer sc.end(&err)

	c, s, err := d.resolve(sc, rawURL)
	if err != nil {
		return 0, err
	}

	dir, err := s.Context().Opendir(sc.ctx, c.RemotePath())
	if err != nil {
		d.release(sc, s)
		return 0, sc.nativeErr(c.String(), err)
	}

	id, err = d.allocate(sc, handle.KindDirectory, &resource{session: s, target: c.String(), dir: dir})
	if err != nil {
		if cerr := dir.Close(sc.ctx); cerr != nil {
			logger.WarnCtx(sc.ctx, "Failed to close directory after handle allocation failure", logger.Err(cerr))
		}
		d.release(sc, s)
		return 0, err
	}
	return id, nil
}

// Readdir returns the name of the next entry. ok is false once the stream
// is exhausted.
func (d *Dispatcher) Readdir(ctx context.Context, id handle.ID) (name string, ok bool, err error) {
	ent, ok, err := d.ReaddirEntry(ctx, id)
	return ent.Name, ok, err
}

// ReaddirEntry is Readdir returning the entry type as well.
func (d *Dispatcher) ReaddirEntry(ctx context.Context, id handle.ID) (ent native.Dirent, ok bool, err error) {
	sc := d.begin(ctx, "readdir")
	defer sc.end(&err)

	r, err := d.lookup(sc, id, handle.KindDirectory)
	if err != nil {
		return native.Dirent{}, false, err
	}

	ent, err = r.dir.Next(sc.ctx)
	if errors.Is(err, io.EOF) {
		sc.span.SetAttributes(telemetry.EOF(true))
		return native.Dirent{}, false, nil
	}
	if err != nil {
		return native.Dirent{}, false, sc.nativeErr(r.target, err)
	}
	return ent, true, nil
}

// Rewinddir restarts a directory stream.
func (d *Dispatcher) Rewinddir(ctx context.Context, id handle.ID) (err error) {
	sc := d.begin(ctx, "rewinddir")
	defer sc.end(&err)

	r, err := d.lookup(sc, id, handle.KindDirectory)
	if err != nil {
		return err
	}
	return sc.nativeErr(r.target, r.dir.Rewind(sc.ctx))
}

// Closedir closes a directory handle. The handle is gone even if the native
// close fails.
func (d *Dispatcher) Closedir(ctx context.Context, id handle.ID) (err error) {
	sc := d.begin(ctx, "closedir")
	defer sc.end(&err)

	if _, err := d.lookup(sc, id, handle.KindDirectory); err != nil {
		return err
	}
	r, err := d.free(id)
	if err != nil {
		return err
	}

	cerr := r.dir.Close(sc.ctx)
	d.release(sc, r.session)
	return sc.nativeErr(r.target, cerr)
}

// Shutdown closes every open handle and finalizes the registry. Errors are
// aggregated; every resource is released regardless.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	var result *multierror.Error

	ids := d.handles.IDs()
	for _, id := range ids {
		e, err := d.handles.Lookup(id)
		if err != nil {
			continue
		}
		switch e.Kind {
		case handle.KindFile:
			err = d.Close(ctx, id)
		case handle.KindDirectory:
			err = d.Closedir(ctx, id)
		}
		if err != nil {
			result = multierror.Append(result, err)
		}
	}

	if err := d.registry.Finalize(); err != nil {
		result = multierror.Append(result, err)
	}

	logger.InfoCtx(ctx, "Dispatcher shut down", logger.KeyCount, len(ids))
	return result.ErrorOrNil()
}
