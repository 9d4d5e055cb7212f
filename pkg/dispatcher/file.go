package dispatcher

import (
	"context"
	"errors"
	"io"

	"github.com/marmos91/remotefs/internal/logger"
	"github.com/marmos91/remotefs/internal/telemetry"
	fserrors "github.com/marmos91/remotefs/pkg/errors"
	"github.com/marmos91/remotefs/pkg/handle"
	"github.com/marmos91/remotefs/pkg/metrics"
	"github.com/marmos91/remotefs/pkg/native"
)

// Open opens the file at rawURL with an fopen-style mode and returns a file
// handle.
func (d *Dispatcher) Open(ctx context.Context, rawURL, mode string) (id handle.ID, err error) {
	sc := d.begin(ctx, "open")
	defer sc.end(&err)

	flags, err := ParseMode(mode)
	if err != nil {
		return 0, err
	}

	c, s, err := d.resolve(sc, rawURL)
	if err != nil {
		return 0, err
	}

	f, err := s.Context().Open(sc.ctx, c.RemotePath(), flags, d.fileMode)
	if err != nil {
		d.release(sc, s)
		return 0, sc.nativeErr(c.String(), err)
	}

	id, err = d.allocate(sc, handle.KindFile, &resource{session: s, target: c.String(), file: f})
	if err != nil {
		// The native file must not outlive a failed allocation.
		if cerr := f.Close(sc.ctx); cerr != nil {
			logger.WarnCtx(sc.ctx, "Failed to close file after handle allocation failure", logger.Err(cerr))
		}
		d.release(sc, s)
		return 0, err
	}

	logger.DebugCtx(sc.ctx, "File opened", logger.KeyMode, mode, logger.KeyFlags, flags)
	return id, nil
}

// Close closes a file handle. The handle is gone even if the native close
// fails.
func (d *Dispatcher) Close(ctx context.Context, id handle.ID) (err error) {
	sc := d.begin(ctx, "close")
	defer sc.end(&err)

	if _, err := d.lookup(sc, id, handle.KindFile); err != nil {
		return err
	}
	r, err := d.free(id)
	if err != nil {
		return err
	}

	cerr := r.file.Close(sc.ctx)
	d.release(sc, r.session)
	return sc.nativeErr(r.target, cerr)
}

// Read reads up to len(p) bytes. A zero count with a nil error means end of
// file.
func (d *Dispatcher) Read(ctx context.Context, id handle.ID, p []byte) (n int, err error) {
	sc := d.begin(ctx, "read", telemetry.Count(len(p)))
	defer sc.end(&err)

	r, err := d.lookup(sc, id, handle.KindFile)
	if err != nil {
		return 0, err
	}

	n, err = r.file.Read(sc.ctx, p)
	if errors.Is(err, io.EOF) {
		err = nil
	}
	if err != nil {
		return 0, sc.nativeErr(r.target, err)
	}

	sc.span.SetAttributes(telemetry.BytesRead(n), telemetry.EOF(n == 0))
	metrics.RecordBytes(d.metrics, "read", int64(n))
	return n, nil
}

// Write writes p and returns the number of bytes written.
func (d *Dispatcher) Write(ctx context.Context, id handle.ID, p []byte) (n int, err error) {
	sc := d.begin(ctx, "write", telemetry.Count(len(p)))
	defer sc.end(&err)

	r, err := d.lookup(sc, id, handle.KindFile)
	if err != nil {
		return 0, err
	}

	n, err = r.file.Write(sc.ctx, p)
	metrics.RecordBytes(d.metrics, "write", int64(n))
	sc.span.SetAttributes(telemetry.BytesWritten(n))
	if err != nil {
		return n, sc.nativeErr(r.target, err)
	}
	return n, nil
}

// Seek repositions a file handle and returns the new offset. whence is one
// of io.SeekStart, io.SeekCurrent, io.SeekEnd.
func (d *Dispatcher) Seek(ctx context.Context, id handle.ID, offset int64, whence int) (pos int64, err error) {
	sc := d.begin(ctx, "seek", telemetry.Offset(offset))
	defer sc.end(&err)

	r, err := d.lookup(sc, id, handle.KindFile)
	if err != nil {
		return 0, err
	}

	switch whence {
	case io.SeekStart, io.SeekCurrent, io.SeekEnd:
	default:
		return 0, fserrors.NewInvalidArgumentError(sc.op, r.target, "invalid whence %d", whence)
	}

	pos, err = r.file.Seek(sc.ctx, offset, whence)
	if err != nil {
		return 0, sc.nativeErr(r.target, err)
	}
	return pos, nil
}

// Fstat returns the attributes of an open file. Owner and group are always
// reported as zero.
func (d *Dispatcher) Fstat(ctx context.Context, id handle.ID) (st native.Stat, err error) {
	sc := d.begin(ctx, "fstat")
	defer sc.end(&err)

	r, err := d.lookup(sc, id, handle.KindFile)
	if err != nil {
		return native.Stat{}, err
	}

	st, err = r.file.Stat(sc.ctx)
	if err != nil {
		return native.Stat{}, sc.nativeErr(r.target, err)
	}
	st.UID, st.GID = 0, 0
	return st, nil
}
