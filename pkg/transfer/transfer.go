// Package transfer streams data between local readers/writers and remote
// URLs through a dispatcher, and lists directories with their attributes.
//
// It is shared by the rfs CLI and the HTTP gateway.
package transfer

import (
	"context"
	"fmt"
	"io"

	"github.com/marmos91/remotefs/internal/logger"
	"github.com/marmos91/remotefs/pkg/bufpool"
	"github.com/marmos91/remotefs/pkg/dispatcher"
	"github.com/marmos91/remotefs/pkg/handle"
)

// DefaultBufferSize is the copy buffer used when Options.BufferSize is zero.
const DefaultBufferSize = bufpool.DefaultMediumSize

// DefaultParallelStats bounds concurrent stat calls in ListDetailed.
const DefaultParallelStats = 8

// Options tunes a transfer.
type Options struct {
	// BufferSize is the size of each read/write against the remote handle.
	BufferSize int

	// Append opens the destination with mode "a" instead of "w".
	Append bool

	// ParallelStats bounds concurrent stat calls in ListDetailed.
	ParallelStats int
}

func (o Options) bufferSize() int {
	if o.BufferSize <= 0 {
		return DefaultBufferSize
	}
	return o.BufferSize
}

func (o Options) parallelStats() int {
	if o.ParallelStats <= 0 {
		return DefaultParallelStats
	}
	return o.ParallelStats
}

// Download copies the file at rawURL into w and returns the number of
// bytes copied.
func Download(ctx context.Context, d *dispatcher.Dispatcher, rawURL string, w io.Writer, opts Options) (n int64, err error) {
	id, err := d.Open(ctx, rawURL, "r")
	if err != nil {
		return 0, err
	}
	defer closeFile(ctx, d, id, &err)

	return ReadTo(ctx, d, id, w, opts)
}

// ReadTo copies the open file id into w from its current offset to end of
// file. The handle stays open.
func ReadTo(ctx context.Context, d *dispatcher.Dispatcher, id handle.ID, w io.Writer, opts Options) (n int64, err error) {
	buf := bufpool.Get(opts.bufferSize())
	defer bufpool.Put(buf)

	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		nr, err := d.Read(ctx, id, buf)
		if err != nil {
			return n, err
		}
		if nr == 0 {
			return n, nil
		}
		nw, err := w.Write(buf[:nr])
		n += int64(nw)
		if err != nil {
			return n, fmt.Errorf("write local: %w", err)
		}
		if nw != nr {
			return n, io.ErrShortWrite
		}
	}
}

// Upload copies r into the file at rawURL, creating or truncating it (or
// appending with Options.Append), and returns the number of bytes written.
// The remote file is closed before Upload returns, so backends that commit
// on close have committed when err is nil.
func Upload(ctx context.Context, d *dispatcher.Dispatcher, rawURL string, r io.Reader, opts Options) (n int64, err error) {
	mode := "w"
	if opts.Append {
		mode = "a"
	}
	id, err := d.Open(ctx, rawURL, mode)
	if err != nil {
		return 0, err
	}
	defer closeFile(ctx, d, id, &err)

	return WriteFrom(ctx, d, id, r, opts)
}

// WriteFrom copies r into the open file id until r reports io.EOF. The
// handle stays open.
func WriteFrom(ctx context.Context, d *dispatcher.Dispatcher, id handle.ID, r io.Reader, opts Options) (n int64, err error) {
	buf := bufpool.Get(opts.bufferSize())
	defer bufpool.Put(buf)

	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		nr, rerr := r.Read(buf)
		if nr > 0 {
			nw, err := d.Write(ctx, id, buf[:nr])
			n += int64(nw)
			if err != nil {
				return n, err
			}
			if nw != nr {
				return n, io.ErrShortWrite
			}
		}
		if rerr == io.EOF {
			return n, nil
		}
		if rerr != nil {
			return n, fmt.Errorf("read local: %w", rerr)
		}
	}
}

// closeFile closes id and reports the close error unless an earlier error
// is already being returned.
func closeFile(ctx context.Context, d *dispatcher.Dispatcher, id handle.ID, errp *error) {
	cerr := d.Close(ctx, id)
	if cerr == nil {
		return
	}
	if *errp == nil {
		*errp = cerr
		return
	}
	logger.WarnCtx(ctx, "Failed to close remote file", logger.Handle(int64(id)), logger.Err(cerr))
}
