package dispatcher

import (
	"context"
	"io/fs"
	"os"

	"github.com/marmos91/remotefs/internal/logger"
	"github.com/marmos91/remotefs/internal/telemetry"
	fserrors "github.com/marmos91/remotefs/pkg/errors"
	"github.com/marmos91/remotefs/pkg/native"
)

// URLStat returns the attributes of the entry at rawURL. Owner and group
// are reported as zero.
//
// Servers commonly report modes that are more permissive than what the
// caller can actually do, so the reported permission bits are checked with
// a read-only open. Only when that probe is denied:
//   - a directory is confirmed with opendir; if that is denied too, all
//     permission bits are cleared
//   - a file has its read and execute bits cleared
func (d *Dispatcher) URLStat(ctx context.Context, rawURL string) (st native.Stat, err error) {
	sc := d.begin(ctx, "url_stat")
	defer sc.end(&err)

	c, s, err := d.resolve(sc, rawURL)
	if err != nil {
		return native.Stat{}, err
	}
	defer d.release(sc, s)

	nctx := s.Context()
	remote := c.RemotePath()

	st, err = nctx.Stat(sc.ctx, remote)
	if err != nil {
		return native.Stat{}, sc.nativeErr(c.String(), err)
	}
	st.UID, st.GID = 0, 0

	st.Mode = probeMode(sc, nctx, remote, st)
	return st, nil
}

// probeMode returns st.Mode adjusted by the access probes.
func probeMode(sc *scope, nctx native.Context, remote string, st native.Stat) uint32 {
	f, err := nctx.Open(sc.ctx, remote, os.O_RDONLY, 0)
	if err == nil {
		if cerr := f.Close(sc.ctx); cerr != nil {
			logger.DebugCtx(sc.ctx, "Failed to close probe file", logger.Err(cerr))
		}
		return st.Mode
	}
	if !fserrors.IsPermissionDenied(err) {
		return st.Mode
	}

	if !st.IsDir() {
		telemetry.AddEvent(sc.ctx, "probe.file_denied")
		// Write bits stay: a denied read-only open says nothing about write access.
		return st.Mode &^ 0o555
	}

	dir, err := nctx.Opendir(sc.ctx, remote)
	if err == nil {
		if cerr := dir.Close(sc.ctx); cerr != nil {
			logger.DebugCtx(sc.ctx, "Failed to close probe directory", logger.Err(cerr))
		}
		return st.Mode
	}
	if fserrors.IsPermissionDenied(err) {
		telemetry.AddEvent(sc.ctx, "probe.dir_denied")
		return st.Mode &^ 0o777
	}
	return st.Mode
}

// Rename moves fromURL to toURL. Both must resolve to the same session,
// that is the same host and credentials.
func (d *Dispatcher) Rename(ctx context.Context, fromURL, toURL string) (err error) {
	sc := d.begin(ctx, "rename")
	defer sc.end(&err)

	from, src, err := d.resolve(sc, fromURL)
	if err != nil {
		return err
	}
	defer d.release(sc, src)

	to, dst, err := d.resolve(sc, toURL)
	if err != nil {
		return err
	}
	defer d.release(sc, dst)

	if src != dst {
		return fserrors.NewInvalidArgumentError(sc.op, from.String(),
			"cannot rename across sessions to %s", to.String())
	}

	if err := src.Context().Rename(sc.ctx, from.RemotePath(), to.RemotePath()); err != nil {
		return sc.nativeErr(from.String(), err)
	}
	logger.DebugCtx(sc.ctx, "Renamed", logger.KeyOldPath, from.Path, logger.KeyNewPath, to.Path)
	return nil
}

// Unlink removes the file at rawURL.
func (d *Dispatcher) Unlink(ctx context.Context, rawURL string) (err error) {
	sc := d.begin(ctx, "unlink")
	defer sc.end(&err)

	return d.onPath(sc, rawURL, func(nctx native.Context, remote string) error {
		return nctx.Unlink(sc.ctx, remote)
	})
}

// Mkdir creates the directory at rawURL with permission mode.
func (d *Dispatcher) Mkdir(ctx context.Context, rawURL string, mode fs.FileMode) (err error) {
	sc := d.begin(ctx, "mkdir", telemetry.Mode(uint32(mode.Perm())))
	defer sc.end(&err)

	return d.onPath(sc, rawURL, func(nctx native.Context, remote string) error {
		return nctx.Mkdir(sc.ctx, remote, mode.Perm())
	})
}

// Rmdir removes the empty directory at rawURL.
func (d *Dispatcher) Rmdir(ctx context.Context, rawURL string) (err error) {
	sc := d.begin(ctx, "rmdir")
	defer sc.end(&err)

	return d.onPath(sc, rawURL, func(nctx native.Context, remote string) error {
		return nctx.Rmdir(sc.ctx, remote)
	})
}

// Chmod sets the permission bits of the entry at rawURL.
func (d *Dispatcher) Chmod(ctx context.Context, rawURL string, mode fs.FileMode) (err error) {
	sc := d.begin(ctx, "chmod", telemetry.Mode(uint32(mode.Perm())))
	defer sc.end(&err)

	return d.onPath(sc, rawURL, func(nctx native.Context, remote string) error {
		return nctx.Chmod(sc.ctx, remote, mode.Perm())
	})
}

// onPath runs fn against the session and canonical path of rawURL.
func (d *Dispatcher) onPath(sc *scope, rawURL string, fn func(nctx native.Context, remote string) error) error {
	c, s, err := d.resolve(sc, rawURL)
	if err != nil {
		return err
	}
	defer d.release(sc, s)

	return sc.nativeErr(c.String(), fn(s.Context(), c.RemotePath()))
}
