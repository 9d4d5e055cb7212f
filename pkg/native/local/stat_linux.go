//go:build linux

package local

import (
	"os"

	"github.com/marmos91/remotefs/pkg/native"
	"golang.org/x/sys/unix"
)

func statPath(p string) (native.Stat, error) {
	var st unix.Stat_t
	if err := unix.Stat(p, &st); err != nil {
		return native.Stat{}, &os.PathError{Op: "stat", Path: p, Err: err}
	}
	return fromUnix(&st), nil
}

func statFile(f *os.File) (native.Stat, error) {
	var st unix.Stat_t
	if err := unix.Fstat(int(f.Fd()), &st); err != nil {
		return native.Stat{}, &os.PathError{Op: "fstat", Path: f.Name(), Err: err}
	}
	return fromUnix(&st), nil
}

func fromUnix(st *unix.Stat_t) native.Stat {
	return native.Stat{
		Dev:     uint32(st.Dev),
		Ino:     uint32(st.Ino),
		Mode:    st.Mode,
		Nlink:   uint32(st.Nlink),
		UID:     st.Uid,
		GID:     st.Gid,
		Rdev:    uint32(st.Rdev),
		Size:    uint64(st.Size),
		Blksize: uint32(st.Blksize),
		Blocks:  uint32(st.Blocks),
		Atime:   uint32(st.Atim.Sec),
		Mtime:   uint32(st.Mtim.Sec),
		Ctime:   uint32(st.Ctim.Sec),
	}
}
