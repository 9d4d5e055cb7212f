//go:build !linux

package local

import (
	"io/fs"
	"os"

	"github.com/marmos91/remotefs/pkg/native"
)

func statPath(p string) (native.Stat, error) {
	info, err := os.Stat(p)
	if err != nil {
		return native.Stat{}, err
	}
	return fromFileInfo(info), nil
}

func statFile(f *os.File) (native.Stat, error) {
	info, err := f.Stat()
	if err != nil {
		return native.Stat{}, err
	}
	return fromFileInfo(info), nil
}

func fromFileInfo(info fs.FileInfo) native.Stat {
	size := uint64(info.Size())
	mtime := native.Unix32(info.ModTime())
	nlink := uint32(1)
	if info.IsDir() {
		nlink = 2
	}
	return native.Stat{
		Mode:    native.ModeFromFileMode(info.Mode()),
		Nlink:   nlink,
		Size:    size,
		Blksize: native.DefaultBlockSize,
		Blocks:  native.Blocks(size),
		Atime:   mtime,
		Mtime:   mtime,
		Ctime:   mtime,
	}
}
