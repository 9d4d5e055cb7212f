package native

import (
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"
)

// Stat is the fixed-width attribute record reported for files and
// directories. Mode carries the POSIX type and permission bits
// (S_IFREG, S_IFDIR, 0777).
type Stat struct {
	Dev     uint32 `json:"dev"`
	Ino     uint32 `json:"ino"`
	Mode    uint32 `json:"mode"`
	Nlink   uint32 `json:"nlink"`
	UID     uint32 `json:"uid"`
	GID     uint32 `json:"gid"`
	Rdev    uint32 `json:"rdev"`
	Size    uint64 `json:"size"`
	Blksize uint32 `json:"blksize"`
	Blocks  uint32 `json:"blocks"`
	Atime   uint32 `json:"atime"`
	Mtime   uint32 `json:"mtime"`
	Ctime   uint32 `json:"ctime"`
}

// POSIX file type bits.
const (
	ModeTypeMask uint32 = 0o170000
	ModeDir      uint32 = 0o040000
	ModeRegular  uint32 = 0o100000
	ModeSymlink  uint32 = 0o120000
	ModePerm     uint32 = 0o777
)

// DefaultBlockSize is reported when a backend has no notion of blocks.
const DefaultBlockSize = 4096

// IsDir reports whether the record describes a directory.
func (s Stat) IsDir() bool {
	return s.Mode&ModeTypeMask == ModeDir
}

// Perm returns the permission bits.
func (s Stat) Perm() fs.FileMode {
	return fs.FileMode(s.Mode & ModePerm)
}

// ModTime returns Mtime as a time.
func (s Stat) ModTime() time.Time {
	return time.Unix(int64(s.Mtime), 0)
}

// FileMode converts the record's mode to an fs.FileMode.
func (s Stat) FileMode() fs.FileMode {
	m := s.Perm()
	switch s.Mode & ModeTypeMask {
	case ModeDir:
		m |= fs.ModeDir
	case ModeSymlink:
		m |= fs.ModeSymlink
	}
	return m
}

// ModeFromFileMode converts an fs.FileMode to POSIX mode bits.
func ModeFromFileMode(m fs.FileMode) uint32 {
	mode := uint32(m.Perm())
	switch {
	case m.IsDir():
		mode |= ModeDir
	case m&fs.ModeSymlink != 0:
		mode |= ModeSymlink
	default:
		mode |= ModeRegular
	}
	return mode
}

// ParsePerm parses octal permission bits such as "0644", "755" or
// "0o700". Bits above 0777 are rejected.
func ParsePerm(s string) (fs.FileMode, error) {
	m, err := strconv.ParseUint(strings.TrimPrefix(s, "0o"), 8, 32)
	if err != nil || m > uint64(ModePerm) {
		return 0, fmt.Errorf("invalid mode %q, want octal permission bits", s)
	}
	return fs.FileMode(m), nil
}

// Blocks returns the number of 512-byte blocks needed for size.
func Blocks(size uint64) uint32 {
	return uint32((size + 511) / 512)
}

// Unix32 clamps t to a 32-bit Unix timestamp.
func Unix32(t time.Time) uint32 {
	if t.IsZero() || t.Unix() < 0 {
		return 0
	}
	return uint32(t.Unix())
}

// EntryType classifies a directory entry.
type EntryType uint8

const (
	EntryUnknown EntryType = iota
	EntryFile
	EntryDir
	EntryShare
	EntryServer
	EntryLink
)

func (t EntryType) String() string {
	switch t {
	case EntryFile:
		return "file"
	case EntryDir:
		return "dir"
	case EntryShare:
		return "share"
	case EntryServer:
		return "server"
	case EntryLink:
		return "link"
	default:
		return "unknown"
	}
}

// MarshalText renders the type by name in JSON and YAML output.
func (t EntryType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses a name produced by MarshalText. Unknown names decode
// to EntryUnknown.
func (t *EntryType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "file":
		*t = EntryFile
	case "dir":
		*t = EntryDir
	case "share":
		*t = EntryShare
	case "server":
		*t = EntryServer
	case "link":
		*t = EntryLink
	default:
		*t = EntryUnknown
	}
	return nil
}

// Dirent is one directory entry.
type Dirent struct {
	Name string    `json:"name"`
	Type EntryType `json:"type"`
}
