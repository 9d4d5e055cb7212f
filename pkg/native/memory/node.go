package memory

import (
	"sort"
	"strings"
	"time"

	"github.com/marmos91/remotefs/pkg/native"
)

// node is a file or directory. Every field is guarded by Driver.mu.
type node struct {
	name     string
	dir      bool
	perm     uint32
	ino      uint32
	data     []byte
	children map[string]*node

	atime time.Time
	mtime time.Time
	ctime time.Time
}

func (n *node) canRead() bool  { return n.perm&0o400 != 0 }
func (n *node) canWrite() bool { return n.perm&0o200 != 0 }
func (n *node) canExec() bool  { return n.perm&0o100 != 0 }

func (n *node) stat(optimistic bool) native.Stat {
	perm := n.perm
	if optimistic {
		perm |= 0o555
	}

	st := native.Stat{
		Ino:     n.ino,
		Nlink:   1,
		Blksize: native.DefaultBlockSize,
		Atime:   native.Unix32(n.atime),
		Mtime:   native.Unix32(n.mtime),
		Ctime:   native.Unix32(n.ctime),
	}
	if n.dir {
		st.Mode = native.ModeDir | perm
		st.Nlink = 2
		for _, c := range n.children {
			if c.dir {
				st.Nlink++
			}
		}
	} else {
		st.Mode = native.ModeRegular | perm
		st.Size = uint64(len(n.data))
		st.Blocks = native.Blocks(st.Size)
	}
	return st
}

func (n *node) touch() {
	now := time.Now()
	n.mtime = now
	n.ctime = now
}

// entries returns the children sorted by name.
func (n *node) entries() []native.Dirent {
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]native.Dirent, 0, len(names))
	for _, name := range names {
		typ := native.EntryFile
		if n.children[name].dir {
			typ = native.EntryDir
		}
		out = append(out, native.Dirent{Name: name, Type: typ})
	}
	return out
}

// isAncestorOf reports whether n contains other somewhere below it.
func (n *node) isAncestorOf(other *node) bool {
	if !n.dir {
		return false
	}
	for _, c := range n.children {
		if c == other || c.isAncestorOf(other) {
			return true
		}
	}
	return false
}

func splitParent(rel string) (parent, name string) {
	i := strings.LastIndex(rel, "/")
	if i < 0 {
		return "", rel
	}
	return rel[:i], rel[i+1:]
}
