package badger

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"
	"syscall"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/marmos91/remotefs/pkg/native"
)

// Key namespace:
//
// Data Type      Prefix   Key Format                  Value
// ===========================================================================
// Share roots    "s:"     s:<host>/<share>            root inode UUID (16 bytes)
// Inodes         "i:"     i:<uuid>                    inode (JSON)
// Entries        "e:"     e:<parentUUID>:<name>       child inode UUID (16 bytes)
// File data      "d:"     d:<uuid>                    file contents
const (
	prefixShare = "s:"
	prefixInode = "i:"
	prefixEntry = "e:"
	prefixData  = "d:"
)

func keyShare(host, share string) []byte {
	return []byte(prefixShare + host + "/" + share)
}

func keyHostShares(host string) []byte {
	return []byte(prefixShare + host + "/")
}

func keyInode(id uuid.UUID) []byte {
	return []byte(prefixInode + id.String())
}

func keyEntry(parent uuid.UUID, name string) []byte {
	return []byte(prefixEntry + parent.String() + ":" + name)
}

func keyEntryPrefix(parent uuid.UUID) []byte {
	return []byte(prefixEntry + parent.String() + ":")
}

func keyData(id uuid.UUID) []byte {
	return []byte(prefixData + id.String())
}

// inode holds the attributes of a file or directory.
type inode struct {
	ID    uuid.UUID `json:"id"`
	Dir   bool      `json:"dir"`
	Mode  uint32    `json:"mode"`
	Size  int64     `json:"size"`
	Atime time.Time `json:"atime"`
	Mtime time.Time `json:"mtime"`
	Ctime time.Time `json:"ctime"`
}

func newInode(dir bool, perm uint32) *inode {
	now := time.Now()
	return &inode{
		ID:    uuid.New(),
		Dir:   dir,
		Mode:  perm & native.ModePerm,
		Atime: now,
		Mtime: now,
		Ctime: now,
	}
}

func (n *inode) canRead() bool  { return n.Mode&0o400 != 0 }
func (n *inode) canWrite() bool { return n.Mode&0o200 != 0 }

func (n *inode) touch() {
	now := time.Now()
	n.Mtime = now
	n.Ctime = now
}

// ino folds the UUID into the 32-bit inode number.
func (n *inode) ino() uint32 {
	return binary.BigEndian.Uint32(n.ID[:4]) ^ binary.BigEndian.Uint32(n.ID[12:])
}

func (n *inode) stat() native.Stat {
	st := native.Stat{
		Ino:     n.ino(),
		Nlink:   1,
		Blksize: native.DefaultBlockSize,
		Atime:   native.Unix32(n.Atime),
		Mtime:   native.Unix32(n.Mtime),
		Ctime:   native.Unix32(n.Ctime),
	}
	if n.Dir {
		st.Mode = native.ModeDir | n.Mode
		st.Nlink = 2
		return st
	}
	st.Mode = native.ModeRegular | n.Mode
	st.Size = uint64(n.Size)
	st.Blocks = native.Blocks(st.Size)
	return st
}

func encodeInode(n *inode) ([]byte, error) {
	b, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("failed to encode inode: %w", err)
	}
	return b, nil
}

func decodeInode(b []byte) (*inode, error) {
	var n inode
	if err := json.Unmarshal(b, &n); err != nil {
		return nil, fmt.Errorf("failed to decode inode: %w", err)
	}
	return &n, nil
}

// ============================================================================
// Transaction helpers
// ============================================================================

func getInode(txn *badgerdb.Txn, id uuid.UUID) (*inode, error) {
	item, err := txn.Get(keyInode(id))
	if err == badgerdb.ErrKeyNotFound {
		return nil, syscall.ENOENT
	}
	if err != nil {
		return nil, err
	}
	var n *inode
	err = item.Value(func(val []byte) error {
		var decErr error
		n, decErr = decodeInode(val)
		return decErr
	})
	return n, err
}

func putInode(txn *badgerdb.Txn, n *inode) error {
	b, err := encodeInode(n)
	if err != nil {
		return err
	}
	return txn.Set(keyInode(n.ID), b)
}

// getID reads a UUID value. A missing key yields ENOENT.
func getID(txn *badgerdb.Txn, key []byte) (uuid.UUID, error) {
	item, err := txn.Get(key)
	if err == badgerdb.ErrKeyNotFound {
		return uuid.Nil, syscall.ENOENT
	}
	if err != nil {
		return uuid.Nil, err
	}
	var id uuid.UUID
	err = item.Value(func(val []byte) error {
		var parseErr error
		id, parseErr = uuid.FromBytes(val)
		return parseErr
	})
	return id, err
}

func getData(txn *badgerdb.Txn, id uuid.UUID) ([]byte, error) {
	item, err := txn.Get(keyData(id))
	if err == badgerdb.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

// dirent is one decoded directory entry.
type dirent struct {
	name string
	id   uuid.UUID
}

// listEntries returns the entries of parent in key order. limit > 0 stops
// early.
func listEntries(txn *badgerdb.Txn, parent uuid.UUID, limit int) ([]dirent, error) {
	prefix := keyEntryPrefix(parent)
	opts := badgerdb.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var out []dirent
	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		name := strings.TrimPrefix(string(item.Key()), string(prefix))
		var id uuid.UUID
		err := item.Value(func(val []byte) error {
			var parseErr error
			id, parseErr = uuid.FromBytes(val)
			return parseErr
		})
		if err != nil {
			return nil, err
		}
		out = append(out, dirent{name: name, id: id})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// deleteInode removes an inode and its contents.
func deleteInode(txn *badgerdb.Txn, id uuid.UUID) error {
	if err := txn.Delete(keyInode(id)); err != nil {
		return err
	}
	return txn.Delete(keyData(id))
}
