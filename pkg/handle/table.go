// Package handle maps opaque resources to small positive integer IDs that
// can safely cross an untrusted boundary.
//
// An ID encodes a slot index and the slot's generation:
//
//	id = generation<<32 | (index + 1)
//
// Freeing a slot bumps its generation, so a stale ID held by a caller fails
// with NotFound instead of silently aliasing the next resource stored in
// the same slot. First-generation IDs are the integers 1..capacity.
package handle

import (
	"sync"

	fserrors "github.com/marmos91/remotefs/pkg/errors"
)

// ID identifies a live entry. Valid IDs are always >= 1.
type ID int64

// Kind tags an entry so callers can check what they are about to use.
type Kind uint8

const (
	KindFile Kind = iota + 1
	KindDirectory
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// DefaultCapacity matches the descriptor space of the native client.
const DefaultCapacity = 1 << 16

// maxGeneration keeps IDs positive when shifted into the high word.
const maxGeneration = 1<<31 - 1

// Entry is a stored resource together with its kind tag.
type Entry[T any] struct {
	ID    ID
	Kind  Kind
	Value T
}

type slot[T any] struct {
	gen   uint32
	live  bool
	entry Entry[T]
}

// Table stores entries of type T. The zero value is not usable; call New.
// A Table is safe for concurrent use.
type Table[T any] struct {
	mu       sync.Mutex
	capacity int
	slots    []slot[T]
	free     []int // LIFO stack of released slot indexes
	live     int
}

// New creates a table holding at most capacity live entries.
// A capacity <= 0 selects DefaultCapacity.
func New[T any](capacity int) *Table[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Table[T]{capacity: capacity}
}

// Capacity returns the maximum number of live entries.
func (t *Table[T]) Capacity() int {
	return t.capacity
}

// Len returns the number of live entries.
func (t *Table[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.live
}

// Allocate stores value and returns its new ID. It fails with
// ResourceExhausted when every slot is live. The table never touches value.
func (t *Table[T]) Allocate(kind Kind, value T) (ID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var idx int
	switch {
	case len(t.free) > 0:
		idx = t.free[len(t.free)-1]
		t.free = t.free[:len(t.free)-1]
	case len(t.slots) < t.capacity:
		idx = len(t.slots)
		t.slots = append(t.slots, slot[T]{})
	default:
		return 0, fserrors.NewResourceExhaustedError("allocate handle", t.capacity)
	}

	s := &t.slots[idx]
	id := makeID(idx, s.gen)
	s.live = true
	s.entry = Entry[T]{ID: id, Kind: kind, Value: value}
	t.live++

	return id, nil
}

// Lookup returns the entry stored under id. Zero, negative, out of range,
// freed and stale IDs fail with NotFound.
func (t *Table[T]) Lookup(id ID) (Entry[T], error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.slotFor(id, "lookup handle")
	if err != nil {
		return Entry[T]{}, err
	}
	return s.entry, nil
}

// LookupKind is Lookup followed by a kind check. A live entry of another
// kind fails with InvalidArgument.
func (t *Table[T]) LookupKind(id ID, kind Kind) (Entry[T], error) {
	e, err := t.Lookup(id)
	if err != nil {
		return Entry[T]{}, err
	}
	if e.Kind != kind {
		return Entry[T]{}, fserrors.NewInvalidArgumentError("lookup handle", "",
			"handle %d is a %s, not a %s", id, e.Kind, kind)
	}
	return e, nil
}

// Free removes the entry stored under id and returns it. The resource
// itself is left for the caller to release.
func (t *Table[T]) Free(id ID) (Entry[T], error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.slotFor(id, "free handle")
	if err != nil {
		return Entry[T]{}, err
	}

	e := s.entry
	var zero Entry[T]
	s.entry = zero
	s.live = false
	s.gen++
	if s.gen > maxGeneration {
		s.gen = 0
	}
	t.free = append(t.free, indexOf(id))
	t.live--

	return e, nil
}

// Range calls fn for every live entry until fn returns false. The table is
// locked while fn runs, so fn must not call back into it.
func (t *Table[T]) Range(fn func(Entry[T]) bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.slots {
		if !t.slots[i].live {
			continue
		}
		if !fn(t.slots[i].entry) {
			return
		}
	}
}

// IDs returns a snapshot of the live IDs.
func (t *Table[T]) IDs() []ID {
	ids := make([]ID, 0, t.Len())
	t.Range(func(e Entry[T]) bool {
		ids = append(ids, e.ID)
		return true
	})
	return ids
}

func (t *Table[T]) slotFor(id ID, op string) (*slot[T], error) {
	if id <= 0 {
		return nil, fserrors.NewNotFoundError(op, "", "handle")
	}
	idx := indexOf(id)
	if idx < 0 || idx >= len(t.slots) {
		return nil, fserrors.NewNotFoundError(op, "", "handle")
	}
	s := &t.slots[idx]
	if !s.live || s.gen != generationOf(id) {
		return nil, fserrors.NewNotFoundError(op, "", "handle")
	}
	return s, nil
}

func makeID(idx int, gen uint32) ID {
	return ID(int64(gen)<<32 | int64(idx+1))
}

func indexOf(id ID) int {
	return int(uint32(id)) - 1
}

func generationOf(id ID) uint32 {
	return uint32(uint64(id) >> 32)
}
