package hmap

import "fmt"

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// nilSlot terminates bucket chains and the free list. Slot 0 is never handed out.
	nilSlot uint32 = 0

	// slots are allocated in fixed pages so growing the arena never moves records
	pageShift = 8
	pageSize  = 1 << pageShift
	pageMask  = pageSize - 1
)

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

// slot is one record of the arena together with its chain link
type slot[T any] struct {
	hcode uint64 // hash code of the record, preserved across tables
	next  uint32 // next slot in the bucket chain (or the free list)
	item  T
}

// Ref identifies the position of a record inside a Table. It stays valid until
// the table is modified.
type Ref struct {
	bucket uint64 // bucket of the chain holding the record
	prev   uint32 // predecessor in the chain, nilSlot if the record is the bucket head
	idx    uint32 // the record itself
}

// --------------------------------------------------------------------------
// Table
// --------------------------------------------------------------------------

// Table is a fixed-capacity hash table with chained buckets. Records are kept
// in a paged slot arena and linked by slot index; detached slots are recycled
// through a free list. A Table never resizes itself, see Map for that.
//
// The zero value is an uninitialized table: every lookup misses and inserting
// into it panics.
type Table[T any] struct {
	buckets []uint32    // chain head per bucket, len is a power of two
	pages   [][]slot[T] // slot arena
	used    uint32      // number of slots handed out so far (including slot 0)
	free    uint32      // head of the free list
	mask    uint64      // len(buckets) - 1
	count   int         // live records
}

// Init allocates an empty bucket array with the given capacity.
// The capacity must be a positive power of two.
func (t *Table[T]) Init(capacity int) {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic(fmt.Sprintf("hmap: capacity must be a positive power of two, got %d", capacity))
	}

	t.buckets = make([]uint32, capacity)
	t.pages = [][]slot[T]{make([]slot[T], pageSize)}
	t.used = 1
	t.free = nilSlot
	t.mask = uint64(capacity - 1)
	t.count = 0
}

// Initialized reports whether Init was called on the table
func (t *Table[T]) Initialized() bool {
	return t.buckets != nil
}

// Len returns the number of live records
func (t *Table[T]) Len() int {
	return t.count
}

// Cap returns the number of buckets (0 for an uninitialized table)
func (t *Table[T]) Cap() int {
	return len(t.buckets)
}

// Insert pushes the record as the new head of its bucket chain.
// Duplicates are not detected, callers look up first.
func (t *Table[T]) Insert(hcode uint64, item T) {
	if !t.Initialized() {
		panic("hmap: insert into uninitialized table")
	}

	pos := hcode & t.mask
	idx := t.alloc()

	s := t.slot(idx)
	s.hcode = hcode
	s.next = t.buckets[pos]
	s.item = item

	t.buckets[pos] = idx
	t.count++
}

// Lookup walks the chain of hcode and returns a reference to the first record
// whose hash code equals hcode and for which match returns true. Hash codes are
// compared before match is called.
func (t *Table[T]) Lookup(hcode uint64, match func(item *T) bool) (Ref, bool) {
	if !t.Initialized() {
		return Ref{}, false
	}

	pos := hcode & t.mask
	prev := nilSlot
	for idx := t.buckets[pos]; idx != nilSlot; {
		s := t.slot(idx)
		if s.hcode == hcode && match(&s.item) {
			return Ref{bucket: pos, prev: prev, idx: idx}, true
		}
		prev, idx = idx, s.next
	}

	return Ref{}, false
}

// At returns the record the reference points to. The pointer may be used to
// update the record in place until the record is detached.
func (t *Table[T]) At(ref Ref) *T {
	return &t.slot(ref.idx).item
}

// Detach unlinks the referenced record from its chain and hands it back to the
// caller together with its hash code. The slot is recycled.
func (t *Table[T]) Detach(ref Ref) (uint64, T) {
	s := t.slot(ref.idx)

	if ref.prev == nilSlot {
		t.buckets[ref.bucket] = s.next
	} else {
		t.slot(ref.prev).next = s.next
	}

	hcode, item := s.hcode, s.item

	// drop references held by the record and put the slot on the free list
	var zero T
	s.item = zero
	s.hcode = 0
	s.next = t.free
	t.free = ref.idx

	t.count--
	return hcode, item
}

// head returns a reference to the first record of the given bucket
func (t *Table[T]) head(bucket int) (Ref, bool) {
	idx := t.buckets[bucket]
	if idx == nilSlot {
		return Ref{}, false
	}
	return Ref{bucket: uint64(bucket), prev: nilSlot, idx: idx}, true
}

// Range calls fn for every record until fn returns false.
// The table must not be modified while ranging.
func (t *Table[T]) Range(fn func(hcode uint64, item *T) bool) bool {
	for _, head := range t.buckets {
		for idx := head; idx != nilSlot; {
			s := t.slot(idx)
			if !fn(s.hcode, &s.item) {
				return false
			}
			idx = s.next
		}
	}
	return true
}

// ChainLengths returns the number of records in every bucket
func (t *Table[T]) ChainLengths() []int {
	lengths := make([]int, len(t.buckets))
	for i, head := range t.buckets {
		for idx := head; idx != nilSlot; idx = t.slot(idx).next {
			lengths[i]++
		}
	}
	return lengths
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (t *Table[T]) slot(idx uint32) *slot[T] {
	return &t.pages[idx>>pageShift][idx&pageMask]
}

// alloc returns a free slot index, growing the arena by one page if needed
func (t *Table[T]) alloc() uint32 {
	if t.free != nilSlot {
		idx := t.free
		t.free = t.slot(idx).next
		return idx
	}

	if t.used == uint32(len(t.pages))<<pageShift {
		t.pages = append(t.pages, make([]slot[T], pageSize))
	}

	idx := t.used
	t.used++
	return idx
}
