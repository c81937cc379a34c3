package hmap

import (
	"github.com/ValentinKolb/pKV/lib/db/util"
)

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

const (
	// DefaultInitialCapacity is the bucket count of a freshly initialized map
	DefaultInitialCapacity = 4

	// DefaultMaxLoadFactor is the records-per-bucket ratio that starts a resize
	DefaultMaxLoadFactor = 8

	// DefaultResizeWork is the maximum number of records migrated per operation
	DefaultResizeWork = 128
)

// Options configures a Map. Zero fields fall back to the defaults.
type Options struct {
	// InitialCapacity is rounded up to the next power of two
	InitialCapacity int

	// MaxLoadFactor is compared with count / capacity using integer division
	MaxLoadFactor int

	// ResizeWork bounds the migration done by a single operation
	ResizeWork int
}

// DefaultOptions returns the options used when New is called with nil
func DefaultOptions() *Options {
	return &Options{
		InitialCapacity: DefaultInitialCapacity,
		MaxLoadFactor:   DefaultMaxLoadFactor,
		ResizeWork:      DefaultResizeWork,
	}
}

// Stats describes the resize activity of a Map
type Stats struct {
	ResizesStarted   uint64 `json:"resizes_started"`
	ResizesCompleted uint64 `json:"resizes_completed"`
	Migrated         uint64 `json:"migrated"`  // records moved in total
	LastStep         int    `json:"last_step"` // records moved by the last operation
}

// --------------------------------------------------------------------------
// Map
// --------------------------------------------------------------------------

// Map is a hash map that grows without stop-the-world rehashing. When the
// primary table gets too full it becomes the retiring table, a table with twice
// the capacity takes its place and every following operation moves a bounded
// number of records from the retiring into the primary table.
//
// Map is not safe for concurrent use.
type Map[T any] struct {
	primary  Table[T]
	retiring Table[T]
	cursor   int // next bucket of retiring to migrate

	opts  Options
	stats Stats
}

// New creates an empty map. No memory is allocated before the first insert.
func New[T any](opts *Options) *Map[T] {
	o := DefaultOptions()
	if opts != nil {
		if opts.InitialCapacity > 0 {
			o.InitialCapacity = nextPowerOfTwo(opts.InitialCapacity)
		}
		if opts.MaxLoadFactor > 0 {
			o.MaxLoadFactor = opts.MaxLoadFactor
		}
		if opts.ResizeWork > 0 {
			o.ResizeWork = opts.ResizeWork
		}
	}
	return &Map[T]{opts: *o}
}

// Insert adds a record under the given hash code. The map does not check for
// an existing record, use Lookup first to replace values.
func (m *Map[T]) Insert(hcode uint64, item T) {
	if !m.primary.Initialized() {
		m.primary.Init(m.opts.InitialCapacity)
	}

	m.primary.Insert(hcode, item)

	if !m.Resizing() && m.primary.Len()/m.primary.Cap() >= m.opts.MaxLoadFactor {
		m.startResize()
	}

	m.helpResize()
}

// Lookup returns the record matching hcode and match, or nil. The pointer is
// valid until the next operation on the map.
func (m *Map[T]) Lookup(hcode uint64, match func(item *T) bool) *T {
	m.helpResize()

	if ref, ok := m.primary.Lookup(hcode, match); ok {
		return m.primary.At(ref)
	}
	if ref, ok := m.retiring.Lookup(hcode, match); ok {
		return m.retiring.At(ref)
	}
	return nil
}

// Remove detaches the matching record and hands it to the caller
func (m *Map[T]) Remove(hcode uint64, match func(item *T) bool) (T, bool) {
	m.helpResize()

	if ref, ok := m.primary.Lookup(hcode, match); ok {
		_, item := m.primary.Detach(ref)
		return item, true
	}
	if ref, ok := m.retiring.Lookup(hcode, match); ok {
		_, item := m.retiring.Detach(ref)
		m.finishResizeIfDone()
		return item, true
	}

	var zero T
	return zero, false
}

// Len returns the number of records in both tables
func (m *Map[T]) Len() int {
	return m.primary.Len() + m.retiring.Len()
}

// Cap returns the bucket count of the primary table
func (m *Map[T]) Cap() int {
	return m.primary.Cap()
}

// Resizing reports whether a migration is in progress
func (m *Map[T]) Resizing() bool {
	return m.retiring.Initialized()
}

// Range calls fn for every record until fn returns false.
// The map must not be modified while ranging.
func (m *Map[T]) Range(fn func(item *T) bool) {
	visit := func(_ uint64, item *T) bool { return fn(item) }
	if m.primary.Range(visit) {
		m.retiring.Range(visit)
	}
}

// Stats returns the resize statistics
func (m *Map[T]) Stats() Stats {
	return m.stats
}

// Distribution returns statistics about the chain lengths of the primary table
func (m *Map[T]) Distribution() util.DistributionStats {
	lengths := m.primary.ChainLengths()
	values := make([]float64, len(lengths))
	for i, l := range lengths {
		values[i] = float64(l)
	}
	return util.NewDistributionStats(values)
}

// --------------------------------------------------------------------------
// Resizing
// --------------------------------------------------------------------------

func (m *Map[T]) startResize() {
	m.retiring = m.primary
	m.primary = Table[T]{}
	m.primary.Init(m.retiring.Cap() * 2)
	m.cursor = 0
	m.stats.ResizesStarted++
}

// helpResize moves up to ResizeWork records from the retiring table into the
// primary table and returns how many were moved.
func (m *Map[T]) helpResize() int {
	if !m.Resizing() {
		m.stats.LastStep = 0
		return 0
	}

	moved := 0
	for moved < m.opts.ResizeWork && m.retiring.Len() > 0 {
		ref, ok := m.retiring.head(m.cursor)
		if !ok {
			m.cursor++
			continue
		}
		hcode, item := m.retiring.Detach(ref)
		m.primary.Insert(hcode, item)
		moved++
	}

	m.stats.LastStep = moved
	m.stats.Migrated += uint64(moved)
	m.finishResizeIfDone()
	return moved
}

func (m *Map[T]) finishResizeIfDone() {
	if m.Resizing() && m.retiring.Len() == 0 {
		m.retiring = Table[T]{}
		m.cursor = 0
		m.stats.ResizesCompleted++
	}
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
