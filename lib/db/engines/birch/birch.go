package birch

import (
	"fmt"

	"github.com/ValentinKolb/pKV/lib/db"
	"github.com/ValentinKolb/pKV/lib/db/hmap"
	"github.com/ValentinKolb/pKV/lib/db/util"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	HashFNV    = "fnv"    // seeded FNV-1a
	HashXXHash = "xxhash" // seeded xxHash64

	// number of entries inspected by GetInfo to estimate value sizes
	infoSamples = 100

	// per entry overhead: slot header, string and slice headers
	entryOverhead = 8 + 4 + 16 + 24
)

const supportedFeatures = db.FeatureSet |
	db.FeatureGet |
	db.FeatureDelete |
	db.FeatureHas |
	db.FeatureKeys

// --------------------------------------------------------------------------
// Core Birch database structure
// --------------------------------------------------------------------------

// entry is the record stored in the index
type entry struct {
	key   string
	value []byte
}

// Metadata is the engine specific part of db.DatabaseInfo
type Metadata struct {
	Hash         string                 `json:"hash"`
	Capacity     int                    `json:"capacity"`
	Resizing     bool                   `json:"resizing"`
	Resize       hmap.Stats             `json:"resize"`
	Distribution util.DistributionStats `json:"bucket_distribution"`
	Info         string                 `json:"info"`
}

// birchImpl stores entries in a progressive hash map. It is not safe for
// concurrent use.
type birchImpl struct {
	hashName string
	seed     uint64
	hash     func(s string, seed uint64) util.UintKey
	mapOpts  hmap.Options
	index    *hmap.Map[entry]
}

// DBOptions configures the birchImpl behavior during initialization
type DBOptions struct {
	Hash string        // HashFNV or HashXXHash
	Map  *hmap.Options // index options (nil = hmap defaults)
}

// DefaultOptions returns the default birchImpl options
func DefaultOptions() *DBOptions {
	return &DBOptions{
		Hash: HashFNV,
		Map:  hmap.DefaultOptions(),
	}
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// NewBirchDB creates a new BirchDB instance with the specified options (optional)
func NewBirchDB(opts *DBOptions) (db.KVDB, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	newDB := &birchImpl{
		hashName: opts.Hash,
		seed:     util.GenerateSeed(),
	}

	switch opts.Hash {
	case HashFNV, "":
		newDB.hashName = HashFNV
		newDB.hash = util.HashString
	case HashXXHash:
		newDB.hash = util.HashStringXX
	default:
		return nil, fmt.Errorf("unknown hash function %q (expected %s or %s)", opts.Hash, HashFNV, HashXXHash)
	}

	if opts.Map != nil {
		newDB.mapOpts = *opts.Map
	} else {
		newDB.mapOpts = *hmap.DefaultOptions()
	}
	newDB.index = hmap.New[entry](&newDB.mapOpts)

	return newDB, nil
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

func (birch *birchImpl) hcode(key string) uint64 {
	return uint64(birch.hash(key, birch.seed))
}

// keyMatcher compares the full key, hash codes are compared by the index
func keyMatcher(key string) func(e *entry) bool {
	return func(e *entry) bool {
		return e.key == key
	}
}

func (birch *birchImpl) lookup(key string) *entry {
	return birch.index.Lookup(birch.hcode(key), keyMatcher(key))
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Write Operations
// --------------------------------------------------------------------------

// Set inserts or updates an entry. An existing entry is updated in place and
// keeps its position in the index.
func (birch *birchImpl) Set(key string, value []byte) {
	hcode := birch.hcode(key)

	if e := birch.index.Lookup(hcode, keyMatcher(key)); e != nil {
		e.value = append(e.value[:0], value...)
		return
	}

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)
	birch.index.Insert(hcode, entry{key: key, value: valueCopy})
}

// Delete removes the entry and reports whether it existed
func (birch *birchImpl) Delete(key string) bool {
	_, deleted := birch.index.Remove(birch.hcode(key), keyMatcher(key))
	return deleted
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Query Operations
// --------------------------------------------------------------------------

// Get returns a copy of the stored value
func (birch *birchImpl) Get(key string) ([]byte, bool) {
	e := birch.lookup(key)
	if e == nil {
		return nil, false
	}

	valueCopy := make([]byte, len(e.value))
	copy(valueCopy, e.value)
	return valueCopy, true
}

func (birch *birchImpl) Has(key string) bool {
	return birch.lookup(key) != nil
}

func (birch *birchImpl) Keys() []string {
	keys := make([]string, 0, birch.index.Len())
	birch.index.Range(func(e *entry) bool {
		keys = append(keys, e.key)
		return true
	})
	return keys
}

func (birch *birchImpl) Len() int {
	return birch.index.Len()
}

// --------------------------------------------------------------------------
// Info and Lifecycle
// --------------------------------------------------------------------------

// GetInfo returns statistics about the database. Sizes are estimated from a
// sample of the entries.
func (birch *birchImpl) GetInfo() db.DatabaseInfo {
	histogram := util.NewSizeHistogram()
	samples := 0
	birch.index.Range(func(e *entry) bool {
		histogram.AddSample(len(e.key) + len(e.value) + entryOverhead)
		samples++
		return samples < infoSamples
	})

	// weighted estimate (60% median, 40% average)
	perEntry := (histogram.MedianEstimate()*60 + histogram.AverageSize()*40) / 100
	entries := birch.index.Len()

	meta := &Metadata{
		Hash:         birch.hashName,
		Capacity:     birch.index.Cap(),
		Resizing:     birch.index.Resizing(),
		Resize:       birch.index.Stats(),
		Distribution: birch.index.Distribution(),
		Info:         "SizeBytes is estimated from a sample of the entries.",
	}

	return db.DatabaseInfo{
		Entries:   entries,
		SizeBytes: perEntry * entries,
		DbType:    db.ImplBirch,
		SupportedFeatures: []db.Feature{
			db.FeatureSet, db.FeatureGet, db.FeatureDelete, db.FeatureHas, db.FeatureKeys,
		},
		Metadata: meta,
	}
}

// SupportsFeature checks if this implementation supports a specific KVDB feature
func (birch *birchImpl) SupportsFeature(feature db.Feature) bool {
	return supportedFeatures&feature == feature
}

// Close drops all entries, the database stays usable
func (birch *birchImpl) Close() error {
	birch.index = hmap.New[entry](&birch.mapOpts)
	return nil
}
