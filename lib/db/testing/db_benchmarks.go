package testing

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/ValentinKolb/pKV/lib/db"
)

// RunKVDBBenchmarks runs all benchmarks for a key-value database implementations
func RunKVDBBenchmarks(b *testing.B, name string, factory DBFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Set", func(b *testing.B) {
			benchmarkSet(b, factory())
		})

		b.Run("SetExisting", func(b *testing.B) {
			benchmarkSetExisting(b, factory())
		})

		b.Run("Get", func(b *testing.B) {
			benchmarkGet(b, factory())
		})

		b.Run("Delete", func(b *testing.B) {
			benchmarkDelete(b, factory())
		})

		b.Run("Has(not)", func(b *testing.B) {
			benchmarkHasNot(b, factory())
		})

		b.Run("MixedUsage", func(b *testing.B) {
			benchmarkMixedUsage(b, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

func prepareKeys(n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("test-key-%d", i)
	}
	return keys
}

// Benchmark for Set operation with new keys, includes the cost of resizing
func benchmarkSet(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)

	keys := prepareKeys(b.N)
	value := []byte("test-value")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		database.Set(keys[i], value)
	}
}

// Benchmark for Set operation with existing keys
func benchmarkSetExisting(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)

	keys := prepareKeys(10_000)
	value := []byte("test-value")
	for _, key := range keys {
		database.Set(key, value)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		database.Set(keys[i%len(keys)], value)
	}
}

// Benchmark for Get operation
func benchmarkGet(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)
	requireFeature(b, database, db.FeatureGet)

	keys := prepareKeys(100_000)
	for _, key := range keys {
		database.Set(key, []byte("test-value"))
	}
	order := rand.Perm(len(keys))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		database.Get(keys[order[i%len(order)]])
	}
}

// Benchmark for Delete operation
func benchmarkDelete(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)
	requireFeature(b, database, db.FeatureDelete)

	keys := prepareKeys(b.N)
	for _, key := range keys {
		database.Set(key, []byte("test-value"))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		database.Delete(keys[i])
	}
}

// Benchmark for Has operation on missing keys
func benchmarkHasNot(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)
	requireFeature(b, database, db.FeatureHas)

	keys := prepareKeys(10_000)
	for _, key := range keys {
		database.Set(key, []byte("test-value"))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		database.Has("missing-key")
	}
}

// Benchmark for a read heavy mix of operations
func benchmarkMixedUsage(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)
	requireFeature(b, database, db.FeatureGet)
	requireFeature(b, database, db.FeatureDelete)

	keys := prepareKeys(10_000)
	value := []byte("test-value")
	for _, key := range keys {
		database.Set(key, value)
	}
	rnd := rand.New(rand.NewSource(42))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := keys[rnd.Intn(len(keys))]
		switch op := rnd.Intn(10); {
		case op < 7:
			database.Get(key)
		case op < 9:
			database.Set(key, value)
		default:
			database.Delete(key)
		}
	}
}
