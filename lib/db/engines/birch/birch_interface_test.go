package birch

import (
	"fmt"
	"testing"

	"github.com/ValentinKolb/pKV/lib/db"
	dbtesting "github.com/ValentinKolb/pKV/lib/db/testing"
	"github.com/ValentinKolb/pKV/lib/db/hmap"
)

func newDB(t testing.TB, opts *DBOptions) db.KVDB {
	database, err := NewBirchDB(opts)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	return database
}

func Test(t *testing.T) {
	dbtesting.RunKVDBTests(t, "BirchDB(fnv)", func() db.KVDB {
		return newDB(t, &DBOptions{Hash: HashFNV})
	})
	dbtesting.RunKVDBTests(t, "BirchDB(xxhash)", func() db.KVDB {
		return newDB(t, &DBOptions{Hash: HashXXHash})
	})
	dbtesting.RunKVDBTests(t, "BirchDB(slow-resize)", func() db.KVDB {
		return newDB(t, &DBOptions{Map: &hmap.Options{ResizeWork: 1}})
	})
}

func TestUnknownHash(t *testing.T) {
	if _, err := NewBirchDB(&DBOptions{Hash: "md5"}); err == nil {
		t.Error("Expected an error for an unknown hash function")
	}
}

func TestOverwriteKeepsIndexStable(t *testing.T) {
	database := newDB(t, nil)
	defer database.Close()

	for i := 0; i < 1000; i++ {
		database.Set(fmt.Sprintf("k%d", i), []byte("v"))
	}
	before, ok := database.GetInfo().Metadata.(*Metadata)
	if !ok {
		t.Fatalf("Unexpected metadata type %T", database.GetInfo().Metadata)
	}
	if before.Hash != HashFNV || before.Capacity == 0 {
		t.Errorf("Unexpected metadata %+v", before)
	}

	for round := 0; round < 10; round++ {
		for i := 0; i < 1000; i++ {
			database.Set(fmt.Sprintf("k%d", i), []byte(fmt.Sprintf("value-%d", round)))
		}
	}

	if database.Len() != 1000 {
		t.Errorf("Expected 1000 entries after overwrites, got %d", database.Len())
	}
	after := database.GetInfo().Metadata.(*Metadata)
	if started := after.Resize.ResizesStarted; started != before.Resize.ResizesStarted {
		t.Errorf("Overwrites must not grow the index: resizes %d -> %d", before.Resize.ResizesStarted, started)
	}
}

func TestCloseDropsEntries(t *testing.T) {
	database := newDB(t, nil)
	database.Set("a", []byte("1"))
	if err := database.Close(); err != nil {
		t.Fatalf("Unexpected error on close: %v", err)
	}
	if database.Has("a") || database.Len() != 0 {
		t.Error("Expected close to drop all entries")
	}
}

func Benchmark(b *testing.B) {
	dbtesting.RunKVDBBenchmarks(b, "BirchDB(fnv)", func() db.KVDB {
		return newDB(b, &DBOptions{Hash: HashFNV})
	})
	dbtesting.RunKVDBBenchmarks(b, "BirchDB(xxhash)", func() db.KVDB {
		return newDB(b, &DBOptions{Hash: HashXXHash})
	})
}
