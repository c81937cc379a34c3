package hmap

import (
	"fmt"
	"testing"

	"github.com/ValentinKolb/pKV/lib/db/util"
)

func hashOf(key string) uint64 {
	return uint64(util.HashString(key, 0))
}

func lookup(m *Map[record], key string) *record {
	return m.Lookup(hashOf(key), matchKey(key))
}

func insert(m *Map[record], key string, value int) {
	m.Insert(hashOf(key), record{key: key, value: value})
}

func TestMapEmpty(t *testing.T) {
	m := New[record](nil)
	if lookup(m, "missing") != nil {
		t.Error("Expected lookup in empty map to miss")
	}
	if _, ok := m.Remove(hashOf("missing"), matchKey("missing")); ok {
		t.Error("Expected remove in empty map to miss")
	}
	if m.Len() != 0 || m.Cap() != 0 {
		t.Errorf("Expected no allocation before first insert, got len %d cap %d", m.Len(), m.Cap())
	}
}

func TestMapManyKeys(t *testing.T) {
	const n = 100_000
	m := New[record](DefaultOptions())

	for i := 0; i < n; i++ {
		insert(m, fmt.Sprintf("key-%d", i), i)
		if step := m.Stats().LastStep; step > DefaultResizeWork {
			t.Fatalf("Insert %d migrated %d records", i, step)
		}
	}

	if m.Len() != n {
		t.Fatalf("Expected %d records, got %d", n, m.Len())
	}

	for i := 0; i < n; i++ {
		key := fmt.Sprintf("key-%d", i)
		r := lookup(m, key)
		if r == nil {
			t.Fatalf("Key %s lost", key)
		}
		if r.value != i {
			t.Fatalf("Expected value %d for %s, got %d", i, key, r.value)
		}
	}

	// no record is visible twice
	seen := make(map[string]struct{}, n)
	m.Range(func(r *record) bool {
		if _, dup := seen[r.key]; dup {
			t.Errorf("Duplicate record %s", r.key)
		}
		seen[r.key] = struct{}{}
		return true
	})
	if len(seen) != n {
		t.Errorf("Expected to range over %d records, got %d", n, len(seen))
	}

	stats := m.Stats()
	if stats.ResizesStarted == 0 {
		t.Error("Expected at least one resize")
	}
	if stats.ResizesStarted-stats.ResizesCompleted > 1 {
		t.Errorf("More than one resize in flight: %+v", stats)
	}
}

func TestMapResizeTrigger(t *testing.T) {
	m := New[record](nil)

	// 31 / 4 == 7 stays below the limit
	for i := 0; i < 31; i++ {
		insert(m, fmt.Sprintf("k%d", i), i)
	}
	if m.Stats().ResizesStarted != 0 {
		t.Fatalf("Expected no resize at 31 records, got %d", m.Stats().ResizesStarted)
	}
	if m.Cap() != 4 {
		t.Fatalf("Expected capacity 4, got %d", m.Cap())
	}

	// 32 / 4 == 8 starts the resize, and the step right after migrates everything
	insert(m, "k31", 31)
	stats := m.Stats()
	if stats.ResizesStarted != 1 || stats.ResizesCompleted != 1 {
		t.Fatalf("Expected one finished resize, got %+v", stats)
	}
	if m.Cap() != 8 {
		t.Errorf("Expected capacity 8, got %d", m.Cap())
	}
	if m.Resizing() {
		t.Error("Expected resize to be complete")
	}
	if stats.LastStep != 32 {
		t.Errorf("Expected 32 migrated records in the last step, got %d", stats.LastStep)
	}
}

func TestMapResizeIsProgressive(t *testing.T) {
	m := New[record](&Options{InitialCapacity: 4, MaxLoadFactor: 8, ResizeWork: 1})

	for i := 0; i < 32; i++ {
		insert(m, fmt.Sprintf("k%d", i), i)
	}
	if !m.Resizing() {
		t.Fatal("Expected a resize in flight")
	}
	if m.Len() != 32 {
		t.Fatalf("Expected 32 records, got %d", m.Len())
	}

	// every lookup advances the migration by at most one record
	before := m.Stats().Migrated
	for i := 0; i < 10; i++ {
		if r := lookup(m, fmt.Sprintf("k%d", i)); r == nil || r.value != i {
			t.Fatalf("Expected k%d during resize", i)
		}
		if step := m.Stats().LastStep; step > 1 {
			t.Fatalf("Lookup migrated %d records", step)
		}
	}
	if moved := m.Stats().Migrated - before; moved != 10 {
		t.Errorf("Expected 10 migrated records, got %d", moved)
	}

	// records that are still in the retiring table can be removed
	for i := 31; i >= 20; i-- {
		key := fmt.Sprintf("k%d", i)
		item, ok := m.Remove(hashOf(key), matchKey(key))
		if !ok || item.value != i {
			t.Fatalf("Expected to remove %s during resize", key)
		}
	}
	if m.Len() != 20 {
		t.Errorf("Expected 20 records, got %d", m.Len())
	}

	// drive the migration to the end
	for i := 0; m.Resizing(); i++ {
		if i > 100 {
			t.Fatal("Resize does not finish")
		}
		lookup(m, "k0")
	}

	for i := 0; i < 32; i++ {
		r := lookup(m, fmt.Sprintf("k%d", i))
		if (r != nil) != (i < 20) {
			t.Errorf("Unexpected presence of k%d: %v", i, r != nil)
		}
	}
	if m.Stats().ResizesCompleted != 1 {
		t.Errorf("Expected one completed resize, got %d", m.Stats().ResizesCompleted)
	}
}

func TestMapRemoveReleasesRetiringTable(t *testing.T) {
	m := New[record](&Options{InitialCapacity: 4, ResizeWork: 1})
	for i := 0; i < 32; i++ {
		insert(m, fmt.Sprintf("k%d", i), i)
	}
	if !m.Resizing() {
		t.Fatal("Expected a resize in flight")
	}

	for i := 0; i < 32; i++ {
		key := fmt.Sprintf("k%d", i)
		if _, ok := m.Remove(hashOf(key), matchKey(key)); !ok {
			t.Fatalf("Expected to remove %s", key)
		}
	}

	if m.Resizing() {
		t.Error("Expected the retiring table to be released")
	}
	if m.Len() != 0 {
		t.Errorf("Expected empty map, got %d records", m.Len())
	}
}

func TestMapRemoveDuringResize(t *testing.T) {
	const n = 20_000
	m := New[record](nil)

	for i := 0; i < n; i++ {
		insert(m, fmt.Sprintf("key-%d", i), i)
		// remove every third key right away, often while a resize is running
		if i%3 == 0 {
			key := fmt.Sprintf("key-%d", i)
			if _, ok := m.Remove(hashOf(key), matchKey(key)); !ok {
				t.Fatalf("Expected to remove %s", key)
			}
		}
	}

	for i := 0; i < n; i++ {
		present := lookup(m, fmt.Sprintf("key-%d", i)) != nil
		if present != (i%3 != 0) {
			t.Fatalf("Unexpected presence of key-%d: %v", i, present)
		}
	}
}

func TestMapOptionsNormalization(t *testing.T) {
	m := New[record](&Options{InitialCapacity: 5})
	insert(m, "a", 1)
	if m.Cap() != 8 {
		t.Errorf("Expected capacity to be rounded up to 8, got %d", m.Cap())
	}
	if m.opts.MaxLoadFactor != DefaultMaxLoadFactor || m.opts.ResizeWork != DefaultResizeWork {
		t.Errorf("Expected defaults for unset options, got %+v", m.opts)
	}
}

func TestMapDistribution(t *testing.T) {
	m := New[record](nil)
	for i := 0; i < 1000; i++ {
		insert(m, fmt.Sprintf("key-%d", i), i)
	}
	dist := m.Distribution()
	if dist.Mean <= 0 {
		t.Errorf("Expected a positive mean chain length, got %f", dist.Mean)
	}
	if dist.Max < dist.Mean || dist.Min > dist.Mean {
		t.Errorf("Inconsistent distribution: %+v", dist)
	}
}

func BenchmarkMapInsert(b *testing.B) {
	keys := make([]string, b.N)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%d", i)
	}
	m := New[record](nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		insert(m, keys[i], i)
	}
}
