package testing

import (
	"bytes"
	"fmt"
	"sort"
	"testing"

	"github.com/ValentinKolb/pKV/lib/db"
)

// DBFactory is a function that creates a new instance of a KVDB implementation
type DBFactory func() db.KVDB

// RunKVDBTests runs a comprehensive test suite for a KVDB implementation.
func RunKVDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("Has", func(t *testing.T) {
			testHas(t, factory())
		})

		t.Run("Keys", func(t *testing.T) {
			testKeys(t, factory())
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory())
		})

		t.Run("CollisionHandling", func(t *testing.T) {
			testCollisionHandling(t, factory())
		})

		t.Run("Growth", func(t *testing.T) {
			testGrowth(t, factory())
		})

		t.Run("RealisticUsage", func(t *testing.T) {
			testRealisticUsage(t, factory())
		})

		t.Run("Info", func(t *testing.T) {
			testInfo(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the database supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, database db.KVDB, feature db.Feature) {
	if !database.SupportsFeature(feature) {
		t.Skip()
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)
	requireFeature(t, database, db.FeatureGet)

	testKey := "test-key"
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	database.Set(testKey, testValue1)

	result, exists := database.Get(testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}

	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	database.Set(testKey, testValue2)

	result, exists = database.Get(testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}

	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	if database.Len() != 1 {
		t.Errorf("Expected overwrite to keep a single entry, got %d", database.Len())
	}

	_, exists = database.Get("nonexistent-key")
	if exists {
		t.Errorf("Expected nonexistent key to return exists=false")
	}

	retrievedValue, _ := database.Get(testKey)
	retrievedValue[0] = 'X'

	originalValue, _ := database.Get(testKey)
	if bytes.Equal(retrievedValue, originalValue) {
		t.Errorf("Get should return a copy, not a reference to the stored value")
	}

	// the caller may reuse its buffer after Set
	buf := []byte("buffer-value")
	database.Set("buffer-key", buf)
	copy(buf, "XXXXXX")

	result, _ = database.Get("buffer-key")
	if !bytes.Equal(result, []byte("buffer-value")) {
		t.Errorf("Set should copy the value, got %s", result)
	}
}

func testDelete(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)
	requireFeature(t, database, db.FeatureGet)
	requireFeature(t, database, db.FeatureDelete)

	testKey := "delete-test-key"
	testValue := []byte("delete-test-value")

	database.Set(testKey, testValue)

	_, exists := database.Get(testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}

	if !database.Delete(testKey) {
		t.Errorf("Expected Delete to report an existing key")
	}

	_, exists = database.Get(testKey)
	if exists {
		t.Errorf("Expected key %s to not exist after Delete", testKey)
	}

	if database.Delete(testKey) {
		t.Errorf("Expected second Delete of %s to report false", testKey)
	}

	if database.Delete("nonexistent-key") {
		t.Errorf("Expected Delete of a nonexistent key to report false")
	}

	if database.Len() != 0 {
		t.Errorf("Expected empty database, got %d entries", database.Len())
	}
}

func testHas(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)
	requireFeature(t, database, db.FeatureDelete)
	requireFeature(t, database, db.FeatureHas)

	testKey := "has-exists-test-key"
	testValue := []byte("has-exists-test-value")

	if database.Has(testKey) {
		t.Errorf("Expected Has to return false for nonexistent key")
	}

	database.Set(testKey, testValue)

	if !database.Has(testKey) {
		t.Errorf("Expected Has to return true after Set")
	}

	database.Delete(testKey)

	if database.Has(testKey) {
		t.Errorf("Expected Has to return false after Delete")
	}
}

func testKeys(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)
	requireFeature(t, database, db.FeatureKeys)

	if keys := database.Keys(); len(keys) != 0 {
		t.Errorf("Expected no keys in an empty database, got %v", keys)
	}

	expected := make([]string, 0, 100)
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("keys-test-%03d", i)
		expected = append(expected, key)
		database.Set(key, []byte("v"))
	}
	database.Set("keys-test-000", []byte("overwrite"))

	keys := database.Keys()
	sort.Strings(keys)

	if len(keys) != len(expected) {
		t.Fatalf("Expected %d keys, got %d", len(expected), len(keys))
	}
	for i := range keys {
		if keys[i] != expected[i] {
			t.Errorf("Expected key %s at position %d, got %s", expected[i], i, keys[i])
		}
	}
}

func testEdgeCases(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)
	requireFeature(t, database, db.FeatureGet)

	emptyKey := ""
	emptyKeyValue := []byte("value for empty key")

	database.Set(emptyKey, emptyKeyValue)

	result, exists := database.Get(emptyKey)
	if !exists {
		t.Errorf("Empty key not found after Set")
	} else if !bytes.Equal(result, emptyKeyValue) {
		t.Errorf("Value mismatch for empty key")
	}

	emptyValueKey := "empty-value-key"
	emptyValue := []byte{}

	database.Set(emptyValueKey, emptyValue)

	result, exists = database.Get(emptyValueKey)
	if !exists {
		t.Errorf("Key for empty value not found after Set")
	} else if len(result) != 0 {
		t.Errorf("Empty value mismatch")
	}

	nilValueKey := "nil-value-key"
	var nilValue []byte = nil

	database.Set(nilValueKey, nilValue)

	result, exists = database.Get(nilValueKey)
	if !exists {
		t.Errorf("Key for nil value not found after Set")
	} else if len(result) != 0 {
		t.Errorf("Nil value resulted in non-empty value: %v", result)
	}

	binaryKey := string([]byte{0, 1, 2, 255, 0})
	database.Set(binaryKey, []byte{0})
	if _, exists := database.Get(string([]byte{0, 1, 2, 255})); exists {
		t.Errorf("Prefix of a binary key must not match")
	}
	if _, exists := database.Get(binaryKey); !exists {
		t.Errorf("Binary key not found after Set")
	}

	if !t.Failed() {

		largeKey := string(make([]byte, 1000))
		largeKeyValue := []byte("value for large key")

		database.Set(largeKey, largeKeyValue)

		result, exists = database.Get(largeKey)
		if !exists {
			t.Errorf("Large key not found after Set")
		} else if !bytes.Equal(result, largeKeyValue) {
			t.Errorf("Value mismatch for large key")
		}

		largeValueKey := "large-value-key"
		largeValue := make([]byte, 16*1024*1024)

		for i := range largeValue {
			largeValue[i] = byte(i % 256)
		}

		database.Set(largeValueKey, largeValue)

		result, exists = database.Get(largeValueKey)
		if !exists {
			t.Errorf("Key for large value not found after Set")
		} else if !bytes.Equal(result, largeValue) {
			t.Errorf("Large value mismatch: got %d bytes, expected %d", len(result), len(largeValue))
		}
	}
}

func testCollisionHandling(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)
	requireFeature(t, database, db.FeatureGet)
	requireFeature(t, database, db.FeatureDelete)

	prefix := "collision-test-"
	numKeys := 1000

	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("%s%d", prefix, i)
		value := []byte(fmt.Sprintf("value-%d", i))

		database.Set(key, value)
	}

	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("%s%d", prefix, i)
		expectedValue := []byte(fmt.Sprintf("value-%d", i))

		actualValue, exists := database.Get(key)
		if !exists {
			t.Errorf("Key %s not found", key)
			continue
		}

		if !bytes.Equal(actualValue, expectedValue) {
			t.Errorf("Value for key %s does not match: expected %s, got %s",
				key, expectedValue, actualValue)
		}
	}

	for i := 0; i < numKeys; i += 2 {
		key := fmt.Sprintf("%s%d", prefix, i)
		database.Delete(key)
	}

	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("%s%d", prefix, i)
		_, exists := database.Get(key)

		if i%2 == 0 {
			if exists {
				t.Errorf("Key %s should be deleted", key)
			}
		} else if !exists {
			t.Errorf("Key %s should still exist", key)
		}
	}
}

// testGrowth writes enough keys to force several index resizes and checks that
// nothing is lost or duplicated on the way
func testGrowth(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)
	requireFeature(t, database, db.FeatureGet)
	requireFeature(t, database, db.FeatureDelete)

	const numKeys = 100_000

	for i := 0; i < numKeys; i++ {
		database.Set(fmt.Sprintf("growth-%d", i), []byte(fmt.Sprintf("%d", i)))

		// overwrite and delete keys while the index is moving
		if i%10 == 0 {
			database.Set(fmt.Sprintf("growth-%d", i), []byte("overwritten"))
		}
		if i%7 == 0 {
			database.Delete(fmt.Sprintf("growth-%d", i))
		}
	}

	expected := 0
	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("growth-%d", i)
		value, exists := database.Get(key)

		switch {
		case i%7 == 0:
			if exists {
				t.Fatalf("Key %s should be deleted", key)
			}
		case i%10 == 0:
			expected++
			if !exists || string(value) != "overwritten" {
				t.Fatalf("Expected overwritten value for %s, got %q (exists=%v)", key, value, exists)
			}
		default:
			expected++
			if !exists || string(value) != fmt.Sprintf("%d", i) {
				t.Fatalf("Expected value %d for %s, got %q (exists=%v)", i, key, value, exists)
			}
		}
	}

	if database.Len() != expected {
		t.Errorf("Expected %d entries, got %d", expected, database.Len())
	}
}

func testRealisticUsage(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)
	requireFeature(t, database, db.FeatureGet)
	requireFeature(t, database, db.FeatureDelete)
	requireFeature(t, database, db.FeatureHas)

	// a session cache: sessions are created, refreshed and dropped
	model := make(map[string]string)
	for round := 0; round < 50; round++ {
		for i := 0; i < 200; i++ {
			key := fmt.Sprintf("session:%d", (round*37+i)%1000)
			switch (round + i) % 4 {
			case 0, 1:
				value := fmt.Sprintf("user-%d-round-%d", i, round)
				database.Set(key, []byte(value))
				model[key] = value
			case 2:
				_, inModel := model[key]
				if deleted := database.Delete(key); deleted != inModel {
					t.Fatalf("Delete(%s) = %v, expected %v", key, deleted, inModel)
				}
				delete(model, key)
			case 3:
				value, exists := database.Get(key)
				expected, inModel := model[key]
				if exists != inModel || (exists && string(value) != expected) {
					t.Fatalf("Get(%s) = %q, %v, expected %q, %v", key, value, exists, expected, inModel)
				}
				if database.Has(key) != inModel {
					t.Fatalf("Has(%s) disagrees with Get", key)
				}
			}
		}
	}

	if database.Len() != len(model) {
		t.Errorf("Expected %d entries, got %d", len(model), database.Len())
	}
}

func testInfo(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)

	for i := 0; i < 500; i++ {
		database.Set(fmt.Sprintf("info-%d", i), make([]byte, 100))
	}

	info := database.GetInfo()
	if info.Entries != 500 {
		t.Errorf("Expected 500 entries in info, got %d", info.Entries)
	}
	if info.SizeBytes <= 0 {
		t.Errorf("Expected a positive size estimate, got %d", info.SizeBytes)
	}
	if info.DbType == "" {
		t.Errorf("Expected a database type")
	}
	for _, feature := range info.SupportedFeatures {
		if !database.SupportsFeature(feature) {
			t.Errorf("Feature %s reported in info but not supported", feature)
		}
	}
}
