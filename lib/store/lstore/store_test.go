package lstore

import (
	"bytes"
	"errors"
	"sort"
	"testing"

	"github.com/ValentinKolb/pKV/lib/db"
	"github.com/ValentinKolb/pKV/lib/db/engines/birch"
	"github.com/ValentinKolb/pKV/lib/store"
)

func newStore(t *testing.T) store.IStore {
	s, err := NewLocalStore(func() (db.KVDB, error) {
		return birch.NewBirchDB(birch.DefaultOptions())
	})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return s
}

func TestStoreOperations(t *testing.T) {
	s := newStore(t)

	if err := s.Set("a", []byte("1")); err != nil {
		t.Fatalf("Unexpected error on set: %v", err)
	}
	if err := s.Set("a", []byte("2")); err != nil {
		t.Fatalf("Unexpected error on overwrite: %v", err)
	}
	if err := s.Set("b", []byte("3")); err != nil {
		t.Fatalf("Unexpected error on set: %v", err)
	}

	value, found, err := s.Get("a")
	if err != nil || !found || !bytes.Equal(value, []byte("2")) {
		t.Errorf("Expected a=2, got %q (found=%v, err=%v)", value, found, err)
	}

	if has, _ := s.Has("b"); !has {
		t.Error("Expected b to exist")
	}

	keys, err := s.Keys()
	if err != nil {
		t.Fatalf("Unexpected error on keys: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("Expected keys [a b], got %v", keys)
	}

	deleted, err := s.Delete("a")
	if err != nil || !deleted {
		t.Errorf("Expected a to be deleted (err=%v)", err)
	}
	deleted, err = s.Delete("a")
	if err != nil || deleted {
		t.Errorf("Expected second delete to report false without error (err=%v)", err)
	}

	if _, found, _ := s.Get("a"); found {
		t.Error("Expected a to be gone")
	}

	info, err := s.GetDBInfo()
	if err != nil {
		t.Fatalf("Unexpected error on info: %v", err)
	}
	if info.Entries != 1 || info.DbType != db.ImplBirch {
		t.Errorf("Unexpected info %+v", info)
	}
}

func TestFactoryError(t *testing.T) {
	_, err := NewLocalStore(func() (db.KVDB, error) {
		return birch.NewBirchDB(&birch.DBOptions{Hash: "crc"})
	})
	if err == nil {
		t.Error("Expected the factory error to be returned")
	}
}

// setOnlyDB supports nothing but Set
type setOnlyDB struct {
	db.KVDB
}

func (setOnlyDB) SupportsFeature(feature db.Feature) bool {
	return feature == db.FeatureSet
}

func TestUnsupportedOperations(t *testing.T) {
	s, err := NewLocalStore(func() (db.KVDB, error) {
		inner, err := birch.NewBirchDB(nil)
		return setOnlyDB{inner}, err
	})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := s.Set("a", nil); err != nil {
		t.Errorf("Expected set to be supported, got %v", err)
	}

	checks := map[string]error{}
	_, _, checks["get"] = s.Get("a")
	_, checks["has"] = s.Has("a")
	_, checks["delete"] = s.Delete("a")
	_, checks["keys"] = s.Keys()

	for op, err := range checks {
		var storeErr *store.Error
		if !errors.As(err, &storeErr) {
			t.Errorf("%s: expected *store.Error, got %v", op, err)
			continue
		}
		if storeErr.Code != store.RetCUnsupportedOperation {
			t.Errorf("%s: expected code %s, got %s", op, store.RetCUnsupportedOperation, storeErr.Code)
		}
	}
}
