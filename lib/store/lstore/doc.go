// Package lstore implements a local, in-memory, single-node key-value store based on the
// store.IStore interface. It is a thin wrapper around a db.KVDB implementation.
// Data is stored entirely in memory and is not persisted between process restarts.
//
// Implementation Details:
//
//   - Feature Detection: Before executing operations, the store checks if the underlying
//     db.KVDB implementation supports the requested feature through the SupportsFeature
//     method. Unsupported operations return a store.Error with RetCUnsupportedOperation
//     rather than failing at runtime.
//
//   - Composition Architecture: The store.DBFactory injects the underlying db.KVDB
//     implementation, so the store works with any compatible engine.
//
// The store is not safe for concurrent use. The server owns exactly one store
// and calls it from the goroutine running its event loop.
//
// Usage Example:
//
//	factory := func() (db.KVDB, error) { return birch.NewBirchDB(birch.DefaultOptions()) }
//	s, err := lstore.NewLocalStore(factory)
//
//	err = s.Set("session:123", sessionData)
//	value, exists, err := s.Get("session:123")
package lstore
