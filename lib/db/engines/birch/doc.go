// Package birch implements the in-memory key-value database used by the
// server. Entries (a string key and a byte value) are indexed by the
// progressive hash map of package hmap, so the store grows without ever
// stopping to rehash all keys.
//
// Keys are hashed with a per instance seed, either with FNV-1a or with
// xxHash64 (DBOptions.Hash). The index compares the hash code of an entry
// before the key itself.
//
// Values are copied on Set and on Get. Overwriting a key updates the entry in
// place and reuses its value buffer where possible.
//
// The engine is not safe for concurrent use. The server drives it from the
// goroutine running the event loop.
package birch
