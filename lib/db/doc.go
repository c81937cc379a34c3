// Package db defines the contract between the key-value store and its
// database engines.
//
// Key Components:
//
//   - KVDB Interface: The operations every engine provides (Set, Get, Delete,
//     Has, Keys) together with metadata retrieval (GetInfo) and feature
//     discovery (SupportsFeature).
//
//   - Feature Flags: Engines advertise the operations they implement so the
//     store layer can answer unsupported requests with a proper error instead
//     of failing at runtime.
//
//   - Database Information: DatabaseInfo reports the entry count, an estimated
//     size in bytes and engine specific metadata such as the bucket
//     distribution of the index. Sizes are estimated from samples, a precise
//     calculation would require a full scan.
//
// Related Packages:
//
// The engines/birch package provides the engine used by the server, an
// entry store indexed by the progressive hash map of package hmap.
//
// The testing package provides RunKVDBTests and RunKVDBBenchmarks, a
// conformance suite and benchmarks that every engine is run against.
package db
