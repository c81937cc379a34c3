// Package store provides the interface the RPC layer uses to talk to the
// key-value storage. It is an abstraction over the lower-level db.KVDB
// implementations that adds feature checks and unified error reporting.
//
// Key Components:
//
//   - IStore Interface: The operations of the store (Set, Get, Delete, Has,
//     Keys) and metadata retrieval. Missing keys are reported through boolean
//     results, errors are reserved for failures.
//
//   - Error System: A structured error reporting mechanism using typed error codes
//     (RetCode) and descriptive messages, so callers can react to specific conditions
//     such as an operation the engine does not support.
//
//   - DBFactory: A function type that abstracts the creation of underlying db.KVDB
//     instances.
//
// Implementations:
//
//   - Local Store (lstore): A single-node implementation that directly
//     utilizes a db.KVDB instance. Available in the
//     "github.com/ValentinKolb/pKV/lib/store/lstore" package.
package store
