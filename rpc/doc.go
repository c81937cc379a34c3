// Package rpc provides the network layer of pKV.
//
// The package is organized into several subpackages:
//
//   - common: Request and response types, configuration structures and logging.
//
//   - transport: Length prefixed framing over TCP or Unix sockets. The server
//     side is a single-threaded event loop.
//
//   - serializer: The binary command encoding carried inside the frames.
//
//   - client: RPC client implementing store.IStore against a remote server.
//
//   - server: Executes the commands against a local store.
//
//   - metrics: Counters, gauges and timers of a running server.
package rpc
