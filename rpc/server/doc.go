// Package server implements the RPC server of pKV. It connects a server
// transport, the command codec and a local store.
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for server adapters,
//     with the Handle method that executes a decoded request against a store.IStore.
//
//   - NewIStoreServerAdapter: Adapter for the key-value commands get, set, del,
//     has and keys. Unknown commands and wrong argument counts are answered
//     with an ERR response, a missing key with NX.
//
//   - NewRPCServer: Creates a server for the configured mode. In kv mode the
//     requests are executed against a birch backed local store, in echo mode
//     every request payload is sent back unchanged.
//
// Usage Example:
//
//	config := common.DefaultServerConfig()
//	config.Endpoint = "127.0.0.1:1234"
//
//	s := server.NewRPCServer(
//	  config,
//	  tcp.NewTCPServerTransport(),
//	  serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(ctx); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Every server instance gets a random id that labels its metrics.
//
// Thread Safety:
//
//	All requests are handled on the goroutine running Serve, the store is
//	never accessed concurrently. Listen and Serve must not be called
//	concurrently.
package server
