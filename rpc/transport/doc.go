// Package transport defines the interfaces between the RPC layer and the
// transports that move request and response payloads over the network.
//
// Key Components:
//
//   - IRPCServerTransport: Server side. A transport binds a listening socket,
//     runs an event loop that multiplexes all client connections on one
//     goroutine and hands every request payload to the registered
//     ServerHandleFunc. Responses are returned in request order per connection.
//
//   - IServerObserver: Optional hook receiving connection and loop events, used
//     for metrics and periodic statistics.
//
//   - IRPCClientTransport: Client side. Sends single requests or pipelined
//     batches over one connection.
//
// Implementations live in the base package (protocol independent event loop and
// client) and the tcp and unix packages (listener and socket options).
package transport
