package transport

import (
	"context"
	"time"

	"github.com/ValentinKolb/pKV/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc handles a single request payload. It appends the response
// payload to dst and returns the extended slice. req is only valid for the
// duration of the call. The transport calls the handler from a single
// goroutine and in the order the requests arrived on each connection.
type ServerHandleFunc func(dst []byte, req []byte) (resp []byte)

// IServerObserver receives events from a server transport. All methods are
// called on the goroutine running Serve and must not block.
type IServerObserver interface {
	// ConnectionAccepted is called after a connection was admitted
	ConnectionAccepted(id int, live int)
	// ConnectionRejected is called when a connection was refused because the connection limit is reached
	ConnectionRejected(live int)
	// ConnectionClosed is called after a connection was released, reason is nil for a clean close by the peer
	ConnectionClosed(id int, live int, reason error)
	// RequestsHandled is called with the number of requests a connection step processed
	RequestsHandled(n int)
	// RoundCompleted is called after every iteration of the event loop
	RoundCompleted(duration time.Duration, ready int)
}

// IRPCServerTransport is the interface for the RPC transport layer
type IRPCServerTransport interface {
	// RegisterHandler registers the handler for all requests
	RegisterHandler(handler ServerHandleFunc)
	// RegisterObserver registers an observer for transport events (optional)
	RegisterObserver(observer IServerObserver)
	// Listen binds the listening socket described by the configuration
	Listen(config common.ServerConfig) error
	// Addr returns the address the transport is bound to
	Addr() string
	// Serve runs the event loop until ctx is cancelled or a fatal error occurs.
	// All connections and the listener are closed when Serve returns.
	Serve(ctx context.Context) error
	// Close releases the listener of a transport that is not serving
	Close() error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send sends a request to the server and returns the response
	Send(req []byte) (resp []byte, err error)
	// SendBatch pipelines the requests and returns the responses in the same order
	SendBatch(reqs [][]byte) (resps [][]byte, err error)
	// Close closes the transport connection
	Close() error
}
