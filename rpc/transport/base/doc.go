// Package base provides the protocol independent part of the pKV transports.
// The TCP and Unix socket transports only contribute a connector that creates
// and tunes sockets, everything else lives here.
//
// Framing:
//
//	Every message is a frame of a 4 byte little endian length followed by
//	the payload. Frames larger than MaxMessageSize are a protocol violation
//	and are rejected as soon as the header is seen.
//
// Server:
//
//	serverTransport runs a single-threaded event loop. Each round it polls the
//	listening socket and all connections, services every ready connection and
//	then accepts at most one new connection. A connection alternates between
//	reading requests and flushing responses:
//
//	  AwaitingRequest --(responses buffered)--> SendingResponse
//	  SendingResponse --(buffer flushed)--> AwaitingRequest
//	  any --(EOF, I/O error, protocol violation)--> Closing
//
//	Pipelined requests are answered in arrival order. Parsing pauses once the
//	pending responses pass a high-water mark, so a client that never reads
//	cannot grow the write buffer without bound. Read and write buffers are
//	taken from a bytebufferpool.Pool and returned when a connection closes.
//
// Client:
//
//	clientTransport is a blocking client over a single connection. SendBatch
//	writes up to ClientConfig.Pipeline requests before reading their
//	responses. After an I/O error the connection is dropped and the next call
//	dials again.
//
// Thread Safety:
//
//	The server transport must be driven from one goroutine. The client
//	transport serializes concurrent calls with a mutex.
package base
