// Package tcp implements the TCP transport of pKV. It provides the connectors
// the base package needs to create TCP listeners and client connections.
//
// Key Components:
//
//   - serverConnector: binds a non-blocking listening socket (SO_REUSEADDR)
//     and applies the configured options to accepted connections: TCP_NODELAY,
//     SO_SNDBUF/SO_RCVBUF, keep-alive and SO_LINGER
//
//   - clientConnector: dials the server and disables Nagle's algorithm
//
// Binding to port 0 picks a free port, the transport's Addr reports it.
package tcp
