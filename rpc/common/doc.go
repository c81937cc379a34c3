// Package common provides the data structures and utilities shared by the
// server and client side of the RPC layer.
//
// Key Components:
//
//   - Request / Response: The command protocol. A request is a list of byte
//     strings whose first element names the command (get, set, del, keys, has).
//     A response carries a Status (OK, ERR, NX) and result data.
//
//   - ServerConfig: Configuration of a server process, covering the listener,
//     the event loop, socket options of accepted connections, the store and
//     observability settings.
//
//   - ClientConfig: Configuration for client components (endpoint, timeout and
//     pipeline depth).
//
//   - Logger: Custom logging implementation for dragonboat's logger package
//     providing consistent formatting across the application.
package common
