// Package unix implements a transport layer for pKV using Unix domain
// sockets, for clients running on the same machine.
//
// A stale socket file at the endpoint is removed before binding and the
// socket file is removed again when the server shuts down.
package unix
