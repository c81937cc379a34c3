// Package cmd implements the command-line interface of pKV. It provides a
// hierarchical command structure for running the server and talking to it.
//
// The package is organized into several subpackages:
//
//   - serve: Starts and configures the pKV server
//   - kv: Key-value operations (get, set, del, has, keys) and a benchmark
//   - echo: Sends messages back to back to an echo server and prints the answers
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Flags can also be set through PKV_<FLAG> environment variables or a .env file.
// See pkv -help for a list of all commands.
package cmd
