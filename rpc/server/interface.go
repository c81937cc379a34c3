package server

import (
	"github.com/ValentinKolb/pKV/lib/store"
	"github.com/ValentinKolb/pKV/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters
// It is responsible for handling requests and responses
type IRPCServerAdapter interface {
	// Handle executes a decoded request against the store and returns the response.
	// The request arguments are only valid during the call.
	// Failures are reported through the response status, never as a panic.
	Handle(req *common.Request, store store.IStore) (resp *common.Response)
}
