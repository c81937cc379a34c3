package client

import (
	"fmt"

	"github.com/ValentinKolb/pKV/rpc/common"
	"github.com/ValentinKolb/pKV/rpc/serializer"
	"github.com/ValentinKolb/pKV/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("rpc")
)

// rpcClientAdapter stores all data needed for an implementation of an RPC client
type rpcClientAdapter struct {
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// invokeRPCRequest sends a single request and decodes the response.
// ERR responses are returned as error, NX is left to the caller.
func (a *rpcClientAdapter) invokeRPCRequest(req *common.Request) (*common.Response, error) {
	reqBytes, err := a.serializer.EncodeRequest(nil, req)
	if err != nil {
		return nil, err
	}

	respBytes, err := a.transport.Send(reqBytes)
	if err != nil {
		return nil, err
	}

	resp := &common.Response{}
	if err := a.serializer.DecodeResponse(respBytes, resp); err != nil {
		return nil, fmt.Errorf("RPC client - invalid response to %q: %w", req.Command(), err)
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp, nil
}

// invokeRPCBatch pipelines the requests and decodes all responses. ERR
// responses are returned as they are.
func (a *rpcClientAdapter) invokeRPCBatch(reqs []*common.Request) ([]*common.Response, error) {
	payloads := make([][]byte, len(reqs))
	for i, req := range reqs {
		b, err := a.serializer.EncodeRequest(nil, req)
		if err != nil {
			return nil, fmt.Errorf("RPC client - failed to encode request %d: %w", i, err)
		}
		payloads[i] = b
	}

	respBytes, err := a.transport.SendBatch(payloads)
	if err != nil {
		return nil, err
	}

	resps := make([]*common.Response, len(respBytes))
	for i, b := range respBytes {
		resps[i] = &common.Response{}
		if err := a.serializer.DecodeResponse(b, resps[i]); err != nil {
			return nil, fmt.Errorf("RPC client - invalid response %d: %w", i, err)
		}
	}
	return resps, nil
}

// unexpected builds the error for a status a command never returns
func unexpected(cmd string, resp *common.Response) error {
	return fmt.Errorf("RPC client - unexpected status %s for %q", resp.Status, cmd)
}
