package client

import (
	"github.com/ValentinKolb/pKV/lib/db"
	"github.com/ValentinKolb/pKV/lib/store"
	"github.com/ValentinKolb/pKV/rpc/common"
	"github.com/ValentinKolb/pKV/rpc/serializer"
	"github.com/ValentinKolb/pKV/rpc/transport"
)

// IRPCStore is a store.IStore backed by a remote server
type IRPCStore interface {
	store.IStore

	// Batch pipelines raw requests over the connection and returns the
	// responses in request order. Error responses are not converted.
	Batch(reqs []*common.Request) ([]*common.Response, error)

	// Close closes the underlying transport
	Close() error
}

// NewRPCStore creates a new RPC store
// The function takes a config, a transport and a serializer as parameters
// It connects the transport and returns the store
func NewRPCStore(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (IRPCStore, error) {

	// Connect the transport
	err := transport.Connect(config)
	if err != nil {
		return nil, err
	}

	return &rpcStore{
		rpcClientAdapter{
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}, nil
}

type rpcStore struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (i *rpcStore) Set(key string, value []byte) error {
	resp, err := i.invokeRPCRequest(common.NewSetRequest(key, value))
	if err != nil {
		return err
	}
	if resp.Status != common.StatusOK {
		return unexpected(common.CmdSet, resp)
	}
	return nil
}

func (i *rpcStore) Delete(key string) (bool, error) {
	resp, err := i.invokeRPCRequest(common.NewDelRequest(key))
	if err != nil {
		return false, err
	}
	switch resp.Status {
	case common.StatusOK:
		return true, nil
	case common.StatusNX:
		return false, nil
	default:
		return false, unexpected(common.CmdDel, resp)
	}
}

func (i *rpcStore) Get(key string) ([]byte, bool, error) {
	resp, err := i.invokeRPCRequest(common.NewGetRequest(key))
	if err != nil {
		return nil, false, err
	}
	switch resp.Status {
	case common.StatusOK:
		return resp.Data, true, nil
	case common.StatusNX:
		return nil, false, nil
	default:
		return nil, false, unexpected(common.CmdGet, resp)
	}
}

func (i *rpcStore) Has(key string) (bool, error) {
	resp, err := i.invokeRPCRequest(common.NewHasRequest(key))
	if err != nil {
		return false, err
	}
	if resp.Status != common.StatusOK {
		return false, unexpected(common.CmdHas, resp)
	}
	return serializer.DecodeBool(resp.Data)
}

func (i *rpcStore) Keys() ([]string, error) {
	resp, err := i.invokeRPCRequest(common.NewKeysRequest())
	if err != nil {
		return nil, err
	}
	if resp.Status != common.StatusOK {
		return nil, unexpected(common.CmdKeys, resp)
	}
	return serializer.DecodeKeys(resp.Data)
}

// GetDBInfo is not part of the wire protocol
func (i *rpcStore) GetDBInfo() (db.DatabaseInfo, error) {
	return db.DatabaseInfo{}, store.NewError(store.RetCUnsupportedOperation, "GetDBInfo is not available over RPC")
}

func (i *rpcStore) Batch(reqs []*common.Request) ([]*common.Response, error) {
	return i.invokeRPCBatch(reqs)
}

func (i *rpcStore) Close() error {
	return i.transport.Close()
}
