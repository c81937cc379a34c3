package server

import (
	"github.com/ValentinKolb/pKV/lib/store"
	"github.com/ValentinKolb/pKV/rpc/common"
	"github.com/ValentinKolb/pKV/rpc/serializer"
)

// errUnknownCmd is returned for unknown commands and wrong argument counts
const errUnknownCmd = "Unknown cmd"

func NewIStoreServerAdapter() IRPCServerAdapter {
	return &iStoreServerAdapterImpl{}
}

type iStoreServerAdapterImpl struct{}

func (adapter *iStoreServerAdapterImpl) Handle(req *common.Request, store store.IStore) *common.Response {
	// Check for nil store
	if store == nil {
		return common.NewErrResponse("handler: store is nil")
	}

	args := req.Args

	switch {
	case len(args) == 2 && req.Command() == common.CmdGet:
		val, ok, err := store.Get(string(args[1]))
		if err != nil {
			return common.NewErrResponse(err.Error())
		}
		if !ok {
			return common.NewNXResponse()
		}
		return common.NewOKResponse(val)

	case len(args) == 3 && req.Command() == common.CmdSet:
		if err := store.Set(string(args[1]), args[2]); err != nil {
			return common.NewErrResponse(err.Error())
		}
		return common.NewOKResponse(nil)

	case len(args) == 2 && req.Command() == common.CmdDel:
		deleted, err := store.Delete(string(args[1]))
		if err != nil {
			return common.NewErrResponse(err.Error())
		}
		if !deleted {
			return common.NewNXResponse()
		}
		return common.NewOKResponse(nil)

	case len(args) == 2 && req.Command() == common.CmdHas:
		ok, err := store.Has(string(args[1]))
		if err != nil {
			return common.NewErrResponse(err.Error())
		}
		return common.NewOKResponse(serializer.EncodeBool(ok))

	case len(args) == 1 && req.Command() == common.CmdKeys:
		keys, err := store.Keys()
		if err != nil {
			return common.NewErrResponse(err.Error())
		}
		return common.NewOKResponse(serializer.AppendKeys(nil, keys))

	default:
		return common.NewErrResponse(errUnknownCmd)
	}
}
