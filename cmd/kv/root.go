package kv

import (
	"github.com/ValentinKolb/pKV/cmd/util"
	"github.com/ValentinKolb/pKV/rpc/client"
	"github.com/ValentinKolb/pKV/rpc/serializer"
	"github.com/spf13/cobra"
)

var (
	rpcStore client.IRPCStore

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:                "kv",
		Short:              "Perform key-value store operations",
		PersistentPreRunE:  setupKVClient,
		PersistentPostRunE: closeKVClient,
	}
)

func init() {
	// Add common RPC flags to the KV command
	util.SetupRPCClientFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(hasCmd)
	KeyValueCommands.AddCommand(keysCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// newKVClient creates a connected RPC store client from the configuration
func newKVClient() (client.IRPCStore, error) {
	t, err := util.GetTransport()
	if err != nil {
		return nil, err
	}
	return client.NewRPCStore(*util.GetClientConfig(), t, serializer.NewBinarySerializer())
}

// setupKVClient initializes the RPC store client
func setupKVClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	rpcStore, err = newKVClient()
	return err
}

func closeKVClient(_ *cobra.Command, _ []string) error {
	if rpcStore == nil {
		return nil
	}
	return rpcStore.Close()
}
