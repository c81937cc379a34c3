package echo

import (
	"fmt"

	"github.com/ValentinKolb/pKV/cmd/util"
	"github.com/spf13/cobra"
)

// EchoCmd sends all messages back to back on one connection and prints the
// answers of a server running in echo mode
var EchoCmd = &cobra.Command{
	Use:   "echo [message...]",
	Short: "Send messages to an echo server and print the responses",
	Long:  "Sends all messages back to back on a single connection before reading any response. A server started with --mode echo answers every message with the message itself, in order.",
	Args:  cobra.MinimumNArgs(1),
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return util.BindCommandFlags(cmd)
	},
	RunE: run,
}

func init() {
	util.SetupRPCClientFlags(EchoCmd)
}

func run(_ *cobra.Command, args []string) error {
	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	config := util.GetClientConfig()
	// all messages are written before the first response is read
	config.Pipeline = len(args)

	if err := t.Connect(*config); err != nil {
		return err
	}
	defer t.Close()

	reqs := make([][]byte, len(args))
	for i, msg := range args {
		reqs[i] = []byte(msg)
	}

	resps, err := t.SendBatch(reqs)
	if err != nil {
		return err
	}

	for _, resp := range resps {
		fmt.Printf("server says: %s\n", resp)
	}
	return nil
}
