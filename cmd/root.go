package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/pKV/cmd/echo"
	"github.com/ValentinKolb/pKV/cmd/kv"
	"github.com/ValentinKolb/pKV/cmd/serve"
	"github.com/ValentinKolb/pKV/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "pkv",
		Short: "single-threaded in-memory key-value server",
		Long: fmt.Sprintf(`pKV (v%s)

An in-memory key-value server built around a progressively resizing
hash map and a single-threaded event loop over non-blocking sockets.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of pKV",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("pKV v%s\n", Version)
		},
	}
)

func init() {
	// load .env files and PKV_* variables
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(echo.EchoCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
