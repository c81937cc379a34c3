package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cmdUtil "github.com/ValentinKolb/pKV/cmd/util"
	"github.com/ValentinKolb/pKV/rpc/common"
	"github.com/ValentinKolb/pKV/rpc/serializer"
	"github.com/ValentinKolb/pKV/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = common.DefaultServerConfig()
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the pKV server",
		Long:    `Start the pKV server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is PKV_<flag> (e.g. PKV_MAX_CONNECTIONS=100)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	defaults := common.DefaultServerConfig()

	// add flags
	key := "transport"
	ServeCmd.PersistentFlags().String(key, defaults.Transport, cmdUtil.WrapString("transport to use (tcp, unix)"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, defaults.Endpoint, cmdUtil.WrapString("The address on which the server will listen (e.g. 127.0.0.1:1234, /tmp/pkv.sock)"))

	key = "mode"
	ServeCmd.PersistentFlags().String(key, string(defaults.Mode), cmdUtil.WrapString("What the server answers: kv executes commands against the store, echo returns every request unchanged"))

	key = "poll-timeout-ms"
	ServeCmd.PersistentFlags().Int(key, defaults.PollTimeoutMs, cmdUtil.WrapString("How long the event loop waits for readiness before checking for shutdown (in milliseconds)"))

	key = "max-connections"
	ServeCmd.PersistentFlags().Int(key, defaults.MaxConnections, cmdUtil.WrapString("Maximum number of open client connections, further connections are closed right after accept (0 = unlimited)"))

	key = "hash"
	ServeCmd.PersistentFlags().String(key, defaults.Hash, cmdUtil.WrapString("Hash function of the store (fnv, xxhash)"))

	key = "tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, defaults.TCPNoDelay, cmdUtil.WrapString("Whether to enable TCP_NODELAY on accepted connections"))

	key = "tcp-keepalive"
	ServeCmd.PersistentFlags().Int(key, defaults.TCPKeepAliveSec, cmdUtil.WrapString("The keepalive interval of accepted connections (in seconds, 0 disables keepalive)"))

	key = "tcp-linger"
	ServeCmd.PersistentFlags().Int(key, defaults.TCPLingerSec, cmdUtil.WrapString("The linger time of accepted connections (in seconds, negative keeps the system default)"))

	key = "read-buffer"
	ServeCmd.PersistentFlags().Int(key, defaults.ReadBufferSize, cmdUtil.WrapString("The kernel receive buffer of accepted connections (in bytes, 0 keeps the system default)"))

	key = "write-buffer"
	ServeCmd.PersistentFlags().Int(key, defaults.WriteBufferSize, cmdUtil.WrapString("The kernel send buffer of accepted connections (in bytes, 0 keeps the system default)"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, defaults.MetricsEndpoint, cmdUtil.WrapString("Address of the HTTP endpoint serving /metrics (empty disables it)"))

	key = "stats-interval"
	ServeCmd.PersistentFlags().Duration(key, defaults.StatsInterval, cmdUtil.WrapString("How often a stats line is logged (0 disables it)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, defaults.LogLevel, cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig.Transport = viper.GetString("transport")
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.Mode = common.ServerMode(viper.GetString("mode"))
	serveCmdConfig.PollTimeoutMs = viper.GetInt("poll-timeout-ms")
	serveCmdConfig.MaxConnections = viper.GetInt("max-connections")
	serveCmdConfig.Hash = viper.GetString("hash")
	serveCmdConfig.TCPNoDelay = viper.GetBool("tcp-nodelay")
	serveCmdConfig.TCPKeepAliveSec = viper.GetInt("tcp-keepalive")
	serveCmdConfig.TCPLingerSec = viper.GetInt("tcp-linger")
	serveCmdConfig.ReadBufferSize = viper.GetInt("read-buffer")
	serveCmdConfig.WriteBufferSize = viper.GetInt("write-buffer")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.StatsInterval = viper.GetDuration("stats-interval")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	switch serveCmdConfig.Mode {
	case common.ServerModeKV, common.ServerModeEcho:
	default:
		return fmt.Errorf("invalid mode %s (expected kv or echo)", serveCmdConfig.Mode)
	}

	if serveCmdConfig.PollTimeoutMs <= 0 {
		return fmt.Errorf("poll-timeout-ms must be positive, got %d", serveCmdConfig.PollTimeoutMs)
	}
	if serveCmdConfig.MaxConnections < 0 {
		return fmt.Errorf("max-connections must not be negative, got %d", serveCmdConfig.MaxConnections)
	}

	return common.InitLoggers(serveCmdConfig)
}

// run starts the pKV server and stops it on SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	t, err := cmdUtil.GetServerTransport()
	if err != nil {
		return err
	}

	serv := server.NewRPCServer(
		serveCmdConfig,
		t,
		serializer.NewBinarySerializer(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serv.Serve(ctx)
}
