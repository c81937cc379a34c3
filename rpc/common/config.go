package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

type ServerMode string

const (
	// ServerModeKV serves the key-value commands backed by a local store
	ServerModeKV ServerMode = "kv"
	// ServerModeEcho answers every request with its own payload
	ServerModeEcho ServerMode = "echo"
)

// ServerConfig holds all configuration parameters of a server process.
type ServerConfig struct {
	// what the server answers
	Mode ServerMode

	// listener
	Transport string // tcp or unix
	Endpoint  string // host:port or socket path

	// event loop
	PollTimeoutMs  int
	MaxConnections int

	// store
	Hash string // fnv or xxhash

	// socket options for accepted connections
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int // < 0 keeps the system default
	ReadBufferSize  int // 0 keeps the system default
	WriteBufferSize int // 0 keeps the system default

	// observability
	MetricsEndpoint string // empty disables the HTTP metrics endpoint
	StatsInterval   time.Duration

	// Logging configuration
	LogLevel string
}

// DefaultServerConfig returns the configuration used when no flags are given
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Mode:            ServerModeKV,
		Transport:       "tcp",
		Endpoint:        "127.0.0.1:1234",
		PollTimeoutMs:   1000,
		MaxConnections:  10_000,
		Hash:            "fnv",
		TCPNoDelay:      true,
		TCPKeepAliveSec: 30,
		TCPLingerSec:    -1,
		StatsInterval:   time.Minute,
		LogLevel:        "info",
	}
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("RPC Server")
	addField("Mode", string(c.Mode))
	addField("Transport", c.Transport)
	addField("Endpoint", c.Endpoint)

	addSection("Event Loop")
	addField("Poll Timeout", fmt.Sprintf("%d ms", c.PollTimeoutMs))
	addField("Max Connections", strconv.Itoa(c.MaxConnections))

	if c.Mode == ServerModeKV {
		addSection("Store")
		addField("Hash Function", c.Hash)
	}

	if c.Transport == "tcp" {
		addSection("TCP Options")
		addField("No Delay", strconv.FormatBool(c.TCPNoDelay))
		addField("Keep Alive", fmt.Sprintf("%d sec", c.TCPKeepAliveSec))
		if c.TCPLingerSec >= 0 {
			addField("Linger", fmt.Sprintf("%d sec", c.TCPLingerSec))
		}
		if c.ReadBufferSize > 0 {
			addField("Read Buffer", fmt.Sprintf("%d bytes", c.ReadBufferSize))
		}
		if c.WriteBufferSize > 0 {
			addField("Write Buffer", fmt.Sprintf("%d bytes", c.WriteBufferSize))
		}
	}

	addSection("Observability")
	if c.MetricsEndpoint != "" {
		addField("Metrics Endpoint", c.MetricsEndpoint)
	} else {
		addField("Metrics Endpoint", "disabled")
	}
	addField("Stats Interval", c.StatsInterval.String())

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	Transport     string
	Endpoint      string
	TimeoutSecond int
	// Pipeline is the number of requests the client writes before it reads
	// the responses (used by batch operations)
	Pipeline int
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Transport", c.Transport)
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Pipeline", strconv.Itoa(max(1, c.Pipeline)))

	return sb.String()
}
