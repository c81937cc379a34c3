package unix

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/pKV/rpc/common"
	"github.com/ValentinKolb/pKV/rpc/transport"
	"github.com/ValentinKolb/pKV/rpc/transport/base"
	"golang.org/x/sys/unix"
)

// serverConnector implements the IServerConnector interface for Unix sockets
type serverConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "unix"
}

func (c *serverConnector) Listen(config common.ServerConfig) (int, string, error) {
	socketPath := config.Endpoint
	if socketPath == "" {
		return -1, "", fmt.Errorf("no socket path provided")
	}

	// Remove existing socket file if it exists
	if err := os.RemoveAll(socketPath); err != nil {
		return -1, "", fmt.Errorf("failed to remove existing socket: %w", err)
	}

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, "", fmt.Errorf("failed to create unix socket: %w", err)
	}
	unix.CloseOnExec(fd)

	setup := func() error {
		if err := unix.SetNonblock(fd, true); err != nil {
			return fmt.Errorf("failed to make listener non-blocking: %w", err)
		}
		if err := unix.Bind(fd, &unix.SockaddrUnix{Name: socketPath}); err != nil {
			return fmt.Errorf("failed to bind %s: %w", socketPath, err)
		}
		if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
			return fmt.Errorf("failed to listen on %s: %w", socketPath, err)
		}
		return nil
	}
	if err := setup(); err != nil {
		unix.Close(fd)
		return -1, "", err
	}

	return fd, socketPath, nil
}

func (c *serverConnector) UpgradeConnection(fd int, config common.ServerConfig) error {
	if config.WriteBufferSize > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, config.WriteBufferSize); err != nil {
			return fmt.Errorf("failed to set SO_SNDBUF: %w", err)
		}
	}
	if config.ReadBufferSize > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, config.ReadBufferSize); err != nil {
			return fmt.Errorf("failed to set SO_RCVBUF: %w", err)
		}
	}
	return nil
}

func (c *serverConnector) Cleanup(config common.ServerConfig) error {
	if err := os.Remove(config.Endpoint); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove socket file: %w", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Server Transport Factory Method
// --------------------------------------------------------------------------

// NewUnixServerTransport creates a new Unix socket server transport
func NewUnixServerTransport() transport.IRPCServerTransport {
	return base.NewBaseServerTransport(&serverConnector{})
}
