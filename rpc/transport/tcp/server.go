package tcp

import (
	"fmt"
	"net"

	"github.com/ValentinKolb/pKV/rpc/common"
	"github.com/ValentinKolb/pKV/rpc/transport"
	"github.com/ValentinKolb/pKV/rpc/transport/base"
	"golang.org/x/sys/unix"
)

// serverConnector implements the IServerConnector interface for TCP sockets
type serverConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "tcp"
}

func (c *serverConnector) Listen(config common.ServerConfig) (int, string, error) {
	addr, err := net.ResolveTCPAddr("tcp", config.Endpoint)
	if err != nil {
		return -1, "", fmt.Errorf("invalid tcp endpoint %q: %w", config.Endpoint, err)
	}

	domain, sa := sockaddr(addr)

	fd, err := unix.Socket(domain, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, "", fmt.Errorf("failed to create tcp socket: %w", err)
	}
	unix.CloseOnExec(fd)

	setup := func() error {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			return fmt.Errorf("failed to set SO_REUSEADDR: %w", err)
		}
		if err := unix.SetNonblock(fd, true); err != nil {
			return fmt.Errorf("failed to make listener non-blocking: %w", err)
		}
		if err := unix.Bind(fd, sa); err != nil {
			return fmt.Errorf("failed to bind %s: %w", config.Endpoint, err)
		}
		if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
			return fmt.Errorf("failed to listen on %s: %w", config.Endpoint, err)
		}
		return nil
	}
	if err := setup(); err != nil {
		unix.Close(fd)
		return -1, "", err
	}

	bound, err := unix.Getsockname(fd)
	if err != nil {
		unix.Close(fd)
		return -1, "", fmt.Errorf("failed to read bound address: %w", err)
	}

	return fd, addrString(bound), nil
}

// UpgradeConnection applies the configured socket options to an accepted TCP connection
func (c *serverConnector) UpgradeConnection(fd int, config common.ServerConfig) error {
	// Disable Nagle's algorithm if configured
	noDelay := 0
	if config.TCPNoDelay {
		noDelay = 1
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, noDelay); err != nil {
		return fmt.Errorf("failed to set TCP_NODELAY: %w", err)
	}

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

	if config.TCPKeepAliveSec > 0 {
		if err := setKeepAlive(fd, config.TCPKeepAliveSec); err != nil {
			return fmt.Errorf("failed to enable keep-alive: %w", err)
		}
	}

	if config.TCPLingerSec >= 0 {
		linger := &unix.Linger{Onoff: 1, Linger: int32(config.TCPLingerSec)}
		if err := unix.SetsockoptLinger(fd, unix.SOL_SOCKET, unix.SO_LINGER, linger); err != nil {
			return fmt.Errorf("failed to set SO_LINGER: %w", err)
		}
	}

	return nil
}

func (c *serverConnector) Cleanup(common.ServerConfig) error {
	return nil
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// sockaddr converts a resolved address into a socket address and its domain
func sockaddr(addr *net.TCPAddr) (int, unix.Sockaddr) {
	if ip4 := addr.IP.To4(); ip4 != nil || addr.IP == nil {
		sa := &unix.SockaddrInet4{Port: addr.Port}
		copy(sa.Addr[:], ip4)
		return unix.AF_INET, sa
	}

	sa := &unix.SockaddrInet6{Port: addr.Port}
	copy(sa.Addr[:], addr.IP.To16())
	return unix.AF_INET6, sa
}

// addrString formats a bound socket address as host:port
func addrString(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return (&net.TCPAddr{IP: net.IP(a.Addr[:]), Port: a.Port}).String()
	case *unix.SockaddrInet6:
		return (&net.TCPAddr{IP: net.IP(a.Addr[:]), Port: a.Port}).String()
	default:
		return ""
	}
}

// --------------------------------------------------------------------------
// Server Transport Factory Method
// --------------------------------------------------------------------------

// NewTCPServerTransport creates a new TCP server transport
func NewTCPServerTransport() transport.IRPCServerTransport {
	return base.NewBaseServerTransport(&serverConnector{})
}
