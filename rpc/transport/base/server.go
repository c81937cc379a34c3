package base

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ValentinKolb/pKV/rpc/common"
	"github.com/ValentinKolb/pKV/rpc/transport"
	"github.com/valyala/bytebufferpool"
	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

const defaultPollTimeoutMs = 1000

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a non-blocking listening socket and returns its
	// descriptor together with the address it is bound to
	Listen(config common.ServerConfig) (fd int, addr string, err error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific socket options to an accepted connection
	UpgradeConnection(fd int, config common.ServerConfig) error

	// Cleanup removes resources the listener left behind (e.g. a socket file)
	Cleanup(config common.ServerConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport runs a single-threaded event loop over non-blocking sockets
type serverTransport struct {
	connector IServerConnector
	handler   transport.ServerHandleFunc
	observer  transport.IServerObserver
	config    common.ServerConfig

	listenFd int
	addr     string

	// connection slab, the index is the connection id
	conns []*conn
	fds   []int
	free  []int
	live  int

	pool bytebufferpool.Pool

	// reused between rounds
	pollFds []unix.PollFd
	pollIds []int
}

// noopObserver is used when no observer is registered
type noopObserver struct{}

func (noopObserver) ConnectionAccepted(int, int)       {}
func (noopObserver) ConnectionRejected(int)            {}
func (noopObserver) ConnectionClosed(int, int, error)  {}
func (noopObserver) RequestsHandled(int)               {}
func (noopObserver) RoundCompleted(time.Duration, int) {}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new event loop based server transport
func NewBaseServerTransport(connector IServerConnector) transport.IRPCServerTransport {
	return &serverTransport{
		connector: connector,
		observer:  noopObserver{},
		listenFd:  -1,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) RegisterObserver(observer transport.IServerObserver) {
	if observer == nil {
		observer = noopObserver{}
	}
	t.observer = observer
}

func (t *serverTransport) Listen(config common.ServerConfig) error {
	if t.listenFd >= 0 {
		return fmt.Errorf("%s transport is already listening on %s", t.connector.GetName(), t.addr)
	}
	t.config = config

	fd, addr, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	t.listenFd = fd
	t.addr = addr

	Logger.Infof("%s server listening on %s", t.connector.GetName(), addr)
	return nil
}

func (t *serverTransport) Addr() string {
	return t.addr
}

func (t *serverTransport) Serve(ctx context.Context) (err error) {
	if t.listenFd < 0 {
		return errors.New("transport is not listening")
	}
	if t.handler == nil {
		return errors.New("no handler registered")
	}

	defer func() {
		err = multierr.Append(err, t.shutdown())
	}()

	timeout := t.config.PollTimeoutMs
	if timeout <= 0 {
		timeout = defaultPollTimeoutMs
	}

	for ctx.Err() == nil {
		if err := t.round(timeout); err != nil {
			return err
		}
	}

	Logger.Infof("%s server on %s stopping (%d open connections)", t.connector.GetName(), t.addr, t.live)
	return nil
}

func (t *serverTransport) Close() error {
	return t.shutdown()
}

// --------------------------------------------------------------------------
// Event Loop
// --------------------------------------------------------------------------

// round waits for readiness once and services every ready socket
func (t *serverTransport) round(timeoutMs int) error {
	t.pollFds = append(t.pollFds[:0], unix.PollFd{Fd: int32(t.listenFd), Events: unix.POLLIN})
	t.pollIds = t.pollIds[:0]

	for id, c := range t.conns {
		if c == nil {
			continue
		}
		events := int16(unix.POLLERR)
		if c.state == stateSendingResponse {
			events |= unix.POLLOUT
		} else {
			events |= unix.POLLIN
		}
		t.pollFds = append(t.pollFds, unix.PollFd{Fd: int32(t.fds[id]), Events: events})
		t.pollIds = append(t.pollIds, id)
	}

	n, err := unix.Poll(t.pollFds, timeoutMs)
	if err == unix.EINTR {
		return nil
	}
	if err != nil {
		return fmt.Errorf("poll failed: %w", err)
	}

	start := time.Now()

	if n > 0 {
		for i, id := range t.pollIds {
			if t.pollFds[i+1].Revents == 0 {
				continue
			}

			c := t.conns[id]
			if handled := c.step(); handled > 0 {
				t.observer.RequestsHandled(handled)
			}
			if c.state == stateClosing {
				t.closeConn(id)
			}
		}

		if t.pollFds[0].Revents != 0 {
			t.acceptOne()
		}
	}

	t.observer.RoundCompleted(time.Since(start), n)
	return nil
}

// acceptOne accepts a single pending connection
func (t *serverTransport) acceptOne() {
	fd, _, err := unix.Accept(t.listenFd)
	if err != nil {
		if err != unix.EAGAIN && err != unix.EWOULDBLOCK && err != unix.EINTR && err != unix.ECONNABORTED {
			Logger.Warningf("accept failed: %v", err)
		}
		return
	}
	unix.CloseOnExec(fd)

	if t.config.MaxConnections > 0 && t.live >= t.config.MaxConnections {
		Logger.Warningf("connection rejected, limit of %d connections reached", t.config.MaxConnections)
		t.observer.ConnectionRejected(t.live)
		unix.Close(fd)
		return
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		Logger.Warningf("failed to make connection non-blocking: %v", err)
		return
	}

	if err := t.connector.UpgradeConnection(fd, t.config); err != nil {
		unix.Close(fd)
		Logger.Warningf("failed to upgrade connection: %v", err)
		return
	}

	id := t.allocID()
	t.conns[id] = newConn(id, fdSocket{fd: fd}, &t.pool, t.handler)
	t.fds[id] = fd
	t.live++

	Logger.Debugf("connection %d accepted (%d open)", id, t.live)
	t.observer.ConnectionAccepted(id, t.live)
}

// allocID returns a free slab index, growing the slab if needed
func (t *serverTransport) allocID() int {
	if n := len(t.free); n > 0 {
		id := t.free[n-1]
		t.free = t.free[:n-1]
		return id
	}
	t.conns = append(t.conns, nil)
	t.fds = append(t.fds, -1)
	return len(t.conns) - 1
}

// closeConn removes a connection from the slab and releases it
func (t *serverTransport) closeConn(id int) {
	c := t.conns[id]
	reason := c.reason

	if err := c.release(&t.pool); err != nil {
		Logger.Warningf("connection %d: close failed: %v", id, err)
	}
	t.conns[id] = nil
	t.fds[id] = -1
	t.free = append(t.free, id)
	t.live--

	switch {
	case reason == nil:
		Logger.Debugf("connection %d closed by peer", id)
	case errors.Is(reason, ErrProtocolViolation):
		Logger.Warningf("connection %d closed: %v", id, reason)
	default:
		Logger.Debugf("connection %d closed: %v", id, reason)
	}
	t.observer.ConnectionClosed(id, t.live, reason)
}

// shutdown closes all connections and the listener
func (t *serverTransport) shutdown() error {
	var err error

	for id, c := range t.conns {
		if c == nil {
			continue
		}
		err = multierr.Append(err, c.release(&t.pool))
		t.conns[id] = nil
	}
	t.conns = nil
	t.fds = nil
	t.free = nil
	t.live = 0

	if t.listenFd >= 0 {
		err = multierr.Append(err, unix.Close(t.listenFd))
		err = multierr.Append(err, t.connector.Cleanup(t.config))
		t.listenFd = -1
	}

	return err
}
