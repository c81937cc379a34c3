package base

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ValentinKolb/pKV/rpc/common"
	"github.com/ValentinKolb/pKV/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transport")

const (
	defaultPipeline   = 64
	clientBufferSize  = 64 << 10
	defaultDialTimeout = 5 * time.Second
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint
	Connect(endpoint string, timeout time.Duration) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// clientTransport implements a blocking request/response client over a
// single connection. Requests of a batch are written back to back and the
// responses are read afterwards, relying on the server answering in order.
type clientTransport struct {
	connector IClientConnector
	config    common.ClientConfig

	mu     sync.Mutex // serializes requests on the connection
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
	rbuf   []byte
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{connector: connector}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if config.Endpoint == "" {
		return errors.New("no endpoint provided")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.config = config
	t.closeLocked()

	if err := t.reconnectLocked(); err != nil {
		return err
	}

	Logger.Infof("connected to %s using %s transport", config.Endpoint, t.connector.GetName())
	return nil
}

func (t *clientTransport) Send(req []byte) ([]byte, error) {
	resps, err := t.SendBatch([][]byte{req})
	if err != nil {
		return nil, err
	}
	return resps[0], nil
}

func (t *clientTransport) SendBatch(reqs [][]byte) ([][]byte, error) {
	for _, req := range reqs {
		if len(req) > MaxMessageSize {
			return nil, fmt.Errorf("request of %d bytes: %w", len(req), ErrFrameTooLarge)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		if t.config.Endpoint == "" {
			return nil, errors.New("transport is not connected")
		}
		if err := t.reconnectLocked(); err != nil {
			return nil, err
		}
	}

	pipeline := t.config.Pipeline
	if pipeline <= 0 {
		pipeline = defaultPipeline
	}

	resps := make([][]byte, 0, len(reqs))
	for start := 0; start < len(reqs); start += pipeline {
		end := min(start+pipeline, len(reqs))

		chunk, err := t.roundTrip(reqs[start:end])
		if err != nil {
			// the stream position is unknown, the next call starts over
			t.closeLocked()
			return nil, err
		}
		resps = append(resps, chunk...)
	}

	return resps, nil
}

func (t *clientTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeLocked()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// roundTrip writes all requests and then reads one response for each
func (t *clientTransport) roundTrip(reqs [][]byte) ([][]byte, error) {
	if t.config.TimeoutSecond > 0 {
		deadline := time.Now().Add(time.Duration(t.config.TimeoutSecond) * time.Second)
		if err := t.conn.SetDeadline(deadline); err != nil {
			return nil, err
		}
	}

	for _, req := range reqs {
		if err := WriteFrame(t.writer, req); err != nil {
			return nil, fmt.Errorf("failed to write request: %w", err)
		}
	}
	if err := t.writer.Flush(); err != nil {
		return nil, fmt.Errorf("failed to write request: %w", err)
	}

	resps := make([][]byte, len(reqs))
	for i := range resps {
		payload, err := ReadFrame(t.reader, t.rbuf)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		t.rbuf = payload[:0]
		resps[i] = append([]byte(nil), payload...)
	}

	return resps, nil
}

// reconnectLocked dials the configured endpoint
func (t *clientTransport) reconnectLocked() error {
	timeout := defaultDialTimeout
	if t.config.TimeoutSecond > 0 {
		timeout = time.Duration(t.config.TimeoutSecond) * time.Second
	}

	conn, err := t.connector.Connect(t.config.Endpoint, timeout)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", t.config.Endpoint, err)
	}

	if err := t.connector.UpgradeConnection(conn, t.config); err != nil {
		conn.Close()
		return fmt.Errorf("failed to upgrade connection to %s: %w", t.config.Endpoint, err)
	}

	t.conn = conn
	t.reader = bufio.NewReaderSize(conn, clientBufferSize)
	t.writer = bufio.NewWriterSize(conn, clientBufferSize)
	return nil
}

// closeLocked closes the current connection if there is one
func (t *clientTransport) closeLocked() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn, t.reader, t.writer = nil, nil, nil
	return err
}
