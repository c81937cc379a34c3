package base

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ValentinKolb/pKV/rpc/transport"
	"github.com/valyala/bytebufferpool"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// minimum free space in the read buffer before reading from the socket
	minReadSpace = 16 << 10

	// pending response bytes after which no further requests are parsed
	// until the write buffer is flushed
	writeHighWaterMark = HeaderSize + MaxMessageSize

	// number of state transitions a single step may perform, so a busy
	// connection cannot starve the others
	maxTransitionsPerStep = 16
)

// --------------------------------------------------------------------------
// Connection State
// --------------------------------------------------------------------------

type connState uint8

const (
	// stateAwaitingRequest: reading and parsing requests
	stateAwaitingRequest connState = iota
	// stateSendingResponse: flushing buffered responses
	stateSendingResponse
	// stateClosing: the connection failed or the peer left, the owner releases it
	stateClosing
)

func (s connState) String() string {
	switch s {
	case stateAwaitingRequest:
		return "AwaitingRequest"
	case stateSendingResponse:
		return "SendingResponse"
	case stateClosing:
		return "Closing"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Connection
// --------------------------------------------------------------------------

// conn holds the buffers and the protocol state of one client connection.
// It is driven by the event loop through step and never blocks.
type conn struct {
	id      int
	sock    socket
	state   connState
	handler transport.ServerHandleFunc

	rbuf  *bytebufferpool.ByteBuffer // unparsed bytes received from the peer
	wbuf  *bytebufferpool.ByteBuffer // framed responses not yet written
	wsent int                        // bytes of wbuf already written

	handled int   // requests processed during the current step
	reason  error // why the connection is closing, nil for a clean close
}

func newConn(id int, sock socket, pool *bytebufferpool.Pool, handler transport.ServerHandleFunc) *conn {
	return &conn{
		id:      id,
		sock:    sock,
		state:   stateAwaitingRequest,
		handler: handler,
		rbuf:    pool.Get(),
		wbuf:    pool.Get(),
	}
}

// step advances the connection as far as possible without blocking. It
// returns the number of requests processed.
func (c *conn) step() int {
	c.handled = 0

	for i := 0; i < maxTransitionsPerStep; i++ {
		var progress bool
		switch c.state {
		case stateAwaitingRequest:
			progress = c.readRequests()
		case stateSendingResponse:
			progress = c.flush()
		}
		if !progress || c.state == stateClosing {
			break
		}
	}

	return c.handled
}

// release closes the socket and hands the buffers back to the pool
func (c *conn) release(pool *bytebufferpool.Pool) error {
	err := c.sock.Close()
	pool.Put(c.rbuf)
	pool.Put(c.wbuf)
	c.rbuf, c.wbuf = nil, nil
	c.state = stateClosing
	return err
}

// --------------------------------------------------------------------------
// Reading
// --------------------------------------------------------------------------

// readRequests fills the read buffer once and processes all complete frames.
// It reports whether the connection made progress.
func (c *conn) readRequests() bool {
	err := c.fill()
	switch {
	case err == errWouldBlock:
		return false
	case errors.Is(err, ErrPeerClosed):
		if buffered := len(c.rbuf.B); buffered > 0 {
			c.fail(fmt.Errorf("%w: unexpected EOF with %d buffered bytes", ErrProtocolViolation, buffered))
		} else {
			c.fail(nil)
		}
		return false
	case err != nil:
		c.fail(fmt.Errorf("read failed: %w", err))
		return false
	}

	c.processRequests()
	return true
}

// fill reads from the socket into the free space of the read buffer,
// growing it so that at least the rest of the pending frame fits
func (c *conn) fill() error {
	b := c.rbuf.B

	need := minReadSpace
	if len(b) >= HeaderSize {
		if size := binary.LittleEndian.Uint32(b); size <= MaxMessageSize {
			if missing := HeaderSize + int(size) - len(b); missing > need {
				need = missing
			}
		}
	}
	if cap(b)-len(b) < need {
		grown := make([]byte, len(b), max(2*cap(b), len(b)+need))
		copy(grown, b)
		b = grown
	}

	n, err := c.sock.Read(b[len(b):cap(b)])
	c.rbuf.B = b[:len(b)+n]
	return err
}

// processRequests parses every complete frame of the read buffer and appends
// one response per request to the write buffer. Parsing pauses once the
// write buffer passes the high-water mark, the rest is picked up after the
// next flush.
func (c *conn) processRequests() {
	buf := c.rbuf.B
	off := 0

	for len(c.wbuf.B) < writeHighWaterMark {
		payload, n, err := ParseFrame(buf[off:])
		if err != nil {
			c.fail(err)
			return
		}
		if n == 0 {
			break
		}
		if !c.respond(payload) {
			return
		}
		off += n
	}

	// move the unparsed rest to the front
	c.rbuf.B = buf[:copy(buf, buf[off:])]

	if len(c.wbuf.B) > 0 {
		c.state = stateSendingResponse
	}
}

// respond runs the handler and frames its response in place
func (c *conn) respond(req []byte) bool {
	start := len(c.wbuf.B)
	c.wbuf.B = append(c.wbuf.B, 0, 0, 0, 0)
	c.wbuf.B = c.handler(c.wbuf.B, req)

	size := len(c.wbuf.B) - start - HeaderSize
	if size > MaxMessageSize {
		c.wbuf.B = c.wbuf.B[:start]
		c.fail(fmt.Errorf("response of %d bytes: %w", size, ErrFrameTooLarge))
		return false
	}

	binary.LittleEndian.PutUint32(c.wbuf.B[start:], uint32(size))
	c.handled++
	return true
}

// --------------------------------------------------------------------------
// Writing
// --------------------------------------------------------------------------

// flush writes buffered responses until the socket would block. Once the
// buffer is empty the connection goes back to reading and requests that were
// held back by the high-water mark are processed.
func (c *conn) flush() bool {
	for c.wsent < len(c.wbuf.B) {
		n, err := c.sock.Write(c.wbuf.B[c.wsent:])
		c.wsent += n
		if err == errWouldBlock {
			return false
		}
		if err != nil {
			c.fail(fmt.Errorf("write failed: %w", err))
			return false
		}
	}

	c.wbuf.B = c.wbuf.B[:0]
	c.wsent = 0
	c.state = stateAwaitingRequest

	c.processRequests()
	return true
}

// fail moves the connection to stateClosing
func (c *conn) fail(reason error) {
	c.state = stateClosing
	c.reason = reason
}
