package base

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// --------------------------------------------------------------------------
// Constants and Errors
// --------------------------------------------------------------------------

const (
	// HeaderSize is the size of the length prefix of every frame
	HeaderSize = 4

	// MaxMessageSize is the largest payload a frame may carry
	MaxMessageSize = 32 << 20
)

var (
	// ErrProtocolViolation is returned when a peer does not follow the framing
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrFrameTooLarge is returned for frames that declare more than MaxMessageSize bytes
	ErrFrameTooLarge = fmt.Errorf("%w: frame exceeds %d bytes", ErrProtocolViolation, MaxMessageSize)

	// ErrPeerClosed is returned when the peer closed the connection
	ErrPeerClosed = errors.New("peer closed the connection")

	// errWouldBlock is returned by non-blocking sockets that cannot make progress
	errWouldBlock = errors.New("operation would block")
)

// --------------------------------------------------------------------------
// Frame Encoding
// --------------------------------------------------------------------------

// A frame is the payload prefixed with its length:
// - 4 bytes: payload length (uint32, little endian)
// - N bytes: payload

// AppendFrame appends the framed payload to dst
func AppendFrame(dst []byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxMessageSize {
		return dst, ErrFrameTooLarge
	}
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(payload)))
	return append(dst, payload...), nil
}

// ParseFrame extracts the first frame of buf. It returns the payload (aliasing
// buf) and the number of bytes the frame occupies. If buf does not hold a
// complete frame yet, n is 0 and err is nil. A header declaring more than
// MaxMessageSize bytes is rejected before the payload is awaited.
func ParseFrame(buf []byte) (payload []byte, n int, err error) {
	if len(buf) < HeaderSize {
		return nil, 0, nil
	}

	size := binary.LittleEndian.Uint32(buf)
	if size > MaxMessageSize {
		return nil, 0, ErrFrameTooLarge
	}

	end := HeaderSize + int(size)
	if len(buf) < end {
		return nil, 0, nil
	}
	return buf[HeaderSize:end:end], end, nil
}

// WriteFrame writes a single frame to w
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxMessageSize {
		return ErrFrameTooLarge
	}

	var header [HeaderSize]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads a single frame from r. The payload is read into buf if it
// is large enough, otherwise a new slice is allocated.
func ReadFrame(r io.Reader, buf []byte) ([]byte, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrPeerClosed
		}
		return nil, err
	}

	size := binary.LittleEndian.Uint32(header[:])
	if size > MaxMessageSize {
		return nil, ErrFrameTooLarge
	}

	if uint32(cap(buf)) < size {
		buf = make([]byte, size)
	}
	buf = buf[:size]

	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf, nil
}
