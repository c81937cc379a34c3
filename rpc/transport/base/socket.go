package base

import (
	"golang.org/x/sys/unix"
)

// socket is the non-blocking byte stream a connection works on. Read and
// Write return errWouldBlock instead of blocking and Read reports an orderly
// shutdown of the peer as ErrPeerClosed.
type socket interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// fdSocket is a socket backed by a raw non-blocking descriptor
type fdSocket struct {
	fd int
}

func (s fdSocket) Read(p []byte) (int, error) {
	for {
		n, err := unix.Read(s.fd, p)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN || err == unix.EWOULDBLOCK:
			return 0, errWouldBlock
		case err != nil:
			return 0, err
		case n == 0 && len(p) > 0:
			return 0, ErrPeerClosed
		}
		return n, nil
	}
}

func (s fdSocket) Write(p []byte) (int, error) {
	for {
		n, err := unix.Write(s.fd, p)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN || err == unix.EWOULDBLOCK:
			return 0, errWouldBlock
		case err != nil:
			return 0, err
		}
		return n, nil
	}
}

func (s fdSocket) Close() error {
	return unix.Close(s.fd)
}
