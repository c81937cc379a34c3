//go:build !linux

package tcp

import "golang.org/x/sys/unix"

// setKeepAlive enables keep-alive probes, the probe interval is left to the system
func setKeepAlive(fd int, _ int) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1)
}
