//go:build linux

package tcp

import "golang.org/x/sys/unix"

// setKeepAlive enables keep-alive probes after idleSec seconds of silence
func setKeepAlive(fd int, idleSec int) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1); err != nil {
		return err
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, idleSec); err != nil {
		return err
	}
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, idleSec)
}
