//go:build windows

package transport

import (
	"context"
	"net"
	"syscall"
)

// listenBroadcast binds a UDP socket with SO_BROADCAST set so discovery
// and power-on packets can target 255.255.255.255.
func listenBroadcast(addr string) (net.PacketConn, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var soErr error
			err := c.Control(func(fd uintptr) {
				soErr = syscall.SetsockoptInt(syscall.Handle(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
			})
			if err != nil {
				return err
			}
			return soErr
		},
	}
	return lc.ListenPacket(context.Background(), "udp4", addr)
}
