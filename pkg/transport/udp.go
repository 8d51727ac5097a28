// Package transport provides the broadcast-capable UDP socket the session
// engine and discovery pipeline run on. All SmartGlass traffic uses
// UDP/5050; discovery and power-on additionally fan out to the local
// broadcast and SSDP multicast addresses.
package transport

import (
	"net"
	"sync"
	"time"

	"github.com/pion/logging"
	"golang.org/x/net/ipv4"
)

// Port is the UDP port all SmartGlass traffic uses.
const Port = 5050

// Well-known fan-out addresses for discovery and power-on.
var (
	BroadcastAddr = &net.UDPAddr{IP: net.IPv4bcast, Port: Port}
	MulticastAddr = &net.UDPAddr{IP: net.IPv4(239, 255, 255, 250), Port: Port}
)

// maxDatagramSize bounds a single read. SmartGlass datagrams never exceed
// the connect-request ceiling plus framing.
const maxDatagramSize = 2048

// DatagramHandler receives every datagram read from the socket.
type DatagramHandler func(data []byte, addr net.Addr)

// UDP owns the session socket. It runs a single read loop and hands every
// datagram to the configured handler; all sends go through Send.
type UDP struct {
	conn    net.PacketConn
	pconn   *ipv4.PacketConn
	handler DatagramHandler
	closeCh chan struct{}
	wg      sync.WaitGroup
	log     logging.LeveledLogger

	mu      sync.Mutex
	started bool
	closed  bool
}

// Config configures the UDP transport.
type Config struct {
	// Conn is an optional pre-existing socket, used by tests. If nil a
	// broadcast-enabled socket is bound to an ephemeral port.
	Conn net.PacketConn

	// Handler is called for each received datagram. Required.
	Handler DatagramHandler

	// LoggerFactory creates the transport logger. Defaults to the pion
	// default factory.
	LoggerFactory logging.LoggerFactory
}

// New creates a UDP transport.
func New(config Config) (*UDP, error) {
	if config.Handler == nil {
		return nil, ErrNoHandler
	}
	if config.LoggerFactory == nil {
		config.LoggerFactory = logging.NewDefaultLoggerFactory()
	}

	u := &UDP{
		conn:    config.Conn,
		handler: config.Handler,
		closeCh: make(chan struct{}),
		log:     config.LoggerFactory.NewLogger("transport-udp"),
	}

	if u.conn == nil {
		conn, err := listenBroadcast(":0")
		if err != nil {
			return nil, err
		}
		u.conn = conn
	}

	// Multicast TTL 1 keeps discovery on the local segment.
	u.pconn = ipv4.NewPacketConn(u.conn)
	if err := u.pconn.SetMulticastTTL(1); err != nil {
		u.log.Debugf("setting multicast TTL: %v", err)
	}

	return u, nil
}

// Start begins the read loop.
func (u *UDP) Start() error {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return ErrClosed
	}
	if u.started {
		u.mu.Unlock()
		return ErrAlreadyStarted
	}
	u.started = true
	u.mu.Unlock()

	u.log.Infof("starting UDP transport on %s", u.conn.LocalAddr())

	u.wg.Add(1)
	go u.readLoop()
	return nil
}

// Stop closes the socket and waits for the read loop to exit.
func (u *UDP) Stop() error {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return ErrClosed
	}
	u.closed = true
	u.mu.Unlock()

	u.log.Info("stopping UDP transport")

	close(u.closeCh)
	u.conn.SetReadDeadline(time.Now())
	u.conn.Close()
	u.wg.Wait()
	return nil
}

// Send writes one datagram to addr.
func (u *UDP) Send(data []byte, addr net.Addr) error {
	u.mu.Lock()
	closed := u.closed
	u.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if addr == nil {
		return ErrInvalidAddress
	}

	u.log.Tracef("sending %d bytes to %v", len(data), addr)
	_, err := u.conn.WriteTo(data, addr)
	return err
}

// LocalAddr returns the bound socket address.
func (u *UDP) LocalAddr() net.Addr {
	return u.conn.LocalAddr()
}

func (u *UDP) readLoop() {
	defer u.wg.Done()

	buf := make([]byte, maxDatagramSize)
	for {
		n, addr, err := u.conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-u.closeCh:
				return
			default:
			}
			u.log.Warnf("read error: %v", err)
			return
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		u.log.Tracef("received %d bytes from %v", n, addr)
		u.handler(data, addr)
	}
}
