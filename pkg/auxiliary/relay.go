package auxiliary

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/pion/logging"

	"github.com/openxbox/smartglass/pkg/packet"
)

// consoleConn is the TCP connection to the console's advertised
// auxiliary endpoint. It reads whole frames (header, padded ciphertext,
// hash) and hands decrypted payloads to the handler.
type consoleConn struct {
	conn    net.Conn
	crypto  *Crypto
	log     logging.LeveledLogger
	handler func([]byte)

	closeOnce sync.Once
	wg        sync.WaitGroup
}

func dialConsole(endpoint string, c *Crypto, log logging.LeveledLogger,
	handler func([]byte)) (*consoleConn, error) {
	conn, err := net.Dial("tcp", endpoint)
	if err != nil {
		return nil, err
	}
	cc := &consoleConn{conn: conn, crypto: c, log: log, handler: handler}
	cc.wg.Add(1)
	go cc.readLoop()
	return cc, nil
}

func (c *consoleConn) close() {
	c.closeOnce.Do(func() { c.conn.Close() })
	c.wg.Wait()
}

// send encrypts plaintext into frame segments and writes them in order.
func (c *consoleConn) send(plaintext []byte) error {
	segments, err := Pack(plaintext, c.crypto, false)
	if err != nil {
		return err
	}
	for _, segment := range segments {
		if _, err := c.conn.Write(segment); err != nil {
			return err
		}
	}
	return nil
}

func (c *consoleConn) readLoop() {
	defer c.wg.Done()

	header := make([]byte, frameHeaderSize)
	for {
		if _, err := io.ReadFull(c.conn, header); err != nil {
			if err != io.EOF {
				c.log.Debugf("console read: %v", err)
			}
			return
		}
		if binary.BigEndian.Uint16(header) != FrameMagic {
			c.log.Warnf("console sent invalid frame magic")
			return
		}

		payloadSize := int(binary.BigEndian.Uint16(header[2:]))
		rest := make([]byte, PaddedPayloadSize(payloadSize)+frameHashSize)
		if _, err := io.ReadFull(c.conn, rest); err != nil {
			c.log.Debugf("console read: %v", err)
			return
		}

		frame := append(append([]byte(nil), header...), rest...)
		plaintext, err := Unpack(frame, c.crypto, false)
		if err != nil {
			c.log.Warnf("dropping console frame: %v", err)
			continue
		}
		c.handler(plaintext)
	}
}

// Relay bridges a local TCP listener to the console's auxiliary
// endpoint: client-to-console data is encrypted frame by frame,
// console-to-client frames are decrypted and forwarded.
type Relay struct {
	crypto   *Crypto
	endpoint string
	listener net.Listener
	log      logging.LeveledLogger

	mu      sync.Mutex
	client  net.Conn
	console *consoleConn
	closed  bool
	wg      sync.WaitGroup
}

// RelayConfig configures a relay.
type RelayConfig struct {
	// ConnectionInfo is the payload advertised by the console.
	ConnectionInfo *packet.AuxiliaryStreamConnectionInfo

	// ListenAddr is the local listener address, e.g. "127.0.0.1:8999".
	ListenAddr string

	// LoggerFactory creates the relay logger.
	LoggerFactory logging.LoggerFactory
}

// NewRelay creates a relay for the first endpoint of the connection info.
func NewRelay(config RelayConfig) (*Relay, error) {
	if config.ConnectionInfo == nil || len(config.ConnectionInfo.Endpoints) == 0 {
		return nil, ErrNoEndpoint
	}
	if config.LoggerFactory == nil {
		config.LoggerFactory = logging.NewDefaultLoggerFactory()
	}

	c, err := FromConnectionInfo(config.ConnectionInfo)
	if err != nil {
		return nil, err
	}

	endpoint := config.ConnectionInfo.Endpoints[0]
	listener, err := net.Listen("tcp", config.ListenAddr)
	if err != nil {
		return nil, err
	}

	return &Relay{
		crypto:   c,
		endpoint: net.JoinHostPort(endpoint.IP, endpoint.Port),
		listener: listener,
		log:      config.LoggerFactory.NewLogger("aux-relay"),
	}, nil
}

// Addr returns the local listener address.
func (r *Relay) Addr() net.Addr {
	return r.listener.Addr()
}

// Run accepts local clients, one at a time, and bridges each to the
// console endpoint until the listener closes.
func (r *Relay) Run() error {
	for {
		client, err := r.listener.Accept()
		if err != nil {
			r.mu.Lock()
			closed := r.closed
			r.mu.Unlock()
			if closed {
				return nil
			}
			return err
		}
		r.handleClient(client)
	}
}

// Close stops the listener and tears down any active bridge.
func (r *Relay) Close() error {
	r.mu.Lock()
	r.closed = true
	client, console := r.client, r.console
	r.client, r.console = nil, nil
	r.mu.Unlock()

	err := r.listener.Close()
	if client != nil {
		client.Close()
	}
	if console != nil {
		console.close()
	}
	r.wg.Wait()
	return err
}

func (r *Relay) handleClient(client net.Conn) {
	r.log.Infof("aux client %v connected, bridging to %s", client.RemoteAddr(), r.endpoint)

	console, err := dialConsole(r.endpoint, r.crypto, r.log, func(plaintext []byte) {
		// Console data is decrypted and forwarded to the local client.
		r.mu.Lock()
		c := r.client
		r.mu.Unlock()
		if c != nil {
			if _, err := c.Write(plaintext); err != nil {
				r.log.Debugf("client write: %v", err)
			}
		}
	})
	if err != nil {
		r.log.Errorf("dialing console endpoint %s: %v", r.endpoint, err)
		client.Close()
		return
	}

	r.mu.Lock()
	r.client = client
	r.console = console
	r.mu.Unlock()

	buf := make([]byte, 2048)
	for {
		n, err := client.Read(buf)
		if err != nil {
			if err != io.EOF {
				r.log.Debugf("client read: %v", err)
			}
			break
		}
		if err := console.send(buf[:n]); err != nil {
			r.log.Errorf("console send: %v", err)
			break
		}
	}

	r.log.Info("aux client disconnected")
	r.mu.Lock()
	if r.client == client {
		r.client = nil
		r.console = nil
	}
	r.mu.Unlock()
	client.Close()
	console.close()
}

// String returns a printable description of the bridge.
func (r *Relay) String() string {
	return fmt.Sprintf("aux relay %v <-> %s", r.listener.Addr(), r.endpoint)
}
