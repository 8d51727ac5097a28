package discovery

import (
	"context"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/pion/logging"

	"github.com/openxbox/smartglass/pkg/crypto"
	"github.com/openxbox/smartglass/pkg/events"
	"github.com/openxbox/smartglass/pkg/packet"
	"github.com/openxbox/smartglass/pkg/transport"
)

// Default discovery and power-on pacing.
const (
	DefaultDiscoverTries   = 5
	DefaultDiscoverSpacing = 500 * time.Millisecond
	DefaultDiscoverTimeout = 5 * time.Second

	DefaultPowerOnTries   = 2
	DefaultPowerOnSpacing = 100 * time.Millisecond
)

// Service discovers consoles and wakes them from standby. One Service
// owns one broadcast-capable UDP socket.
type Service struct {
	transport *transport.UDP
	log       logging.LeveledLogger

	mu         sync.Mutex
	discovered map[string]*Console

	// OnDeviceDiscovered fires once per console per discovery sweep.
	OnDeviceDiscovered events.Event[*Console]
}

// Config configures the discovery service.
type Config struct {
	// Conn is an optional pre-existing socket, used by tests.
	Conn net.PacketConn

	// LoggerFactory creates the service logger.
	LoggerFactory logging.LoggerFactory
}

// NewService creates and starts a discovery service.
func NewService(config Config) (*Service, error) {
	if config.LoggerFactory == nil {
		config.LoggerFactory = logging.NewDefaultLoggerFactory()
	}

	s := &Service{
		log:        config.LoggerFactory.NewLogger("discovery"),
		discovered: make(map[string]*Console),
	}

	t, err := transport.New(transport.Config{
		Conn:          config.Conn,
		Handler:       s.handleDatagram,
		LoggerFactory: config.LoggerFactory,
	})
	if err != nil {
		return nil, err
	}
	s.transport = t

	if err := t.Start(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close stops the service socket.
func (s *Service) Close() error {
	return s.transport.Stop()
}

// DiscoverOptions tunes one discovery sweep.
type DiscoverOptions struct {
	// Address adds a unicast target besides broadcast and multicast.
	Address net.Addr

	// Tries is the number of request fan-outs. Default 5.
	Tries int

	// Timeout is how long responses are collected. Default 5s.
	Timeout time.Duration
}

// Discover sweeps the local network and returns every console that
// answered, sorted by address.
func (s *Service) Discover(ctx context.Context, opts DiscoverOptions) ([]*Console, error) {
	if opts.Tries <= 0 {
		opts.Tries = DefaultDiscoverTries
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultDiscoverTimeout
	}

	s.mu.Lock()
	s.discovered = make(map[string]*Console)
	s.mu.Unlock()

	request := &packet.DiscoveryRequest{
		ClientType:     packet.ClientTypeAndroid,
		MinimumVersion: 0,
		MaximumVersion: 2,
	}
	data, err := packet.Pack(request, nil)
	if err != nil {
		return nil, err
	}

	sendDone := make(chan struct{})
	go func() {
		defer close(sendDone)
		for i := 0; i < opts.Tries; i++ {
			s.fanOut(data, opts.Address)
			select {
			case <-time.After(DefaultDiscoverSpacing):
			case <-ctx.Done():
				return
			}
		}
	}()

	select {
	case <-time.After(opts.Timeout):
	case <-ctx.Done():
		<-sendDone
		return s.Discovered(), ctx.Err()
	}
	<-sendDone

	return s.Discovered(), nil
}

// PowerOnOptions tunes a power-on burst.
type PowerOnOptions struct {
	// Address adds a unicast target besides broadcast and multicast.
	Address net.Addr

	// Tries is the number of request fan-outs. Default 2.
	Tries int
}

// PowerOn wakes the console with the given Live ID. No response is
// expected; liveness is proven by a subsequent discovery.
func (s *Service) PowerOn(ctx context.Context, liveID string, opts PowerOnOptions) error {
	if opts.Tries <= 0 {
		opts.Tries = DefaultPowerOnTries
	}

	data, err := packet.Pack(&packet.PowerOnRequest{LiveID: liveID}, nil)
	if err != nil {
		return err
	}

	for i := 0; i < opts.Tries; i++ {
		s.fanOut(data, opts.Address)
		select {
		case <-time.After(DefaultPowerOnSpacing):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// fanOut sends one datagram to broadcast, multicast and the optional
// unicast address.
func (s *Service) fanOut(data []byte, unicast net.Addr) {
	if err := s.transport.Send(data, transport.BroadcastAddr); err != nil {
		s.log.Debugf("broadcast send: %v", err)
	}
	if err := s.transport.Send(data, transport.MulticastAddr); err != nil {
		s.log.Debugf("multicast send: %v", err)
	}
	if unicast != nil {
		if err := s.transport.Send(data, unicast); err != nil {
			s.log.Debugf("unicast send: %v", err)
		}
	}
}

// Discovered returns the consoles collected by the latest sweep, sorted
// by address for stable output.
func (s *Service) Discovered() []*Console {
	s.mu.Lock()
	defer s.mu.Unlock()

	consoles := make([]*Console, 0, len(s.discovered))
	for _, c := range s.discovered {
		consoles = append(consoles, c)
	}
	sort.Slice(consoles, func(i, j int) bool {
		return consoles[i].Address.String() < consoles[j].Address.String()
	})
	return consoles
}

func (s *Service) handleDatagram(data []byte, addr net.Addr) {
	pkt, err := packet.Unpack(data, nil)
	if err != nil {
		s.log.Debugf("dropping packet from %v: %v", addr, err)
		return
	}
	response, ok := pkt.(*packet.DiscoveryResponse)
	if !ok {
		return
	}

	udpAddr, ok := addr.(*net.UDPAddr)
	if !ok {
		return
	}

	console := &Console{
		Address: &net.UDPAddr{IP: udpAddr.IP, Port: transport.Port},
		Name:    response.Name,
		UUID:    response.UUID,
		Flags:   response.Flags,
		// LastError comes straight from the response; zero means healthy.
		LastError: response.LastError,
		Status:    DeviceStatusAvailable,
	}

	cert, err := crypto.ParseConsoleCertificate(response.Certificate)
	if err != nil {
		s.log.Warnf("console %s certificate: %v", response.Name, err)
	} else {
		console.LiveID = cert.LiveID
		console.PublicKey = cert.PublicKey
	}

	host := udpAddr.IP.String()
	s.mu.Lock()
	_, seen := s.discovered[host]
	s.discovered[host] = console
	s.mu.Unlock()

	s.log.Infof("discovered %v", console)
	if !seen {
		s.OnDeviceDiscovered.Emit(console)
	}
}
