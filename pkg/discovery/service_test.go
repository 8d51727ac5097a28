package discovery

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/openxbox/smartglass/pkg/packet"
)

const testLiveID = "FD0000123456789"

func consoleCertDER(t *testing.T) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: testLiveID},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	return der
}

// fakeDiscoveryConsole answers discovery requests on a loopback socket.
func fakeDiscoveryConsole(t *testing.T, name string, flags packet.PrimaryDeviceFlag) net.PacketConn {
	t.Helper()
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })

	cert := consoleCertDER(t)
	go func() {
		buf := make([]byte, 2048)
		for {
			n, addr, err := conn.ReadFrom(buf)
			if err != nil {
				return
			}
			pkt, err := packet.Unpack(append([]byte(nil), buf[:n]...), nil)
			if err != nil {
				continue
			}
			if _, ok := pkt.(*packet.DiscoveryRequest); !ok {
				continue
			}
			response := &packet.DiscoveryResponse{
				Flags:       flags,
				ClientType:  packet.ClientTypeXboxOne,
				Name:        name,
				UUID:        uuid.MustParse("de305d54-75b4-431b-adb2-eb6b9e546014"),
				Certificate: cert,
			}
			data, err := packet.Pack(response, nil)
			if err != nil {
				t.Errorf("packing discovery response: %v", err)
				return
			}
			conn.WriteTo(data, addr)
		}
	}()
	return conn
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewService(Config{Conn: conn})
	if err != nil {
		t.Fatalf("NewService() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDiscoverRoundTrip(t *testing.T) {
	console := fakeDiscoveryConsole(t, "XboxOne",
		packet.PrimaryDeviceFlagAllowAnonymousUsers|packet.PrimaryDeviceFlagAllowAuthenticatedUsers)
	s := newTestService(t)

	var eventCount atomic.Int32
	s.OnDeviceDiscovered.Subscribe(func(*Console) { eventCount.Add(1) })

	consoles, err := s.Discover(context.Background(), DiscoverOptions{
		Address: console.LocalAddr(),
		Tries:   2,
		Timeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	if len(consoles) != 1 {
		t.Fatalf("discovered %d consoles, want 1", len(consoles))
	}

	got := consoles[0]
	if got.Name != "XboxOne" {
		t.Errorf("Name = %q, want XboxOne", got.Name)
	}
	if !got.Available() {
		t.Error("console not marked available")
	}
	if got.LiveID != testLiveID {
		t.Errorf("LiveID = %q, want %q", got.LiveID, testLiveID)
	}
	if !got.AllowsAnonymous() {
		t.Error("anonymous flag lost")
	}
	if got.PublicKey == nil {
		t.Error("certificate public key not extracted")
	}
	if got.Address.Port != 5050 {
		t.Errorf("console port = %d, want 5050", got.Address.Port)
	}

	// Repeated responses from the same console fire one event.
	if got := eventCount.Load(); got != 1 {
		t.Errorf("OnDeviceDiscovered fired %d times, want 1", got)
	}
}

func TestPowerOnSendsBurst(t *testing.T) {
	target, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer target.Close()

	received := make(chan []byte, 8)
	go func() {
		buf := make([]byte, 2048)
		for {
			n, _, err := target.ReadFrom(buf)
			if err != nil {
				return
			}
			received <- append([]byte(nil), buf[:n]...)
		}
	}()

	s := newTestService(t)
	if err := s.PowerOn(context.Background(), testLiveID, PowerOnOptions{
		Address: target.LocalAddr(),
		Tries:   3,
	}); err != nil {
		t.Fatalf("PowerOn() error: %v", err)
	}

	for i := 0; i < 3; i++ {
		select {
		case data := <-received:
			pkt, err := packet.Unpack(data, nil)
			if err != nil {
				t.Fatalf("unpacking power-on %d: %v", i, err)
			}
			req, ok := pkt.(*packet.PowerOnRequest)
			if !ok {
				t.Fatalf("packet %d is %T, want *PowerOnRequest", i, pkt)
			}
			if req.LiveID != testLiveID {
				t.Errorf("LiveID = %q, want %q", req.LiveID, testLiveID)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("power-on burst %d never arrived", i)
		}
	}
}

func TestConsoleListPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "consoles.json")

	consoles := []*Console{{
		Address: &net.UDPAddr{IP: net.IPv4(10, 11, 12, 12), Port: 5050},
		Name:    "TestConsole",
		UUID:    uuid.MustParse("de305d54-75b4-431b-adb2-eb6b9e546014"),
		LiveID:  testLiveID,
		Status:  DeviceStatusAvailable,
	}}

	if err := SaveConsoleList(path, consoles); err != nil {
		t.Fatalf("SaveConsoleList() error: %v", err)
	}
	loaded, err := LoadConsoleList(path)
	if err != nil {
		t.Fatalf("LoadConsoleList() error: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("loaded %d consoles, want 1", len(loaded))
	}

	got := loaded[0]
	if got.Name != "TestConsole" || got.LiveID != testLiveID {
		t.Errorf("loaded = %+v", got)
	}
	if got.Address.IP.String() != "10.11.12.12" || got.Address.Port != 5050 {
		t.Errorf("loaded address = %v", got.Address)
	}
	if got.UUID != consoles[0].UUID {
		t.Errorf("loaded uuid = %v", got.UUID)
	}
	if got.Status != DeviceStatusUnknown {
		t.Errorf("loaded status = %v, want Unknown", got.Status)
	}
}
