package console

import (
	"crypto/ecdh"
	"crypto/rand"
	"net"
	"testing"

	"github.com/google/uuid"

	"github.com/openxbox/smartglass/pkg/discovery"
	"github.com/openxbox/smartglass/pkg/packet"
	"github.com/openxbox/smartglass/pkg/session"
)

func testRecord(t *testing.T) *discovery.Console {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	return &discovery.Console{
		Address:   &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 5050},
		Name:      "TestConsole",
		UUID:      uuid.MustParse("de305d54-75b4-431b-adb2-eb6b9e546014"),
		LiveID:    "FD0000123456789",
		Flags:     packet.PrimaryDeviceFlagAllowAnonymousUsers,
		PublicKey: key.PublicKey(),
		Status:    discovery.DeviceStatusAvailable,
	}
}

func TestNewConsole(t *testing.T) {
	c, err := New(testRecord(t), Config{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer c.Close()

	if c.Input == nil || c.Media == nil || c.Text == nil || c.Stump == nil || c.Title == nil {
		t.Error("managers not composed")
	}
	if c.ConnectionState() != session.StateDisconnected {
		t.Errorf("state = %v, want Disconnected", c.ConnectionState())
	}
	if c.Connected() {
		t.Error("fresh console reports connected")
	}
}

func TestNewConsoleRequiresPublicKey(t *testing.T) {
	record := testRecord(t)
	record.PublicKey = nil
	if _, err := New(record, Config{}); err == nil {
		t.Error("New() accepted a record without a public key")
	}
}

func TestConsoleCachesEngineEvents(t *testing.T) {
	c, err := New(testRecord(t), Config{})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	var statusFired, surfaceFired bool
	c.OnConsoleStatus.Subscribe(func(*packet.ConsoleStatus) { statusFired = true })
	c.OnActiveSurface.Subscribe(func(*packet.ActiveSurfaceChange) { surfaceFired = true })

	c.Engine().OnConsoleStatus.Emit(&packet.ConsoleStatus{BuildNumber: 14393})
	c.Engine().OnActiveSurface.Emit(&packet.ActiveSurfaceChange{
		SurfaceType: packet.ActiveSurfaceTypeDirect,
	})
	c.Engine().OnPairingState.Emit(packet.PairedIdentityStatePaired)

	if got := c.ConsoleStatus(); got == nil || got.BuildNumber != 14393 {
		t.Errorf("ConsoleStatus() = %+v", got)
	}
	if c.ActiveSurface() == nil {
		t.Error("active surface not cached")
	}
	if c.PairingState() != packet.PairedIdentityStatePaired {
		t.Errorf("PairingState() = %v, want Paired", c.PairingState())
	}
	if !statusFired || !surfaceFired {
		t.Error("console events not re-emitted")
	}

	// Disconnection clears the cached state.
	c.Engine().OnConnectionState.Emit(session.StateDisconnected)
	if c.ConsoleStatus() != nil || c.ActiveSurface() != nil {
		t.Error("cached state not cleared on disconnect")
	}
	if c.PairingState() != packet.PairedIdentityStateNotPaired {
		t.Error("pairing state not reset on disconnect")
	}
}
