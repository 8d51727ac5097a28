// Package discovery implements the console discovery pipeline: broadcast
// and multicast DiscoveryRequest fan-out, DiscoveryResponse collection
// indexed by source address, power-on wakeup, and JSON persistence of
// previously seen consoles. The service owns its own socket; it is
// independent of any session.
package discovery

import (
	"crypto/ecdh"
	"fmt"
	"net"

	"github.com/google/uuid"

	"github.com/openxbox/smartglass/pkg/packet"
)

// DeviceStatus tracks a console's reachability.
type DeviceStatus int

const (
	DeviceStatusUnknown DeviceStatus = iota
	DeviceStatusAvailable
	DeviceStatusUnavailable
)

// String returns the status name.
func (s DeviceStatus) String() string {
	switch s {
	case DeviceStatusAvailable:
		return "Available"
	case DeviceStatusUnavailable:
		return "Unavailable"
	default:
		return "Unknown"
	}
}

// Console is one discovered console.
type Console struct {
	// Address is the console's UDP endpoint.
	Address *net.UDPAddr

	// Name is the display name from the discovery response.
	Name string

	// UUID identifies the console installation.
	UUID uuid.UUID

	// LiveID is the 16-character identifier from the console
	// certificate, used for power-on.
	LiveID string

	// Flags carries the primary-device capability bits.
	Flags packet.PrimaryDeviceFlag

	// LastError is the console-reported error code.
	LastError uint32

	// PublicKey is the ECDH key recovered from the certificate.
	PublicKey *ecdh.PublicKey

	// Status is the local reachability assessment.
	Status DeviceStatus
}

// Available reports whether the console answered the latest discovery.
func (c *Console) Available() bool {
	return c.Status == DeviceStatusAvailable
}

// AllowsAnonymous reports whether the console accepts anonymous
// connections.
func (c *Console) AllowsAnonymous() bool {
	return c.Flags.AllowsAnonymous()
}

// String returns a printable one-line summary.
func (c *Console) String() string {
	return fmt.Sprintf("%s (%s) %v", c.Name, c.LiveID, c.Address)
}
