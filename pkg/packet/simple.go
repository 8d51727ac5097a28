package packet

import (
	"github.com/google/uuid"

	"github.com/openxbox/smartglass/pkg/crypto"
)

// Packet is any decoded SmartGlass datagram.
type Packet interface {
	PacketType() PacketType
}

// simpleHeaderVersion is the protocol version stamped on simple packets.
const simpleHeaderVersion = 2

// DiscoveryRequest probes the local network for consoles.
type DiscoveryRequest struct {
	Flags          uint32
	ClientType     ClientType
	MinimumVersion uint16
	MaximumVersion uint16
}

// PacketType implements Packet.
func (p *DiscoveryRequest) PacketType() PacketType { return PacketTypeDiscoveryRequest }

func (p *DiscoveryRequest) encodeTo(w *Writer) {
	w.WriteUint32(p.Flags)
	w.WriteUint16(uint16(p.ClientType))
	w.WriteUint16(p.MinimumVersion)
	w.WriteUint16(p.MaximumVersion)
}

func (p *DiscoveryRequest) decodeFrom(r *Reader) {
	p.Flags = r.ReadUint32()
	p.ClientType = ClientType(r.ReadUint16())
	p.MinimumVersion = r.ReadUint16()
	p.MaximumVersion = r.ReadUint16()
}

// DiscoveryResponse is a console's answer to a DiscoveryRequest. The
// certificate carries the console's Live ID and public key.
type DiscoveryResponse struct {
	Flags       PrimaryDeviceFlag
	ClientType  ClientType
	Name        string
	UUID        uuid.UUID
	LastError   uint32
	Certificate []byte // X.509 DER
}

// PacketType implements Packet.
func (p *DiscoveryResponse) PacketType() PacketType { return PacketTypeDiscoveryResponse }

func (p *DiscoveryResponse) encodeTo(w *Writer) {
	w.WriteUint32(uint32(p.Flags))
	w.WriteUint16(uint16(p.ClientType))
	w.WriteSGString(p.Name)
	w.WriteUUIDString(p.UUID)
	w.WriteUint32(p.LastError)
	w.WritePrefixedBytes(p.Certificate)
}

func (p *DiscoveryResponse) decodeFrom(r *Reader) {
	p.Flags = PrimaryDeviceFlag(r.ReadUint32())
	p.ClientType = ClientType(r.ReadUint16())
	p.Name = r.ReadSGString()
	p.UUID = r.ReadUUIDString()
	p.LastError = r.ReadUint32()
	p.Certificate = r.ReadPrefixedBytes()
}

// PowerOnRequest wakes a console from standby. Unprotected; the console
// identifies the sender only by the Live ID.
type PowerOnRequest struct {
	LiveID string
}

// PacketType implements Packet.
func (p *PowerOnRequest) PacketType() PacketType { return PacketTypePowerOnRequest }

func (p *PowerOnRequest) encodeTo(w *Writer)   { w.WriteSGString(p.LiveID) }
func (p *PowerOnRequest) decodeFrom(r *Reader) { p.LiveID = r.ReadSGString() }

// ConnectRequest opens a session. The unprotected part carries our
// ephemeral public key and the IV used to encrypt the protected part.
type ConnectRequest struct {
	SGUUID        uuid.UUID
	PublicKeyType crypto.PublicKeyType
	PublicKey     []byte // uncompressed point without 0x04 prefix
	IV            []byte // 16 bytes

	// Protected payload.
	Userhash   string
	Token      string
	RequestNum uint32
	GroupStart uint32
	GroupEnd   uint32
}

// PacketType implements Packet.
func (p *ConnectRequest) PacketType() PacketType { return PacketTypeConnectRequest }

func (p *ConnectRequest) encodeUnprotected(w *Writer) {
	w.WriteUUID(p.SGUUID)
	w.WriteUint16(uint16(p.PublicKeyType))
	w.WriteBytes(p.PublicKey)
	w.WriteBytes(p.IV)
}

func (p *ConnectRequest) encodeProtected(w *Writer) {
	w.WriteSGString(p.Userhash)
	w.WriteSGString(p.Token)
	w.WriteUint32(p.RequestNum)
	w.WriteUint32(p.GroupStart)
	w.WriteUint32(p.GroupEnd)
}

func (p *ConnectRequest) decodeUnprotected(r *Reader) {
	p.SGUUID = r.ReadUUID()
	p.PublicKeyType = crypto.PublicKeyType(r.ReadUint16())
	size := p.PublicKeyType.PublicKeySize()
	p.PublicKey = r.ReadBytes(size)
	p.IV = r.ReadBytes(16)
}

func (p *ConnectRequest) decodeProtected(r *Reader) {
	p.Userhash = r.ReadSGString()
	p.Token = r.ReadSGString()
	p.RequestNum = r.ReadUint32()
	p.GroupStart = r.ReadUint32()
	p.GroupEnd = r.ReadUint32()
}

// PayloadLength returns the combined unprotected + unpadded protected
// payload length. The connect flow fragments the authentication data when
// this would exceed 1024 bytes.
func (p *ConnectRequest) PayloadLength() int {
	var unprotected, protected Writer
	p.encodeUnprotected(&unprotected)
	p.encodeProtected(&protected)
	return unprotected.Len() + protected.Len()
}

// ConnectResponse answers a ConnectRequest with the assigned participant
// id and pairing state.
type ConnectResponse struct {
	IV []byte // 16 bytes

	// Protected payload.
	Result        ConnectionResult
	PairingState  PairedIdentityState
	ParticipantID uint32
}

// PacketType implements Packet.
func (p *ConnectResponse) PacketType() PacketType { return PacketTypeConnectResponse }

func (p *ConnectResponse) encodeUnprotected(w *Writer) { w.WriteBytes(p.IV) }

func (p *ConnectResponse) encodeProtected(w *Writer) {
	w.WriteUint16(uint16(p.Result))
	w.WriteUint16(uint16(p.PairingState))
	w.WriteUint32(p.ParticipantID)
}

func (p *ConnectResponse) decodeUnprotected(r *Reader) { p.IV = r.ReadBytes(16) }

func (p *ConnectResponse) decodeProtected(r *Reader) {
	p.Result = ConnectionResult(r.ReadUint16())
	p.PairingState = PairedIdentityState(r.ReadUint16())
	p.ParticipantID = r.ReadUint32()
}
