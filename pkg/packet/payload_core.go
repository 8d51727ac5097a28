package packet

import "github.com/google/uuid"

// Ack acknowledges received sequence numbers and advertises the low
// watermark. An empty Ack with NeedAck set doubles as the heartbeat.
type Ack struct {
	LowWatermark  uint32
	ProcessedList []uint32
	RejectedList  []uint32
}

// Type implements Payload.
func (p *Ack) Type() MessageType { return MessageTypeAck }

// EncodeTo implements Payload.
func (p *Ack) EncodeTo(w *Writer) {
	w.WriteUint32(p.LowWatermark)
	w.WriteUint32(uint32(len(p.ProcessedList)))
	for _, n := range p.ProcessedList {
		w.WriteUint32(n)
	}
	w.WriteUint32(uint32(len(p.RejectedList)))
	for _, n := range p.RejectedList {
		w.WriteUint32(n)
	}
}

// DecodeFrom implements Payload.
func (p *Ack) DecodeFrom(r *Reader) {
	p.LowWatermark = r.ReadUint32()
	p.ProcessedList = readUint32List(r)
	p.RejectedList = readUint32List(r)
}

func readUint32List(r *Reader) []uint32 {
	count := int(r.ReadUint32())
	if r.Err() != nil || count > r.Remaining()/4 {
		if count > 0 && r.Err() == nil {
			r.err = ErrShortPacket
		}
		return nil
	}
	list := make([]uint32, 0, count)
	for i := 0; i < count; i++ {
		list = append(list, r.ReadUint32())
	}
	return list
}

// Fragment is the protected payload of a Message with the is-fragment
// flag set: one chunk of a larger message's plaintext.
type Fragment struct {
	// SequenceBegin and SequenceEnd delimit the half-open sequence range
	// [begin, end) the fragmented message occupies.
	SequenceBegin uint32
	SequenceEnd   uint32
	Data          []byte
}

// Type returns MessageTypeNull; a fragment's real type is carried in its
// header and only applies to the reassembled plaintext.
func (p *Fragment) Type() MessageType { return MessageTypeNull }

// EncodeTo implements Payload.
func (p *Fragment) EncodeTo(w *Writer) {
	w.WriteUint32(p.SequenceBegin)
	w.WriteUint32(p.SequenceEnd)
	w.WritePrefixedBytes(p.Data)
}

// DecodeFrom implements Payload.
func (p *Fragment) DecodeFrom(r *Reader) {
	p.SequenceBegin = r.ReadUint32()
	p.SequenceEnd = r.ReadUint32()
	p.Data = r.ReadPrefixedBytes()
}

// JSON carries a JSON document as an SGString. Large documents arrive
// split into base64 chunks that the fragment assembler recombines.
type JSON struct {
	Text string
}

// Type implements Payload.
func (p *JSON) Type() MessageType { return MessageTypeJSON }

// EncodeTo implements Payload.
func (p *JSON) EncodeTo(w *Writer) { w.WriteSGString(p.Text) }

// DecodeFrom implements Payload.
func (p *JSON) DecodeFrom(r *Reader) { p.Text = r.ReadSGString() }

// LocalJoin introduces the client device to the console after connecting.
type LocalJoin struct {
	DeviceType         ClientType
	NativeWidth        uint16
	NativeHeight       uint16
	DpiX               uint16
	DpiY               uint16
	DeviceCapabilities DeviceCapabilities
	ClientVersion      uint32
	OSMajorVersion     uint32
	OSMinorVersion     uint32
	DisplayName        string
}

// Type implements Payload.
func (p *LocalJoin) Type() MessageType { return MessageTypeLocalJoin }

// EncodeTo implements Payload.
func (p *LocalJoin) EncodeTo(w *Writer) {
	w.WriteUint16(uint16(p.DeviceType))
	w.WriteUint16(p.NativeWidth)
	w.WriteUint16(p.NativeHeight)
	w.WriteUint16(p.DpiX)
	w.WriteUint16(p.DpiY)
	w.WriteUint64(uint64(p.DeviceCapabilities))
	w.WriteUint32(p.ClientVersion)
	w.WriteUint32(p.OSMajorVersion)
	w.WriteUint32(p.OSMinorVersion)
	w.WriteSGString(p.DisplayName)
}

// DecodeFrom implements Payload.
func (p *LocalJoin) DecodeFrom(r *Reader) {
	p.DeviceType = ClientType(r.ReadUint16())
	p.NativeWidth = r.ReadUint16()
	p.NativeHeight = r.ReadUint16()
	p.DpiX = r.ReadUint16()
	p.DpiY = r.ReadUint16()
	p.DeviceCapabilities = DeviceCapabilities(r.ReadUint64())
	p.ClientVersion = r.ReadUint32()
	p.OSMajorVersion = r.ReadUint32()
	p.OSMinorVersion = r.ReadUint32()
	p.DisplayName = r.ReadSGString()
}

// Disconnect ends the session.
type Disconnect struct {
	Reason    DisconnectReason
	ErrorCode uint32
}

// Type implements Payload.
func (p *Disconnect) Type() MessageType { return MessageTypeDisconnect }

// EncodeTo implements Payload.
func (p *Disconnect) EncodeTo(w *Writer) {
	w.WriteUint32(uint32(p.Reason))
	w.WriteUint32(p.ErrorCode)
}

// DecodeFrom implements Payload.
func (p *Disconnect) DecodeFrom(r *Reader) {
	p.Reason = DisconnectReason(r.ReadUint32())
	p.ErrorCode = r.ReadUint32()
}

// StartChannelRequest asks the console to open a service channel.
type StartChannelRequest struct {
	ChannelRequestID uint32
	TitleID          uint32
	Service          uuid.UUID
	ActivityID       uint32
}

// Type implements Payload.
func (p *StartChannelRequest) Type() MessageType { return MessageTypeStartChannelRequest }

// EncodeTo implements Payload.
func (p *StartChannelRequest) EncodeTo(w *Writer) {
	w.WriteUint32(p.ChannelRequestID)
	w.WriteUint32(p.TitleID)
	w.WriteUUID(p.Service)
	w.WriteUint32(p.ActivityID)
}

// DecodeFrom implements Payload.
func (p *StartChannelRequest) DecodeFrom(r *Reader) {
	p.ChannelRequestID = r.ReadUint32()
	p.TitleID = r.ReadUint32()
	p.Service = r.ReadUUID()
	p.ActivityID = r.ReadUint32()
}

// StartChannelResponse answers a StartChannelRequest with the assigned
// channel id.
type StartChannelResponse struct {
	ChannelRequestID uint32
	TargetChannelID  uint64
	Result           SGResultCode
}

// Type implements Payload.
func (p *StartChannelResponse) Type() MessageType { return MessageTypeStartChannelResponse }

// EncodeTo implements Payload.
func (p *StartChannelResponse) EncodeTo(w *Writer) {
	w.WriteUint32(p.ChannelRequestID)
	w.WriteUint64(p.TargetChannelID)
	w.WriteUint32(uint32(p.Result))
}

// DecodeFrom implements Payload.
func (p *StartChannelResponse) DecodeFrom(r *Reader) {
	p.ChannelRequestID = r.ReadUint32()
	p.TargetChannelID = r.ReadUint64()
	p.Result = SGResultCode(r.ReadUint32())
}

// StopChannel closes a previously started channel.
type StopChannel struct {
	TargetChannelID uint64
}

// Type implements Payload.
func (p *StopChannel) Type() MessageType { return MessageTypeStopChannel }

// EncodeTo implements Payload.
func (p *StopChannel) EncodeTo(w *Writer) { w.WriteUint64(p.TargetChannelID) }

// DecodeFrom implements Payload.
func (p *StopChannel) DecodeFrom(r *Reader) { p.TargetChannelID = r.ReadUint64() }

// PairedIdentityStateChanged notifies a pairing-state transition.
type PairedIdentityStateChanged struct {
	State PairedIdentityState
}

// Type implements Payload.
func (p *PairedIdentityStateChanged) Type() MessageType {
	return MessageTypePairedIdentityStateChanged
}

// EncodeTo implements Payload.
func (p *PairedIdentityStateChanged) EncodeTo(w *Writer) { w.WriteUint16(uint16(p.State)) }

// DecodeFrom implements Payload.
func (p *PairedIdentityStateChanged) DecodeFrom(r *Reader) {
	p.State = PairedIdentityState(r.ReadUint16())
}

// ActiveTitle is one entry in a ConsoleStatus title list.
type ActiveTitle struct {
	TitleID       uint32
	HasFocus      bool
	TitleLocation ActiveTitleLocation
	ProductID     uuid.UUID
	SandboxID     uuid.UUID
	AUM           string
}

// Disposition bit layout: has-focus:1 | title-location:15.
const (
	dispositionFocusBit    = 1 << 15
	dispositionLocationMax = 0x7FFF
)

func (t *ActiveTitle) encodeTo(w *Writer) {
	w.WriteUint32(t.TitleID)
	disposition := uint16(t.TitleLocation) & dispositionLocationMax
	if t.HasFocus {
		disposition |= dispositionFocusBit
	}
	w.WriteUint16(disposition)
	w.WriteUUID(t.ProductID)
	w.WriteUUID(t.SandboxID)
	w.WriteSGString(t.AUM)
}

func (t *ActiveTitle) decodeFrom(r *Reader) {
	t.TitleID = r.ReadUint32()
	disposition := r.ReadUint16()
	t.HasFocus = disposition&dispositionFocusBit != 0
	t.TitleLocation = ActiveTitleLocation(disposition & dispositionLocationMax)
	t.ProductID = r.ReadUUID()
	t.SandboxID = r.ReadUUID()
	t.AUM = r.ReadSGString()
}

// ConsoleStatus reports firmware versions, locale and the active titles.
type ConsoleStatus struct {
	LiveTVProvider uint32
	MajorVersion   uint32
	MinorVersion   uint32
	BuildNumber    uint32
	Locale         string
	ActiveTitles   []ActiveTitle
}

// Type implements Payload.
func (p *ConsoleStatus) Type() MessageType { return MessageTypeConsoleStatus }

// EncodeTo implements Payload.
func (p *ConsoleStatus) EncodeTo(w *Writer) {
	w.WriteUint32(p.LiveTVProvider)
	w.WriteUint32(p.MajorVersion)
	w.WriteUint32(p.MinorVersion)
	w.WriteUint32(p.BuildNumber)
	w.WriteSGString(p.Locale)
	w.WriteUint16(uint16(len(p.ActiveTitles)))
	for i := range p.ActiveTitles {
		p.ActiveTitles[i].encodeTo(w)
	}
}

// DecodeFrom implements Payload.
func (p *ConsoleStatus) DecodeFrom(r *Reader) {
	p.LiveTVProvider = r.ReadUint32()
	p.MajorVersion = r.ReadUint32()
	p.MinorVersion = r.ReadUint32()
	p.BuildNumber = r.ReadUint32()
	p.Locale = r.ReadSGString()
	count := int(r.ReadUint16())
	for i := 0; i < count && r.Err() == nil; i++ {
		var title ActiveTitle
		title.decodeFrom(r)
		p.ActiveTitles = append(p.ActiveTitles, title)
	}
}

// ActiveSurfaceChange announces the surface a title wants rendered.
type ActiveSurfaceChange struct {
	SurfaceType      ActiveSurfaceType
	ServerTCPPort    uint16
	ServerUDPPort    uint16
	SessionID        uuid.UUID
	RenderWidth      uint16
	RenderHeight     uint16
	MasterSessionKey []byte // 32 bytes
}

// Type implements Payload.
func (p *ActiveSurfaceChange) Type() MessageType { return MessageTypeActiveSurfaceChange }

// EncodeTo implements Payload.
func (p *ActiveSurfaceChange) EncodeTo(w *Writer) {
	w.WriteUint16(uint16(p.SurfaceType))
	w.WriteUint16(p.ServerTCPPort)
	w.WriteUint16(p.ServerUDPPort)
	w.WriteUUID(p.SessionID)
	w.WriteUint16(p.RenderWidth)
	w.WriteUint16(p.RenderHeight)
	key := p.MasterSessionKey
	if len(key) != 32 {
		key = make([]byte, 32)
		copy(key, p.MasterSessionKey)
	}
	w.WriteBytes(key)
}

// DecodeFrom implements Payload.
func (p *ActiveSurfaceChange) DecodeFrom(r *Reader) {
	p.SurfaceType = ActiveSurfaceType(r.ReadUint16())
	p.ServerTCPPort = r.ReadUint16()
	p.ServerUDPPort = r.ReadUint16()
	p.SessionID = r.ReadUUID()
	p.RenderWidth = r.ReadUint16()
	p.RenderHeight = r.ReadUint16()
	p.MasterSessionKey = r.ReadBytes(32)
}

// TitleLaunch starts a title by URI.
type TitleLaunch struct {
	Location ActiveTitleLocation
	URI      string
}

// Type implements Payload.
func (p *TitleLaunch) Type() MessageType { return MessageTypeTitleLaunch }

// EncodeTo implements Payload.
func (p *TitleLaunch) EncodeTo(w *Writer) {
	w.WriteUint16(uint16(p.Location))
	w.WriteSGString(p.URI)
}

// DecodeFrom implements Payload.
func (p *TitleLaunch) DecodeFrom(r *Reader) {
	p.Location = ActiveTitleLocation(r.ReadUint16())
	p.URI = r.ReadSGString()
}

// PowerOff shuts the console down. The Live ID must match the console's.
type PowerOff struct {
	LiveID string
}

// Type implements Payload.
func (p *PowerOff) Type() MessageType { return MessageTypePowerOff }

// EncodeTo implements Payload.
func (p *PowerOff) EncodeTo(w *Writer) { w.WriteSGString(p.LiveID) }

// DecodeFrom implements Payload.
func (p *PowerOff) DecodeFrom(r *Reader) { p.LiveID = r.ReadSGString() }

// GameDVRRecord captures the last seconds of gameplay.
type GameDVRRecord struct {
	StartTimeDelta int32
	EndTimeDelta   int32
}

// Type implements Payload.
func (p *GameDVRRecord) Type() MessageType { return MessageTypeGameDVRRecord }

// EncodeTo implements Payload.
func (p *GameDVRRecord) EncodeTo(w *Writer) {
	w.WriteInt32(p.StartTimeDelta)
	w.WriteInt32(p.EndTimeDelta)
}

// DecodeFrom implements Payload.
func (p *GameDVRRecord) DecodeFrom(r *Reader) {
	p.StartTimeDelta = r.ReadInt32()
	p.EndTimeDelta = r.ReadInt32()
}

// Unsnap dismisses a snapped app.
type Unsnap struct {
	Unknown uint8
}

// Type implements Payload.
func (p *Unsnap) Type() MessageType { return MessageTypeUnsnap }

// EncodeTo implements Payload.
func (p *Unsnap) EncodeTo(w *Writer) { w.WriteUint8(p.Unknown) }

// DecodeFrom implements Payload.
func (p *Unsnap) DecodeFrom(r *Reader) { p.Unknown = r.ReadUint8() }

// AuxiliaryStreamEndpoint is one console-side TCP endpoint of an
// auxiliary stream. Both fields are carried as strings on the wire.
type AuxiliaryStreamEndpoint struct {
	IP   string
	Port string
}

// AuxiliaryStreamConnectionInfo carries the keys and endpoints needed to
// attach to a title's auxiliary stream.
type AuxiliaryStreamConnectionInfo struct {
	CryptoKey []byte
	ServerIV  []byte
	ClientIV  []byte
	SignHash  []byte
	Endpoints []AuxiliaryStreamEndpoint
}

// AuxiliaryStream either requests a stream (flag 0) or announces its
// connection info (flag 1).
type AuxiliaryStream struct {
	ConnectionInfoFlag uint8
	ConnectionInfo     *AuxiliaryStreamConnectionInfo
}

// Type implements Payload.
func (p *AuxiliaryStream) Type() MessageType { return MessageTypeAuxiliaryStream }

// EncodeTo implements Payload.
func (p *AuxiliaryStream) EncodeTo(w *Writer) {
	w.WriteUint8(p.ConnectionInfoFlag)
	if p.ConnectionInfoFlag != 1 || p.ConnectionInfo == nil {
		return
	}
	info := p.ConnectionInfo
	w.WritePrefixedBytes(info.CryptoKey)
	w.WritePrefixedBytes(info.ServerIV)
	w.WritePrefixedBytes(info.ClientIV)
	w.WritePrefixedBytes(info.SignHash)
	w.WriteUint16(uint16(len(info.Endpoints)))
	for _, ep := range info.Endpoints {
		w.WriteSGString(ep.IP)
		w.WriteSGString(ep.Port)
	}
}

// DecodeFrom implements Payload.
func (p *AuxiliaryStream) DecodeFrom(r *Reader) {
	p.ConnectionInfoFlag = r.ReadUint8()
	if p.ConnectionInfoFlag != 1 {
		return
	}
	info := &AuxiliaryStreamConnectionInfo{}
	info.CryptoKey = r.ReadPrefixedBytes()
	info.ServerIV = r.ReadPrefixedBytes()
	info.ClientIV = r.ReadPrefixedBytes()
	info.SignHash = r.ReadPrefixedBytes()
	count := int(r.ReadUint16())
	for i := 0; i < count && r.Err() == nil; i++ {
		info.Endpoints = append(info.Endpoints, AuxiliaryStreamEndpoint{
			IP:   r.ReadSGString(),
			Port: r.ReadSGString(),
		})
	}
	p.ConnectionInfo = info
}
