package packet

// Payload is the decoded protected payload of a Message packet. Encoding
// goes through a Writer, decoding through a sticky-error Reader; the codec
// checks Reader.Err once per packet.
type Payload interface {
	// Type returns the message type the payload schema belongs to.
	Type() MessageType

	// EncodeTo appends the payload's wire form to w.
	EncodeTo(w *Writer)

	// DecodeFrom reads the payload's wire form from r.
	DecodeFrom(r *Reader)
}

// Message is a decoded 0xD00D packet: plaintext header plus decrypted,
// decoded payload. For fragments the payload is *Fragment regardless of
// the header's message type.
type Message struct {
	Header  Header
	Payload Payload
}

// RawPayload carries message types that have no body or no schema known
// to this codec but must still round-trip byte-exact.
type RawPayload struct {
	MessageType MessageType
	Data        []byte
}

// Type returns the recorded message type.
func (p *RawPayload) Type() MessageType { return p.MessageType }

// EncodeTo writes the raw bytes unchanged.
func (p *RawPayload) EncodeTo(w *Writer) { w.WriteBytes(p.Data) }

// DecodeFrom consumes the remainder of the payload.
func (p *RawPayload) DecodeFrom(r *Reader) {
	p.Data = r.ReadBytes(r.Remaining())
}

// newPayload returns an empty payload value for the message type, or nil
// if the type is unknown to the codec.
func newPayload(t MessageType) Payload {
	switch t {
	case MessageTypeAck:
		return &Ack{}
	case MessageTypeJSON:
		return &JSON{}
	case MessageTypeLocalJoin:
		return &LocalJoin{}
	case MessageTypeAuxiliaryStream:
		return &AuxiliaryStream{}
	case MessageTypeActiveSurfaceChange:
		return &ActiveSurfaceChange{}
	case MessageTypeConsoleStatus:
		return &ConsoleStatus{}
	case MessageTypeTitleTextConfiguration, MessageTypeSystemTextConfiguration:
		return &TextConfiguration{messageType: t}
	case MessageTypeTitleTextInput:
		return &TitleTextInput{}
	case MessageTypeTitleTextSelection:
		return &TitleTextSelection{}
	case MessageTypeTitleLaunch:
		return &TitleLaunch{}
	case MessageTypeStartChannelRequest:
		return &StartChannelRequest{}
	case MessageTypeStartChannelResponse:
		return &StartChannelResponse{}
	case MessageTypeStopChannel:
		return &StopChannel{}
	case MessageTypeDisconnect:
		return &Disconnect{}
	case MessageTypeTitleTouch, MessageTypeSystemTouch:
		return &Touch{messageType: t}
	case MessageTypeAccelerometer:
		return &Accelerometer{}
	case MessageTypeGyrometer:
		return &Gyrometer{}
	case MessageTypeInclinometer:
		return &Inclinometer{}
	case MessageTypeCompass:
		return &Compass{}
	case MessageTypeOrientation:
		return &Orientation{}
	case MessageTypePairedIdentityStateChanged:
		return &PairedIdentityStateChanged{}
	case MessageTypeUnsnap:
		return &Unsnap{}
	case MessageTypeGameDVRRecord:
		return &GameDVRRecord{}
	case MessageTypePowerOff:
		return &PowerOff{}
	case MessageTypeMediaControllerRemoved:
		return &MediaControllerRemoved{}
	case MessageTypeMediaCommand:
		return &MediaCommand{}
	case MessageTypeMediaCommandResult:
		return &MediaCommandResult{}
	case MessageTypeMediaState:
		return &MediaState{}
	case MessageTypeGamepad:
		return &Gamepad{}
	case MessageTypeSystemTextInput:
		return &SystemTextInput{}
	case MessageTypeSystemTextAck:
		return &SystemTextAck{}
	case MessageTypeSystemTextDone:
		return &SystemTextDone{}
	case MessageTypeNull, MessageTypeGroup, MessageTypeStopActivity,
		MessageTypeNavigate, MessageTypeTunnel, MessageTypeSystem,
		MessageTypeMirroringRequest:
		return &RawPayload{MessageType: t}
	default:
		return nil
	}
}

// DecodePayload decodes a reassembled plaintext body as the named message
// type. Used by the fragment assembler once all chunks are present.
func DecodePayload(t MessageType, data []byte) (Payload, error) {
	payload := newPayload(t)
	if payload == nil {
		return nil, codecErr(ErrUnknownMessageType, data, 0)
	}
	r := NewReader(data)
	payload.DecodeFrom(r)
	if err := r.Err(); err != nil {
		return nil, codecErr(err, data, r.Offset())
	}
	return payload, nil
}
