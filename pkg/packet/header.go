package packet

import "encoding/binary"

// MessageHeaderSize is the fixed size of a Message packet header. The
// first 16 bytes double as the IV seed for the protected payload.
const MessageHeaderSize = 26

// Header flag bit layout (16 bits):
// version:2 | need-ack:1 | is-fragment:1 | msg-type:12
const (
	flagVersionShift   = 14
	flagVersionMask    = 0x3
	flagNeedAck        = 1 << 13
	flagIsFragment     = 1 << 12
	flagMsgTypeMask    = 0x0FFF
	headerVersionValue = 2
)

// Header is the plaintext header of a Message packet.
type Header struct {
	// ProtectedPayloadLength is the unpadded plaintext length of the
	// protected payload. Filled in by the codec on pack.
	ProtectedPayloadLength uint16

	// SequenceNumber is the monotonic per-session sequence number.
	SequenceNumber uint32

	// TargetParticipantID and SourceParticipantID are the endpoint ids
	// assigned by the console on connect.
	TargetParticipantID uint32
	SourceParticipantID uint32

	// Version is the 2-bit protocol version carried in the flags.
	Version uint8

	// NeedAck requests the peer acknowledge this sequence number.
	NeedAck bool

	// IsFragment marks the protected payload as a binary fragment.
	IsFragment bool

	// Type selects the payload schema.
	Type MessageType

	// ChannelID is the 64-bit channel the message is multiplexed onto.
	ChannelID uint64
}

// Encode serializes the header, including the leading packet magic.
func (h *Header) Encode() []byte {
	buf := make([]byte, MessageHeaderSize)
	binary.BigEndian.PutUint16(buf[0:], uint16(PacketTypeMessage))
	binary.BigEndian.PutUint16(buf[2:], h.ProtectedPayloadLength)
	binary.BigEndian.PutUint32(buf[4:], h.SequenceNumber)
	binary.BigEndian.PutUint32(buf[8:], h.TargetParticipantID)
	binary.BigEndian.PutUint32(buf[12:], h.SourceParticipantID)
	binary.BigEndian.PutUint16(buf[16:], h.flags())
	binary.BigEndian.PutUint64(buf[18:], h.ChannelID)
	return buf
}

func (h *Header) flags() uint16 {
	version := h.Version
	if version == 0 {
		version = headerVersionValue
	}
	flags := uint16(version&flagVersionMask) << flagVersionShift
	if h.NeedAck {
		flags |= flagNeedAck
	}
	if h.IsFragment {
		flags |= flagIsFragment
	}
	flags |= uint16(h.Type) & flagMsgTypeMask
	return flags
}

// Decode deserializes a header from data. The packet magic must already
// have been checked by the caller.
func (h *Header) Decode(data []byte) error {
	if len(data) < MessageHeaderSize {
		return ErrShortPacket
	}
	h.ProtectedPayloadLength = binary.BigEndian.Uint16(data[2:])
	h.SequenceNumber = binary.BigEndian.Uint32(data[4:])
	h.TargetParticipantID = binary.BigEndian.Uint32(data[8:])
	h.SourceParticipantID = binary.BigEndian.Uint32(data[12:])

	flags := binary.BigEndian.Uint16(data[16:])
	h.Version = uint8(flags>>flagVersionShift) & flagVersionMask
	h.NeedAck = flags&flagNeedAck != 0
	h.IsFragment = flags&flagIsFragment != 0
	h.Type = MessageType(flags & flagMsgTypeMask)

	h.ChannelID = binary.BigEndian.Uint64(data[18:])
	return nil
}
