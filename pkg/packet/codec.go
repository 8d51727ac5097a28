// Package packet implements the bit-exact wire codec for every SmartGlass
// packet kind: the unprotected discovery and power-on packets, the
// mixed-protection connect handshake, and the encrypted 0xD00D message
// packets with their typed payload schemas.
//
// Every packet captured from a real console round-trips: unpacking and
// repacking with the session keys reproduces the original bytes.
package packet

import (
	"encoding/binary"

	"github.com/openxbox/smartglass/pkg/crypto"
)

// Pack serializes a packet to its wire form. Protected packet kinds
// (ConnectRequest, ConnectResponse, Message) require a crypto context.
func Pack(p Packet, ctx *crypto.Context) ([]byte, error) {
	switch pkt := p.(type) {
	case *DiscoveryRequest:
		return packSimple(PacketTypeDiscoveryRequest, pkt.encodeTo), nil
	case *DiscoveryResponse:
		return packSimple(PacketTypeDiscoveryResponse, pkt.encodeTo), nil
	case *PowerOnRequest:
		return packSimple(PacketTypePowerOnRequest, pkt.encodeTo), nil
	case *ConnectRequest:
		return packConnect(PacketTypeConnectRequest, ctx, pkt.IV,
			pkt.encodeUnprotected, pkt.encodeProtected)
	case *ConnectResponse:
		return packConnect(PacketTypeConnectResponse, ctx, pkt.IV,
			pkt.encodeUnprotected, pkt.encodeProtected)
	case *Message:
		return packMessage(pkt, ctx)
	default:
		return nil, ErrInvalidMagic
	}
}

// packSimple builds header + unprotected payload for packet kinds that
// carry no protected data.
func packSimple(t PacketType, encode func(*Writer)) []byte {
	var payload Writer
	encode(&payload)

	var w Writer
	w.WriteUint16(uint16(t))
	w.WriteUint16(uint16(payload.Len()))
	w.WriteUint16(simpleHeaderVersion)
	w.WriteBytes(payload.Bytes())
	return w.Bytes()
}

// packConnect builds the mixed unprotected + encrypted layout of the
// connect handshake. The IV travels in the unprotected payload and keys
// the CBC encryption of the protected part; the HMAC trailer covers the
// whole packet.
func packConnect(t PacketType, ctx *crypto.Context, iv []byte,
	encodeUnprotected, encodeProtected func(*Writer)) ([]byte, error) {
	if ctx == nil {
		return nil, ErrNoCrypto
	}

	var unprotected, protected Writer
	encodeUnprotected(&unprotected)
	encodeProtected(&protected)

	plaintext := protected.Bytes()
	ciphertext, err := ctx.Encrypt(iv, crypto.PadANSIX923(plaintext, crypto.BlockSize))
	if err != nil {
		return nil, err
	}

	var w Writer
	w.WriteUint16(uint16(t))
	w.WriteUint16(uint16(unprotected.Len()))
	w.WriteUint16(uint16(len(plaintext)))
	w.WriteUint16(simpleHeaderVersion)
	w.WriteBytes(unprotected.Bytes())
	w.WriteBytes(ciphertext)
	w.WriteBytes(ctx.Hash(w.Bytes()))
	return w.Bytes(), nil
}

// packMessage builds an encrypted 0xD00D packet. The first 16 header
// bytes seed the IV.
func packMessage(msg *Message, ctx *crypto.Context) ([]byte, error) {
	if ctx == nil {
		return nil, ErrNoCrypto
	}

	var payload Writer
	if msg.Payload != nil {
		msg.Payload.EncodeTo(&payload)
	}
	plaintext := payload.Bytes()
	msg.Header.ProtectedPayloadLength = uint16(len(plaintext))

	header := msg.Header.Encode()
	out := make([]byte, 0, len(header)+len(plaintext)+crypto.BlockSize+crypto.HashSize)
	out = append(out, header...)

	if len(plaintext) > 0 {
		iv := ctx.GenerateIV(header[:crypto.BlockSize])
		ciphertext, err := ctx.Encrypt(iv, crypto.PadANSIX923(plaintext, crypto.BlockSize))
		if err != nil {
			return nil, err
		}
		out = append(out, ciphertext...)
	}

	out = append(out, ctx.Hash(out)...)
	return out, nil
}

// Unpack parses a wire datagram into a typed packet. Protected packet
// kinds verify the HMAC trailer before any decryption is attempted and
// are rejected wholesale on mismatch.
func Unpack(data []byte, ctx *crypto.Context) (Packet, error) {
	if len(data) < 2 {
		return nil, codecErr(ErrShortPacket, data, 0)
	}
	magic := PacketType(binary.BigEndian.Uint16(data))
	if !magic.IsValid() {
		return nil, codecErr(ErrInvalidMagic, data, 0)
	}

	switch magic {
	case PacketTypeDiscoveryRequest:
		pkt := &DiscoveryRequest{}
		return pkt, unpackSimple(data, pkt.decodeFrom)
	case PacketTypeDiscoveryResponse:
		pkt := &DiscoveryResponse{}
		return pkt, unpackSimple(data, pkt.decodeFrom)
	case PacketTypePowerOnRequest:
		pkt := &PowerOnRequest{}
		return pkt, unpackSimple(data, pkt.decodeFrom)
	case PacketTypeConnectRequest:
		pkt := &ConnectRequest{}
		return pkt, unpackConnect(data, ctx, pkt.decodeUnprotected, pkt.decodeProtected)
	case PacketTypeConnectResponse:
		pkt := &ConnectResponse{}
		return pkt, unpackConnect(data, ctx, pkt.decodeUnprotected, pkt.decodeProtected)
	default:
		return unpackMessage(data, ctx)
	}
}

func unpackSimple(data []byte, decode func(*Reader)) error {
	if len(data) < 6 {
		return codecErr(ErrShortPacket, data, len(data))
	}
	payloadLen := int(binary.BigEndian.Uint16(data[2:]))
	if 6+payloadLen > len(data) {
		return codecErr(ErrShortPacket, data, 6)
	}
	r := NewReader(data[6 : 6+payloadLen])
	decode(r)
	if err := r.Err(); err != nil {
		return codecErr(err, data, 6+r.Offset())
	}
	return nil
}

func unpackConnect(data []byte, ctx *crypto.Context,
	decodeUnprotected, decodeProtected func(*Reader)) error {
	if ctx == nil {
		return ErrNoCrypto
	}
	const headerLen = 8
	if len(data) < headerLen+crypto.HashSize {
		return codecErr(ErrShortPacket, data, len(data))
	}

	unprotectedLen := int(binary.BigEndian.Uint16(data[2:]))
	protectedLen := int(binary.BigEndian.Uint16(data[4:]))

	body := data[:len(data)-crypto.HashSize]
	mac := data[len(data)-crypto.HashSize:]
	if !ctx.Verify(body, mac) {
		return codecErr(ErrHmacMismatch, data, len(body))
	}

	if headerLen+unprotectedLen > len(body) {
		return codecErr(ErrShortPacket, data, headerLen)
	}
	ru := NewReader(body[headerLen : headerLen+unprotectedLen])
	decodeUnprotected(ru)
	if err := ru.Err(); err != nil {
		if err == ErrShortPacket && ru.Offset() >= 18 {
			// The public key field is the only variable-size field; a
			// short read there means the declared type and key disagree.
			err = ErrPubKeyLengthMismatch
		}
		return codecErr(err, data, headerLen+ru.Offset())
	}

	iv := ivFromUnprotected(body[headerLen : headerLen+unprotectedLen])

	ciphertext := body[headerLen+unprotectedLen:]
	plaintext, err := ctx.Decrypt(iv, ciphertext)
	if err != nil {
		return codecErr(ErrBadPadding, data, headerLen+unprotectedLen)
	}
	if protectedLen > len(plaintext) {
		return codecErr(ErrShortPacket, data, headerLen+unprotectedLen)
	}
	rp := NewReader(plaintext[:protectedLen])
	decodeProtected(rp)
	if err := rp.Err(); err != nil {
		return codecErr(err, data, headerLen+unprotectedLen+rp.Offset())
	}
	return nil
}

// ivFromUnprotected extracts the 16-byte IV field of a connect packet's
// unprotected payload; it is always the trailing 16 bytes.
func ivFromUnprotected(unprotected []byte) []byte {
	if len(unprotected) < 16 {
		return nil
	}
	return unprotected[len(unprotected)-16:]
}

func unpackMessage(data []byte, ctx *crypto.Context) (*Message, error) {
	if ctx == nil {
		return nil, ErrNoCrypto
	}
	if len(data) < MessageHeaderSize+crypto.HashSize {
		return nil, codecErr(ErrShortPacket, data, len(data))
	}

	msg := &Message{}
	if err := msg.Header.Decode(data); err != nil {
		return nil, codecErr(err, data, 0)
	}

	body := data[:len(data)-crypto.HashSize]
	mac := data[len(data)-crypto.HashSize:]
	if !ctx.Verify(body, mac) {
		return nil, codecErr(ErrHmacMismatch, data, len(body))
	}

	protectedLen := int(msg.Header.ProtectedPayloadLength)
	if protectedLen == 0 {
		msg.Payload = payloadForHeader(&msg.Header)
		if msg.Payload == nil {
			return nil, codecErr(ErrUnknownMessageType, data, 16)
		}
		return msg, nil
	}

	iv := ctx.GenerateIV(data[:crypto.BlockSize])
	plaintext, err := ctx.Decrypt(iv, body[MessageHeaderSize:])
	if err != nil {
		return nil, codecErr(ErrBadPadding, data, MessageHeaderSize)
	}
	if protectedLen > len(plaintext) {
		return nil, codecErr(ErrShortPacket, data, MessageHeaderSize)
	}
	plaintext = plaintext[:protectedLen]

	payload := payloadForHeader(&msg.Header)
	if payload == nil {
		return nil, codecErr(ErrUnknownMessageType, data, 16)
	}
	r := NewReader(plaintext)
	payload.DecodeFrom(r)
	if err := r.Err(); err != nil {
		return nil, codecErr(err, data, MessageHeaderSize+r.Offset())
	}
	msg.Payload = payload
	return msg, nil
}

func payloadForHeader(h *Header) Payload {
	if h.IsFragment {
		return &Fragment{}
	}
	return newPayload(h.Type)
}
