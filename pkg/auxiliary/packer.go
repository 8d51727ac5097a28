package auxiliary

import (
	"encoding/binary"

	"github.com/openxbox/smartglass/pkg/crypto"
)

// Frame layout: magic (0xDEAD, u16) | payload size (u16, unpadded) |
// ciphertext (PKCS#7-padded to 16) | HMAC-SHA256 (32 B over everything
// before it).
const (
	FrameMagic uint16 = 0xDEAD

	frameHeaderSize = 4
	frameHashSize   = 32

	// segmentSize is the socket-write ceiling; larger frames are split
	// into segments before writing.
	segmentSize = 1448
)

// Pack encrypts one payload into a frame and splits it into socket-write
// segments. serverStream selects the console-to-client cipher direction.
func Pack(data []byte, c *Crypto, serverStream bool) ([][]byte, error) {
	padded := crypto.PadPKCS7(data, crypto.BlockSize)

	var ciphertext []byte
	if serverStream {
		ciphertext = c.EncryptServer(padded)
	} else {
		ciphertext = c.EncryptClient(padded)
	}

	frame := make([]byte, frameHeaderSize, frameHeaderSize+len(ciphertext)+frameHashSize)
	binary.BigEndian.PutUint16(frame[0:], FrameMagic)
	binary.BigEndian.PutUint16(frame[2:], uint16(len(data)))
	frame = append(frame, ciphertext...)
	frame = append(frame, c.Hash(frame)...)

	var segments [][]byte
	for len(frame) > segmentSize {
		segments = append(segments, frame[:segmentSize])
		frame = frame[segmentSize:]
	}
	segments = append(segments, frame)
	return segments, nil
}

// Unpack verifies and decrypts one complete frame. clientStream selects
// the client-to-console cipher direction; the default is the
// console-to-client stream.
func Unpack(frame []byte, c *Crypto, clientStream bool) ([]byte, error) {
	if len(frame) < frameHeaderSize+frameHashSize {
		return nil, ErrShortFrame
	}
	if binary.BigEndian.Uint16(frame) != FrameMagic {
		return nil, ErrInvalidFrameMagic
	}

	body := frame[:len(frame)-frameHashSize]
	mac := frame[len(frame)-frameHashSize:]
	if !c.Verify(body, mac) {
		return nil, ErrHashMismatch
	}

	payloadSize := int(binary.BigEndian.Uint16(frame[2:]))
	ciphertext := body[frameHeaderSize:]

	var plaintext []byte
	if clientStream {
		plaintext = c.DecryptClient(ciphertext)
	} else {
		plaintext = c.DecryptServer(ciphertext)
	}
	if payloadSize > len(plaintext) {
		return nil, ErrShortFrame
	}
	return plaintext[:payloadSize], nil
}

// PaddedPayloadSize returns the on-wire ciphertext size for an unpadded
// payload size. Used when reading frames off a stream.
func PaddedPayloadSize(payloadSize int) int {
	return payloadSize + crypto.PaddingSize(payloadSize, crypto.BlockSize)
}
