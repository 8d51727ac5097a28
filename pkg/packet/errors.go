package packet

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMagic indicates a datagram whose leading 16 bits name no
	// known packet type.
	ErrInvalidMagic = errors.New("packet: invalid magic")

	// ErrShortPacket indicates a datagram truncated below its declared or
	// minimum length.
	ErrShortPacket = errors.New("packet: short packet")

	// ErrHmacMismatch indicates a protected packet whose HMAC trailer does
	// not verify. The packet must be dropped undecrypted.
	ErrHmacMismatch = errors.New("packet: hmac mismatch")

	// ErrBadPadding indicates ciphertext whose padding cannot be removed.
	ErrBadPadding = errors.New("packet: bad padding")

	// ErrUnknownMessageType indicates a Message header naming a payload
	// schema this codec does not know.
	ErrUnknownMessageType = errors.New("packet: unknown message type")

	// ErrPubKeyLengthMismatch indicates a ConnectRequest public key field
	// whose length does not match the declared key type.
	ErrPubKeyLengthMismatch = errors.New("packet: public key length mismatch")

	// ErrNoCrypto indicates an attempt to pack or unpack a protected packet
	// without a crypto context.
	ErrNoCrypto = errors.New("packet: protected packet requires a crypto context")
)

// CodecError wraps a codec failure with the rejected bytes and the offset
// at which decoding gave up.
type CodecError struct {
	Err    error
	Data   []byte
	Offset int
}

// Error implements the error interface.
func (e *CodecError) Error() string {
	return fmt.Sprintf("%v (offset %d of %d bytes)", e.Err, e.Offset, len(e.Data))
}

// Unwrap returns the underlying sentinel error.
func (e *CodecError) Unwrap() error {
	return e.Err
}

func codecErr(err error, data []byte, offset int) error {
	return &CodecError{Err: err, Data: data, Offset: offset}
}
