package auxiliary

import "errors"

var (
	// ErrInvalidFrameMagic indicates a frame not starting with 0xDEAD.
	ErrInvalidFrameMagic = errors.New("auxiliary: invalid frame magic")

	// ErrShortFrame indicates a frame truncated below header + hmac size.
	ErrShortFrame = errors.New("auxiliary: short frame")

	// ErrHashMismatch indicates a frame whose HMAC trailer does not
	// verify.
	ErrHashMismatch = errors.New("auxiliary: hash verification failed")

	// ErrInvalidKeyMaterial indicates connection info with key or IV
	// fields of the wrong size.
	ErrInvalidKeyMaterial = errors.New("auxiliary: invalid key material")

	// ErrNoEndpoint indicates connection info without a usable endpoint.
	ErrNoEndpoint = errors.New("auxiliary: connection info advertises no endpoint")

	// ErrUnexpectedMessage indicates a message type that does not belong
	// on the Title channel.
	ErrUnexpectedMessage = errors.New("auxiliary: unexpected message on title channel")
)
