package crypto

import "errors"

var (
	// ErrInvalidPublicKeyLength indicates a foreign public key whose length
	// matches none of the supported curves.
	ErrInvalidPublicKeyLength = errors.New("crypto: invalid public key length")

	// ErrInvalidSharedSecret indicates a shared secret that is not 64 bytes.
	ErrInvalidSharedSecret = errors.New("crypto: shared secret must be 64 bytes")

	// ErrUnalignedData indicates data passed to Encrypt/Decrypt that is not
	// aligned to the AES block size.
	ErrUnalignedData = errors.New("crypto: data not aligned to block size")

	// ErrBadPadding indicates padding bytes that cannot be removed.
	ErrBadPadding = errors.New("crypto: bad padding")

	// ErrInvalidCertificate indicates console certificate data that could
	// not be parsed.
	ErrInvalidCertificate = errors.New("crypto: invalid console certificate")
)
