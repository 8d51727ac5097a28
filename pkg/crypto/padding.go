package crypto

// PaddingSize returns the number of bytes needed to align length to the
// given block size. Already-aligned lengths need no padding.
func PaddingSize(length, alignment int) int {
	overlap := length % alignment
	if overlap == 0 {
		return 0
	}
	return alignment - overlap
}

// PadPKCS7 appends PKCS#7 padding to payload. Input that is already
// aligned is returned unchanged; the wire format depends on this.
func PadPKCS7(payload []byte, alignment int) []byte {
	size := PaddingSize(len(payload), alignment)
	if size == 0 {
		return payload
	}
	padded := make([]byte, len(payload)+size)
	copy(padded, payload)
	for i := len(payload); i < len(padded); i++ {
		padded[i] = byte(size)
	}
	return padded
}

// PadANSIX923 appends ANSI X.923 padding to payload: zero bytes followed
// by a final byte holding the pad length. Aligned input is returned
// unchanged.
func PadANSIX923(payload []byte, alignment int) []byte {
	size := PaddingSize(len(payload), alignment)
	if size == 0 {
		return payload
	}
	padded := make([]byte, len(payload)+size)
	copy(padded, payload)
	padded[len(padded)-1] = byte(size)
	return padded
}

// RemovePadding strips trailing padding by reading the final byte as the
// pad length. Works for both PKCS#7 and ANSI X.923 blobs.
func RemovePadding(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, ErrBadPadding
	}
	count := int(payload[len(payload)-1])
	if count == 0 || count > len(payload) {
		return nil, ErrBadPadding
	}
	return payload[:len(payload)-count], nil
}
