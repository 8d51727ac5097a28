package auxiliary

import (
	"bytes"
	"testing"
)

func testKeys(t *testing.T) (*Crypto, *Crypto) {
	t.Helper()
	cryptoKey := bytes.Repeat([]byte{0x11}, 16)
	hashKey := bytes.Repeat([]byte{0x22}, 32)
	serverIV := bytes.Repeat([]byte{0x33}, 16)
	clientIV := bytes.Repeat([]byte{0x44}, 16)

	a, err := NewCrypto(cryptoKey, hashKey, serverIV, clientIV)
	if err != nil {
		t.Fatalf("NewCrypto() error: %v", err)
	}
	b, err := NewCrypto(cryptoKey, hashKey, serverIV, clientIV)
	if err != nil {
		t.Fatalf("NewCrypto() error: %v", err)
	}
	return a, b
}

func joinSegments(segments [][]byte) []byte {
	var frame []byte
	for _, s := range segments {
		frame = append(frame, s...)
	}
	return frame
}

func TestFrameRoundTripStream(t *testing.T) {
	sender, receiver := testKeys(t)

	payloads := [][]byte{
		[]byte(`{"lang":"de","version":"1.10.52.0"}` + "\n"),
		[]byte("second frame with different length"),
		bytes.Repeat([]byte{0xAB}, 16), // exactly one block, no padding
	}

	for i, payload := range payloads {
		segments, err := Pack(payload, sender, true)
		if err != nil {
			t.Fatalf("Pack(frame %d) error: %v", i, err)
		}

		got, err := Unpack(joinSegments(segments), receiver, false)
		if err != nil {
			t.Fatalf("Unpack(frame %d) error: %v", i, err)
		}
		if !bytes.Equal(got, payload) {
			t.Errorf("frame %d = %q, want %q", i, got, payload)
		}
	}
}

// CBC state chains across frames: decrypting the second frame requires
// having decrypted the first.
func TestFrameIVChainOrdering(t *testing.T) {
	sender, receiver := testKeys(t)

	first := []byte("first frame on the chain")
	second := []byte(`{"lang":"de","version":"1.10.52.0"}` + "\n")

	frame1 := joinSegments(mustPack(t, first, sender))
	frame2 := joinSegments(mustPack(t, second, sender))

	// Skipping frame 1 leaves the receiver chain at the wrong IV.
	_, freshReceiver := testKeys(t)
	got, err := Unpack(frame2, freshReceiver, false)
	if err == nil && bytes.Equal(got, second) {
		t.Fatal("second frame decrypted correctly without processing the first")
	}

	// In order, both decrypt.
	if got, err := Unpack(frame1, receiver, false); err != nil || !bytes.Equal(got, first) {
		t.Fatalf("frame 1 = (%q, %v)", got, err)
	}
	if got, err := Unpack(frame2, receiver, false); err != nil || !bytes.Equal(got, second) {
		t.Fatalf("frame 2 = (%q, %v)", got, err)
	}
}

func mustPack(t *testing.T, payload []byte, c *Crypto) [][]byte {
	t.Helper()
	segments, err := Pack(payload, c, true)
	if err != nil {
		t.Fatal(err)
	}
	return segments
}

func TestFrameHashMismatch(t *testing.T) {
	sender, receiver := testKeys(t)
	frame := joinSegments(mustPack(t, []byte("payload"), sender))
	frame[len(frame)-1] ^= 0xFF

	if _, err := Unpack(frame, receiver, false); err != ErrHashMismatch {
		t.Errorf("Unpack(tampered) error = %v, want %v", err, ErrHashMismatch)
	}
}

func TestFrameInvalidMagic(t *testing.T) {
	_, receiver := testKeys(t)
	frame := make([]byte, 64)
	if _, err := Unpack(frame, receiver, false); err != ErrInvalidFrameMagic {
		t.Errorf("Unpack(bad magic) error = %v, want %v", err, ErrInvalidFrameMagic)
	}
}

func TestFrameSegmentation(t *testing.T) {
	sender, receiver := testKeys(t)
	payload := bytes.Repeat([]byte{0x5A}, 3000)

	segments, err := Pack(payload, sender, true)
	if err != nil {
		t.Fatalf("Pack() error: %v", err)
	}
	if len(segments) < 2 {
		t.Fatalf("segments = %d, want >= 2 for a 3000-byte payload", len(segments))
	}
	for i, s := range segments[:len(segments)-1] {
		if len(s) != 1448 {
			t.Errorf("segment %d length = %d, want 1448", i, len(s))
		}
	}

	got, err := Unpack(joinSegments(segments), receiver, false)
	if err != nil {
		t.Fatalf("Unpack() error: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("segmented frame did not round trip")
	}
}

func TestPaddedPayloadSize(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 0}, {1, 16}, {15, 16}, {16, 16}, {17, 32}, {36, 48},
	}
	for _, tt := range tests {
		if got := PaddedPayloadSize(tt.in); got != tt.want {
			t.Errorf("PaddedPayloadSize(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
