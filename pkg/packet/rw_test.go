package packet

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
)

func TestSGStringRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
		wire []byte
	}{
		{"empty", "", []byte{0x00, 0x01, 0x00}},
		{"ascii", "XboxOne", []byte{0x00, 0x08, 'X', 'b', 'o', 'x', 'O', 'n', 'e', 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var w Writer
			w.WriteSGString(tt.in)
			if !bytes.Equal(w.Bytes(), tt.wire) {
				t.Errorf("WriteSGString(%q) = %x, want %x", tt.in, w.Bytes(), tt.wire)
			}

			r := NewReader(tt.wire)
			got := r.ReadSGString()
			if err := r.Err(); err != nil {
				t.Fatalf("ReadSGString() error: %v", err)
			}
			if got != tt.in {
				t.Errorf("ReadSGString() = %q, want %q", got, tt.in)
			}
		})
	}
}

func TestSGStringMissingTerminator(t *testing.T) {
	r := NewReader([]byte{0x00, 0x02, 'A', 'B'})
	r.ReadSGString()
	if r.Err() == nil {
		t.Error("ReadSGString accepted a string without NUL terminator")
	}
}

func TestReaderSticksOnError(t *testing.T) {
	r := NewReader([]byte{0x01})
	r.ReadUint32()
	if r.Err() != ErrShortPacket {
		t.Fatalf("Err() = %v, want %v", r.Err(), ErrShortPacket)
	}
	// Subsequent reads must not panic or reset the error.
	r.ReadUint64()
	r.ReadSGString()
	if r.Err() != ErrShortPacket {
		t.Errorf("Err() after further reads = %v, want %v", r.Err(), ErrShortPacket)
	}
}

func TestUUIDBinaryRoundTrip(t *testing.T) {
	u := uuid.MustParse("de305d54-75b4-431b-adb2-eb6b9e546014")

	var w Writer
	w.WriteUUID(u)
	if w.Len() != 16 {
		t.Fatalf("binary UUID length = %d, want 16", w.Len())
	}

	r := NewReader(w.Bytes())
	if got := r.ReadUUID(); got != u {
		t.Errorf("ReadUUID() = %v, want %v", got, u)
	}
}

func TestUUIDTextUppercase(t *testing.T) {
	u := uuid.MustParse("de305d54-75b4-431b-adb2-eb6b9e546014")

	var w Writer
	w.WriteUUIDString(u)

	r := NewReader(w.Bytes())
	s := r.ReadSGString()
	if s != "DE305D54-75B4-431B-ADB2-EB6B9E546014" {
		t.Errorf("textual UUID = %q, want upper-case canonical form", s)
	}

	r = NewReader(w.Bytes())
	if got := r.ReadUUIDString(); got != u {
		t.Errorf("ReadUUIDString() = %v, want %v", got, u)
	}
}

func TestFloat32RoundTrip(t *testing.T) {
	var w Writer
	w.WriteFloat32(1.0)
	if !bytes.Equal(w.Bytes(), []byte{0x3f, 0x80, 0x00, 0x00}) {
		t.Errorf("WriteFloat32(1.0) = %x, want 3f800000", w.Bytes())
	}
	r := NewReader(w.Bytes())
	if got := r.ReadFloat32(); got != 1.0 {
		t.Errorf("ReadFloat32() = %v, want 1.0", got)
	}
}
