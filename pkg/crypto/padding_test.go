package crypto

import (
	"bytes"
	"testing"
)

func TestPadPKCS7(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  []byte
	}{
		{"empty", []byte{}, []byte{}},
		{"aligned unchanged", bytes.Repeat([]byte{0x11}, 16), bytes.Repeat([]byte{0x11}, 16)},
		{"one short", bytes.Repeat([]byte{0x22}, 15), append(bytes.Repeat([]byte{0x22}, 15), 0x01)},
		{"half block", []byte{0xAA, 0xBB}, append([]byte{0xAA, 0xBB}, bytes.Repeat([]byte{0x0e}, 14)...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PadPKCS7(tt.input, 16)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("PadPKCS7() = %x, want %x", got, tt.want)
			}
		})
	}
}

func TestPadANSIX923(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  []byte
	}{
		{"aligned unchanged", bytes.Repeat([]byte{0x11}, 32), bytes.Repeat([]byte{0x11}, 32)},
		{"one short", bytes.Repeat([]byte{0x22}, 15), append(bytes.Repeat([]byte{0x22}, 15), 0x01)},
		{"half block", []byte{0xAA, 0xBB},
			append([]byte{0xAA, 0xBB}, append(bytes.Repeat([]byte{0x00}, 13), 0x0e)...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PadANSIX923(tt.input, 16)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("PadANSIX923() = %x, want %x", got, tt.want)
			}
		})
	}
}

func TestRemovePadding(t *testing.T) {
	payload := []byte{0xAA, 0xBB}

	for _, pad := range [][]byte{PadPKCS7(payload, 16), PadANSIX923(payload, 16)} {
		got, err := RemovePadding(pad)
		if err != nil {
			t.Fatalf("RemovePadding() error: %v", err)
		}
		if !bytes.Equal(got, payload) {
			t.Errorf("RemovePadding() = %x, want %x", got, payload)
		}
	}
}

func TestRemovePaddingRejectsBadCount(t *testing.T) {
	if _, err := RemovePadding([]byte{0x00, 0x20}); err == nil {
		t.Error("RemovePadding accepted pad length exceeding payload")
	}
	if _, err := RemovePadding(nil); err == nil {
		t.Error("RemovePadding accepted empty payload")
	}
}
