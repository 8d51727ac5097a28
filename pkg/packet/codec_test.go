package packet

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/openxbox/smartglass/pkg/crypto"
)

func testCrypto(t *testing.T) *crypto.Context {
	t.Helper()
	secret, err := hex.DecodeString(
		"82bba514e6d19521114940bd65121af234c53654a8e67add7710b3725db44f77" +
			"30ed8e3da7015a09fe0f08e9bef3853c0506327eb77c9951769d923d863a2f5e")
	if err != nil {
		t.Fatalf("bad secret fixture: %v", err)
	}
	ctx, err := crypto.FromSharedSecret(secret)
	if err != nil {
		t.Fatalf("FromSharedSecret() error: %v", err)
	}
	return ctx
}

func TestDiscoveryRequestRoundTrip(t *testing.T) {
	req := &DiscoveryRequest{
		Flags:          0,
		ClientType:     ClientTypeAndroid,
		MinimumVersion: 0,
		MaximumVersion: 2,
	}

	data, err := Pack(req, nil)
	if err != nil {
		t.Fatalf("Pack() error: %v", err)
	}
	// magic + payload len + version + 10-byte payload
	want := []byte{
		0xdd, 0x00, 0x00, 0x0a, 0x00, 0x02,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x08, 0x00, 0x00, 0x00, 0x02,
	}
	if !bytes.Equal(data, want) {
		t.Fatalf("Pack() = %x, want %x", data, want)
	}

	unpacked, err := Unpack(data, nil)
	if err != nil {
		t.Fatalf("Unpack() error: %v", err)
	}
	got, ok := unpacked.(*DiscoveryRequest)
	if !ok {
		t.Fatalf("Unpack() returned %T, want *DiscoveryRequest", unpacked)
	}
	if *got != *req {
		t.Errorf("round trip = %+v, want %+v", got, req)
	}
}

func TestPowerOnRequestRoundTrip(t *testing.T) {
	req := &PowerOnRequest{LiveID: "FD0000123456789"}
	data, err := Pack(req, nil)
	if err != nil {
		t.Fatalf("Pack() error: %v", err)
	}
	unpacked, err := Unpack(data, nil)
	if err != nil {
		t.Fatalf("Unpack() error: %v", err)
	}
	got := unpacked.(*PowerOnRequest)
	if got.LiveID != req.LiveID {
		t.Errorf("LiveID = %q, want %q", got.LiveID, req.LiveID)
	}
}

func TestUnpackRejectsInvalidMagic(t *testing.T) {
	_, err := Unpack([]byte{0xAB, 0xCD, 0x00, 0x00}, nil)
	if !errors.Is(err, ErrInvalidMagic) {
		t.Errorf("Unpack() error = %v, want %v", err, ErrInvalidMagic)
	}
	var codecErr *CodecError
	if !errors.As(err, &codecErr) {
		t.Fatalf("error is %T, want *CodecError", err)
	}
	if codecErr.Offset != 0 {
		t.Errorf("CodecError offset = %d, want 0", codecErr.Offset)
	}
}

func TestConnectRequestPayloadLength(t *testing.T) {
	req := &ConnectRequest{
		SGUUID:        uuid.MustParse("de305d54-75b4-431b-adb2-eb6b9e546014"),
		PublicKeyType: crypto.PublicKeyTypeP256,
		PublicKey:     bytes.Repeat([]byte{0xFF}, 64),
		IV:            make([]byte, 16),
		Userhash:      "deadbeefdeadbeefde",
		Token:         "dummy_token",
		RequestNum:    0,
		GroupStart:    0,
		GroupEnd:      2,
	}
	if got := req.PayloadLength(); got != 145 {
		t.Errorf("PayloadLength() = %d, want 145", got)
	}
}

func TestConnectRequestRoundTrip(t *testing.T) {
	ctx := testCrypto(t)
	iv, err := hex.DecodeString("2979d25ea03d97f58f46930a288bf5d2")
	if err != nil {
		t.Fatal(err)
	}

	req := &ConnectRequest{
		SGUUID:        uuid.MustParse("de305d54-75b4-431b-adb2-eb6b9e546014"),
		PublicKeyType: crypto.PublicKeyTypeP256,
		PublicKey:     bytes.Repeat([]byte{0xFF}, 64),
		IV:            iv,
		Userhash:      "deadbeefdeadbeefde",
		Token:         "dummy_token",
		RequestNum:    0,
		GroupStart:    0,
		GroupEnd:      2,
	}

	data, err := Pack(req, ctx)
	if err != nil {
		t.Fatalf("Pack() error: %v", err)
	}
	// header 8 + unprotected 98 + padded protected 48 + hmac 32
	if len(data) != 186 {
		t.Fatalf("packed length = %d, want 186", len(data))
	}

	unpacked, err := Unpack(data, ctx)
	if err != nil {
		t.Fatalf("Unpack() error: %v", err)
	}
	got := unpacked.(*ConnectRequest)
	if got.SGUUID != req.SGUUID {
		t.Errorf("SGUUID = %v, want %v", got.SGUUID, req.SGUUID)
	}
	if !bytes.Equal(got.PublicKey, req.PublicKey) {
		t.Errorf("PublicKey mismatch")
	}
	if !bytes.Equal(got.IV, iv) {
		t.Errorf("IV = %x, want %x", got.IV, iv)
	}
	if got.Userhash != req.Userhash || got.Token != req.Token {
		t.Errorf("auth = (%q, %q), want (%q, %q)",
			got.Userhash, got.Token, req.Userhash, req.Token)
	}
	if got.RequestNum != 0 || got.GroupStart != 0 || got.GroupEnd != 2 {
		t.Errorf("request group = (%d, %d, %d), want (0, 0, 2)",
			got.RequestNum, got.GroupStart, got.GroupEnd)
	}

	// Byte-exact repack.
	repacked, err := Pack(got, ctx)
	if err != nil {
		t.Fatalf("repack error: %v", err)
	}
	if !bytes.Equal(repacked, data) {
		t.Error("repacked ConnectRequest differs from original bytes")
	}
}

func TestConnectResponseRoundTrip(t *testing.T) {
	ctx := testCrypto(t)
	resp := &ConnectResponse{
		IV:            ctx.GenerateIV(nil),
		Result:        ConnectionResultSuccess,
		PairingState:  PairedIdentityStatePaired,
		ParticipantID: 0x9876,
	}

	data, err := Pack(resp, ctx)
	if err != nil {
		t.Fatalf("Pack() error: %v", err)
	}
	unpacked, err := Unpack(data, ctx)
	if err != nil {
		t.Fatalf("Unpack() error: %v", err)
	}
	got := unpacked.(*ConnectResponse)
	if got.Result != ConnectionResultSuccess {
		t.Errorf("Result = %v, want Success", got.Result)
	}
	if got.PairingState != PairedIdentityStatePaired {
		t.Errorf("PairingState = %v, want Paired", got.PairingState)
	}
	if got.ParticipantID != 0x9876 {
		t.Errorf("ParticipantID = %d, want 0x9876", got.ParticipantID)
	}
}

func TestMessageRoundTrip(t *testing.T) {
	ctx := testCrypto(t)

	tests := []struct {
		name    string
		payload Payload
	}{
		{"ack", &Ack{LowWatermark: 22, ProcessedList: []uint32{23}, RejectedList: []uint32{}}},
		{"gamepad", &Gamepad{
			Timestamp: 123456789, Buttons: GamepadButtonPadA | GamepadButtonMenu,
			LeftTrigger: 0.5, RightTrigger: 1.0,
			LeftThumbstickX: -0.25, RightThumbstickY: 0.75,
		}},
		{"start channel request", &StartChannelRequest{
			ChannelRequestID: 1,
			Service:          uuid.MustParse("d451e3b3-60bb-4c71-b3db-f994b1aca3a7"),
		}},
		{"start channel response", &StartChannelResponse{
			ChannelRequestID: 1, TargetChannelID: 148, Result: SGResultSuccess,
		}},
		{"json", &JSON{Text: `{"request":"GetConfiguration","msgid":"deadbeef.1"}`}},
		{"disconnect", &Disconnect{Reason: DisconnectReasonUnspecified, ErrorCode: 0}},
		{"media command seek", &MediaCommand{
			RequestID: 7, TitleID: 0x1234, Command: MediaControlSeek, SeekPosition: 99,
		}},
		{"media state", &MediaState{
			TitleID: 274278798, AumID: "AIVDE_s9eep9cpjhg6g!App",
			MediaType: MediaTypeVideo, SoundLevel: SoundLevelFull,
			EnabledCommands: MediaControlPlay | MediaControlPause,
			PlaybackStatus:  MediaPlaybackStatusPlaying, Rate: 1.0,
			Metadata: []MediaMetadata{{Name: "title", Value: "Some Movietitle"}, {Name: "subtitle"}},
		}},
		{"console status", &ConsoleStatus{
			MajorVersion: 10, BuildNumber: 14393, Locale: "en-US",
			ActiveTitles: []ActiveTitle{{
				TitleID: 714681658, HasFocus: true,
				TitleLocation: ActiveTitleLocationStartView,
				AUM:           "Xbox.Home_8wekyb3d8bbwe!Xbox.Home.Application",
			}},
		}},
		{"system text input", &SystemTextInput{
			TextSessionID: 5, BaseVersion: 1, SubmittedVersion: 2,
			TotalTextByteLen: 4, SelectionStart: -1, SelectionLength: -1,
			TextChunk: "test",
		}},
		{"aux stream connection info", &AuxiliaryStream{
			ConnectionInfoFlag: 1,
			ConnectionInfo: &AuxiliaryStreamConnectionInfo{
				CryptoKey: bytes.Repeat([]byte{0x11}, 16),
				ServerIV:  bytes.Repeat([]byte{0x22}, 16),
				ClientIV:  bytes.Repeat([]byte{0x33}, 16),
				SignHash:  bytes.Repeat([]byte{0x44}, 32),
				Endpoints: []AuxiliaryStreamEndpoint{{IP: "192.168.8.104", Port: "57344"}},
			},
		}},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &Message{
				Header: Header{
					SequenceNumber:      uint32(i + 1),
					SourceParticipantID: 0x20,
					NeedAck:             true,
					Type:                tt.payload.Type(),
					ChannelID:           0x99,
				},
				Payload: tt.payload,
			}

			data, err := Pack(msg, ctx)
			if err != nil {
				t.Fatalf("Pack() error: %v", err)
			}

			unpacked, err := Unpack(data, ctx)
			if err != nil {
				t.Fatalf("Unpack() error: %v", err)
			}
			got := unpacked.(*Message)
			if got.Header.Type != tt.payload.Type() {
				t.Errorf("Type = %v, want %v", got.Header.Type, tt.payload.Type())
			}
			if got.Header.SequenceNumber != uint32(i+1) {
				t.Errorf("SequenceNumber = %d, want %d", got.Header.SequenceNumber, i+1)
			}
			if !got.Header.NeedAck {
				t.Error("NeedAck flag lost")
			}

			// pack(unpack(P)) == P.
			repacked, err := Pack(got, ctx)
			if err != nil {
				t.Fatalf("repack error: %v", err)
			}
			if !bytes.Equal(repacked, data) {
				t.Errorf("repacked bytes differ:\n  got  %x\n  want %x", repacked, data)
			}
		})
	}
}

func TestMessageHmacMismatch(t *testing.T) {
	ctx := testCrypto(t)
	msg := &Message{
		Header:  Header{SequenceNumber: 1, Type: MessageTypeAck},
		Payload: &Ack{},
	}
	data, err := Pack(msg, ctx)
	if err != nil {
		t.Fatalf("Pack() error: %v", err)
	}

	data[len(data)-1] ^= 0xFF
	if _, err := Unpack(data, ctx); !errors.Is(err, ErrHmacMismatch) {
		t.Errorf("Unpack(tampered) error = %v, want %v", err, ErrHmacMismatch)
	}

	// Corrupting the ciphertext must also fail hmac verification, never
	// reach decryption.
	data[len(data)-1] ^= 0xFF
	data[MessageHeaderSize] ^= 0xFF
	if _, err := Unpack(data, ctx); !errors.Is(err, ErrHmacMismatch) {
		t.Errorf("Unpack(corrupt ciphertext) error = %v, want %v", err, ErrHmacMismatch)
	}
}

func TestMessageWithoutCrypto(t *testing.T) {
	msg := &Message{Header: Header{Type: MessageTypeAck}, Payload: &Ack{}}
	if _, err := Pack(msg, nil); !errors.Is(err, ErrNoCrypto) {
		t.Errorf("Pack() error = %v, want %v", err, ErrNoCrypto)
	}
}

func TestFragmentMessageRoundTrip(t *testing.T) {
	ctx := testCrypto(t)
	msg := &Message{
		Header: Header{
			SequenceNumber: 10,
			IsFragment:     true,
			Type:           MessageTypeJSON,
		},
		Payload: &Fragment{SequenceBegin: 10, SequenceEnd: 12, Data: []byte("chunk-one")},
	}

	data, err := Pack(msg, ctx)
	if err != nil {
		t.Fatalf("Pack() error: %v", err)
	}
	unpacked, err := Unpack(data, ctx)
	if err != nil {
		t.Fatalf("Unpack() error: %v", err)
	}
	got := unpacked.(*Message)
	frag, ok := got.Payload.(*Fragment)
	if !ok {
		t.Fatalf("payload is %T, want *Fragment", got.Payload)
	}
	if frag.SequenceBegin != 10 || frag.SequenceEnd != 12 {
		t.Errorf("fragment range = [%d, %d), want [10, 12)", frag.SequenceBegin, frag.SequenceEnd)
	}
	if string(frag.Data) != "chunk-one" {
		t.Errorf("fragment data = %q, want %q", frag.Data, "chunk-one")
	}
	if got.Header.Type != MessageTypeJSON {
		t.Errorf("header type = %v, want Json", got.Header.Type)
	}
}

func TestHeaderFlagsRoundTrip(t *testing.T) {
	h := Header{
		ProtectedPayloadLength: 100,
		SequenceNumber:         42,
		TargetParticipantID:    0,
		SourceParticipantID:    31,
		NeedAck:                true,
		IsFragment:             false,
		Type:                   MessageTypeSystemTextDone,
		ChannelID:              0x1000000000000000,
	}
	data := h.Encode()
	if len(data) != MessageHeaderSize {
		t.Fatalf("header length = %d, want %d", len(data), MessageHeaderSize)
	}

	var got Header
	if err := got.Decode(data); err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	// Encode defaults Version to 2.
	h.Version = 2
	if got != h {
		t.Errorf("round trip = %+v, want %+v", got, h)
	}
}
