package session

import (
	"errors"
	"testing"

	"github.com/openxbox/smartglass/pkg/packet"
)

func TestChannelRegistryFixedMappings(t *testing.T) {
	r := NewChannelRegistry()

	if id, err := r.ChannelID(ServiceChannelCore); err != nil || id != 0 {
		t.Errorf("ChannelID(Core) = (%d, %v), want (0, nil)", id, err)
	}
	if id, err := r.ChannelID(ServiceChannelAck); err != nil || id != ChannelIDAck {
		t.Errorf("ChannelID(Ack) = (%d, %v), want (0x1000000000000000, nil)", id, err)
	}
	if ch, err := r.Channel(0); err != nil || ch != ServiceChannelCore {
		t.Errorf("Channel(0) = (%v, %v), want (Core, nil)", ch, err)
	}
	if ch, err := r.Channel(ChannelIDAck); err != nil || ch != ServiceChannelAck {
		t.Errorf("Channel(ack id) = (%v, %v), want (Ack, nil)", ch, err)
	}
}

// Mirrors the channel acquisition scenario: request SystemInputTVRemote,
// receive request_id=1 -> channel 148 success, then reset.
func TestChannelRegistryAcquisition(t *testing.T) {
	r := NewChannelRegistry()

	requestID := r.NextRequestID(ServiceChannelSystemInputTVRemote)
	if requestID != 1 {
		t.Fatalf("first request id = %d, want 1", requestID)
	}

	channel, err := r.HandleStartResponse(&packet.StartChannelResponse{
		ChannelRequestID: 1,
		TargetChannelID:  148,
		Result:           packet.SGResultSuccess,
	})
	if err != nil {
		t.Fatalf("HandleStartResponse() error: %v", err)
	}
	if channel != ServiceChannelSystemInputTVRemote {
		t.Errorf("resolved channel = %v, want SystemInputTVRemote", channel)
	}

	id, err := r.ChannelID(ServiceChannelSystemInputTVRemote)
	if err != nil {
		t.Fatalf("ChannelID() error: %v", err)
	}
	if id != 148 {
		t.Errorf("channel id = %d, want 148", id)
	}
	if ch, err := r.Channel(148); err != nil || ch != ServiceChannelSystemInputTVRemote {
		t.Errorf("Channel(148) = (%v, %v)", ch, err)
	}

	r.Reset()

	if _, err := r.ChannelID(ServiceChannelSystemInputTVRemote); err != ErrChannelNotOpen {
		t.Errorf("ChannelID after reset error = %v, want %v", err, ErrChannelNotOpen)
	}
	if _, err := r.Channel(148); err != ErrChannelUnknown {
		t.Errorf("Channel(148) after reset error = %v, want %v", err, ErrChannelUnknown)
	}
	// Core and Ack survive a reset.
	if _, err := r.ChannelID(ServiceChannelCore); err != nil {
		t.Errorf("ChannelID(Core) after reset error: %v", err)
	}
	if _, err := r.ChannelID(ServiceChannelAck); err != nil {
		t.Errorf("ChannelID(Ack) after reset error: %v", err)
	}
}

func TestChannelRegistryUnknownRequest(t *testing.T) {
	r := NewChannelRegistry()
	_, err := r.HandleStartResponse(&packet.StartChannelResponse{
		ChannelRequestID: 42,
		Result:           packet.SGResultSuccess,
	})
	if err != ErrChannelRequestUnknown {
		t.Errorf("error = %v, want %v", err, ErrChannelRequestUnknown)
	}
}

func TestChannelRegistryStartFailure(t *testing.T) {
	r := NewChannelRegistry()
	id := r.NextRequestID(ServiceChannelSystemMedia)

	_, err := r.HandleStartResponse(&packet.StartChannelResponse{
		ChannelRequestID: id,
		Result:           packet.SGResultChannelFailedToStart,
	})
	var startErr *ChannelStartFailedError
	if !errors.As(err, &startErr) {
		t.Fatalf("error = %v, want *ChannelStartFailedError", err)
	}
	if startErr.Channel != ServiceChannelSystemMedia {
		t.Errorf("failed channel = %v, want SystemMedia", startErr.Channel)
	}
	if _, err := r.ChannelID(ServiceChannelSystemMedia); err != ErrChannelNotOpen {
		t.Error("failed start must not install a mapping")
	}
}

func TestChannelRegistryRetryReplacesPending(t *testing.T) {
	r := NewChannelRegistry()

	first := r.NextRequestID(ServiceChannelSystemText)
	second := r.NextRequestID(ServiceChannelSystemText)
	if second == first {
		t.Fatal("retry returned the same request id")
	}

	// The first request id must have been dropped.
	if _, err := r.HandleStartResponse(&packet.StartChannelResponse{
		ChannelRequestID: first,
		Result:           packet.SGResultSuccess,
	}); err != ErrChannelRequestUnknown {
		t.Errorf("stale request error = %v, want %v", err, ErrChannelRequestUnknown)
	}

	if _, err := r.HandleStartResponse(&packet.StartChannelResponse{
		ChannelRequestID: second,
		TargetChannelID:  99,
		Result:           packet.SGResultSuccess,
	}); err != nil {
		t.Errorf("current request error: %v", err)
	}
}
