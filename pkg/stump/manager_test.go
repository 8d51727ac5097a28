package stump

import (
	"context"
	"encoding/hex"
	"net"
	"regexp"
	"testing"
	"time"

	"github.com/openxbox/smartglass/pkg/crypto"
	"github.com/openxbox/smartglass/pkg/session"
	"github.com/openxbox/smartglass/pkg/transport"
)

func newTestEngine(t *testing.T) *session.Engine {
	t.Helper()
	secret, err := hex.DecodeString(
		"82bba514e6d19521114940bd65121af234c53654a8e67add7710b3725db44f77" +
			"30ed8e3da7015a09fe0f08e9bef3853c0506327eb77c9951769d923d863a2f5e")
	if err != nil {
		t.Fatal(err)
	}
	ctx, err := crypto.FromSharedSecret(secret)
	if err != nil {
		t.Fatal(err)
	}
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	tr, err := transport.New(transport.Config{Conn: conn, Handler: func([]byte, net.Addr) {}})
	if err != nil {
		t.Fatal(err)
	}
	e, err := session.New(session.Config{Address: conn.LocalAddr(), Crypto: ctx, Transport: tr})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestMsgIDFormat(t *testing.T) {
	m := NewManager(newTestEngine(t), nil)

	pattern := regexp.MustCompile(`^[0-9a-f]{8}\.\d+$`)
	first := m.nextMsgID()
	second := m.nextMsgID()
	if !pattern.MatchString(first) {
		t.Errorf("msgid %q does not match <hex32>.<counter>", first)
	}
	if first == second {
		t.Error("msgids do not increment")
	}
	if first[:8] != second[:8] {
		t.Error("msgid prefix changed between calls")
	}
}

func TestOnJSONDispatchesNotification(t *testing.T) {
	e := newTestEngine(t)
	m := NewManager(e, nil)

	var note *Message
	m.OnNotification.Subscribe(func(msg *Message) { note = msg })

	e.OnJSON.Emit(session.InboundJSON{
		Text:    `{"notification":"TunerStateChanged","params":{"state":"idle"}}`,
		Channel: session.ServiceChannelSystemInputTVRemote,
	})

	if note == nil {
		t.Fatal("OnNotification did not fire")
	}
	if Notification(note.Notification) != NotificationTunerStateChanged {
		t.Errorf("notification = %q", note.Notification)
	}
}

func TestOnJSONIgnoresOtherChannels(t *testing.T) {
	e := newTestEngine(t)
	m := NewManager(e, nil)

	fired := false
	m.OnNotification.Subscribe(func(*Message) { fired = true })

	e.OnJSON.Emit(session.InboundJSON{
		Text:    `{"notification":"ChannelChanged"}`,
		Channel: session.ServiceChannelSystemText,
	})
	if fired {
		t.Error("manager processed JSON from another channel")
	}
}

func TestResponseCachedAndCorrelated(t *testing.T) {
	e := newTestEngine(t)
	m := NewManager(e, nil)

	// A caller is waiting on this msgid.
	e.Waiter().Register("00c0ffee.7")

	done := make(chan session.WaitResult, 1)
	go func() {
		result, err := e.Waiter().Await(context.Background(), "00c0ffee.7", time.Second)
		if err != nil {
			t.Errorf("Await() error: %v", err)
		}
		done <- result
	}()

	e.OnJSON.Emit(session.InboundJSON{
		Text:    `{"msgid":"00c0ffee.7","response":"GetConfiguration","params":[{"device_id":"0"}]}`,
		Channel: session.ServiceChannelSystemInputTVRemote,
	})

	select {
	case result := <-done:
		msg := result.Value.(*Message)
		if msg.Response != string(RequestGetConfiguration) {
			t.Errorf("response = %q", msg.Response)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("correlated response never resolved the waiter")
	}

	if _, ok := m.CachedParams(RequestGetConfiguration); !ok {
		t.Error("response params not cached")
	}
}

func TestErrorDispatch(t *testing.T) {
	e := newTestEngine(t)
	m := NewManager(e, nil)

	var gotErr *Message
	m.OnError.Subscribe(func(msg *Message) { gotErr = msg })

	e.OnJSON.Emit(session.InboundJSON{
		Text:    `{"msgid":"00c0ffee.9","error":"Error","params":null}`,
		Channel: session.ServiceChannelSystemInputTVRemote,
	})

	if gotErr == nil || gotErr.Error != "Error" {
		t.Errorf("OnError payload = %+v", gotErr)
	}
}
