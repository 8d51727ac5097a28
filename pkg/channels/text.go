package channels

import (
	"context"
	"sync"

	"github.com/pion/logging"

	"github.com/openxbox/smartglass/pkg/events"
	"github.com/openxbox/smartglass/pkg/packet"
	"github.com/openxbox/smartglass/pkg/session"
)

// TextManager drives the SystemText channel. At most one text session is
// active at a time; a new SystemTextConfiguration resets any prior
// session and adopts the new one.
type TextManager struct {
	manager

	mu             sync.Mutex
	config         *packet.TextConfiguration
	currentInput   *packet.SystemTextInput
	currentVersion uint32

	// OnConfiguration fires when the console opens a text session.
	OnConfiguration events.Event[*packet.TextConfiguration]

	// OnInput fires for inbound SystemTextInput reports.
	OnInput events.Event[*packet.SystemTextInput]

	// OnDone fires when a text session closes.
	OnDone events.Event[*packet.SystemTextDone]
}

// NewTextManager creates the text dispatcher bound to SystemText.
func NewTextManager(engine *session.Engine, loggerFactory logging.LoggerFactory) *TextManager {
	m := &TextManager{}
	m.manager = newManager(engine, session.ServiceChannelSystemText,
		loggerFactory, "text", m.onMessage, nil)
	return m
}

func (m *TextManager) onMessage(msg *packet.Message) {
	switch payload := msg.Payload.(type) {
	case *packet.TextConfiguration:
		m.resetSession()
		m.mu.Lock()
		m.config = payload
		m.mu.Unlock()
		m.OnConfiguration.Emit(payload)

	case *packet.SystemTextInput:
		m.mu.Lock()
		m.currentInput = payload
		if payload.SubmittedVersion > m.currentVersion {
			m.currentVersion = payload.SubmittedVersion
		}
		sessionID, version := payload.TextSessionID, m.currentVersion
		m.mu.Unlock()

		// The console expects an immediate version ack.
		if err := m.sendAck(context.Background(), sessionID, version); err != nil {
			m.log.Warnf("acking text input: %v", err)
		}
		m.OnInput.Emit(payload)

	case *packet.SystemTextAck:
		m.mu.Lock()
		if payload.TextVersionAck > m.currentVersion {
			m.currentVersion = payload.TextVersionAck
		}
		m.mu.Unlock()

	case *packet.SystemTextDone:
		m.mu.Lock()
		active := m.config != nil && uint32(m.config.TextSessionID) == payload.TextSessionID
		m.mu.Unlock()
		if active {
			m.resetSession()
		}
		// Session id 0 is chatter the console emits outside any session.
		m.OnDone.Emit(payload)

	default:
		m.log.Warnf("%v: %v", ErrUnexpectedMessage, msg.Header.Type)
	}
}

// HasSession reports whether a text session is active.
func (m *TextManager) HasSession() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config != nil
}

// SessionID returns the active session id.
func (m *TextManager) SessionID() (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.config == nil {
		return 0, ErrNoActiveTextSession
	}
	return uint32(m.config.TextSessionID), nil
}

// CurrentVersion returns the monotonically increasing text version.
func (m *TextManager) CurrentVersion() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentVersion
}

// SendInput submits the full text string against the active session. The
// message must be acknowledged by the peer.
func (m *TextManager) SendInput(ctx context.Context, text string) error {
	m.mu.Lock()
	if m.config == nil {
		m.mu.Unlock()
		return ErrNoActiveTextSession
	}
	sessionID := uint32(m.config.TextSessionID)
	base := m.currentVersion
	m.mu.Unlock()

	input := &packet.SystemTextInput{
		TextSessionID:    sessionID,
		BaseVersion:      base,
		SubmittedVersion: base + 1,
		TotalTextByteLen: uint32(len(text)),
		SelectionStart:   -1,
		SelectionLength:  -1,
		TextChunk:        text,
	}
	status, err := m.engine.SendMessage(ctx, input, m.channel,
		session.SendOptions{NeedAck: true, Blocking: true})
	if err != nil {
		return err
	}
	if status != session.AckStatusProcessed {
		return ErrNotAcknowledged
	}

	m.mu.Lock()
	m.currentInput = input
	m.mu.Unlock()
	return nil
}

// FinishInput closes the active session, accepting the entered text. The
// message must be acknowledged by the peer.
func (m *TextManager) FinishInput(ctx context.Context) error {
	m.mu.Lock()
	if m.config == nil {
		m.mu.Unlock()
		return ErrNoActiveTextSession
	}
	sessionID := uint32(m.config.TextSessionID)
	version := m.currentVersion
	if m.currentInput != nil {
		version = m.currentInput.SubmittedVersion
	}
	m.mu.Unlock()

	done := &packet.SystemTextDone{
		TextSessionID: sessionID,
		TextVersion:   version,
		Flags:         0,
		Result:        packet.TextResultAccept,
	}
	status, err := m.engine.SendMessage(ctx, done, m.channel,
		session.SendOptions{NeedAck: true, Blocking: true})
	if err != nil {
		return err
	}
	if status != session.AckStatusProcessed {
		return ErrNotAcknowledged
	}
	return nil
}

func (m *TextManager) sendAck(ctx context.Context, sessionID, version uint32) error {
	ack := &packet.SystemTextAck{TextSessionID: sessionID, TextVersionAck: version}
	_, err := m.engine.SendMessage(ctx, ack, m.channel, session.SendOptions{})
	return err
}

func (m *TextManager) resetSession() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = nil
	m.currentInput = nil
	m.currentVersion = 0
}
