package auxiliary

import (
	"context"
	"sync"

	"github.com/pion/logging"

	"github.com/openxbox/smartglass/pkg/events"
	"github.com/openxbox/smartglass/pkg/packet"
	"github.com/openxbox/smartglass/pkg/session"
)

// TitleManager drives the Title service channel: it answers auxiliary-
// stream hellos with a connection-info request and stores the advertised
// endpoints and keys so a Relay can start.
type TitleManager struct {
	engine *session.Engine
	log    logging.LeveledLogger

	mu             sync.Mutex
	activeSurface  *packet.ActiveSurfaceChange
	connectionInfo *packet.AuxiliaryStreamConnectionInfo

	// OnSurfaceChange fires on ActiveSurfaceChange messages on the
	// Title channel.
	OnSurfaceChange events.Event[*packet.ActiveSurfaceChange]

	// OnConnectionInfo fires when the console advertises an auxiliary
	// stream endpoint.
	OnConnectionInfo events.Event[*packet.AuxiliaryStreamConnectionInfo]
}

// NewTitleManager creates the title dispatcher.
func NewTitleManager(engine *session.Engine, loggerFactory logging.LoggerFactory) *TitleManager {
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}
	m := &TitleManager{
		engine: engine,
		log:    loggerFactory.NewLogger("title"),
	}
	engine.OnMessage.Subscribe(func(in session.InboundMessage) {
		if in.Channel == session.ServiceChannelTitle {
			m.onMessage(in.Message)
		}
	})
	return m
}

func (m *TitleManager) onMessage(msg *packet.Message) {
	switch payload := msg.Payload.(type) {
	case *packet.AuxiliaryStream:
		if payload.ConnectionInfoFlag == 0 {
			m.log.Debug("received auxiliary stream hello")
			if err := m.RequestConnectionInfo(context.Background()); err != nil {
				m.log.Warnf("requesting connection info: %v", err)
			}
			return
		}
		m.log.Debug("received auxiliary stream connection info")
		m.mu.Lock()
		m.connectionInfo = payload.ConnectionInfo
		m.mu.Unlock()
		m.OnConnectionInfo.Emit(payload.ConnectionInfo)

	case *packet.ActiveSurfaceChange:
		m.mu.Lock()
		m.activeSurface = payload
		m.mu.Unlock()
		m.OnSurfaceChange.Emit(payload)

	default:
		m.log.Warnf("%v: %v", ErrUnexpectedMessage, msg.Header.Type)
	}
}

// StartTitleChannel opens the Title channel for a specific title id.
// Reopening with a new id replaces the binding.
func (m *TitleManager) StartTitleChannel(ctx context.Context, titleID uint32) error {
	return m.engine.StartChannel(ctx, session.ServiceChannelTitle, titleID, 0)
}

// RequestConnectionInfo asks the title to advertise its auxiliary
// endpoint.
func (m *TitleManager) RequestConnectionInfo(ctx context.Context) error {
	_, err := m.engine.SendMessage(ctx,
		&packet.AuxiliaryStream{ConnectionInfoFlag: 0},
		session.ServiceChannelTitle,
		session.SendOptions{NeedAck: true})
	return err
}

// ConnectionInfo returns the stored connection info, or nil.
func (m *TitleManager) ConnectionInfo() *packet.AuxiliaryStreamConnectionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectionInfo
}

// ActiveSurface returns the most recent surface report, or nil.
func (m *TitleManager) ActiveSurface() *packet.ActiveSurfaceChange {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeSurface
}
