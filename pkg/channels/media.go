package channels

import (
	"context"
	"sync"

	"github.com/pion/logging"

	"github.com/openxbox/smartglass/pkg/events"
	"github.com/openxbox/smartglass/pkg/packet"
	"github.com/openxbox/smartglass/pkg/session"
)

// MediaManager drives the SystemMedia channel: it caches the most recent
// MediaState report and issues transport commands.
type MediaManager struct {
	manager

	mu    sync.Mutex
	state *packet.MediaState

	// OnMediaState fires for every MediaState report.
	OnMediaState events.Event[*packet.MediaState]

	// OnMediaCommandResult fires when the console answers a command.
	OnMediaCommandResult events.Event[*packet.MediaCommandResult]

	// OnMediaControllerRemoved fires when a title stops exposing media
	// control.
	OnMediaControllerRemoved events.Event[*packet.MediaControllerRemoved]
}

// NewMediaManager creates the media dispatcher bound to SystemMedia.
func NewMediaManager(engine *session.Engine, loggerFactory logging.LoggerFactory) *MediaManager {
	m := &MediaManager{}
	m.manager = newManager(engine, session.ServiceChannelSystemMedia,
		loggerFactory, "media", m.onMessage, nil)
	return m
}

func (m *MediaManager) onMessage(msg *packet.Message) {
	switch payload := msg.Payload.(type) {
	case *packet.MediaState:
		m.mu.Lock()
		m.state = payload
		m.mu.Unlock()
		m.OnMediaState.Emit(payload)
	case *packet.MediaCommandResult:
		m.OnMediaCommandResult.Emit(payload)
	case *packet.MediaControllerRemoved:
		m.mu.Lock()
		if m.state != nil && m.state.TitleID == payload.TitleID {
			m.state = nil
		}
		m.mu.Unlock()
		m.OnMediaControllerRemoved.Emit(payload)
	default:
		m.log.Warnf("%v: %v", ErrUnexpectedMessage, msg.Header.Type)
	}
}

// MediaState returns the most recent media state, or nil if no media is
// active.
func (m *MediaManager) MediaState() *packet.MediaState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ActiveMedia reports whether the console currently exposes media.
func (m *MediaManager) ActiveMedia() bool {
	return m.MediaState() != nil
}

// TitleID returns the title id of the active media, or zero.
func (m *MediaManager) TitleID() uint32 {
	if s := m.MediaState(); s != nil {
		return s.TitleID
	}
	return 0
}

// AumID returns the application user model id of the active media.
func (m *MediaManager) AumID() string {
	if s := m.MediaState(); s != nil {
		return s.AumID
	}
	return ""
}

// PlaybackStatus returns the playback status of the active media.
func (m *MediaManager) PlaybackStatus() packet.MediaPlaybackStatus {
	if s := m.MediaState(); s != nil {
		return s.PlaybackStatus
	}
	return packet.MediaPlaybackStatusClosed
}

// Command issues a media transport command against titleID. A seek
// position may only and must accompany the Seek command.
func (m *MediaManager) Command(ctx context.Context, titleID uint32,
	command packet.MediaControlCommand, requestID uint64, seekPosition ...uint64) error {
	cmd := &packet.MediaCommand{
		RequestID: requestID,
		TitleID:   titleID,
		Command:   command,
	}
	if command == packet.MediaControlSeek {
		if len(seekPosition) == 0 {
			return ErrSeekPositionRequired
		}
		cmd.SeekPosition = seekPosition[0]
	}
	_, err := m.engine.SendMessage(ctx, cmd, m.channel,
		session.SendOptions{NeedAck: true})
	return err
}
