package stump

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pion/logging"

	"github.com/openxbox/smartglass/pkg/events"
	"github.com/openxbox/smartglass/pkg/session"
)

// DefaultRequestTimeout bounds one stump request/response exchange.
const DefaultRequestTimeout = 10 * time.Second

// Manager is the stump dispatcher bound to SystemInputTVRemote.
type Manager struct {
	engine *session.Engine
	log    logging.LeveledLogger

	mu          sync.Mutex
	msgIDPrefix uint32
	msgIDIndex  uint64
	cache       map[Request]json.RawMessage

	// OnResponse fires for every response document.
	OnResponse events.Event[*Message]

	// OnNotification fires for every notification document.
	OnNotification events.Event[*Message]

	// OnError fires for every error document.
	OnError events.Event[*Message]
}

// NewManager creates the stump dispatcher.
func NewManager(engine *session.Engine, loggerFactory logging.LoggerFactory) *Manager {
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}
	m := &Manager{
		engine:      engine,
		log:         loggerFactory.NewLogger("stump"),
		msgIDPrefix: randomPrefix(),
		cache:       make(map[Request]json.RawMessage),
	}
	engine.OnJSON.Subscribe(func(in session.InboundJSON) {
		if in.Channel == session.ServiceChannelSystemInputTVRemote {
			m.onJSON(in.Text)
		}
	})
	return m
}

func randomPrefix() uint32 {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 1
	}
	return binary.BigEndian.Uint32(buf[:]) & 0x7FFFFFFF
}

// nextMsgID allocates a correlation id: "<prefix hex>.<counter>".
func (m *Manager) nextMsgID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgIDIndex++
	return fmt.Sprintf("%08x.%d", m.msgIDPrefix, m.msgIDIndex)
}

func (m *Manager) onJSON(text string) {
	var msg Message
	if err := json.Unmarshal([]byte(text), &msg); err != nil {
		m.log.Warnf("undecodable stump document: %v", err)
		return
	}

	if msg.MsgID != "" {
		m.engine.Waiter().Resolve(msg.MsgID, session.WaitResult{
			Status: session.AckStatusProcessed,
			Value:  &msg,
		})
	}

	switch {
	case msg.IsError():
		m.log.Warnf("stump error: %s", msg.Error)
		m.OnError.Emit(&msg)
	case msg.IsResponse():
		m.mu.Lock()
		m.cache[Request(msg.Response)] = msg.Params
		m.mu.Unlock()
		m.OnResponse.Emit(&msg)
	case msg.IsNotification():
		m.OnNotification.Emit(&msg)
	default:
		m.log.Warnf("unknown stump document: %s", text)
	}
}

// SendRequest issues one stump request and waits for the correlated
// reply.
func (m *Manager) SendRequest(ctx context.Context, name Request, params any) (*Message, error) {
	msgID := m.nextMsgID()

	waiter := m.engine.Waiter()
	waiter.Register(msgID)

	doc := request{MsgID: msgID, Request: string(name), Params: params}
	if err := m.engine.SendJSON(ctx, doc, session.ServiceChannelSystemInputTVRemote); err != nil {
		waiter.Cancel(msgID)
		return nil, err
	}

	result, err := waiter.Await(ctx, msgID, DefaultRequestTimeout)
	if err != nil {
		return nil, err
	}
	return result.Value.(*Message), nil
}

// CachedParams returns the params of the most recent response to name.
func (m *Manager) CachedParams(name Request) (json.RawMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	params, ok := m.cache[name]
	return params, ok
}

// GetConfiguration fetches the IR device configuration.
func (m *Manager) GetConfiguration(ctx context.Context) (*Message, error) {
	return m.SendRequest(ctx, RequestGetConfiguration, nil)
}

// GetHeadendInfo fetches headend provider information.
func (m *Manager) GetHeadendInfo(ctx context.Context) (*Message, error) {
	return m.SendRequest(ctx, RequestGetHeadendInfo, nil)
}

// GetLiveTVInfo fetches the live TV state.
func (m *Manager) GetLiveTVInfo(ctx context.Context) (*Message, error) {
	return m.SendRequest(ctx, RequestGetLiveTVInfo, nil)
}

// GetTunerLineups fetches the tuner channel lineups.
func (m *Manager) GetTunerLineups(ctx context.Context) (*Message, error) {
	return m.SendRequest(ctx, RequestGetTunerLineups, nil)
}

// GetRecentChannels fetches the recently watched channels.
func (m *Manager) GetRecentChannels(ctx context.Context) (*Message, error) {
	return m.SendRequest(ctx, RequestGetRecentChannels, nil)
}

// GetProgrammInfo fetches the current program information.
func (m *Manager) GetProgrammInfo(ctx context.Context) (*Message, error) {
	return m.SendRequest(ctx, RequestGetProgrammInfo, nil)
}

// GetAppChannelLineups fetches the app-channel lineups.
func (m *Manager) GetAppChannelLineups(ctx context.Context) (*Message, error) {
	return m.SendRequest(ctx, RequestGetAppChannelLineups, nil)
}

// SendKey sends one IR key press.
func (m *Manager) SendKey(ctx context.Context, params SendKeyParams) (*Message, error) {
	return m.SendRequest(ctx, RequestSendKey, params)
}

// SetChannel tunes to a channel.
func (m *Manager) SetChannel(ctx context.Context, params SetChannelParams) (*Message, error) {
	return m.SendRequest(ctx, RequestSetChannel, params)
}

// EnsureStreamingStarted starts the TV stream from the given source.
func (m *Manager) EnsureStreamingStarted(ctx context.Context, source string) (*Message, error) {
	return m.SendRequest(ctx, RequestEnsureStreamingStarted,
		EnsureStreamingStartedParams{Source: source})
}
