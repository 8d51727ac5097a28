// Package console ties the pieces together: one Console owns a session
// engine for one physical console plus the typed channel managers, and
// exposes the high-level operations a remote-control client needs.
package console

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/logging"

	"github.com/openxbox/smartglass/pkg/auxiliary"
	"github.com/openxbox/smartglass/pkg/channels"
	"github.com/openxbox/smartglass/pkg/crypto"
	"github.com/openxbox/smartglass/pkg/discovery"
	"github.com/openxbox/smartglass/pkg/events"
	"github.com/openxbox/smartglass/pkg/packet"
	"github.com/openxbox/smartglass/pkg/session"
	"github.com/openxbox/smartglass/pkg/stump"
)

// Config tunes a Console.
type Config struct {
	// ClientUUID identifies this client; random if zero.
	ClientUUID uuid.UUID

	// ClientInfo is announced on LocalJoin. Defaults to
	// WindowsClientInfo.
	ClientInfo *session.ClientInfo

	// HeartbeatInterval overrides the liveness probe period.
	HeartbeatInterval time.Duration

	// LoggerFactory creates all component loggers.
	LoggerFactory logging.LoggerFactory
}

// Console is a connected (or connectable) physical console with its
// session engine and channel managers.
type Console struct {
	Record *discovery.Console

	engine *session.Engine
	config Config
	log    logging.LeveledLogger

	// Input drives the SystemInput channel.
	Input *channels.InputManager

	// Media drives the SystemMedia channel.
	Media *channels.MediaManager

	// Text drives the SystemText channel.
	Text *channels.TextManager

	// Stump drives the TV/IR subsystem.
	Stump *stump.Manager

	// Title drives the Title channel and auxiliary streams.
	Title *auxiliary.TitleManager

	mu            sync.Mutex
	started       bool
	pairingState  packet.PairedIdentityState
	consoleStatus *packet.ConsoleStatus
	activeSurface *packet.ActiveSurfaceChange

	// OnConsoleStatus fires on every console status report.
	OnConsoleStatus events.Event[*packet.ConsoleStatus]

	// OnActiveSurface fires on active surface changes announced on Core.
	OnActiveSurface events.Event[*packet.ActiveSurfaceChange]

	// OnPairingState fires on pairing state transitions.
	OnPairingState events.Event[packet.PairedIdentityState]

	// OnConnectionState mirrors the engine's state transitions.
	OnConnectionState events.Event[session.State]

	// OnTimeout fires when the heartbeat loses the console.
	OnTimeout events.Event[error]
}

// New creates a Console from a discovery record. The record must carry
// the console's public key (i.e. come from a live discovery, not the
// persisted list).
func New(record *discovery.Console, config Config) (*Console, error) {
	if record.PublicKey == nil {
		return nil, crypto.ErrInvalidCertificate
	}
	if config.LoggerFactory == nil {
		config.LoggerFactory = logging.NewDefaultLoggerFactory()
	}

	cryptoCtx, err := crypto.FromECDHKey(record.PublicKey)
	if err != nil {
		return nil, err
	}

	engine, err := session.New(session.Config{
		Address:           record.Address,
		Crypto:            cryptoCtx,
		ClientUUID:        config.ClientUUID,
		HeartbeatInterval: config.HeartbeatInterval,
		LoggerFactory:     config.LoggerFactory,
	})
	if err != nil {
		return nil, err
	}

	c := &Console{
		Record: record,
		engine: engine,
		config: config,
		log:    config.LoggerFactory.NewLogger("console"),
		Input:  channels.NewInputManager(engine, config.LoggerFactory),
		Media:  channels.NewMediaManager(engine, config.LoggerFactory),
		Text:   channels.NewTextManager(engine, config.LoggerFactory),
		Stump:  stump.NewManager(engine, config.LoggerFactory),
		Title:  auxiliary.NewTitleManager(engine, config.LoggerFactory),
	}

	engine.OnConsoleStatus.Subscribe(func(status *packet.ConsoleStatus) {
		c.mu.Lock()
		c.consoleStatus = status
		c.mu.Unlock()
		c.OnConsoleStatus.Emit(status)
	})
	engine.OnActiveSurface.Subscribe(func(surface *packet.ActiveSurfaceChange) {
		c.mu.Lock()
		c.activeSurface = surface
		c.mu.Unlock()
		c.OnActiveSurface.Emit(surface)
	})
	engine.OnPairingState.Subscribe(func(state packet.PairedIdentityState) {
		c.mu.Lock()
		c.pairingState = state
		c.mu.Unlock()
		c.OnPairingState.Emit(state)
	})
	engine.OnConnectionState.Subscribe(func(state session.State) {
		if state == session.StateDisconnected || state == session.StateError {
			c.clearCachedState()
		}
		c.OnConnectionState.Emit(state)
	})
	engine.OnTimeout.Subscribe(func(err error) {
		c.OnTimeout.Emit(err)
	})

	return c, nil
}

// Engine exposes the underlying session engine.
func (c *Console) Engine() *session.Engine { return c.engine }

// Connect establishes the session. Userhash and token come from the
// Xbox Live layer; both empty attempts an anonymous connect, which the
// console must allow.
func (c *Console) Connect(ctx context.Context, userhash, token string) (packet.PairedIdentityState, error) {
	c.mu.Lock()
	if !c.started {
		if err := c.engine.Start(); err != nil {
			c.mu.Unlock()
			return 0, err
		}
		c.started = true
	}
	c.mu.Unlock()

	state, err := c.engine.Connect(ctx, session.ConnectOptions{
		Userhash:       userhash,
		Token:          token,
		AllowAnonymous: c.Record.AllowsAnonymous(),
		ClientInfo:     c.config.ClientInfo,
	})
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.pairingState = state
	c.mu.Unlock()
	return state, nil
}

// Disconnect tears the session down.
func (c *Console) Disconnect() error {
	return c.engine.Disconnect(packet.DisconnectReasonUnspecified, 0)
}

// Close disconnects and releases the socket.
func (c *Console) Close() error {
	return c.engine.Stop()
}

// ConnectionState returns the session state.
func (c *Console) ConnectionState() session.State {
	return c.engine.State()
}

// Connected reports whether the session is established.
func (c *Console) Connected() bool {
	return c.engine.State() == session.StateConnected
}

// PairingState returns the last reported pairing state.
func (c *Console) PairingState() packet.PairedIdentityState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pairingState
}

// ConsoleStatus returns the cached console status, or nil.
func (c *Console) ConsoleStatus() *packet.ConsoleStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.consoleStatus
}

// ActiveSurface returns the cached active surface, or nil.
func (c *Console) ActiveSurface() *packet.ActiveSurfaceChange {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeSurface
}

func (c *Console) clearCachedState() {
	c.mu.Lock()
	c.consoleStatus = nil
	c.activeSurface = nil
	c.pairingState = packet.PairedIdentityStateNotPaired
	c.mu.Unlock()
}

// LaunchTitle starts a title by URI.
func (c *Console) LaunchTitle(ctx context.Context, uri string, location packet.ActiveTitleLocation) (session.AckStatus, error) {
	return c.engine.SendMessage(ctx, &packet.TitleLaunch{
		Location: location,
		URI:      uri,
	}, session.ServiceChannelCore, session.SendOptions{NeedAck: true, Blocking: true})
}

// GameDVRRecord records the last moments of gameplay.
func (c *Console) GameDVRRecord(ctx context.Context, startDelta, endDelta int32) (session.AckStatus, error) {
	return c.engine.SendMessage(ctx, &packet.GameDVRRecord{
		StartTimeDelta: startDelta,
		EndTimeDelta:   endDelta,
	}, session.ServiceChannelCore, session.SendOptions{NeedAck: true, Blocking: true})
}

// PowerOff shuts the console down and ends the session.
func (c *Console) PowerOff(ctx context.Context) error {
	_, err := c.engine.SendMessage(ctx, &packet.PowerOff{LiveID: c.Record.LiveID},
		session.ServiceChannelCore, session.SendOptions{})
	if err != nil {
		return err
	}
	return c.Disconnect()
}
