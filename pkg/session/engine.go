// Package session implements the SmartGlass session protocol engine: the
// connect handshake, the sequence/acknowledgement layer, the logical
// channel multiplexer, fragment reassembly, and the heartbeat-driven
// liveness monitor. One Engine owns one UDP socket and one console
// session.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/google/uuid"
	"github.com/pion/logging"

	"github.com/openxbox/smartglass/pkg/crypto"
	"github.com/openxbox/smartglass/pkg/events"
	"github.com/openxbox/smartglass/pkg/packet"
	"github.com/openxbox/smartglass/pkg/transport"
)

// State is the connection state of the engine.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateError
	StateDisconnecting
	StateReconnecting
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateError:
		return "Error"
	case StateDisconnecting:
		return "Disconnecting"
	case StateReconnecting:
		return "Reconnecting"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Defaults for caller-tunable timings.
const (
	DefaultHeartbeatInterval = 3 * time.Second
	DefaultSendTimeout       = 5 * time.Second
	DefaultSendRetries       = 3
	DefaultConnectRetries    = 3

	// connectMaxPayload is the payload ceiling above which the connect
	// authentication data is fragmented.
	connectMaxPayload = 1024
)

// InboundMessage pairs a decoded message with its service channel.
type InboundMessage struct {
	Message *packet.Message
	Channel ServiceChannel
}

// InboundJSON pairs a reassembled JSON document with its service channel.
type InboundJSON struct {
	Text    string
	Channel ServiceChannel
}

// Config configures a session engine.
type Config struct {
	// Address is the console's UDP endpoint.
	Address net.Addr

	// Crypto is the session crypto context, built from the console's
	// discovery-response certificate. Required before Connect.
	Crypto *crypto.Context

	// Transport is an optional pre-built socket; the engine creates and
	// owns one if nil.
	Transport *transport.UDP

	// ClientUUID identifies this client in the connect handshake. A
	// random UUID is generated if zero.
	ClientUUID uuid.UUID

	// HeartbeatInterval overrides the liveness probe period.
	HeartbeatInterval time.Duration

	// SendTimeout and SendRetries override the blocking-send defaults
	// (5s, 3 attempts) for sends that do not set their own.
	SendTimeout time.Duration
	SendRetries int

	// LoggerFactory creates the engine logger.
	LoggerFactory logging.LoggerFactory
}

// Engine is the session state machine. All protocol state is owned here;
// managers talk to the console exclusively through SendMessage/SendJSON
// and the typed events.
type Engine struct {
	log               logging.LeveledLogger
	addr              net.Addr
	crypto            *crypto.Context
	transport         *transport.UDP
	ownsTransport     bool
	clientUUID        uuid.UUID
	heartbeatInterval time.Duration
	sendTimeout       time.Duration
	sendRetries       int

	sequences *SequenceTracker
	channels  *ChannelRegistry
	fragments *FragmentAssembler
	waiter    *AckWaiter

	mu                  sync.Mutex
	state               State
	sourceParticipantID uint32
	targetParticipantID uint32
	heartbeatStop       chan struct{}

	// OnConnectionState fires on every state transition.
	OnConnectionState events.Event[State]

	// OnTimeout fires when the heartbeat loses the console.
	OnTimeout events.Event[error]

	// OnPairingState fires on PairedIdentityStateChanged messages.
	OnPairingState events.Event[packet.PairedIdentityState]

	// OnConsoleStatus fires on ConsoleStatus messages.
	OnConsoleStatus events.Event[*packet.ConsoleStatus]

	// OnActiveSurface fires on ActiveSurfaceChange messages.
	OnActiveSurface events.Event[*packet.ActiveSurfaceChange]

	// OnMessage fires for every fully reassembled inbound message.
	OnMessage events.Event[InboundMessage]

	// OnJSON fires for every complete inbound JSON document.
	OnJSON events.Event[InboundJSON]
}

// New creates a session engine for one console.
func New(config Config) (*Engine, error) {
	if config.LoggerFactory == nil {
		config.LoggerFactory = logging.NewDefaultLoggerFactory()
	}
	if config.HeartbeatInterval == 0 {
		config.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if config.ClientUUID == (uuid.UUID{}) {
		config.ClientUUID = uuid.New()
	}
	if config.SendTimeout == 0 {
		config.SendTimeout = DefaultSendTimeout
	}
	if config.SendRetries == 0 {
		config.SendRetries = DefaultSendRetries
	}

	e := &Engine{
		log:               config.LoggerFactory.NewLogger("session"),
		addr:              config.Address,
		crypto:            config.Crypto,
		clientUUID:        config.ClientUUID,
		heartbeatInterval: config.HeartbeatInterval,
		sendTimeout:       config.SendTimeout,
		sendRetries:       config.SendRetries,
		sequences:         NewSequenceTracker(),
		channels:          NewChannelRegistry(),
		fragments:         NewFragmentAssembler(),
		waiter:            NewAckWaiter(),
		state:             StateDisconnected,
	}

	if config.Transport != nil {
		e.transport = config.Transport
	} else {
		t, err := transport.New(transport.Config{
			Handler:       e.HandleDatagram,
			LoggerFactory: config.LoggerFactory,
		})
		if err != nil {
			return nil, err
		}
		e.transport = t
		e.ownsTransport = true
	}

	return e, nil
}

// Start begins reading from the session socket.
func (e *Engine) Start() error {
	if e.ownsTransport {
		return e.transport.Start()
	}
	return nil
}

// Stop disconnects (best effort) and closes the socket.
func (e *Engine) Stop() error {
	if e.State() == StateConnected {
		e.Disconnect(packet.DisconnectReasonUnspecified, 0)
	}
	e.waiter.CancelAll()
	if e.ownsTransport {
		return e.transport.Stop()
	}
	return nil
}

// State returns the current connection state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// SequenceTracker exposes the sequence layer, read-mostly, for status
// inspection and tests.
func (e *Engine) SequenceTracker() *SequenceTracker { return e.sequences }

// ChannelRegistry exposes the channel table.
func (e *Engine) ChannelRegistry() *ChannelRegistry { return e.channels }

// Waiter exposes the pending-future table so JSON-RPC style managers can
// correlate replies by their own message ids.
func (e *Engine) Waiter() *AckWaiter { return e.waiter }

func (e *Engine) setState(s State) {
	e.mu.Lock()
	if e.state == s {
		e.mu.Unlock()
		return
	}
	e.state = s
	e.mu.Unlock()
	e.OnConnectionState.Emit(s)
}

// ConnectOptions tunes the connect handshake.
type ConnectOptions struct {
	// Userhash and Token come from the Xbox Live authentication layer.
	// Both empty means an anonymous connect.
	Userhash string
	Token    string

	// AllowAnonymous mirrors the console's AllowAnonymousUsers flag from
	// discovery; an anonymous connect without it fails locally.
	AllowAnonymous bool

	// ClientInfo is announced via LocalJoin. Defaults to
	// WindowsClientInfo.
	ClientInfo *ClientInfo

	// RequestNum seeds the connect-request group numbering.
	RequestNum uint32

	// Retries and Timeout bound the handshake. Defaults: 3 tries of 5s.
	Retries int
	Timeout time.Duration
}

// Connect performs the session handshake: sends the (possibly fragmented)
// ConnectRequest group, waits for the ConnectResponse, adopts the
// assigned participant id, announces LocalJoin, opens the system
// channels, and starts the heartbeat. Returns the console's pairing
// state.
func (e *Engine) Connect(ctx context.Context, opts ConnectOptions) (packet.PairedIdentityState, error) {
	if e.crypto == nil {
		return 0, ErrNoCrypto
	}
	if e.State() == StateConnected {
		return 0, ErrAlreadyConnected
	}
	if opts.Userhash == "" && opts.Token == "" && !opts.AllowAnonymous {
		return 0, ErrAnonymousNotAllowed
	}
	if opts.Retries <= 0 {
		opts.Retries = DefaultConnectRetries
	}
	if opts.Timeout <= 0 {
		opts.Timeout = e.sendTimeout
	}
	if opts.ClientInfo == nil {
		info := WindowsClientInfo
		opts.ClientInfo = &info
	}

	e.setState(StateConnecting)

	requests, err := e.buildConnectRequests(opts)
	if err != nil {
		e.setState(StateDisconnected)
		return 0, err
	}

	var resp *packet.ConnectResponse
	attempt := func() error {
		e.waiter.Register(ConnectKey)
		for _, req := range requests {
			data, err := packet.Pack(req, e.crypto)
			if err != nil {
				return backoff.Permanent(err)
			}
			if err := e.transport.Send(data, e.addr); err != nil {
				return backoff.Permanent(err)
			}
		}

		result, err := e.waiter.Await(ctx, ConnectKey, opts.Timeout)
		if err == ErrAckTimeout {
			e.log.Warnf("connect attempt not answered, retrying")
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		resp = result.Value.(*packet.ConnectResponse)
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(0), uint64(opts.Retries-1))
	if err := backoff.Retry(attempt, policy); err != nil {
		e.setState(StateDisconnected)
		if err == ErrAckTimeout {
			return 0, ErrRetriesExhausted
		}
		return 0, err
	}

	if resp.Result != packet.ConnectionResultSuccess {
		e.setState(StateDisconnected)
		return 0, &ConnectFailedError{Result: resp.Result}
	}

	e.mu.Lock()
	e.sourceParticipantID = resp.ParticipantID
	e.targetParticipantID = 0
	e.heartbeatStop = make(chan struct{})
	stop := e.heartbeatStop
	e.mu.Unlock()

	e.setState(StateConnected)
	e.log.Infof("connected, participant id %d, pairing state %d",
		resp.ParticipantID, resp.PairingState)

	if _, err := e.SendMessage(ctx, opts.ClientInfo.localJoinPayload(),
		ServiceChannelCore, SendOptions{NeedAck: true}); err != nil {
		e.log.Warnf("local join failed: %v", err)
	}

	for _, channel := range systemChannels {
		if err := e.StartChannel(ctx, channel, 0, 0); err != nil {
			e.log.Warnf("starting channel %v failed: %v", channel, err)
		}
	}

	go e.heartbeat(stop)

	return resp.PairingState, nil
}

// buildConnectRequests assembles the connect-request group, fragmenting
// the authentication string when the packed payload would exceed the
// datagram ceiling.
func (e *Engine) buildConnectRequests(opts ConnectOptions) ([]*packet.ConnectRequest, error) {
	base := &packet.ConnectRequest{
		SGUUID:        e.clientUUID,
		PublicKeyType: e.crypto.PublicKeyType(),
		PublicKey:     e.crypto.PublicKeyBytes(),
		IV:            e.crypto.GenerateIV(nil),
		Userhash:      opts.Userhash,
		Token:         opts.Token,
		RequestNum:    opts.RequestNum,
		GroupStart:    opts.RequestNum,
		GroupEnd:      opts.RequestNum + 1,
	}
	if base.PayloadLength() <= connectMaxPayload {
		return []*packet.ConnectRequest{base}, nil
	}
	return e.fragmentConnectRequest(opts)
}

// fragmentConnectRequest splits userhash + token into request-sized
// pieces: the userhash rides only in the first fragment, each fragment
// carries a fresh IV and an incremented request number.
func (e *Engine) fragmentConnectRequest(opts ConnectOptions) ([]*packet.ConnectRequest, error) {
	dummy := &packet.ConnectRequest{
		SGUUID:        e.clientUUID,
		PublicKeyType: e.crypto.PublicKeyType(),
		PublicKey:     e.crypto.PublicKeyBytes(),
		IV:            make([]byte, 16),
	}
	maxSize := connectMaxPayload - dummy.PayloadLength()

	totalAuthLen := len(opts.Userhash) + len(opts.Token)
	fragmentCount := totalAuthLen / maxSize
	if totalAuthLen%maxSize > 0 {
		fragmentCount++
	}
	if fragmentCount <= 1 {
		return nil, ErrAuthTooSmallToFragment
	}

	groupStart := opts.RequestNum
	groupEnd := groupStart + uint32(fragmentCount)

	requests := make([]*packet.ConnectRequest, 0, fragmentCount)
	tokenPos := 0
	for i := 0; i < fragmentCount; i++ {
		available := maxSize
		userhash := ""
		if i == 0 {
			userhash = opts.Userhash
			available -= len(userhash)
		}

		chunk := opts.Token[tokenPos:min(tokenPos+available, len(opts.Token))]
		tokenPos += len(chunk)

		requests = append(requests, &packet.ConnectRequest{
			SGUUID:        e.clientUUID,
			PublicKeyType: e.crypto.PublicKeyType(),
			PublicKey:     e.crypto.PublicKeyBytes(),
			IV:            e.crypto.GenerateIV(nil),
			Userhash:      userhash,
			Token:         chunk,
			RequestNum:    opts.RequestNum + uint32(i),
			GroupStart:    groupStart,
			GroupEnd:      groupEnd,
		})
	}
	return requests, nil
}

// SendOptions tunes one outbound message.
type SendOptions struct {
	// NeedAck requests a peer acknowledgement for this message.
	NeedAck bool

	// Blocking waits for the acknowledgement (only meaningful with
	// NeedAck) and retries the identical packet until acknowledged.
	Blocking bool

	// Timeout bounds each blocking wait. Default 5s.
	Timeout time.Duration

	// Retries bounds the retransmit attempts. Default 3.
	Retries int
}

// SendMessage packs, encrypts and sends a message on the given service
// channel. With NeedAck and Blocking set it waits for the peer ack,
// retransmitting the identical packet (same sequence number) until
// acknowledged or out of retries.
func (e *Engine) SendMessage(ctx context.Context, payload packet.Payload,
	channel ServiceChannel, opts SendOptions) (AckStatus, error) {
	if e.crypto == nil {
		return AckStatusPending, ErrNoCrypto
	}
	if opts.Timeout <= 0 {
		opts.Timeout = e.sendTimeout
	}
	if opts.Retries <= 0 {
		opts.Retries = e.sendRetries
	}

	channelID, err := e.channels.ChannelID(channel)
	if err != nil {
		return AckStatusPending, err
	}

	e.mu.Lock()
	target, source := e.targetParticipantID, e.sourceParticipantID
	e.mu.Unlock()

	msg := &packet.Message{
		Header: packet.Header{
			SequenceNumber:      e.sequences.Next(),
			TargetParticipantID: target,
			SourceParticipantID: source,
			NeedAck:             opts.NeedAck,
			Type:                payload.Type(),
			ChannelID:           channelID,
		},
		Payload: payload,
	}

	data, err := packet.Pack(msg, e.crypto)
	if err != nil {
		return AckStatusPending, err
	}

	if !opts.NeedAck || !opts.Blocking {
		e.log.Debugf("sending %v on %v", msg.Header.Type, channel)
		return AckStatusPending, e.transport.Send(data, e.addr)
	}

	key := AckKey(msg.Header.SequenceNumber)
	e.log.Debugf("sending %v on %v (blocking, seq %d)",
		msg.Header.Type, channel, msg.Header.SequenceNumber)

	for attempt := 0; attempt < opts.Retries; attempt++ {
		if attempt > 0 {
			e.log.Warnf("%v on %v not ack'd in time, attempt #%d",
				msg.Header.Type, channel, attempt+1)
		}
		e.waiter.Register(key)
		if err := e.transport.Send(data, e.addr); err != nil {
			e.waiter.Cancel(key)
			return AckStatusPending, err
		}

		result, err := e.waiter.Await(ctx, key, opts.Timeout)
		if err == ErrAckTimeout {
			continue
		}
		if err != nil {
			return AckStatusPending, err
		}
		return result.Status, nil
	}
	return AckStatusPending, ErrRetriesExhausted
}

// SendJSON marshals v and sends it as a Json message on channel, waiting
// for the peer ack.
func (e *Engine) SendJSON(ctx context.Context, v any, channel ServiceChannel) error {
	text, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = e.SendMessage(ctx, &packet.JSON{Text: string(text)}, channel,
		SendOptions{NeedAck: true, Blocking: true})
	return err
}

// SendAck sends an acknowledgement for the given sequence lists carrying
// the current low watermark. With needAck the ack itself demands an ack
// and blocks; that mode is the heartbeat.
func (e *Engine) SendAck(ctx context.Context, processed, rejected []uint32,
	channel ServiceChannel, needAck bool) (AckStatus, error) {
	ack := &packet.Ack{
		LowWatermark:  e.sequences.LowWatermark(),
		ProcessedList: processed,
		RejectedList:  rejected,
	}
	return e.SendMessage(ctx, ack, channel, SendOptions{
		NeedAck:  needAck,
		Blocking: needAck,
	})
}

// StartChannel requests a service channel. The mapping is installed
// asynchronously when the StartChannelResponse arrives.
func (e *Engine) StartChannel(ctx context.Context, channel ServiceChannel,
	titleID uint32, activityID uint32) error {
	req := &packet.StartChannelRequest{
		ChannelRequestID: e.channels.NextRequestID(channel),
		TitleID:          titleID,
		Service:          channel.ServiceUUID(),
		ActivityID:       activityID,
	}
	_, err := e.SendMessage(ctx, req, ServiceChannelCore, SendOptions{NeedAck: true})
	return err
}

// Disconnect sends a best-effort Disconnect on Core and resets all
// session state to its pre-connect values.
func (e *Engine) Disconnect(reason packet.DisconnectReason, errorCode uint32) error {
	e.setState(StateDisconnecting)

	_, err := e.SendMessage(context.Background(),
		&packet.Disconnect{Reason: reason, ErrorCode: errorCode},
		ServiceChannelCore, SendOptions{})

	e.teardown()
	e.setState(StateDisconnected)
	return err
}

// teardown stops the heartbeat, cancels pending waiters and resets the
// sequence, channel and fragment layers.
func (e *Engine) teardown() {
	e.mu.Lock()
	if e.heartbeatStop != nil {
		close(e.heartbeatStop)
		e.heartbeatStop = nil
	}
	e.sourceParticipantID = 0
	e.targetParticipantID = 0
	e.mu.Unlock()

	e.waiter.CancelAll()
	e.channels.Reset()
	e.sequences.Reset()
	e.fragments.Reset()
}

// heartbeat probes console liveness: an empty Ack with need-ack set every
// interval. The first probe that is not acknowledged moves the session to
// Error and fires OnTimeout.
func (e *Engine) heartbeat(stop <-chan struct{}) {
	ticker := time.NewTicker(e.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		if e.State() != StateConnected {
			return
		}

		_, err := e.SendAck(context.Background(), nil, nil, ServiceChannelCore, true)
		if err != nil {
			e.log.Errorf("heartbeat lost: %v", err)
			e.setState(StateError)
			e.OnTimeout.Emit(err)
			e.teardown()
			return
		}
	}
}

// HandleDatagram is the transport handler: it decodes one datagram and
// dispatches it. Codec failures are logged and the packet dropped; they
// never tear down the session.
func (e *Engine) HandleDatagram(data []byte, addr net.Addr) {
	pkt, err := packet.Unpack(data, e.crypto)
	if err != nil {
		e.log.Warnf("dropping packet from %v: %v", addr, err)
		return
	}

	switch p := pkt.(type) {
	case *packet.ConnectResponse:
		e.log.Debugf("received ConnectResponse from %v", addr)
		e.waiter.Resolve(ConnectKey, WaitResult{Status: AckStatusProcessed, Value: p})
	case *packet.Message:
		e.handleMessage(p)
	default:
		e.log.Debugf("ignoring %v on session socket", pkt.PacketType())
	}
}

func (e *Engine) handleMessage(msg *packet.Message) {
	channel, err := e.channels.Channel(msg.Header.ChannelID)
	if err != nil {
		e.log.Warnf("dropping message on unmapped channel 0x%x", msg.Header.ChannelID)
		return
	}

	seq := msg.Header.SequenceNumber
	duplicate := e.sequences.WasReceived(seq)
	e.sequences.MarkReceived(seq)

	if msg.Header.NeedAck {
		if _, err := e.SendAck(context.Background(), []uint32{seq}, nil,
			ServiceChannelCore, false); err != nil {
			e.log.Warnf("sending ack for %d failed: %v", seq, err)
		}
	}

	if duplicate {
		e.log.Debugf("duplicate sequence %d, already processed", seq)
		return
	}

	if frag, ok := msg.Payload.(*packet.Fragment); ok {
		e.handleFragment(msg, frag)
		e.sequences.SetLowWatermark(seq)
		return
	}

	e.dispatchMessage(msg, channel)
	e.sequences.SetLowWatermark(seq)
}

// handleFragment buffers a binary fragment and, once complete, decodes
// the reassembled plaintext as the header's message type and dispatches
// it like a regular message.
func (e *Engine) handleFragment(msg *packet.Message, frag *packet.Fragment) {
	assembled := e.fragments.AddBinary(msg.Header.SequenceNumber, frag)
	if assembled == nil {
		return
	}

	payload, err := packet.DecodePayload(msg.Header.Type, assembled)
	if err != nil {
		e.log.Warnf("reassembled %v message undecodable: %v", msg.Header.Type,
			fmt.Errorf("%w: %v", ErrUnknownFragmentedMessageType, err))
		return
	}

	full := &packet.Message{Header: msg.Header, Payload: payload}
	full.Header.IsFragment = false

	channel, err := e.channels.Channel(msg.Header.ChannelID)
	if err != nil {
		return
	}
	e.dispatchMessage(full, channel)
}

// dispatchMessage runs the engine's internal handlers, then forwards to
// subscribers.
func (e *Engine) dispatchMessage(msg *packet.Message, channel ServiceChannel) {
	e.log.Debugf("received %v on %v", msg.Header.Type, channel)

	switch payload := msg.Payload.(type) {
	case *packet.Ack:
		e.handleAck(payload)
	case *packet.StartChannelResponse:
		if ch, err := e.channels.HandleStartResponse(payload); err != nil {
			e.log.Warnf("channel start response: %v", err)
		} else {
			e.log.Infof("acquired channel %v -> 0x%x", ch, payload.TargetChannelID)
		}
	case *packet.JSON:
		e.handleJSON(payload, channel)
	case *packet.PairedIdentityStateChanged:
		e.OnPairingState.Emit(payload.State)
	case *packet.ConsoleStatus:
		e.OnConsoleStatus.Emit(payload)
	case *packet.ActiveSurfaceChange:
		e.OnActiveSurface.Emit(payload)
	case *packet.Disconnect:
		e.log.Infof("console disconnected us: %v", payload.Reason)
		e.teardown()
		e.setState(StateDisconnected)
		return
	}

	e.OnMessage.Emit(InboundMessage{Message: msg, Channel: channel})
}

// handleAck resolves pending blocking sends against the peer's processed
// and rejected lists.
func (e *Engine) handleAck(ack *packet.Ack) {
	for _, num := range ack.ProcessedList {
		e.sequences.MarkProcessed(num)
		e.waiter.Resolve(AckKey(num), WaitResult{Status: AckStatusProcessed})
	}
	for _, num := range ack.RejectedList {
		e.sequences.MarkRejected(num)
		e.waiter.Resolve(AckKey(num), WaitResult{Status: AckStatusRejected})
	}
}

// handleJSON feeds datagram chunks to the assembler and emits complete
// documents.
func (e *Engine) handleJSON(payload *packet.JSON, channel ServiceChannel) {
	text := payload.Text
	if IsJSONFragment(text) {
		complete, err := e.fragments.AddJSON(text)
		if err != nil {
			e.log.Warnf("json fragment: %v", err)
			return
		}
		if complete == "" {
			return
		}
		text = complete
	}
	e.OnJSON.Emit(InboundJSON{Text: text, Channel: channel})
}
