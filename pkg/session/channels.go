package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/openxbox/smartglass/pkg/packet"
)

// ServiceChannel names a logical channel multiplexed onto the session.
// Core and Ack map to fixed channel ids; the rest are negotiated via
// StartChannelRequest.
type ServiceChannel int

const (
	ServiceChannelCore ServiceChannel = iota
	ServiceChannelSystemInput
	ServiceChannelSystemInputTVRemote
	ServiceChannelSystemMedia
	ServiceChannelSystemText
	ServiceChannelSystemBroadcast
	ServiceChannelAck
	ServiceChannelTitle
)

// String returns the channel name.
func (c ServiceChannel) String() string {
	switch c {
	case ServiceChannelCore:
		return "Core"
	case ServiceChannelSystemInput:
		return "SystemInput"
	case ServiceChannelSystemInputTVRemote:
		return "SystemInputTVRemote"
	case ServiceChannelSystemMedia:
		return "SystemMedia"
	case ServiceChannelSystemText:
		return "SystemText"
	case ServiceChannelSystemBroadcast:
		return "SystemBroadcast"
	case ServiceChannelAck:
		return "Ack"
	case ServiceChannelTitle:
		return "Title"
	default:
		return fmt.Sprintf("ServiceChannel(%d)", int(c))
	}
}

// Fixed channel ids.
const (
	ChannelIDCore uint64 = 0
	ChannelIDAck  uint64 = 0x1000000000000000
)

// Service UUIDs identifying each system channel in StartChannelRequest.
// The Title channel uses the zero UUID; its title id rides in a separate
// field.
var (
	ServiceUUIDSystemInput         = uuid.MustParse("fa20b8ca-66fb-46e0-adb6-0b978a59d35f")
	ServiceUUIDSystemInputTVRemote = uuid.MustParse("d451e3b3-60bb-4c71-b3db-f994b1aca3a7")
	ServiceUUIDSystemMedia         = uuid.MustParse("48a9ca24-eb6d-4e12-8c43-d57469edd3cd")
	ServiceUUIDSystemText          = uuid.MustParse("7af3e6a2-488b-40cb-a931-79c04b7da3a0")
	ServiceUUIDSystemBroadcast     = uuid.MustParse("b6a117d8-f5e2-45d7-862e-8fd8e3156476")
	ServiceUUIDTitle               = uuid.UUID{}
)

// ServiceUUID returns the service UUID used to request the channel.
func (c ServiceChannel) ServiceUUID() uuid.UUID {
	switch c {
	case ServiceChannelSystemInput:
		return ServiceUUIDSystemInput
	case ServiceChannelSystemInputTVRemote:
		return ServiceUUIDSystemInputTVRemote
	case ServiceChannelSystemMedia:
		return ServiceUUIDSystemMedia
	case ServiceChannelSystemText:
		return ServiceUUIDSystemText
	case ServiceChannelSystemBroadcast:
		return ServiceUUIDSystemBroadcast
	default:
		return ServiceUUIDTitle
	}
}

// systemChannels are opened automatically after a successful connect.
var systemChannels = []ServiceChannel{
	ServiceChannelSystemInput,
	ServiceChannelSystemInputTVRemote,
	ServiceChannelSystemMedia,
	ServiceChannelSystemText,
	ServiceChannelSystemBroadcast,
}

// ChannelRegistry maps service channels to the numeric channel ids
// negotiated with the console and tracks pending channel-start requests.
// Safe for concurrent use.
type ChannelRegistry struct {
	mu        sync.Mutex
	mapping   map[ServiceChannel]uint64
	requests  map[uint32]ServiceChannel
	requestID uint32
}

// NewChannelRegistry creates an empty registry; only Core and Ack are
// resolvable until channels are started.
func NewChannelRegistry() *ChannelRegistry {
	return &ChannelRegistry{
		mapping:  make(map[ServiceChannel]uint64),
		requests: make(map[uint32]ServiceChannel),
	}
}

// NextRequestID allocates a channel-start request id for channel. Any
// prior pending request for the same channel is dropped so retries do not
// leak entries.
func (r *ChannelRegistry) NextRequestID(channel ServiceChannel) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, ch := range r.requests {
		if ch == channel {
			delete(r.requests, id)
		}
	}

	r.requestID++
	r.requests[r.requestID] = channel
	return r.requestID
}

// HandleStartResponse resolves a StartChannelResponse against the pending
// request table. On success the channel id mapping is installed.
func (r *ChannelRegistry) HandleStartResponse(resp *packet.StartChannelResponse) (ServiceChannel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	channel, ok := r.requests[resp.ChannelRequestID]
	if !ok {
		return 0, ErrChannelRequestUnknown
	}
	delete(r.requests, resp.ChannelRequestID)

	if resp.Result != packet.SGResultSuccess {
		return channel, &ChannelStartFailedError{Channel: channel, Code: resp.Result}
	}

	r.mapping[channel] = resp.TargetChannelID
	return channel, nil
}

// ChannelID returns the channel id to stamp on outbound messages for the
// service channel.
func (r *ChannelRegistry) ChannelID(channel ServiceChannel) (uint64, error) {
	switch channel {
	case ServiceChannelCore:
		return ChannelIDCore, nil
	case ServiceChannelAck:
		return ChannelIDAck, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.mapping[channel]
	if !ok {
		return 0, ErrChannelNotOpen
	}
	return id, nil
}

// Channel resolves an inbound channel id to its service channel.
func (r *ChannelRegistry) Channel(channelID uint64) (ServiceChannel, error) {
	switch channelID {
	case ChannelIDCore:
		return ServiceChannelCore, nil
	case ChannelIDAck:
		return ServiceChannelAck, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for channel, id := range r.mapping {
		if id == channelID {
			return channel, nil
		}
	}
	return 0, ErrChannelUnknown
}

// Reset drops all negotiated mappings and pending requests; Core and Ack
// remain resolvable.
func (r *ChannelRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mapping = make(map[ServiceChannel]uint64)
	r.requests = make(map[uint32]ServiceChannel)
	r.requestID = 0
}
