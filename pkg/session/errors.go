package session

import (
	"errors"
	"fmt"

	"github.com/openxbox/smartglass/pkg/packet"
)

var (
	// ErrNoCrypto indicates a session operation attempted before a crypto
	// context was installed.
	ErrNoCrypto = errors.New("session: no crypto context")

	// ErrAnonymousNotAllowed indicates an anonymous connect against a
	// console whose flags do not permit anonymous users.
	ErrAnonymousNotAllowed = errors.New("session: console does not allow anonymous connections")

	// ErrAlreadyConnected indicates a connect attempt on a live session.
	ErrAlreadyConnected = errors.New("session: already connected")

	// ErrNotConnected indicates a session operation that requires an
	// established session.
	ErrNotConnected = errors.New("session: not connected")

	// ErrAckTimeout indicates a blocking send whose acknowledgement did
	// not arrive within the timeout.
	ErrAckTimeout = errors.New("session: timed out waiting for acknowledgement")

	// ErrRetriesExhausted indicates a blocking send that was retried the
	// configured number of times without ever being acknowledged.
	ErrRetriesExhausted = errors.New("session: retries exhausted")

	// ErrCancelled indicates a pending wait resolved by cancellation or
	// disconnect.
	ErrCancelled = errors.New("session: cancelled")

	// ErrChannelNotOpen indicates a send on a service channel that has no
	// negotiated channel id.
	ErrChannelNotOpen = errors.New("session: service channel not open")

	// ErrChannelUnknown indicates an inbound channel id with no mapping.
	ErrChannelUnknown = errors.New("session: unknown channel id")

	// ErrChannelRequestUnknown indicates a StartChannelResponse whose
	// request id matches no pending request.
	ErrChannelRequestUnknown = errors.New("session: channel request id not found")

	// ErrAuthTooSmallToFragment indicates connect authentication data that
	// fits a single request and therefore must not be fragmented.
	ErrAuthTooSmallToFragment = errors.New("session: authentication data too small to fragment")

	// ErrUnknownFragmentedMessageType indicates reassembled fragment data
	// whose declared message type has no payload schema.
	ErrUnknownFragmentedMessageType = errors.New("session: unknown fragmented message type")
)

// ConnectFailedError reports a ConnectResponse with a non-success result.
type ConnectFailedError struct {
	Result packet.ConnectionResult
}

// Error implements the error interface.
func (e *ConnectFailedError) Error() string {
	return fmt.Sprintf("session: connect failed: %v", e.Result)
}

// ChannelStartFailedError reports a StartChannelResponse with a
// non-success result code.
type ChannelStartFailedError struct {
	Channel ServiceChannel
	Code    packet.SGResultCode
}

// Error implements the error interface.
func (e *ChannelStartFailedError) Error() string {
	return fmt.Sprintf("session: starting channel %v failed: 0x%08x", e.Channel, uint32(e.Code))
}
