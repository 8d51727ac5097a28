package channels

import "errors"

var (
	// ErrUnexpectedMessage indicates a message type that does not belong
	// on the manager's service channel.
	ErrUnexpectedMessage = errors.New("channels: unexpected message on channel")

	// ErrNoActiveTextSession indicates a text operation without an active
	// text session.
	ErrNoActiveTextSession = errors.New("channels: no active text session")

	// ErrSeekPositionRequired indicates a Seek media command without a
	// seek position.
	ErrSeekPositionRequired = errors.New("channels: seek command requires a seek position")

	// ErrNotAcknowledged indicates a message the peer did not acknowledge
	// as processed.
	ErrNotAcknowledged = errors.New("channels: message was not acknowledged")
)
