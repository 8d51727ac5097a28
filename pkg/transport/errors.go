package transport

import "errors"

var (
	// ErrNoHandler is returned when no datagram handler is configured.
	ErrNoHandler = errors.New("transport: no datagram handler provided")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("transport: already started")

	// ErrClosed is returned for operations on a stopped transport.
	ErrClosed = errors.New("transport: closed")

	// ErrInvalidAddress is returned when sending to a nil address.
	ErrInvalidAddress = errors.New("transport: invalid address")
)
