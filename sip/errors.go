package sip

import "github.com/ghettovoice/sipsanity/internal/errorutil"

// Common errors.
const (
	ErrInvalidArgument = errorutil.ErrInvalidArgument
)

// Message errors.
const (
	ErrInvalidMessage  Error = "invalid message"
	ErrMissingHeaders  Error = "missing mandatory headers"
	ErrMalformedHeader Error = "malformed header"
)

// Transport errors.
const (
	// ErrInvalidTransport is returned when a transport does not expose the required capabilities.
	ErrInvalidTransport Error = "invalid transport"
	// ErrTransportNotConnected is returned when sending through a disconnected transport.
	ErrTransportNotConnected Error = "transport not connected"
	// ErrTransportClosed is returned when attempting to use a closed transport.
	ErrTransportClosed   Error = "transport closed"
	ErrTransportExists   Error = "transport already registered"
	ErrTransportNotFound Error = "transport not found"
)

// Error represents a SIP error.
// See [errorutil.Error].
type Error = errorutil.Error

// NewInvalidArgumentError creates a new error with [ErrInvalidArgument] or
// wraps provided error with [ErrInvalidArgument].
func NewInvalidArgumentError(args ...any) error {
	return errorutil.NewInvalidArgumentError(args...) //errtrace:skip
}

func newMalformedHeaderError(args ...any) error {
	return errorutil.NewWrapperError(ErrMalformedHeader, args...) //errtrace:skip
}

func newInvalidMessageError(args ...any) error {
	return errorutil.NewWrapperError(ErrInvalidMessage, args...) //errtrace:skip
}
