package errorutil

import (
	"errors"
	"net"
)

// IsTimeoutErr returns true if the error is a timeout error.
func IsTimeoutErr(err error) bool {
	var e interface{ Timeout() bool }
	return errors.As(err, &e) && e.Timeout()
}

// IsClosedConnErr returns true if the error was caused by use of a closed network connection.
func IsClosedConnErr(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
