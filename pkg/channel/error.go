package channel

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by Publish while the transport has no live connection.
	ErrNotConnected = errors.New("transport is not connected")
	// ErrConnectionClosed ends a subscription whose connection was closed by the transport.
	ErrConnectionClosed = errors.New("connection closed")
)

// TransportError wraps a failure of a publish or subscribe operation.
// It is never fatal: publishers log and continue, subscribers reconnect.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %s", e.Op, e.Err.Error())
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
