package domain

import (
	"errors"
	"fmt"
	"time"
)

// RateLimitError is returned by an interceptor when the inbound volume
// exceeds the configured rate. Delay is the time already spent in the
// current window.
type RateLimitError struct {
	Delay   time.Duration
	Message string
}

// Error implements the error interface, returning the error message.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s, window open for %s", e.Message, e.Delay)
}

// ErrValidation marks a message rejected by validation. Wrap it with the
// details of the failed rule.
var ErrValidation = errors.New("validation failed")
