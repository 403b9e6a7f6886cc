package domain

import (
	"errors"
	"time"
)

// Backoff bounds the delay between two subscription attempts. The delay
// starts at Min and doubles after every failed attempt up to Max.
type Backoff struct {
	Min time.Duration
	Max time.Duration
}

// NewBackoff validates the bounds.
func NewBackoff(minDelay, maxDelay time.Duration) (Backoff, error) {
	if minDelay <= 0 {
		return Backoff{}, errors.New("minimum backoff must be greater than 0")
	}
	if maxDelay < minDelay {
		return Backoff{}, errors.New("maximum backoff cannot be lower than the minimum")
	}
	return Backoff{Min: minDelay, Max: maxDelay}, nil
}

// Next returns the delay following the given one.
func (b Backoff) Next(delay time.Duration) time.Duration {
	if delay < b.Min {
		return b.Min
	}
	delay *= 2
	if delay > b.Max {
		return b.Max
	}
	return delay
}
