package domain

import "errors"

// RateLimit is the maximum accepted inbound payload volume in bytes per
// second. Zero means unlimited.
type RateLimit uint32

// NewRateLimit validates that the limit is not negative.
func NewRateLimit(val int) (RateLimit, error) {
	if val < 0 {
		return 0, errors.New("rate limit cannot be negative")
	}
	return RateLimit(val), nil
}

// Enabled reports whether a limit is configured.
func (r RateLimit) Enabled() bool {
	return r > 0
}
