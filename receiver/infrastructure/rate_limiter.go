package infrastructure

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	receiverDomain "github.com/samoilenko/sensor_telemetry/receiver/domain"
)

// RateLimiter implements a fixed window limit on the payload volume of
// inbound messages.
type RateLimiter struct {
	last       time.Time
	mu         sync.Mutex
	clock      clock.Clock
	timeWindow time.Duration
	maxLimit   receiverDomain.RateLimit
	limit      int
}

// Apply accounts the payload size of msg.
//
// The rate limiter uses a fixed window approach:
// - If the window has elapsed since the last reset, it starts a new window
// - Otherwise, it accumulates the message size and checks against the limit
// - Messages exceeding the limit are rejected with a RateLimitError
func (r *RateLimiter) Apply(msg *receiverDomain.InboundMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	elapsed := now.Sub(r.last)
	size := len(msg.Payload)
	if elapsed >= r.timeWindow {
		r.last = now
		r.limit = size

		return nil
	}

	r.limit += size
	if r.limit > int(r.maxLimit) {
		return &receiverDomain.RateLimitError{
			Message: "rate limit exceeded",
			Delay:   elapsed,
		}
	}

	return nil
}

// NewRateLimiter creates a new rate limiter instance with the specified maximum limit.
func NewRateLimiter(maxLimit receiverDomain.RateLimit, timeWindow time.Duration, clk clock.Clock) *RateLimiter {
	return &RateLimiter{
		maxLimit:   maxLimit,
		timeWindow: timeWindow,
		clock:      clk,
	}
}
