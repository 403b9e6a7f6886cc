package infrastructure

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// RetryAfterDelay holds the moment until which publishing is paused.
type RetryAfterDelay struct {
	mu    sync.RWMutex
	clock clock.Clock
	until time.Time
}

// Get returns how long publishing stays paused, zero when it is not.
func (d *RetryAfterDelay) Get() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	remaining := d.until.Sub(d.clock.Now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Set pauses publishing for the given delay from now.
func (d *RetryAfterDelay) Set(delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.until = d.clock.Now().Add(delay)
}

// Reset clears the pause.
func (d *RetryAfterDelay) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.until = time.Time{}
}

// NewRetryAfterDelay creates a RetryAfterDelay with no pause in effect.
func NewRetryAfterDelay(clk clock.Clock) *RetryAfterDelay {
	return &RetryAfterDelay{clock: clk}
}
