package domain

import (
	"errors"
	"math"
	"time"
)

// RefreshInterval is how often the poller re-reads the logs.
type RefreshInterval time.Duration

// NewRefreshInterval converts a positive number of seconds into a RefreshInterval.
func NewRefreshInterval(seconds float64) (RefreshInterval, error) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return 0, errors.New("refresh interval must be a positive number of seconds")
	}
	d := time.Duration(seconds * float64(time.Second))
	if d <= 0 {
		return 0, errors.New("refresh interval is too small")
	}
	return RefreshInterval(d), nil
}

func (i RefreshInterval) String() string {
	return time.Duration(i).String()
}
