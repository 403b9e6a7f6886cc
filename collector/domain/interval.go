package domain

import (
	"errors"
	"math"
	"time"
)

// Interval is the sampling cadence of the collector.
type Interval time.Duration

// NewInterval converts a positive number of seconds into an Interval.
func NewInterval(seconds float64) (Interval, error) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return 0, errors.New("interval must be a positive number of seconds")
	}
	d := time.Duration(seconds * float64(time.Second))
	if d <= 0 {
		return 0, errors.New("interval is too small")
	}
	return Interval(d), nil
}

func (i Interval) String() string {
	return time.Duration(i).String()
}
