package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DeviceErrorKind classifies a failed device read.
type DeviceErrorKind string

// Device error kinds. Only DeviceNotFound is fatal.
const (
	DeviceTimeout   DeviceErrorKind = "timeout"
	DeviceIO        DeviceErrorKind = "io"
	DeviceMalformed DeviceErrorKind = "malformed"
	DeviceNotFound  DeviceErrorKind = "not-found"
)

// DeviceError is returned by a Device when it cannot produce a sample.
type DeviceError struct {
	Kind DeviceErrorKind
	Err  error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device %s: %s", e.Kind, e.Err.Error())
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the collector may skip the tick and continue.
func (e *DeviceError) Retryable() bool {
	return e.Kind != DeviceNotFound
}

// asDeviceError classifies any error coming out of a device read.
func asDeviceError(err error) *DeviceError {
	var deviceErr *DeviceError
	if errors.As(err, &deviceErr) {
		return deviceErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &DeviceError{Kind: DeviceTimeout, Err: err}
	}
	return &DeviceError{Kind: DeviceIO, Err: err}
}

// CooldownError is returned by a ReadingSender that skips publishing for a
// while after a transport failure.
type CooldownError struct {
	Delay time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("publishing paused for %s", e.Delay)
}
