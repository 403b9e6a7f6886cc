package domain

import (
	"fmt"
)

// SafeFunctionRun runs fn and turns a panic into a retryable DeviceError,
// so a misbehaving driver costs one tick instead of the process.
func SafeFunctionRun(op string, fn func() error, logger Logger) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("panic in %s: %v", op, rec)
			err = &DeviceError{Kind: DeviceIO, Err: fmt.Errorf("panic in %s: %v", op, rec)}
		}
	}()
	return fn()
}
