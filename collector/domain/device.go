package domain

import (
	"context"

	"github.com/samoilenko/sensor_telemetry/pkg/reading"
)

// Device is a data source of samples. It is never called concurrently.
type Device interface {
	// ReadOne blocks until the device yields a sample or the context expires.
	// Failures are reported as *DeviceError.
	ReadOne(ctx context.Context) ([]reading.Field, error)
	// Schema returns the field names of every sample, in order.
	Schema() reading.Schema
}
