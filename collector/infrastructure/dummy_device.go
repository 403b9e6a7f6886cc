// Package infrastructure provides the concrete devices, the channel sender
// and the configuration of the collector.
package infrastructure

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/samoilenko/sensor_telemetry/pkg/reading"
)

// DummyDevice produces a random walk per field. It stands in for hardware
// during development and demos.
type DummyDevice struct {
	mu     sync.Mutex
	schema reading.Schema
	values []float64
	step   float64
	rand   *rand.Rand
}

// ReadOne returns the next sample of every field.
func (d *DummyDevice) ReadOne(ctx context.Context) ([]reading.Field, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	fields := make([]reading.Field, len(d.schema))
	for i, name := range d.schema {
		d.values[i] += (d.rand.Float64()*2 - 1) * d.step
		fields[i] = reading.Field{Name: name, Value: d.values[i]}
	}
	return fields, nil
}

// Schema returns the configured fields.
func (d *DummyDevice) Schema() reading.Schema {
	return d.schema
}

// NewDummyDevice starts every field at start and moves it by at most step
// per sample. The seed makes the sequence reproducible.
func NewDummyDevice(schema reading.Schema, start, step float64, seed uint64) *DummyDevice {
	values := make([]float64, len(schema))
	for i := range values {
		values[i] = start
	}
	return &DummyDevice{
		schema: schema,
		values: values,
		step:   step,
		rand:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}
