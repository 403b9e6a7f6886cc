// Package reading defines the measurement record that flows from a device,
// through the channel, into the append logs.
package reading

import (
	"math"
	"time"
)

// Field is one named numeric measurement of a Reading.
type Field struct {
	Name  string
	Value float64
}

// Reading is one timestamped measurement tuple taken from a single device.
// Fields keep their order; the order defines the column order of a log.
type Reading struct {
	Timestamp time.Time
	SourceID  string
	Fields    []Field
}

// Schema returns the field names of the reading in order.
func (r Reading) Schema() Schema {
	names := make(Schema, 0, len(r.Fields))
	for _, f := range r.Fields {
		names = append(names, f.Name)
	}
	return names
}

// Value returns the value of the named field.
func (r Reading) Value(name string) (float64, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return math.NaN(), false
}

// Clone returns a copy that does not share the Fields slice.
func (r Reading) Clone() Reading {
	fields := make([]Field, len(r.Fields))
	copy(fields, r.Fields)
	r.Fields = fields
	return r
}
