package reading

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMalformedPayload is returned when a channel payload cannot be turned into a Reading.
var ErrMalformedPayload = errors.New("malformed payload")

// legacyField is the field name given to the single value of a legacy payload.
const legacyField = "value"

// Meta identifies one published envelope.
type Meta struct {
	MessageID string
	Seq       int64
}

type wireField struct {
	Name  string   `json:"name"`
	Value *float64 `json:"value"`
}

// envelope is the JSON document carried over the channel. ValueMV is only
// set by legacy publishers that send {"time": ..., "value_mV": ...}.
type envelope struct {
	MessageID string      `json:"message_id,omitempty"`
	Seq       int64       `json:"seq,omitempty"`
	Time      string      `json:"time,omitempty"`
	SourceID  string      `json:"source_id,omitempty"`
	Fields    []wireField `json:"fields,omitempty"`
	ValueMV   *float64    `json:"value_mV,omitempty"`
}

// Encode serializes the reading into a channel payload.
func Encode(r Reading, meta Meta) ([]byte, error) {
	env := envelope{
		MessageID: meta.MessageID,
		Seq:       meta.Seq,
		Time:      FormatTime(r.Timestamp),
		SourceID:  r.SourceID,
		Fields:    make([]wireField, 0, len(r.Fields)),
	}
	for _, f := range r.Fields {
		v := f.Value
		env.Fields = append(env.Fields, wireField{Name: f.Name, Value: &v})
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode reading: %w", err)
	}
	return data, nil
}

// Decode parses a channel payload. A payload without a time is stamped with
// receivedAt. Every failure wraps ErrMalformedPayload.
func Decode(payload []byte, receivedAt time.Time) (Reading, Meta, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Reading{}, Meta{}, fmt.Errorf("%w: %s", ErrMalformedPayload, err.Error())
	}

	fields, err := env.fields()
	if err != nil {
		return Reading{}, Meta{}, err
	}

	if err := ValidateSourceID(env.SourceID); err != nil {
		return Reading{}, Meta{}, fmt.Errorf("%w: %s", ErrMalformedPayload, err.Error())
	}

	timestamp := receivedAt
	if env.Time != "" {
		timestamp, err = ParseTime(env.Time)
		if err != nil {
			return Reading{}, Meta{}, fmt.Errorf("%w: %s", ErrMalformedPayload, err.Error())
		}
	}

	r := Reading{
		Timestamp: timestamp,
		SourceID:  env.SourceID,
		Fields:    fields,
	}
	return r, Meta{MessageID: env.MessageID, Seq: env.Seq}, nil
}

func (e envelope) fields() ([]Field, error) {
	switch {
	case len(e.Fields) > 0 && e.ValueMV != nil:
		return nil, fmt.Errorf("%w: both fields and value_mV are set", ErrMalformedPayload)
	case e.ValueMV != nil:
		return []Field{{Name: legacyField, Value: *e.ValueMV}}, nil
	case len(e.Fields) == 0:
		return nil, fmt.Errorf("%w: no measurements", ErrMalformedPayload)
	}

	names := make([]string, 0, len(e.Fields))
	fields := make([]Field, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Value == nil {
			return nil, fmt.Errorf("%w: field %q has no value", ErrMalformedPayload, f.Name)
		}
		names = append(names, f.Name)
		fields = append(fields, Field{Name: f.Name, Value: *f.Value})
	}
	if _, err := NewSchema(names); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedPayload, err.Error())
	}

	return fields, nil
}
