package infrastructure

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"

	"github.com/samoilenko/sensor_telemetry/pkg/reading"
	receiverDomain "github.com/samoilenko/sensor_telemetry/receiver/domain"
)

func TestReadingValidator_Apply(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	validator := NewReadingValidator(clk, time.Minute)

	valid := func() reading.Reading {
		return reading.Reading{
			Timestamp: clk.Now(),
			SourceID:  "27eU",
			Fields:    []reading.Field{{Name: "value", Value: 1234}},
		}
	}

	tests := []struct {
		name    string
		modify  func(r *reading.Reading)
		wantErr bool
	}{
		{name: "valid", modify: func(_ *reading.Reading) {}},
		{name: "old readings are accepted", modify: func(r *reading.Reading) { r.Timestamp = r.Timestamp.Add(-48 * time.Hour) }},
		{name: "small clock skew", modify: func(r *reading.Reading) { r.Timestamp = r.Timestamp.Add(30 * time.Second) }},
		{name: "far future", modify: func(r *reading.Reading) { r.Timestamp = r.Timestamp.Add(time.Hour) }, wantErr: true},
		{name: "no fields", modify: func(r *reading.Reading) { r.Fields = nil }, wantErr: true},
		{name: "empty field name", modify: func(r *reading.Reading) { r.Fields[0].Name = "" }, wantErr: true},
		{name: "NaN", modify: func(r *reading.Reading) { r.Fields[0].Value = math.NaN() }, wantErr: true},
		{name: "infinity", modify: func(r *reading.Reading) { r.Fields[0].Value = math.Inf(-1) }, wantErr: true},
		{name: "long source id", modify: func(r *reading.Reading) { r.SourceID = strings.Repeat("x", 65) }, wantErr: true},
		{name: "newline in source id", modify: func(r *reading.Reading) { r.SourceID = "27eU\n1" }, wantErr: true},
		{name: "carriage return in field name", modify: func(r *reading.Reading) { r.Fields[0].Name = "value\r" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.modify(&r)
			err := validator.Apply(&receiverDomain.InboundMessage{Reading: r})
			if tt.wantErr {
				assert.ErrorIs(t, err, receiverDomain.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
