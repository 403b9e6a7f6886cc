// Package infrastructure provides the receiver interceptors and configuration.
package infrastructure

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/benbjohnson/clock"

	"github.com/samoilenko/sensor_telemetry/pkg/reading"
	receiverDomain "github.com/samoilenko/sensor_telemetry/receiver/domain"
)

const maxSourceIDLength = 64

// ReadingValidator rejects readings that cannot be stored faithfully.
type ReadingValidator struct {
	clock   clock.Clock
	maxSkew time.Duration
}

// Apply checks the reading of an inbound message.
func (v *ReadingValidator) Apply(msg *receiverDomain.InboundMessage) error {
	r := msg.Reading
	if len([]rune(r.SourceID)) > maxSourceIDLength {
		return fmt.Errorf("%w: source id is too long: %d chars", receiverDomain.ErrValidation, len([]rune(r.SourceID)))
	}
	if err := reading.ValidateSourceID(r.SourceID); err != nil {
		return fmt.Errorf("%w: %s", receiverDomain.ErrValidation, err.Error())
	}

	if len(r.Fields) == 0 {
		return fmt.Errorf("%w: reading has no fields", receiverDomain.ErrValidation)
	}
	for _, f := range r.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: empty field name", receiverDomain.ErrValidation)
		}
		if strings.IndexFunc(f.Name, unicode.IsControl) >= 0 {
			return fmt.Errorf("%w: field name %q contains control characters", receiverDomain.ErrValidation, f.Name)
		}
		if math.IsNaN(f.Value) || math.IsInf(f.Value, 0) {
			return fmt.Errorf("%w: field %s is not a finite number", receiverDomain.ErrValidation, f.Name)
		}
	}

	if r.Timestamp.After(v.clock.Now().Add(v.maxSkew)) {
		return fmt.Errorf("%w: timestamp is in the future: %s", receiverDomain.ErrValidation, r.Timestamp.Format(time.RFC3339))
	}

	return nil
}

// NewReadingValidator creates a validator tolerating the given clock skew
// between the collector and the receiver.
func NewReadingValidator(clk clock.Clock, maxSkew time.Duration) *ReadingValidator {
	return &ReadingValidator{clock: clk, maxSkew: maxSkew}
}
