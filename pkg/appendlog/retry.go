package appendlog

import (
	"errors"

	"github.com/samoilenko/sensor_telemetry/pkg/reading"
)

// Appender is the writer side of a log.
type Appender interface {
	Append(r reading.Reading) error
	Reconnect() error
}

// Outcome reports how AppendWithRetry ended.
type Outcome string

// Outcomes of AppendWithRetry.
const (
	Appended Outcome = "appended"
	Retried  Outcome = "retried"
	Dropped  Outcome = "dropped"
	Rejected Outcome = "rejected"
)

// AppendWithRetry appends r. After a failed append it reopens the file and
// tries exactly once more; if that fails too the row is dropped and the last
// error returned with Dropped. Schema violations are never retried, and
// neither are rows that can never be stored.
func AppendWithRetry(a Appender, r reading.Reading) (Outcome, error) {
	err := a.Append(r)
	if err == nil {
		return Appended, nil
	}
	if IsSchemaViolation(err) {
		return Rejected, err
	}
	if errors.Is(err, ErrInvalidRow) {
		return Dropped, err
	}

	if reconnectErr := a.Reconnect(); reconnectErr != nil {
		return Dropped, reconnectErr
	}

	if err := a.Append(r); err != nil {
		if IsSchemaViolation(err) {
			return Rejected, err
		}
		return Dropped, err
	}
	return Retried, nil
}
