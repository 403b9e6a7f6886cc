package appendlog

import (
	"errors"
	"fmt"

	"github.com/samoilenko/sensor_telemetry/pkg/reading"
)

// ErrBadHeader is returned when the first line of a log is not a valid header.
var ErrBadHeader = errors.New("invalid log header")

// ErrInvalidRow is returned for a reading that cannot be stored as one row.
var ErrInvalidRow = errors.New("invalid row")

// SchemaViolationError is returned when a reading or an existing file does
// not match the schema of the log. It is fatal for the writer.
type SchemaViolationError struct {
	Path string
	Want reading.Schema
	Got  reading.Schema
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("schema violation in %s: log columns [%s], got [%s]", e.Path, e.Want, e.Got)
}

// IsSchemaViolation reports whether err is or wraps a SchemaViolationError.
func IsSchemaViolation(err error) bool {
	var violation *SchemaViolationError
	return errors.As(err, &violation)
}
