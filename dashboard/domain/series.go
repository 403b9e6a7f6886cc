package domain

import (
	"github.com/samoilenko/sensor_telemetry/pkg/appendlog"
	"github.com/samoilenko/sensor_telemetry/pkg/reading"
)

// Series is everything read so far from one source.
type Series struct {
	Schema  reading.Schema
	Rows    []reading.Reading
	Dropped int
	// Err is the last read error; the rows read before it are kept.
	Err error
}

// apply merges one poll into the series and reports whether it changed.
// Rows are only discarded when the file was truncated or removed.
func (s *Series) apply(batch appendlog.Batch) bool {
	changed := false
	if batch.Reset {
		changed = len(s.Rows) > 0 || s.Dropped > 0 || len(s.Schema) > 0
		s.Rows = nil
		s.Dropped = 0
		s.Schema = nil
	}
	if batch.Schema != nil && !s.Schema.Equal(batch.Schema) {
		s.Schema = batch.Schema
		changed = true
	}
	if len(batch.Rows) > 0 {
		s.Rows = append(s.Rows, batch.Rows...)
		changed = true
	}
	if batch.Dropped > 0 {
		s.Dropped += batch.Dropped
		changed = true
	}
	if s.Err != nil {
		s.Err = nil
		changed = true
	}
	return changed
}

func (s *Series) clone() Series {
	return Series{
		Schema:  s.Schema,
		Rows:    append([]reading.Reading(nil), s.Rows...),
		Dropped: s.Dropped,
		Err:     s.Err,
	}
}
