package appendlog

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/samoilenko/sensor_telemetry/pkg/reading"
)

// header describes the column layout of a log. Files written by this package
// always carry the source_id column; older files may not.
type header struct {
	schema    reading.Schema
	hasSource bool
}

func (h header) columns() int {
	if h.hasSource {
		return len(h.schema) + 2
	}
	return len(h.schema) + 1
}

func (h header) record() []string {
	record := make([]string, 0, h.columns())
	record = append(record, reading.TimeColumn)
	if h.hasSource {
		record = append(record, reading.SourceIDColumn)
	}
	return append(record, h.schema...)
}

func parseHeader(line string) (header, error) {
	record, err := parseLine(line)
	if err != nil {
		return header{}, fmt.Errorf("%w: %s", ErrBadHeader, err.Error())
	}
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}

	if len(record) < 2 || record[0] != reading.TimeColumn {
		return header{}, fmt.Errorf("%w: want %q as first column, got %q", ErrBadHeader, reading.TimeColumn, line)
	}

	h := header{}
	names := record[1:]
	if names[0] == reading.SourceIDColumn {
		h.hasSource = true
		names = names[1:]
	}

	h.schema, err = reading.NewSchema(names)
	if err != nil {
		return header{}, fmt.Errorf("%w: %s", ErrBadHeader, err.Error())
	}
	return h, nil
}

// parseRow turns one line into a reading. Empty cells become NaN; any other
// non-numeric cell rejects the row.
func (h header) parseRow(line string) (reading.Reading, error) {
	record, err := parseLine(line)
	if err != nil {
		return reading.Reading{}, err
	}
	if len(record) != h.columns() {
		return reading.Reading{}, fmt.Errorf("row has %d columns, header has %d", len(record), h.columns())
	}

	ts, err := reading.ParseTime(record[0])
	if err != nil {
		return reading.Reading{}, err
	}

	r := reading.Reading{Timestamp: ts, Fields: make([]reading.Field, 0, len(h.schema))}
	values := record[1:]
	if h.hasSource {
		r.SourceID = record[1]
		values = record[2:]
	}

	for i, raw := range values {
		raw = strings.TrimSpace(raw)
		v := math.NaN()
		if raw != "" {
			v, err = strconv.ParseFloat(raw, 64)
			if err != nil {
				return reading.Reading{}, fmt.Errorf("column %q: %w", h.schema[i], err)
			}
		}
		r.Fields = append(r.Fields, reading.Field{Name: h.schema[i], Value: v})
	}

	return r, nil
}

func parseLine(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(strings.TrimSuffix(line, "\r")))
	r.FieldsPerRecord = -1
	return r.Read()
}

// encodeRecord renders one newline terminated CSV line.
func encodeRecord(record []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(record); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeRow(r reading.Reading) ([]byte, error) {
	record := make([]string, 0, len(r.Fields)+2)
	record = append(record, reading.FormatTime(r.Timestamp), r.SourceID)
	for _, f := range r.Fields {
		record = append(record, strconv.FormatFloat(f.Value, 'f', -1, 64))
	}
	return encodeRecord(record)
}
