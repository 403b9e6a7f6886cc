package appendlog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/samoilenko/sensor_telemetry/pkg/reading"
)

// Table is the content of a log.
type Table struct {
	Schema  reading.Schema
	Rows    []reading.Reading
	Dropped int
}

// Batch is what a Reader returned from one poll.
type Batch struct {
	// Reset is set when the file shrank or disappeared; previously returned rows are stale.
	Reset   bool
	Schema  reading.Schema
	Rows    []reading.Reading
	Dropped int
}

// ReadAll returns every complete row of the log in file order.
// A missing file gives an empty table.
func ReadAll(path string) (Table, error) {
	batch, err := NewReader(path).Next()
	if err != nil {
		return Table{}, err
	}
	return Table{Schema: batch.Schema, Rows: batch.Rows, Dropped: batch.Dropped}, nil
}

// Reader reads a growing log incrementally. It remembers the offset of the
// last complete line, so each call returns only rows appended since the
// previous one.
type Reader struct {
	path   string
	offset int64
	header *header
}

// NewReader creates a Reader positioned at the start of the file.
func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// Next returns the complete rows appended since the last call.
func (r *Reader) Next() (Batch, error) {
	f, err := os.Open(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return Batch{Reset: r.rewind()}, nil
	}
	if err != nil {
		return Batch{}, fmt.Errorf("error on opening %s: %w", r.path, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return Batch{}, fmt.Errorf("error on reading file info: %w", err)
	}

	var batch Batch
	if info.Size() < r.offset {
		batch.Reset = r.rewind()
	}

	if _, err := f.Seek(r.offset, io.SeekStart); err != nil {
		return Batch{}, fmt.Errorf("error on seeking %s: %w", r.path, err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return Batch{}, fmt.Errorf("error on reading %s: %w", r.path, err)
	}

	end := bytes.LastIndexByte(data, '\n')
	if end < 0 {
		if r.header != nil {
			batch.Schema = r.header.schema
		}
		return batch, nil
	}
	data = data[:end+1]

	lines := bytes.Split(data[:end], []byte{'\n'})
	if r.header == nil {
		h, err := parseHeader(string(lines[0]))
		if err != nil {
			return Batch{}, fmt.Errorf("%s: %w", r.path, err)
		}
		r.header = &h
		lines = lines[1:]
	}
	r.offset += int64(len(data))
	batch.Schema = r.header.schema

	for _, line := range lines {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		row, err := r.header.parseRow(string(line))
		if err != nil {
			batch.Dropped++
			continue
		}
		batch.Rows = append(batch.Rows, row)
	}

	return batch, nil
}

// rewind starts over from the beginning of the file and reports whether
// anything had been read before.
func (r *Reader) rewind() bool {
	had := r.offset > 0
	r.offset = 0
	r.header = nil
	return had
}
