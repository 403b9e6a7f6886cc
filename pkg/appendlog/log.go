// Package appendlog implements the schema-fixed CSV log that readings are
// appended to and that the dashboard reads back.
//
// A log has exactly one writer. Each row is rendered completely in memory and
// handed to the kernel in a single write on an O_APPEND descriptor, so a
// concurrent reader never sees a torn row, only a possibly incomplete last
// line, which readers ignore until its newline arrives.
package appendlog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/samoilenko/sensor_telemetry/pkg/reading"
)

// Logger defines the logging contract used by the log.
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// Log is an append-only CSV file with a fixed column schema.
type Log struct {
	path          Path
	logger        Logger
	flushInterval FlushInterval

	mu            sync.Mutex
	f             *os.File
	schema        reading.Schema
	headerWritten bool
	dirty         bool
}

// Open prepares the log at path. The file itself is created on the first
// append. If the file already exists its header must match schema; an empty
// schema adopts the existing header, or the fields of the first reading.
func Open(path Path, schema reading.Schema, flushInterval FlushInterval, logger Logger) (*Log, error) {
	l := &Log{
		path:          path,
		logger:        logger,
		flushInterval: flushInterval,
		schema:        schema,
	}

	existing, found, err := readHeader(string(path))
	if err != nil {
		return nil, err
	}

	if found {
		if !existing.hasSource {
			return nil, &SchemaViolationError{Path: string(path), Want: existing.schema, Got: schema}
		}
		if len(schema) > 0 && !schema.Equal(existing.schema) {
			return nil, &SchemaViolationError{Path: string(path), Want: existing.schema, Got: schema}
		}
		l.schema = existing.schema
	}

	if err := checkWritable(string(path)); err != nil {
		return nil, err
	}

	return l, nil
}

// Schema returns the column schema, or nil while it is not yet established.
func (l *Log) Schema() reading.Schema {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append(reading.Schema(nil), l.schema...)
}

// Path returns the file path of the log.
func (l *Log) Path() Path {
	return l.path
}

// Append writes one row. A reading whose fields differ from the schema is
// rejected with a SchemaViolationError and nothing is written. While the
// schema is not established, it is adopted from r once the header is on disk.
func (l *Log) Append(r reading.Reading) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	schema := l.schema
	if len(schema) == 0 {
		var err error
		schema, err = reading.NewSchema(r.Schema())
		if err != nil {
			return &SchemaViolationError{Path: string(l.path), Got: r.Schema()}
		}
	}
	if !schema.Matches(r) {
		return &SchemaViolationError{Path: string(l.path), Want: schema, Got: r.Schema()}
	}
	if err := reading.ValidateSourceID(r.SourceID); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRow, err.Error())
	}

	row, err := encodeRow(r)
	if err != nil {
		return fmt.Errorf("error on encoding row: %w", err)
	}

	if err := l.open(schema); err != nil {
		return err
	}

	if _, err := l.f.Write(row); err != nil {
		return fmt.Errorf("error on appending row: %w", err)
	}
	l.dirty = true

	return nil
}

// Reconnect closes the current file handle; the next append reopens it.
func (l *Log) Reconnect() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.closeFile()
	if openErr := l.open(l.schema); openErr != nil {
		return multierr.Append(err, openErr)
	}
	return err
}

// Sync flushes appended rows to stable storage.
func (l *Log) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sync()
}

// Start syncs the file every flush interval until the context is cancelled.
func (l *Log) Start(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(l.flushInterval))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.Sync(); err != nil {
				l.logger.Error("error on syncing %s: %s", l.path, err.Error())
			}
		}
	}
}

// Close syncs and releases the file handle.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeFile()
}

func (l *Log) sync() error {
	if l.f == nil || !l.dirty {
		return nil
	}
	l.dirty = false
	return l.f.Sync()
}

func (l *Log) closeFile() error {
	if l.f == nil {
		return nil
	}
	err := multierr.Combine(l.sync(), l.f.Close())
	l.f = nil
	l.headerWritten = false
	return err
}

// open makes sure the file exists, is open for appending and starts with the
// header of schema. The log adopts schema once its header is written.
func (l *Log) open(schema reading.Schema) error {
	if l.f == nil {
		f, err := os.OpenFile(string(l.path), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("error on opening file: %w", err)
		}

		info, err := f.Stat()
		if err != nil {
			return multierr.Append(fmt.Errorf("error on reading file info: %w", err), f.Close())
		}
		l.f = f
		l.headerWritten = info.Size() > 0
		if l.headerWritten {
			l.logger.Info("appending to existing log %s", l.path)
		}
	}

	if l.headerWritten || len(schema) == 0 {
		return nil
	}

	line, err := encodeRecord(header{schema: schema, hasSource: true}.record())
	if err != nil {
		return fmt.Errorf("error on encoding header: %w", err)
	}
	if _, err := l.f.Write(line); err != nil {
		return fmt.Errorf("error on writing header: %w", err)
	}
	l.headerWritten = true
	l.dirty = true
	l.schema = schema
	l.logger.Info("created log %s with columns %s", l.path, strings.TrimSpace(string(line)))

	return nil
}

// readHeader parses the first line of an existing, non-empty file.
func readHeader(path string) (header, bool, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return header{}, false, nil
	}
	if err != nil {
		return header{}, false, fmt.Errorf("error on opening file: %w", err)
	}
	defer func() { _ = f.Close() }()

	line, err := bufio.NewReader(f).ReadString('\n')
	if errors.Is(err, io.EOF) {
		if line == "" {
			return header{}, false, nil
		}
		return header{}, false, fmt.Errorf("%w: incomplete header in %s", ErrBadHeader, path)
	}
	if err != nil {
		return header{}, false, fmt.Errorf("error on reading header: %w", err)
	}

	h, err := parseHeader(strings.TrimSuffix(line, "\n"))
	if err != nil {
		return header{}, false, err
	}
	return h, true, nil
}

// checkWritable verifies at startup that appends to path can succeed.
func checkWritable(path string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err == nil {
		return f.Close()
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("log path is not writable: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("log directory is not writable: %w", err)
	}
	probe, err := os.CreateTemp(dir, ".appendlog-*")
	if err != nil {
		return fmt.Errorf("log directory is not writable: %w", err)
	}
	return multierr.Combine(probe.Close(), os.Remove(probe.Name()))
}
