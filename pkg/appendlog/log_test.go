package appendlog

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samoilenko/sensor_telemetry/pkg/reading"
)

type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (m *mockLogger) Error(msg string, _ ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

func (m *mockLogger) Info(_ string, _ ...interface{}) {}

// createTempFile returns a path inside a fresh temporary directory; the file itself does not exist.
func createTempFile(tb testing.TB) string {
	tb.Helper()
	return filepath.Join(tb.TempDir(), "sensor_data.csv")
}

func climate(ts time.Time, temperature, humidity float64) reading.Reading {
	return reading.Reading{
		Timestamp: ts,
		SourceID:  "27eU",
		Fields: []reading.Field{
			{Name: "temperature", Value: temperature},
			{Name: "humidity", Value: humidity},
		},
	}
}

func openLog(t *testing.T, path string, schema reading.Schema) *Log {
	t.Helper()
	l, err := Open(Path(path), schema, FlushInterval(time.Second), &mockLogger{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestLog_AppendCreatesHeaderOnFirstWrite(t *testing.T) {
	path := createTempFile(t)
	l := openLog(t, path, reading.Schema{"temperature", "humidity"})

	_, err := os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist, "file must not exist before the first append")

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, l.Append(climate(base, 21.5, 40)))
	require.NoError(t, l.Append(climate(base.Add(time.Second), 21.6, 41)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "time,source_id,temperature,humidity", lines[0])
	assert.Equal(t, "2025-03-01T10:00:00Z,27eU,21.5,40", lines[1])
	assert.Equal(t, "2025-03-01T10:00:01Z,27eU,21.6,41", lines[2])
}

func TestLog_RoundTrip(t *testing.T) {
	path := createTempFile(t)
	l := openLog(t, path, reading.Schema{"temperature", "humidity"})

	base := time.Date(2025, 3, 1, 10, 0, 0, 987654321, time.UTC)
	written := []reading.Reading{
		climate(base, 21.5, 40),
		climate(base.Add(time.Second), 21.6, 41),
		climate(base.Add(2*time.Second), 21.4, 39),
	}
	for _, r := range written {
		require.NoError(t, l.Append(r))
	}

	table, err := ReadAll(path)
	require.NoError(t, err)
	assert.Equal(t, reading.Schema{"temperature", "humidity"}, table.Schema)
	assert.Zero(t, table.Dropped)
	require.Len(t, table.Rows, len(written))
	for i := range written {
		assert.True(t, written[i].Timestamp.Equal(table.Rows[i].Timestamp))
		assert.Equal(t, written[i].SourceID, table.Rows[i].SourceID)
		assert.Equal(t, written[i].Fields, table.Rows[i].Fields)
	}
}

func TestLog_SchemaViolationOnAppend(t *testing.T) {
	path := createTempFile(t)
	l := openLog(t, path, reading.Schema{"temperature", "humidity"})
	require.NoError(t, l.Append(climate(time.Now(), 1, 2)))

	err := l.Append(reading.Reading{
		Timestamp: time.Now(),
		Fields:    []reading.Field{{Name: "temperature", Value: 1}},
	})
	var violation *SchemaViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, reading.Schema{"temperature", "humidity"}, violation.Want)
	assert.Equal(t, reading.Schema{"temperature"}, violation.Got)

	table, err := ReadAll(path)
	require.NoError(t, err)
	assert.Len(t, table.Rows, 1)
}

func TestOpen_ExistingHeader(t *testing.T) {
	path := createTempFile(t)
	require.NoError(t, os.WriteFile(path, []byte("time,source_id,temperature,humidity\n"), 0o644))

	t.Run("mismatched schema", func(t *testing.T) {
		_, err := Open(Path(path), reading.Schema{"value"}, FlushInterval(time.Second), &mockLogger{})
		assert.True(t, IsSchemaViolation(err))
	})

	t.Run("empty schema adopts header", func(t *testing.T) {
		l := openLog(t, path, nil)
		assert.Equal(t, reading.Schema{"temperature", "humidity"}, l.Schema())

		require.NoError(t, l.Append(climate(time.Now(), 1, 2)))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, 1, strings.Count(string(data), "time,source_id"), "header must not be repeated")
	})
}

func TestOpen_LegacyHeaderIsNotWritable(t *testing.T) {
	path := createTempFile(t)
	require.NoError(t, os.WriteFile(path, []byte("time,value\r\n"), 0o644))

	_, err := Open(Path(path), reading.Schema{"value"}, FlushInterval(time.Second), &mockLogger{})
	assert.True(t, IsSchemaViolation(err))
}

func TestOpen_UnwritablePath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := Open(Path(filepath.Join(blocker, "log.csv")), nil, FlushInterval(time.Second), &mockLogger{})
	assert.Error(t, err)
}

func TestLog_SchemaFromFirstReading(t *testing.T) {
	path := createTempFile(t)
	l := openLog(t, path, nil)
	assert.Empty(t, l.Schema())

	require.NoError(t, l.Append(climate(time.Now(), 1, 2)))
	assert.Equal(t, reading.Schema{"temperature", "humidity"}, l.Schema())
}

func TestLog_RejectedFirstReadingLeavesSchemaOpen(t *testing.T) {
	path := createTempFile(t)
	l := openLog(t, path, nil)

	err := l.Append(reading.Reading{
		Timestamp: time.Now(),
		Fields:    []reading.Field{{Name: " value", Value: 1}},
	})
	require.True(t, IsSchemaViolation(err))
	assert.Empty(t, l.Schema())

	bad := climate(time.Now(), 1, 2)
	bad.SourceID = "27eU\ntime,source_id,temperature,humidity"
	require.ErrorIs(t, l.Append(bad), ErrInvalidRow)
	assert.Empty(t, l.Schema())
	_, err = os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist, "nothing may be written for rejected readings")

	require.NoError(t, l.Append(climate(time.Now(), 1, 2)))
	assert.Equal(t, reading.Schema{"temperature", "humidity"}, l.Schema())

	table, err := ReadAll(path)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "27eU", table.Rows[0].SourceID)
}

func TestLog_ReconnectKeepsAppending(t *testing.T) {
	path := createTempFile(t)
	l := openLog(t, path, reading.Schema{"temperature", "humidity"})

	require.NoError(t, l.Append(climate(time.Now(), 1, 2)))
	require.NoError(t, l.Reconnect())
	require.NoError(t, l.Append(climate(time.Now(), 3, 4)))
	require.NoError(t, l.Sync())
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	table, err := ReadAll(path)
	require.NoError(t, err)
	assert.Len(t, table.Rows, 2)
}

func TestLog_ConcurrentReaderNeverSeesTornRows(t *testing.T) {
	path := createTempFile(t)
	l := openLog(t, path, reading.Schema{"temperature", "humidity"})

	const rows = 300
	done := make(chan struct{})
	go func() {
		defer close(done)
		base := time.Now()
		for i := 0; i < rows; i++ {
			_ = l.Append(climate(base.Add(time.Duration(i)*time.Millisecond), float64(i), float64(i*2)))
		}
	}()

	reader := NewReader(path)
	total := 0
	for finished := false; !finished; {
		select {
		case <-done:
			finished = true
		default:
		}

		batch, err := reader.Next()
		require.NoError(t, err)
		require.False(t, batch.Reset)
		require.Zero(t, batch.Dropped)
		for _, r := range batch.Rows {
			require.Len(t, r.Fields, 2)
			require.Equal(t, float64(total), r.Fields[0].Value)
			total++
		}
	}

	batch, err := reader.Next()
	require.NoError(t, err)
	total += len(batch.Rows)
	assert.Equal(t, rows, total)
}
