package appendlog

import (
	"math"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samoilenko/sensor_telemetry/pkg/reading"
)

func TestReadAll_MissingFile(t *testing.T) {
	table, err := ReadAll(createTempFile(t))
	require.NoError(t, err)
	assert.Empty(t, table.Rows)
	assert.Empty(t, table.Schema)
}

func TestReadAll_LegacyFile(t *testing.T) {
	path := createTempFile(t)
	content := "time,value\r\n" +
		"2025-03-01T10:00:00.123456,1200\r\n" +
		"2025-03-01T10:00:05.123456,1210\r\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := ReadAll(path)
	require.NoError(t, err)
	assert.Equal(t, reading.Schema{"value"}, table.Schema)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "", table.Rows[0].SourceID)
	assert.Equal(t, 1210.0, table.Rows[1].Fields[0].Value)
	assert.Equal(t, 10, table.Rows[0].Timestamp.Hour())
}

func TestReadAll_DropsBadRows(t *testing.T) {
	path := createTempFile(t)
	content := "time,source_id,value,pH\n" +
		"2025-03-01T10:00:00Z,a,1,7.1\n" +
		"not-a-time,a,2,7.2\n" +
		"2025-03-01T10:00:02Z,a,abc,7.3\n" +
		"2025-03-01T10:00:03Z,a,4\n" +
		"\n" +
		"2025-03-01T10:00:04Z,a,5,\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := ReadAll(path)
	require.NoError(t, err)
	assert.Equal(t, 3, table.Dropped)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, 5.0, table.Rows[1].Fields[0].Value)
	assert.True(t, math.IsNaN(table.Rows[1].Fields[1].Value), "empty cell is a missing measurement")
}

func TestReadAll_BadHeader(t *testing.T) {
	path := createTempFile(t)
	require.NoError(t, os.WriteFile(path, []byte("value,time\n1,2\n"), 0o644))

	_, err := ReadAll(path)
	assert.ErrorIs(t, err, ErrBadHeader)
}

func TestReader_IgnoresIncompleteLine(t *testing.T) {
	path := createTempFile(t)
	require.NoError(t, os.WriteFile(path, []byte("time,source_id,value\n2025-03-01T10:00:00Z,a,1\n2025-03-01T10:00:01Z,a,"), 0o644))

	r := NewReader(path)
	batch, err := r.Next()
	require.NoError(t, err)
	require.Len(t, batch.Rows, 1)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString("2\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	batch, err = r.Next()
	require.NoError(t, err)
	require.Len(t, batch.Rows, 1)
	assert.Equal(t, 2.0, batch.Rows[0].Fields[0].Value)
	assert.Zero(t, batch.Dropped)
}

func TestReader_RepeatedPollWithoutWritesIsEmpty(t *testing.T) {
	path := createTempFile(t)
	l := openLog(t, path, reading.Schema{"temperature", "humidity"})
	require.NoError(t, l.Append(climate(time.Now(), 1, 2)))

	r := NewReader(path)
	first, err := r.Next()
	require.NoError(t, err)
	assert.Len(t, first.Rows, 1)

	for i := 0; i < 3; i++ {
		again, err := r.Next()
		require.NoError(t, err)
		assert.Empty(t, again.Rows)
		assert.False(t, again.Reset)
		assert.Equal(t, first.Schema, again.Schema)
	}
}

func TestReader_ResetWhenFileShrinks(t *testing.T) {
	path := createTempFile(t)
	require.NoError(t, os.WriteFile(path, []byte("time,source_id,value\n2025-03-01T10:00:00Z,a,1\n2025-03-01T10:00:01Z,a,2\n"), 0o644))

	r := NewReader(path)
	batch, err := r.Next()
	require.NoError(t, err)
	require.Len(t, batch.Rows, 2)

	require.NoError(t, os.WriteFile(path, []byte("time,source_id,value\n2025-03-01T11:00:00Z,b,9\n"), 0o644))
	batch, err = r.Next()
	require.NoError(t, err)
	assert.True(t, batch.Reset)
	require.Len(t, batch.Rows, 1)
	assert.Equal(t, "b", batch.Rows[0].SourceID)

	require.NoError(t, os.Remove(path))
	batch, err = r.Next()
	require.NoError(t, err)
	assert.True(t, batch.Reset)
	assert.Empty(t, batch.Rows)
}
