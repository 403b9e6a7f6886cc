package infrastructure

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dashboardDomain "github.com/samoilenko/sensor_telemetry/dashboard/domain"
	"github.com/samoilenko/sensor_telemetry/pkg/appendlog"
)

func paths(sources []dashboardDomain.Source) []appendlog.Path {
	out := make([]appendlog.Path, len(sources))
	for i, src := range sources {
		out[i] = src.Path
	}
	return out
}

func TestDiscoverSources(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.csv", "a.csv", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "old.csv"), 0o755))

	sources, err := DiscoverSources(dir, "fallback.csv")
	require.NoError(t, err)
	assert.Equal(t, []appendlog.Path{
		appendlog.Path(filepath.Join(dir, "a.csv")),
		appendlog.Path(filepath.Join(dir, "b.csv")),
	}, paths(sources))
	assert.Equal(t, "a.csv", sources[0].Title)

	t.Run("falls back when the directory is missing", func(t *testing.T) {
		sources, err := DiscoverSources(filepath.Join(dir, "missing"), "sensor_data.csv")
		require.NoError(t, err)
		assert.Equal(t, []appendlog.Path{"sensor_data.csv"}, paths(sources))
	})

	t.Run("falls back when the directory has no logs", func(t *testing.T) {
		sources, err := DiscoverSources(t.TempDir(), "sensor_data.csv")
		require.NoError(t, err)
		assert.Equal(t, []appendlog.Path{"sensor_data.csv"}, paths(sources))
	})

	t.Run("falls back when the path is a file", func(t *testing.T) {
		sources, err := DiscoverSources(filepath.Join(dir, "a.csv"), "sensor_data.csv")
		require.NoError(t, err)
		assert.Equal(t, []appendlog.Path{"sensor_data.csv"}, paths(sources))
	})
}

func TestSourcesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	file := NewSourcesFile(path)

	sources, err := file.Load()
	require.NoError(t, err)
	assert.Empty(t, sources, "missing file")

	require.NoError(t, os.WriteFile(path, []byte("- path: data/tank.csv\n  title: Tank\n- path: data/pool.csv\n"), 0o644))
	sources, err = file.Load()
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "Tank", sources[0].Title)
	assert.Equal(t, "pool.csv", sources[1].Title)

	require.NoError(t, file.Save(sources[1:]))
	reloaded, err := file.Load()
	require.NoError(t, err)
	require.Len(t, reloaded, 1)
	assert.Equal(t, appendlog.Path("data/pool.csv"), reloaded[0].Path)
	assert.Equal(t, "pool.csv", reloaded[0].Title)

	t.Run("invalid entries", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(bad, []byte("- title: no path\n"), 0o644))
		_, err := NewSourcesFile(bad).Load()
		assert.ErrorContains(t, err, "entry 1")

		require.NoError(t, os.WriteFile(bad, []byte("path: [\n"), 0o644))
		_, err = NewSourcesFile(bad).Load()
		assert.Error(t, err)
	})
}

func TestInitialSources(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), nil, 0o644))

	file := NewSourcesFile(filepath.Join(t.TempDir(), "sources.yaml"))
	sources, err := InitialSources(file, dir, "fallback.csv")
	require.NoError(t, err)
	assert.Equal(t, []appendlog.Path{appendlog.Path(filepath.Join(dir, "a.csv"))}, paths(sources))

	require.NoError(t, file.Save([]dashboardDomain.Source{{Path: "data/tank.csv", Title: "Tank"}}))
	sources, err = InitialSources(file, dir, "fallback.csv")
	require.NoError(t, err)
	assert.Equal(t, []appendlog.Path{"data/tank.csv"}, paths(sources))

	sources, err = InitialSources(nil, filepath.Join(dir, "missing"), "fallback.csv")
	require.NoError(t, err)
	assert.Equal(t, []appendlog.Path{"fallback.csv"}, paths(sources))
}
