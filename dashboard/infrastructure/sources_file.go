// Package infrastructure wires the dashboard to the outside world: source
// discovery, the YAML sources file, the HTTP API and the websocket hub.
package infrastructure

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"gopkg.in/yaml.v3"

	dashboardDomain "github.com/samoilenko/sensor_telemetry/dashboard/domain"
)

type sourceEntry struct {
	Path  string `yaml:"path"`
	Title string `yaml:"title,omitempty"`
}

// SourcesFile keeps the chart sources in a YAML list of {path, title}.
type SourcesFile struct {
	path string
}

// NewSourcesFile creates a store backed by the given file.
func NewSourcesFile(path string) *SourcesFile {
	return &SourcesFile{path: path}
}

// Load reads the sources. A missing file gives no sources.
func (f *SourcesFile) Load() ([]dashboardDomain.Source, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error on reading sources file: %w", err)
	}

	var entries []sourceEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("error on parsing sources file %s: %w", f.path, err)
	}

	sources := make([]dashboardDomain.Source, 0, len(entries))
	for i, e := range entries {
		src, err := dashboardDomain.NewSource(e.Path, e.Title)
		if err != nil {
			return nil, fmt.Errorf("sources file %s, entry %d: %w", f.path, i+1, err)
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// Save replaces the file content atomically.
func (f *SourcesFile) Save(sources []dashboardDomain.Source) error {
	entries := make([]sourceEntry, len(sources))
	for i, src := range sources {
		entries[i] = sourceEntry{Path: string(src.Path), Title: src.Title}
	}

	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("error on encoding sources: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("error on writing sources file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("error on replacing sources file: %w", err)
	}
	return nil
}

// DiscoverSources lists the CSV files directly inside dataDir sorted by
// name. When there are none the fallback path is the only source.
func DiscoverSources(dataDir, fallback string) ([]dashboardDomain.Source, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) && !errors.Is(err, syscall.ENOTDIR) {
		return nil, fmt.Errorf("error on scanning %s: %w", dataDir, err)
	}

	var sources []dashboardDomain.Source
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) != ".csv" {
			continue
		}
		path := filepath.Join(dataDir, entry.Name())
		if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
			continue
		}
		src, err := dashboardDomain.NewSource(path, "")
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}

	if len(sources) == 0 {
		src, err := dashboardDomain.NewSource(fallback, "")
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// InitialSources loads the sources file when one is configured and falls
// back to discovery when it is missing or empty.
func InitialSources(file *SourcesFile, dataDir, fallback string) ([]dashboardDomain.Source, error) {
	if file != nil {
		sources, err := file.Load()
		if err != nil {
			return nil, err
		}
		if len(sources) > 0 {
			return sources, nil
		}
	}
	return DiscoverSources(dataDir, fallback)
}
