package domain

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/samoilenko/sensor_telemetry/pkg/appendlog"
)

// ErrSourceNotFound is returned for an unknown source id.
var ErrSourceNotFound = errors.New("source not found")

// SourceID identifies a chart source for the lifetime of the process.
type SourceID string

// Source is one log shown by the dashboard.
type Source struct {
	ID    SourceID       `json:"id"`
	Path  appendlog.Path `json:"path"`
	Title string         `json:"title"`
}

// NewSource validates the path and defaults the title to the file name.
func NewSource(path, title string) (Source, error) {
	p, err := appendlog.NewPath(strings.TrimSpace(path))
	if err != nil {
		return Source{}, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = filepath.Base(string(p))
	}
	return Source{ID: SourceID(uuid.NewString()), Path: p, Title: title}, nil
}

// SourceStore persists the source list across restarts.
type SourceStore interface {
	Save(sources []Source) error
}

// Sources is the ordered, mutable list of chart sources.
type Sources struct {
	mu    sync.RWMutex
	list  []Source
	store SourceStore
}

// NewSources creates the registry. store may be nil when runtime changes
// are not persisted.
func NewSources(initial []Source, store SourceStore) *Sources {
	return &Sources{list: append([]Source(nil), initial...), store: store}
}

// List returns a copy of the sources in display order.
func (s *Sources) List() []Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Source(nil), s.list...)
}

// Get returns the source with the given id.
func (s *Sources) Get(id SourceID) (Source, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, src := range s.list {
		if src.ID == id {
			return src, true
		}
	}
	return Source{}, false
}

// Add appends a new source. The same path may be shown more than once.
func (s *Sources) Add(path, title string) (Source, error) {
	src, err := NewSource(path, title)
	if err != nil {
		return Source{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = append(s.list, src)
	return src, s.save()
}

// Remove deletes the source with the given id.
func (s *Sources) Remove(id SourceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, src := range s.list {
		if src.ID == id {
			s.list = append(s.list[:i:i], s.list[i+1:]...)
			return s.save()
		}
	}
	return ErrSourceNotFound
}

func (s *Sources) save() error {
	if s.store == nil {
		return nil
	}
	return s.store.Save(append([]Source(nil), s.list...))
}
