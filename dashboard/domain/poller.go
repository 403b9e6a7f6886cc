// Package domain holds the visualization side of the telemetry pipeline:
// the chart sources, the poller that follows their logs and the chart
// aggregates.
package domain

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/samoilenko/sensor_telemetry/pkg/appendlog"
)

// LogReader returns the rows appended to a log since the previous call.
type LogReader interface {
	Next() (appendlog.Batch, error)
}

// Notifier is told which sources changed after a poll.
type Notifier interface {
	Notify(ids []SourceID)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ids []SourceID)

// Notify calls f(ids).
func (f NotifierFunc) Notify(ids []SourceID) {
	f(ids)
}

// Poller re-reads every source on a fixed cadence and keeps the rows
// read so far in memory. The series of a source never shrinks unless its
// file is truncated or removed.
type Poller struct {
	sources   *Sources
	interval  RefreshInterval
	clock     clock.Clock
	notifier  Notifier
	newReader func(path string) LogReader
	logger    Logger

	pollMu  sync.Mutex
	readers map[SourceID]LogReader

	mu     sync.RWMutex
	series map[SourceID]*Series
}

// NewPoller creates a poller. notifier may be nil.
func NewPoller(sources *Sources, interval RefreshInterval, clk clock.Clock, notifier Notifier, logger Logger) *Poller {
	return &Poller{
		sources:  sources,
		interval: interval,
		clock:    clk,
		notifier: notifier,
		newReader: func(path string) LogReader {
			return appendlog.NewReader(path)
		},
		logger:  logger,
		readers: make(map[SourceID]LogReader),
		series:  make(map[SourceID]*Series),
	}
}

// Sources returns the registry the poller follows.
func (p *Poller) Sources() *Sources {
	return p.sources
}

// Run polls immediately and then on every tick until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := p.clock.Ticker(time.Duration(p.interval))
	defer ticker.Stop()

	p.logger.Info("polling %d sources every %s", len(p.sources.List()), p.interval)
	p.Poll()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Poll()
		}
	}
}

// Poll reads every source once and returns the ids whose series changed.
// Removed sources are forgotten and new ones start from the beginning of
// their file.
func (p *Poller) Poll() []SourceID {
	p.pollMu.Lock()
	defer p.pollMu.Unlock()

	current := p.sources.List()
	p.forgetRemoved(current)

	var changed []SourceID
	for _, src := range current {
		reader, ok := p.readers[src.ID]
		if !ok {
			reader = p.newReader(string(src.Path))
			p.readers[src.ID] = reader
		}

		batch, err := reader.Next()
		if p.apply(src, batch, err) {
			changed = append(changed, src.ID)
		}
	}

	if len(changed) > 0 && p.notifier != nil {
		p.notifier.Notify(changed)
	}
	return changed
}

func (p *Poller) apply(src Source, batch appendlog.Batch, err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.series[src.ID]
	if !ok {
		s = &Series{}
		p.series[src.ID] = s
	}

	if err != nil {
		pollsTotal.WithLabelValues("error").Inc()
		p.logger.Error("error on reading %s: %s", src.Path, err.Error())
		changed := s.Err == nil || s.Err.Error() != err.Error()
		s.Err = err
		return changed
	}

	pollsTotal.WithLabelValues("ok").Inc()
	rowsReadTotal.WithLabelValues("ok").Add(float64(len(batch.Rows)))
	if batch.Dropped > 0 {
		rowsReadTotal.WithLabelValues("dropped").Add(float64(batch.Dropped))
		p.logger.Info("'%s': dropped %d rows with a bad time or non-numeric value", src.Title, batch.Dropped)
	}
	if batch.Reset {
		p.logger.Info("%s was truncated or removed, reading it from the start", src.Path)
	}

	return s.apply(batch) || !ok
}

func (p *Poller) forgetRemoved(current []Source) {
	keep := make(map[SourceID]struct{}, len(current))
	for _, src := range current {
		keep[src.ID] = struct{}{}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for id := range p.readers {
		if _, ok := keep[id]; !ok {
			delete(p.readers, id)
			delete(p.series, id)
		}
	}
}

// Series returns a copy of what has been read from the source so far.
func (p *Poller) Series(id SourceID) (Series, error) {
	if _, ok := p.sources.Get(id); !ok {
		return Series{}, fmt.Errorf("%w: %s", ErrSourceNotFound, id)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.series[id]
	if !ok {
		return Series{}, nil
	}
	return s.clone(), nil
}

// View builds the chart of a source at the current time.
func (p *Poller) View(id SourceID, q ViewQuery) (View, error) {
	src, ok := p.sources.Get(id)
	if !ok {
		return View{}, fmt.Errorf("%w: %s", ErrSourceNotFound, id)
	}
	series, err := p.Series(id)
	if err != nil {
		return View{}, err
	}
	view := BuildView(src, series, q, p.clock.Now())
	if series.Err != nil && len(view.Points) == 0 {
		view.Message = fmt.Sprintf("error reading %s: %s", src.Path, series.Err.Error())
	}
	return view, nil
}
