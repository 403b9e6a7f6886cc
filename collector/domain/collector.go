// Package domain provides the sampling loop of the collector: read the
// device on a fixed cadence, append every reading to the local log and
// publish it to the channel.
package domain

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/samoilenko/sensor_telemetry/pkg/appendlog"
	"github.com/samoilenko/sensor_telemetry/pkg/reading"
)

// State of the collector loop.
type State int32

// Collector states.
const (
	StateIdle State = iota
	StateSampling
	StatePersisting
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSampling:
		return "sampling"
	case StatePersisting:
		return "persisting"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Settings are the run parameters of a Collector.
type Settings struct {
	SourceID       DeviceUID
	Interval       Interval
	DeviceTimeout  time.Duration
	PublishTimeout time.Duration
}

// Collector reads a device on a fixed cadence. Ticks are anchored to the
// interval boundaries: a slow tick delays the next one at most until the
// following boundary and ticks missed meanwhile are skipped, so drift does
// not accumulate.
type Collector struct {
	device   Device
	log      appendlog.Appender
	sender   ReadingSender
	clock    clock.Clock
	settings Settings
	logger   Logger

	state atomic.Int32
	last  time.Time
}

// NewCollector creates a Collector bound to one device.
func NewCollector(
	device Device,
	log appendlog.Appender,
	sender ReadingSender,
	settings Settings,
	clk clock.Clock,
	logger Logger,
) *Collector {
	return &Collector{
		device:   device,
		log:      log,
		sender:   sender,
		clock:    clk,
		settings: settings,
		logger:   logger,
	}
}

// State returns the current state of the loop.
func (c *Collector) State() State {
	return State(c.state.Load())
}

// Run samples immediately and then on every tick until the context is
// cancelled (nil) or a fatal error occurs. The tick in progress always
// completes before Run returns.
func (c *Collector) Run(ctx context.Context) error {
	defer c.state.Store(int32(StateStopped))

	c.logger.Info("sampling device %s every %s", c.settings.SourceID, c.settings.Interval)
	ticker := c.clock.Ticker(time.Duration(c.settings.Interval))
	defer ticker.Stop()

	if err := c.Tick(ctx); err != nil {
		return err
	}

	for {
		c.state.Store(int32(StateIdle))
		select {
		case <-ctx.Done():
			c.logger.Info("collector stopped")
			return nil
		case <-ticker.C:
			if ctx.Err() != nil {
				c.logger.Info("collector stopped")
				return nil
			}
			if err := c.Tick(ctx); err != nil {
				return err
			}
		}
	}
}

// Tick performs one unit of work: sample the device once, then append and
// publish the reading concurrently and wait for both. It returns an error
// only when the failure is fatal for the run.
func (c *Collector) Tick(ctx context.Context) error {
	c.state.Store(int32(StateSampling))
	fields, err := c.sample(ctx)
	if err != nil {
		deviceErr := asDeviceError(err)
		deviceErrorsTotal.WithLabelValues(string(deviceErr.Kind)).Inc()
		if !deviceErr.Retryable() {
			c.logger.Error("fatal device error: %s", deviceErr.Error())
			ticksTotal.WithLabelValues("failed").Inc()
			return deviceErr
		}
		c.logger.Error("device read failed, tick skipped: %s", deviceErr.Error())
		ticksTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	r := reading.Reading{
		Timestamp: c.nextTimestamp(),
		SourceID:  string(c.settings.SourceID),
		Fields:    fields,
	}
	c.logger.Info("[%s] %s", reading.FormatTime(r.Timestamp), describe(r))

	c.state.Store(int32(StatePersisting))
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.send(ctx, r)
	}()
	err = c.persist(r)
	wg.Wait()

	if err != nil {
		ticksTotal.WithLabelValues("failed").Inc()
		return err
	}
	ticksTotal.WithLabelValues("sampled").Inc()
	return nil
}

// sample calls the device once with the configured timeout. Driver panics
// are turned into errors.
func (c *Collector) sample(ctx context.Context) ([]reading.Field, error) {
	readCtx, cancel := context.WithTimeout(ctx, c.settings.DeviceTimeout)
	defer cancel()

	var fields []reading.Field
	err := SafeFunctionRun("device read", func() error {
		var readErr error
		fields, readErr = c.device.ReadOne(readCtx)
		return readErr
	}, c.logger)
	if err != nil {
		return nil, err
	}

	if !c.device.Schema().Matches(reading.Reading{Fields: fields}) {
		return nil, &DeviceError{
			Kind: DeviceMalformed,
			Err:  fmt.Errorf("sample fields %v do not match device schema %v", fieldNames(fields), c.device.Schema()),
		}
	}
	return fields, nil
}

// persist appends the reading, retrying once on I/O errors. Only a schema
// violation is returned.
func (c *Collector) persist(r reading.Reading) error {
	outcome, err := appendlog.AppendWithRetry(c.log, r)
	appendsTotal.WithLabelValues(string(outcome)).Inc()

	switch outcome {
	case appendlog.Rejected:
		c.logger.Error("reading rejected by log: %s", err.Error())
		return err
	case appendlog.Dropped:
		c.logger.Error("reading dropped after a failed retry: %s", err.Error())
	case appendlog.Retried:
		c.logger.Info("reading appended after reopening the log")
	}
	return nil
}

// nextTimestamp returns the current time, nudged forward when the clock did
// not advance since the previous reading.
func (c *Collector) nextTimestamp() time.Time {
	now := c.clock.Now().Round(0)
	if !now.After(c.last) {
		now = c.last.Add(time.Nanosecond)
	}
	c.last = now
	return now
}

func describe(r reading.Reading) string {
	parts := make([]string, 0, len(r.Fields))
	for _, f := range r.Fields {
		parts = append(parts, f.Name+": "+strconv.FormatFloat(f.Value, 'f', -1, 64))
	}
	return strings.Join(parts, ", ")
}

func fieldNames(fields []reading.Field) []string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
	}
	return names
}
