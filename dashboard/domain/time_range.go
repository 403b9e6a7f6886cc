package domain

import (
	"fmt"
	"strings"
	"time"
)

// TimeRange is the window of recent data a view covers.
type TimeRange string

// Supported time ranges.
const (
	LastMinute    TimeRange = "1m"
	Last10Minutes TimeRange = "10m"
	Last20Minutes TimeRange = "20m"
	LastHour      TimeRange = "1h"
	Last12Hours   TimeRange = "12h"
	LastDay       TimeRange = "1d"
)

// DefaultRange is used when a view does not ask for a range.
const DefaultRange = LastHour

const defaultAxisFmt = "%H:%M"

// AxisHint tells the renderer how to label the time axis.
type AxisHint struct {
	Format     string `json:"format"`
	Title      string `json:"title"`
	TickCount  int    `json:"tick_count"`
	LabelAngle int    `json:"label_angle"`
}

type rangeLayout struct {
	window time.Duration
	format string
	ticks  int
}

var ranges = map[TimeRange]rangeLayout{
	LastMinute:    {time.Minute, "%H:%M:%S", 6},
	Last10Minutes: {10 * time.Minute, defaultAxisFmt, 10},
	Last20Minutes: {20 * time.Minute, defaultAxisFmt, 4},
	LastHour:      {time.Hour, defaultAxisFmt, 12},
	Last12Hours:   {12 * time.Hour, defaultAxisFmt, 12},
	LastDay:       {24 * time.Hour, defaultAxisFmt, 24},
}

// TimeRanges lists the supported ranges from the shortest.
func TimeRanges() []TimeRange {
	return []TimeRange{LastMinute, Last10Minutes, Last20Minutes, LastHour, Last12Hours, LastDay}
}

// NewTimeRange validates a range name. An empty name gives the default range.
func NewTimeRange(raw string) (TimeRange, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultRange, nil
	}
	r := TimeRange(raw)
	if _, ok := ranges[r]; !ok {
		return "", fmt.Errorf("unknown time range %q", raw)
	}
	return r, nil
}

// Window returns the duration covered by the range.
func (r TimeRange) Window() time.Duration {
	if layout, ok := ranges[r]; ok {
		return layout.window
	}
	return ranges[DefaultRange].window
}

// Axis returns the labelling hints of the time axis.
func (r TimeRange) Axis() AxisHint {
	layout, ok := ranges[r]
	if !ok {
		layout = rangeLayout{format: defaultAxisFmt, ticks: 10}
	}
	return AxisHint{Format: layout.format, Title: "Time", TickCount: layout.ticks, LabelAngle: -45}
}
