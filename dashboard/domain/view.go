package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/samoilenko/sensor_telemetry/pkg/reading"
)

// DefaultField is the field charted when a query does not name one.
const DefaultField = "value"

// showPointsLimit is the largest series drawn with point markers.
const showPointsLimit = 100

// ViewQuery selects what a chart shows.
type ViewQuery struct {
	Field     string
	Range     TimeRange
	Smoothing int
	// YMin and YMax fix the y axis when both are set.
	YMin *float64
	YMax *float64
}

// NewViewQuery fills in defaults and validates the query.
func NewViewQuery(field string, timeRange TimeRange, smoothing int, yMin, yMax *float64) (ViewQuery, error) {
	if field == "" {
		field = DefaultField
	}
	if timeRange == "" {
		timeRange = DefaultRange
	}
	if smoothing == 0 {
		smoothing = 1
	}
	if smoothing < 1 {
		return ViewQuery{}, errors.New("smoothing window must be at least 1 point")
	}
	if yMin != nil && yMax != nil && *yMin >= *yMax {
		return ViewQuery{}, fmt.Errorf("y axis min %g must be below max %g", *yMin, *yMax)
	}
	return ViewQuery{Field: field, Range: timeRange, Smoothing: smoothing, YMin: yMin, YMax: yMax}, nil
}

// Point is one plotted sample. Value is nil for a missing measurement.
type Point struct {
	Time  time.Time `json:"time"`
	Value *float64  `json:"value"`
}

// View is a chart ready to be rendered.
type View struct {
	SourceID   SourceID    `json:"source_id"`
	Title      string      `json:"title"`
	Field      string      `json:"field"`
	Range      TimeRange   `json:"range"`
	Points     []Point     `json:"points"`
	Latest     *float64    `json:"latest"`
	YDomain    *[2]float64 `json:"y_domain,omitempty"`
	ShowPoints bool        `json:"show_points"`
	Axis       AxisHint    `json:"axis"`
	Dropped    int         `json:"dropped"`
	// Message explains why there is nothing to plot.
	Message string `json:"message,omitempty"`
}

// BuildView filters the series to the query's time window and computes the
// chart aggregates.
func BuildView(src Source, series Series, q ViewQuery, now time.Time) View {
	view := View{
		SourceID: src.ID,
		Title:    src.Title,
		Field:    q.Field,
		Range:    q.Range,
		Points:   []Point{},
		Axis:     q.Range.Axis(),
		Dropped:  series.Dropped,
	}

	rows := inWindow(series.Rows, now.Add(-q.Range.Window()))
	if len(rows) == 0 {
		view.Message = fmt.Sprintf("no data in the selected time range: %s", q.Range)
		return view
	}

	column := series.Schema.Index(q.Field)
	if column < 0 {
		view.Message = fmt.Sprintf("no %s data available in the selected window", q.Field)
		return view
	}

	raw := make([]float64, len(rows))
	for i, r := range rows {
		raw[i] = math.NaN()
		if column < len(r.Fields) {
			raw[i] = r.Fields[column].Value
		}
	}
	view.Latest = lastValue(raw)

	plotted := raw
	if q.Smoothing > 1 {
		plotted = RollingMean(raw, q.Smoothing)
	}

	view.Points = make([]Point, len(rows))
	for i, r := range rows {
		view.Points[i] = Point{Time: r.Timestamp, Value: finite(plotted[i])}
	}
	view.ShowPoints = len(rows) <= showPointsLimit

	domain, ok := YDomain(plotted, q.YMin, q.YMax)
	if !ok {
		view.Message = "no valid points to plot"
		return view
	}
	view.YDomain = &domain

	return view
}

// inWindow returns the rows not older than cutoff, sorted by time. Rows
// keep their file order when timestamps are equal.
func inWindow(rows []reading.Reading, cutoff time.Time) []reading.Reading {
	out := make([]reading.Reading, 0, len(rows))
	for _, r := range rows {
		if !r.Timestamp.Before(cutoff) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// RollingMean averages each value with up to window-1 preceding ones.
// Missing values are skipped; a window without any value stays missing.
func RollingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		start := max(0, i-window+1)
		mean, err := stats.Mean(present(values[start : i+1]))
		if err != nil {
			mean = math.NaN()
		}
		out[i] = mean
	}
	return out
}

// YDomain returns the y axis limits: the manual ones when both are given,
// otherwise the data range padded by 10%. ok is false when there is no data.
func YDomain(values []float64, manualMin, manualMax *float64) (domain [2]float64, ok bool) {
	data := present(values)
	if len(data) == 0 {
		return domain, false
	}
	if manualMin != nil && manualMax != nil {
		return [2]float64{*manualMin, *manualMax}, true
	}

	lo, err := stats.Min(data)
	if err != nil {
		return domain, false
	}
	hi, err := stats.Max(data)
	if err != nil {
		return domain, false
	}

	padding := (hi - lo) * 0.10
	if padding <= 0 {
		padding = 1.0
		if lo != 0 {
			padding = math.Abs(lo) * 0.10
		}
	}
	return [2]float64{lo - padding, hi + padding}, true
}

func present(values []float64) stats.Float64Data {
	out := make(stats.Float64Data, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

func lastValue(values []float64) *float64 {
	for i := len(values) - 1; i >= 0; i-- {
		if v := finite(values[i]); v != nil {
			return v
		}
	}
	return nil
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
