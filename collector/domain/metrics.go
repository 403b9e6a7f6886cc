package domain

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_collector_ticks_total",
			Help: "Total number of sampling ticks by outcome",
		},
		[]string{"outcome"},
	)

	deviceErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_collector_device_errors_total",
			Help: "Total number of failed device reads by kind",
		},
		[]string{"kind"},
	)

	appendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_collector_appends_total",
			Help: "Total number of log appends by outcome",
		},
		[]string{"outcome"},
	)

	publishesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_collector_publishes_total",
			Help: "Total number of channel publishes by outcome",
		},
		[]string{"outcome"},
	)
)
