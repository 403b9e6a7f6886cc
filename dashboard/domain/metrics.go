package domain

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_dashboard_polls_total",
			Help: "Total number of source reads by outcome",
		},
		[]string{"outcome"},
	)

	rowsReadTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_dashboard_rows_total",
			Help: "Total number of log rows read by outcome",
		},
		[]string{"outcome"},
	)
)
