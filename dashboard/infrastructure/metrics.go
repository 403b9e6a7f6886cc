package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	wsClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "telemetry_dashboard_ws_clients",
			Help: "Number of connected websocket clients",
		},
	)

	wsMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_dashboard_ws_messages_total",
			Help: "Total number of views pushed to websocket clients by outcome",
		},
		[]string{"outcome"},
	)
)
