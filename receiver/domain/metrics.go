package domain

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_receiver_messages_total",
			Help: "Total number of inbound messages by outcome",
		},
		[]string{"outcome"},
	)

	appendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_receiver_appends_total",
			Help: "Total number of log appends by outcome",
		},
		[]string{"outcome"},
	)

	subscriptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_receiver_subscriptions_total",
			Help: "Total number of subscription attempts by outcome",
		},
		[]string{"outcome"},
	)
)
