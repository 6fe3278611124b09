package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travorier_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "travorier_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "route"},
	)

	// Business metrics
	MatchesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "travorier_matches_created_total",
			Help: "Total matches created",
		},
	)

	MatchTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travorier_match_transitions_total",
			Help: "Match status transitions",
		},
		[]string{"status"}, // "accepted" or "rejected"
	)

	Unlocks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travorier_unlocks_total",
			Help: "Contact unlock attempts by outcome",
		},
		[]string{"result"}, // "debited", "noop", "insufficient_credit", "error"
	)

	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "travorier_messages_sent_total",
			Help: "Total chat messages persisted",
		},
	)

	MessagesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travorier_messages_rejected_total",
			Help: "Chat messages rejected before persistence",
		},
		[]string{"reason"},
	)

	ActiveSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "travorier_channel_subscriptions",
			Help: "Live channel subscriptions currently held",
		},
	)

	DroppedSubscriptions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "travorier_channel_subscriptions_dropped_total",
			Help: "Subscriptions closed because the consumer fell behind",
		},
	)
)
