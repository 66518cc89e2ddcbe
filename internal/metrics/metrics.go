package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eric_broadcasts_total",
			Help: "Total number of inter-agent broadcasts by outcome",
		},
		[]string{"outcome"},
	)

	DispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eric_dispatches_total",
			Help: "Total number of per-organization dispatches by status",
		},
		[]string{"status"},
	)

	BroadcastDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eric_broadcast_duration_seconds",
			Help:    "Wall time of a broadcast from invocation to aggregated result",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8},
		},
	)

	BroadcastCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eric_broadcast_candidates",
			Help:    "Number of eligible organizations per broadcast",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		},
	)

	ChatDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eric_chat_decisions_total",
			Help: "Chat turns by trigger decision",
		},
		[]string{"action"},
	)
)
