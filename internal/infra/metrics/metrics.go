package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Events = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "estimatebot_events_total",
		Help: "Inbound chat events by command kind.",
	}, []string{"kind"})

	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "estimatebot_transitions_total",
		Help: "Committed session state transitions.",
	}, []string{"from", "to"})

	Estimates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "estimatebot_estimates_total",
		Help: "Persisted estimates by source.",
	}, []string{"source"})

	SideEffectFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "estimatebot_side_effect_failures_total",
		Help: "Failed post-commit side effects (persist, notify).",
	}, []string{"effect"})

	TurnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "estimatebot_turn_duration_seconds",
		Help:    "Time to process one chat event.",
		Buckets: prometheus.DefBuckets,
	})
)
