// Package metrics defines the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maestro_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "maestro_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"method", "endpoint"},
	)

	ModelLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "maestro_model_latency_seconds",
			Help: "Language model round trip latency in seconds",
		},
		[]string{"provider", "model"},
	)

	ModelCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maestro_model_calls_total",
			Help: "Total number of language model calls",
		},
		[]string{"provider", "model", "outcome"},
	)

	ModelTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maestro_model_tokens_total",
			Help: "Total tokens exchanged with the language model",
		},
		[]string{"provider", "direction"},
	)

	SkillInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maestro_skill_invocations_total",
			Help: "Total number of skill connector invocations",
		},
		[]string{"skill", "outcome"},
	)

	PersistenceFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "maestro_persistence_failures_total",
			Help: "Total number of failed conversation writes",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "maestro_active_sessions",
			Help: "Number of live login sessions",
		},
	)
)
