// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SequenceAllocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sequence_allocations_total",
			Help: "Total number of form number allocations by outcome",
		},
		[]string{"outcome"},
	)

	SequenceConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sequence_allocation_conflicts_total",
			Help: "Total number of transaction aborts during allocation",
		},
	)

	SequenceRetryAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sequence_allocation_attempts",
			Help:    "Attempts needed per successful allocation",
			Buckets: []float64{1, 2, 3},
		},
	)

	StatisticsAdjustments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statistics_adjustments_total",
			Help: "Total number of dashboard counter adjustments",
		},
		[]string{"counter", "outcome"},
	)

	ApplicationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "application_transitions_total",
			Help: "Total number of application status transitions",
		},
		[]string{"from", "to"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP request handling in seconds",
		},
		[]string{"method", "route"},
	)
)
