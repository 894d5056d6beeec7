package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	modelRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emerald_altar_model_requests_total",
			Help: "Model calls by kind (text, image) and final outcome.",
		},
		[]string{"kind", "outcome"},
	)
	modelRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emerald_altar_model_retries_total",
			Help: "Retries of model calls by kind and reason.",
		},
		[]string{"kind", "reason"},
	)
	modelRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "emerald_altar_model_request_duration_seconds",
			Help:    "Duration of single model API requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
	directivesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emerald_altar_directives_total",
			Help: "Directives seen in narrator replies by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
)

// RecordDirective counts one directive outcome (applied, skipped, failed,
// malformed).
func RecordDirective(kind, outcome string) {
	directivesTotal.WithLabelValues(kind, outcome).Inc()
}
