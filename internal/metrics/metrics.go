package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyzer_requests_total",
			Help: "Total number of analysis requests by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analyzer_request_duration_seconds",
			Help:    "Duration of provider calls in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"provider"},
	)

	CustomRulesAdded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analyzer_custom_rules_added_total",
			Help: "Total number of custom rules added across sessions",
		},
	)
)
