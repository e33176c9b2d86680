// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CarrierSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrollment_carrier_submissions_total",
			Help: "Total number of per-carrier submission attempts",
		},
		[]string{"carrier", "result"},
	)

	CarrierSubmissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "enrollment_carrier_submission_duration_seconds",
			Help: "Duration of per-carrier submission calls in seconds",
		},
		[]string{"carrier"},
	)

	EnrollmentOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrollment_outcomes_total",
			Help: "Terminal enrollment outcomes by classification",
		},
		[]string{"outcome"},
	)

	EligibilityFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrollment_eligibility_fetches_total",
			Help: "Eligibility question-set fetches by result",
		},
		[]string{"carrier", "result"},
	)
)
