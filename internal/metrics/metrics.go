// Package metrics exposes prometheus instruments for analysis runs.
package metrics

import (
	"errors"
	"time"

	"critical-duration/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "critdur",
		Name:      "analyses_total",
		Help:      "Analyses run, by operation.",
	}, []string{"operation"})

	AnalysisFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "critdur",
		Name:      "analysis_failures_total",
		Help:      "Failed analyses, by operation and error kind.",
	}, []string{"operation", "kind"})

	DomainWarnings = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "critdur",
		Name:      "domain_warnings_total",
		Help:      "Interpolator lookups clamped to the table boundary, by table.",
	}, []string{"table"})

	RoutedTimesteps = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "critdur",
		Name:      "routed_timesteps_total",
		Help:      "Timesteps produced by level-pool routing.",
	})

	AnalysisSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "critdur",
		Name:      "analysis_duration_seconds",
		Help:      "Wall time per analysis, by operation.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
	}, []string{"operation"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "critdur",
		Name:      "http_requests_total",
		Help:      "API requests, by method, route and status code.",
	}, []string{"method", "route", "status"})
)

// Observe records one completed analysis and classifies err if non-nil.
func Observe(operation string, started time.Time, err error) {
	AnalysesTotal.WithLabelValues(operation).Inc()
	AnalysisSeconds.WithLabelValues(operation).Observe(time.Since(started).Seconds())
	if err != nil {
		AnalysisFailures.WithLabelValues(operation, ErrorKind(err)).Inc()
	}
}

// ErrorKind maps err onto the error taxonomy used in labels and API codes.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case model.IsConfiguration(err):
		return "configuration"
	case model.IsCoverage(err):
		return "data_coverage"
	case errors.Is(err, model.ErrEmptyPopulation):
		return "empty_population"
	case errors.Is(err, model.ErrNoValidWindow):
		return "no_valid_window"
	default:
		return "internal"
	}
}
