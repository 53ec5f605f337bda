// Package metrics exposes Prometheus instrumentation for the pipeline.
// All collectors register on the default registry; the daemon serves them
// through promhttp.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// runsStarted counts pipeline runs by job kind.
	runsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ward",
			Subsystem: "pipeline",
			Name:      "runs_started_total",
			Help:      "Number of pipeline runs started",
		},
		[]string{"kind"},
	)

	// runDuration tracks wall-clock time of whole runs.
	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ward",
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Duration of a full pipeline run",
			Buckets:   []float64{5, 15, 30, 60, 120, 180, 270, 400},
		},
		[]string{"kind", "partial"},
	)

	// artifactsCreated counts artifacts written through the publish gate.
	artifactsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ward",
			Subsystem: "publish",
			Name:      "artifacts_created_total",
			Help:      "Number of artifacts created",
		},
		[]string{"kind"},
	)

	// duplicateShortCircuits counts publishes absorbed by slug uniqueness.
	duplicateShortCircuits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ward",
			Subsystem: "publish",
			Name:      "duplicate_short_circuits_total",
			Help:      "Number of publishes suppressed because the slug already existed",
		},
		[]string{"kind"},
	)

	// fetchFailures counts source fetch errors after retries.
	fetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ward",
			Subsystem: "fetch",
			Name:      "failures_total",
			Help:      "Number of source fetches that failed after retries",
		},
		[]string{"source"},
	)

	// neighborhoodFailures counts neighborhoods whose processing failed.
	neighborhoodFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ward",
			Subsystem: "pipeline",
			Name:      "neighborhood_failures_total",
			Help:      "Number of per-neighborhood processing failures",
		},
		[]string{"kind"},
	)
)

// IncRunStarted increments the run counter for a job kind.
func IncRunStarted(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	runsStarted.WithLabelValues(kind).Inc()
}

// ObserveRunDuration records how long a run took. partial marks runs that
// stopped on the time budget before covering every due neighborhood.
func ObserveRunDuration(kind string, partial bool, seconds float64) {
	if kind == "" {
		kind = "unknown"
	}
	label := "false"
	if partial {
		label = "true"
	}
	runDuration.WithLabelValues(kind, label).Observe(seconds)
}

// AddArtifactsCreated adds to the created-artifact counter. Item-anchored
// runs create several artifacts per neighborhood.
func AddArtifactsCreated(kind string, n int) {
	if n <= 0 {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	artifactsCreated.WithLabelValues(kind).Add(float64(n))
}

// AddDuplicateShortCircuits adds to the suppressed-publish counter.
func AddDuplicateShortCircuits(kind string, n int) {
	if n <= 0 {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	duplicateShortCircuits.WithLabelValues(kind).Add(float64(n))
}

// IncFetchFailure increments the fetch failure counter for a source.
func IncFetchFailure(source string) {
	if source == "" {
		source = "unknown"
	}
	fetchFailures.WithLabelValues(source).Inc()
}

// IncNeighborhoodFailure increments the per-neighborhood failure counter.
func IncNeighborhoodFailure(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	neighborhoodFailures.WithLabelValues(kind).Inc()
}

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
