// Package metrics exposes Prometheus instrumentation for the detection
// pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the pipeline's collectors.
type Metrics struct {
	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram
	BoxesPerAnalysis prometheus.Histogram
	ConceptFailures  prometheus.Counter
}

// New registers the pipeline collectors on a fresh registry and returns them
// together with the registry's HTTP handler.
func New() (*Metrics, http.Handler) {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		AnalysesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "propaganda_spotter_analyses_total",
			Help: "Completed analyses by outcome.",
		}, []string{"outcome"}),
		AnalysisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "propaganda_spotter_analysis_duration_seconds",
			Help:    "End-to-end analysis latency.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		BoxesPerAnalysis: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "propaganda_spotter_boxes_per_analysis",
			Help:    "Bounding boxes produced per successful analysis.",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		}),
		ConceptFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "propaganda_spotter_concept_failures_total",
			Help: "Per-concept attention extractions dropped due to model errors.",
		}),
	}
	return m, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// ObserveAnalysis records one finished analysis.
func (m *Metrics) ObserveAnalysis(outcome string, seconds float64, boxes int) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(outcome).Inc()
	m.AnalysisDuration.Observe(seconds)
	if outcome == "success" {
		m.BoxesPerAnalysis.Observe(float64(boxes))
	}
}
