package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initAttributionMetrics() {
	r.AttributionRunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "twin_attribution_runs_total",
			Help: "Total number of causal attribution analyses",
		},
		[]string{"method", "status"},
	)

	r.AttributionDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "twin_attribution_duration_seconds",
			Help:    "Attribution analysis duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"method"},
	)

	r.AttributionFanout = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "twin_attribution_fanout",
			Help:    "Number of parallel predictor calls per attribution run",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		},
		[]string{"method"},
	)
}
