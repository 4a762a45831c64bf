package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initPredictorMetrics() {
	r.PredictorCallsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "twin_predictor_calls_total",
			Help: "Total number of predictor invocations",
		},
		[]string{"operation", "status"},
	)

	r.PredictorCallDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "twin_predictor_call_duration_seconds",
			Help:    "Predictor invocation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
		[]string{"operation"},
	)

	r.PredictorCallsInFlight = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "twin_predictor_calls_in_flight",
			Help: "Number of predictor invocations currently running",
		},
	)
}
