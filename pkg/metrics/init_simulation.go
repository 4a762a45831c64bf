package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSimulationMetrics() {
	r.SimulationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "twin_simulations_total",
			Help: "Total number of failure simulations run",
		},
		[]string{"mode", "status"},
	)

	r.SimulationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "twin_simulation_duration_seconds",
			Help:    "End-to-end simulation duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"mode"},
	)

	r.SimulationAffectedNodes = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "twin_simulation_affected_nodes",
			Help:    "Number of nodes significantly affected per simulation",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		},
		[]string{"mode"},
	)

	r.SimulationMaxDelta = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "twin_simulation_max_delta",
			Help:    "Largest absolute downstream delta per simulation",
			Buckets: []float64{0.01, 0.05, 0.1, 0.2, 0.3, 0.5, 0.8, 1.0},
		},
		[]string{"mode"},
	)
}
