package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// Simulation Metrics
	SimulationsTotal        *prometheus.CounterVec
	SimulationDuration      *prometheus.HistogramVec
	SimulationAffectedNodes *prometheus.HistogramVec
	SimulationMaxDelta      *prometheus.HistogramVec

	// Predictor Metrics
	PredictorCallsTotal    *prometheus.CounterVec
	PredictorCallDuration  *prometheus.HistogramVec
	PredictorCallsInFlight prometheus.Gauge

	// Attribution Metrics
	AttributionRunsTotal *prometheus.CounterVec
	AttributionDuration  *prometheus.HistogramVec
	AttributionFanout    *prometheus.HistogramVec

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry *prometheus.Registry
	mu       sync.RWMutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	// Initialize all metrics
	r.initSimulationMetrics()
	r.initPredictorMetrics()
	r.initAttributionMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
