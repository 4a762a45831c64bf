package metrics

import (
	"runtime"
	"time"
)

// RecordSimulation records one completed (or failed) simulation run.
func (r *Registry) RecordSimulation(mode, status string, duration time.Duration, affectedNodes int, maxDelta float64) {
	r.SimulationsTotal.WithLabelValues(mode, status).Inc()
	r.SimulationDuration.WithLabelValues(mode).Observe(duration.Seconds())
	if status == StatusSuccess {
		r.SimulationAffectedNodes.WithLabelValues(mode).Observe(float64(affectedNodes))
		r.SimulationMaxDelta.WithLabelValues(mode).Observe(maxDelta)
	}
}

// RecordPredictorCall records a single predictor invocation.
func (r *Registry) RecordPredictorCall(operation, status string, duration time.Duration) {
	r.PredictorCallsTotal.WithLabelValues(operation, status).Inc()
	r.PredictorCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordAttribution records one attribution analysis along with the size of
// its predictor fan-out.
func (r *Registry) RecordAttribution(method, status string, duration time.Duration, fanout int) {
	r.AttributionRunsTotal.WithLabelValues(method, status).Inc()
	r.AttributionDuration.WithLabelValues(method).Observe(duration.Seconds())
	r.AttributionFanout.WithLabelValues(method).Observe(float64(fanout))
}

// UpdateSystemMetrics refreshes the process-level gauges.
func (r *Registry) UpdateSystemMetrics(start time.Time) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	r.UptimeSeconds.Set(time.Since(start).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(m.Alloc))
	r.MemorySysBytes.Set(float64(m.Sys))
}

// Status label values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)
