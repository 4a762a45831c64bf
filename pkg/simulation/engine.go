// Package simulation runs baseline-vs-counterfactual inference over a graph
// predictor and assembles the interpreted delta report. The predictor is a
// black box; everything here is deterministic arithmetic on its outputs, so
// identical inputs against a deterministic predictor yield identical reports.
package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ML-dev-crypto/village-digital-twin/pkg/graph"
	"github.com/ML-dev-crypto/village-digital-twin/pkg/interpret"
	"github.com/ML-dev-crypto/village-digital-twin/pkg/logging"
	"github.com/ML-dev-crypto/village-digital-twin/pkg/metrics"
	"github.com/ML-dev-crypto/village-digital-twin/pkg/predictor"
)

// Engine runs delta-inference simulations against a predictor port. It holds
// no per-run state and is safe for concurrent use as long as the port is.
type Engine struct {
	port predictor.Port
	log  logging.Logger
	reg  *metrics.Registry
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger overrides the engine's logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMetrics overrides the engine's metrics registry.
func WithMetrics(r *metrics.Registry) Option {
	return func(e *Engine) { e.reg = r }
}

// NewEngine builds an engine around a predictor port.
func NewEngine(port predictor.Port, opts ...Option) *Engine {
	e := &Engine{
		port: port,
		log:  logging.DefaultLogger().With(logging.Component("simulation")),
		reg:  metrics.DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Impact runs one predictor pass over the snapshot and returns the per-node
// impact probabilities. All predictor traffic, including the attribution
// fan-outs, goes through here so call counts, failures, and latency are
// always recorded.
func (e *Engine) Impact(ctx context.Context, op string, snap *graph.Snapshot) ([]float64, error) {
	e.reg.PredictorCallsInFlight.Inc()
	defer e.reg.PredictorCallsInFlight.Dec()

	start := time.Now()
	probs, err := predictor.Call(ctx, e.port, op, snap)
	if err != nil {
		e.reg.RecordPredictorCall(op, metrics.StatusError, time.Since(start))
		return nil, err
	}
	e.reg.RecordPredictorCall(op, metrics.StatusSuccess, time.Since(start))
	return predictor.Impact(probs), nil
}

// RunSimulation answers "what changes if these nodes fail": one baseline
// pass, one counterfactual pass with the named nodes forced to failed status,
// and a full interpreted report over the deltas. The caller's snapshot is
// never mutated.
func (e *Engine) RunSimulation(ctx context.Context, snap *graph.Snapshot, failedNodes []int, mode interpret.FailureMode, pessimistic bool) (*Report, error) {
	start := time.Now()
	modeLabel := string(mode)

	if err := validateRun(snap, failedNodes); err != nil {
		e.reg.RecordSimulation(modeLabel, metrics.StatusError, time.Since(start), 0, 0)
		return nil, err
	}

	log := e.log.With(
		logging.SimulationID(uuid.NewString()),
		logging.Mode(modeLabel),
	)
	timer := logging.StartTimer(log, "simulation complete",
		logging.Nodes(snap.NodeCount()),
		logging.Edges(snap.EdgeCount()),
		logging.Count(len(failedNodes)),
		logging.Bool("pessimistic", pessimistic),
	)

	base, err := e.Impact(ctx, "baseline", snap)
	if err != nil {
		e.reg.RecordSimulation(modeLabel, metrics.StatusError, time.Since(start), 0, 0)
		timer.EndError(err)
		return nil, err
	}

	features := snap.CloneFeatures()
	for _, idx := range failedNodes {
		features[idx][graph.StatusIndex] = 0.0
	}
	sim, err := e.Impact(ctx, "counterfactual", snap.WithFeatures(features))
	if err != nil {
		e.reg.RecordSimulation(modeLabel, metrics.StatusError, time.Since(start), 0, 0)
		timer.EndError(err)
		return nil, err
	}

	report := buildReport(snap, base, sim, failedNodes, mode, pessimistic)

	e.reg.RecordSimulation(modeLabel, metrics.StatusSuccess, time.Since(start),
		report.Summary.AffectedCount, report.Summary.MaxDelta)
	timer.End()
	return report, nil
}

// validateRun rejects malformed runs before any predictor call.
func validateRun(snap *graph.Snapshot, failedNodes []int) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	if len(failedNodes) == 0 {
		return ErrNoFailedNodes
	}
	n := snap.NodeCount()
	for _, idx := range failedNodes {
		if idx < 0 || idx >= n {
			return fmt.Errorf("%w: index %d with %d nodes", ErrIndexOutOfRange, idx, n)
		}
	}
	return nil
}
