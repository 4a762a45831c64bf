// Package causal answers "which upstream node or edge is causing this node's
// risk". It runs targeted prediction experiments against the same engine the
// simulations use: fail one neighbor, cut one edge, repair one node, and
// measure how the target's impact probability moves. Every experiment in a
// batch is independent, so batches fan out across a bounded worker pool.
package causal

import (
	"errors"
	"fmt"

	"github.com/ML-dev-crypto/village-digital-twin/pkg/graph"
	"github.com/ML-dev-crypto/village-digital-twin/pkg/logging"
	"github.com/ML-dev-crypto/village-digital-twin/pkg/metrics"
	"github.com/ML-dev-crypto/village-digital-twin/pkg/simulation"
	"github.com/ML-dev-crypto/village-digital-twin/pkg/validation"
)

// ErrTargetOutOfRange means a target or candidate index does not exist in
// the graph.
var ErrTargetOutOfRange = errors.New("target index out of range")

// Experiment flags
const (
	FlagCritical = "critical"
	FlagModerate = "moderate"
	FlagLow      = "low"
)

// ConclusionNoUpstream reports a target with no incoming connectivity. It is
// a valid outcome, not an error: a source node's risk has no upstream cause.
const ConclusionNoUpstream = "no upstream connectivity"

// Effect thresholds. Materiality separates a dominant cause from distributed
// risk; the cascade threshold flags an edge whose removal meaningfully drops
// the target's impact.
const (
	materialityThreshold = 0.05
	criticalEffect       = 0.1
	cascadeCritical      = -0.05
	cascadeModerate      = -0.01
)

// Healthy reference values used by counterfactual repair.
const (
	repairStatus = 0.9
	repairLevel  = 0.8
	repairFlow   = 0.7
)

const (
	defaultWorkers = 8
	maxWorkers     = 64
)

// Analyzer runs causal-attribution experiments. It is stateless between
// calls and safe for concurrent use as long as the underlying predictor is.
type Analyzer struct {
	engine  *simulation.Engine
	log     logging.Logger
	reg     *metrics.Registry
	workers int
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger overrides the analyzer's logger.
func WithLogger(l logging.Logger) Option {
	return func(a *Analyzer) { a.log = l }
}

// WithMetrics overrides the analyzer's metrics registry.
func WithMetrics(r *metrics.Registry) Option {
	return func(a *Analyzer) { a.reg = r }
}

// WithWorkers bounds the predictor fan-out. Non-positive values select the
// default.
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		a.workers = validation.ClampInt(validation.DefaultOrInt(n, defaultWorkers), 1, maxWorkers)
	}
}

// NewAnalyzer builds an analyzer on top of a simulation engine.
func NewAnalyzer(engine *simulation.Engine, opts ...Option) *Analyzer {
	a := &Analyzer{
		engine:  engine,
		log:     logging.DefaultLogger().With(logging.Component("causal")),
		reg:     metrics.DefaultRegistry(),
		workers: defaultWorkers,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// precheck validates the snapshot and target before any predictor call is
// made.
func (a *Analyzer) precheck(snap *graph.Snapshot, target int) error {
	if snap == nil {
		return errors.New("nil snapshot")
	}
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("graph: %w", err)
	}
	return checkTarget(snap, target)
}

func checkTarget(snap *graph.Snapshot, idx int) error {
	if idx < 0 || idx >= snap.NodeCount() {
		return fmt.Errorf("%w: %d with %d nodes", ErrTargetOutOfRange, idx, snap.NodeCount())
	}
	return nil
}

// flagForEffect buckets an effect against the materiality thresholds. Callers
// pass a magnitude, or a signed benefit when only improvements count.
func flagForEffect(v float64) string {
	switch {
	case v > criticalEffect:
		return FlagCritical
	case v > materialityThreshold:
		return FlagModerate
	default:
		return FlagLow
	}
}

// flagForOcclusion buckets a signed occlusion effect; only reductions count.
func flagForOcclusion(effect float64) string {
	switch {
	case effect < cascadeCritical:
		return FlagCritical
	case effect < cascadeModerate:
		return FlagModerate
	default:
		return FlagLow
	}
}
