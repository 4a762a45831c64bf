package causal

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ML-dev-crypto/village-digital-twin/pkg/graph"
	"github.com/ML-dev-crypto/village-digital-twin/pkg/interpret"
	"github.com/ML-dev-crypto/village-digital-twin/pkg/logging"
	"github.com/ML-dev-crypto/village-digital-twin/pkg/metrics"
	"github.com/ML-dev-crypto/village-digital-twin/pkg/parallel"
)

// Severity tiers for sweep scenarios.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityModerate = "moderate"
)

// Sweep failure values: status and flow drop to zero, level keeps a small
// residual.
const sweepLevel = 0.1

// SweepScenario is the measured outcome of failing one candidate node. The
// delta slice covers every node in original order, including the failed one;
// total impact and affected count are taken over the other nodes only.
type SweepScenario struct {
	FailedNode    int       `json:"failedNode"`
	FailedName    string    `json:"failedName"`
	TotalImpact   float64   `json:"totalImpact"`
	AffectedCount int       `json:"affectedCount"`
	Severity      string    `json:"severity"`
	Deltas        []float64 `json:"deltas"`
}

// SweepResult holds scenarios ranked by total cascade impact, worst first.
type SweepResult struct {
	Scenarios []SweepScenario `json:"scenarios"`
}

// SensitivitySweep fails each candidate node in turn and ranks the resulting
// scenarios by total cascade impact. A nil or empty candidate list sweeps
// every node in the graph.
func (a *Analyzer) SensitivitySweep(ctx context.Context, snap *graph.Snapshot, candidates []int) (*SweepResult, error) {
	start := time.Now()

	if snap == nil {
		a.reg.RecordAttribution("sensitivity_sweep", metrics.StatusError, time.Since(start), 0)
		return nil, errors.New("nil snapshot")
	}
	if err := snap.Validate(); err != nil {
		a.reg.RecordAttribution("sensitivity_sweep", metrics.StatusError, time.Since(start), 0)
		return nil, fmt.Errorf("graph: %w", err)
	}

	if len(candidates) == 0 {
		candidates = make([]int, snap.NodeCount())
		for i := range candidates {
			candidates[i] = i
		}
	}
	for _, c := range candidates {
		if err := checkTarget(snap, c); err != nil {
			a.reg.RecordAttribution("sensitivity_sweep", metrics.StatusError, time.Since(start), 0)
			return nil, fmt.Errorf("candidate: %w", err)
		}
	}

	log := a.log.With(logging.Method("sensitivity_sweep"))
	timer := logging.StartTimer(log, "sensitivity sweep complete", logging.Count(len(candidates)))

	baseline, err := a.engine.Impact(ctx, "baseline", snap)
	if err != nil {
		a.reg.RecordAttribution("sensitivity_sweep", metrics.StatusError, time.Since(start), 0)
		timer.EndError(err)
		return nil, err
	}

	scenarios := make([]SweepScenario, len(candidates))
	err = parallel.ForEach(ctx, len(candidates), a.workers, func(ctx context.Context, i int) error {
		node := candidates[i]
		features := snap.CloneFeatures()
		features[node][graph.StatusIndex] = 0.0
		features[node][graph.LevelIndex] = sweepLevel
		features[node][graph.FlowIndex] = 0.0

		impact, err := a.engine.Impact(ctx, "sweep", snap.WithFeatures(features))
		if err != nil {
			return err
		}

		deltas := make([]float64, len(impact))
		total := 0.0
		affected := 0
		for j := range impact {
			deltas[j] = impact[j] - baseline[j]
			if j == node {
				continue
			}
			total += deltas[j]
			if math.Abs(deltas[j]) > interpret.SignificanceThreshold {
				affected++
			}
		}

		scenarios[i] = SweepScenario{
			FailedNode:    node,
			FailedName:    snap.NodeName(node),
			TotalImpact:   total,
			AffectedCount: affected,
			Severity:      sweepSeverity(total),
			Deltas:        deltas,
		}
		return nil
	})
	if err != nil {
		a.reg.RecordAttribution("sensitivity_sweep", metrics.StatusError, time.Since(start), len(candidates))
		timer.EndError(err)
		return nil, err
	}

	sort.SliceStable(scenarios, func(i, j int) bool {
		if scenarios[i].TotalImpact != scenarios[j].TotalImpact {
			return scenarios[i].TotalImpact > scenarios[j].TotalImpact
		}
		return scenarios[i].FailedNode < scenarios[j].FailedNode
	})

	a.reg.RecordAttribution("sensitivity_sweep", metrics.StatusSuccess, time.Since(start), len(candidates))
	timer.End()
	return &SweepResult{Scenarios: scenarios}, nil
}

func sweepSeverity(total float64) string {
	switch {
	case total > 0.5:
		return SeverityCritical
	case total > 0.3:
		return SeverityHigh
	default:
		return SeverityModerate
	}
}
