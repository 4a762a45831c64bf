package causal

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ML-dev-crypto/village-digital-twin/pkg/graph"
	"github.com/ML-dev-crypto/village-digital-twin/pkg/logging"
	"github.com/ML-dev-crypto/village-digital-twin/pkg/metrics"
	"github.com/ML-dev-crypto/village-digital-twin/pkg/parallel"
)

// PerturbationEntry is one fail-the-neighbor experiment. The causal effect is
// perturbed minus baseline, so positive means the neighbor's failure raises
// the target's risk.
type PerturbationEntry struct {
	NeighborID      int     `json:"neighborId"`
	NodeType        string  `json:"nodeType"`
	BaselineImpact  float64 `json:"baselineTargetImpact"`
	PerturbedImpact float64 `json:"perturbedTargetImpact"`
	CausalEffect    float64 `json:"causalEffect"`
	Flag            string  `json:"flag"`
}

// PerturbationResult ranks a target's upstream neighbors by how strongly
// their individual failure moves the target's impact probability.
type PerturbationResult struct {
	Target     int                 `json:"target"`
	TargetName string              `json:"targetName"`
	Entries    []PerturbationEntry `json:"entries"`
	Conclusion string              `json:"conclusion"`
}

// NodePerturbation forces each upstream neighbor of target into full failure,
// one neighbor at a time, and measures the shift in the target's impact
// probability. Entries come back sorted by effect magnitude, strongest first,
// with neighbor index breaking ties. A target with no incoming edges yields
// an empty result, not an error.
func (a *Analyzer) NodePerturbation(ctx context.Context, snap *graph.Snapshot, target int) (*PerturbationResult, error) {
	start := time.Now()

	if err := a.precheck(snap, target); err != nil {
		a.reg.RecordAttribution("node_perturbation", metrics.StatusError, time.Since(start), 0)
		return nil, err
	}

	log := a.log.With(logging.Method("node_perturbation"), logging.Target(target))
	result := &PerturbationResult{
		Target:     target,
		TargetName: snap.NodeName(target),
	}

	neighbors := snap.UpstreamNeighbors(target)
	if len(neighbors) == 0 {
		result.Conclusion = ConclusionNoUpstream
		a.reg.RecordAttribution("node_perturbation", metrics.StatusSuccess, time.Since(start), 0)
		log.Info("no upstream neighbors to perturb")
		return result, nil
	}

	timer := logging.StartTimer(log, "node perturbation complete", logging.Count(len(neighbors)))

	baseline, err := a.engine.Impact(ctx, "baseline", snap)
	if err != nil {
		a.reg.RecordAttribution("node_perturbation", metrics.StatusError, time.Since(start), 0)
		timer.EndError(err)
		return nil, err
	}
	base := baseline[target]

	entries := make([]PerturbationEntry, len(neighbors))
	err = parallel.ForEach(ctx, len(neighbors), a.workers, func(ctx context.Context, i int) error {
		neighbor := neighbors[i]
		features := snap.CloneFeatures()
		features[neighbor][graph.StatusIndex] = 0.0
		features[neighbor][graph.LevelIndex] = 0.0
		features[neighbor][graph.FlowIndex] = 0.0

		perturbed, err := a.engine.Impact(ctx, "perturbation", snap.WithFeatures(features))
		if err != nil {
			return err
		}

		effect := perturbed[target] - base
		entries[i] = PerturbationEntry{
			NeighborID:      neighbor,
			NodeType:        graph.TypeName(snap.Features[neighbor]),
			BaselineImpact:  base,
			PerturbedImpact: perturbed[target],
			CausalEffect:    effect,
			Flag:            flagForEffect(math.Abs(effect)),
		}
		return nil
	})
	if err != nil {
		a.reg.RecordAttribution("node_perturbation", metrics.StatusError, time.Since(start), len(neighbors))
		timer.EndError(err)
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return math.Abs(entries[i].CausalEffect) > math.Abs(entries[j].CausalEffect)
	})

	result.Entries = entries
	result.Conclusion = perturbationConclusion(result.TargetName, entries)

	a.reg.RecordAttribution("node_perturbation", metrics.StatusSuccess, time.Since(start), len(neighbors))
	timer.End()
	return result, nil
}

// perturbationConclusion names a dominant cause only when the strongest
// effect is a material increase. Magnitude alone is not enough: a neighbor
// whose failure lowers the target's risk is not causing it.
func perturbationConclusion(targetName string, entries []PerturbationEntry) string {
	top := entries[0]
	if top.CausalEffect > materialityThreshold {
		return fmt.Sprintf("node %d (%s) causes %s's risk", top.NeighborID, top.NodeType, targetName)
	}
	return "risk is distributed, no dominant cause"
}
