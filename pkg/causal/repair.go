package causal

import (
	"context"
	"fmt"
	"time"

	"github.com/ML-dev-crypto/village-digital-twin/pkg/graph"
	"github.com/ML-dev-crypto/village-digital-twin/pkg/logging"
	"github.com/ML-dev-crypto/village-digital-twin/pkg/metrics"
)

// RepairResult quantifies how much restoring one node to healthy operating
// values would lower a target's impact probability. Benefit is current minus
// repaired, so positive means the repair helps.
type RepairResult struct {
	Target         int     `json:"target"`
	TargetName     string  `json:"targetName"`
	RepairedNode   int     `json:"repairedNode"`
	RepairedName   string  `json:"repairedName"`
	CurrentImpact  float64 `json:"currentImpact"`
	RepairedImpact float64 `json:"repairedImpact"`
	Benefit        float64 `json:"benefit"`
	Flag           string  `json:"flag"`
	Conclusion     string  `json:"conclusion"`
}

// CounterfactualRepair asks whether fixing failedNode would help target. It
// restores the node's status, level and flow to healthy reference values,
// re-predicts, and reports the drop in the target's impact probability.
func (a *Analyzer) CounterfactualRepair(ctx context.Context, snap *graph.Snapshot, target, failedNode int) (*RepairResult, error) {
	start := time.Now()

	if err := a.precheck(snap, target); err != nil {
		a.reg.RecordAttribution("counterfactual_repair", metrics.StatusError, time.Since(start), 0)
		return nil, err
	}
	if err := checkTarget(snap, failedNode); err != nil {
		a.reg.RecordAttribution("counterfactual_repair", metrics.StatusError, time.Since(start), 0)
		return nil, fmt.Errorf("repair node: %w", err)
	}

	log := a.log.With(
		logging.Method("counterfactual_repair"),
		logging.Target(target),
		logging.NodeID(failedNode),
	)
	timer := logging.StartTimer(log, "counterfactual repair complete")

	baseline, err := a.engine.Impact(ctx, "baseline", snap)
	if err != nil {
		a.reg.RecordAttribution("counterfactual_repair", metrics.StatusError, time.Since(start), 1)
		timer.EndError(err)
		return nil, err
	}

	features := snap.CloneFeatures()
	features[failedNode][graph.StatusIndex] = repairStatus
	features[failedNode][graph.LevelIndex] = repairLevel
	features[failedNode][graph.FlowIndex] = repairFlow

	repaired, err := a.engine.Impact(ctx, "repair", snap.WithFeatures(features))
	if err != nil {
		a.reg.RecordAttribution("counterfactual_repair", metrics.StatusError, time.Since(start), 1)
		timer.EndError(err)
		return nil, err
	}

	benefit := baseline[target] - repaired[target]
	result := &RepairResult{
		Target:         target,
		TargetName:     snap.NodeName(target),
		RepairedNode:   failedNode,
		RepairedName:   snap.NodeName(failedNode),
		CurrentImpact:  baseline[target],
		RepairedImpact: repaired[target],
		Benefit:        benefit,
		Flag:           flagForEffect(benefit),
		Conclusion:     repairConclusion(benefit, snap.NodeName(failedNode)),
	}

	a.reg.RecordAttribution("counterfactual_repair", metrics.StatusSuccess, time.Since(start), 1)
	timer.End()
	return result, nil
}

func repairConclusion(benefit float64, repairedName string) string {
	switch {
	case benefit > criticalEffect:
		return fmt.Sprintf("repairing %s is a high-priority target", repairedName)
	case benefit > materialityThreshold:
		return fmt.Sprintf("repairing %s gives a moderate benefit", repairedName)
	default:
		return fmt.Sprintf("%s is not the root cause", repairedName)
	}
}
