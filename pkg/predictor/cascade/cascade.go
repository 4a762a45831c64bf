// Package cascade implements a deterministic in-process impact model. It is
// not a trained model; it is a transparent propagation heuristic whose outputs
// move the way a real one would, so it can stand in for a trained predictor in
// tools, demos, and offline runs.
package cascade

import (
	"context"
	"math"

	"github.com/ML-dev-crypto/village-digital-twin/pkg/graph"
)

// Model computes impact probabilities by cascading degradation along edges.
// A node's impact rises with its own degradation and with impact arriving from
// upstream neighbors, attenuated per hop by the edge weight. Identical inputs
// always produce identical outputs, and the model is safe for concurrent use.
type Model struct {
	// Attenuation scales how much impact survives one hop downstream.
	// Zero means the default of 0.85.
	Attenuation float64

	// Rounds bounds propagation depth. Zero means one round per node,
	// enough to cross any acyclic path.
	Rounds int
}

// New returns a Model with default attenuation.
func New() *Model {
	return &Model{}
}

// Predict implements predictor.Port.
func (m *Model) Predict(_ context.Context, features [][]float64, edges []graph.Edge, weights []float64) ([][]float64, error) {
	n := len(features)
	attenuation := m.Attenuation
	if attenuation == 0 {
		attenuation = 0.85
	}
	rounds := m.Rounds
	if rounds <= 0 {
		rounds = n
	}

	impact := make([]float64, n)
	for i, row := range features {
		impact[i] = localImpact(row)
	}

	weight := func(i int) float64 {
		if i < len(weights) {
			return weights[i]
		}
		return 1.0
	}

	for r := 0; r < rounds; r++ {
		changed := false
		for i, e := range edges {
			carried := impact[e.From] * weight(i) * attenuation
			if carried > impact[e.To] {
				impact[e.To] = carried
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	out := make([][]float64, n)
	for i := range out {
		row := make([]float64, graph.OutputDims)
		for d := range row {
			row[d] = clamp01(impact[i] * (1.0 - 0.05*float64(d)))
		}
		out[i] = row
	}
	return out, nil
}

// localImpact maps a node's own operational state to a base impact
// probability: failed status dominates, depleted level and flow nudge.
func localImpact(row []float64) float64 {
	if len(row) < graph.FeatureCount {
		return 0
	}
	status := clamp01(row[graph.StatusIndex])
	level := clamp01(row[graph.LevelIndex])
	flow := clamp01(row[graph.FlowIndex])
	return clamp01(0.9*(1.0-status) + 0.05*(1.0-level) + 0.05*(1.0-flow))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1.0, math.Max(0.0, v))
}
