// Package topology derives structural importance scores from graph shape.
// A well-connected junction carries more of the network's behavior than a
// leaf, so the confidence and amplification layers scale their outputs by
// these weights.
package topology

import (
	"github.com/ML-dev-crypto/village-digital-twin/pkg/graph"
)

// ComputeWeights returns one importance score in [0,1] per node. A node's
// raw score is its total degree times the average weight of its incident
// edges, counting every edge at both endpoints. Scores are normalized by the
// maximum so the best-connected node scores 1.0. A graph with no edges (or
// all-zero weights) has no structural signal, so every node falls back to a
// neutral 0.5. Runs in O(V + E).
func ComputeWeights(snap *graph.Snapshot) []float64 {
	n := snap.NodeCount()
	degrees := make([]float64, n)
	weightSums := make([]float64, n)

	for i, e := range snap.Edges {
		w := snap.Weight(i)
		degrees[e.From]++
		degrees[e.To]++
		weightSums[e.From] += w
		weightSums[e.To] += w
	}

	raw := make([]float64, n)
	maxRaw := 0.0
	for i := 0; i < n; i++ {
		if degrees[i] > 0 {
			avg := weightSums[i] / degrees[i]
			raw[i] = degrees[i] * avg
		}
		if raw[i] > maxRaw {
			maxRaw = raw[i]
		}
	}

	if maxRaw <= 0 {
		for i := range raw {
			raw[i] = 0.5
		}
		return raw
	}

	for i := range raw {
		raw[i] /= maxRaw
	}
	return raw
}
