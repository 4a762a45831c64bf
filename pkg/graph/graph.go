package graph

import (
	"errors"
	"fmt"
	"sort"
)

// Common sentinel errors
var (
	ErrRaggedFeatures = errors.New("feature rows have inconsistent lengths")
	ErrEdgeOutOfRange = errors.New("edge endpoint out of range")
	ErrWeightCount    = errors.New("edge weight count does not match edge count")
	ErrNameCount      = errors.New("node name count does not match node count")
)

// Edge is a directed connection between two node indices.
type Edge struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Snapshot is a passive, fully-formed view of an infrastructure graph: the
// node feature matrix, the directed edge list with weights in (0,1], and
// optional human-readable node names. The simulation layers treat a Snapshot
// as immutable; every counterfactual works on its own copy of the feature
// matrix and never mutates the caller's.
type Snapshot struct {
	// Features is the node feature matrix [N][F]. All rows must share the
	// same length.
	Features [][]float64

	// Edges is the directed edge list. Parallel and bidirectional edges are
	// allowed; self-loops are tolerated.
	Edges []Edge

	// Weights holds one connection-strength scalar per edge. A nil slice
	// means every edge has weight 1.0.
	Weights []float64

	// Names optionally labels nodes. Nil means synthetic names.
	Names []string
}

// NodeCount returns the number of nodes.
func (s *Snapshot) NodeCount() int {
	return len(s.Features)
}

// EdgeCount returns the number of directed edges.
func (s *Snapshot) EdgeCount() int {
	return len(s.Edges)
}

// NodeName returns the label for node i, falling back to "Node_<i>" when no
// name array was supplied.
func (s *Snapshot) NodeName(i int) string {
	if i >= 0 && i < len(s.Names) && s.Names[i] != "" {
		return s.Names[i]
	}
	return fmt.Sprintf("Node_%d", i)
}

// Weight returns the weight of edge i, defaulting to 1.0 when the weight
// array is shorter than the edge list.
func (s *Snapshot) Weight(i int) float64 {
	if i >= 0 && i < len(s.Weights) {
		return s.Weights[i]
	}
	return 1.0
}

// Validate checks structural consistency: rectangular feature matrix, edge
// endpoints within [0, N), and weight/name arrays either absent or sized to
// match. It does not constrain feature values; those belong to the predictor
// contract.
func (s *Snapshot) Validate() error {
	n := len(s.Features)

	width := -1
	for i, row := range s.Features {
		if width == -1 {
			width = len(row)
			continue
		}
		if len(row) != width {
			return fmt.Errorf("%w: row %d has %d features, row 0 has %d",
				ErrRaggedFeatures, i, len(row), width)
		}
	}

	for i, e := range s.Edges {
		if e.From < 0 || e.From >= n || e.To < 0 || e.To >= n {
			return fmt.Errorf("%w: edge %d (%d -> %d) with %d nodes",
				ErrEdgeOutOfRange, i, e.From, e.To, n)
		}
	}

	if s.Weights != nil && len(s.Weights) != len(s.Edges) {
		return fmt.Errorf("%w: %d weights for %d edges",
			ErrWeightCount, len(s.Weights), len(s.Edges))
	}

	if s.Names != nil && len(s.Names) != n {
		return fmt.Errorf("%w: %d names for %d nodes",
			ErrNameCount, len(s.Names), n)
	}

	return nil
}

// CloneFeatures deep-copies the feature matrix. Counterfactual construction
// starts here so the caller's snapshot is never written to.
func (s *Snapshot) CloneFeatures() [][]float64 {
	clone := make([][]float64, len(s.Features))
	for i, row := range s.Features {
		clone[i] = make([]float64, len(row))
		copy(clone[i], row)
	}
	return clone
}

// WithFeatures returns a shallow variant of the snapshot that shares edges,
// weights and names but carries the given feature matrix.
func (s *Snapshot) WithFeatures(features [][]float64) *Snapshot {
	return &Snapshot{
		Features: features,
		Edges:    s.Edges,
		Weights:  s.Weights,
		Names:    s.Names,
	}
}

// WithoutEdge returns a variant of the snapshot with edge i (and its weight)
// removed. The feature matrix and names are shared; edge and weight slices
// are fresh copies so the original stays intact.
func (s *Snapshot) WithoutEdge(i int) *Snapshot {
	edges := make([]Edge, 0, len(s.Edges)-1)
	edges = append(edges, s.Edges[:i]...)
	edges = append(edges, s.Edges[i+1:]...)

	var weights []float64
	if s.Weights != nil {
		weights = make([]float64, 0, len(s.Weights)-1)
		weights = append(weights, s.Weights[:i]...)
		weights = append(weights, s.Weights[i+1:]...)
	}

	return &Snapshot{
		Features: s.Features,
		Edges:    edges,
		Weights:  weights,
		Names:    s.Names,
	}
}

// IncomingEdges returns the indices of all edges pointing into target, in
// edge-list order.
func (s *Snapshot) IncomingEdges(target int) []int {
	var incoming []int
	for i, e := range s.Edges {
		if e.To == target {
			incoming = append(incoming, i)
		}
	}
	return incoming
}

// UpstreamNeighbors returns the unique source nodes of edges pointing into
// target, in ascending node order so downstream ranking is deterministic.
func (s *Snapshot) UpstreamNeighbors(target int) []int {
	seen := make(map[int]bool)
	var neighbors []int
	for _, e := range s.Edges {
		if e.To == target && !seen[e.From] {
			seen[e.From] = true
			neighbors = append(neighbors, e.From)
		}
	}
	sort.Ints(neighbors)
	return neighbors
}
