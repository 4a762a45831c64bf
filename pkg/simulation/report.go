package simulation

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ML-dev-crypto/village-digital-twin/pkg/confidence"
	"github.com/ML-dev-crypto/village-digital-twin/pkg/graph"
	"github.com/ML-dev-crypto/village-digital-twin/pkg/interpret"
	"github.com/ML-dev-crypto/village-digital-twin/pkg/topology"
)

// NodeResult is one node's simulation outcome. PessimisticDelta is set only
// when the run requested pessimistic mode.
type NodeResult struct {
	NodeID           int                      `json:"nodeId"`
	NodeName         string                   `json:"nodeName"`
	Baseline         float64                  `json:"baseline"`
	Simulated        float64                  `json:"simulated"`
	Delta            float64                  `json:"delta"`
	PessimisticDelta *float64                 `json:"pessimisticDelta,omitempty"`
	IsFailedSource   bool                     `json:"isFailedSource"`
	Interpretation   interpret.Interpretation `json:"interpretation"`
}

// Summary aggregates a run. Affected counts and delta statistics cover
// downstream nodes only; the forced-failure sources are excluded since their
// deltas are an artifact of the forcing, not a finding.
type Summary struct {
	TotalNodes          int      `json:"totalNodes"`
	FailedNodeIndices   []int    `json:"failedNodeIndices"`
	FailedNames         []string `json:"failedNames"`
	FailureMode         string   `json:"failureMode"`
	PessimisticMode     bool     `json:"pessimisticMode"`
	AffectedCount       int      `json:"affectedCount"`
	MaxDelta            float64  `json:"maxDelta"`
	MeanDelta           float64  `json:"meanDelta"`
	MaxPessimisticDelta *float64 `json:"maxPessimisticDelta,omitempty"`
	SummaryText         string   `json:"summaryText"`
}

// Raw carries the unsorted per-node arrays in original node order, for
// callers that want to post-process without undoing the report sort.
type Raw struct {
	Baseline  []float64 `json:"baseline"`
	Simulated []float64 `json:"simulated"`
	Deltas    []float64 `json:"deltas"`
}

// Report is the full simulation output. Nodes are sorted by descending
// absolute delta, ties broken by original node index.
type Report struct {
	Summary Summary      `json:"summary"`
	Nodes   []NodeResult `json:"nodes"`
	Raw     Raw          `json:"raw"`
}

// buildReport assembles the report from the two prediction passes. It is pure
// arithmetic and formatting; identical inputs produce identical reports.
func buildReport(snap *graph.Snapshot, base, sim []float64, failedNodes []int, mode interpret.FailureMode, pessimistic bool) *Report {
	n := snap.NodeCount()

	source := make(map[int]bool, len(failedNodes))
	for _, idx := range failedNodes {
		source[idx] = true
	}

	deltas := make([]float64, n)
	for i := range deltas {
		deltas[i] = sim[i] - base[i]
	}

	topo := topology.ComputeWeights(snap)

	var pessDeltas []float64
	if pessimistic {
		pessDeltas = make([]float64, n)
		for i := range pessDeltas {
			pessDeltas[i] = confidence.PessimisticDelta(deltas[i], topo[i])
		}
	}

	nodes := make([]NodeResult, n)
	for i := 0; i < n; i++ {
		name := snap.NodeName(i)
		nodes[i] = NodeResult{
			NodeID:         i,
			NodeName:       name,
			Baseline:       base[i],
			Simulated:      sim[i],
			Delta:          deltas[i],
			IsFailedSource: source[i],
			Interpretation: interpret.Delta(deltas[i], name, source[i], mode, topo[i], pessimistic),
		}
		if pessimistic {
			v := pessDeltas[i]
			nodes[i].PessimisticDelta = &v
		}
	}

	// most affected first; stable sort keeps index order on ties
	sort.SliceStable(nodes, func(a, b int) bool {
		return math.Abs(nodes[a].Delta) > math.Abs(nodes[b].Delta)
	})

	return &Report{
		Summary: buildSummary(snap, nodes, deltas, pessDeltas, source, failedNodes, mode, pessimistic),
		Nodes:   nodes,
		Raw:     Raw{Baseline: base, Simulated: sim, Deltas: deltas},
	}
}

func buildSummary(snap *graph.Snapshot, sorted []NodeResult, deltas, pessDeltas []float64, source map[int]bool, failedNodes []int, mode interpret.FailureMode, pessimistic bool) Summary {
	affected := 0
	maxDelta := 0.0
	sum := 0.0
	downstream := 0
	for i, d := range deltas {
		if source[i] {
			continue
		}
		downstream++
		ad := math.Abs(d)
		sum += ad
		if ad > maxDelta {
			maxDelta = ad
		}
		if ad > interpret.SignificanceThreshold {
			affected++
		}
	}
	meanDelta := 0.0
	if downstream > 0 {
		meanDelta = sum / float64(downstream)
	}

	indices := append([]int(nil), failedNodes...)
	names := make([]string, len(failedNodes))
	for i, idx := range failedNodes {
		names[i] = snap.NodeName(idx)
	}

	s := Summary{
		TotalNodes:        snap.NodeCount(),
		FailedNodeIndices: indices,
		FailedNames:       names,
		FailureMode:       string(mode),
		PessimisticMode:   pessimistic,
		AffectedCount:     affected,
		MaxDelta:          maxDelta,
		MeanDelta:         meanDelta,
		SummaryText:       summaryText(sorted, mode, pessimistic),
	}

	if pessimistic {
		maxPess := 0.0
		seen := false
		for i, v := range pessDeltas {
			if source[i] {
				continue
			}
			if !seen || v > maxPess {
				maxPess = v
				seen = true
			}
		}
		s.MaxPessimisticDelta = &maxPess
	}

	return s
}

// summaryText renders the natural-language rollup: risk-type groups over the
// significantly affected downstream nodes, most frequent first, plus an alert
// tally in pessimistic mode.
func summaryText(nodes []NodeResult, mode interpret.FailureMode, pessimistic bool) string {
	riskCounts := make(map[string]int)
	alertCounts := make(map[string]int)
	total := 0

	for _, nr := range nodes {
		if nr.IsFailedSource || math.Abs(nr.Delta) <= interpret.SignificanceThreshold {
			continue
		}
		total++
		riskCounts[nr.Interpretation.RiskType]++
		alertCounts[nr.Interpretation.AlertLevel]++
	}

	if total == 0 {
		return "No significant downstream impact detected."
	}

	type group struct {
		risk  string
		count int
	}
	groups := make([]group, 0, len(riskCounts))
	for r, c := range riskCounts {
		groups = append(groups, group{risk: r, count: c})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].risk < groups[j].risk
	})

	parts := make([]string, len(groups))
	for i, g := range groups {
		parts[i] = fmt.Sprintf("%d node(s) with %s", g.count, g.risk)
	}

	text := mode.Context() + ": " + strings.Join(parts, ", ")

	if pessimistic {
		var alerts []string
		if c := alertCounts[confidence.AlertCritical]; c > 0 {
			alerts = append(alerts, fmt.Sprintf("%d CRITICAL", c))
		}
		if c := alertCounts[confidence.AlertHigh]; c > 0 {
			alerts = append(alerts, fmt.Sprintf("%d HIGH", c))
		}
		if c := alertCounts[confidence.AlertElevated]; c > 0 {
			alerts = append(alerts, fmt.Sprintf("%d ELEVATED", c))
		}
		if len(alerts) > 0 {
			text += " | ALERTS: " + strings.Join(alerts, ", ")
		}
	}

	return text
}
