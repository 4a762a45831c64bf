// Package interpret assigns meaning to prediction deltas. A delta is just a
// number; what it signifies depends on the failure scenario and the delta's
// direction. The mapping is a fixed lookup table over (mode, sign) so every
// combination is enumerable and testable.
package interpret

import (
	"fmt"
	"math"

	"github.com/ML-dev-crypto/village-digital-twin/pkg/confidence"
)

// SignificanceThreshold separates real effects from prediction noise. Deltas
// below it in magnitude are reported as unaffected.
const SignificanceThreshold = 0.01

// Risk type tags
const (
	RiskFailureSource       = "FAILURE_SOURCE"
	RiskUnaffected          = "UNAFFECTED"
	RiskStagnation          = "STAGNATION_RISK"
	RiskLoadRedistribution  = "LOAD_REDISTRIBUTION"
	RiskSupplyIsolation     = "SUPPLY_ISOLATION"
	RiskPressureSurge       = "PRESSURE_SURGE"
	RiskBackflow            = "BACKFLOW_RISK"
	RiskContaminationSpread = "CONTAMINATION_SPREAD"
	RiskControlBlindSpot    = "CONTROL_BLIND_SPOT"
	RiskControlInstability  = "CONTROL_INSTABILITY"
	RiskImpactDecrease      = "IMPACT_DECREASE"
	RiskImpactIncrease      = "IMPACT_INCREASE"
)

// Severity tiers
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Interpretation is the semantic reading of one node's delta.
type Interpretation struct {
	RiskType        string  `json:"riskType"`
	Explanation     string  `json:"explanation"`
	Severity        string  `json:"severity"`
	Confidence      float64 `json:"confidence"`
	ConfidenceLabel string  `json:"confidenceLabel"`
	AlertLevel      string  `json:"alertLevel"`
}

// reading is one cell of the interpretation table: the risk tag plus the
// explanation fragment appended after the node name.
type reading struct {
	riskType string
	text     string
}

// table maps (failure mode, delta direction) to a reading. Rows cover every
// recognized mode; directional dispatch picks negative for delta < 0,
// positive otherwise.
var table = map[FailureMode]struct {
	negative reading
	positive reading
}{
	ModeDemandLoss: {
		negative: reading{RiskStagnation, "Reduced load → water stagnation risk"},
		positive: reading{RiskLoadRedistribution, "Compensating for lost demand"},
	},
	ModeSupplyCut: {
		negative: reading{RiskSupplyIsolation, "Cut off from supply source"},
		positive: reading{RiskPressureSurge, "Pressure redistribution detected"},
	},
	ModeContamination: {
		negative: reading{RiskBackflow, "Reduced pressure → backflow contamination risk"},
		positive: reading{RiskContaminationSpread, "In contamination spread path"},
	},
	ModeControlFailure: {
		negative: reading{RiskControlBlindSpot, "Lost monitoring/control visibility"},
		positive: reading{RiskControlInstability, "Control loop instability detected"},
	},
	ModeNone: {
		negative: reading{RiskImpactDecrease, "Impact probability decreased"},
		positive: reading{RiskImpactIncrease, "Impact probability increased"},
	},
}

// Delta interprets one node's delta in context. The forced-failure source
// gets a fixed sentinel reading regardless of its own numbers; deltas below
// the significance threshold read as unaffected; everything else goes
// through the (mode, sign) table. In pessimistic mode the severity tier
// follows the amplified projection for positive deltas, and a raised alert
// level takes precedence over the magnitude tier.
func Delta(delta float64, nodeName string, isSource bool, mode FailureMode, topoWeight float64, pessimistic bool) Interpretation {
	if isSource {
		return Interpretation{
			RiskType:        RiskFailureSource,
			Explanation:     fmt.Sprintf("%s is the simulated failure point", nodeName),
			Severity:        SeverityCritical,
			Confidence:      1.0,
			ConfidenceLabel: confidence.LabelHigh,
			AlertLevel:      confidence.AlertCritical,
		}
	}

	score := confidence.Score(delta, topoWeight)
	amplified := confidence.PessimisticDelta(delta, topoWeight)
	alert := confidence.AlertLevel(amplified)

	if math.Abs(delta) < SignificanceThreshold {
		return Interpretation{
			RiskType:        RiskUnaffected,
			Explanation:     fmt.Sprintf("%s is not significantly affected", nodeName),
			Severity:        SeverityLow,
			Confidence:      score,
			ConfidenceLabel: confidence.Label(score),
			AlertLevel:      alert,
		}
	}

	effective := math.Abs(delta)
	if pessimistic && delta > 0 {
		effective = amplified
	}
	severity := severityTier(effective)
	if pessimistic && alert != confidence.AlertNormal {
		severity = severityFromAlert(alert)
	}

	entry := table[mode]
	if !mode.Valid() {
		entry = table[ModeNone]
	}
	r := entry.positive
	if delta < 0 {
		r = entry.negative
	}

	return Interpretation{
		RiskType:        r.riskType,
		Explanation:     fmt.Sprintf("%s: %s (Δ%+.2f)", nodeName, r.text, delta),
		Severity:        severity,
		Confidence:      score,
		ConfidenceLabel: confidence.Label(score),
		AlertLevel:      alert,
	}
}

// severityTier buckets an effective magnitude into a severity.
func severityTier(effective float64) string {
	switch {
	case effective < 0.05:
		return SeverityLow
	case effective < 0.15:
		return SeverityMedium
	case effective < 0.30:
		return SeverityHigh
	default:
		return SeverityCritical
	}
}

// severityFromAlert projects a raised alert level onto the severity scale.
// Elevated sits between normal and high, so it lands on medium.
func severityFromAlert(alert string) string {
	switch alert {
	case confidence.AlertCritical:
		return SeverityCritical
	case confidence.AlertHigh:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}
