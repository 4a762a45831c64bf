// Package confidence turns raw prediction deltas into trust scores and
// worst-case projections. Both transforms scale by topology weight: a swing
// at a well-connected junction is more credible, and more dangerous, than
// the same swing at a leaf.
package confidence

import "math"

// Confidence labels
const (
	LabelLow    = "low"
	LabelMedium = "medium"
	LabelHigh   = "high"
)

// Alert levels for pessimistic projections
const (
	AlertNormal   = "normal"
	AlertElevated = "elevated"
	AlertHigh     = "high"
	AlertCritical = "critical"
)

// Label thresholds
const (
	mediumThreshold = 0.2
	highThreshold   = 0.5
)

// Alert thresholds
const (
	elevatedThreshold = 0.2
	alertHighCutoff   = 0.5
	criticalThreshold = 0.8
)

// amplify is the pessimistic gain applied to positive deltas; dampen shrinks
// negative (improvement) deltas, which are usually rebound artifacts.
const (
	amplify = 2.0
	dampen  = 0.1
)

// Score maps a delta and the node's topology weight to a confidence value in
// [0,1]. The magnitude contribution saturates at |delta| = 0.5; past that the
// prediction has moved as far as a probability can, and more swing does not
// mean more certainty.
func Score(delta, topoWeight float64) float64 {
	raw := math.Min(math.Abs(delta)*2.0, 1.0)
	return clamp01(raw * topoWeight)
}

// Label buckets a confidence value for human consumption.
func Label(score float64) string {
	switch {
	case score < mediumThreshold:
		return LabelLow
	case score < highThreshold:
		return LabelMedium
	default:
		return LabelHigh
	}
}

// PessimisticDelta projects a delta to its plausible worst case. Positive
// deltas grow by a square-root curve, which inflates small increases far more
// than large ones, scaled by topology weight and capped at 1.0. Negative
// deltas shrink toward zero instead: an apparent improvement during a failure
// is not something to bank on.
func PessimisticDelta(delta, topoWeight float64) float64 {
	if delta > 0 {
		return math.Min(math.Sqrt(delta)*amplify*topoWeight, 1.0)
	}
	return delta * dampen
}

// AlertLevel buckets an amplified delta into an operational alert. Negative
// values never alert.
func AlertLevel(amplified float64) string {
	switch {
	case amplified >= criticalThreshold:
		return AlertCritical
	case amplified >= alertHighCutoff:
		return AlertHigh
	case amplified >= elevatedThreshold:
		return AlertElevated
	default:
		return AlertNormal
	}
}

func clamp01(v float64) float64 {
	return math.Min(1.0, math.Max(0.0, v))
}
