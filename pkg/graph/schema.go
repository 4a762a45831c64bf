package graph

// Feature schema for infrastructure nodes. Every node carries a fixed-length
// vector: a 12-slot one-hot type encoding followed by 12 operational scalars.
//
// The operational block is indexed relative to the whole vector. Index 12 is
// the status scalar (0 = failed, 1 = healthy): the index the predictor's
// status gate reads, and the one canonical index used everywhere in this
// repository. Historical tooling disagreed on whether status lived at 12 or
// 15; the predictor contract pins it at 12.
const (
	// FeatureCount is the length of every node feature vector.
	FeatureCount = 24

	// TypeCount is the number of one-hot node type slots (indices 0..11).
	TypeCount = 12

	// StatusIndex is the operational status scalar (0 = failed, 1 = healthy).
	StatusIndex = 12

	// LevelIndex is the fill/charge level scalar.
	LevelIndex = 13

	// FlowIndex is the throughput scalar.
	FlowIndex = 14
)

// Predictor output shape: one probability vector per node.
const (
	// OutputDims is the number of impact dimensions the predictor emits.
	OutputDims = 12

	// ImpactDim is the output dimension used as the primary impact
	// probability throughout the engine.
	ImpactDim = 0
)

// typeNames maps one-hot slots to human-readable node types.
var typeNames = [TypeCount]string{
	"Road", "Building", "Power", "Tank", "Pump", "Pipe",
	"Sensor", "Cluster", "Bridge", "School", "Hospital", "Market",
}

// TypeName decodes the one-hot type block of a feature vector. The hottest
// slot wins; the lowest index wins ties. Returns "Unknown" when the vector is
// too short or the block is all zeros.
func TypeName(features []float64) string {
	if len(features) < TypeCount {
		return "Unknown"
	}

	best := -1
	bestVal := 0.0
	for i := 0; i < TypeCount; i++ {
		if features[i] > bestVal {
			best = i
			bestVal = features[i]
		}
	}

	if best < 0 {
		return "Unknown"
	}
	return typeNames[best]
}
