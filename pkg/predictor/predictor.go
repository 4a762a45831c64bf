// Package predictor defines the boundary to the black-box impact model.
//
// The simulation and attribution layers never look inside the model; they
// hand it a feature matrix plus topology and get back one probability vector
// per node. Anything satisfying Port can sit behind the boundary: an
// in-process model, a subprocess, or a remote inference service.
package predictor

import (
	"context"
	"errors"
	"fmt"

	"github.com/ML-dev-crypto/village-digital-twin/pkg/graph"
)

// Common sentinel errors
var (
	ErrShapeMismatch = errors.New("predictor output shape mismatch")
	ErrUnavailable   = errors.New("predictor unavailable")
)

// Port is the single entry point to the impact model. Implementations must
// be safe for concurrent use; the attribution algorithms fan out many calls
// at once. The returned matrix is [N][OutputDims] with dimension
// graph.ImpactDim holding the impact probability.
type Port interface {
	Predict(ctx context.Context, features [][]float64, edges []graph.Edge, weights []float64) ([][]float64, error)
}

// Func adapts a plain function to the Port interface.
type Func func(ctx context.Context, features [][]float64, edges []graph.Edge, weights []float64) ([][]float64, error)

// Predict implements Port.
func (f Func) Predict(ctx context.Context, features [][]float64, edges []graph.Edge, weights []float64) ([][]float64, error) {
	return f(ctx, features, edges, weights)
}

// PredictorError provides structured error information for predictor calls.
type PredictorError struct {
	Op    string // Calling pass (e.g., "baseline", "counterfactual", "occlusion")
	Nodes int    // Node count of the offending call
	Cause error  // Underlying error
}

// Error implements the error interface.
func (e *PredictorError) Error() string {
	if e.Nodes > 0 {
		return fmt.Sprintf("predict %s (%d nodes): %v", e.Op, e.Nodes, e.Cause)
	}
	return fmt.Sprintf("predict %s: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *PredictorError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error or its cause.
func (e *PredictorError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

// CallError wraps a failed predictor call with its originating pass.
func CallError(op string, nodes int, cause error) error {
	return &PredictorError{Op: op, Nodes: nodes, Cause: cause}
}

// ValidateOutput checks that a prediction matrix has one row per node and
// OutputDims columns per row. Dimension content is not constrained; the
// model owns its own calibration.
func ValidateOutput(probs [][]float64, nodes int) error {
	if len(probs) != nodes {
		return fmt.Errorf("%w: got %d rows, want %d", ErrShapeMismatch, len(probs), nodes)
	}
	for i, row := range probs {
		if len(row) != graph.OutputDims {
			return fmt.Errorf("%w: row %d has %d dims, want %d",
				ErrShapeMismatch, i, len(row), graph.OutputDims)
		}
	}
	return nil
}

// Impact extracts the impact-probability dimension from a prediction matrix.
func Impact(probs [][]float64) []float64 {
	out := make([]float64, len(probs))
	for i, row := range probs {
		out[i] = row[graph.ImpactDim]
	}
	return out
}

// Call runs a single validated prediction against the port, wrapping any
// failure or shape violation with the originating pass name.
func Call(ctx context.Context, port Port, op string, snap *graph.Snapshot) ([][]float64, error) {
	probs, err := port.Predict(ctx, snap.Features, snap.Edges, snap.Weights)
	if err != nil {
		return nil, CallError(op, snap.NodeCount(), err)
	}
	if err := ValidateOutput(probs, snap.NodeCount()); err != nil {
		return nil, CallError(op, snap.NodeCount(), err)
	}
	return probs, nil
}
