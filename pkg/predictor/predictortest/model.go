// Package predictortest provides test doubles around the cascade model so
// engine and attribution tests can assert predictor fan-out exactly.
package predictortest

import (
	"context"
	"sync/atomic"

	"github.com/ML-dev-crypto/village-digital-twin/pkg/graph"
	"github.com/ML-dev-crypto/village-digital-twin/pkg/predictor/cascade"
)

// Model wraps cascade.Model with a call counter. Identical inputs always
// produce identical outputs, and the model is safe for concurrent use.
type Model struct {
	*cascade.Model

	calls atomic.Int64
}

// New returns a counting Model with default attenuation.
func New() *Model {
	return &Model{Model: cascade.New()}
}

// Calls reports how many times Predict has run, for asserting fan-out.
func (m *Model) Calls() int64 {
	return m.calls.Load()
}

// Predict implements predictor.Port.
func (m *Model) Predict(ctx context.Context, features [][]float64, edges []graph.Edge, weights []float64) ([][]float64, error) {
	m.calls.Add(1)
	return m.Model.Predict(ctx, features, edges, weights)
}
