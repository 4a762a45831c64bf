package validation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/ML-dev-crypto/village-digital-twin/pkg/graph"
	"github.com/ML-dev-crypto/village-digital-twin/pkg/interpret"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// Validation constants
	MaxNodes       = 100000
	MaxEdges       = 1000000
	MaxNameLength  = 200
)

func init() {
	validate = validator.New()
}

// SimulationRequest is the wire form of a simulation call: the full graph
// snapshot plus the failure scenario. Field names follow the public report
// schema.
type SimulationRequest struct {
	Features    [][]float64  `json:"features" validate:"required,min=1"`
	Edges       []graph.Edge `json:"edges" validate:"omitempty"`
	Weights     []float64    `json:"weights" validate:"omitempty"`
	FailedNodes []int        `json:"failedNodes" validate:"required,min=1"`
	Names       []string     `json:"names" validate:"omitempty"`
	FailureMode string       `json:"failureMode" validate:"omitempty"`
	Pessimistic bool         `json:"pessimistic"`
}

// Snapshot converts the request into a graph snapshot. Call
// ValidateSimulationRequest first; this does no checking of its own.
func (r *SimulationRequest) Snapshot() *graph.Snapshot {
	return &graph.Snapshot{
		Features: r.Features,
		Edges:    r.Edges,
		Weights:  r.Weights,
		Names:    r.Names,
	}
}

// Mode parses the request's failure-mode tag.
func (r *SimulationRequest) Mode() (interpret.FailureMode, error) {
	return interpret.ParseFailureMode(r.FailureMode)
}

// ValidateSimulationRequest validates a simulation request end to end:
// struct tags first, then graph consistency, feature width, index bounds,
// and the failure-mode tag.
func ValidateSimulationRequest(req *SimulationRequest) error {
	if req == nil {
		return errors.New("simulation request cannot be nil")
	}

	// Validate using struct tags
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}

	n := len(req.Features)
	if n > MaxNodes {
		return fmt.Errorf("Features: maximum %d nodes allowed, got %d", MaxNodes, n)
	}
	if len(req.Edges) > MaxEdges {
		return fmt.Errorf("Edges: maximum %d edges allowed, got %d", MaxEdges, len(req.Edges))
	}

	// The predictor contract fixes the feature width
	for i, row := range req.Features {
		if len(row) != graph.FeatureCount {
			return fmt.Errorf("Features: row %d has %d features, predictor contract requires %d",
				i, len(row), graph.FeatureCount)
		}
	}

	// Graph-level consistency (edge bounds, weight and name counts)
	if err := req.Snapshot().Validate(); err != nil {
		return fmt.Errorf("graph: %w", err)
	}

	for i, name := range req.Names {
		if len(name) > MaxNameLength {
			return fmt.Errorf("Names: name at index %d exceeds maximum length of %d characters", i, MaxNameLength)
		}
	}

	for _, idx := range req.FailedNodes {
		if idx < 0 || idx >= n {
			return fmt.Errorf("FailedNodes: index %d out of range [0, %d)", idx, n)
		}
	}

	if _, err := req.Mode(); err != nil {
		return fmt.Errorf("FailureMode: %w", err)
	}

	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Field()
		tag := e.Tag()
		param := e.Param()

		switch tag {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must have at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, tag)
		}
	}

	return err
}
