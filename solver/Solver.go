// Package solver wraps Gorgonia solvers behind a flat, typed
// configuration so that the choice of optimizer can live in an
// experiment configuration file.
package solver

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of solvers that are available
type Type string

// Available solver types
const (
	Adam    Type = "Adam"
	RMSProp Type = "RMSProp"
	Vanilla Type = "Vanilla"
)

// Solver describes a Gorgonia solver. All fields map one-to-one onto
// YAML configuration keys; fields that do not apply to the chosen Type
// are ignored.
type Solver struct {
	Type     Type    `yaml:"type"`
	StepSize float64 `yaml:"step_size"`

	// Adam
	Epsilon float64 `yaml:"epsilon"`
	Beta1   float64 `yaml:"beta1"`
	Beta2   float64 `yaml:"beta2"`

	// RMSProp
	Rho float64 `yaml:"rho"`

	Batch int `yaml:"batch"`
}

// NewDefaultAdam returns an Adam Solver with default hyperparameters
func NewDefaultAdam(stepSize float64, batch int) Solver {
	return Solver{
		Type:     Adam,
		StepSize: stepSize,
		Epsilon:  1e-8,
		Beta1:    0.9,
		Beta2:    0.999,
		Batch:    batch,
	}
}

// NewVanilla returns a vanilla stochastic gradient descent Solver
func NewVanilla(stepSize float64, batch int) Solver {
	return Solver{Type: Vanilla, StepSize: stepSize, Batch: batch}
}

// Validate returns an error if the Solver describes no constructible
// Gorgonia solver
func (s Solver) Validate() error {
	switch s.Type {
	case Adam, RMSProp, Vanilla:
	default:
		return fmt.Errorf("validate: no such solver type %q", s.Type)
	}
	if s.StepSize <= 0 {
		return fmt.Errorf("validate: step size must be positive")
	}
	if s.Batch < 1 {
		return fmt.Errorf("validate: batch must be >= 1")
	}
	return nil
}

// Create returns the Gorgonia solver described by the configuration
func (s Solver) Create() (G.Solver, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	switch s.Type {
	case Adam:
		return G.NewAdamSolver(
			G.WithLearnRate(s.StepSize),
			G.WithEps(s.Epsilon),
			G.WithBeta1(s.Beta1),
			G.WithBeta2(s.Beta2),
			G.WithBatchSize(float64(s.Batch)),
		), nil

	case RMSProp:
		return G.NewRMSPropSolver(
			G.WithLearnRate(s.StepSize),
			G.WithRho(s.Rho),
			G.WithBatchSize(float64(s.Batch)),
		), nil

	case Vanilla:
		return G.NewVanillaSolver(
			G.WithLearnRate(s.StepSize),
			G.WithBatchSize(float64(s.Batch)),
		), nil
	}

	return nil, fmt.Errorf("create: no such solver type %q", s.Type)
}
