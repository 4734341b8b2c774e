package mountaincar

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	env "github.com/AleBrownArnold/reinforcement-learning-study/environment"
	ts "github.com/AleBrownArnold/reinforcement-learning-study/timestep"
)

// Discrete implements the discrete-action Mountain Car environment.
//
// State features consist of the x position of the car and its velocity.
// These features are bounded by the MinPosition, MaxPosition, and
// MaxSpeed constants defined in this package. The sign of the velocity
// feature denotes direction, with negative meaning that the car is
// travelling left and positive meaning that the car is travelling
// right. Upon reaching the minimum position, the velocity of the car
// is set to 0.
//
// Actions are discrete in {0, 1, 2} and determine in which direction
// to apply full accelerating force to the car:
//
//	Action	Meaning
//	  0		Accelerate left
//	  1		Do nothing
//	  2		Accelerate right
//
// Actions outside this set result in an error from Step.
//
// Discrete implements the environment.Environment interface.
type Discrete struct {
	*base
}

// NewDiscrete creates a new discrete action Mountain Car environment
// with the argument task
func NewDiscrete(t env.Task, discount float64) (*Discrete, ts.TimeStep, error) {
	baseEnv, firstStep, err := newBase(t, discount)
	if err != nil {
		return nil, ts.TimeStep{}, err
	}

	return &Discrete{baseEnv}, firstStep, nil
}

// ActionSpec returns the action specification of the environment
func (m *Discrete) ActionSpec() env.Spec {
	shape := mat.NewVecDense(ActionDims, nil)
	lowerBound := mat.NewVecDense(ActionDims,
		[]float64{float64(MinDiscreteAction)})
	upperBound := mat.NewVecDense(ActionDims,
		[]float64{float64(MaxDiscreteAction)})

	return env.NewSpec(shape, env.Action, lowerBound, upperBound,
		env.Discrete)
}

// Step takes one environmental step given a discrete action in
// {0, 1, 2} and returns the next timestep and a bool indicating
// whether or not the episode has ended
func (m *Discrete) Step(action int) (ts.TimeStep, bool, error) {
	if action > MaxDiscreteAction || action < MinDiscreteAction {
		return ts.TimeStep{}, true, fmt.Errorf("step: illegal action %v "+
			"∉ (0, 1, 2)", action)
	}

	// Actions accelerate the car left (0), not at all (1), or right (2)
	force := float64(action) - 1.0

	newState := m.nextState(force)

	nextStep, last := m.update(action, newState)
	return nextStep, last, nil
}
