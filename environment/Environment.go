// Package environment outlines the interfaces and structs needed to implement
// concrete environments
package environment

import (
	"gonum.org/v1/gonum/mat"

	"github.com/AleBrownArnold/reinforcement-learning-study/timestep"
)

// Starter implements a distribution of starting states and samples starting
// states for environments
type Starter interface {
	Start() mat.Vector
}

// Ender determines whether a timestep is the last in an episode,
// adjusting the timestep's StepType and EndType if so
type Ender interface {
	End(*timestep.TimeStep) bool
}

// Task implements the reward scheme for taking actions in some environment
type Task interface {
	Starter
	Ender

	// GetReward returns the reward for taking an action in a state,
	// resulting in a next state
	GetReward(state mat.Vector, action int, nextState mat.Vector) float64

	// AtGoal returns whether the argument state is a goal state
	AtGoal(state mat.Matrix) bool

	// Min and Max return the minimum and maximum attainable rewards
	Min() float64
	Max() float64

	RewardSpec() Spec
}

// Environment implements a simulated environment, which includes a Task to
// complete.
//
// Environments expose a fixed-length continuous observation vector and
// a finite set of discrete actions enumerated from 0. Errors returned
// by Reset or Step are fatal to a training run: the environment is the
// ground truth of the interaction and a failed step cannot be skipped
// or retried without corrupting the recorded trajectory.
type Environment interface {
	Task

	// Reset resets the environment between episodes
	Reset() (timestep.TimeStep, error)

	// Step takes one environmental step given a discrete action and
	// returns the next timestep and whether it is the last in the
	// episode
	Step(action int) (timestep.TimeStep, bool, error)

	DiscountSpec() Spec
	ObservationSpec() Spec
	ActionSpec() Spec
}

// Renderer is an Environment that can draw its current state to the
// terminal
type Renderer interface {
	Environment
	Render()
}
