// Package agent defines an agent interface
package agent

import (
	"github.com/AleBrownArnold/reinforcement-learning-study/timestep"
)

// Agent determines the implementation details of an agent or algorithm.
//
// An Agent is composed of a Learner, which adapts value estimates from
// observed transitions, and a Policy, which chooses a discrete action
// in each state. The Policy chooses which actions are taken, and the
// Learner uses the resulting transitions to improve the Policy.
type Agent interface {
	Learner
	Policy
}

// Learner implements a learning algorithm that defines how value
// estimates are updated.
type Learner interface {
	// ObserveFirst records the first timestep in an episode
	ObserveFirst(timestep.TimeStep) error

	// Observe records that an action led to some timestep
	Observe(action int, nextStep timestep.TimeStep) error

	// Step performs a single update to the learner
	Step() error

	// EndEpisode performs cleanup at the end of an episode
	EndEpisode()
}

// Policy represents a policy that an agent can have.
//
// Policies determine how agents select actions. In evaluation mode a
// Policy must select actions greedily and deterministically, with no
// exploration.
type Policy interface {
	SelectAction(t timestep.TimeStep) (int, error)
	Eval()        // Set policy to evaluation mode
	Train()       // Set policy to training mode
	IsEval() bool // Indicates if in evaluation mode
}
