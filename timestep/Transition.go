package timestep

import "gonum.org/v1/gonum/mat"

// Transition records a single step of environment interaction: the
// state the agent acted from, the discrete action it took, the reward
// it received, the state it landed in, and whether that state ended
// the episode by reaching a terminal environment state.
//
// A Transition is immutable once created. After it is added to a
// replay buffer, the buffer owns the data and no other component
// should retain a reference to it.
type Transition struct {
	State     mat.Vector
	Action    int
	Reward    float64
	NextState mat.Vector
	Done      bool
}

// NewTransition packages the step from prevStep to nextStep under
// action into a Transition.
//
// Done is true only when the episode ended in a terminal environment
// state. An episode cut off by a step limit is not terminal: the value
// of the final state is still bootstrapped when computing update
// targets, exactly as if the episode had continued.
func NewTransition(prevStep TimeStep, action int, nextStep TimeStep) Transition {
	done := nextStep.Last() && nextStep.EndType == TerminalStateReached

	return Transition{
		State:     prevStep.Observation,
		Action:    action,
		Reward:    nextStep.Reward,
		NextState: nextStep.Observation,
		Done:      done,
	}
}
