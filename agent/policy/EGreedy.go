// Package policy implements action selection policies over learned
// action values.
package policy

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/AleBrownArnold/reinforcement-learning-study/network"
	"github.com/AleBrownArnold/reinforcement-learning-study/timestep"
	"github.com/AleBrownArnold/reinforcement-learning-study/utils/floatutils"
)

// ErrInvalidActionSpace is returned when a policy is constructed over
// an action space with no actions
var ErrInvalidActionSpace = errors.New("action space needs at least 1 action")

// EGreedy implements an epsilon-greedy policy over the action values
// predicted by a value network.
//
// In training mode the policy explores with probability epsilon,
// choosing uniformly among all actions. In evaluation mode the policy
// is fully greedy and deterministic. Ties between equal action values
// are broken by the lowest action index.
type EGreedy struct {
	net         network.NeuralNet
	exploration *Exploration
	numActions  int
	rng         *rand.Rand
	eval        bool
}

// NewEGreedy returns a new epsilon-greedy policy over the action
// values of net. The exploration schedule is shared with the caller so
// that a learner can decay it between updates.
func NewEGreedy(net network.NeuralNet, exploration *Exploration,
	numActions int, seed int64) (*EGreedy, error) {
	if numActions < 1 {
		return nil, fmt.Errorf("newEGreedy: %w: got %v",
			ErrInvalidActionSpace, numActions)
	}
	if net.Outputs() != numActions {
		return nil, fmt.Errorf("newEGreedy: network predicts %v action "+
			"values but action space has %v actions", net.Outputs(),
			numActions)
	}

	return &EGreedy{
		net:         net,
		exploration: exploration,
		numActions:  numActions,
		rng:         rand.New(rand.NewSource(seed)),
	}, nil
}

// SelectAction selects an action at the argument timestep.
func (e *EGreedy) SelectAction(t timestep.TimeStep) (int, error) {
	if !e.eval && e.rng.Float64() < e.exploration.Epsilon {
		return e.rng.Intn(e.numActions), nil
	}

	obs := t.Observation
	state := make([]float64, obs.Len())
	for i := range state {
		state[i] = obs.AtVec(i)
	}

	values, err := e.net.Predict(state)
	if err != nil {
		return 0, fmt.Errorf("selectAction: could not predict action "+
			"values: %v", err)
	}

	return floatutils.ArgMax(values), nil
}

// Eval sets the policy to evaluation mode
func (e *EGreedy) Eval() { e.eval = true }

// Train sets the policy to training mode
func (e *EGreedy) Train() { e.eval = false }

// IsEval indicates if the policy is in evaluation mode
func (e *EGreedy) IsEval() bool { return e.eval }

// Epsilon returns the current probability of exploring
func (e *EGreedy) Epsilon() float64 { return e.exploration.Epsilon }
