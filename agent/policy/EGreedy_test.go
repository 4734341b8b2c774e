package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"

	"github.com/AleBrownArnold/reinforcement-learning-study/network"
	"github.com/AleBrownArnold/reinforcement-learning-study/timestep"
)

// fixedNet is a stub value network returning a fixed value vector for
// every state.
type fixedNet struct {
	values []float64
}

func (f *fixedNet) Predict([]float64) ([]float64, error) {
	out := make([]float64, len(f.values))
	copy(out, f.values)
	return out, nil
}

func (f *fixedNet) PredictBatch(states []float64) ([]float64, error) {
	return nil, nil
}

func (f *fixedNet) TrainStep(states, targets []float64) (float64, error) {
	return 0, nil
}

func (f *fixedNet) Set(network.NeuralNet) error              { return nil }
func (f *fixedNet) Polyak(network.NeuralNet, float64) error  { return nil }
func (f *fixedNet) Snapshot() (network.Snapshot, error)      { return network.Snapshot{}, nil }
func (f *fixedNet) Restore(network.Snapshot) error           { return nil }
func (f *fixedNet) Learnables() G.Nodes                      { return nil }
func (f *fixedNet) Features() int                            { return 2 }
func (f *fixedNet) Outputs() int                             { return len(f.values) }
func (f *fixedNet) BatchSize() int                           { return 1 }
func (f *fixedNet) Close() error                             { return nil }

func step() timestep.TimeStep {
	obs := mat.NewVecDense(2, []float64{0.1, 0.2})
	return timestep.New(timestep.Mid, -1.0, 1.0, obs, 1)
}

// TestEGreedyGreedyTieBreak checks that evaluation-mode selection is
// deterministic and breaks ties by the lowest action index.
func TestEGreedyGreedyTieBreak(t *testing.T) {
	net := &fixedNet{values: []float64{1.0, 1.0, 0.5}}
	exp, err := NewExploration(1.0, 0.01, 0.9, Multiplicative)
	require.NoError(t, err)

	p, err := NewEGreedy(net, &exp, 3, 42)
	require.NoError(t, err)
	p.Eval()

	for i := 0; i < 10; i++ {
		action, err := p.SelectAction(step())
		require.NoError(t, err)
		assert.Equal(t, 0, action)
	}
}

// TestEGreedyGreedyWhenEpsilonZero checks that a zero exploration rate
// always selects the highest-valued action, even in training mode.
func TestEGreedyGreedyWhenEpsilonZero(t *testing.T) {
	net := &fixedNet{values: []float64{0.3, 0.9, 0.1}}
	exp, err := NewExploration(0.0, 0.0, 0.9, Multiplicative)
	require.NoError(t, err)

	p, err := NewEGreedy(net, &exp, 3, 42)
	require.NoError(t, err)
	p.Train()

	for i := 0; i < 10; i++ {
		action, err := p.SelectAction(step())
		require.NoError(t, err)
		assert.Equal(t, 1, action)
	}
}

// TestEGreedyExploresAllActions checks that full exploration covers
// the whole action space.
func TestEGreedyExploresAllActions(t *testing.T) {
	net := &fixedNet{values: []float64{0.0, 0.0, 0.0}}
	exp, err := NewExploration(1.0, 1.0, 1.0, Multiplicative)
	require.NoError(t, err)

	p, err := NewEGreedy(net, &exp, 3, 42)
	require.NoError(t, err)

	seen := make(map[int]bool)
	for i := 0; i < 100; i++ {
		action, err := p.SelectAction(step())
		require.NoError(t, err)
		assert.Contains(t, []int{0, 1, 2}, action)
		seen[action] = true
	}
	assert.Len(t, seen, 3)
}

// TestNewEGreedyValidation checks constructor validation of the action
// space.
func TestNewEGreedyValidation(t *testing.T) {
	net := &fixedNet{values: []float64{0.0, 0.0, 0.0}}
	exp, err := NewExploration(1.0, 0.01, 0.9, Multiplicative)
	require.NoError(t, err)

	_, err = NewEGreedy(net, &exp, 0, 42)
	assert.ErrorIs(t, err, ErrInvalidActionSpace)

	_, err = NewEGreedy(net, &exp, 2, 42)
	assert.Error(t, err)
}
