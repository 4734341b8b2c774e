package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMultiplicativeDecayMonotonic checks that multiplicative decay
// never increases epsilon and never drops below the minimum.
func TestMultiplicativeDecayMonotonic(t *testing.T) {
	exp, err := NewExploration(1.0, 0.01, 0.9, Multiplicative)
	require.NoError(t, err)

	prev := exp.Epsilon
	for i := 0; i < 200; i++ {
		exp.Decay()
		assert.LessOrEqual(t, exp.Epsilon, prev)
		assert.GreaterOrEqual(t, exp.Epsilon, exp.Min)
		prev = exp.Epsilon
	}
	assert.Equal(t, exp.Min, exp.Epsilon)
	assert.Equal(t, 200, exp.Steps)
}

// TestLinearDecayMonotonic checks that linear decay never increases
// epsilon and clips at the minimum.
func TestLinearDecayMonotonic(t *testing.T) {
	exp, err := NewExploration(1.0, 0.05, 0.01, Linear)
	require.NoError(t, err)

	prev := exp.Epsilon
	for i := 0; i < 150; i++ {
		exp.Decay()
		assert.LessOrEqual(t, exp.Epsilon, prev)
		assert.GreaterOrEqual(t, exp.Epsilon, exp.Min)
		prev = exp.Epsilon
	}
	assert.Equal(t, exp.Min, exp.Epsilon)
}

// TestNewExplorationValidation checks constructor validation of the
// schedule parameters.
func TestNewExplorationValidation(t *testing.T) {
	_, err := NewExploration(1.5, 0.1, 0.9, Multiplicative)
	assert.Error(t, err)

	_, err = NewExploration(0.5, 0.7, 0.9, Multiplicative)
	assert.Error(t, err)

	_, err = NewExploration(1.0, 0.1, 1.5, Multiplicative)
	assert.Error(t, err)

	_, err = NewExploration(1.0, 0.1, -0.1, Linear)
	assert.Error(t, err)

	_, err = NewExploration(1.0, 0.1, 0.9, Schedule("cosine"))
	assert.Error(t, err)
}
