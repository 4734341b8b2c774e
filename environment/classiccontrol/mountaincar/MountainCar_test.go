package mountaincar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	env "github.com/AleBrownArnold/reinforcement-learning-study/environment"
	ts "github.com/AleBrownArnold/reinforcement-learning-study/timestep"
)

// fixedStarter always starts episodes from the same state
type fixedStarter struct {
	position float64
	velocity float64
}

func (f fixedStarter) Start() mat.Vector {
	return mat.NewVecDense(2, []float64{f.position, f.velocity})
}

func newTestEnv(t *testing.T, start fixedStarter,
	episodeSteps int) *Discrete {
	task := NewGoal(start, episodeSteps, GoalPosition)
	environment, firstStep, err := NewDiscrete(task, 0.99)
	require.NoError(t, err)
	require.True(t, firstStep.First())
	return environment
}

// TestStateStaysInBounds checks that position and velocity never leave
// their physical bounds, whatever actions are taken.
func TestStateStaysInBounds(t *testing.T) {
	environment := newTestEnv(t, fixedStarter{position: -0.5}, 1000)

	actions := []int{0, 0, 0, 2, 2, 2, 1, 0, 2}
	for i := 0; i < 500; i++ {
		step, last, err := environment.Step(actions[i%len(actions)])
		require.NoError(t, err)

		position := step.Observation.AtVec(0)
		velocity := step.Observation.AtVec(1)
		assert.GreaterOrEqual(t, position, MinPosition)
		assert.LessOrEqual(t, position, MaxPosition)
		assert.GreaterOrEqual(t, velocity, -MaxSpeed)
		assert.LessOrEqual(t, velocity, MaxSpeed)

		if last {
			_, err := environment.Reset()
			require.NoError(t, err)
		}
	}
}

// TestLeftWallStopsCar checks that the car stops dead when it hits
// the left wall at speed.
func TestLeftWallStopsCar(t *testing.T) {
	environment := newTestEnv(t, fixedStarter{position: -1.0,
		velocity: -MaxSpeed}, 1000)

	// Accelerate left until the car slams into the wall
	hitWall := false
	for i := 0; i < 10 && !hitWall; i++ {
		step, _, err := environment.Step(0)
		require.NoError(t, err)
		if step.Observation.AtVec(0) == MinPosition {
			hitWall = true
			assert.Equal(t, 0.0, step.Observation.AtVec(1))
		}
	}
	assert.True(t, hitWall)
}

// TestGoalTermination checks that crossing the goal position ends the
// episode in a terminal state with reward 0.
func TestGoalTermination(t *testing.T) {
	// Start just below the goal moving right at full speed
	environment := newTestEnv(t, fixedStarter{position: GoalPosition - 0.01,
		velocity: MaxSpeed}, 1000)

	step, last, err := environment.Step(2)
	require.NoError(t, err)
	require.True(t, last)
	assert.Equal(t, ts.TerminalStateReached, step.EndType)
	assert.Equal(t, 0.0, step.Reward)
	assert.True(t, environment.AtGoal(step.Observation))
}

// TestStepLimitTermination checks that episodes are cut off at the
// step limit with a timeout, not a terminal state.
func TestStepLimitTermination(t *testing.T) {
	environment := newTestEnv(t, fixedStarter{position: -0.5}, 10)

	var step ts.TimeStep
	var last bool
	var err error
	for i := 0; i < 10; i++ {
		step, last, err = environment.Step(1)
		require.NoError(t, err)
		if i < 9 {
			require.False(t, last)
			assert.Equal(t, -1.0, step.Reward)
		}
	}
	require.True(t, last)
	assert.Equal(t, ts.TerminalTimeout, step.EndType)
}

// TestIllegalAction checks that actions outside {0, 1, 2} are
// rejected.
func TestIllegalAction(t *testing.T) {
	environment := newTestEnv(t, fixedStarter{position: -0.5}, 1000)

	_, _, err := environment.Step(3)
	assert.Error(t, err)
	_, _, err = environment.Step(-1)
	assert.Error(t, err)
}

// TestActionSpec checks the discrete action specification
func TestActionSpec(t *testing.T) {
	environment := newTestEnv(t, fixedStarter{position: -0.5}, 1000)

	spec := environment.ActionSpec()
	assert.Equal(t, env.Discrete, spec.Cardinality)
	assert.Equal(t, 3, spec.NumActions())
}

// TestResetUsesStarter checks that Reset draws a fresh starting state
// from the task's Starter.
func TestResetUsesStarter(t *testing.T) {
	environment := newTestEnv(t, fixedStarter{position: -0.4}, 1000)

	for i := 0; i < 5; i++ {
		environment.Step(2)
	}

	step, err := environment.Reset()
	require.NoError(t, err)
	assert.True(t, step.First())
	assert.Equal(t, -0.4, step.Observation.AtVec(0))
	assert.Equal(t, 0.0, step.Observation.AtVec(1))
}
