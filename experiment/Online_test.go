package experiment

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	env "github.com/AleBrownArnold/reinforcement-learning-study/environment"
	"github.com/AleBrownArnold/reinforcement-learning-study/experiment/checkpointer"
	"github.com/AleBrownArnold/reinforcement-learning-study/experiment/tracker"
	ts "github.com/AleBrownArnold/reinforcement-learning-study/timestep"
)

// chainEnv is a deterministic corridor environment for testing
// experiment plumbing. Action 1 moves right, action 0 moves left, and
// reaching position goal ends the episode with reward 1. Every other
// step has reward -1. Episodes are cut off after stepLimit steps.
type chainEnv struct {
	position  int
	goal      int
	stepLimit int
	steps     int
}

func newChainEnv(goal, stepLimit int) *chainEnv {
	return &chainEnv{goal: goal, stepLimit: stepLimit}
}

func (c *chainEnv) observation() mat.Vector {
	return mat.NewVecDense(1, []float64{float64(c.position)})
}

func (c *chainEnv) Reset() (ts.TimeStep, error) {
	c.position = 0
	c.steps = 0
	return ts.New(ts.First, 0.0, 1.0, c.observation(), 0), nil
}

func (c *chainEnv) Step(action int) (ts.TimeStep, bool, error) {
	if action == 1 {
		c.position++
	} else if c.position > 0 {
		c.position--
	}
	c.steps++

	reward := -1.0
	step := ts.New(ts.Mid, reward, 1.0, c.observation(), c.steps)
	if c.position >= c.goal {
		step.Reward = 1.0
		step.StepType = ts.Last
		step.SetEnd(ts.TerminalStateReached)
	} else if c.steps >= c.stepLimit {
		step.StepType = ts.Last
		step.SetEnd(ts.TerminalTimeout)
	}
	return step, step.Last(), nil
}

func (c *chainEnv) Start() mat.Vector { return mat.NewVecDense(1, nil) }
func (c *chainEnv) End(*ts.TimeStep) bool {
	return false
}
func (c *chainEnv) GetReward(mat.Vector, int, mat.Vector) float64 { return -1 }
func (c *chainEnv) AtGoal(state mat.Matrix) bool {
	return state.At(0, 0) >= float64(c.goal)
}
func (c *chainEnv) Min() float64 { return -1.0 }
func (c *chainEnv) Max() float64 { return 1.0 }
func (c *chainEnv) RewardSpec() env.Spec {
	bounds := mat.NewVecDense(1, []float64{-1.0})
	upper := mat.NewVecDense(1, []float64{1.0})
	shape := mat.NewVecDense(1, nil)
	return env.NewSpec(shape, env.Reward, bounds, upper, env.Continuous)
}
func (c *chainEnv) DiscountSpec() env.Spec { return c.RewardSpec() }
func (c *chainEnv) ObservationSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	lower := mat.NewVecDense(1, []float64{0.0})
	upper := mat.NewVecDense(1, []float64{float64(c.goal)})
	return env.NewSpec(shape, env.Observation, lower, upper, env.Continuous)
}
func (c *chainEnv) ActionSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	lower := mat.NewVecDense(1, []float64{0.0})
	upper := mat.NewVecDense(1, []float64{1.0})
	return env.NewSpec(shape, env.Action, lower, upper, env.Discrete)
}

// rightAgent always moves right and records protocol calls
type rightAgent struct {
	eval     bool
	observed int
	episodes int
	stepped  int
}

func (r *rightAgent) ObserveFirst(ts.TimeStep) error { return nil }
func (r *rightAgent) Observe(int, ts.TimeStep) error {
	r.observed++
	return nil
}
func (r *rightAgent) Step() error {
	r.stepped++
	return nil
}
func (r *rightAgent) EndEpisode()                        { r.episodes++ }
func (r *rightAgent) SelectAction(ts.TimeStep) (int, error) { return 1, nil }
func (r *rightAgent) Eval()                              { r.eval = true }
func (r *rightAgent) Train()                             { r.eval = false }
func (r *rightAgent) IsEval() bool                       { return r.eval }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestOnlineStepBudget checks that the experiment stops at the total
// step budget, finishing the current episode protocol cleanly.
func TestOnlineStepBudget(t *testing.T) {
	environment := newChainEnv(4, 20)
	a := &rightAgent{}

	// Each episode takes 4 steps, so a 10 step budget spans two full
	// episodes and one partial episode
	o, err := NewOnline(environment, a, 10, 0)
	require.NoError(t, err)
	o.SetLogger(quietLogger())

	require.NoError(t, o.Run(context.Background()))
	assert.Equal(t, 10, o.CurrentSteps())
	assert.Equal(t, 10, a.observed)
	assert.Equal(t, 10, a.stepped)

	// The partial third episode is not counted as finished
	assert.Equal(t, 2, a.episodes)
}

// TestOnlineEpisodeBudget checks that the episode budget ends the
// experiment before the step budget.
func TestOnlineEpisodeBudget(t *testing.T) {
	environment := newChainEnv(4, 20)
	a := &rightAgent{}

	o, err := NewOnline(environment, a, 1000, 2)
	require.NoError(t, err)
	o.SetLogger(quietLogger())

	require.NoError(t, o.Run(context.Background()))
	assert.Equal(t, 2, a.episodes)
	assert.Equal(t, 8, o.CurrentSteps())
}

// TestOnlineTrackers checks that registered trackers record episodic
// data and save it to disk.
func TestOnlineTrackers(t *testing.T) {
	environment := newChainEnv(4, 20)
	a := &rightAgent{}

	dir := t.TempDir()
	returns := tracker.NewReturn(filepath.Join(dir, "returns.bin"))
	lengths := tracker.NewEpisodeLength(filepath.Join(dir, "lengths.bin"))
	wins := tracker.NewWins(filepath.Join(dir, "wins.bin"))

	o, err := NewOnline(environment, a, 1000, 3, returns, lengths, wins)
	require.NoError(t, err)
	o.SetLogger(quietLogger())

	require.NoError(t, o.Run(context.Background()))
	require.NoError(t, o.Save())

	// Three 4-step episodes, each ending at the goal with return
	// -1 -1 -1 +1 = -2
	got, err := tracker.LoadData(filepath.Join(dir, "returns.bin"))
	require.NoError(t, err)
	assert.Equal(t, []float64{-2, -2, -2}, got)

	got, err = tracker.LoadData(filepath.Join(dir, "lengths.bin"))
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 4, 4}, got)

	got, err = tracker.LoadData(filepath.Join(dir, "wins.bin"))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1}, got)
}

// TestOnlineCancellation checks that a cancelled context stops the
// experiment at a step boundary with a context error.
func TestOnlineCancellation(t *testing.T) {
	environment := newChainEnv(4, 20)
	a := &rightAgent{}

	o, err := NewOnline(environment, a, 1000, 0)
	require.NoError(t, err)
	o.SetLogger(quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = o.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, a.observed)
}

// fileCountSaver counts how often it is saved
type fileCountSaver struct{ saves int }

func (f *fileCountSaver) Save(string) error {
	f.saves++
	return nil
}

// TestOnlineCheckpointer checks that a registered NStep checkpointer
// saves at its interval.
func TestOnlineCheckpointer(t *testing.T) {
	environment := newChainEnv(4, 20)
	a := &rightAgent{}
	saver := &fileCountSaver{}

	o, err := NewOnline(environment, a, 12, 0)
	require.NoError(t, err)
	o.SetLogger(quietLogger())

	n, err := checkpointer.NewNStep(4, saver,
		checkpointer.FilenameEnumerator(0, "agent", "bin"))
	require.NoError(t, err)
	o.RegisterCheckpointer(n)

	require.NoError(t, o.Run(context.Background()))
	assert.Equal(t, 3, saver.saves)
}

// TestEvaluate checks greedy evaluation statistics and that the agent
// is returned to training mode afterwards.
func TestEvaluate(t *testing.T) {
	environment := newChainEnv(4, 20)
	a := &rightAgent{}

	result, err := Evaluate(context.Background(), environment, a, 3, false)
	require.NoError(t, err)

	assert.Equal(t, []float64{-2, -2, -2}, result.Returns)
	assert.Equal(t, []float64{4, 4, 4}, result.Lengths)
	assert.Equal(t, 3, result.Wins)
	assert.Equal(t, -2.0, result.MeanReturn)
	assert.Equal(t, 0.0, result.StdDevReturn)
	assert.Equal(t, -2.0, result.MinReturn)
	assert.Equal(t, -2.0, result.MaxReturn)
	assert.False(t, a.IsEval())
}
