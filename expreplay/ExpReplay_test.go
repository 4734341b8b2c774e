package expreplay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/AleBrownArnold/reinforcement-learning-study/timestep"
)

// transition returns a transition whose reward doubles as an identity
// tag so that FIFO overwrite order can be checked
func transition(id int) timestep.Transition {
	return timestep.Transition{
		State:     mat.NewVecDense(2, []float64{float64(id), 0.5}),
		Action:    id % 3,
		Reward:    float64(id),
		NextState: mat.NewVecDense(2, []float64{float64(id) + 1, -0.5}),
		Done:      id%7 == 0,
	}
}

func TestBufferNeverExceedsCapacity(t *testing.T) {
	const capacity = 8

	buffer, err := New(capacity, 2, 14)
	require.NoError(t, err)

	for i := 0; i < 5*capacity; i++ {
		buffer.Insert(transition(i))
		assert.LessOrEqual(t, buffer.Size(), capacity)
	}
	assert.Equal(t, capacity, buffer.Size())
}

func TestBufferOverwritesOldestFirst(t *testing.T) {
	const (
		capacity = 10
		extra    = 7
	)

	buffer, err := New(capacity, 2, 14)
	require.NoError(t, err)

	for i := 0; i < capacity+extra; i++ {
		buffer.Insert(transition(i))
	}

	// The buffer must hold exactly the most recent capacity
	// transitions, oldest first
	require.Equal(t, capacity, buffer.Size())
	for i := 0; i < capacity; i++ {
		want := transition(extra + i)
		got := buffer.at(i)

		assert.Equal(t, want.Reward, got.Reward, "index %v", i)
		assert.Equal(t, want.Action, got.Action, "index %v", i)
		assert.Equal(t, want.Done, got.Done, "index %v", i)
		assert.Equal(t, want.State.AtVec(0), got.State.AtVec(0), "index %v", i)
	}
}

func TestSampleReturnsDistinctTransitions(t *testing.T) {
	const (
		capacity  = 50
		batchSize = 32
	)

	buffer, err := New(capacity, 2, 14)
	require.NoError(t, err)

	for i := 0; i < capacity; i++ {
		buffer.Insert(transition(i))
	}

	// Rewards tag identities, so distinct rewards mean distinct
	// stored transitions
	for trial := 0; trial < 20; trial++ {
		batch, err := buffer.Sample(batchSize)
		require.NoError(t, err)
		require.Equal(t, batchSize, batch.Size)
		require.Len(t, batch.Rewards, batchSize)

		seen := make(map[float64]bool, batchSize)
		for _, r := range batch.Rewards {
			assert.False(t, seen[r], "transition %v sampled twice in one call", r)
			seen[r] = true
		}
	}
}

func TestSampleBatchRowsMatchStoredTransitions(t *testing.T) {
	buffer, err := New(16, 2, 14)
	require.NoError(t, err)

	for i := 0; i < 16; i++ {
		buffer.Insert(transition(i))
	}

	batch, err := buffer.Sample(8)
	require.NoError(t, err)

	// Each batch row must be internally consistent with the
	// transition it was copied from
	for i := 0; i < batch.Size; i++ {
		id := batch.Rewards[i]
		assert.Equal(t, id, batch.States[i*2])
		assert.Equal(t, id+1, batch.NextStates[i*2])
		assert.Equal(t, int(id)%3, batch.Actions[i])
	}
}

func TestFullSampleAfterWraparound(t *testing.T) {
	const capacity = 20

	buffer, err := New(capacity, 2, 14)
	require.NoError(t, err)

	for i := 0; i < 3*capacity; i++ {
		buffer.Insert(transition(i))
	}

	// A full-buffer sample must return every stored transition exactly
	// once, and only the most recent capacity identities survive the
	// overwrites
	for trial := 0; trial < 10; trial++ {
		batch, err := buffer.Sample(capacity)
		require.NoError(t, err)

		seen := make(map[float64]bool, capacity)
		for _, r := range batch.Rewards {
			assert.GreaterOrEqual(t, r, float64(2*capacity))
			assert.Less(t, r, float64(3*capacity))
			assert.False(t, seen[r], "transition %v sampled twice", r)
			seen[r] = true
		}
		assert.Len(t, seen, capacity)
	}
}

func TestSampleFailsWithInsufficientData(t *testing.T) {
	buffer, err := New(100, 2, 14)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		buffer.Insert(transition(i))
	}

	_, err = buffer.Sample(11)
	require.Error(t, err)
	assert.True(t, IsInsufficientData(err))

	// Exactly size is fine
	batch, err := buffer.Sample(10)
	require.NoError(t, err)
	assert.Equal(t, 10, batch.Size)
}

func TestNewRejectsInvalidArguments(t *testing.T) {
	_, err := New(0, 2, 14)
	assert.Error(t, err)

	_, err = New(10, 0, 14)
	assert.Error(t, err)
}
