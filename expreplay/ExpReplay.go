// Package expreplay implements a bounded experience replay buffer with
// uniform random sampling.
//
// Experience replay stores past transitions and resamples them at
// random so that gradient updates see (approximately) i.i.d. data
// rather than the strongly correlated stream of consecutive
// environment steps. The buffer is bounded: once full, each insert
// overwrites the oldest stored transition, which keeps both memory and
// the staleness of stored experience bounded without any eviction
// policy beyond FIFO overwrite.
package expreplay

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/AleBrownArnold/reinforcement-learning-study/timestep"
)

// Buffer is a fixed-capacity experience replay buffer with ring
// semantics.
//
// Transitions are stored in flat, pre-allocated arenas rather than as
// a slice of structs so that an insert never allocates and the memory
// footprint is fixed for the lifetime of the buffer. A single write
// index wraps around the arena; the buffer has exactly one owner (the
// trainer) and is not safe for concurrent use.
type Buffer struct {
	capacity    int
	featureSize int

	states     []float64
	actions    []int
	rewards    []float64
	nextStates []float64
	dones      []bool

	next int // index of the next slot to write, wraps at capacity
	size int

	// indices always holds some permutation of the occupied slot
	// indices [0, size); Sample partially reshuffles it in place so a
	// draw never allocates
	indices []int

	rng *rand.Rand
}

// Batch holds a minibatch of sampled transitions. States and
// NextStates are flattened in row-major order: row i spans
// [i*featureSize, (i+1)*featureSize).
type Batch struct {
	States     []float64
	Actions    []int
	Rewards    []float64
	NextStates []float64
	Dones      []bool
	Size       int
}

// New creates an empty replay buffer storing at most capacity
// transitions whose state vectors have featureSize features.
func New(capacity, featureSize int, seed int64) (*Buffer, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("new: capacity must be >= 1")
	}
	if featureSize < 1 {
		return nil, fmt.Errorf("new: feature size must be >= 1")
	}

	return &Buffer{
		capacity:    capacity,
		featureSize: featureSize,
		states:      make([]float64, capacity*featureSize),
		actions:     make([]int, capacity),
		rewards:     make([]float64, capacity),
		nextStates:  make([]float64, capacity*featureSize),
		dones:       make([]bool, capacity),
		indices:     make([]int, 0, capacity),
		rng:         rand.New(rand.NewSource(seed)),
	}, nil
}

// Insert adds a transition to the buffer, overwriting the oldest
// stored transition when the buffer is at capacity. Insert copies the
// transition's state vectors into the buffer's own storage, so the
// caller may not mutate stored data afterwards.
//
// Insert panics if the transition's state vectors do not match the
// buffer's feature size; mismatched features are a construction bug,
// not a runtime condition.
func (b *Buffer) Insert(t timestep.Transition) {
	if t.State.Len() != b.featureSize || t.NextState.Len() != b.featureSize {
		panic(fmt.Sprintf("insert: invalid feature size \n\twant(%v)"+
			"\n\thave(%v, %v)", b.featureSize, t.State.Len(),
			t.NextState.Len()))
	}

	index := b.next
	start := index * b.featureSize
	for i := 0; i < b.featureSize; i++ {
		b.states[start+i] = t.State.AtVec(i)
		b.nextStates[start+i] = t.NextState.AtVec(i)
	}
	b.actions[index] = t.Action
	b.rewards[index] = t.Reward
	b.dones[index] = t.Done

	b.next = (b.next + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
		b.indices = append(b.indices, b.size-1)
	}
}

// Sample draws batchSize transitions uniformly at random from the
// buffer without replacement: every index in the returned batch is
// distinct within this call. No ordering is guaranteed.
//
// Sample fails with an insufficient-data error (see
// IsInsufficientData) when fewer than batchSize transitions are
// stored.
func (b *Buffer) Sample(batchSize int) (*Batch, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("sample: batch size must be >= 1")
	}
	if b.size < batchSize {
		return nil, &ExpReplayError{Op: "sample", Err: errInsufficientData}
	}

	// Partial Fisher-Yates: move batchSize uniformly chosen distinct
	// slot indices to the front of the index permutation. Only the
	// first batchSize positions are touched, so sampling costs
	// O(batchSize) regardless of capacity.
	for i := 0; i < batchSize; i++ {
		j := i + b.rng.Intn(b.size-i)
		b.indices[i], b.indices[j] = b.indices[j], b.indices[i]
	}
	indices := b.indices[:batchSize]

	batch := &Batch{
		States:     make([]float64, batchSize*b.featureSize),
		Actions:    make([]int, batchSize),
		Rewards:    make([]float64, batchSize),
		NextStates: make([]float64, batchSize*b.featureSize),
		Dones:      make([]bool, batchSize),
		Size:       batchSize,
	}

	for i, index := range indices {
		batchStart := i * b.featureSize
		expStart := index * b.featureSize
		copy(batch.States[batchStart:batchStart+b.featureSize],
			b.states[expStart:expStart+b.featureSize])
		copy(batch.NextStates[batchStart:batchStart+b.featureSize],
			b.nextStates[expStart:expStart+b.featureSize])

		batch.Actions[i] = b.actions[index]
		batch.Rewards[i] = b.rewards[index]
		batch.Dones[i] = b.dones[index]
	}

	return batch, nil
}

// Size returns the current number of transitions in the buffer
func (b *Buffer) Size() int {
	return b.size
}

// Capacity returns the maximum number of transitions the buffer can
// hold
func (b *Buffer) Capacity() int {
	return b.capacity
}

// FeatureSize returns the length of the state vectors the buffer
// stores
func (b *Buffer) FeatureSize() int {
	return b.featureSize
}

// at reconstructs the i'th oldest stored transition. It exists to
// verify FIFO overwrite behaviour and is not part of the sampling
// path.
func (b *Buffer) at(i int) timestep.Transition {
	if i < 0 || i >= b.size {
		panic(fmt.Sprintf("at: index %v out of range [0, %v)", i, b.size))
	}

	// When full, the oldest entry sits at the write index
	index := i
	if b.size == b.capacity {
		index = (b.next + i) % b.capacity
	}

	start := index * b.featureSize
	state := make([]float64, b.featureSize)
	nextState := make([]float64, b.featureSize)
	copy(state, b.states[start:start+b.featureSize])
	copy(nextState, b.nextStates[start:start+b.featureSize])

	return timestep.Transition{
		State:     mat.NewVecDense(b.featureSize, state),
		Action:    b.actions[index],
		Reward:    b.rewards[index],
		NextState: mat.NewVecDense(b.featureSize, nextState),
		Done:      b.dones[index],
	}
}

// String returns the string representation of the buffer
func (b *Buffer) String() string {
	return fmt.Sprintf("ExpReplay | Size: %v  |  Capacity: %v", b.size,
		b.capacity)
}
