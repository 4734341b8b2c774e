// Package checkpointer implements periodic checkpointing of
// serializable objects during an experiment
package checkpointer

// Saver is an object whose state can be saved to a file. Agents with
// checkpointable learning state implement this interface.
type Saver interface {
	Save(filename string) error
}

// Checkpointer saves a Saver's state at some subset of experiment
// steps
type Checkpointer interface {
	// Checkpoint is called once per experiment step with the total
	// number of steps taken so far
	Checkpoint(totalSteps int) error
}
