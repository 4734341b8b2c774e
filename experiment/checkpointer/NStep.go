package checkpointer

import "fmt"

// nStep implements checkpointing every N steps
type nStep struct {
	interval int
	object   Saver

	// filename returns the filename to save the object in. Use
	// FilenameEnumerator to save each checkpoint in a separate,
	// numbered file.
	filename func() string
}

// NewNStep returns a checkpointer that saves its object every n
// experiment steps.
func NewNStep(n int, object Saver, filename func() string) (Checkpointer,
	error) {
	if n < 1 {
		return nil, fmt.Errorf("newNStep: interval must be >= 1")
	}
	return &nStep{interval: n, object: object, filename: filename}, nil
}

// Checkpoint saves the tracked object if totalSteps falls on the
// checkpoint interval
func (n *nStep) Checkpoint(totalSteps int) error {
	if totalSteps%n.interval == 0 {
		return n.object.Save(n.filename())
	}
	return nil
}
