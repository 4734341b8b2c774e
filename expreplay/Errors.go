package expreplay

import "errors"

// ExpReplayError implements errors unique to an experience replay
// buffer.
type ExpReplayError struct {
	Op  string
	Err error
}

// Error satisfies the error interface
func (e *ExpReplayError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e *ExpReplayError) Unwrap() error {
	return e.Err
}

var errInsufficientData = errors.New("fewer stored transitions than " +
	"requested batch size")

// IsInsufficientData returns whether or not an error reports that
// there are too few transitions in the buffer to draw the requested
// batch.
//
// Sampling is only legal once the buffer holds at least a full batch.
// The trainer gates sampling behind its warm-up threshold, so seeing
// this error during training indicates an ordering bug in the caller,
// not a user-facing condition.
func IsInsufficientData(err error) bool {
	if replayErr, ok := err.(*ExpReplayError); ok {
		err = replayErr.Err
	}
	return err == errInsufficientData
}
