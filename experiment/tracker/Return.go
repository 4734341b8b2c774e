package tracker

import (
	ts "github.com/AleBrownArnold/reinforcement-learning-study/timestep"
)

// Return tracks and saves the episodic return in an experiment. When
// an environment returns a TimeStep, this Tracker extracts the reward
// and accumulates the return separately for each episode.
//
// An episode must finish for this Tracker to record its data. If the
// last episode in an experiment does not finish, that episode's return
// is not saved.
type Return struct {
	currentReturn  float64
	episodeReturns []float64
	filename       string
}

// NewReturn creates and returns a new *Return Tracker
func NewReturn(filename string) Tracker {
	return &Return{filename: filename}
}

// Track tracks the reward seen on a timestep. When a timestep ends an
// episode, the accumulated return is recorded and accumulation starts
// over for the next episode.
func (r *Return) Track(step ts.TimeStep) {
	r.currentReturn += step.Reward
	if step.Last() {
		r.episodeReturns = append(r.episodeReturns, r.currentReturn)
		r.currentReturn = 0.0
	}
}

// Data returns the episodic returns recorded so far
func (r *Return) Data() []float64 {
	return r.episodeReturns
}

// Save saves the data tracked by the Return Tracker to disk
func (r *Return) Save() error {
	return save(r.filename, r.episodeReturns)
}
