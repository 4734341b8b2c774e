package tracker

import (
	ts "github.com/AleBrownArnold/reinforcement-learning-study/timestep"
)

// EpisodeLength tracks and saves the number of steps in each episode
// of an experiment.
type EpisodeLength struct {
	currentSteps   int
	episodeLengths []float64
	filename       string
}

// NewEpisodeLength creates and returns a new *EpisodeLength Tracker
func NewEpisodeLength(filename string) Tracker {
	return &EpisodeLength{filename: filename}
}

// Track tracks the steps taken in the current episode
func (e *EpisodeLength) Track(step ts.TimeStep) {
	if step.First() {
		e.currentSteps = 0
		return
	}

	e.currentSteps++
	if step.Last() {
		e.episodeLengths = append(e.episodeLengths, float64(e.currentSteps))
	}
}

// Data returns the episode lengths recorded so far
func (e *EpisodeLength) Data() []float64 {
	return e.episodeLengths
}

// Save saves the data tracked by the EpisodeLength Tracker to disk
func (e *EpisodeLength) Save() error {
	return save(e.filename, e.episodeLengths)
}
