package tracker

import (
	ts "github.com/AleBrownArnold/reinforcement-learning-study/timestep"
)

// Wins tracks which episodes of an experiment ended at the goal state
// rather than by running out of steps. Each finished episode records
// 1.0 for a win and 0.0 otherwise, so the saved data doubles as a
// per-episode success indicator and, averaged over a window, a success
// rate.
type Wins struct {
	wins     []float64
	filename string
}

// NewWins creates and returns a new *Wins Tracker
func NewWins(filename string) Tracker {
	return &Wins{filename: filename}
}

// Track records, at each episode end, whether the episode ended in the
// environment's terminal state.
func (w *Wins) Track(step ts.TimeStep) {
	if !step.Last() {
		return
	}

	if step.EndType == ts.TerminalStateReached {
		w.wins = append(w.wins, 1.0)
	} else {
		w.wins = append(w.wins, 0.0)
	}
}

// Data returns the per-episode win indicators recorded so far
func (w *Wins) Data() []float64 {
	return w.wins
}

// Save saves the data tracked by the Wins Tracker to disk
func (w *Wins) Save() error {
	return save(w.filename, w.wins)
}
