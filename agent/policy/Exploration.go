package policy

import "fmt"

// Schedule determines how the exploration rate is annealed between
// learning updates.
type Schedule string

const (
	// Multiplicative decay multiplies epsilon by a rate below 1.0
	Multiplicative Schedule = "multiplicative"

	// Linear decay subtracts a fixed rate from epsilon
	Linear Schedule = "linear"
)

// Exploration tracks the state of an annealed epsilon-greedy
// exploration schedule. Epsilon never rises and never drops below Min.
type Exploration struct {
	Epsilon  float64
	Min      float64
	Rate     float64
	Schedule Schedule
	Steps    int // number of decay steps applied so far
}

// NewExploration validates and returns a new exploration schedule
// starting at epsilon.
func NewExploration(epsilon, min, rate float64, schedule Schedule) (Exploration,
	error) {
	if epsilon < 0.0 || epsilon > 1.0 {
		return Exploration{}, fmt.Errorf("newExploration: epsilon out of "+
			"range [0, 1]: %v", epsilon)
	}
	if min < 0.0 || min > epsilon {
		return Exploration{}, fmt.Errorf("newExploration: min out of range "+
			"[0, %v]: %v", epsilon, min)
	}

	switch schedule {
	case Multiplicative:
		if rate <= 0.0 || rate > 1.0 {
			return Exploration{}, fmt.Errorf("newExploration: "+
				"multiplicative rate out of range (0, 1]: %v", rate)
		}

	case Linear:
		if rate < 0.0 {
			return Exploration{}, fmt.Errorf("newExploration: linear rate "+
				"cannot be negative: %v", rate)
		}

	default:
		return Exploration{}, fmt.Errorf("newExploration: no such "+
			"schedule: %v", schedule)
	}

	return Exploration{
		Epsilon:  epsilon,
		Min:      min,
		Rate:     rate,
		Schedule: schedule,
	}, nil
}

// Decay applies one step of the annealing schedule. Epsilon is clipped
// at Min so that some exploration always remains.
func (e *Exploration) Decay() {
	switch e.Schedule {
	case Multiplicative:
		e.Epsilon *= e.Rate

	case Linear:
		e.Epsilon -= e.Rate
	}

	if e.Epsilon < e.Min {
		e.Epsilon = e.Min
	}
	e.Steps++
}
