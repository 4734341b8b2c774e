// Package experiment implements online training and evaluation
// experiments of agents on environments
package experiment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AleBrownArnold/reinforcement-learning-study/agent"
	env "github.com/AleBrownArnold/reinforcement-learning-study/environment"
	"github.com/AleBrownArnold/reinforcement-learning-study/experiment/checkpointer"
	"github.com/AleBrownArnold/reinforcement-learning-study/experiment/tracker"
	ts "github.com/AleBrownArnold/reinforcement-learning-study/timestep"
)

// Online is an Experiment that trains an agent online. No offline
// evaluation is performed.
//
// The experiment finishes when either the total step budget or the
// episode budget is exhausted, whichever comes first. Cancelling the
// context stops the experiment at the next step boundary, so a stopped
// run never leaves a half-applied learning update behind.
type Online struct {
	environment env.Environment
	agent       agent.Agent

	maxSteps    int
	maxEpisodes int // 0 means no episode limit

	currentSteps    int
	currentEpisodes int

	trackers      []tracker.Tracker
	checkpointers []checkpointer.Checkpointer
	logger        *slog.Logger
}

// NewOnline creates and returns a new online experiment on a given
// environment with a given agent. The experiment runs for at most
// maxSteps total environment steps and, if maxEpisodes is positive, at
// most maxEpisodes episodes. The trackers determine what data is
// recorded during the run.
func NewOnline(e env.Environment, a agent.Agent, maxSteps, maxEpisodes int,
	trackers ...tracker.Tracker) (*Online, error) {
	if maxSteps < 1 {
		return nil, fmt.Errorf("newOnline: max steps must be >= 1")
	}
	if maxEpisodes < 0 {
		return nil, fmt.Errorf("newOnline: max episodes cannot be negative")
	}

	return &Online{
		environment: e,
		agent:       a,
		maxSteps:    maxSteps,
		maxEpisodes: maxEpisodes,
		trackers:    trackers,
		logger:      slog.Default(),
	}, nil
}

// Register registers a tracker.Tracker with the experiment so that
// data generated during the experiment can be tracked and saved
func (o *Online) Register(t tracker.Tracker) {
	o.trackers = append(o.trackers, t)
}

// RegisterCheckpointer registers a checkpointer that is offered the
// chance to save state after every environment step
func (o *Online) RegisterCheckpointer(c checkpointer.Checkpointer) {
	o.checkpointers = append(o.checkpointers, c)
}

// SetLogger replaces the logger used for per-episode progress
func (o *Online) SetLogger(logger *slog.Logger) {
	o.logger = logger
}

// RunEpisode runs a single episode of the experiment. It returns true
// when the experiment's step or episode budget has been exhausted.
func (o *Online) RunEpisode(ctx context.Context) (bool, error) {
	step, err := o.environment.Reset()
	if err != nil {
		return false, fmt.Errorf("runEpisode: could not reset "+
			"environment: %v", err)
	}
	if err := o.agent.ObserveFirst(step); err != nil {
		return false, fmt.Errorf("runEpisode: %v", err)
	}
	o.track(step)

	episodeReturn := 0.0
	episodeSteps := 0

	for !step.Last() && o.currentSteps < o.maxSteps {
		if err := ctx.Err(); err != nil {
			return false, fmt.Errorf("runEpisode: stopped at step %v: %w",
				o.currentSteps, err)
		}
		o.currentSteps++
		episodeSteps++

		action, err := o.agent.SelectAction(step)
		if err != nil {
			return false, fmt.Errorf("runEpisode: could not select "+
				"action: %v", err)
		}

		step, _, err = o.environment.Step(action)
		if err != nil {
			return false, fmt.Errorf("runEpisode: could not step "+
				"environment: %v", err)
		}
		o.track(step)
		episodeReturn += step.Reward

		if err := o.agent.Observe(action, step); err != nil {
			return false, fmt.Errorf("runEpisode: %v", err)
		}
		if err := o.agent.Step(); err != nil {
			return false, fmt.Errorf("runEpisode: %v", err)
		}

		if err := o.checkpoint(); err != nil {
			return false, fmt.Errorf("runEpisode: %v", err)
		}
	}

	// A step budget can expire mid-episode; an unfinished episode is
	// not counted, matching the trackers
	if step.Last() {
		o.agent.EndEpisode()
		o.currentEpisodes++
		o.logger.Info("episode finished",
			"episode", o.currentEpisodes,
			"steps", episodeSteps,
			"return", episodeReturn,
			"totalSteps", o.currentSteps,
			"solved", step.EndType == ts.TerminalStateReached,
		)
	}

	if o.maxEpisodes > 0 && o.currentEpisodes >= o.maxEpisodes {
		return true, nil
	}
	return o.currentSteps >= o.maxSteps, nil
}

// Run runs the entire experiment until its budget is exhausted or the
// context is cancelled
func (o *Online) Run(ctx context.Context) error {
	for {
		ended, err := o.RunEpisode(ctx)
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}
		if ended {
			return nil
		}
	}
}

// Save saves all the data cached by the registered trackers to disk
func (o *Online) Save() error {
	for _, t := range o.trackers {
		if err := t.Save(); err != nil {
			return fmt.Errorf("save: %v", err)
		}
	}
	return nil
}

// CurrentSteps returns the total number of environment steps taken
func (o *Online) CurrentSteps() int {
	return o.currentSteps
}

// track caches the current timestep's data in each tracker
func (o *Online) track(t ts.TimeStep) {
	for _, tr := range o.trackers {
		tr.Track(t)
	}
}

// checkpoint offers each registered checkpointer the chance to save
func (o *Online) checkpoint() error {
	for _, c := range o.checkpointers {
		if err := c.Checkpoint(o.currentSteps); err != nil {
			return fmt.Errorf("checkpoint: %v", err)
		}
	}
	return nil
}
