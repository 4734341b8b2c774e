// Package deepq implements deep Q-learning with experience replay and
// a target network.
//
// The agent keeps two value networks of identical architecture. The
// online network is updated by gradient descent on every learning step;
// the target network only ever changes by an explicit copy of the
// online parameters, and supplies the bootstrap values for the update
// targets. Decoupling the two stabilizes learning by keeping the
// regression targets fixed between synchronizations.
package deepq

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/AleBrownArnold/reinforcement-learning-study/agent/policy"
	"github.com/AleBrownArnold/reinforcement-learning-study/environment"
	"github.com/AleBrownArnold/reinforcement-learning-study/expreplay"
	"github.com/AleBrownArnold/reinforcement-learning-study/network"
	"github.com/AleBrownArnold/reinforcement-learning-study/timestep"
	"github.com/AleBrownArnold/reinforcement-learning-study/utils/floatutils"
)

// Phase indicates whether the agent is still filling its replay buffer
// or already performing gradient updates.
type Phase string

const (
	Collecting Phase = "collecting"
	Training   Phase = "training"
)

// Counters tracks the progress of a learning run. All counters are
// part of the checkpoint state so that a restored run continues exactly
// where it left off.
type Counters struct {
	Episode    int
	GlobalStep int
	Updates    int

	// LastTargetSync is the global step at which the target network
	// was last synchronized. While collecting it tracks GlobalStep so
	// that the first synchronization happens a full interval after the
	// first gradient update.
	LastTargetSync int
	TargetSyncs    int
}

// DivergenceWarning records a learning step whose update targets or
// loss were not finite, or whose value estimates exceeded the
// configured magnitude threshold. Warnings are advisory; learning
// continues.
type DivergenceWarning struct {
	GlobalStep int
	Loss       float64
	MaxValue   float64
	Reason     string
}

// DeepQ implements the deep Q-learning algorithm.
type DeepQ struct {
	online network.NeuralNet
	target network.NeuralNet

	replay      *expreplay.Buffer
	exploration policy.Exploration
	policy      agentPolicy

	config   Config
	counters Counters
	warnings []DivergenceWarning

	prevStep timestep.TimeStep
	eval     bool

	logger *slog.Logger
}

// agentPolicy is the subset of policy behaviour DeepQ depends on.
// Satisfied by policy.EGreedy.
type agentPolicy interface {
	SelectAction(timestep.TimeStep) (int, error)
	Eval()
	Train()
	IsEval() bool
}

// New creates a deep Q-learning agent for the argument environment.
func New(env environment.Environment, config Config, seed int64) (*DeepQ,
	error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	features := env.ObservationSpec().Shape.Len()
	actions := env.ActionSpec().NumActions()

	online, err := config.CreateNetwork(features, actions)
	if err != nil {
		return nil, fmt.Errorf("new: could not create online network: %v",
			err)
	}
	target, err := config.CreateNetwork(features, actions)
	if err != nil {
		return nil, fmt.Errorf("new: could not create target network: %v",
			err)
	}
	if err := target.Set(online); err != nil {
		return nil, fmt.Errorf("new: could not initialize target "+
			"network: %v", err)
	}

	return newDeepQ(online, target, config, features, actions, seed)
}

// newDeepQ wires an agent around already constructed networks. Tests
// use it to inject stub networks.
func newDeepQ(online, target network.NeuralNet, config Config, features,
	actions int, seed int64) (*DeepQ, error) {
	replay, err := expreplay.New(config.ReplayCapacity, features, seed)
	if err != nil {
		return nil, fmt.Errorf("new: could not create replay buffer: %v",
			err)
	}

	exploration, err := policy.NewExploration(config.EpsilonStart,
		config.EpsilonMin, config.EpsilonDecay, config.DecaySchedule)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	agent := &DeepQ{
		online:      online,
		target:      target,
		replay:      replay,
		exploration: exploration,
		config:      config,
		logger:      slog.Default(),
	}

	egreedy, err := policy.NewEGreedy(online, &agent.exploration, actions,
		seed)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	agent.policy = egreedy

	return agent, nil
}

// Phase returns whether the agent is still collecting warm-up
// experience or already training. Updates begin on the first step
// after the buffer has held the warm-up number of transitions, so the
// buffer sampled by an update had already reached warm-up before the
// step's own transition was added.
func (d *DeepQ) Phase() Phase {
	if d.replay.Size() > d.config.WarmUp {
		return Training
	}
	return Collecting
}

// ObserveFirst records the first timestep of an episode
func (d *DeepQ) ObserveFirst(t timestep.TimeStep) error {
	if !t.First() {
		return fmt.Errorf("observeFirst: timestep is not first of "+
			"episode: %v", t.StepType)
	}
	d.prevStep = t
	return nil
}

// Observe records that action taken at the previous timestep led to
// nextStep. In training mode the resulting transition is stored in the
// replay buffer.
func (d *DeepQ) Observe(action int, nextStep timestep.TimeStep) error {
	if nextStep.First() {
		return fmt.Errorf("observe: nextStep is first of episode, use " +
			"ObserveFirst")
	}

	if !d.eval {
		d.replay.Insert(timestep.NewTransition(d.prevStep, action, nextStep))
		d.counters.GlobalStep++
	}
	d.prevStep = nextStep
	return nil
}

// SelectAction selects an action at the argument timestep
func (d *DeepQ) SelectAction(t timestep.TimeStep) (int, error) {
	return d.policy.SelectAction(t)
}

// Step performs one learning step.
//
// While the agent is collecting warm-up experience, Step performs no
// update and keeps the target synchronization point pinned to the
// current step, so the first synchronization happens exactly one full
// interval after the first gradient update. In evaluation mode Step is
// a no-op.
func (d *DeepQ) Step() error {
	if d.eval {
		return nil
	}

	if d.Phase() == Collecting {
		d.counters.LastTargetSync = d.counters.GlobalStep
		return nil
	}

	// The synchronization clock starts ticking at the first update, so
	// the first copy happens a full interval later
	if d.counters.Updates == 0 {
		d.counters.LastTargetSync = d.counters.GlobalStep
	}

	batch, err := d.replay.Sample(d.config.BatchSize)
	if err != nil {
		return fmt.Errorf("step: could not sample replay buffer: %v", err)
	}

	targets, err := d.targets(batch)
	if err != nil {
		return fmt.Errorf("step: %v", err)
	}

	loss, err := d.online.TrainStep(batch.States, targets)
	if err != nil {
		return fmt.Errorf("step: could not update online network: %v", err)
	}
	d.counters.Updates++
	d.exploration.Decay()

	d.checkDivergence(loss, targets)

	interval := d.counters.GlobalStep - d.counters.LastTargetSync
	if interval >= d.config.TargetSyncInterval {
		if err := d.target.Set(d.online); err != nil {
			return fmt.Errorf("step: could not synchronize target "+
				"network: %v", err)
		}
		d.counters.LastTargetSync = d.counters.GlobalStep
		d.counters.TargetSyncs++
	}

	return nil
}

// targets computes the regression targets for a sampled batch.
//
// The target for a sampled transition patches a single entry of the
// online network's current prediction: the value of the taken action
// becomes r when the transition ended the episode in a terminal state,
// and r + gamma * max_a Q_target(s', a) otherwise. Timeout cutoffs do
// not end an episode in a terminal state, so they still bootstrap.
func (d *DeepQ) targets(batch *expreplay.Batch) ([]float64, error) {
	targets, err := d.online.PredictBatch(batch.States)
	if err != nil {
		return nil, fmt.Errorf("targets: could not predict current "+
			"values: %v", err)
	}

	nextValues, err := d.target.PredictBatch(batch.NextStates)
	if err != nil {
		return nil, fmt.Errorf("targets: could not predict bootstrap "+
			"values: %v", err)
	}

	actions := d.online.Outputs()
	for i := 0; i < batch.Size; i++ {
		value := batch.Rewards[i]
		if !batch.Dones[i] {
			row := nextValues[i*actions : (i+1)*actions]
			value += d.config.Gamma * floatutils.Max(row...)
		}
		targets[i*actions+batch.Actions[i]] = value
	}

	return targets, nil
}

// checkDivergence records a warning if the update loss or any target
// value is not finite, or if a target value exceeds the configured
// magnitude threshold.
func (d *DeepQ) checkDivergence(loss float64, targets []float64) {
	maxAbs := 0.0
	finite := !math.IsNaN(loss) && !math.IsInf(loss, 0)
	for _, v := range targets {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			finite = false
			continue
		}
		if math.Abs(v) > maxAbs {
			maxAbs = math.Abs(v)
		}
	}

	var reason string
	switch {
	case !finite:
		reason = "non-finite loss or target value"
	case d.config.DivergenceThreshold > 0 &&
		maxAbs > d.config.DivergenceThreshold:
		reason = fmt.Sprintf("target value magnitude %v exceeds "+
			"threshold %v", maxAbs, d.config.DivergenceThreshold)
	default:
		return
	}

	warning := DivergenceWarning{
		GlobalStep: d.counters.GlobalStep,
		Loss:       loss,
		MaxValue:   maxAbs,
		Reason:     reason,
	}
	d.warnings = append(d.warnings, warning)
	d.logger.Warn("divergence detected",
		"step", warning.GlobalStep,
		"loss", warning.Loss,
		"maxValue", warning.MaxValue,
		"reason", warning.Reason,
	)
}

// EndEpisode performs cleanup at the end of an episode
func (d *DeepQ) EndEpisode() {
	d.counters.Episode++
}

// Eval sets the agent to evaluation mode: actions are selected
// greedily, and no experience is stored and no updates are performed.
func (d *DeepQ) Eval() {
	d.eval = true
	d.policy.Eval()
}

// Train sets the agent to training mode
func (d *DeepQ) Train() {
	d.eval = false
	d.policy.Train()
}

// IsEval indicates whether the agent is in evaluation mode
func (d *DeepQ) IsEval() bool {
	return d.eval
}

// Counters returns the progress counters of the learning run
func (d *DeepQ) Counters() Counters {
	return d.counters
}

// Epsilon returns the current probability of exploring
func (d *DeepQ) Epsilon() float64 {
	return d.exploration.Epsilon
}

// Warnings returns all divergence warnings recorded so far
func (d *DeepQ) Warnings() []DivergenceWarning {
	return d.warnings
}

// SetLogger replaces the logger used for divergence warnings
func (d *DeepQ) SetLogger(logger *slog.Logger) {
	d.logger = logger
}

// Close releases the agent's networks
func (d *DeepQ) Close() error {
	if err := d.online.Close(); err != nil {
		return fmt.Errorf("close: %v", err)
	}
	return d.target.Close()
}
