package deepq

import (
	"fmt"

	"github.com/AleBrownArnold/reinforcement-learning-study/agent/policy"
	"github.com/AleBrownArnold/reinforcement-learning-study/initwfn"
	"github.com/AleBrownArnold/reinforcement-learning-study/network"
	"github.com/AleBrownArnold/reinforcement-learning-study/solver"
)

// ConfigError describes an invalid hyperparameter in a Config
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: invalid %v: %v", e.Field, e.Reason)
}

// Config implements the configuration of a deep Q-learning agent. All
// fields map one-to-one onto YAML configuration keys.
type Config struct {
	// Value network architecture. For index i, PolicyLayers[i]
	// determines the number of units in hidden layer i, Biases[i]
	// whether layer i has a bias unit, and Activations[i] the
	// activation of layer i. A final linear layer with one output per
	// action is always appended.
	PolicyLayers []int    `yaml:"policy_layers"`
	Biases       []bool   `yaml:"biases"`
	Activations  []string `yaml:"activations"`

	Solver  solver.Solver   `yaml:"solver"`
	InitWFn initwfn.InitWFn `yaml:"init"`

	ReplayCapacity int `yaml:"replay_capacity"`
	BatchSize      int `yaml:"batch_size"`

	// WarmUp is the number of stored transitions required before any
	// gradient update is performed
	WarmUp int `yaml:"warm_up"`

	Gamma float64 `yaml:"gamma"`

	// TargetSyncInterval is the number of environment steps between
	// copies of the online network into the target network
	TargetSyncInterval int `yaml:"target_sync_interval"`

	EpsilonStart  float64         `yaml:"epsilon_start"`
	EpsilonMin    float64         `yaml:"epsilon_min"`
	EpsilonDecay  float64         `yaml:"epsilon_decay"`
	DecaySchedule policy.Schedule `yaml:"decay_schedule"`

	// DivergenceThreshold is the absolute predicted-value magnitude
	// above which a divergence warning is recorded. Zero disables the
	// magnitude check; NaN and Inf are always checked.
	DivergenceThreshold float64 `yaml:"divergence_threshold"`
}

// NewDefaultConfig returns a Config with sensible mountain-car
// hyperparameters.
func NewDefaultConfig() Config {
	return Config{
		PolicyLayers:        []int{64, 64},
		Biases:              []bool{true, true},
		Activations:         []string{"relu", "relu"},
		Solver:              solver.NewDefaultAdam(0.001, 64),
		InitWFn:             initwfn.NewGlorotU(1.0),
		ReplayCapacity:      50000,
		BatchSize:           64,
		WarmUp:              1000,
		Gamma:               0.99,
		TargetSyncInterval:  500,
		EpsilonStart:        1.0,
		EpsilonMin:          0.01,
		EpsilonDecay:        0.9995,
		DecaySchedule:       policy.Multiplicative,
		DivergenceThreshold: 1e6,
	}
}

// Validate returns a ConfigError describing the first invalid
// hyperparameter, or nil if the Config is valid.
func (c Config) Validate() error {
	if len(c.PolicyLayers) == 0 {
		return &ConfigError{"policy_layers", "need at least one hidden layer"}
	}
	if len(c.Biases) != len(c.PolicyLayers) {
		return &ConfigError{"biases", fmt.Sprintf("got %v entries for %v "+
			"layers", len(c.Biases), len(c.PolicyLayers))}
	}
	if len(c.Activations) != len(c.PolicyLayers) {
		return &ConfigError{"activations", fmt.Sprintf("got %v entries for "+
			"%v layers", len(c.Activations), len(c.PolicyLayers))}
	}
	for _, name := range c.Activations {
		if _, err := network.ActivationFromString(name); err != nil {
			return &ConfigError{"activations", err.Error()}
		}
	}

	if err := c.Solver.Validate(); err != nil {
		return &ConfigError{"solver", err.Error()}
	}
	if err := c.InitWFn.Validate(); err != nil {
		return &ConfigError{"init", err.Error()}
	}

	if c.ReplayCapacity < 1 {
		return &ConfigError{"replay_capacity", "must be >= 1"}
	}
	if c.BatchSize < 1 {
		return &ConfigError{"batch_size", "must be >= 1"}
	}
	if c.BatchSize > c.ReplayCapacity {
		return &ConfigError{"batch_size", fmt.Sprintf("batch size %v "+
			"exceeds replay capacity %v", c.BatchSize, c.ReplayCapacity)}
	}
	if c.WarmUp < c.BatchSize {
		return &ConfigError{"warm_up", fmt.Sprintf("warm up %v is below "+
			"batch size %v", c.WarmUp, c.BatchSize)}
	}
	// The buffer can never hold more than its capacity, so a warm-up
	// at or above capacity would collect forever without one update
	if c.WarmUp >= c.ReplayCapacity {
		return &ConfigError{"warm_up", fmt.Sprintf("warm up %v must be "+
			"below replay capacity %v", c.WarmUp, c.ReplayCapacity)}
	}

	if c.Gamma < 0.0 || c.Gamma > 1.0 {
		return &ConfigError{"gamma", "must be in [0, 1]"}
	}
	if c.TargetSyncInterval < 1 {
		return &ConfigError{"target_sync_interval", "must be >= 1"}
	}

	if _, err := policy.NewExploration(c.EpsilonStart, c.EpsilonMin,
		c.EpsilonDecay, c.DecaySchedule); err != nil {
		return &ConfigError{"epsilon", err.Error()}
	}

	if c.DivergenceThreshold < 0.0 {
		return &ConfigError{"divergence_threshold", "cannot be negative"}
	}

	return nil
}

// CreateNetwork constructs a value network with the configured
// architecture for an environment with the given observation features
// and action count.
func (c Config) CreateNetwork(features, actions int) (network.NeuralNet,
	error) {
	activations := make([]*network.Activation, len(c.Activations))
	for i, name := range c.Activations {
		act, err := network.ActivationFromString(name)
		if err != nil {
			return nil, fmt.Errorf("createNetwork: %v", err)
		}
		activations[i] = act
	}

	init, err := c.InitWFn.Create()
	if err != nil {
		return nil, fmt.Errorf("createNetwork: %v", err)
	}

	sol, err := c.Solver.Create()
	if err != nil {
		return nil, fmt.Errorf("createNetwork: %v", err)
	}

	return network.NewMultiHeadMLP(features, c.BatchSize, actions,
		c.PolicyLayers, c.Biases, activations, init, sol)
}
