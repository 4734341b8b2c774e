package experiment

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/spatial/r1"
	"gopkg.in/yaml.v3"

	"github.com/AleBrownArnold/reinforcement-learning-study/agent/deepq"
	env "github.com/AleBrownArnold/reinforcement-learning-study/environment"
	"github.com/AleBrownArnold/reinforcement-learning-study/environment/classiccontrol/mountaincar"
)

// EnvironmentConfig configures the mountain car environment of a run
type EnvironmentConfig struct {
	// EpisodeSteps is the step limit after which an episode is cut off
	EpisodeSteps int `yaml:"episode_steps"`

	Discount float64 `yaml:"discount"`

	// StartBound is the half-width of the uniform starting position
	// interval centred on the valley floor
	StartBound float64 `yaml:"start_bound"`
}

// RunConfig configures the budgets and output of a training run
type RunConfig struct {
	MaxSteps    int `yaml:"max_steps"`
	MaxEpisodes int `yaml:"max_episodes"`

	// CheckpointInterval is the number of environment steps between
	// agent checkpoints. Zero disables periodic checkpointing.
	CheckpointInterval int `yaml:"checkpoint_interval"`

	DataDir string `yaml:"data_dir"`
}

// Config is the full configuration of an experiment, read from a YAML
// file
type Config struct {
	Seed        int64             `yaml:"seed"`
	Environment EnvironmentConfig `yaml:"environment"`
	Agent       deepq.Config      `yaml:"agent"`
	Run         RunConfig         `yaml:"run"`
}

// NewDefaultConfig returns a runnable mountain car configuration
func NewDefaultConfig() Config {
	return Config{
		Seed: 1,
		Environment: EnvironmentConfig{
			EpisodeSteps: 1000,
			Discount:     0.99,
			StartBound:   0.1,
		},
		Agent: deepq.NewDefaultConfig(),
		Run: RunConfig{
			MaxSteps:           200000,
			CheckpointInterval: 10000,
			DataDir:            "data",
		},
	}
}

// LoadConfig reads an experiment configuration from a YAML file
func LoadConfig(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("loadConfig: could not read config "+
			"file: %v", err)
	}

	config := NewDefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("loadConfig: could not parse config "+
			"file: %v", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("loadConfig: %v", err)
	}
	return config, nil
}

// Validate returns an error describing the first invalid configuration
// value
func (c Config) Validate() error {
	if c.Environment.EpisodeSteps < 1 {
		return fmt.Errorf("validate: episode steps must be >= 1")
	}
	if c.Environment.Discount < 0.0 || c.Environment.Discount > 1.0 {
		return fmt.Errorf("validate: discount must be in [0, 1]")
	}
	if c.Environment.StartBound < 0.0 {
		return fmt.Errorf("validate: start bound cannot be negative")
	}
	if c.Run.MaxSteps < 1 {
		return fmt.Errorf("validate: max steps must be >= 1")
	}
	if c.Run.CheckpointInterval < 0 {
		return fmt.Errorf("validate: checkpoint interval cannot be negative")
	}
	return c.Agent.Validate()
}

// CreateEnvironment constructs the mountain car environment described
// by the configuration
func (c Config) CreateEnvironment() (env.Environment, error) {
	bounds := []r1.Interval{
		{Min: -0.6 - c.Environment.StartBound,
			Max: -0.6 + c.Environment.StartBound},
		{Min: 0.0, Max: 0.0},
	}
	starter := env.NewUniformStarter(bounds, uint64(c.Seed))

	task := mountaincar.NewGoal(starter, c.Environment.EpisodeSteps,
		mountaincar.GoalPosition)

	environment, _, err := mountaincar.NewDiscrete(task,
		c.Environment.Discount)
	if err != nil {
		return nil, fmt.Errorf("createEnvironment: %v", err)
	}
	return environment, nil
}

// CreateAgent constructs the deep Q-learning agent described by the
// configuration
func (c Config) CreateAgent(e env.Environment) (*deepq.DeepQ, error) {
	agent, err := deepq.New(e, c.Agent, c.Seed)
	if err != nil {
		return nil, fmt.Errorf("createAgent: %v", err)
	}
	return agent, nil
}
