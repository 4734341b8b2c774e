// Command rlstudy trains and evaluates a deep Q-learning agent on the
// mountain car control task.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AleBrownArnold/reinforcement-learning-study/agent/deepq"
	"github.com/AleBrownArnold/reinforcement-learning-study/experiment"
	"github.com/AleBrownArnold/reinforcement-learning-study/experiment/checkpointer"
	"github.com/AleBrownArnold/reinforcement-learning-study/experiment/tracker"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rlstudy",
		Short: "Deep Q-learning on the mountain car control task",
		Long: `rlstudy trains a deep Q-learning agent to drive an underpowered
car out of a valley, and evaluates saved agents.

Training runs write their data (episodic returns, episode lengths,
win indicators, and agent checkpoints) into a fresh run directory.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newTrainCmd(),
		newEvalCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the experiment configuration, falling back to the
// default mountain car configuration when no file is given.
func loadConfig(filename string) (experiment.Config, error) {
	if filename == "" {
		return experiment.NewDefaultConfig(), nil
	}
	return experiment.LoadConfig(filename)
}

func newTrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train an agent, writing data and checkpoints to a run directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile, _ := cmd.Flags().GetString("config")
			resume, _ := cmd.Flags().GetString("resume")
			return train(configFile, resume)
		},
	}

	cmd.Flags().String("config", "", "YAML experiment configuration file")
	cmd.Flags().String("resume", "", "Checkpoint file to resume training from")
	return cmd
}

func train(configFile, resume string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt,
		syscall.SIGTERM)
	defer stop()

	config, err := loadConfig(configFile)
	if err != nil {
		return err
	}

	runDir := filepath.Join(config.Run.DataDir, uuid.NewString())
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return fmt.Errorf("train: could not create run directory: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	logger.Info("starting training run", "dir", runDir)

	// Record the resolved configuration alongside the run data
	resolved, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("train: could not marshal configuration: %v", err)
	}
	configPath := filepath.Join(runDir, "config.yaml")
	if err := os.WriteFile(configPath, resolved, 0o644); err != nil {
		return fmt.Errorf("train: could not write configuration: %v", err)
	}

	environment, err := config.CreateEnvironment()
	if err != nil {
		return fmt.Errorf("train: %v", err)
	}
	agent, err := config.CreateAgent(environment)
	if err != nil {
		return fmt.Errorf("train: %v", err)
	}
	defer agent.Close()
	agent.SetLogger(logger)

	if resume != "" {
		checkpoint, err := deepq.LoadCheckpoint(resume)
		if err != nil {
			return fmt.Errorf("train: %v", err)
		}
		if err := agent.Restore(checkpoint); err != nil {
			return fmt.Errorf("train: %v", err)
		}
		logger.Info("resumed from checkpoint", "file", resume,
			"episode", agent.Counters().Episode,
			"step", agent.Counters().GlobalStep)
	}

	online, err := experiment.NewOnline(environment, agent,
		config.Run.MaxSteps, config.Run.MaxEpisodes,
		tracker.NewReturn(filepath.Join(runDir, "returns.bin")),
		tracker.NewEpisodeLength(filepath.Join(runDir, "lengths.bin")),
		tracker.NewWins(filepath.Join(runDir, "wins.bin")),
	)
	if err != nil {
		return fmt.Errorf("train: %v", err)
	}
	online.SetLogger(logger)

	if config.Run.CheckpointInterval > 0 {
		nStep, err := checkpointer.NewNStep(config.Run.CheckpointInterval,
			agent, checkpointer.FilenameEnumerator(0,
				filepath.Join(runDir, "agent"), "bin"))
		if err != nil {
			return fmt.Errorf("train: %v", err)
		}
		online.RegisterCheckpointer(nStep)
	}

	runErr := online.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("train: %v", runErr)
	}
	if runErr != nil {
		logger.Info("training interrupted, saving run data",
			"steps", online.CurrentSteps())
	}

	if err := online.Save(); err != nil {
		return fmt.Errorf("train: %v", err)
	}
	finalPath := filepath.Join(runDir, "agent_final.bin")
	if err := agent.Save(finalPath); err != nil {
		return fmt.Errorf("train: %v", err)
	}

	logger.Info("training run finished",
		"steps", online.CurrentSteps(),
		"episodes", agent.Counters().Episode,
		"epsilon", agent.Epsilon(),
		"divergenceWarnings", len(agent.Warnings()),
		"checkpoint", finalPath,
	)
	return nil
}

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate a saved agent greedily",
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile, _ := cmd.Flags().GetString("config")
			checkpointFile, _ := cmd.Flags().GetString("checkpoint")
			episodes, _ := cmd.Flags().GetInt("episodes")
			render, _ := cmd.Flags().GetBool("render")
			return eval(configFile, checkpointFile, episodes, render)
		},
	}

	cmd.Flags().String("config", "", "YAML experiment configuration file")
	cmd.Flags().String("checkpoint", "", "Agent checkpoint file to evaluate")
	cmd.Flags().Int("episodes", 10, "Number of evaluation episodes")
	cmd.Flags().Bool("render", false, "Render the environment to the terminal")
	cmd.MarkFlagRequired("checkpoint")
	return cmd
}

func eval(configFile, checkpointFile string, episodes int, render bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt,
		syscall.SIGTERM)
	defer stop()

	config, err := loadConfig(configFile)
	if err != nil {
		return err
	}

	environment, err := config.CreateEnvironment()
	if err != nil {
		return fmt.Errorf("eval: %v", err)
	}
	agent, err := config.CreateAgent(environment)
	if err != nil {
		return fmt.Errorf("eval: %v", err)
	}
	defer agent.Close()

	checkpoint, err := deepq.LoadCheckpoint(checkpointFile)
	if err != nil {
		return fmt.Errorf("eval: %v", err)
	}
	if err := agent.Restore(checkpoint); err != nil {
		return fmt.Errorf("eval: %v", err)
	}

	result, err := experiment.Evaluate(ctx, environment, agent, episodes,
		render)
	if err != nil {
		return fmt.Errorf("eval: %v", err)
	}

	fmt.Printf("Episodes:    %v\n", len(result.Returns))
	fmt.Printf("Wins:        %v\n", result.Wins)
	fmt.Printf("Mean return: %.2f\n", result.MeanReturn)
	fmt.Printf("Std return:  %.2f\n", result.StdDevReturn)
	fmt.Printf("Min return:  %.2f\n", result.MinReturn)
	fmt.Printf("Max return:  %.2f\n", result.MaxReturn)
	for i, r := range result.Returns {
		fmt.Printf("  episode %2d: return %8.2f  steps %4.0f\n", i+1, r,
			result.Lengths[i])
	}
	return nil
}
