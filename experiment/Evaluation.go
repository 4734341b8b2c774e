package experiment

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/AleBrownArnold/reinforcement-learning-study/agent"
	env "github.com/AleBrownArnold/reinforcement-learning-study/environment"
	ts "github.com/AleBrownArnold/reinforcement-learning-study/timestep"
	"github.com/AleBrownArnold/reinforcement-learning-study/utils/floatutils"
)

// EvaluationResult summarizes a greedy evaluation run
type EvaluationResult struct {
	Returns []float64
	Lengths []float64
	Wins    int

	MeanReturn   float64
	StdDevReturn float64
	MinReturn    float64
	MaxReturn    float64
}

// Evaluate runs the agent greedily on the environment for the given
// number of episodes and returns per-episode statistics. The agent is
// put in evaluation mode for the duration of the run: no exploration,
// no experience storage, and no learning updates. When render is true
// and the environment can draw itself, every state is rendered.
func Evaluate(ctx context.Context, e env.Environment, a agent.Agent,
	episodes int, render bool) (EvaluationResult, error) {
	if episodes < 1 {
		return EvaluationResult{}, fmt.Errorf("evaluate: episodes must "+
			"be >= 1, got %v", episodes)
	}

	a.Eval()
	defer a.Train()

	renderer, canRender := e.(env.Renderer)
	result := EvaluationResult{
		Returns: make([]float64, 0, episodes),
		Lengths: make([]float64, 0, episodes),
	}

	for i := 0; i < episodes; i++ {
		step, err := e.Reset()
		if err != nil {
			return EvaluationResult{}, fmt.Errorf("evaluate: could not "+
				"reset environment: %v", err)
		}
		if err := a.ObserveFirst(step); err != nil {
			return EvaluationResult{}, fmt.Errorf("evaluate: %v", err)
		}
		if render && canRender {
			renderer.Render()
		}

		episodeReturn := 0.0
		episodeSteps := 0
		for !step.Last() {
			if err := ctx.Err(); err != nil {
				return EvaluationResult{}, fmt.Errorf("evaluate: stopped "+
					"in episode %v: %w", i+1, err)
			}

			action, err := a.SelectAction(step)
			if err != nil {
				return EvaluationResult{}, fmt.Errorf("evaluate: could "+
					"not select action: %v", err)
			}

			step, _, err = e.Step(action)
			if err != nil {
				return EvaluationResult{}, fmt.Errorf("evaluate: could "+
					"not step environment: %v", err)
			}
			if err := a.Observe(action, step); err != nil {
				return EvaluationResult{}, fmt.Errorf("evaluate: %v", err)
			}
			if render && canRender {
				renderer.Render()
			}

			episodeReturn += step.Reward
			episodeSteps++
		}
		a.EndEpisode()

		result.Returns = append(result.Returns, episodeReturn)
		result.Lengths = append(result.Lengths, float64(episodeSteps))
		if step.EndType == ts.TerminalStateReached {
			result.Wins++
		}
	}

	result.MeanReturn = stat.Mean(result.Returns, nil)
	if len(result.Returns) > 1 {
		result.StdDevReturn = stat.StdDev(result.Returns, nil)
	}
	result.MinReturn = floatutils.Min(result.Returns...)
	result.MaxReturn = floatutils.Max(result.Returns...)

	return result, nil
}
