// Package network implements neural network value-function
// approximators using Gorgonia.
//
// The trainer treats a value network as an opaque differentiable map
// from a state vector to a vector of per-action value estimates. The
// NeuralNet interface is the full capability set the trainer needs:
// single-state and batched prediction, one gradient step towards
// supplied targets, parameter snapshot/restore for checkpointing, and
// explicit parameter copies for target-network synchronization.
package network

import (
	G "gorgonia.org/gorgonia"
)

// NeuralNet is an opaque state-to-action-value function approximator.
//
// Two NeuralNet instances of the same architecture hold fully
// independent parameter sets; the only way parameters flow between
// them is an explicit Set or Polyak call. This rules out aliasing bugs
// where updating the online network silently updates the target
// network.
type NeuralNet interface {
	// Predict returns the estimated value of every action in a single
	// state
	Predict(state []float64) ([]float64, error)

	// PredictBatch returns the action values for BatchSize() states,
	// flattened row-major: row i of the result spans
	// [i*Outputs(), (i+1)*Outputs())
	PredictBatch(states []float64) ([]float64, error)

	// TrainStep performs one gradient-descent update towards the
	// argument target value vectors and returns the mean squared
	// error before the update. Only this network's parameters change.
	TrainStep(states, targets []float64) (float64, error)

	// Set copies the parameters of source into this network
	Set(source NeuralNet) error

	// Polyak sets this network's parameters to a Polyak average
	// between its current parameters and those of source
	Polyak(source NeuralNet, tau float64) error

	// Snapshot returns a serializable copy of the network parameters
	Snapshot() (Snapshot, error)

	// Restore overwrites the network parameters with a snapshot
	// previously produced by a network of the same architecture
	Restore(Snapshot) error

	// Learnables returns the learnable nodes, in a fixed order shared
	// by all networks of the same architecture
	Learnables() G.Nodes

	Features() int
	Outputs() int
	BatchSize() int

	// Close releases the compiled virtual machines
	Close() error
}

// Snapshot is a serializable copy of a network's parameters. Weights
// and Shapes are parallel: Weights[i] is the flattened backing data of
// the i'th learnable and Shapes[i] its tensor shape.
type Snapshot struct {
	Weights [][]float64
	Shapes  [][]int
}
