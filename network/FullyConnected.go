package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Layer is a single layer of a feedforward neural network
type Layer interface {
	fwd(*G.Node) (*G.Node, error)
	Weights() *G.Node
	Bias() *G.Node
	Activation() *Activation
}

// fcLayer implements a fully connected layer of a feedforward neural
// network
type fcLayer struct {
	weights *G.Node
	bias    *G.Node
	act     *Activation
}

// newFCLayer adds a fully connected layer with in inputs and out
// outputs to graph g. The name prefix keeps node names unique when
// several networks share one process.
func newFCLayer(g *G.ExprGraph, in, out int, bias bool, act *Activation,
	init G.InitWFn, name string) *fcLayer {
	weights := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(in, out),
		G.WithInit(init),
		G.WithName(name+"W"),
	)

	var biasNode *G.Node
	if bias {
		biasNode = G.NewMatrix(
			g,
			tensor.Float64,
			G.WithShape(1, out),
			G.WithInit(G.Zeroes()),
			G.WithName(name+"B"),
		)
	}

	return &fcLayer{weights: weights, bias: biasNode, act: act}
}

// fwd adds the forward pass of the fcLayer to the computational graph
func (f *fcLayer) fwd(x *G.Node) (*G.Node, error) {
	if f.Weights() != nil {
		x = G.Must(G.Mul(x, f.Weights()))
	}
	if f.Bias() != nil {
		// Broadcast the bias weights to all samples along the batch
		// dimension
		x = G.Must(G.BroadcastAdd(x, f.Bias(), nil, []byte{0}))
	}
	if f.Activation() == nil || f.Activation().IsIdentity() {
		return x, nil
	}
	return f.Activation().fwd(x)
}

func (f *fcLayer) Activation() *Activation {
	return f.act
}

func (f *fcLayer) Bias() *G.Node {
	return f.bias
}

func (f *fcLayer) Weights() *G.Node {
	return f.weights
}

// addFCLayers builds the hidden layers plus a final linear layer so
// that the network always outputs one value estimate per action. For
// index i, hiddenSizes[i] is the number of nodes in hidden layer i,
// biases[i] whether that layer has a bias unit, and activations[i] its
// activation.
func addFCLayers(g *G.ExprGraph, features, outputs int, hiddenSizes []int,
	biases []bool, activations []*Activation, init G.InitWFn,
	prefix string) ([]Layer, error) {
	if len(hiddenSizes) != len(activations) {
		return nil, fmt.Errorf("addfclayers: invalid number of activations"+
			"\n\twant(%d)\n\thave(%d)", len(hiddenSizes), len(activations))
	}
	if len(hiddenSizes) != len(biases) {
		return nil, fmt.Errorf("addfclayers: invalid number of biases"+
			"\n\twant(%d)\n\thave(%d)", len(hiddenSizes), len(biases))
	}

	// Final linear layer with a bias and no activation so that the
	// number of network outputs equals the number of actions
	sizes := append([]int{}, hiddenSizes...)
	sizes = append(sizes, outputs)
	withBias := append([]bool{}, biases...)
	withBias = append(withBias, true)
	acts := append([]*Activation{}, activations...)
	acts = append(acts, Identity())

	layers := make([]Layer, len(sizes))
	in := features
	for i, out := range sizes {
		name := fmt.Sprintf("%vL%d", prefix, i)
		layers[i] = newFCLayer(g, in, out, withBias[i], acts[i], init, name)
		in = out
	}

	return layers, nil
}
