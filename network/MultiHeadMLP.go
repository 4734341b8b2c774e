package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// fcNetwork is one compiled copy of the MLP on its own expression
// graph with a fixed input batch size. A multiHeadMLP keeps three of
// these in lockstep (see below).
type fcNetwork struct {
	g          *G.ExprGraph
	layers     []Layer
	input      *G.Node
	prediction *G.Node
	predVal    G.Value
	batchSize  int
}

// newFCNetwork builds an MLP forward pass for the given batch size
func newFCNetwork(features, batch, outputs int, hiddenSizes []int,
	biases []bool, activations []*Activation, init G.InitWFn,
	prefix string) (*fcNetwork, error) {
	g := G.NewGraph()

	input := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batch, features),
		G.WithName(prefix+"Input"),
		G.WithInit(G.Zeroes()),
	)

	layers, err := addFCLayers(g, features, outputs, hiddenSizes, biases,
		activations, init, prefix)
	if err != nil {
		return nil, err
	}

	pred := input
	for i, l := range layers {
		if pred, err = l.fwd(pred); err != nil {
			return nil, fmt.Errorf("newfcnetwork: could not compute "+
				"forward pass of layer %v: %v", i, err)
		}
	}

	net := &fcNetwork{
		g:          g,
		layers:     layers,
		input:      input,
		prediction: pred,
		batchSize:  batch,
	}
	G.Read(net.prediction, &net.predVal)

	return net, nil
}

// learnables returns the learnable nodes of the network, weights then
// bias for each layer in order
func (n *fcNetwork) learnables() G.Nodes {
	learnables := make(G.Nodes, 0, 2*len(n.layers))
	for i := range n.layers {
		learnables = append(learnables, n.layers[i].Weights())
		if bias := n.layers[i].Bias(); bias != nil {
			learnables = append(learnables, bias)
		}
	}
	return learnables
}

// setInput binds the input node to the argument data
func (n *fcNetwork) setInput(features int, data []float64) error {
	if len(data) != features*n.batchSize {
		return fmt.Errorf("setinput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", features*n.batchSize, len(data))
	}
	backing := make([]float64, len(data))
	copy(backing, data)
	inputTensor := tensor.New(
		tensor.WithShape(n.batchSize, features),
		tensor.WithBacking(backing),
	)
	return G.Let(n.input, inputTensor)
}

// multiHeadMLP implements NeuralNet as a multi-layered perceptron with
// one output head per action.
//
// Gorgonia compiles a graph for a fixed input batch size, so the
// network keeps three compiled copies of the same parameters: a
// single-row graph for action selection, a batch-sized forward-only
// graph for computing bootstrapped targets, and a batch-sized training
// graph carrying the squared-error loss and gradient nodes. The
// training graph owns the canonical parameters; after every update or
// external parameter write the other two copies are overwritten from
// it, so all three always agree.
type multiHeadMLP struct {
	features  int
	outputs   int
	batchSize int

	train   *fcNetwork
	forward *fcNetwork
	predict *fcNetwork

	targets *G.Node
	lossVal G.Value

	trainVM   G.VM
	forwardVM G.VM
	predictVM G.VM
	solver    G.Solver
	model     []G.ValueGrad
}

// NewMultiHeadMLP creates and returns a new multi-layered perceptron
// with one output per action. The MLP has len(hiddenSizes) hidden
// layers plus a final linear layer producing the outputs; for index i,
// hiddenSizes[i] is the number of nodes in hidden layer i, biases[i]
// whether that layer has a bias unit, and activations[i] its
// activation function. The init parameter determines the weight
// initialization scheme and sol adapts the weights on each TrainStep.
func NewMultiHeadMLP(features, batch, outputs int, hiddenSizes []int,
	biases []bool, activations []*Activation, init G.InitWFn,
	sol G.Solver) (NeuralNet, error) {
	if features < 1 {
		return nil, fmt.Errorf("newmultiheadmlp: features must be >= 1")
	}
	if outputs < 1 {
		return nil, fmt.Errorf("newmultiheadmlp: outputs must be >= 1")
	}
	if batch < 1 {
		return nil, fmt.Errorf("newmultiheadmlp: batch must be >= 1")
	}

	train, err := newFCNetwork(features, batch, outputs, hiddenSizes, biases,
		activations, init, "train")
	if err != nil {
		return nil, fmt.Errorf("newmultiheadmlp: %v", err)
	}

	forward, err := newFCNetwork(features, batch, outputs, hiddenSizes,
		biases, activations, init, "forward")
	if err != nil {
		return nil, fmt.Errorf("newmultiheadmlp: %v", err)
	}

	predict, err := newFCNetwork(features, 1, outputs, hiddenSizes, biases,
		activations, init, "predict")
	if err != nil {
		return nil, fmt.Errorf("newmultiheadmlp: %v", err)
	}

	// Mean squared error against externally computed target values
	targets := G.NewMatrix(
		train.g,
		tensor.Float64,
		G.WithShape(batch, outputs),
		G.WithName("targets"),
		G.WithInit(G.Zeroes()),
	)
	losses := G.Must(G.Square(G.Must(G.Sub(train.prediction, targets))))
	cost := G.Must(G.Mean(losses))

	net := &multiHeadMLP{
		features:  features,
		outputs:   outputs,
		batchSize: batch,
		train:     train,
		forward:   forward,
		predict:   predict,
		targets:   targets,
		solver:    sol,
	}
	G.Read(cost, &net.lossVal)

	learnables := train.learnables()
	if _, err := G.Grad(cost, learnables...); err != nil {
		return nil, fmt.Errorf("newmultiheadmlp: could not compute "+
			"gradient: %v", err)
	}

	net.model = make([]G.ValueGrad, len(learnables))
	for i, node := range learnables {
		net.model[i] = node
	}

	net.trainVM = G.NewTapeMachine(train.g,
		G.BindDualValues(learnables...))
	net.forwardVM = G.NewTapeMachine(forward.g)
	net.predictVM = G.NewTapeMachine(predict.g)

	// The three graphs are initialized independently; make the
	// forward and prediction copies agree with the training copy
	if err := net.syncFromTrain(); err != nil {
		return nil, fmt.Errorf("newmultiheadmlp: %v", err)
	}

	return net, nil
}

// Predict returns the estimated value of every action in a single
// state
func (m *multiHeadMLP) Predict(state []float64) ([]float64, error) {
	if len(state) != m.features {
		return nil, fmt.Errorf("predict: invalid state length\n\twant(%v)"+
			"\n\thave(%v)", m.features, len(state))
	}

	if err := m.predict.setInput(m.features, state); err != nil {
		return nil, fmt.Errorf("predict: %v", err)
	}
	if err := m.predictVM.RunAll(); err != nil {
		return nil, fmt.Errorf("predict: %v", err)
	}
	defer m.predictVM.Reset()

	out := make([]float64, m.outputs)
	copy(out, m.predict.predVal.Data().([]float64))
	return out, nil
}

// PredictBatch returns the action values of BatchSize() states,
// flattened row-major
func (m *multiHeadMLP) PredictBatch(states []float64) ([]float64, error) {
	if err := m.forward.setInput(m.features, states); err != nil {
		return nil, fmt.Errorf("predictbatch: %v", err)
	}
	if err := m.forwardVM.RunAll(); err != nil {
		return nil, fmt.Errorf("predictbatch: %v", err)
	}
	defer m.forwardVM.Reset()

	out := make([]float64, m.batchSize*m.outputs)
	copy(out, m.forward.predVal.Data().([]float64))
	return out, nil
}

// TrainStep performs one gradient-descent update towards the argument
// target value vectors and returns the mean squared error before the
// update
func (m *multiHeadMLP) TrainStep(states, targets []float64) (float64, error) {
	if len(targets) != m.batchSize*m.outputs {
		return 0, fmt.Errorf("trainstep: invalid targets length"+
			"\n\twant(%v)\n\thave(%v)", m.batchSize*m.outputs, len(targets))
	}

	if err := m.train.setInput(m.features, states); err != nil {
		return 0, fmt.Errorf("trainstep: %v", err)
	}

	backing := make([]float64, len(targets))
	copy(backing, targets)
	targetTensor := tensor.New(
		tensor.WithShape(m.batchSize, m.outputs),
		tensor.WithBacking(backing),
	)
	if err := G.Let(m.targets, targetTensor); err != nil {
		return 0, fmt.Errorf("trainstep: could not set targets: %v", err)
	}

	if err := m.trainVM.RunAll(); err != nil {
		return 0, fmt.Errorf("trainstep: %v", err)
	}
	loss := m.lossVal.Data().(float64)

	if err := m.solver.Step(m.model); err != nil {
		return 0, fmt.Errorf("trainstep: could not step solver: %v", err)
	}
	m.trainVM.Reset()

	if err := m.syncFromTrain(); err != nil {
		return 0, fmt.Errorf("trainstep: %v", err)
	}

	return loss, nil
}

// Set copies the parameters of source into this network
func (m *multiHeadMLP) Set(source NeuralNet) error {
	sourceNodes := source.Learnables()
	nodes := m.train.learnables()
	if len(sourceNodes) != len(nodes) {
		return fmt.Errorf("set: parameter count mismatch\n\twant(%v)"+
			"\n\thave(%v)", len(nodes), len(sourceNodes))
	}

	for i, destLearnable := range nodes {
		if err := copyNodeValue(destLearnable, sourceNodes[i]); err != nil {
			return fmt.Errorf("set: %v", err)
		}
	}
	return m.syncFromTrain()
}

// Polyak sets the parameters of this network to be a Polyak average
// between its existing parameters and the parameters of source
func (m *multiHeadMLP) Polyak(source NeuralNet, tau float64) error {
	sourceNodes := source.Learnables()
	nodes := m.train.learnables()
	for i := range nodes {
		weights := nodes[i].Value().(*tensor.Dense)
		sourceWeights := sourceNodes[i].Value().(*tensor.Dense)

		weights, err := weights.MulScalar(1-tau, true)
		if err != nil {
			return err
		}

		sourceWeights, err = sourceWeights.MulScalar(tau, true)
		if err != nil {
			return err
		}

		newWeights, err := weights.Add(sourceWeights)
		if err != nil {
			return err
		}

		if err := G.Let(nodes[i], newWeights); err != nil {
			return err
		}
	}
	return m.syncFromTrain()
}

// Snapshot returns a serializable copy of the network parameters
func (m *multiHeadMLP) Snapshot() (Snapshot, error) {
	learnables := m.train.learnables()

	snap := Snapshot{
		Weights: make([][]float64, len(learnables)),
		Shapes:  make([][]int, len(learnables)),
	}
	for i, node := range learnables {
		dense, ok := node.Value().(*tensor.Dense)
		if !ok {
			return Snapshot{}, fmt.Errorf("snapshot: learnable %v holds no "+
				"dense tensor", node.Name())
		}

		data := dense.Data().([]float64)
		snap.Weights[i] = make([]float64, len(data))
		copy(snap.Weights[i], data)

		shape := dense.Shape()
		snap.Shapes[i] = make([]int, len(shape))
		copy(snap.Shapes[i], shape)
	}
	return snap, nil
}

// Restore overwrites the network parameters with a snapshot
func (m *multiHeadMLP) Restore(snap Snapshot) error {
	learnables := m.train.learnables()
	if len(snap.Weights) != len(learnables) {
		return fmt.Errorf("restore: snapshot holds %v parameter sets, "+
			"network has %v", len(snap.Weights), len(learnables))
	}

	for i, node := range learnables {
		backing := make([]float64, len(snap.Weights[i]))
		copy(backing, snap.Weights[i])
		restored := tensor.New(
			tensor.WithShape(snap.Shapes[i]...),
			tensor.WithBacking(backing),
		)
		if err := G.Let(node, restored); err != nil {
			return fmt.Errorf("restore: could not set learnable %v: %v",
				node.Name(), err)
		}
	}
	return m.syncFromTrain()
}

// Learnables returns the canonical learnable nodes of the network
func (m *multiHeadMLP) Learnables() G.Nodes {
	return m.train.learnables()
}

// Features returns the number of features in a single input state
func (m *multiHeadMLP) Features() int {
	return m.features
}

// Outputs returns the number of action values the network predicts
func (m *multiHeadMLP) Outputs() int {
	return m.outputs
}

// BatchSize returns the batch size of the training and batched
// forward graphs
func (m *multiHeadMLP) BatchSize() int {
	return m.batchSize
}

// Close releases the compiled virtual machines
func (m *multiHeadMLP) Close() error {
	var firstErr error
	for _, vm := range []G.VM{m.trainVM, m.forwardVM, m.predictVM} {
		if err := vm.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// syncFromTrain overwrites the forward and prediction copies with the
// training copy's parameters
func (m *multiHeadMLP) syncFromTrain() error {
	source := m.train.learnables()
	for _, dest := range []*fcNetwork{m.forward, m.predict} {
		destNodes := dest.learnables()
		for i := range destNodes {
			if err := copyNodeValue(destNodes[i], source[i]); err != nil {
				return fmt.Errorf("syncfromtrain: %v", err)
			}
		}
	}
	return nil
}

// copyNodeValue copies the tensor held by src into dst, cloning the
// backing data so the two nodes never alias
func copyNodeValue(dst, src *G.Node) error {
	dense, ok := src.Value().(*tensor.Dense)
	if !ok {
		return fmt.Errorf("copynodevalue: node %v holds no dense tensor",
			src.Name())
	}
	return G.Let(dst, dense.Clone().(*tensor.Dense))
}
