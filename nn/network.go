package nn

import (
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"digitnet/matrix"
	"digitnet/nn/layers"
	"digitnet/utils"

	"golang.org/x/exp/rand"
)

var (
	ErrNoLayers     = errors.New("network has no layers")
	ErrEmptyDataset = errors.New("empty dataset")
)

// Network is a feed-forward stack of dense layers trained by mini-batch
// stochastic gradient descent.
type Network struct {
	inputNodes   int
	outputNodes  int
	learningRate float32
	cost         CostFunction
	layers       []layers.Layer

	rng    *rand.Rand
	logger *log.Logger
	stats  *utils.TimingStats

	trainingStart int64
	trainingEnd   int64
}

// Option configures a Network built by NewNetwork or Load.
type Option func(*Network)

// WithSeed makes shuffling and layer initialisation reproducible.
func WithSeed(seed uint64) Option {
	return func(n *Network) { n.rng = rand.New(rand.NewSource(seed)) }
}

// WithLogger sends per-epoch progress to l. The default discards it.
func WithLogger(l *log.Logger) Option {
	return func(n *Network) { n.logger = l }
}

// WithTimingStats accumulates per-phase training durations into stats.
func WithTimingStats(stats *utils.TimingStats) Option {
	return func(n *Network) { n.stats = stats }
}

// NewNetwork returns a network with no layers whose output width is inputNodes.
func NewNetwork(inputNodes int, learningRate float32, cost CostFunction, opts ...Option) (*Network, error) {
	if inputNodes <= 0 {
		return nil, fmt.Errorf("network with %d input nodes: %w", inputNodes, matrix.ErrBadShape)
	}
	if cost == nil {
		return nil, fmt.Errorf("network: %w: nil", ErrUnknownCost)
	}
	n := &Network{
		inputNodes:   inputNodes,
		outputNodes:  inputNodes,
		learningRate: learningRate,
		cost:         cost,
		logger:       log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.rng == nil {
		n.rng = rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
	}
	return n, nil
}

func (n *Network) InputNodes() int       { return n.inputNodes }
func (n *Network) OutputNodes() int      { return n.outputNodes }
func (n *Network) LearningRate() float32 { return n.learningRate }
func (n *Network) Cost() CostFunction    { return n.cost }

// Layers returns the layers in feed order. The slice is a copy; the layers
// are not.
func (n *Network) Layers() []layers.Layer {
	return append([]layers.Layer(nil), n.layers...)
}

// TrainingSeconds is the wall time of the last Train call.
func (n *Network) TrainingSeconds() int64 {
	return n.trainingEnd - n.trainingStart
}

// AddLayer appends a nodes x OutputNodes layer and makes nodes the new
// output width.
func (n *Network) AddLayer(act layers.Activator, nodes int) error {
	l, err := layers.NewDense(act, nodes, n.outputNodes, n.rng.Uint64()|1)
	if err != nil {
		return err
	}
	n.appendLayer(l)
	return nil
}

func (n *Network) appendLayer(l layers.Layer) {
	n.layers = append(n.layers, l)
	n.outputNodes = l.Nodes()
}

func (n *Network) checkInput(input *matrix.Matrix[float32]) error {
	if len(n.layers) == 0 {
		return ErrNoLayers
	}
	if input.Rows() != n.inputNodes || input.Columns() != 1 {
		return fmt.Errorf("input %dx%d for %d-input network: %w",
			input.Rows(), input.Columns(), n.inputNodes, matrix.ErrDimensionMismatch)
	}
	return nil
}

// Feedforward returns the output column for one inputNodes x 1 input.
func (n *Network) Feedforward(input *matrix.Matrix[float32]) (*matrix.Matrix[float32], error) {
	if err := n.checkInput(input); err != nil {
		return nil, err
	}
	out := input
	for i, l := range n.layers {
		var err error
		if out, err = l.Feedforward(out); err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
	}
	return out, nil
}

// Predict returns the index of the strongest output alongside the output.
func (n *Network) Predict(input *matrix.Matrix[float32]) (int, *matrix.Matrix[float32], error) {
	out, err := n.Feedforward(input)
	if err != nil {
		return -1, nil, err
	}
	return out.ArgMax(), out, nil
}

func checkDataset(inputs, targets []*matrix.Matrix[float32]) error {
	if len(inputs) != len(targets) {
		return fmt.Errorf("%d inputs with %d targets: %w", len(inputs), len(targets), matrix.ErrDimensionMismatch)
	}
	return nil
}

// permutation returns the indices 0..size-1 in uniformly random order.
func (n *Network) permutation(size int) []int {
	perm := make([]int, size)
	for i := range perm {
		perm[i] = i
	}
	n.rng.Shuffle(size, func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
	return perm
}

// createBatches splits perm into consecutive chunks of batchSize; the last
// chunk may be shorter.
func createBatches(perm []int, batchSize int) [][]int {
	numBatches := (len(perm) + batchSize - 1) / batchSize
	batches := make([][]int, numBatches)
	for i := 0; i < numBatches; i++ {
		startIdx := i * batchSize
		endIdx := min(startIdx+batchSize, len(perm))
		batches[i] = perm[startIdx:endIdx]
	}
	return batches
}

// Train runs epochs passes of mini-batch SGD over the samples. Gradients
// are summed over a batch, so the effective step grows with batchSize.
func (n *Network) Train(epochs, batchSize int, inputs, targets []*matrix.Matrix[float32]) error {
	if len(n.layers) == 0 {
		return ErrNoLayers
	}
	if err := checkDataset(inputs, targets); err != nil {
		return err
	}
	if batchSize < 1 {
		return fmt.Errorf("batch size %d: must be at least 1", batchSize)
	}
	if epochs < 0 {
		return fmt.Errorf("epochs %d: must not be negative", epochs)
	}

	n.trainingStart = time.Now().Unix()
	start := time.Now()
	for epoch := 1; epoch <= epochs; epoch++ {
		n.logger.Printf("Epoch %d out of %d", epoch, epochs)
		for _, batch := range createBatches(n.permutation(len(inputs)), batchSize) {
			for _, idx := range batch {
				if err := n.trainSample(inputs[idx], targets[idx]); err != nil {
					n.resetGradients()
					return fmt.Errorf("epoch %d, sample %d: %w", epoch, idx, err)
				}
			}
			updateStart := time.Now()
			for i, l := range n.layers {
				if err := l.Step(n.learningRate); err != nil {
					n.resetGradients()
					return fmt.Errorf("epoch %d, layer %d step: %w", epoch, i, err)
				}
			}
			n.record(func(s *utils.TimingStats) { s.UpdateTime += time.Since(updateStart) })
		}
	}
	n.trainingEnd = time.Now().Unix()
	n.record(func(s *utils.TimingStats) {
		s.TotalTime += time.Since(start)
		s.Samples += epochs * len(inputs)
	})
	return nil
}

func (n *Network) resetGradients() {
	for _, l := range n.layers {
		l.ResetGradients()
	}
}

// trainSample folds one sample's gradient into every layer's accumulators.
func (n *Network) trainSample(input, target *matrix.Matrix[float32]) error {
	if err := n.checkInput(input); err != nil {
		return err
	}

	forwardStart := time.Now()
	activations := make([]*matrix.Matrix[float32], len(n.layers)+1)
	weighted := make([]*matrix.Matrix[float32], len(n.layers))
	activations[0] = input
	for i, l := range n.layers {
		a, z, err := l.FeedforwardCached(activations[i])
		if err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
		activations[i+1], weighted[i] = a, z
	}
	n.record(func(s *utils.TimingStats) { s.ForwardPassTime += time.Since(forwardStart) })

	lossStart := time.Now()
	errSignal, err := n.cost.Derivative(activations[len(n.layers)], target)
	if err != nil {
		return err
	}
	n.record(func(s *utils.TimingStats) { s.LossComputationTime += time.Since(lossStart) })

	backwardStart := time.Now()
	for i := len(n.layers) - 1; i >= 0; i-- {
		if errSignal, err = n.layers[i].Backpropagate(errSignal, weighted[i], activations[i]); err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
	}
	n.record(func(s *utils.TimingStats) { s.BackwardPassTime += time.Since(backwardStart) })
	return nil
}

func (n *Network) record(f func(*utils.TimingStats)) {
	if n.stats != nil {
		f(n.stats)
	}
}

// Test returns the percentage of samples whose strongest output row
// matches the strongest target row. An empty dataset scores 0.
func (n *Network) Test(inputs, targets []*matrix.Matrix[float32]) (float64, error) {
	if err := checkDataset(inputs, targets); err != nil {
		return 0, err
	}
	if len(inputs) == 0 {
		return 0, nil
	}
	start := time.Now()
	correct := 0
	for i := range inputs {
		got, _, err := n.Predict(inputs[i])
		if err != nil {
			return 0, fmt.Errorf("sample %d: %w", i, err)
		}
		if got == targets[i].ArgMax() {
			correct++
		}
	}
	n.record(func(s *utils.TimingStats) { s.EvaluationTime += time.Since(start) })
	return 100 * float64(correct) / float64(len(inputs)), nil
}

// AverageCost is the mean cost over the samples.
func (n *Network) AverageCost(inputs, targets []*matrix.Matrix[float32]) (float32, error) {
	if err := checkDataset(inputs, targets); err != nil {
		return 0, err
	}
	if len(inputs) == 0 {
		return 0, ErrEmptyDataset
	}
	var total float32
	for i := range inputs {
		out, err := n.Feedforward(inputs[i])
		if err != nil {
			return 0, fmt.Errorf("sample %d: %w", i, err)
		}
		c, err := n.cost.Cost(out, targets[i])
		if err != nil {
			return 0, fmt.Errorf("sample %d: %w", i, err)
		}
		total += c
	}
	return total / float32(len(inputs)), nil
}
