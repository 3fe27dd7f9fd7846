package layers

import (
	"fmt"
	"io"
	"math"

	"digitnet/matrix"
)

// Layer is one fully-connected stage of a network. Column matrices flow
// through it: inputs are PrevNodes x 1, outputs are Nodes x 1.
type Layer interface {
	Nodes() int
	PrevNodes() int
	Activator() Activator
	Activation(x float32) float32
	ActivationDerivative(x float32) float32

	Feedforward(input *matrix.Matrix[float32]) (*matrix.Matrix[float32], error)
	FeedforwardCached(input *matrix.Matrix[float32]) (activation, weightedInput *matrix.Matrix[float32], err error)
	Backpropagate(errSignal, weightedInput, prevActivation *matrix.Matrix[float32]) (*matrix.Matrix[float32], error)
	Step(learningRate float32) error
	ResetGradients()

	Weights() *matrix.Matrix[float32]
	Bias() *matrix.Matrix[float32]
	SetParameters(weights, bias *matrix.Matrix[float32]) error
	Serialize(w io.Writer) error
	Tag() string
}

// Dense holds the weights (Nodes x PrevNodes), bias (Nodes x 1) and the
// gradient accumulators of a fully-connected layer.
type Dense struct {
	act       Activator
	nodes     int
	prevNodes int

	weights *matrix.Matrix[float32]
	bias    *matrix.Matrix[float32]

	nablaW *matrix.Matrix[float32]
	nablaB *matrix.Matrix[float32]
}

var _ Layer = (*Dense)(nil)

// InitRange is the half-width r of the uniform weight initialisation
// [-r, r] for a layer with the given fan-out and fan-in.
func InitRange(nodes, prevNodes int) float32 {
	return float32(4 * math.Sqrt(6/float64(nodes+prevNodes)))
}

// NewDense creates a layer with weights drawn uniformly from
// [-InitRange, InitRange] and zero bias. A zero seed draws from a
// clock-derived source.
func NewDense(act Activator, nodes, prevNodes int, seed uint64) (*Dense, error) {
	if act == nil {
		return nil, fmt.Errorf("dense layer: nil activator")
	}
	if nodes <= 0 || prevNodes <= 0 {
		return nil, fmt.Errorf("dense layer %dx%d: %w", nodes, prevNodes, matrix.ErrBadShape)
	}

	l := &Dense{
		act:       act,
		nodes:     nodes,
		prevNodes: prevNodes,
		weights:   matrix.MustNew[float32](nodes, prevNodes),
		bias:      matrix.MustNew[float32](nodes, 1),
		nablaW:    matrix.MustNew[float32](nodes, prevNodes),
		nablaB:    matrix.MustNew[float32](nodes, 1),
	}
	if seed != 0 {
		l.weights.Seed(seed)
	}
	r := InitRange(nodes, prevNodes)
	l.weights.Randomize(-r, r)
	l.bias.Zero()
	l.ResetGradients()
	return l, nil
}

func (l *Dense) Nodes() int           { return l.nodes }
func (l *Dense) PrevNodes() int       { return l.prevNodes }
func (l *Dense) Activator() Activator { return l.act }
func (l *Dense) Tag() string          { return l.act.Tag() }

func (l *Dense) Activation(x float32) float32           { return l.act.Activate(x) }
func (l *Dense) ActivationDerivative(x float32) float32 { return l.act.Derivative(x) }

// Weights returns a copy of the weight matrix.
func (l *Dense) Weights() *matrix.Matrix[float32] { return l.weights.Clone() }

// Bias returns a copy of the bias column.
func (l *Dense) Bias() *matrix.Matrix[float32] { return l.bias.Clone() }

// SetParameters replaces weights and bias. Shapes must match the layer.
func (l *Dense) SetParameters(weights, bias *matrix.Matrix[float32]) error {
	if weights.Rows() != l.nodes || weights.Columns() != l.prevNodes {
		return fmt.Errorf("weights %dx%d for %dx%d layer: %w",
			weights.Rows(), weights.Columns(), l.nodes, l.prevNodes, matrix.ErrDimensionMismatch)
	}
	if bias.Rows() != l.nodes || bias.Columns() != 1 {
		return fmt.Errorf("bias %dx%d for %d-node layer: %w",
			bias.Rows(), bias.Columns(), l.nodes, matrix.ErrDimensionMismatch)
	}
	l.weights = weights.Clone()
	l.bias = bias.Clone()
	return nil
}

// newDenseFrom wraps decoded parameters without drawing initial weights.
func newDenseFrom(act Activator, nodes, prevNodes int, weights, bias []float32) (*Dense, error) {
	w, err := matrix.NewFromData(nodes, prevNodes, weights)
	if err != nil {
		return nil, err
	}
	b, err := matrix.NewFromData(nodes, 1, bias)
	if err != nil {
		return nil, err
	}
	l := &Dense{
		act:       act,
		nodes:     nodes,
		prevNodes: prevNodes,
		weights:   w,
		bias:      b,
		nablaW:    matrix.MustNew[float32](nodes, prevNodes),
		nablaB:    matrix.MustNew[float32](nodes, 1),
	}
	l.ResetGradients()
	return l, nil
}

// FeedforwardCached returns act(W·input + b) together with the
// pre-activation W·input + b needed by Backpropagate.
func (l *Dense) FeedforwardCached(input *matrix.Matrix[float32]) (*matrix.Matrix[float32], *matrix.Matrix[float32], error) {
	z, err := l.weights.Mul(input)
	if err != nil {
		return nil, nil, fmt.Errorf("dense feedforward: %w", err)
	}
	if err := z.AddInPlace(l.bias); err != nil {
		return nil, nil, fmt.Errorf("dense feedforward: %w", err)
	}
	return z.Map(l.act.Activate), z, nil
}

func (l *Dense) Feedforward(input *matrix.Matrix[float32]) (*matrix.Matrix[float32], error) {
	a, _, err := l.FeedforwardCached(input)
	return a, err
}

// Backpropagate folds one sample's gradient into the accumulators and
// returns the error signal for the previous layer, Wᵀ·delta.
//
//	delta   = errSignal ⊙ act'(weightedInput)
//	nablaW += delta · prevActivationᵀ
//	nablaB += delta
//
// On error the accumulators are left untouched.
func (l *Dense) Backpropagate(errSignal, weightedInput, prevActivation *matrix.Matrix[float32]) (*matrix.Matrix[float32], error) {
	delta, err := errSignal.Hadamard(weightedInput.Map(l.act.Derivative))
	if err != nil {
		return nil, fmt.Errorf("dense backprop: %w", err)
	}
	gradW, err := delta.Mul(matrix.Transpose(prevActivation))
	if err != nil {
		return nil, fmt.Errorf("dense backprop: %w", err)
	}
	if gradW.Rows() != l.nodes || gradW.Columns() != l.prevNodes || delta.Columns() != 1 {
		return nil, fmt.Errorf("dense backprop: gradient %dx%d for %dx%d layer: %w",
			gradW.Rows(), gradW.Columns(), l.nodes, l.prevNodes, matrix.ErrDimensionMismatch)
	}
	prevErr, err := matrix.Transpose(l.weights).Mul(delta)
	if err != nil {
		return nil, fmt.Errorf("dense backprop: %w", err)
	}

	if err := l.nablaW.AddInPlace(gradW); err != nil {
		return nil, err
	}
	if err := l.nablaB.AddInPlace(delta); err != nil {
		return nil, err
	}
	return prevErr, nil
}

// Step applies W -= lr·nablaW and b -= lr·nablaB, then clears the
// accumulators.
func (l *Dense) Step(learningRate float32) error {
	if err := l.weights.SubInPlace(l.nablaW.Scale(learningRate)); err != nil {
		return err
	}
	if err := l.bias.SubInPlace(l.nablaB.Scale(learningRate)); err != nil {
		return err
	}
	l.ResetGradients()
	return nil
}

// ResetGradients discards everything accumulated since the last Step.
func (l *Dense) ResetGradients() {
	l.nablaW.Zero()
	l.nablaB.Zero()
}

func (l *Dense) String() string {
	return fmt.Sprintf("Dense(%d->%d, %s)", l.prevNodes, l.nodes, l.act)
}
