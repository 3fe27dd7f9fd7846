package nn

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"digitnet/matrix"
	"digitnet/nn/layers"

	"github.com/chewxy/math32"
)

// ErrUnknownCost is returned when a cost name or tag matches no variant.
var ErrUnknownCost = errors.New("unknown cost function")

// CostFunction scores a network output against its target and supplies the
// output error signal for backpropagation.
type CostFunction interface {
	Cost(output, target *matrix.Matrix[float32]) (float32, error)
	Derivative(output, target *matrix.Matrix[float32]) (*matrix.Matrix[float32], error)
	Serialize(w io.Writer) error
	Tag() string
}

// CostByTag returns the cost function stored under tag.
func CostByTag(tag string) (CostFunction, error) {
	switch tag {
	case MeanSquaredError{}.Tag():
		return MeanSquaredError{}, nil
	case CrossEntropy{}.Tag():
		return CrossEntropy{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCost, tag)
}

// ParseCost accepts "mse", "crossentropy"/"cex" or a tag in any case.
func ParseCost(name string) (CostFunction, error) {
	switch strings.ToLower(name) {
	case "mse", "meansquarederror":
		return MeanSquaredError{}, nil
	case "cex", "crossentropy", "cross-entropy":
		return CrossEntropy{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCost, name)
}

func readCost(r io.Reader) (CostFunction, error) {
	tag, err := layers.ReadTag(r)
	if err != nil {
		return nil, err
	}
	return CostByTag(tag)
}

func checkShapes(output, target *matrix.Matrix[float32]) error {
	if output.Rows() != target.Rows() || output.Columns() != target.Columns() {
		return fmt.Errorf("cost of %dx%d output against %dx%d target: %w",
			output.Rows(), output.Columns(), target.Rows(), target.Columns(), matrix.ErrDimensionMismatch)
	}
	return nil
}

// MeanSquaredError is 0.5·Σ(a−y)².
type MeanSquaredError struct{}

func (MeanSquaredError) Cost(output, target *matrix.Matrix[float32]) (float32, error) {
	diff, err := output.Sub(target)
	if err != nil {
		return 0, err
	}
	sq, err := diff.Hadamard(diff)
	if err != nil {
		return 0, err
	}
	return 0.5 * sq.Sum(), nil
}

func (MeanSquaredError) Derivative(output, target *matrix.Matrix[float32]) (*matrix.Matrix[float32], error) {
	return output.Sub(target)
}

func (c MeanSquaredError) Serialize(w io.Writer) error { return layers.WriteTag(w, c.Tag()) }
func (MeanSquaredError) Tag() string                   { return "MSE" }
func (MeanSquaredError) String() string                { return "mse" }

// crossEntropyEpsilon keeps ln and the derivative denominator finite when
// a sigmoid output saturates.
const crossEntropyEpsilon = 1e-6

func clampUnit(a float32) float32 {
	return math32.Max(crossEntropyEpsilon, math32.Min(1-crossEntropyEpsilon, a))
}

// CrossEntropy is Σ[−y·ln(a) − (1−y)·ln(1−a)], expecting outputs in (0, 1).
type CrossEntropy struct{}

func (CrossEntropy) Cost(output, target *matrix.Matrix[float32]) (float32, error) {
	if err := checkShapes(output, target); err != nil {
		return 0, err
	}
	a, y := output.Data(), target.Data()
	var sum float32
	for i := range a {
		ai := clampUnit(a[i])
		sum += -y[i]*math32.Log(ai) - (1-y[i])*math32.Log(1-ai)
	}
	return sum, nil
}

func (CrossEntropy) Derivative(output, target *matrix.Matrix[float32]) (*matrix.Matrix[float32], error) {
	if err := checkShapes(output, target); err != nil {
		return nil, err
	}
	a, y := output.Data(), target.Data()
	d := make([]float32, len(a))
	for i := range a {
		ai := clampUnit(a[i])
		d[i] = (ai - y[i]) / (ai * (1 - ai))
	}
	return matrix.NewFromData(output.Rows(), output.Columns(), d)
}

func (c CrossEntropy) Serialize(w io.Writer) error { return layers.WriteTag(w, c.Tag()) }
func (CrossEntropy) Tag() string                   { return "CEX" }
func (CrossEntropy) String() string                { return "crossentropy" }

// Softmax normalises a column of scores into probabilities.
func Softmax(logits *matrix.Matrix[float32]) *matrix.Matrix[float32] {
	data := logits.Data()
	maxLogit := data[0]
	for _, v := range data {
		if v > maxLogit {
			maxLogit = v
		}
	}
	var expSum float32
	for i, v := range data {
		data[i] = math32.Exp(v - maxLogit)
		expSum += data[i]
	}
	for i := range data {
		data[i] /= expSum
	}
	out, _ := matrix.NewFromData(logits.Rows(), logits.Columns(), data)
	return out
}
