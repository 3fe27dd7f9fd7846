package nn

import (
	"bytes"
	"log"
	"sort"
	"testing"

	"digitnet/matrix"
	"digitnet/nn/layers"
	"digitnet/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// orDataset is the logical OR of two inputs.
func orDataset() (inputs, targets []*matrix.Matrix[float32]) {
	for _, s := range [][3]float32{{0, 0, 0}, {0, 1, 1}, {1, 0, 1}, {1, 1, 1}} {
		inputs = append(inputs, col(s[0], s[1]))
		targets = append(targets, col(s[2]))
	}
	return inputs, targets
}

func toyNetwork(t *testing.T, opts ...Option) *Network {
	t.Helper()
	net, err := NewNetwork(2, 0.1, MeanSquaredError{}, append([]Option{WithSeed(42)}, opts...)...)
	require.NoError(t, err)
	require.NoError(t, net.AddLayer(layers.ReLU{}, 3))
	require.NoError(t, net.AddLayer(layers.Sigmoid{}, 1))
	return net
}

func TestAddLayerShapes(t *testing.T) {
	net, err := NewNetwork(4, 0.1, MeanSquaredError{})
	require.NoError(t, err)
	assert.Equal(t, 4, net.OutputNodes())

	require.NoError(t, net.AddLayer(layers.ReLU{}, 5))
	require.NoError(t, net.AddLayer(layers.Sigmoid{}, 2))
	assert.Equal(t, 2, net.OutputNodes())

	ls := net.Layers()
	require.Len(t, ls, 2)
	assert.Equal(t, 4, ls[0].PrevNodes())
	assert.Equal(t, 5, ls[1].PrevNodes())
	assert.Equal(t, 2, ls[1].Nodes())

	assert.Error(t, net.AddLayer(layers.ReLU{}, 0))
}

func TestNewNetworkErrors(t *testing.T) {
	_, err := NewNetwork(0, 0.1, MeanSquaredError{})
	assert.ErrorIs(t, err, matrix.ErrBadShape)
	_, err = NewNetwork(3, 0.1, nil)
	assert.ErrorIs(t, err, ErrUnknownCost)
}

func TestFeedforwardValidation(t *testing.T) {
	empty, err := NewNetwork(2, 0.1, MeanSquaredError{})
	require.NoError(t, err)
	_, err = empty.Feedforward(col(1, 2))
	assert.ErrorIs(t, err, ErrNoLayers)

	net := toyNetwork(t)
	_, err = net.Feedforward(col(1, 2, 3))
	assert.ErrorIs(t, err, matrix.ErrDimensionMismatch)
	_, err = net.Feedforward(matrix.MustNew[float32](2, 2))
	assert.ErrorIs(t, err, matrix.ErrDimensionMismatch)

	out, err := net.Feedforward(col(1, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, out.Rows())
	assert.Equal(t, 1, out.Columns())
	v, _ := out.At(0, 0)
	assert.True(t, v > 0 && v < 1)
}

func TestPermutation(t *testing.T) {
	net := toyNetwork(t)
	for _, size := range []int{0, 1, 7, 50} {
		perm := net.permutation(size)
		require.Len(t, perm, size)
		sorted := append([]int(nil), perm...)
		sort.Ints(sorted)
		for i, v := range sorted {
			assert.Equal(t, i, v)
		}
	}
}

func TestCreateBatches(t *testing.T) {
	perm := []int{9, 8, 7, 6, 5, 4, 3, 2, 1, 0}
	batches := createBatches(perm, 4)
	require.Len(t, batches, 3)
	assert.Equal(t, []int{9, 8, 7, 6}, batches[0])
	assert.Equal(t, []int{1, 0}, batches[2])

	assert.Len(t, createBatches(perm, 10), 1)
	assert.Len(t, createBatches(perm, 100), 1)
	assert.Empty(t, createBatches(nil, 3))
}

func TestTrainLowersCost(t *testing.T) {
	inputs, targets := orDataset()
	net := toyNetwork(t)

	before, err := net.AverageCost(inputs, targets)
	require.NoError(t, err)
	require.NoError(t, net.Train(100, 1, inputs, targets))
	after, err := net.AverageCost(inputs, targets)
	require.NoError(t, err)

	assert.Less(t, after, before)
}

func TestTrainIsDeterministicForSeed(t *testing.T) {
	inputs, targets := orDataset()
	a, b := toyNetwork(t), toyNetwork(t)
	require.NoError(t, a.Train(5, 2, inputs, targets))
	require.NoError(t, b.Train(5, 2, inputs, targets))
	for i := range a.layers {
		assert.Equal(t, a.layers[i].Weights().Data(), b.layers[i].Weights().Data())
	}
}

func TestTrainValidation(t *testing.T) {
	inputs, targets := orDataset()
	net := toyNetwork(t)

	assert.ErrorIs(t, net.Train(1, 1, inputs, targets[:3]), matrix.ErrDimensionMismatch)
	assert.Error(t, net.Train(1, 0, inputs, targets))
	assert.Error(t, net.Train(-1, 1, inputs, targets))
	assert.ErrorIs(t, net.Train(1, 1, []*matrix.Matrix[float32]{col(1)}, []*matrix.Matrix[float32]{col(1)}),
		matrix.ErrDimensionMismatch)

	empty, err := NewNetwork(2, 0.1, MeanSquaredError{})
	require.NoError(t, err)
	assert.ErrorIs(t, empty.Train(1, 1, inputs, targets), ErrNoLayers)

	assert.NoError(t, net.Train(0, 1, inputs, targets))
}

func TestFailedTrainDiscardsGradients(t *testing.T) {
	sigmoidNet := func() *Network {
		net, err := NewNetwork(2, 0.5, MeanSquaredError{}, WithSeed(1))
		require.NoError(t, err)
		require.NoError(t, net.AddLayer(layers.Sigmoid{}, 1))
		return net
	}
	inputs, targets := orDataset()
	bad := append([]*matrix.Matrix[float32](nil), targets...)
	bad[3] = col(1, 0)

	failed, clean := sigmoidNet(), sigmoidNet()
	require.Error(t, failed.Train(1, 4, inputs, bad))
	for _, l := range failed.Layers() {
		before := l.Weights().Data()
		require.NoError(t, l.Step(1))
		assert.Equal(t, before, l.Weights().Data())
	}

	// keep both shuffles in step
	clean.permutation(len(inputs))
	require.NoError(t, failed.Train(1, 4, inputs, targets))
	require.NoError(t, clean.Train(1, 4, inputs, targets))
	assert.Equal(t, clean.Layers()[0].Weights().Data(), failed.Layers()[0].Weights().Data())
	assert.Equal(t, clean.Layers()[0].Bias().Data(), failed.Layers()[0].Bias().Data())
}

func TestTrainLogsAndTimes(t *testing.T) {
	var buf bytes.Buffer
	stats := &utils.TimingStats{}
	inputs, targets := orDataset()
	net := toyNetwork(t, WithLogger(log.New(&buf, "", 0)), WithTimingStats(stats))

	require.NoError(t, net.Train(2, 3, inputs, targets))
	assert.Contains(t, buf.String(), "Epoch 1 out of 2")
	assert.Contains(t, buf.String(), "Epoch 2 out of 2")
	assert.Equal(t, 8, stats.Samples)
	assert.Greater(t, stats.TotalTime, stats.ForwardPassTime)
}

func TestTestPercentage(t *testing.T) {
	net, err := NewNetwork(2, 0.1, MeanSquaredError{}, WithSeed(3))
	require.NoError(t, err)
	require.NoError(t, net.AddLayer(layers.Sigmoid{}, 2))
	require.NoError(t, net.layers[0].SetParameters(
		matrix.MustFromData[float32](2, 2, []float32{1, 0, 0, 1}), col(0, 0)))

	inputs := []*matrix.Matrix[float32]{col(1, 0), col(0, 1), col(1, 0), col(0.2, 0.9)}
	targets := []*matrix.Matrix[float32]{col(1, 0), col(0, 1), col(0, 1), col(0, 1)}

	pct, err := net.Test(inputs, targets)
	require.NoError(t, err)
	assert.InDelta(t, 75.0, pct, 1e-9)

	pct, err = net.Test(nil, nil)
	require.NoError(t, err)
	assert.Zero(t, pct)

	_, err = net.Test(inputs, targets[:1])
	assert.ErrorIs(t, err, matrix.ErrDimensionMismatch)

	label, out, err := net.Predict(col(0.1, 0.8))
	require.NoError(t, err)
	assert.Equal(t, 1, label)
	assert.Equal(t, 2, out.Rows())
}

func TestAverageCostEmpty(t *testing.T) {
	net := toyNetwork(t)
	_, err := net.AverageCost(nil, nil)
	assert.ErrorIs(t, err, ErrEmptyDataset)
}
