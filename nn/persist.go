package nn

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"digitnet/matrix"
	"digitnet/nn/layers"
	"digitnet/utils"
)

const (
	weightsVersion = "1.0"
	maxLayers      = 1 << 16
)

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// WriteTo encodes the network in the binary model format:
//
//	learningRate float32, inputNodes uint32, outputNodes uint32,
//	cost tag, layerCount uint32, then every layer in feed order.
func (n *Network) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	header := struct {
		LearningRate float32
		InputNodes   uint32
		OutputNodes  uint32
	}{n.learningRate, uint32(n.inputNodes), uint32(n.outputNodes)}
	if err := binary.Write(cw, layers.ByteOrder, header); err != nil {
		return cw.n, err
	}
	if err := n.cost.Serialize(cw); err != nil {
		return cw.n, err
	}
	if err := binary.Write(cw, layers.ByteOrder, uint32(len(n.layers))); err != nil {
		return cw.n, err
	}
	for i, l := range n.layers {
		if err := l.Serialize(cw); err != nil {
			return cw.n, fmt.Errorf("layer %d: %w", i, err)
		}
	}
	return cw.n, nil
}

// Save writes the network to path, replacing any existing file.
func (n *Network) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if _, err := n.WriteTo(bw); err != nil {
		f.Close()
		return fmt.Errorf("saving %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return f.Close()
}

// ReadNetwork decodes a network written by WriteTo. opts apply to the
// returned network as they would for NewNetwork.
func ReadNetwork(r io.Reader, opts ...Option) (*Network, error) {
	var header struct {
		LearningRate float32
		InputNodes   uint32
		OutputNodes  uint32
	}
	if err := binary.Read(r, layers.ByteOrder, &header); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	cost, err := readCost(r)
	if err != nil {
		return nil, err
	}
	var count uint32
	if err := binary.Read(r, layers.ByteOrder, &count); err != nil {
		return nil, fmt.Errorf("reading layer count: %w", err)
	}
	if count > maxLayers {
		return nil, fmt.Errorf("implausible layer count %d", count)
	}

	net, err := NewNetwork(int(header.InputNodes), header.LearningRate, cost, opts...)
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(count); i++ {
		l, err := layers.ReadLayer(r)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		if err := net.chain(l); err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
	}
	if net.outputNodes != int(header.OutputNodes) {
		return nil, fmt.Errorf("header declares %d outputs, layers produce %d: %w",
			header.OutputNodes, net.outputNodes, matrix.ErrDimensionMismatch)
	}
	return net, nil
}

// chain appends l after checking it consumes the current output width.
func (n *Network) chain(l layers.Layer) error {
	if l.PrevNodes() != n.outputNodes {
		return fmt.Errorf("%d-input layer after %d outputs: %w", l.PrevNodes(), n.outputNodes, matrix.ErrDimensionMismatch)
	}
	n.appendLayer(l)
	return nil
}

// Load reads a model file written by Save. Every failure is a
// *utils.DataLoadError.
func Load(path string, opts ...Option) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, utils.NewDataLoadError(path, "", err)
	}
	defer f.Close()

	net, err := ReadNetwork(bufio.NewReader(f), opts...)
	if err != nil {
		return nil, utils.NewDataLoadError(path, "", err)
	}
	return net, nil
}

// ExportWeights converts the network into its JSON-friendly form.
func (n *Network) ExportWeights() *utils.ModelWeights {
	mw := &utils.ModelWeights{
		Version:      weightsVersion,
		InputNodes:   n.inputNodes,
		LearningRate: n.learningRate,
		Cost:         n.cost.Tag(),
		Layers:       make([]utils.LayerWeight, len(n.layers)),
	}
	for i, l := range n.layers {
		mw.Layers[i] = utils.LayerWeight{
			Activation: l.Tag(),
			Weight:     utils.MatrixToWeightData(fmt.Sprintf("layer%d.weight", i), l.Weights()),
			Bias:       utils.MatrixToWeightData(fmt.Sprintf("layer%d.bias", i), l.Bias()),
		}
	}
	return mw
}

// FromWeights rebuilds a network from ExportWeights output.
func FromWeights(mw *utils.ModelWeights, opts ...Option) (*Network, error) {
	cost, err := CostByTag(mw.Cost)
	if err != nil {
		return nil, err
	}
	net, err := NewNetwork(mw.InputNodes, mw.LearningRate, cost, opts...)
	if err != nil {
		return nil, err
	}
	for i, lw := range mw.Layers {
		act, ok := layers.ActivatorLookup[lw.Activation]
		if !ok {
			return nil, fmt.Errorf("layer %d: %w: %q", i, layers.ErrUnknownTag, lw.Activation)
		}
		w, err := utils.WeightDataToMatrix(lw.Weight)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		b, err := utils.WeightDataToMatrix(lw.Bias)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		l, err := layers.NewDense(act, w.Rows(), w.Columns(), 1)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		if err := l.SetParameters(w, b); err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		if err := net.chain(l); err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
	}
	return net, nil
}
