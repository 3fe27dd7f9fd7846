package layers

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ByteOrder is the byte order of every multi-byte field in a model file.
var ByteOrder binary.ByteOrder = binary.NativeEndian

// ErrUnknownTag is returned when a type tag names no known variant.
var ErrUnknownTag = errors.New("unrecognized type tag")

const (
	maxTagLen      = 64
	maxLayerValues = 1 << 26
)

// WriteTag writes a 4-byte length followed by the tag bytes.
func WriteTag(w io.Writer, tag string) error {
	if err := binary.Write(w, ByteOrder, uint32(len(tag))); err != nil {
		return err
	}
	_, err := io.WriteString(w, tag)
	return err
}

// ReadTag reads a tag written by WriteTag.
func ReadTag(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, ByteOrder, &n); err != nil {
		return "", fmt.Errorf("reading tag length: %w", err)
	}
	if n == 0 || n > maxTagLen {
		return "", fmt.Errorf("%w: tag length %d", ErrUnknownTag, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("reading tag: %w", err)
	}
	return string(buf), nil
}

// Serialize writes the layer's tag, weight shape, weights and bias.
func (l *Dense) Serialize(w io.Writer) error {
	if err := WriteTag(w, l.act.Tag()); err != nil {
		return err
	}
	header := []uint32{uint32(l.weights.Rows()), uint32(l.weights.Columns())}
	if err := binary.Write(w, ByteOrder, header); err != nil {
		return err
	}
	if err := binary.Write(w, ByteOrder, l.weights.Data()); err != nil {
		return err
	}
	return binary.Write(w, ByteOrder, l.bias.Data())
}

// ReadLayer decodes one layer written by Serialize.
func ReadLayer(r io.Reader) (*Dense, error) {
	tag, err := ReadTag(r)
	if err != nil {
		return nil, err
	}
	act, ok := ActivatorLookup[tag]
	if !ok {
		return nil, fmt.Errorf("%w: layer %q", ErrUnknownTag, tag)
	}

	var header [2]uint32
	if err := binary.Read(r, ByteOrder, &header); err != nil {
		return nil, fmt.Errorf("reading %s layer shape: %w", tag, err)
	}
	if header[0] == 0 || header[1] == 0 || uint64(header[0])*uint64(header[1]) > maxLayerValues {
		return nil, fmt.Errorf("implausible %s layer shape %dx%d", tag, header[0], header[1])
	}
	rows, cols := int(header[0]), int(header[1])

	weights := make([]float32, rows*cols)
	if err := binary.Read(r, ByteOrder, weights); err != nil {
		return nil, fmt.Errorf("reading %s layer weights: %w", tag, err)
	}
	bias := make([]float32, rows)
	if err := binary.Read(r, ByteOrder, bias); err != nil {
		return nil, fmt.Errorf("reading %s layer bias: %w", tag, err)
	}

	return newDenseFrom(act, rows, cols, weights, bias)
}
