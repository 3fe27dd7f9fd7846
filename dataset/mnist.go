// Package dataset loads digit samples as column matrices ready for
// nn.Network: MNIST IDX files, MNIST CSV exports and single PPM/PGM images.
package dataset

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"digitnet/matrix"
	"digitnet/utils"
)

const (
	// Classes is the number of digit labels.
	Classes = 10

	imagesMagic = 2051
	labelsMagic = 2049

	maxIDXItems = 1 << 24
)

// Default file names inside an MNIST data directory.
const (
	TrainImagesFile = "train-images-idx3-ubyte"
	TrainLabelsFile = "train-labels-idx1-ubyte"
	TestImagesFile  = "t10k-images-idx3-ubyte"
	TestLabelsFile  = "t10k-labels-idx1-ubyte"
)

// MNIST holds training and test samples. Inputs are (rows*cols) x 1 with
// pixels scaled to [0, 1]; targets are one-hot Classes x 1 columns.
type MNIST struct {
	TrainInputs  []*matrix.Matrix[float32]
	TrainTargets []*matrix.Matrix[float32]
	TestInputs   []*matrix.Matrix[float32]
	TestTargets  []*matrix.Matrix[float32]
}

// LoadMNIST reads the four IDX files. Paths ending in .gz are decompressed
// on the fly.
func LoadMNIST(trainImages, trainLabels, testImages, testLabels string) (*MNIST, error) {
	var ds MNIST
	var err error
	if ds.TrainInputs, ds.TrainTargets, err = LoadPair(trainImages, trainLabels); err != nil {
		return nil, err
	}
	if ds.TestInputs, ds.TestTargets, err = LoadPair(testImages, testLabels); err != nil {
		return nil, err
	}
	return &ds, nil
}

// LoadMNISTDir loads the standard file names from dir, preferring the
// uncompressed files and falling back to their .gz form.
func LoadMNISTDir(dir string) (*MNIST, error) {
	resolve := func(name string) string {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err != nil {
			if _, gzErr := os.Stat(p + ".gz"); gzErr == nil {
				return p + ".gz"
			}
		}
		return p
	}
	return LoadMNIST(resolve(TrainImagesFile), resolve(TrainLabelsFile), resolve(TestImagesFile), resolve(TestLabelsFile))
}

// LoadPair reads one IDX image file and its label file.
func LoadPair(imagesPath, labelsPath string) (inputs, targets []*matrix.Matrix[float32], err error) {
	images, size, err := readIDXImages(imagesPath)
	if err != nil {
		return nil, nil, utils.NewDataLoadError(imagesPath, "", err)
	}
	labels, err := readIDXLabels(labelsPath)
	if err != nil {
		return nil, nil, utils.NewDataLoadError(labelsPath, "", err)
	}
	if len(images) != len(labels) {
		return nil, nil, utils.NewDataLoadError(labelsPath,
			fmt.Sprintf("%d labels for %d images in %s", len(labels), len(images), imagesPath), nil)
	}

	inputs = make([]*matrix.Matrix[float32], len(images))
	targets = make([]*matrix.Matrix[float32], len(labels))
	for i, img := range images {
		px := make([]float32, size)
		for j, b := range img {
			px[j] = float32(b) / 255
		}
		if inputs[i], err = matrix.NewFromData(size, 1, px); err != nil {
			return nil, nil, err
		}
		if targets[i], err = OneHot(int(labels[i]), Classes); err != nil {
			return nil, nil, utils.NewDataLoadError(labelsPath, fmt.Sprintf("label %d", i), err)
		}
	}
	return inputs, targets, nil
}

// OneHot returns a classes x 1 column with a single 1 at label.
func OneHot(label, classes int) (*matrix.Matrix[float32], error) {
	if label < 0 || label >= classes {
		return nil, fmt.Errorf("label %d outside [0, %d): %w", label, classes, matrix.ErrIndexOutOfRange)
	}
	data := make([]float32, classes)
	data[label] = 1
	return matrix.NewFromData(classes, 1, data)
}

// openIDX opens path, transparently decompressing .gz files.
func openIDX(path string) (io.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return bufio.NewReader(f), f.Close, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return zr, func() error {
		zr.Close()
		return f.Close()
	}, nil
}

// readIDXImages reads an IDX3 image file: big-endian magic 2051, count,
// rows, cols, then count*rows*cols unsigned bytes.
func readIDXImages(path string) ([][]byte, int, error) {
	r, closeFn, err := openIDX(path)
	if err != nil {
		return nil, 0, err
	}
	defer closeFn()

	var header struct{ Magic, Count, Rows, Cols uint32 }
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, 0, fmt.Errorf("failed to read header: %w", err)
	}
	if header.Magic != imagesMagic {
		return nil, 0, fmt.Errorf("invalid magic number: got %d, want %d", header.Magic, imagesMagic)
	}
	size := int(header.Rows) * int(header.Cols)
	if header.Count > maxIDXItems || size == 0 || size > 1<<16 {
		return nil, 0, fmt.Errorf("implausible dimensions %dx%dx%d", header.Count, header.Rows, header.Cols)
	}

	images := make([][]byte, header.Count)
	for i := range images {
		images[i] = make([]byte, size)
		if _, err := io.ReadFull(r, images[i]); err != nil {
			return nil, 0, fmt.Errorf("failed to read image %d: %w", i, err)
		}
	}
	return images, size, nil
}

// readIDXLabels reads an IDX1 label file: big-endian magic 2049, count,
// then count unsigned bytes.
func readIDXLabels(path string) ([]byte, error) {
	r, closeFn, err := openIDX(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var header struct{ Magic, Count uint32 }
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if header.Magic != labelsMagic {
		return nil, fmt.Errorf("invalid magic number: got %d, want %d", header.Magic, labelsMagic)
	}
	if header.Count > maxIDXItems {
		return nil, fmt.Errorf("implausible label count %d", header.Count)
	}

	labels := make([]byte, header.Count)
	if _, err := io.ReadFull(r, labels); err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	return labels, nil
}
