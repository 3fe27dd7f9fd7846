package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"digitnet/matrix"
	"digitnet/utils"
)

// ErrInvalidLine reports a CSV record with the wrong number of fields.
type ErrInvalidLine struct {
	Line     int
	Got      int
	Expected int
}

func (e ErrInvalidLine) Error() string {
	return fmt.Sprintf("at line %d, expected %d values, got %d", e.Line, e.Expected, e.Got)
}

// LoadCSV reads "label,p1,...,pN" records, the layout of the common MNIST
// CSV exports. A non-numeric first line is treated as a header.
func LoadCSV(path string, inputs, classes int) ([]*matrix.Matrix[float32], []*matrix.Matrix[float32], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, utils.NewDataLoadError(path, "", err)
	}
	defer f.Close()

	xs, ys, err := ReadCSV(bufio.NewReader(f), inputs, classes)
	if err != nil {
		return nil, nil, utils.NewDataLoadError(path, "", err)
	}
	return xs, ys, nil
}

// ReadCSV is LoadCSV over an arbitrary reader.
func ReadCSV(r io.Reader, inputs, classes int) ([]*matrix.Matrix[float32], []*matrix.Matrix[float32], error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	var xs, ys []*matrix.Matrix[float32]
	for lineNum := 1; ; lineNum++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if len(record) != inputs+1 {
			return nil, nil, ErrInvalidLine{Line: lineNum, Got: len(record), Expected: inputs + 1}
		}

		label, err := strconv.Atoi(record[0])
		if err != nil {
			if lineNum == 1 {
				continue
			}
			return nil, nil, fmt.Errorf("parsing label at line %d: %w", lineNum, err)
		}
		target, err := OneHot(label, classes)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		px := make([]float32, inputs)
		for i := range px {
			v, err := strconv.ParseFloat(record[i+1], 32)
			if err != nil {
				return nil, nil, fmt.Errorf("parsing input at line %d: %w", lineNum, err)
			}
			px[i] = float32(v) / 255
		}
		x, err := matrix.NewFromData(inputs, 1, px)
		if err != nil {
			return nil, nil, err
		}
		xs = append(xs, x)
		ys = append(ys, target)
	}
	return xs, ys, nil
}

// LoadMNISTCSV loads mnist_train.csv and mnist_test.csv from dir.
func LoadMNISTCSV(dir string) (*MNIST, error) {
	const inputs = 28 * 28
	var ds MNIST
	var err error
	if ds.TrainInputs, ds.TrainTargets, err = LoadCSV(filepath.Join(dir, "mnist_train.csv"), inputs, Classes); err != nil {
		return nil, err
	}
	if ds.TestInputs, ds.TestTargets, err = LoadCSV(filepath.Join(dir, "mnist_test.csv"), inputs, Classes); err != nil {
		return nil, err
	}
	return &ds, nil
}
