package utils

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArchitecture(t *testing.T) {
	arch, err := ParseArchitecture("128 64, 10")
	require.NoError(t, err)
	assert.Equal(t, []int{128, 64, 10}, arch)

	_, err = ParseArchitecture("128 x")
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	good := DefaultConfig()
	require.NoError(t, ValidateConfig(&good))

	cases := map[string]func(c *Config){
		"empty architecture": func(c *Config) { c.Architecture = nil },
		"zero nodes":         func(c *Config) { c.Architecture = []int{0, 10} },
		"learning rate":      func(c *Config) { c.LearningRate = 0 },
		"batch size":         func(c *Config) { c.BatchSize = 0 },
		"epochs":             func(c *Config) { c.Epochs = -1 },
		"format":             func(c *Config) { c.Format = "png" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := DefaultConfig()
			mutate(&c)
			assert.Error(t, ValidateConfig(&c))
		})
	}
}

func TestDataLoadError(t *testing.T) {
	cause := os.ErrNotExist
	err := NewDataLoadError("model.bin", "unrecognized layer tag", cause)

	assert.True(t, errors.Is(err, ErrDataLoad))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Equal(t, "could not load data from file named model.bin! unrecognized layer tag: file does not exist", err.Error())

	var dle *DataLoadError
	require.True(t, errors.As(error(err), &dle))
	assert.Equal(t, "model.bin", dle.Path)
}

func TestAppendRunRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "analysis.csv")
	rec := RunRecord{Name: "mnist", Activator: "relu", Cost: "MSE", Inputs: 784, Architecture: []int{128, 10}, Epochs: 2, BatchSize: 10, LearningRate: 0.01, Accuracy: 91.5}

	require.NoError(t, AppendRunRecord(path, rec))
	require.NoError(t, AppendRunRecord(path, rec))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, analysisHeaders, rows[0])
	assert.Equal(t, "128 10", rows[1][4])
	assert.Equal(t, "91.50000", rows[2][10])
}
