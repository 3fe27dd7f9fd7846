package utils

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"digitnet/matrix"
)

func TestMatrixToWeightData(t *testing.T) {
	m := matrix.MustFromData(2, 3, []float32{0, 0.5, 1, 1.5, 2, 2.5})

	wd := MatrixToWeightData("test_weight", m)

	if wd.Name != "test_weight" {
		t.Errorf("Name = %s, want test_weight", wd.Name)
	}
	if len(wd.Shape) != 2 || wd.Shape[0] != 2 || wd.Shape[1] != 3 {
		t.Errorf("Shape = %v, want [2, 3]", wd.Shape)
	}
	for i, v := range wd.Data {
		expected := float32(i) * 0.5
		if v != expected {
			t.Errorf("Data[%d] = %f, want %f", i, v, expected)
		}
	}
}

func TestWeightDataToMatrix(t *testing.T) {
	wd := &WeightData{
		Name:  "test",
		Shape: []int{3, 4},
		Data:  make([]float32, 12),
	}
	for i := range wd.Data {
		wd.Data[i] = float32(i)
	}

	m, err := WeightDataToMatrix(wd)
	if err != nil {
		t.Fatalf("WeightDataToMatrix failed: %v", err)
	}
	if m.Rows() != 3 || m.Columns() != 4 {
		t.Errorf("shape = %dx%d, want 3x4", m.Rows(), m.Columns())
	}
	for i, v := range m.Data() {
		if v != float32(i) {
			t.Errorf("Data[%d] = %f, want %f", i, v, float32(i))
		}
	}

	wd.Shape = []int{5, 5}
	if _, err := WeightDataToMatrix(wd); !errors.Is(err, matrix.ErrDimensionMismatch) {
		t.Errorf("expected dimension mismatch, got %v", err)
	}
}

func TestSaveLoadWeights(t *testing.T) {
	weightsFile := filepath.Join(t.TempDir(), "test_weights.json")

	weights := &ModelWeights{
		Version:      "1.0",
		InputNodes:   4,
		LearningRate: 0.1,
		Cost:         "MSE",
		Layers: []LayerWeight{
			{
				Activation: "REL",
				Weight:     &WeightData{Name: "weight", Shape: []int{3, 4}, Data: make([]float32, 12)},
				Bias:       &WeightData{Name: "bias", Shape: []int{3, 1}, Data: make([]float32, 3)},
			},
		},
	}
	for i := range weights.Layers[0].Weight.Data {
		weights.Layers[0].Weight.Data[i] = float32(i) * 0.25
	}

	if err := SaveWeights(weightsFile, weights); err != nil {
		t.Fatalf("SaveWeights failed: %v", err)
	}

	loaded, err := LoadWeights(weightsFile)
	if err != nil {
		t.Fatalf("LoadWeights failed: %v", err)
	}

	if loaded.Version != "1.0" || loaded.InputNodes != 4 || loaded.Cost != "MSE" {
		t.Errorf("header mismatch: %+v", loaded)
	}
	if len(loaded.Layers) != 1 {
		t.Fatalf("Layers count = %d, want 1", len(loaded.Layers))
	}
	if loaded.Layers[0].Weight.Data[1] != 0.25 {
		t.Errorf("Weight.Data[1] = %f, want 0.25", loaded.Layers[0].Weight.Data[1])
	}
}

func TestLoadWeightsNotFound(t *testing.T) {
	_, err := LoadWeights("/nonexistent/path/weights.json")
	if !errors.Is(err, ErrDataLoad) {
		t.Errorf("expected ErrDataLoad, got %v", err)
	}
}

func TestLoadWeightsInvalidJSON(t *testing.T) {
	badFile := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(badFile, []byte("not valid json"), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	_, err := LoadWeights(badFile)
	if !errors.Is(err, ErrDataLoad) {
		t.Errorf("expected ErrDataLoad for invalid JSON, got %v", err)
	}
}
