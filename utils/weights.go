package utils

import (
	"encoding/json"
	"fmt"
	"os"

	"digitnet/matrix"
)

// WeightData represents serializable weight data for a layer
type WeightData struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

// ModelWeights is a human-readable export of a whole network.
type ModelWeights struct {
	Version      string        `json:"version"`
	InputNodes   int           `json:"input_nodes"`
	LearningRate float32       `json:"learning_rate"`
	Cost         string        `json:"cost"`
	Layers       []LayerWeight `json:"layers"`
}

// LayerWeight contains weights and bias for a layer
type LayerWeight struct {
	Activation string      `json:"activation"`
	Weight     *WeightData `json:"weight"`
	Bias       *WeightData `json:"bias"`
}

// SaveWeights saves model weights to a JSON file
func SaveWeights(filepath string, weights *ModelWeights) error {
	data, err := json.MarshalIndent(weights, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}
	return os.WriteFile(filepath, data, 0644)
}

// LoadWeights loads model weights from a JSON file
func LoadWeights(filepath string) (*ModelWeights, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, NewDataLoadError(filepath, "", err)
	}
	var weights ModelWeights
	if err := json.Unmarshal(data, &weights); err != nil {
		return nil, NewDataLoadError(filepath, "invalid weights JSON", err)
	}
	return &weights, nil
}

// MatrixToWeightData converts a matrix to serializable weight data
func MatrixToWeightData(name string, m *matrix.Matrix[float32]) *WeightData {
	return &WeightData{
		Name:  name,
		Shape: []int{m.Rows(), m.Columns()},
		Data:  m.Data(),
	}
}

// WeightDataToMatrix converts weight data back to a matrix
func WeightDataToMatrix(wd *WeightData) (*matrix.Matrix[float32], error) {
	if wd == nil {
		return nil, fmt.Errorf("missing weight data")
	}
	if len(wd.Shape) != 2 {
		return nil, fmt.Errorf("%s: expected a 2-D shape, got %v", wd.Name, wd.Shape)
	}
	return matrix.NewFromData(wd.Shape[0], wd.Shape[1], wd.Data)
}
