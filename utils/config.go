package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// Config holds training configuration
type Config struct {
	Name             string
	Architecture     []int // hidden layer sizes followed by the output size
	Activation       string
	OutputActivation string
	Cost             string
	LearningRate     float64
	Epochs           int
	BatchSize        int
	Seed             uint64
	DataRoot         string
	Format           string // "idx" or "csv"
}

// DefaultConfig mirrors the classic 784-128-10 digit classifier.
func DefaultConfig() Config {
	return Config{
		Name:             "mnist",
		Architecture:     []int{128, 10},
		Activation:       "relu",
		OutputActivation: "sigmoid",
		Cost:             "mse",
		LearningRate:     0.01,
		Epochs:           5,
		BatchSize:        10,
		DataRoot:         "data",
		Format:           "idx",
	}
}

// ParseArchitecture parses architecture string into slice of integers
func ParseArchitecture(archStr string) ([]int, error) {
	archParts := strings.Fields(strings.ReplaceAll(archStr, ",", " "))
	arch := make([]int, len(archParts))
	for i, s := range archParts {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, err
		}
		arch[i] = n
	}
	return arch, nil
}

// ValidateConfig validates training configuration
func ValidateConfig(config *Config) error {
	if len(config.Architecture) < 1 {
		return fmt.Errorf("architecture must have at least 1 layer (the output)")
	}
	for i, n := range config.Architecture {
		if n <= 0 {
			return fmt.Errorf("layer %d must have a positive node count, got %d", i, n)
		}
	}

	if config.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive")
	}

	if config.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}

	if config.Epochs <= 0 {
		return fmt.Errorf("epochs must be positive")
	}

	if config.Format != "idx" && config.Format != "csv" {
		return fmt.Errorf("format must be 'idx' or 'csv'")
	}

	return nil
}
