package utils

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// RunRecord is one row of the training analysis log.
type RunRecord struct {
	Name           string
	Activator      string
	Cost           string
	Inputs         int
	Architecture   []int
	Epochs         int
	BatchSize      int
	LearningRate   float64
	EndTime        int64
	SecondsToTrain int64
	Accuracy       float64
}

var analysisHeaders = []string{
	"Name", "Activator", "Cost", "Inputs", "Architecture", "Epochs", "Batch", "LR", "End Time", "SecondsToTrain", "Accuracy",
}

// AppendRunRecord appends rec to the CSV file at path, writing headers first
// when the file does not exist yet.
func AppendRunRecord(path string, rec RunRecord) error {
	var needsHeaders bool
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return err
		}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeaders = true
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if needsHeaders {
		if err := w.Write(analysisHeaders); err != nil {
			return fmt.Errorf("writing csv headers: %w", err)
		}
	}

	arch := make([]string, len(rec.Architecture))
	for i, n := range rec.Architecture {
		arch[i] = strconv.Itoa(n)
	}
	record := []string{
		rec.Name,
		rec.Activator,
		rec.Cost,
		strconv.Itoa(rec.Inputs),
		strings.Join(arch, " "),
		strconv.Itoa(rec.Epochs),
		strconv.Itoa(rec.BatchSize),
		strconv.FormatFloat(rec.LearningRate, 'f', 4, 64),
		strconv.FormatInt(rec.EndTime, 10),
		strconv.FormatInt(rec.SecondsToTrain, 10),
		strconv.FormatFloat(rec.Accuracy, 'f', 5, 64),
	}
	if err := w.Write(record); err != nil {
		return fmt.Errorf("writing csv record: %w", err)
	}
	w.Flush()
	return w.Error()
}
