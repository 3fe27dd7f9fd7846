package utils

import (
	"errors"
	"fmt"
)

// ErrDataLoad matches every *DataLoadError via errors.Is.
var ErrDataLoad = errors.New("data load failure")

// DataLoadError reports a model, dataset or image file that is missing,
// unreadable or structurally invalid.
type DataLoadError struct {
	Path   string
	Reason string
	Err    error
}

// NewDataLoadError builds a DataLoadError for path with an optional reason.
func NewDataLoadError(path, reason string, err error) *DataLoadError {
	return &DataLoadError{Path: path, Reason: reason, Err: err}
}

func (e *DataLoadError) Error() string {
	msg := fmt.Sprintf("could not load data from file named %s!", e.Path)
	if e.Reason != "" {
		msg += " " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DataLoadError) Unwrap() error { return e.Err }

func (e *DataLoadError) Is(target error) bool { return target == ErrDataLoad }
