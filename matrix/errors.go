package matrix

import "errors"

// Sentinel errors returned by matrix operations. Callers wrap them with
// fmt.Errorf("...: %w", err) and match with errors.Is.
var (
	// ErrDimensionMismatch is returned when operand shapes are incompatible,
	// e.g. Add on different shapes or Mul where a.Columns() != b.Rows().
	ErrDimensionMismatch = errors.New("matrix: dimension mismatch")

	// ErrIndexOutOfRange is returned by At/Set for a row or column outside the matrix.
	ErrIndexOutOfRange = errors.New("matrix: index out of range")

	// ErrBadShape is returned when a requested shape has a non-positive dimension.
	ErrBadShape = errors.New("matrix: invalid shape")
)
