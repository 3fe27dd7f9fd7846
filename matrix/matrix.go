package matrix

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Element is the set of numeric kinds a Matrix can hold.
type Element interface {
	~int | ~int32 | ~int64 | ~float32 | ~float64
}

// Matrix is a dense rows×columns matrix backed by a flat row-major slice.
// Every Matrix owns its backing slice and its own random source; nothing is
// shared between instances, Clone included.
type Matrix[T Element] struct {
	rows    int
	columns int
	data    []T
	src     rand.Source
}

var seedCounter atomic.Uint64

// newSource returns a source seeded from the clock and a process-wide
// counter so that matrices created in the same instant still differ.
func newSource() rand.Source {
	return rand.NewSource(uint64(time.Now().UnixNano()) ^ seedCounter.Add(1)*0x9e3779b97f4a7c15)
}

// alloc returns a zero-filled matrix. Callers guarantee a valid shape.
func alloc[T Element](rows, columns int) *Matrix[T] {
	return &Matrix[T]{
		rows:    rows,
		columns: columns,
		data:    make([]T, rows*columns),
	}
}

// New allocates a rows×columns matrix with every element set to 1.
func New[T Element](rows, columns int) (*Matrix[T], error) {
	if rows <= 0 || columns <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrBadShape, rows, columns)
	}
	m := alloc[T](rows, columns)
	for i := range m.data {
		m.data[i] = 1
	}
	m.src = newSource()
	return m, nil
}

// NewFromData copies data (row-major) into a new rows×columns matrix.
func NewFromData[T Element](rows, columns int, data []T) (*Matrix[T], error) {
	if rows <= 0 || columns <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrBadShape, rows, columns)
	}
	if len(data) != rows*columns {
		return nil, fmt.Errorf("%w: %d values for a %dx%d matrix", ErrDimensionMismatch, len(data), rows, columns)
	}
	m := alloc[T](rows, columns)
	copy(m.data, data)
	m.src = newSource()
	return m, nil
}

// NewColumn copies data into a len(data)×1 column vector.
func NewColumn[T Element](data []T) (*Matrix[T], error) {
	return NewFromData(len(data), 1, data)
}

// MustNew is like New but panics on an invalid shape.
func MustNew[T Element](rows, columns int) *Matrix[T] {
	m, err := New[T](rows, columns)
	if err != nil {
		panic(err)
	}
	return m
}

// MustFromData is like NewFromData but panics on error. Intended for literals.
func MustFromData[T Element](rows, columns int, data []T) *Matrix[T] {
	m, err := NewFromData(rows, columns, data)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Matrix[T]) Rows() int    { return m.rows }
func (m *Matrix[T]) Columns() int { return m.columns }

// Len returns rows*columns.
func (m *Matrix[T]) Len() int { return len(m.data) }

// Data returns a copy of the backing slice in row-major order.
func (m *Matrix[T]) Data() []T {
	return append([]T(nil), m.data...)
}

// Clone returns a deep copy with a fresh random source.
func (m *Matrix[T]) Clone() *Matrix[T] {
	c := alloc[T](m.rows, m.columns)
	copy(c.data, m.data)
	return c
}

func (m *Matrix[T]) at(i, j int) int {
	return i*m.columns + j
}

func (m *Matrix[T]) inBounds(i, j int) bool {
	return i >= 0 && i < m.rows && j >= 0 && j < m.columns
}

// At returns the element at row i, column j.
func (m *Matrix[T]) At(i, j int) (T, error) {
	if !m.inBounds(i, j) {
		return 0, fmt.Errorf("%w: (%d,%d) in %dx%d", ErrIndexOutOfRange, i, j, m.rows, m.columns)
	}
	return m.data[m.at(i, j)], nil
}

// Set stores v at row i, column j.
func (m *Matrix[T]) Set(i, j int, v T) error {
	if !m.inBounds(i, j) {
		return fmt.Errorf("%w: (%d,%d) in %dx%d", ErrIndexOutOfRange, i, j, m.rows, m.columns)
	}
	m.data[m.at(i, j)] = v
	return nil
}

// Zero sets every element to 0.
func (m *Matrix[T]) Zero() {
	for i := range m.data {
		m.data[i] = 0
	}
}

// Seed replaces the matrix's random source with one seeded by seed.
func (m *Matrix[T]) Seed(seed uint64) {
	m.src = rand.NewSource(seed)
}

func (m *Matrix[T]) source() rand.Source {
	if m.src == nil {
		m.src = newSource()
	}
	return m.src
}

// isFloat reports whether T is a floating-point kind.
func isFloat[T Element]() bool {
	var half T = 1
	half /= 2
	return half != 0
}

// Randomize fills the matrix with values drawn uniformly from [min, max).
// Floating kinds use a continuous distribution, integer kinds a discrete one.
// If max <= min every element is set to min.
func (m *Matrix[T]) Randomize(min, max T) {
	if max <= min {
		for i := range m.data {
			m.data[i] = min
		}
		return
	}
	src := m.source()
	if isFloat[T]() {
		dist := distuv.Uniform{Min: float64(min), Max: float64(max), Src: src}
		for i := range m.data {
			v := T(dist.Rand())
			// float32 rounding can land exactly on max
			if v >= max {
				v = min
			}
			m.data[i] = v
		}
		return
	}
	// width in uint64 so that full int32 and int64 ranges do not wrap
	rng := rand.New(src)
	lo := uint64(int64(min))
	span := uint64(int64(max)) - lo
	for i := range m.data {
		m.data[i] = T(int64(lo + rng.Uint64n(span)))
	}
}

// Map returns a new matrix with f applied to every element. Results that are
// infinite or NaN are replaced with 0.
func (m *Matrix[T]) Map(f func(T) T) *Matrix[T] {
	out := alloc[T](m.rows, m.columns)
	for i, v := range m.data {
		r := f(v)
		if fr := float64(r); math.IsInf(fr, 0) || math.IsNaN(fr) {
			r = 0
		}
		out.data[i] = r
	}
	return out
}

// Sum returns the sum of all elements.
func (m *Matrix[T]) Sum() T {
	var s T
	for _, v := range m.data {
		s += v
	}
	return s
}

// ArgMax returns the row-major index of the first maximum element.
func (m *Matrix[T]) ArgMax() int {
	vals := make([]float64, len(m.data))
	for i, v := range m.data {
		vals[i] = float64(v)
	}
	return floats.MaxIdx(vals)
}

func (m *Matrix[T]) sameShape(o *Matrix[T], op string) error {
	if m.rows != o.rows || m.columns != o.columns {
		return fmt.Errorf("%w: %s of %dx%d and %dx%d", ErrDimensionMismatch, op, m.rows, m.columns, o.rows, o.columns)
	}
	return nil
}

// Hadamard returns the element-wise product m ⊙ o.
func (m *Matrix[T]) Hadamard(o *Matrix[T]) (*Matrix[T], error) {
	if err := m.sameShape(o, "hadamard"); err != nil {
		return nil, err
	}
	out := alloc[T](m.rows, m.columns)
	for i := range m.data {
		out.data[i] = m.data[i] * o.data[i]
	}
	return out, nil
}

// Add returns m + o.
func (m *Matrix[T]) Add(o *Matrix[T]) (*Matrix[T], error) {
	if err := m.sameShape(o, "add"); err != nil {
		return nil, err
	}
	out := alloc[T](m.rows, m.columns)
	for i := range m.data {
		out.data[i] = m.data[i] + o.data[i]
	}
	return out, nil
}

// Sub returns m - o.
func (m *Matrix[T]) Sub(o *Matrix[T]) (*Matrix[T], error) {
	if err := m.sameShape(o, "subtract"); err != nil {
		return nil, err
	}
	out := alloc[T](m.rows, m.columns)
	for i := range m.data {
		out.data[i] = m.data[i] - o.data[i]
	}
	return out, nil
}

// AddInPlace accumulates o into m.
func (m *Matrix[T]) AddInPlace(o *Matrix[T]) error {
	if err := m.sameShape(o, "add"); err != nil {
		return err
	}
	for i := range m.data {
		m.data[i] += o.data[i]
	}
	return nil
}

// SubInPlace subtracts o from m.
func (m *Matrix[T]) SubInPlace(o *Matrix[T]) error {
	if err := m.sameShape(o, "subtract"); err != nil {
		return err
	}
	for i := range m.data {
		m.data[i] -= o.data[i]
	}
	return nil
}

// Scale returns f·m.
func (m *Matrix[T]) Scale(f T) *Matrix[T] {
	out := alloc[T](m.rows, m.columns)
	for i, v := range m.data {
		out.data[i] = v * f
	}
	return out
}

// ScaleInPlace multiplies every element of m by f.
func (m *Matrix[T]) ScaleInPlace(f T) {
	for i := range m.data {
		m.data[i] *= f
	}
}

// Mul returns the matrix product m×o.
func (m *Matrix[T]) Mul(o *Matrix[T]) (*Matrix[T], error) {
	if m.columns != o.rows {
		return nil, fmt.Errorf("%w: multiply %dx%d by %dx%d", ErrDimensionMismatch, m.rows, m.columns, o.rows, o.columns)
	}
	out := alloc[T](m.rows, o.columns)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < o.columns; j++ {
			var s T
			for r := 0; r < m.columns; r++ {
				s += m.data[m.at(i, r)] * o.data[o.at(r, j)]
			}
			out.data[out.at(i, j)] = s
		}
	}
	return out, nil
}

// Transpose returns the columns×rows matrix t with t[i][j] = m[j][i].
func Transpose[T Element](m *Matrix[T]) *Matrix[T] {
	out := alloc[T](m.columns, m.rows)
	for i := 0; i < m.columns; i++ {
		for j := 0; j < m.rows; j++ {
			out.data[out.at(i, j)] = m.data[m.at(j, i)]
		}
	}
	return out
}

// String renders one bracketed, tab-separated line per row.
func (m *Matrix[T]) String() string {
	var b strings.Builder
	for i := 0; i < m.rows; i++ {
		b.WriteByte('[')
		for j := 0; j < m.columns; j++ {
			fmt.Fprint(&b, m.data[m.at(i, j)])
			if j+1 < m.columns {
				b.WriteByte('\t')
			}
		}
		b.WriteByte(']')
		if i+1 < m.rows {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
