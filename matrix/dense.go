package matrix

import "gonum.org/v1/gonum/mat"

// ToDense converts m into a gonum dense matrix.
func ToDense[T Element](m *Matrix[T]) *mat.Dense {
	vals := make([]float64, len(m.data))
	for i, v := range m.data {
		vals[i] = float64(v)
	}
	return mat.NewDense(m.rows, m.columns, vals)
}

// FromDense copies any gonum matrix into a Matrix, converting each element to T.
func FromDense[T Element](a mat.Matrix) (*Matrix[T], error) {
	r, c := a.Dims()
	if r <= 0 || c <= 0 {
		return nil, ErrBadShape
	}
	out := alloc[T](r, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.data[out.at(i, j)] = T(a.At(i, j))
		}
	}
	return out, nil
}
