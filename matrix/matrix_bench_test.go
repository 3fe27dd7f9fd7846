package matrix

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func BenchmarkMulLayerShape(b *testing.B) {
	w, x := randomWeightsAndInput(128, 784)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := w.Mul(x); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkGonumMulLayerShape(b *testing.B) {
	w, x := randomWeightsAndInput(128, 784)
	dw, dx := ToDense(w), ToDense(x)
	var out mat.Dense
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		out.Reset()
		out.Mul(dw, dx)
	}
}

func randomWeightsAndInput(rows, cols int) (*Matrix[float32], *Matrix[float32]) {
	w := MustNew[float32](rows, cols)
	w.Seed(1)
	w.Randomize(-1, 1)
	x := MustNew[float32](cols, 1)
	x.Seed(2)
	x.Randomize(0, 1)
	return w, x
}
