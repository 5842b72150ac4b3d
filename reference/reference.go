// Package reference provides trusted implementations of every tilegrid
// kernel, backed by gonum. Tests and the verify command compare kernel
// output against these.
package reference

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/mat"
)

// MatMul computes C = A×B for row-major float32 matrices through
// gonum's float32 BLAS.
func MatMul(c, a, b []float32, m, n, k int) {
	ga := blas32.General{Rows: m, Cols: k, Stride: k, Data: a[:m*k]}
	gb := blas32.General{Rows: k, Cols: n, Stride: n, Data: b[:k*n]}
	gc := blas32.General{Rows: m, Cols: n, Stride: n, Data: c[:m*n]}
	blas32.Gemm(blas.NoTrans, blas.NoTrans, 1, ga, gb, 0, gc)
}

// MatMul64 computes C = A×B for row-major float64 matrices through
// gonum's mat package.
func MatMul64(c, a, b []float64, m, n, k int) {
	ma := mat.NewDense(m, k, a[:m*k])
	mb := mat.NewDense(k, n, b[:k*n])
	mc := mat.NewDense(m, n, c[:m*n])
	mc.Mul(ma, mb)
}

// Map fills dst with fn applied elementwise to src, evaluating through
// float64 so the result is reference grade regardless of the kernel's
// accuracy mode.
func Map(dst, src []float32, fn func(float64) float64) {
	for i, v := range src {
		dst[i] = float32(fn(float64(v)))
	}
}

// Map2 is the binary form of Map.
func Map2(dst, a, b []float32, fn func(x, y float64) float64) {
	for i := range dst {
		dst[i] = float32(fn(float64(a[i]), float64(b[i])))
	}
}
