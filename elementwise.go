// Elementwise kernels: blocked 1-D maps with tail masking.
package tilegrid

import (
	"fmt"

	"github.com/LaneMorgan/tilegrid/dmath"
)

// Map applies fn elementwise over n float32 values: dst[i] = fn(src[i]).
// The array is partitioned into DefaultBlockSize blocks, one grid unit
// per block; lanes past n are masked off, so n need not be a multiple
// of the block size. Blocks until the result is complete.
func Map(fn dmath.Func32, dst, src DevicePtr, n int) error {
	return defaultContext.Map(fn, dst, src, n)
}

// Map2 applies a binary op elementwise: dst[i] = fn(a[i], b[i]).
func Map2(fn func(a, b float32) float32, dst, a, b DevicePtr, n int) error {
	return defaultContext.Map2(fn, dst, a, b, n)
}

// Map64 is Map over float64 data.
func Map64(fn dmath.Func64, dst, src DevicePtr, n int) error {
	return defaultContext.Map64(fn, dst, src, n)
}

// Map applies fn elementwise on the context's default stream.
func (ctx *Context) Map(fn dmath.Func32, dst, src DevicePtr, n int) error {
	const op = "Map"
	if fn == nil {
		return NewInvalidArgError(op, "nil function")
	}
	if err := checkLen(op, n, 4, dst, src); err != nil {
		return err
	}
	d := dst.Float32()[:n]
	s := src.Float32()[:n]

	kernel := KernelFunc(func(tid ThreadID, _ ...interface{}) {
		if i := tid.Global(); i < n {
			d[i] = fn(s[i])
		}
	})
	if err := ctx.LaunchFunc(kernel, GridFor(n, DefaultBlockSize), Dim3{X: DefaultBlockSize, Y: 1, Z: 1}); err != nil {
		return err
	}
	ctx.defaultStream.Synchronize()
	return nil
}

// Map2 applies a binary op elementwise on the default stream.
func (ctx *Context) Map2(fn func(a, b float32) float32, dst, a, b DevicePtr, n int) error {
	const op = "Map2"
	if fn == nil {
		return NewInvalidArgError(op, "nil function")
	}
	if err := checkLen(op, n, 4, dst, a, b); err != nil {
		return err
	}
	d := dst.Float32()[:n]
	x := a.Float32()[:n]
	y := b.Float32()[:n]

	kernel := KernelFunc(func(tid ThreadID, _ ...interface{}) {
		if i := tid.Global(); i < n {
			d[i] = fn(x[i], y[i])
		}
	})
	if err := ctx.LaunchFunc(kernel, GridFor(n, DefaultBlockSize), Dim3{X: DefaultBlockSize, Y: 1, Z: 1}); err != nil {
		return err
	}
	ctx.defaultStream.Synchronize()
	return nil
}

// Map64 applies fn elementwise over float64 data.
func (ctx *Context) Map64(fn dmath.Func64, dst, src DevicePtr, n int) error {
	const op = "Map64"
	if fn == nil {
		return NewInvalidArgError(op, "nil function")
	}
	if err := checkLen(op, n, 8, dst, src); err != nil {
		return err
	}
	d := dst.Float64()[:n]
	s := src.Float64()[:n]

	kernel := KernelFunc(func(tid ThreadID, _ ...interface{}) {
		if i := tid.Global(); i < n {
			d[i] = fn(s[i])
		}
	})
	if err := ctx.LaunchFunc(kernel, GridFor(n, DefaultBlockSize), Dim3{X: DefaultBlockSize, Y: 1, Z: 1}); err != nil {
		return err
	}
	ctx.defaultStream.Synchronize()
	return nil
}

// checkLen validates that every operand holds at least n elements of
// elemSize bytes.
func checkLen(op string, n, elemSize int, ptrs ...DevicePtr) error {
	if n <= 0 {
		return NewInvalidArgError(op, fmt.Sprintf("invalid length %d", n))
	}
	for _, p := range ptrs {
		if p.IsNil() {
			return NewInvalidArgError(op, "nil device pointer")
		}
		if p.Size() < n*elemSize {
			return NewInvalidArgError(op, fmt.Sprintf("operand holds %d bytes, need %d", p.Size(), n*elemSize))
		}
	}
	return nil
}
