package tilegrid

import (
	"testing"
)

// MallocOrFail allocates device memory and fails the test on error.
func MallocOrFail(t testing.TB, size int) DevicePtr {
	t.Helper()
	ptr, err := Malloc(size)
	if err != nil {
		t.Fatalf("Failed to allocate %d bytes: %v", size, err)
	}
	return ptr
}

// LaunchOrFail launches a kernel and fails the test on error.
func LaunchOrFail(t testing.TB, kernel KernelFunc, grid, block Dim3, args ...interface{}) {
	t.Helper()
	if err := LaunchFunc(kernel, grid, block, args...); err != nil {
		t.Fatalf("Kernel launch failed: %v", err)
	}
}

// GenerateFloat32 generates deterministic test data in [0, 1) using an
// LCG so failures reproduce across runs.
func GenerateFloat32(size int, seed uint64) []float32 {
	data := make([]float32, size)
	rng := seed
	for i := range data {
		rng = rng*1103515245 + 12345
		data[i] = float32(rng%(1<<24)) / float32(1<<24)
	}
	return data
}

// GenerateFloat32Range generates deterministic data in [min, max).
func GenerateFloat32Range(size int, seed uint64, min, max float32) []float32 {
	data := GenerateFloat32(size, seed)
	scale := max - min
	for i := range data {
		data[i] = data[i]*scale + min
	}
	return data
}
