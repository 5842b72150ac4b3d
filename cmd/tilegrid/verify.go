package main

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/urfave/cli/v2"

	"github.com/LaneMorgan/tilegrid"
	"github.com/LaneMorgan/tilegrid/dmath"
	"github.com/LaneMorgan/tilegrid/reference"
)

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Run every kernel against its gonum reference and report max |Δ|",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "n", Value: 98432, Usage: "Elementwise array length"},
			&cli.IntFlag{Name: "m", Value: 512, Usage: "Matrix rows"},
			&cli.IntFlag{Name: "k", Value: 384, Usage: "Inner dimension"},
			&cli.IntFlag{Name: "cols", Value: 256, Usage: "Matrix columns"},
			&cli.Int64Flag{Name: "seed", Value: 1, Usage: "RNG seed"},
		},
		Action: runVerify,
	}
}

func runVerify(c *cli.Context) error {
	rng := rand.New(rand.NewSource(c.Int64("seed")))
	fmt.Printf("CPU features: %s\n", tilegrid.CPUInfo())

	failed := false
	report := func(name string, maxDiff float32, ok bool) {
		status := "PASS"
		if !ok {
			status = "FAIL"
			failed = true
		}
		fmt.Printf("%-24s max |diff| = %.3e  [%s]\n", name, maxDiff, status)
	}

	// Elementwise sine, fast and strict modes.
	n := c.Int("n")
	if diff, ok, err := verifySin(rng, n, dmath.Fast, tilegrid.RelaxedTolerance()); err != nil {
		return err
	} else {
		report("sin (fast)", diff, ok)
	}
	if diff, ok, err := verifySin(rng, n, dmath.Strict, tilegrid.DefaultTolerance()); err != nil {
		return err
	} else {
		report("sin (strict)", diff, ok)
	}

	// Tiled matrix multiply, float32 and float16.
	m, k, cols := c.Int("m"), c.Int("k"), c.Int("cols")
	if diff, ok, err := verifyMatMul(rng, m, cols, k); err != nil {
		return err
	} else {
		report(fmt.Sprintf("matmul %dx%dx%d", m, cols, k), diff, ok)
	}
	if diff, ok, err := verifyMatMulF16(rng, m, cols, k); err != nil {
		return err
	} else {
		report(fmt.Sprintf("matmul f16 %dx%dx%d", m, cols, k), diff, ok)
	}

	if failed {
		return fmt.Errorf("verification failed")
	}
	return nil
}

func verifySin(rng *rand.Rand, n int, mode dmath.Mode, tol tilegrid.ToleranceConfig) (float32, bool, error) {
	dSrc, err := tilegrid.Malloc(n * 4)
	if err != nil {
		return 0, false, err
	}
	defer tilegrid.Free(dSrc)
	dDst, err := tilegrid.Malloc(n * 4)
	if err != nil {
		return 0, false, err
	}
	defer tilegrid.Free(dDst)

	src := dSrc.Float32()[:n]
	for i := range src {
		src[i] = rng.Float32()*200 - 100
	}

	if err := tilegrid.Map(dmath.ForFloat32(mode).Sin, dDst, dSrc, n); err != nil {
		return 0, false, err
	}

	want := make([]float32, n)
	reference.Map(want, src, math.Sin)
	got := dDst.Float32()[:n]
	return tilegrid.MaxAbsDiff(want, got), tilegrid.AllClose(want, got, tol), nil
}

func verifyMatMul(rng *rand.Rand, m, n, k int) (float32, bool, error) {
	dA, err := tilegrid.Malloc(m * k * 4)
	if err != nil {
		return 0, false, err
	}
	defer tilegrid.Free(dA)
	dB, err := tilegrid.Malloc(k * n * 4)
	if err != nil {
		return 0, false, err
	}
	defer tilegrid.Free(dB)
	dC, err := tilegrid.Malloc(m * n * 4)
	if err != nil {
		return 0, false, err
	}
	defer tilegrid.Free(dC)

	// Positive operands keep each dot product away from zero, so the
	// relative tolerance is the binding one.
	a := dA.Float32()[: m*k : m*k]
	b := dB.Float32()[: k*n : k*n]
	for i := range a {
		a[i] = rng.Float32()
	}
	for i := range b {
		b[i] = rng.Float32()
	}

	if err := tilegrid.MatMul(dC, dA, dB, m, n, k); err != nil {
		return 0, false, err
	}

	want := make([]float32, m*n)
	reference.MatMul(want, a, b, m, n, k)
	got := dC.Float32()[:m*n]
	return tilegrid.MaxAbsDiff(want, got), tilegrid.AllClose(want, got, tilegrid.RelaxedTolerance()), nil
}

func verifyMatMulF16(rng *rand.Rand, m, n, k int) (float32, bool, error) {
	dA, err := tilegrid.Malloc(m * k * 2)
	if err != nil {
		return 0, false, err
	}
	defer tilegrid.Free(dA)
	dB, err := tilegrid.Malloc(k * n * 2)
	if err != nil {
		return 0, false, err
	}
	defer tilegrid.Free(dB)
	dC, err := tilegrid.Malloc(m * n * 2)
	if err != nil {
		return 0, false, err
	}
	defer tilegrid.Free(dC)

	aF32 := make([]float32, m*k)
	bF32 := make([]float32, k*n)
	for i := range aF32 {
		aF32[i] = rng.Float32()*2 - 1
	}
	for i := range bF32 {
		bF32[i] = rng.Float32()*2 - 1
	}
	tilegrid.F16FromFloat32Slice(dA.Float16(), aF32)
	tilegrid.F16FromFloat32Slice(dB.Float16(), bF32)

	// The reference sees what the kernel sees: inputs already rounded
	// to half precision.
	tilegrid.F16ToFloat32Slice(aF32, dA.Float16()[:m*k])
	tilegrid.F16ToFloat32Slice(bF32, dB.Float16()[:k*n])

	if err := tilegrid.MatMulF16(dC, dA, dB, m, n, k); err != nil {
		return 0, false, err
	}

	want := make([]float32, m*n)
	reference.MatMul(want, aF32, bF32, m, n, k)

	got := make([]float32, m*n)
	tilegrid.F16ToFloat32Slice(got, dC.Float16()[:m*n])

	return tilegrid.MaxAbsDiff(want, got), tilegrid.AllClose(want, got, tilegrid.F16Tolerance()), nil
}
