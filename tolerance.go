// Tolerance-based verification of floating-point results.
package tilegrid

import (
	"fmt"
	"math"
)

// ToleranceConfig defines how close two floating-point results must be
// to count as equal.
type ToleranceConfig struct {
	// AbsTol covers values near zero.
	AbsTol float32

	// RelTol scales with the larger magnitude.
	RelTol float32

	// ULPTol bounds the spacing between the two values in units in the
	// last place.
	ULPTol int32

	// MatchNaN treats two NaNs as equal.
	MatchNaN bool

	// MatchInf treats two like-signed infinities as equal.
	MatchInf bool
}

// DefaultTolerance suits exact-arithmetic kernels.
func DefaultTolerance() ToleranceConfig {
	return ToleranceConfig{AbsTol: 1e-7, RelTol: 1e-5, ULPTol: 4, MatchNaN: true, MatchInf: true}
}

// StrictTolerance suits strict-mode device math.
func StrictTolerance() ToleranceConfig {
	return ToleranceConfig{AbsTol: 1e-9, RelTol: 1e-7, ULPTol: 1, MatchNaN: true, MatchInf: true}
}

// RelaxedTolerance suits accumulated or approximated operations: tiled
// GEMM sums, fast-mode transcendentals.
func RelaxedTolerance() ToleranceConfig {
	return ToleranceConfig{AbsTol: 1e-5, RelTol: 1e-3, ULPTol: 16, MatchNaN: true, MatchInf: true}
}

// F16Tolerance suits results that round-tripped through Float16.
func F16Tolerance() ToleranceConfig {
	return ToleranceConfig{AbsTol: 1e-2, RelTol: 1e-2, ULPTol: 0, MatchNaN: true, MatchInf: true}
}

// Float32NearEqual reports whether a and b agree within tol.
func Float32NearEqual(a, b float32, tol ToleranceConfig) bool {
	if tol.MatchNaN && math.IsNaN(float64(a)) && math.IsNaN(float64(b)) {
		return true
	}
	if math.IsInf(float64(a), 0) || math.IsInf(float64(b), 0) {
		// An infinity on either side never satisfies the finite
		// tolerances; only a like-signed pair can match.
		return tol.MatchInf && a == b
	}
	if a == b {
		return true
	}

	diff := math.Abs(float64(a) - float64(b))
	if diff <= float64(tol.AbsTol) {
		return true
	}
	larger := math.Max(math.Abs(float64(a)), math.Abs(float64(b)))
	if diff <= larger*float64(tol.RelTol) {
		return true
	}
	return tol.ULPTol > 0 && ULPDiffFloat32(a, b) <= tol.ULPTol
}

// ULPDiffFloat32 computes the distance between a and b in float32
// representations. Values of opposite sign are measured through zero;
// NaN and mismatched infinities report MaxInt32.
func ULPDiffFloat32(a, b float32) int32 {
	if math.IsNaN(float64(a)) || math.IsNaN(float64(b)) {
		return math.MaxInt32
	}
	if math.IsInf(float64(a), 0) || math.IsInf(float64(b), 0) {
		if a == b {
			return 0
		}
		return math.MaxInt32
	}

	aBits := math.Float32bits(a)
	bBits := math.Float32bits(b)
	if (aBits >> 31) != (bBits >> 31) {
		// Sum the two halves in int64: each half can reach 2^31-ish,
		// so the int32 sum would wrap for sign-flipped values.
		sum := int64(ULPDiffFloat32(AbsFloat32(a), 0)) +
			int64(ULPDiffFloat32(AbsFloat32(b), 0))
		if sum >= math.MaxInt32 {
			return math.MaxInt32
		}
		return int32(sum)
	}
	if aBits > bBits {
		return int32(aBits - bBits)
	}
	return int32(bBits - aBits)
}

// MaxAbsDiff returns the largest elementwise |expected-actual|, the
// figure the verify command prints.
func MaxAbsDiff(expected, actual []float32) float32 {
	var maxDiff float32
	n := min(len(expected), len(actual))
	for i := 0; i < n; i++ {
		if d := float32(math.Abs(float64(expected[i]) - float64(actual[i]))); d > maxDiff {
			maxDiff = d
		}
	}
	return maxDiff
}

// AllClose reports whether every element of actual agrees with expected
// within tol. Length mismatches never pass.
func AllClose(expected, actual []float32, tol ToleranceConfig) bool {
	if len(expected) != len(actual) {
		return false
	}
	for i := range expected {
		if !Float32NearEqual(expected[i], actual[i], tol) {
			return false
		}
	}
	return true
}

// VerificationResult summarizes an array comparison.
type VerificationResult struct {
	MaxAbsError float32
	MaxRelError float32
	MaxULPError int32
	NumErrors   int
	TotalItems  int
	FirstError  int // index of first mismatch, -1 if none
}

// VerifyFloat32Array compares actual against expected elementwise and
// collects error statistics for the mismatches.
func VerifyFloat32Array(expected, actual []float32, tol ToleranceConfig) VerificationResult {
	result := VerificationResult{TotalItems: len(expected), FirstError: -1}
	if len(expected) != len(actual) {
		result.NumErrors = len(expected)
		return result
	}

	for i := range expected {
		if Float32NearEqual(expected[i], actual[i], tol) {
			continue
		}
		result.NumErrors++
		if result.FirstError == -1 {
			result.FirstError = i
		}

		absDiff := float32(math.Abs(float64(expected[i]) - float64(actual[i])))
		if absDiff > result.MaxAbsError {
			result.MaxAbsError = absDiff
		}
		if expected[i] != 0 {
			if relDiff := absDiff / float32(math.Abs(float64(expected[i]))); relDiff > result.MaxRelError {
				result.MaxRelError = relDiff
			}
		}
		if ulp := ULPDiffFloat32(expected[i], actual[i]); ulp > result.MaxULPError {
			result.MaxULPError = ulp
		}
	}
	return result
}

// Passed reports whether the comparison found no mismatches.
func (r VerificationResult) Passed() bool { return r.NumErrors == 0 }

func (r VerificationResult) String() string {
	if r.NumErrors == 0 {
		return fmt.Sprintf("PASS: %d values match within tolerance", r.TotalItems)
	}
	rate := float64(r.NumErrors) / float64(r.TotalItems) * 100
	return fmt.Sprintf("FAIL: %d/%d values differ (%.2f%%), max abs %.3e, max rel %.3e, max ULP %d, first at %d",
		r.NumErrors, r.TotalItems, rate, r.MaxAbsError, r.MaxRelError, r.MaxULPError, r.FirstError)
}
