package tilegrid

import "math"

// ParityStats accumulates error statistics across comparisons against a
// reference implementation.
type ParityStats struct {
	MaxAbsError float32
	MaxRelError float32
	MaxULPError int32
	NumErrors   int
	NumCompared int
}

// Compare folds one expected/actual pair into the statistics.
func (ps *ParityStats) Compare(expected, actual float32) {
	ps.NumCompared++

	absErr := AbsFloat32(expected - actual)
	if absErr > ps.MaxAbsError {
		ps.MaxAbsError = absErr
	}
	if expected != 0 {
		if relErr := absErr / AbsFloat32(expected); relErr > ps.MaxRelError {
			ps.MaxRelError = relErr
		}
	}
	if ulp := ULPDiffFloat32(expected, actual); ulp > ps.MaxULPError {
		ps.MaxULPError = ulp
	}

	if absErr > 1e-6 || (expected != 0 && absErr/AbsFloat32(expected) > 1e-5) {
		ps.NumErrors++
	}
}

// CompareSlices folds elementwise pairs from two slices. Extra elements
// in the longer slice are ignored.
func (ps *ParityStats) CompareSlices(expected, actual []float32) {
	n := min(len(expected), len(actual))
	for i := 0; i < n; i++ {
		ps.Compare(expected[i], actual[i])
	}
}

// WithinTolerance reports whether the accumulated worst case satisfies
// tol.
func (ps *ParityStats) WithinTolerance(tol ToleranceConfig) bool {
	if ps.MaxAbsError <= tol.AbsTol {
		return true
	}
	if ps.MaxRelError <= tol.RelTol {
		return true
	}
	return tol.ULPTol > 0 && ps.MaxULPError <= tol.ULPTol
}

// AbsFloat32 returns |x| without a float64 round trip.
func AbsFloat32(x float32) float32 {
	return math.Float32frombits(math.Float32bits(x) &^ (1 << 31))
}
