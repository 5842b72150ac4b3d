package tilegrid

import (
	"math"
	"testing"
)

func TestFloat16RoundTrip(t *testing.T) {
	// Half-precision values convert to float32 and back without loss.
	values := []float32{0, 1, -1, 0.5, 2, 1024, -1024, 0.25, 65504, -65504, 6.103515625e-5}
	for _, v := range values {
		h := F16FromFloat32(v)
		if got := h.Float32(); got != v {
			t.Errorf("Float16 round trip of %g: got %g", v, got)
		}
	}
}

func TestFloat16Rounding(t *testing.T) {
	cases := []struct {
		in   float32
		want float32
	}{
		{1.0004, 1.0},          // rounds down to nearest half
		{1.0006, 1.0009765625}, // nearest representable above 1
		{2049, 2048},           // ties to even in the 2048-4096 binade
		{100000, float32(math.Inf(1))}, // overflow saturates
	}
	for _, c := range cases {
		if got := F16FromFloat32(c.in).Float32(); got != c.want {
			t.Errorf("F16FromFloat32(%g) = %g, want %g", c.in, got, c.want)
		}
	}
}

func TestFloat16Specials(t *testing.T) {
	inf := float32(math.Inf(1))
	if got := F16FromFloat32(inf).Float32(); !math.IsInf(float64(got), 1) {
		t.Errorf("+Inf: got %g", got)
	}
	if got := F16FromFloat32(-inf).Float32(); !math.IsInf(float64(got), -1) {
		t.Errorf("-Inf: got %g", got)
	}

	nan := float32(math.NaN())
	if got := F16FromFloat32(nan).Float32(); !math.IsNaN(float64(got)) {
		t.Errorf("NaN did not survive conversion: %g", got)
	}

	// Signed zero.
	negZero := float32(math.Copysign(0, -1))
	if bits := math.Float32bits(F16FromFloat32(negZero).Float32()); bits != 0x80000000 {
		t.Errorf("-0 lost its sign: bits %#x", bits)
	}

	// Tiny values flush to zero.
	if got := F16FromFloat32(1e-10).Float32(); got != 0 {
		t.Errorf("Underflow: got %g, want 0", got)
	}
}

func TestFloat16Subnormals(t *testing.T) {
	// The smallest positive subnormal half is 2^-24.
	smallest := Float16(1)
	want := float32(math.Ldexp(1, -24))
	if got := smallest.Float32(); got != want {
		t.Errorf("Smallest subnormal: got %g, want %g", got, want)
	}

	// A float32 in the subnormal half range converts and returns close.
	v := float32(math.Ldexp(3, -24)) // 3 * 2^-24
	if got := F16FromFloat32(v).Float32(); got != v {
		t.Errorf("Subnormal round trip of %g: got %g", v, got)
	}

	// Subnormal ties round to even: 2^-25 sits halfway between zero and
	// the smallest subnormal and must land on zero, while 3*2^-25 sits
	// halfway between one and two units and must land on two.
	if got := F16FromFloat32(float32(math.Ldexp(1, -25))); got != 0 {
		t.Errorf("F16FromFloat32(2^-25) = %#04x, want 0", uint16(got))
	}
	if got := F16FromFloat32(float32(math.Ldexp(3, -25))); got != 2 {
		t.Errorf("F16FromFloat32(3*2^-25) = %#04x, want 2", uint16(got))
	}
	if got := F16FromFloat32(float32(math.Ldexp(5, -25))); got != 2 {
		t.Errorf("F16FromFloat32(5*2^-25) = %#04x, want 2", uint16(got))
	}

	// Just above the halfway point rounds away from zero.
	above := math.Nextafter32(float32(math.Ldexp(1, -25)), 1)
	if got := F16FromFloat32(above); got != 1 {
		t.Errorf("F16FromFloat32(2^-25 + ulp) = %#04x, want 1", uint16(got))
	}
}

func TestFloat16SliceConversions(t *testing.T) {
	src := GenerateFloat32Range(1000, 5, -10, 10)

	halves := make([]Float16, len(src))
	F16FromFloat32Slice(halves, src)

	back := make([]float32, len(src))
	F16ToFloat32Slice(back, halves)

	tol := F16Tolerance()
	for i := range src {
		if !Float32NearEqual(src[i], back[i], tol) {
			t.Fatalf("Element %d: %g became %g after round trip", i, src[i], back[i])
		}
	}
}

func TestBFloat16Conversion(t *testing.T) {
	values := []float32{0, 1, -1, 0.5, 3.140625, 1e20, -1e-20}
	for _, v := range values {
		got := BF16FromFloat32(v).Float32()
		// BFloat16 keeps 8 mantissa bits: relative error under 2^-8.
		if v != 0 {
			rel := math.Abs(float64(got-v)) / math.Abs(float64(v))
			if rel > 1.0/256 {
				t.Errorf("BF16FromFloat32(%g) = %g, relative error %g", v, got, rel)
			}
		} else if got != 0 {
			t.Errorf("BF16FromFloat32(0) = %g", got)
		}
	}

	if got := BF16FromFloat32(float32(math.NaN())).Float32(); !math.IsNaN(float64(got)) {
		t.Errorf("BFloat16 NaN lost: %g", got)
	}
	if got := BF16FromFloat32(float32(math.Inf(1))).Float32(); !math.IsInf(float64(got), 1) {
		t.Errorf("BFloat16 +Inf lost: %g", got)
	}
}
