// Package dmath is tilegrid's device math library: scalar numerical
// routines selectable by operand precision and accuracy mode, the role
// libdevice plays for GPU kernels.
//
// Each routine comes in two modes. Strict routes through float64 and
// matches the reference library to rounding error. Fast uses float32
// range reduction and polynomial approximations, trading a few ULPs for
// throughput inside elementwise kernels.
package dmath

import "math"

// Mode selects the accuracy/speed trade-off.
type Mode int

const (
	// Strict evaluates through float64 for reference-grade accuracy.
	Strict Mode = iota
	// Fast uses float32 polynomial approximations.
	Fast
)

// Constants used by the approximations.
const (
	ln2        = 0.6931471805599453094
	invSqrt2   = 0.7071067811865475244
	saturation = 10.0

	// exp clamps at the float32 range.
	expOverflow  = 88.7
	expUnderflow = -87.3

	// Abramowitz & Stegun 7.1.26 rational erf approximation.
	erfA1 = 0.254829592
	erfA2 = -0.284496736
	erfA3 = 1.421413741
	erfA4 = -1.453152027
	erfA5 = 1.061405429
	erfP  = 0.3275911
)

// Func32 is a float32 scalar routine.
type Func32 func(float32) float32

// Func64 is a float64 scalar routine.
type Func64 func(float64) float64

// Funcs32 is the float32 routine table for one mode.
type Funcs32 struct {
	Sin, Cos, Tan  Func32
	Exp, Log, Sqrt Func32
	Tanh, Sigmoid  Func32
	Erf, Gelu      Func32
}

// Funcs64 is the float64 routine table. Both modes resolve to the
// stdlib: float64 work has no cheaper path worth shipping.
type Funcs64 struct {
	Sin, Cos, Tan  Func64
	Exp, Log, Sqrt Func64
	Tanh, Sigmoid  Func64
	Erf, Gelu      Func64
}

// ForFloat32 returns the float32 routine table for a mode.
func ForFloat32(mode Mode) Funcs32 {
	if mode == Fast {
		return Funcs32{
			Sin:     SinFast,
			Cos:     CosFast,
			Tan:     TanFast,
			Exp:     ExpFast,
			Log:     LogFast,
			Sqrt:    SqrtFast,
			Tanh:    TanhFast,
			Sigmoid: SigmoidFast,
			Erf:     ErfFast,
			Gelu:    GeluFast,
		}
	}
	return Funcs32{
		Sin:     Sin,
		Cos:     Cos,
		Tan:     Tan,
		Exp:     Exp,
		Log:     Log,
		Sqrt:    Sqrt,
		Tanh:    Tanh,
		Sigmoid: Sigmoid,
		Erf:     Erf,
		Gelu:    Gelu,
	}
}

// ForFloat64 returns the float64 routine table.
func ForFloat64() Funcs64 {
	return Funcs64{
		Sin:     math.Sin,
		Cos:     math.Cos,
		Tan:     math.Tan,
		Exp:     math.Exp,
		Log:     math.Log,
		Sqrt:    math.Sqrt,
		Tanh:    math.Tanh,
		Sigmoid: sigmoid64,
		Erf:     math.Erf,
		Gelu:    gelu64,
	}
}

// Strict float32 routines: evaluate in float64, round once.

func Sin(x float32) float32  { return float32(math.Sin(float64(x))) }
func Cos(x float32) float32  { return float32(math.Cos(float64(x))) }
func Tan(x float32) float32  { return float32(math.Tan(float64(x))) }
func Exp(x float32) float32  { return float32(math.Exp(float64(x))) }
func Log(x float32) float32  { return float32(math.Log(float64(x))) }
func Sqrt(x float32) float32 { return float32(math.Sqrt(float64(x))) }
func Tanh(x float32) float32 { return float32(math.Tanh(float64(x))) }
func Erf(x float32) float32  { return float32(math.Erf(float64(x))) }

// Sigmoid computes 1/(1+exp(-x)) through float64.
func Sigmoid(x float32) float32 { return float32(sigmoid64(float64(x))) }

// Gelu computes x·Φ(x) using the exact erf form.
func Gelu(x float32) float32 { return float32(gelu64(float64(x))) }

func sigmoid64(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

func gelu64(x float64) float64 {
	return x * 0.5 * (1 + math.Erf(x*invSqrt2))
}

// Fast float32 routines.

// ExpFast computes exp(x) by range reduction x = k·ln2 + r and a
// degree-5 Remez polynomial on r.
func ExpFast(x float32) float32 {
	if x > expOverflow {
		return math.MaxFloat32
	}
	if x < expUnderflow {
		return 0
	}

	k := int(math.Floor(float64(x) / ln2))
	r := x - float32(k)*float32(ln2)

	r2 := r * r
	r3 := r2 * r
	r4 := r2 * r2
	r5 := r4 * r
	expR := 1 + r +
		0.4999999701976776*r2 +
		0.1666666567325592*r3 +
		0.0416666679084301*r4 +
		0.0083333337679505*r5

	return float32(math.Ldexp(float64(expR), k))
}

// LogFast computes ln(x) from the exponent bits and a polynomial on the
// reduced mantissa.
func LogFast(x float32) float32 {
	if x < 0 || x != x {
		return float32(math.NaN())
	}
	if x == 0 {
		return float32(math.Inf(-1))
	}
	if math.IsInf(float64(x), 1) {
		return x
	}

	// x = m·2^e with m in [sqrt(1/2), sqrt(2)); ln x = e·ln2 + ln m.
	m64, e := math.Frexp(float64(x))
	m := float32(m64)
	if m < invSqrt2 {
		m *= 2
		e--
	}

	// atanh form: ln(m) = 2·atanh((m-1)/(m+1)), degree-7 series.
	s := (m - 1) / (m + 1)
	s2 := s * s
	lnM := 2 * s * (1 + s2/3 + s2*s2/5 + s2*s2*s2/7)
	return float32(e)*float32(ln2) + lnM
}

// SqrtFast defers to the hardware square root.
func SqrtFast(x float32) float32 { return float32(math.Sqrt(float64(x))) }

// TanhFast saturates at |x|>10, uses a series for small x to dodge
// cancellation, and the exp identity elsewhere.
func TanhFast(x float32) float32 {
	if x > saturation {
		return 1
	}
	if x < -saturation {
		return -1
	}
	if x < 0 {
		return -TanhFast(-x)
	}
	if x < 0.5 {
		x2 := x * x
		return x * (1 - x2/3 + 2*x2*x2/15)
	}
	exp2x := ExpFast(2 * x)
	return (exp2x - 1) / (exp2x + 1)
}

// SigmoidFast computes the logistic function with saturation clipping.
func SigmoidFast(x float32) float32 {
	if x < -saturation {
		return 0
	}
	if x > saturation {
		return 1
	}
	if x >= 0 {
		return 1 / (1 + ExpFast(-x))
	}
	e := ExpFast(x)
	return e / (1 + e)
}

// ErfFast uses the Abramowitz & Stegun rational approximation.
func ErfFast(x float32) float32 {
	sign := float32(1)
	if x < 0 {
		sign = -1
		x = -x
	}

	t := 1 / (1 + erfP*x)
	t2 := t * t
	t3 := t2 * t
	t4 := t2 * t2
	t5 := t4 * t

	poly := erfA1*t + erfA2*t2 + erfA3*t3 + erfA4*t4 + erfA5*t5
	return sign * (1 - ExpFast(-x*x)*poly)
}

// GeluFast computes x·Φ(x) with the fast erf.
func GeluFast(x float32) float32 {
	return x * 0.5 * (1 + ErfFast(x*invSqrt2))
}

const (
	pi     = 3.14159265358979323846
	halfPi = pi / 2
	twoPi  = 2 * pi
)

// SinFast computes sin(x) with Cody-Waite style reduction to
// [-π/4, π/4] and degree-7/6 polynomials. Good to a few ULPs for
// |x| < 2^20; larger arguments fall back to the strict path since the
// float32 reduction has run out of bits by then.
func SinFast(x float32) float32 {
	if x != x || math.IsInf(float64(x), 0) {
		return float32(math.NaN())
	}
	if x > 1<<20 || x < -(1<<20) {
		return Sin(x)
	}

	// Reduce by quadrant: x = j·(π/2) + r.
	j := int(math.Round(float64(x) / halfPi))
	r := float32(float64(x) - float64(j)*halfPi)

	var v float32
	if j&1 == 0 {
		v = sinPoly(r)
	} else {
		v = cosPoly(r)
	}
	if j&2 != 0 {
		v = -v
	}
	return v
}

// CosFast computes cos(x) via the same quadrant reduction.
func CosFast(x float32) float32 {
	if x != x || math.IsInf(float64(x), 0) {
		return float32(math.NaN())
	}
	if x > 1<<20 || x < -(1<<20) {
		return Cos(x)
	}

	j := int(math.Round(float64(x) / halfPi))
	r := float32(float64(x) - float64(j)*halfPi)

	var v float32
	if j&1 == 0 {
		v = cosPoly(r)
	} else {
		v = -sinPoly(r)
	}
	if j&2 != 0 {
		v = -v
	}
	return v
}

// TanFast computes sin/cos on the reduced argument.
func TanFast(x float32) float32 {
	c := CosFast(x)
	if c == 0 {
		return float32(math.Inf(1))
	}
	return SinFast(x) / c
}

// sinPoly evaluates sin(r) for r in [-π/4, π/4].
func sinPoly(r float32) float32 {
	r2 := r * r
	return r * (1 +
		r2*(-0.16666658 +
			r2*(0.00833302 +
				r2*(-0.000195878))))
}

// cosPoly evaluates cos(r) for r in [-π/4, π/4].
func cosPoly(r float32) float32 {
	r2 := r * r
	return 1 +
		r2*(-0.499999523 +
			r2*(0.0416655466 +
				r2*(-0.0013853704)))
}
