package tilegrid

import (
	"math"
)

// Float16 is an IEEE 754 binary16 value. The mixed-precision matrix
// multiply takes Float16 operands, accumulates in float32, and casts
// back down on store.
type Float16 uint16

const (
	f16SignMask     = 0x8000
	f16ExponentMask = 0x7C00
	f16MantissaMask = 0x03FF
	f16ExponentBias = 15
	f16MantissaBits = 10
)

// Float32 converts to float32. The conversion is exact: every binary16
// value is representable in binary32.
func (f Float16) Float32() float32 {
	sign := uint32(f&f16SignMask) << 16
	exponent := (f & f16ExponentMask) >> f16MantissaBits
	mantissa := f & f16MantissaMask

	switch exponent {
	case 0:
		if mantissa == 0 {
			return math.Float32frombits(sign)
		}
		// Subnormal: renormalize into the float32 range.
		shift := uint32(1)
		for mantissa&0x200 == 0 {
			mantissa <<= 1
			shift++
		}
		mantissa &= 0x1FF
		exp := 127 - 15 - shift + 1
		return math.Float32frombits(sign | (exp << 23) | (uint32(mantissa) << 13))
	case 0x1F:
		if mantissa == 0 {
			return math.Float32frombits(sign | 0x7F800000)
		}
		return math.Float32frombits(sign | 0x7FC00000 | (uint32(mantissa) << 13))
	default:
		return math.Float32frombits(sign | ((uint32(exponent) + 127 - 15) << 23) | (uint32(mantissa) << 13))
	}
}

// F16FromFloat32 converts a float32 to Float16, rounding to nearest
// even and saturating to infinity on overflow.
func F16FromFloat32(f float32) Float16 {
	bits := math.Float32bits(f)
	sign := uint16((bits >> 16) & f16SignMask)
	exponent := (bits >> 23) & 0xFF
	mantissa := bits & 0x7FFFFF

	if exponent == 0xFF {
		if mantissa == 0 {
			return Float16(sign | f16ExponentMask)
		}
		nan := Float16(sign | f16ExponentMask | uint16(mantissa>>13))
		if nan&f16MantissaMask == 0 {
			nan |= 1 // keep NaN from collapsing to Inf
		}
		return nan
	}

	exp := int(exponent) - 127 + f16ExponentBias
	switch {
	case exp >= 0x1F:
		return Float16(sign | f16ExponentMask)
	case exp <= 0:
		if exp < -10 {
			return Float16(sign)
		}
		// Subnormal result. Round to nearest even on the shifted-out
		// bits: add half-1 plus the quotient's low bit so exact ties
		// land on the even neighbor.
		mantissa |= 0x800000
		shift := uint32(14 - exp)
		half := uint32(1) << (shift - 1)
		rounded := (mantissa + (half - 1) + ((mantissa >> shift) & 1)) >> shift
		return Float16(sign | uint16(rounded))
	default:
		// Round to nearest even on the 13 dropped bits.
		rounded := mantissa + 0xFFF + ((mantissa >> 13) & 1)
		if rounded&0x800000 != 0 {
			rounded = 0
			exp++
			if exp >= 0x1F {
				return Float16(sign | f16ExponentMask)
			}
		}
		return Float16(sign | uint16(exp)<<f16MantissaBits | uint16(rounded>>13))
	}
}

// F16ToFloat32Slice converts src into dst, which must be at least as
// long as src.
func F16ToFloat32Slice(dst []float32, src []Float16) {
	for i, v := range src {
		dst[i] = v.Float32()
	}
}

// F16FromFloat32Slice converts src into dst, which must be at least as
// long as src.
func F16FromFloat32Slice(dst []Float16, src []float32) {
	for i, v := range src {
		dst[i] = F16FromFloat32(v)
	}
}
