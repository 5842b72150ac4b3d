package tilegrid

import (
	"math"
)

// BFloat16 is a 16-bit brain float: 1 sign bit, 8 exponent bits,
// 7 mantissa bits. It shares float32's exponent range, so conversion is
// a mantissa truncation with round to nearest even.
type BFloat16 uint16

// BF16FromFloat32 converts a float32 to BFloat16.
func BF16FromFloat32(f float32) BFloat16 {
	bits := math.Float32bits(f)
	if bits&0x7F800000 == 0x7F800000 && bits&0x7FFFFF != 0 {
		// NaN: truncate but keep the payload non-zero.
		bf := BFloat16(bits >> 16)
		if bf&0x7F == 0 {
			bf |= 1
		}
		return bf
	}
	// Round to nearest even on the 16 dropped bits.
	bits += 0x7FFF + ((bits >> 16) & 1)
	return BFloat16(bits >> 16)
}

// Float32 converts back to float32 by restoring the dropped mantissa
// bits as zero.
func (b BFloat16) Float32() float32 {
	return math.Float32frombits(uint32(b) << 16)
}

// BF16ToFloat32Slice converts src into dst.
func BF16ToFloat32Slice(dst []float32, src []BFloat16) {
	for i, v := range src {
		dst[i] = v.Float32()
	}
}

// BF16FromFloat32Slice converts src into dst.
func BF16FromFloat32Slice(dst []BFloat16, src []float32) {
	for i, v := range src {
		dst[i] = BF16FromFloat32(v)
	}
}
