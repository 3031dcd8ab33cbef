package sim

import "math"

// Position buffers are exposed to GPU-bound consumers as IEEE 754-2008
// binary16. Half precision is enough for trail geometry after viewport
// projection and halves upload bandwidth.

// packHalf converts src into binary16 bits stored in dst.
// dst must have at least len(src) elements.
func packHalf(dst []uint16, src []float32) {
	for i, v := range src {
		dst[i] = halfBits(v)
	}
}

// unpackHalf expands binary16 bits from src into dst.
// dst must have at least len(src) elements.
func unpackHalf(dst []float32, src []uint16) {
	for i, v := range src {
		dst[i] = halfToFloat(v)
	}
}

// halfBits converts a float32 to binary16 with round-to-nearest-even.
func halfBits(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16((bits >> 16) & 0x8000)
	exp := int((bits >> 23) & 0xff)
	mant := bits & 0x7fffff

	if exp == 0xff {
		if mant == 0 {
			return sign | 0x7c00 // infinity
		}
		// Keep NaN a NaN even when the payload truncates to zero.
		payload := uint16(mant >> 13)
		if payload == 0 {
			payload = 1
		}
		return sign | 0x7c00 | payload
	}
	if exp == 0 && mant == 0 {
		return sign
	}

	halfExp := exp - 127 + 15
	if halfExp >= 0x1f {
		return sign | 0x7c00 // overflow to infinity
	}
	if halfExp <= 0 {
		// Subnormal half range.
		if halfExp < -10 {
			return sign
		}
		mant |= 0x800000
		shift := uint(1 - halfExp)
		var sticky uint32
		if mant<<(32-shift) != 0 {
			sticky = 1 // shifted-out bits break a tie upward
		}
		mant = mant>>shift | sticky
		mant += 0xfff + ((mant >> 13) & 1) // ties go to the even mantissa
		return sign | uint16(mant>>13)
	}

	mant += 0xfff + ((mant >> 13) & 1)
	if mant&0x800000 != 0 {
		// Rounding carried into the exponent.
		mant = 0
		halfExp++
		if halfExp >= 0x1f {
			return sign | 0x7c00
		}
	}
	return sign | uint16(halfExp)<<10 | uint16(mant>>13)
}

// halfToFloat converts binary16 bits to a float32.
func halfToFloat(h uint16) float32 {
	sign := uint32(h&0x8000) << 16
	exp := uint32(h>>10) & 0x1f
	mant := uint32(h & 0x3ff)

	switch exp {
	case 0:
		if mant == 0 {
			return math.Float32frombits(sign)
		}
		// Normalize the subnormal.
		e := uint32(127 - 15 + 1)
		for mant&0x400 == 0 {
			mant <<= 1
			e--
		}
		mant &= 0x3ff
		return math.Float32frombits(sign | e<<23 | mant<<13)
	case 0x1f:
		return math.Float32frombits(sign | 0xff<<23 | mant<<13)
	default:
		return math.Float32frombits(sign | (exp-15+127)<<23 | mant<<13)
	}
}
