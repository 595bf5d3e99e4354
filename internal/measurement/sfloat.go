package measurement

import "math"

// SFloat is a 16-bit medical floating point value (IEEE 11073-20601 SFLOAT):
// a 4-bit signed exponent followed by a 12-bit signed mantissa. Blood pressure
// characteristics transmit all pressure and pulse values in this format.
type SFloat uint16

// Reserved mantissa encodings for special values (exponent must be 0).
const (
	sfloatNaN         = 0x07FF // not a number
	sfloatNRes        = 0x0800 // not at this resolution
	sfloatPosInfinity = 0x07FE
	sfloatNegInfinity = 0x0802
	sfloatReserved    = 0x0801
)

// NewSFloat builds an SFloat from a mantissa in [-2048, 2047] and an
// exponent in [-8, 7]. Out-of-range inputs are truncated to field width.
func NewSFloat(mantissa int16, exponent int8) SFloat {
	return SFloat(uint16(exponent&0x0F)<<12 | uint16(mantissa)&0x0FFF)
}

// SFloatNaN is the canonical "value unavailable" encoding. Vendors report it
// when a reading failed (e.g. a blood pressure measurement was aborted).
const SFloatNaN = SFloat(sfloatNaN)

func (s SFloat) mantissa() int16 {
	m := int16(s & 0x0FFF)
	if m >= 0x0800 {
		m -= 0x1000
	}
	return m
}

func (s SFloat) exponent() int8 {
	e := int8(s >> 12)
	if e >= 0x08 {
		e -= 0x10
	}
	return e
}

// Float64 converts the SFloat to a float64. Special encodings map to
// math.NaN and math.Inf respectively.
func (s SFloat) Float64() float64 {
	switch s & 0x0FFF {
	case sfloatNaN, sfloatNRes, sfloatReserved:
		if s.exponent() == 0 {
			return math.NaN()
		}
	case sfloatPosInfinity:
		if s.exponent() == 0 {
			return math.Inf(1)
		}
	case sfloatNegInfinity:
		if s.exponent() == 0 {
			return math.Inf(-1)
		}
	}
	return float64(s.mantissa()) * math.Pow10(int(s.exponent()))
}

// IsFinite reports whether the value is a real number, i.e. none of the
// NaN/NRes/infinity/reserved sentinel encodings.
func (s SFloat) IsFinite() bool {
	v := s.Float64()
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
