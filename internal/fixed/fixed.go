// Package fixed implements the Q15 and Q31 fixed-point sample
// representations used by the resampler core.
//
// Both tiers map the real range [-1, 1) linearly onto the full signed
// integer range, so a Q15 value of 16384 and a Q31 value of 2^30 both
// represent 0.5. All conversions clamp rather than wrap: the float
// value 1.0 has no exact representation and quantizes to the maximum
// positive code.
package fixed

import "math"

// Full-scale magnitudes for each tier.
const (
	MaxQ15 = 32767
	MaxQ31 = 2147483647
)

// Q15 to Q31 promotion shift.
const promoteShift = 16

// Int is the type constraint covering both fixed-point tiers.
type Int interface {
	~int16 | ~int32
}

// Complex is a complex sample in fixed-point representation.
// Re carries the in-phase (I) component, Im the quadrature (Q).
type Complex[T Int] struct {
	Re, Im T
}

// Convenience aliases for the two tiers.
type (
	ComplexQ15 = Complex[int16]
	ComplexQ31 = Complex[int32]
)

// MaxMagnitude returns the full-scale value of tier T as a float64.
func MaxMagnitude[T Int]() float64 {
	var zero T
	switch any(zero).(type) {
	case int16:
		return MaxQ15
	case int32:
		return MaxQ31
	default:
		panic("fixed: unsupported sample type")
	}
}

// Quantize converts a floating-point complex sample into tier T,
// clamping each component to the representable range.
func Quantize[T Int](x complex64) Complex[T] {
	scale := MaxMagnitude[T]()
	return Complex[T]{
		Re: clamp[T](float64(real(x)) * scale),
		Im: clamp[T](float64(imag(x)) * scale),
	}
}

// QuantizeCoeff converts one real filter coefficient into tier T with
// rounding to nearest.
func QuantizeCoeff[T Int](c float64) T {
	return clamp[T](math.Round(c * MaxMagnitude[T]()))
}

// FromQ15 widens a Q15 sample into tier T. For the Q31 tier this is
// the 16-bit left shift the original capture path performs; for the
// Q15 tier it is the identity.
func FromQ15[T Int](x ComplexQ15) Complex[T] {
	var zero T
	switch any(zero).(type) {
	case int16:
		return Complex[T]{Re: T(x.Re), Im: T(x.Im)}
	case int32:
		return Complex[T]{Re: T(int32(x.Re) << promoteShift), Im: T(int32(x.Im) << promoteShift)}
	default:
		panic("fixed: unsupported sample type")
	}
}

// Complex64 converts a fixed-point sample back to floating point.
func (c Complex[T]) Complex64() complex64 {
	scale := float32(MaxMagnitude[T]())
	return complex(float32(c.Re)/scale, float32(c.Im)/scale)
}

// clamp converts a float64 to T, saturating at the type's limits.
// A plain Go conversion of an out-of-range float is unspecified.
func clamp[T Int](v float64) T {
	limit := MaxMagnitude[T]()
	if v > limit {
		return T(limit)
	}
	if v < -limit-1 {
		return T(-limit - 1)
	}
	return T(v)
}

// SatAdd16 adds two int16 values with saturation, matching the NEON
// vqadd.s16 instruction.
func SatAdd16(a, b int16) int16 {
	s := int32(a) + int32(b)
	if s > math.MaxInt16 {
		return math.MaxInt16
	}
	if s < math.MinInt16 {
		return math.MinInt16
	}
	return int16(s)
}

// SatAdd32 adds two int32 values with saturation, matching the NEON
// vqadd.s32 instruction.
func SatAdd32(a, b int32) int32 {
	s := int64(a) + int64(b)
	if s > math.MaxInt32 {
		return math.MaxInt32
	}
	if s < math.MinInt32 {
		return math.MinInt32
	}
	return int32(s)
}

// RoundMulHigh16 computes the saturating rounding doubling multiply
// returning the high half, matching NEON vqrdmulh.s16:
//
//	sat((2·a·b + 2^15) >> 16)
//
// For Q15 operands this is fixed-point multiplication with rounding.
// The only saturating case is a = b = MinInt16.
func RoundMulHigh16(a, b int16) int16 {
	p := (int32(a)*int32(b) + (1 << 14)) >> 15
	if p > math.MaxInt16 {
		return math.MaxInt16
	}
	return int16(p)
}

// RoundMulHigh32 is the 32-bit variant, matching NEON vqrdmulh.s32:
//
//	sat((2·a·b + 2^31) >> 32)
func RoundMulHigh32(a, b int32) int32 {
	p := (int64(a)*int64(b) + (1 << 30)) >> 31
	if p > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(p)
}
