// Package dotprod provides the fixed-point complex dot-product kernels
// at the heart of the polyphase filterbank.
//
// Each precision tier has several kernels that are alternate codepaths
// for the same mathematical operation: the NEON variant uses saturating
// rounding high-half multiplies, the SSE2 variant works through
// single-precision floats, and the scalar variant is the portable
// reference. All kernels for a tier agree within that tier's
// quantization noise floor and each is independently testable against
// the scalar reference.
//
// The active backend is chosen once at package initialization from CPU
// capabilities and can be overridden per filterbank, which the tests
// use to cross-check the variants.
package dotprod

import (
	"math"
	"runtime"

	"golang.org/x/sys/cpu"

	"github.com/tphakala/go-iq-resampler/internal/fixed"
)

// Backend identifies one dot-product implementation.
type Backend int

const (
	// BackendAuto selects the best backend for the host CPU.
	BackendAuto Backend = iota

	// BackendScalar is the portable reference implementation.
	BackendScalar

	// BackendSSE2 mirrors the SSE2 path: operands converted to
	// single-precision floats, multiplied and accumulated in float,
	// then converted back with rounding.
	BackendSSE2

	// BackendNEON mirrors the NEON path: per-tap saturating rounding
	// high-half multiplies accumulated with saturating adds.
	BackendNEON
)

// String returns the backend name.
func (b Backend) String() string {
	switch b {
	case BackendAuto:
		return "auto"
	case BackendScalar:
		return "scalar"
	case BackendSSE2:
		return "sse2"
	case BackendNEON:
		return "neon"
	default:
		return "unknown"
	}
}

// Valid reports whether b names a selectable backend.
func (b Backend) Valid() bool {
	return b >= BackendAuto && b <= BackendNEON
}

// detected is resolved once at init.
var detected = detect()

// detect picks the backend matching the host's SIMD capability. The
// kernels themselves are portable Go, so this mirrors the arithmetic
// the platform's intrinsics would use rather than gating correctness.
func detect() Backend {
	switch runtime.GOARCH {
	case "arm64":
		if cpu.ARM64.HasASIMD {
			return BackendNEON
		}
	case "arm":
		if cpu.ARM.HasNEON {
			return BackendNEON
		}
	case "amd64", "386":
		if cpu.X86.HasSSE2 {
			return BackendSSE2
		}
	}
	return BackendScalar
}

// Detected returns the backend chosen for the host CPU.
func Detected() Backend {
	return detected
}

// Ops bundles the kernels for one precision tier. Coefficients are
// stored duplicated (each tap twice, for the real and imaginary lanes)
// so coeffs[2*i] is tap i; samples is the window slice whose last
// element is the most recent sample.
type Ops[T fixed.Int] struct {
	// Backend identifies which variant these ops implement.
	Backend Backend

	// DotProduct computes the complex fixed-point inner product of
	// len(samples) taps. len(coeffs) must be 2*len(samples).
	DotProduct func(samples []fixed.Complex[T], coeffs []T) fixed.Complex[T]
}

// For returns the ops implementing backend b for tier T.
// BackendAuto resolves to the detected backend. The Q15 tier has no
// dedicated SSE2 kernel; requesting it returns the scalar kernel.
func For[T fixed.Int](b Backend) *Ops[T] {
	if b == BackendAuto {
		b = detected
	}

	var zero T
	switch any(zero).(type) {
	case int16:
		ops := opsQ15(b)
		return any(ops).(*Ops[T])
	case int32:
		ops := opsQ31(b)
		return any(ops).(*Ops[T])
	default:
		panic("dotprod: unsupported sample type")
	}
}

// Backends lists the distinct selectable backends for tests.
func Backends() []Backend {
	return []Backend{BackendScalar, BackendSSE2, BackendNEON}
}

// Pre-instantiated ops tables, one per tier and backend.
var (
	scalarQ15 = Ops[int16]{Backend: BackendScalar, DotProduct: dotScalarQ15}
	neonQ15   = Ops[int16]{Backend: BackendNEON, DotProduct: dotNEONQ15}

	scalarQ31 = Ops[int32]{Backend: BackendScalar, DotProduct: dotScalarQ31}
	sse2Q31   = Ops[int32]{Backend: BackendSSE2, DotProduct: dotSSE2Q31}
	neonQ31   = Ops[int32]{Backend: BackendNEON, DotProduct: dotNEONQ31}
)

func opsQ15(b Backend) *Ops[int16] {
	if b == BackendNEON {
		return &neonQ15
	}
	return &scalarQ15
}

func opsQ31(b Backend) *Ops[int32] {
	switch b {
	case BackendNEON:
		return &neonQ31
	case BackendSSE2:
		return &sse2Q31
	default:
		return &scalarQ31
	}
}

// dotScalarQ15 is the portable Q15 kernel: each product is rescaled by
// an arithmetic right shift before accumulation.
func dotScalarQ15(samples []fixed.ComplexQ15, coeffs []int16) fixed.ComplexQ15 {
	var sum fixed.ComplexQ15
	for i, s := range samples {
		c := int32(coeffs[2*i])
		sum.Re += int16((int32(s.Re) * c) >> 15)
		sum.Im += int16((int32(s.Im) * c) >> 15)
	}
	return sum
}

// dotNEONQ15 mirrors vqrdmulh.s16 + vqadd.s16.
func dotNEONQ15(samples []fixed.ComplexQ15, coeffs []int16) fixed.ComplexQ15 {
	var sum fixed.ComplexQ15
	for i, s := range samples {
		c := coeffs[2*i]
		sum.Re = fixed.SatAdd16(sum.Re, fixed.RoundMulHigh16(s.Re, c))
		sum.Im = fixed.SatAdd16(sum.Im, fixed.RoundMulHigh16(s.Im, c))
	}
	return sum
}

// dotScalarQ31 is the portable Q31 kernel, accumulating in
// single-precision floats like the upstream fallback.
func dotScalarQ31(samples []fixed.ComplexQ31, coeffs []int32) fixed.ComplexQ31 {
	var sum complex64
	for i, s := range samples {
		c := float32(coeffs[2*i]) / fixed.MaxQ31
		sum += s.Complex64() * complex(c, 0)
	}
	return fixed.Quantize[int32](sum)
}

// dotNEONQ31 mirrors vqrdmulh.s32 + vqadd.s32.
func dotNEONQ31(samples []fixed.ComplexQ31, coeffs []int32) fixed.ComplexQ31 {
	var sum fixed.ComplexQ31
	for i, s := range samples {
		c := coeffs[2*i]
		sum.Re = fixed.SatAdd32(sum.Re, fixed.RoundMulHigh32(s.Re, c))
		sum.Im = fixed.SatAdd32(sum.Im, fixed.RoundMulHigh32(s.Im, c))
	}
	return sum
}

// dotSSE2Q31 mirrors the SSE2 path: divide operands down to floats,
// multiply-accumulate, scale back up and convert with rounding
// (cvtps2dq rounds to nearest).
func dotSSE2Q31(samples []fixed.ComplexQ31, coeffs []int32) fixed.ComplexQ31 {
	const shift = float32(1 << 31)
	var re, im float32
	for i, s := range samples {
		c := float32(coeffs[2*i]) / shift
		re += float32(s.Re) / shift * c
		im += float32(s.Im) / shift * c
	}
	return fixed.ComplexQ31{
		Re: roundToInt32(re * shift),
		Im: roundToInt32(im * shift),
	}
}

// roundToInt32 converts with round-to-nearest and clamps, the
// observable behavior of _mm_cvtps_epi32 for in-range values.
func roundToInt32(v float32) int32 {
	r := math.RoundToEven(float64(v))
	if r > math.MaxInt32 {
		return math.MaxInt32
	}
	if r < math.MinInt32 {
		return math.MinInt32
	}
	return int32(r)
}
