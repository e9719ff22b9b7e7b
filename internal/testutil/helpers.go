// Package testutil provides shared helpers for the resampler test
// suites: assertion utilities, complex signal generators, and a
// floating-point reference resampler.
package testutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/floats"
)

// Default tolerances.
const (
	DefaultTolerance = 1e-10

	// Real-value noise floors of the two fixed-point tiers, with
	// headroom for accumulation across a 16-tap dot product.
	ToleranceQ15 = 32.0 / 32767.0
	ToleranceQ31 = 1e-4
)

// AssertSymmetric verifies that a slice is symmetric (s[i] == s[n-1-i]).
func AssertSymmetric(t *testing.T, s []float64, tolerance float64) bool {
	t.Helper()
	n := len(s)
	for i := 0; i < n/2; i++ {
		j := n - 1 - i
		if !assert.InDelta(t, s[i], s[j], tolerance,
			"slice not symmetric: s[%d]=%f != s[%d]=%f", i, s[i], j, s[j]) {
			return false
		}
	}
	return true
}

// AssertNoNaNOrInf verifies that no elements are NaN or Inf.
func AssertNoNaNOrInf(t *testing.T, s []float64) bool {
	t.Helper()
	for i, v := range s {
		if math.IsNaN(v) {
			return assert.Fail(t, "found NaN", "s[%d] is NaN", i)
		}
		if math.IsInf(v, 0) {
			return assert.Fail(t, "found Inf", "s[%d] is Inf", i)
		}
	}
	return true
}

// AssertAllInRange verifies that all elements are within [minVal, maxVal].
func AssertAllInRange(t *testing.T, s []float64, minVal, maxVal float64) bool {
	t.Helper()
	for i, v := range s {
		if v < minVal || v > maxVal {
			return assert.Fail(t, "value out of range",
				"s[%d]=%f outside [%f, %f]", i, v, minVal, maxVal)
		}
	}
	return true
}

// AssertCenterIsMax verifies that the center element is the maximum.
func AssertCenterIsMax(t *testing.T, s []float64) bool {
	t.Helper()
	if len(s) == 0 {
		return assert.Fail(t, "empty slice")
	}
	center := len(s) / 2
	peak := floats.MaxIdx(s)
	return assert.Equal(t, s[center], s[peak],
		"max at index %d, expected center %d", peak, center)
}

// AssertComplexInDelta verifies both components of a complex value.
func AssertComplexInDelta(t *testing.T, want, got complex128, tolerance float64, msgAndArgs ...any) bool {
	t.Helper()
	ok := assert.InDelta(t, real(want), real(got), tolerance, msgAndArgs...)
	return assert.InDelta(t, imag(want), imag(got), tolerance, msgAndArgs...) && ok
}

// Tone generates a complex exponential of the given normalized
// frequency (cycles per sample) and amplitude.
func Tone(n int, freq, amplitude float64) []complex64 {
	out := make([]complex64, n)
	for i := range out {
		phase := 2.0 * math.Pi * freq * float64(i)
		out[i] = complex(float32(amplitude*math.Cos(phase)), float32(amplitude*math.Sin(phase)))
	}
	return out
}

// DC generates a constant complex sequence.
func DC(n int, level float64) []complex64 {
	out := make([]complex64, n)
	for i := range out {
		out[i] = complex(float32(level), 0)
	}
	return out
}

// Impulse generates a scaled impulse followed by zeros.
func Impulse(n int, amplitude float64) []complex64 {
	out := make([]complex64, n)
	if n > 0 {
		out[0] = complex(float32(amplitude), 0)
	}
	return out
}
