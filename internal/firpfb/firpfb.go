// Package firpfb implements the quantized polyphase FIR filterbank
// backing the resampler.
//
// A Bank decomposes one prototype lowpass filter of length
// phaseCount·tapsPerPhase into phaseCount sub-filters, each realizing a
// different fractional sample delay. Input samples are pushed into a
// shared sliding window; executing phase f produces the dot product of
// the most recent tapsPerPhase samples against that phase's
// coefficients.
package firpfb

import (
	"fmt"

	"github.com/tphakala/go-iq-resampler/internal/dotprod"
	"github.com/tphakala/go-iq-resampler/internal/fixed"
)

// WindowSize is the fixed capacity of the sliding input window. The
// window compacts in place when full, so pushes stay amortized O(1)
// with one O(tapsPerPhase) copy every WindowSize−tapsPerPhase+1
// samples.
const WindowSize = 2048

// Bank is a fixed-point polyphase filterbank for tier T. Coefficients
// are immutable after construction; the window and write index are the
// only mutable state, so a Bank must not be used from multiple
// goroutines concurrently.
type Bank[T fixed.Int] struct {
	phaseCount   int
	tapsPerPhase int

	// Quantized coefficients, phase-major, each tap duplicated for
	// the real and imaginary lanes and stored in reverse order so a
	// phase lines up with the window's append order.
	coeffs []T

	window []fixed.Complex[T]
	idx    int

	ops *dotprod.Ops[T]
}

// New builds a filterbank from a floating-point prototype filter.
//
// len(coeffs) must be an exact multiple of phaseCount and the
// resulting per-phase tap count must equal tapsPerPhase, the tap count
// the precision tier was configured for. Both are construction-time
// preconditions: violating them is a configuration error, not a
// recoverable condition, and New refuses to build the bank.
func New[T fixed.Int](phaseCount int, coeffs []float64, tapsPerPhase int, backend dotprod.Backend) (*Bank[T], error) {
	if phaseCount < 1 {
		return nil, fmt.Errorf("firpfb: phase count %d must be at least 1", phaseCount)
	}
	if len(coeffs)%phaseCount != 0 {
		return nil, fmt.Errorf("firpfb: filter length %d is not divisible by phase count %d",
			len(coeffs), phaseCount)
	}
	if sub := len(coeffs) / phaseCount; sub != tapsPerPhase {
		return nil, fmt.Errorf("firpfb: filter yields %d taps per phase, tier is configured for %d",
			sub, tapsPerPhase)
	}
	if tapsPerPhase > WindowSize/2 {
		return nil, fmt.Errorf("firpfb: %d taps per phase exceeds window capacity", tapsPerPhase)
	}

	b := &Bank[T]{
		phaseCount:   phaseCount,
		tapsPerPhase: tapsPerPhase,
		coeffs:       make([]T, 2*len(coeffs)),
		window:       make([]fixed.Complex[T], WindowSize),
		idx:          tapsPerPhase - 1,
		ops:          dotprod.For[T](backend),
	}

	// Quantize with rounding to nearest. Within each phase the taps
	// are reversed so coefficient j meets the sample pushed j steps
	// after the oldest one in the span, and duplicated so SIMD lanes
	// can load one coefficient against both complex components.
	for phase := 0; phase < phaseCount; phase++ {
		for j := 0; j < tapsPerPhase; j++ {
			c := fixed.QuantizeCoeff[T](coeffs[(tapsPerPhase-1-j)*phaseCount+phase])
			b.coeffs[(phase*tapsPerPhase+j)*2] = c
			b.coeffs[(phase*tapsPerPhase+j)*2+1] = c
		}
	}

	return b, nil
}

// PhaseCount returns the number of sub-filters.
func (b *Bank[T]) PhaseCount() int {
	return b.phaseCount
}

// TapsPerPhase returns the length of each sub-filter.
func (b *Bank[T]) TapsPerPhase() int {
	return b.tapsPerPhase
}

// Backend returns the dot-product backend the bank executes with.
func (b *Bank[T]) Backend() dotprod.Backend {
	return b.ops.Backend
}

// Push appends one quantized sample to the window. When the write
// index reaches capacity the trailing tapsPerPhase−1 samples are
// copied to the front first, preserving the invariant that the most
// recent tapsPerPhase samples are contiguous below the write index.
func (b *Bank[T]) Push(x fixed.Complex[T]) {
	if b.idx == WindowSize {
		copy(b.window[:b.tapsPerPhase-1], b.window[b.idx-b.tapsPerPhase+1:b.idx])
		b.idx = b.tapsPerPhase - 1
	}
	b.window[b.idx] = x
	b.idx++
}

// Execute computes the filterbank output for the given phase over the
// current window. The phase must be in [0, PhaseCount) and at least
// one sample must have been pushed; the window is only read.
func (b *Bank[T]) Execute(phase int) fixed.Complex[T] {
	span := b.window[b.idx-b.tapsPerPhase : b.idx]
	h := b.coeffs[phase*2*b.tapsPerPhase : (phase+1)*2*b.tapsPerPhase]
	return b.ops.DotProduct(span, h)
}

// Reset zeroes the window and rewinds the write index, returning the
// bank to its freshly constructed state. Coefficients are untouched.
func (b *Bank[T]) Reset() {
	for i := range b.window {
		b.window[i] = fixed.Complex[T]{}
	}
	b.idx = b.tapsPerPhase - 1
}
