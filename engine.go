package resamp

import (
	"math"

	"github.com/tphakala/go-iq-resampler/internal/dotprod"
	"github.com/tphakala/go-iq-resampler/internal/firpfb"
	"github.com/tphakala/go-iq-resampler/internal/fixed"
)

// resampState is the timing-phase machine state.
type resampState int

const (
	// stateInterp is the normal case: branches b and b+1 both reside
	// in the current window.
	stateInterp resampState = iota

	// stateBoundary is entered when b lands on the last branch; the
	// "next" branch is phase 0 of the window after the following
	// input sample, so one interpolation is deferred across the
	// input-sample boundary.
	stateBoundary
)

// engine is the tier-generic resampler core: one polyphase filterbank
// plus the timing-phase state machine. The same code path serves both
// fixed-point tiers; only quantization width differs.
type engine[T fixed.Int] struct {
	pfb  *firpfb.Bank[T]
	npfb int

	rate float64 // output/input ratio
	del  float64 // fractional delay step, 1/rate

	tau float64 // accumulated timing phase
	bf  float64 // soft filterbank index, tau*npfb = b + mu
	b   int     // base filterbank index
	mu  float64 // fractional interpolation weight

	// Filterbank outputs at branches b and b+1, retained across calls
	// for the deferred boundary interpolation.
	y0, y1 fixed.Complex[T]

	state resampState
}

func newEngine[T fixed.Int](pfb *firpfb.Bank[T], npfb int) *engine[T] {
	return &engine[T]{
		pfb:  pfb,
		npfb: npfb,
		rate: 1.0,
		del:  1.0,
	}
}

func (e *engine[T]) setRate(rate float64) {
	e.rate = rate
	e.del = 1.0 / rate
}

func (e *engine[T]) backend() dotprod.Backend {
	return e.pfb.Backend()
}

func (e *engine[T]) timing() (b int, mu float64, boundary bool) {
	return e.b, e.mu, e.state == stateBoundary
}

func (e *engine[T]) reset() {
	e.pfb.Reset()
	e.tau = 0
	e.bf = 0
	e.b = 0
	e.mu = 0
	e.y0 = fixed.Complex[T]{}
	e.y1 = fixed.Complex[T]{}
	e.state = stateInterp
}

func (e *engine[T]) execute(x complex64, out []complex64) int {
	return e.run(fixed.Quantize[T](x), out)
}

func (e *engine[T]) executeIQ16(x fixed.ComplexQ15, out []complex64) int {
	return e.run(fixed.FromQ15[T](x), out)
}

// run consumes one quantized input sample and emits the interpolated
// outputs due at timing phases inside the advanced window.
func (e *engine[T]) run(x fixed.Complex[T], out []complex64) int {
	e.pfb.Push(x)

	n := 0
	for e.b < e.npfb {
		if e.state == stateInterp {
			e.y0 = e.pfb.Execute(e.b)

			if e.b == e.npfb-1 {
				// The next branch is not resident yet. Defer this
				// output until the window advances.
				e.state = stateBoundary
				e.b = e.npfb
				continue
			}

			e.y1 = e.pfb.Execute(e.b + 1)
		} else {
			// The deferred branch: phase 0 of the freshly advanced
			// window completes the pair computed last call.
			e.y1 = e.pfb.Execute(0)
			e.state = stateInterp
		}

		out[n] = e.interpolate()
		n++
		e.advance()
	}

	// Re-base the timing phase: the window moved by exactly one input
	// sample.
	e.tau -= 1.0
	e.bf -= float64(e.npfb)
	e.b -= e.npfb

	return n
}

// interpolate blends the two branch outputs linearly by mu.
func (e *engine[T]) interpolate() complex64 {
	mu := float32(e.mu)
	return complex(1.0-mu, 0)*e.y0.Complex64() + complex(mu, 0)*e.y1.Complex64()
}

// advance steps the timing phase by one output interval and splits it
// into the integer branch index and fractional weight.
func (e *engine[T]) advance() {
	e.tau += e.del
	e.bf = e.tau * float64(e.npfb)
	e.b = int(math.Floor(e.bf))
	e.mu = e.bf - float64(e.b)
}
