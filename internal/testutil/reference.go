package testutil

import "math"

// RefResampler is a float64 implementation of the polyphase
// arbitrary-rate resampler, used as the numeric reference the
// fixed-point core is validated against. It runs the identical timing
// state machine with no quantization anywhere.
type RefResampler struct {
	phaseCount int
	taps       int
	coeffs     [][]float64 // [phase][tap], reversed like the bank
	window     []complex128

	rate, del float64
	tau, bf   float64
	b         int
	mu        float64
	y0, y1    complex128
	boundary  bool
}

// NewRefResampler builds a reference resampler from the same prototype
// coefficients handed to the fixed-point bank (already normalized to
// the phase count).
func NewRefResampler(phaseCount int, coeffs []float64) *RefResampler {
	taps := len(coeffs) / phaseCount
	r := &RefResampler{
		phaseCount: phaseCount,
		taps:       taps,
		coeffs:     make([][]float64, phaseCount),
		window:     make([]complex128, taps),
		rate:       1.0,
		del:        1.0,
	}
	for phase := range r.coeffs {
		sub := make([]float64, taps)
		for j := range sub {
			sub[j] = coeffs[(taps-1-j)*phaseCount+phase]
		}
		r.coeffs[phase] = sub
	}
	return r
}

// SetRate changes the resampling ratio.
func (r *RefResampler) SetRate(rate float64) {
	r.rate = rate
	r.del = 1.0 / rate
}

// Execute consumes one input sample and returns the interpolated
// outputs it produces.
func (r *RefResampler) Execute(x complex128) []complex128 {
	copy(r.window, r.window[1:])
	r.window[r.taps-1] = x

	var out []complex128
	for r.b < r.phaseCount {
		if !r.boundary {
			r.y0 = r.filter(r.b)
			if r.b == r.phaseCount-1 {
				r.boundary = true
				r.b = r.phaseCount
				continue
			}
			r.y1 = r.filter(r.b + 1)
		} else {
			r.y1 = r.filter(0)
			r.boundary = false
		}
		out = append(out, complex(1.0-r.mu, 0)*r.y0+complex(r.mu, 0)*r.y1)
		r.advance()
	}

	r.tau -= 1.0
	r.bf -= float64(r.phaseCount)
	r.b -= r.phaseCount
	return out
}

func (r *RefResampler) advance() {
	r.tau += r.del
	r.bf = r.tau * float64(r.phaseCount)
	r.b = int(math.Floor(r.bf))
	r.mu = r.bf - float64(r.b)
}

func (r *RefResampler) filter(phase int) complex128 {
	var sum complex128
	for j, c := range r.coeffs[phase] {
		sum += r.window[j] * complex(c, 0)
	}
	return sum
}
