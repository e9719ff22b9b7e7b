// Package filter designs the prototype FIR filters the resampler
// decomposes into its polyphase bank.
package filter

import (
	"fmt"
	"math"

	"github.com/tphakala/go-iq-resampler/internal/mathutil"
)

const (
	minFilterTaps = 3
	maxFilterTaps = 65537

	// Arguments below this magnitude take the sinc center-tap limit.
	sincZeroThreshold = 1e-10
)

// Params holds the prototype filter design parameters.
type Params struct {
	// Length is the number of taps. Odd lengths give a symmetric
	// linear-phase filter centered on an integer sample.
	Length int

	// Cutoff is the normalized passband edge in (0, 0.5), where 0.5
	// is Nyquist.
	Cutoff float64

	// Attenuation is the stopband attenuation in dB; it sets the
	// Kaiser window β.
	Attenuation float64
}

// Validate checks the design parameters.
func (p *Params) Validate() error {
	if p.Length < minFilterTaps || p.Length > maxFilterTaps {
		return fmt.Errorf("filter length %d out of range [%d, %d]",
			p.Length, minFilterTaps, maxFilterTaps)
	}
	if p.Cutoff <= 0 || p.Cutoff >= 0.5 {
		return fmt.Errorf("cutoff %f out of range (0, 0.5)", p.Cutoff)
	}
	if p.Attenuation <= 0 {
		return fmt.Errorf("attenuation %f dB must be positive", p.Attenuation)
	}
	return nil
}

// KaiserWindow generates a Kaiser window of the given length and β.
//
//	w[n] = I₀(β·√(1 − ((n−α)/α)²)) / I₀(β),  α = (length−1)/2
//
// The window is symmetric: w[i] = w[length−1−i].
func KaiserWindow(length int, beta float64) []float64 {
	if length < 1 {
		return nil
	}
	window := make([]float64, length)
	if length == 1 {
		window[0] = 1.0
		return window
	}

	alpha := float64(length-1) / 2.0
	i0Beta := mathutil.BesselI0(beta)

	for n := range window {
		x := (float64(n) - alpha) / alpha
		window[n] = mathutil.BesselI0(beta*math.Sqrt(1.0-x*x)) / i0Beta
	}
	return window
}

// Design produces a Kaiser-windowed sinc lowpass filter of exactly
// p.Length taps. The coefficients are not normalized; callers that
// need a specific DC gain scale the result themselves (the polyphase
// resampler normalizes the sum to its phase count so each phase keeps
// unity gain).
func Design(p Params) ([]float64, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid filter parameters: %w", err)
	}

	beta := mathutil.KaiserBeta(p.Attenuation)
	window := KaiserWindow(p.Length, beta)

	h := make([]float64, p.Length)
	center := float64(p.Length-1) / 2.0

	for n := range h {
		x := float64(n) - center

		// sinc: sin(2πfc·x)/(πx), with the L'Hôpital limit 2·fc at
		// the center tap.
		var sinc float64
		if math.Abs(x) < sincZeroThreshold {
			sinc = 2.0 * p.Cutoff
		} else {
			sinc = math.Sin(2.0*math.Pi*p.Cutoff*x) / (math.Pi * x)
		}

		h[n] = sinc * window[n]
	}

	return h, nil
}
