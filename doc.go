// Package resamp implements arbitrary-ratio resampling of complex
// baseband (I/Q) sample streams using a quantized fixed-point
// polyphase filterbank, as used in the audio output path of a
// software HD Radio receiver.
//
// The hardware delivers samples at a fixed rate; downstream
// demodulation wants an arbitrary, runtime-adjustable rate. The
// resampler decomposes one Kaiser-windowed sinc lowpass into
// PhaseCount short branches, each realizing a different fractional
// sample delay, and linearly interpolates between the two branches
// straddling the desired timing phase. Coefficients and the sample
// window are held in Q15 or Q31 fixed point so the per-sample work is
// a pair of short integer dot products.
//
// # Quick start
//
//	r, err := resamp.New(resamp.Params{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := r.SetRate(44100.0 / 46512.0); err != nil {
//	    log.Fatal(err)
//	}
//
//	out := make([]complex64, resamp.OutputLen(r.Rate()))
//	for _, x := range input {
//	    n := r.Execute(x, out)
//	    consume(out[:n])
//	}
//
// Each Execute call consumes exactly one input sample and produces
// zero or more output samples; over N inputs the output count tracks
// rate·N within one sample. SetRate may be called between any two
// Execute calls, which rate-tracking loops do continuously.
//
// # Precision tiers
//
// [PrecisionQ31] (default) runs the filterbank in 32-bit fixed point
// with saturating rounding multiplies; [PrecisionQ15] halves the
// memory traffic at a higher quantization noise floor. The dot-product
// kernels have NEON-, SSE2- and scalar-equivalent variants selected
// from CPU capabilities and overridable via [Params.Backend]; all
// variants of a tier agree within its quantization tolerance.
//
// A Resampler is single-threaded by design: no locks, no allocation
// after construction, bounded work per call.
package resamp
