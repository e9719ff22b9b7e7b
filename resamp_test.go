package resamp

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/simd/f64"

	"github.com/tphakala/go-iq-resampler/internal/filter"
	"github.com/tphakala/go-iq-resampler/internal/testutil"
)

const (
	// Audio-path ratio of the receiver this core was written for:
	// 44.1 kHz out of the 46512 Hz the demodulator delivers.
	receiverRate = 44100.0 / 46512.0

	dcLevel     = 0.5
	dcTolerance = 0.02 // per-branch DC ripple plus quantization

	testSeed = 42
)

func mustNew(t *testing.T, params Params) *Resampler {
	t.Helper()
	r, err := New(params)
	require.NoError(t, err)
	return r
}

// feed pushes the input through the resampler and collects all output.
func feed(r *Resampler, input []complex64) []complex64 {
	out := make([]complex64, 0, len(input)*2)
	buf := make([]complex64, OutputLen(r.Rate()))
	for _, x := range input {
		n := r.Execute(x, buf)
		out = append(out, buf[:n]...)
	}
	return out
}

func TestNew_Defaults(t *testing.T) {
	r := mustNew(t, Params{})

	info := r.Info()
	assert.Equal(t, PrecisionQ31, info.Precision)
	assert.Equal(t, DefaultPhaseCount, info.PhaseCount)
	assert.Equal(t, 2*DefaultM, info.TapsPerPhase)
	assert.Equal(t, 2*DefaultM*DefaultPhaseCount+1, info.FilterLength)
	assert.Equal(t, DefaultM, info.GroupDelay)
	assert.NotEmpty(t, info.Backend)
	assert.Equal(t, 1.0, r.Rate())
}

func TestNew_InvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		params Params
	}{
		{"negative_m", Params{M: -1}},
		{"cutoff_too_high", Params{Cutoff: 0.6}},
		{"negative_attenuation", Params{Attenuation: -10}},
		{"one_phase", Params{PhaseCount: 1}},
		{"bad_precision", Params{Precision: Precision(7)}},
		{"bad_backend", Params{Backend: Backend(9)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.params)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidParams)
		})
	}
}

func TestSetRate_Validation(t *testing.T) {
	r := mustNew(t, Params{})
	assert.Error(t, r.SetRate(0))
	assert.Error(t, r.SetRate(-1.5))
	assert.Error(t, r.SetRate(math.Inf(1)))
	assert.Error(t, r.SetRate(math.NaN()))
	require.NoError(t, r.SetRate(receiverRate))
	assert.Equal(t, receiverRate, r.Rate())
}

func TestOutputLen(t *testing.T) {
	assert.Equal(t, 2, OutputLen(1.0))
	assert.Equal(t, 3, OutputLen(1.1))
	assert.Equal(t, 2, OutputLen(0.5))
	assert.Equal(t, 4, OutputLen(2.5))
}

// TestOutputCount_TracksRate verifies the cumulative output count
// stays within one sample of rate·N: the timing phase never drifts
// past one input thanks to the per-input re-basing.
func TestOutputCount_TracksRate(t *testing.T) {
	const n = 4000

	rates := []float64{0.25, 0.5, receiverRate, 1.0, 1.318, 2.0, 3.7}
	rng := rand.New(rand.NewSource(testSeed))
	input := make([]complex64, n)
	for i := range input {
		input[i] = complex(float32(rng.Float64()-0.5), float32(rng.Float64()-0.5))
	}

	for _, precision := range []Precision{PrecisionQ31, PrecisionQ15} {
		for _, rate := range rates {
			r := mustNew(t, Params{Precision: precision})
			require.NoError(t, r.SetRate(rate))

			got := len(feed(r, input))
			want := rate * n
			assert.InDelta(t, want, float64(got), 1.5,
				"precision %s rate %f: %d outputs for %d inputs", precision, rate, got, n)
		}
	}
}

// TestDCInput_DCOutput checks a constant input yields a constant
// output at the same level, independent of rate: the prototype is
// normalized so every branch has unity DC gain.
func TestDCInput_DCOutput(t *testing.T) {
	const n = 500

	tests := []struct {
		name      string
		precision Precision
		rate      float64
		tolerance float64
	}{
		{"q31_unity", PrecisionQ31, 1.0, dcTolerance},
		{"q31_receiver", PrecisionQ31, receiverRate, dcTolerance},
		{"q31_up", PrecisionQ31, 1.6, dcTolerance},
		{"q15_receiver", PrecisionQ15, receiverRate, dcTolerance + testutil.ToleranceQ15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mustNew(t, Params{Precision: tt.precision})
			require.NoError(t, r.SetRate(tt.rate))

			out := feed(r, testutil.DC(n, dcLevel))
			require.NotEmpty(t, out)

			// Skip the filter fill transient.
			settle := int(float64(2*DefaultM) * tt.rate)
			for i, y := range out[settle:] {
				assert.InDelta(t, dcLevel, float64(real(y)), tt.tolerance, "output %d", i+settle)
				assert.InDelta(t, 0.0, float64(imag(y)), tt.tolerance, "output %d", i+settle)
			}
		})
	}
}

// TestRateOne_DelaysInput verifies that at rate 1 the resampler is a
// pure delay of M samples (the prototype's group delay) within the
// fixed-point noise floor.
func TestRateOne_DelaysInput(t *testing.T) {
	const n = 400

	input := testutil.Tone(n, 0.01, 0.7)
	r := mustNew(t, Params{})
	out := feed(r, input)
	require.Len(t, out, n)

	delay := r.Info().GroupDelay
	for i := 2 * delay; i < n; i++ {
		testutil.AssertComplexInDelta(t,
			complex128(input[i-delay]), complex128(out[i]),
			5e-3, "output %d", i)
	}
}

// TestBoundaryDeferral drives the phase index onto the last branch and
// verifies the deferred emission: nothing for that phase position
// until the next input advances the window.
func TestBoundaryDeferral(t *testing.T) {
	// With 4 phases and rate 4/3 the second output of the first input
	// lands exactly on branch 3, the boundary.
	r := mustNew(t, Params{PhaseCount: 4, M: 2})
	require.NoError(t, r.SetRate(4.0/3.0))

	buf := make([]complex64, OutputLen(r.Rate()))
	input := testutil.Tone(8, 0.02, 0.5)

	// First input: one sample emitted, then the boundary defers.
	n1 := r.Execute(input[0], buf)
	assert.Equal(t, 1, n1)
	_, _, boundary := r.Timing()
	assert.True(t, boundary, "state should be BOUNDARY after deferral")

	// Second input: the deferred sample plus one regular interpolation.
	n2 := r.Execute(input[1], buf)
	assert.Equal(t, 2, n2)
	_, _, boundary = r.Timing()
	assert.False(t, boundary, "state should return to INTERP")

	// Combined emission matches the rate across the boundary.
	assert.Equal(t, 3, n1+n2)
}

// TestTimingInvariants checks mu stays in [0,1) and the pending branch
// index stays addressable across a spread of rates, including ones
// that hit the boundary state often.
func TestTimingInvariants(t *testing.T) {
	rates := []float64{0.3, 0.75, 0.99, 1.0, 4.0 / 3.0, 1.5, 2.25}
	input := testutil.Tone(600, 0.03, 0.5)

	for _, rate := range rates {
		r := mustNew(t, Params{PhaseCount: 8, M: 4})
		require.NoError(t, r.SetRate(rate))

		buf := make([]complex64, OutputLen(rate))
		for i, x := range input {
			r.Execute(x, buf)

			b, mu, _ := r.Timing()
			assert.GreaterOrEqual(t, mu, 0.0, "rate %f input %d", rate, i)
			assert.Less(t, mu, 1.0, "rate %f input %d", rate, i)
			assert.GreaterOrEqual(t, b, 0, "rate %f input %d", rate, i)
		}
	}
}

// TestImpulse_MatchesFloatReference feeds a short impulse sequence
// through the small fixed-point configuration and compares against the
// float64 reference resampler running the identical state machine on
// the identical (pre-quantization) coefficients.
func TestImpulse_MatchesFloatReference(t *testing.T) {
	const (
		m        = 2
		phases   = 4
		protoLen = 2*m*phases + 1
	)

	proto, err := filter.Design(filter.Params{
		Length:      protoLen,
		Cutoff:      DefaultCutoff / phases,
		Attenuation: DefaultAttenuation,
	})
	require.NoError(t, err)
	f64.Scale(proto, proto, float64(phases)/f64.Sum(proto))

	for _, rate := range []float64{1.0, 4.0 / 3.0, 0.8} {
		r := mustNew(t, Params{M: m, PhaseCount: phases})
		require.NoError(t, r.SetRate(rate))

		ref := testutil.NewRefResampler(phases, proto[:protoLen-1])
		ref.SetRate(rate)

		buf := make([]complex64, OutputLen(rate))
		for i, x := range testutil.Impulse(5, 0.5) {
			n := r.Execute(x, buf)
			want := ref.Execute(complex128(x))
			require.Len(t, want, n, "rate %f input %d: emission counts diverge", rate, i)

			for j := range want {
				testutil.AssertComplexInDelta(t, want[j], complex128(buf[j]),
					testutil.ToleranceQ31, "rate %f input %d output %d", rate, i, j)
			}
		}
	}
}

// TestBackends_EndToEnd runs one stream through every backend and
// checks the outputs agree within the tier tolerance.
func TestBackends_EndToEnd(t *testing.T) {
	input := testutil.Tone(300, 0.04, 0.6)
	backends := []Backend{BackendScalar, BackendSSE2, BackendNEON}

	for _, precision := range []Precision{PrecisionQ31, PrecisionQ15} {
		tolerance := testutil.ToleranceQ31
		if precision == PrecisionQ15 {
			tolerance = testutil.ToleranceQ15
		}

		outputs := make([][]complex64, len(backends))
		for i, backend := range backends {
			r := mustNew(t, Params{Precision: precision, Backend: backend})
			require.NoError(t, r.SetRate(receiverRate))
			outputs[i] = feed(r, input)
		}

		for i := 1; i < len(backends); i++ {
			require.Len(t, outputs[i], len(outputs[0]),
				"%s: %s emits a different count than %s", precision, backends[i], backends[0])
			for j := range outputs[i] {
				testutil.AssertComplexInDelta(t,
					complex128(outputs[0][j]), complex128(outputs[i][j]), tolerance,
					"%s backend %s output %d", precision, backends[i], j)
			}
		}
	}
}

// TestExecuteIQ16_MatchesExecute checks the pre-quantized entry point
// against the float one for identical samples.
func TestExecuteIQ16_MatchesExecute(t *testing.T) {
	rFloat := mustNew(t, Params{})
	rFixed := mustNew(t, Params{})
	require.NoError(t, rFloat.SetRate(receiverRate))
	require.NoError(t, rFixed.SetRate(receiverRate))

	rng := rand.New(rand.NewSource(testSeed))
	bufA := make([]complex64, OutputLen(receiverRate))
	bufB := make([]complex64, OutputLen(receiverRate))

	for k := 0; k < 500; k++ {
		i := int16(rng.Intn(65536) - 32768)
		q := int16(rng.Intn(65536) - 32768)
		x := complex(float32(i)/32767.0, float32(q)/32767.0)

		na := rFloat.Execute(x, bufA)
		nb := rFixed.ExecuteIQ16(i, q, bufB)
		require.Equal(t, na, nb, "input %d", k)

		for j := 0; j < na; j++ {
			// The entry points quantize slightly differently (scale
			// by 32767 vs shift by 16), allow a few Q15 steps.
			testutil.AssertComplexInDelta(t,
				complex128(bufA[j]), complex128(bufB[j]), 4.0/32767.0,
				"input %d output %d", k, j)
		}
	}
}

// TestSetRate_Midstream retunes the ratio mid-stream and verifies the
// output count of each segment.
func TestSetRate_Midstream(t *testing.T) {
	const half = 2000

	r := mustNew(t, Params{})
	input := testutil.Tone(2*half, 0.02, 0.5)

	require.NoError(t, r.SetRate(0.9))
	first := len(feed(r, input[:half]))

	require.NoError(t, r.SetRate(1.3))
	second := len(feed(r, input[half:]))

	assert.InDelta(t, 0.9*half, float64(first), 2.0)
	assert.InDelta(t, 1.3*half, float64(second), 2.5)
}

// TestReset_Reproducible checks a reset instance replays a stream
// identically.
func TestReset_Reproducible(t *testing.T) {
	r := mustNew(t, Params{})
	require.NoError(t, r.SetRate(receiverRate))
	input := testutil.Tone(300, 0.05, 0.5)

	first := feed(r, input)
	r.Reset()
	second := feed(r, input)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i], second[i], "output %d", i)
	}
}

func BenchmarkExecute(b *testing.B) {
	for _, precision := range []Precision{PrecisionQ31, PrecisionQ15} {
		r, err := New(Params{Precision: precision})
		if err != nil {
			b.Fatal(err)
		}
		if err := r.SetRate(receiverRate); err != nil {
			b.Fatal(err)
		}

		buf := make([]complex64, OutputLen(receiverRate))
		x := complex(float32(0.3), float32(-0.2))

		b.Run(precision.String(), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				r.Execute(x, buf)
			}
		})
	}
}
