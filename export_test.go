package resamp

// Timing exposes the state machine position for invariant tests: the
// base filterbank index, the fractional interpolation weight, and
// whether a boundary interpolation is pending.
func (r *Resampler) Timing() (b int, mu float64, boundary bool) {
	return r.core.timing()
}
