package filter

// reverse flips buf in-place.
func reverse(buf []float64) {
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
}

// FiltFilt applies the cascade forward and then backward over the
// signal, in-place. The double pass cancels the cascade's phase shift,
// which matters for EEG: a phase-distorting filter would smear
// transients relative to the unfiltered reference channels. The
// effective magnitude response is squared.
func FiltFilt(coeffs []Coefficients, buf []float64) {
	if len(coeffs) == 0 || len(buf) == 0 {
		return
	}

	chain := NewChain(coeffs)
	chain.ProcessBlock(buf)

	chain.Reset()
	reverse(buf)
	chain.ProcessBlock(buf)
	reverse(buf)
}
