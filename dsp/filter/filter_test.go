package filter

import (
	"math"
	"testing"

	"github.com/neuroanalyst/neuroclean/internal/testutil"
)

const sampleRate = 250.0

func attenuationDB(coeffs []Coefficients, freqHz float64) float64 {
	// Measure steady-state RMS of a filtered tone against the input
	// tone, discarding the transient half.
	const n = 4096
	tone := testutil.Sine(freqHz, sampleRate, 1.0, n)
	FiltFilt(coeffs, tone)

	out := testutil.RMS(tone[n/2:])
	in := 1.0 / math.Sqrt2
	if out == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(out/in)
}

func TestNotchRemovesTone(t *testing.T) {
	coeffs := []Coefficients{Notch(60, 30, sampleRate)}

	if got := attenuationDB(coeffs, 60); got > -30 {
		t.Fatalf("60 Hz tone attenuated only %.1f dB through 60 Hz notch", got)
	}
	if got := attenuationDB(coeffs, 10); got < -1 {
		t.Fatalf("10 Hz tone attenuated %.1f dB, notch should pass it", got)
	}
}

func TestBandpassSelectivity(t *testing.T) {
	coeffs := Bandpass(1, 40, 4, sampleRate)

	if got := attenuationDB(coeffs, 10); got < -3 {
		t.Fatalf("in-band 10 Hz tone attenuated %.1f dB", got)
	}
	if got := attenuationDB(coeffs, 90); got > -20 {
		t.Fatalf("out-of-band 90 Hz tone attenuated only %.1f dB", got)
	}
	if got := attenuationDB(coeffs, 0.2); got > -20 {
		t.Fatalf("drift at 0.2 Hz attenuated only %.1f dB", got)
	}
}

func TestDesignRejectsInvalidEdges(t *testing.T) {
	if c := Lowpass(0, 1, sampleRate); c != (Coefficients{}) {
		t.Fatalf("expected zero coefficients for freq 0, got %+v", c)
	}
	if c := Highpass(sampleRate, 1, sampleRate); c != (Coefficients{}) {
		t.Fatalf("expected zero coefficients above Nyquist, got %+v", c)
	}
	if s := ButterworthLP(10, 0, sampleRate); s != nil {
		t.Fatalf("expected nil cascade for order 0")
	}
}

func TestSectionProcessSampleMatchesBlock(t *testing.T) {
	c := Lowpass(20, 0.707, sampleRate)
	in := testutil.Noise(42, 1.0, 256)

	blk := append([]float64(nil), in...)
	NewSection(c).ProcessBlock(blk)

	s := NewSection(c)
	for i, x := range in {
		y := s.ProcessSample(x)
		if math.Abs(y-blk[i]) > 1e-12 {
			t.Fatalf("sample %d: ProcessSample=%g ProcessBlock=%g", i, y, blk[i])
		}
	}
}

func TestChainReset(t *testing.T) {
	chain := NewChain(Bandpass(1, 40, 2, sampleRate))
	buf := testutil.Noise(7, 1.0, 128)
	chain.ProcessBlock(buf)
	chain.Reset()

	zero := make([]float64, 32)
	chain.ProcessBlock(zero)
	for i, v := range zero {
		if v != 0 {
			t.Fatalf("state leaked after Reset: output[%d] = %g", i, v)
		}
	}
}

func TestFiltFiltZeroPhase(t *testing.T) {
	// A symmetric pulse stays centered after forward-backward filtering.
	const n = 1001
	in := make([]float64, n)
	for i := range in {
		d := float64(i - n/2)
		in[i] = math.Exp(-d * d / 200)
	}

	out := append([]float64(nil), in...)
	FiltFilt(ButterworthLP(20, 4, sampleRate), out)

	peak := 0
	for i, v := range out {
		if v > out[peak] {
			peak = i
		}
	}
	if d := peak - n/2; d < -1 || d > 1 {
		t.Fatalf("pulse peak moved from %d to %d, filtering is not zero-phase", n/2, peak)
	}
}
