// Package welch estimates power spectral densities of EEG signals and
// decomposition sources using Welch's method: overlapping tapered
// segments, magnitude-squared FFT per segment, averaged across
// segments.
package welch

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/neuroanalyst/neuroclean/dsp/window"
)

// ErrInsufficientData reports that a signal is too short to fit a
// single analysis window.
var ErrInsufficientData = errors.New("welch: signal shorter than one window")

const defaultOverlap = 0.5

// Config holds estimation parameters.
type Config struct {
	// SampleRate is the sampling frequency in Hz. Required.
	SampleRate float64

	// FMin and FMax bound the returned frequency grid in Hz.
	// 0 <= FMin < FMax is required.
	FMin, FMax float64

	// WindowLength is the segment length in samples. Defaults to one
	// second of signal (round(SampleRate)).
	WindowLength int

	// Overlap is the fractional overlap between consecutive segments
	// in (0, 1). Zero and out-of-range values select the default 0.5;
	// zero-overlap estimation is not supported.
	Overlap float64

	// WindowType selects the segment taper. Defaults to Hann.
	WindowType window.Type
}

// Spectrum pairs a shared frequency grid with per-signal power values.
// Freqs is monotonically increasing and identical for every signal in
// one estimate; Power[s][i] is the density of signal s at Freqs[i].
type Spectrum struct {
	Freqs []float64
	Power [][]float64
}

func (c Config) withDefaults() Config {
	if c.WindowLength <= 0 {
		c.WindowLength = int(math.Round(c.SampleRate))
	}
	if c.Overlap <= 0 || c.Overlap >= 1 {
		c.Overlap = defaultOverlap
	}
	return c
}

func (c Config) validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("welch: sample rate must be > 0: %f", c.SampleRate)
	}
	if c.FMin < 0 || c.FMin >= c.FMax {
		return fmt.Errorf("welch: frequency range must satisfy 0 <= fmin < fmax: [%f, %f]", c.FMin, c.FMax)
	}
	return nil
}

// Estimate computes the Welch power spectral density of every signal
// over [FMin, FMax]. All signals must have the same length; the result
// shares one frequency grid across signals. Deterministic for
// identical input and parameters.
func Estimate(signals [][]float64, cfg Config) (*Spectrum, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(signals) == 0 {
		return nil, fmt.Errorf("welch: no signals given")
	}

	n := len(signals[0])
	for i, s := range signals {
		if len(s) != n {
			return nil, fmt.Errorf("welch: signal %d has %d samples, expected %d", i, len(s), n)
		}
	}

	wl := cfg.WindowLength
	if wl < 2 {
		return nil, fmt.Errorf("welch: window length must be >= 2: %d", wl)
	}
	if wl > n {
		return nil, fmt.Errorf("%w: %d samples, window %d", ErrInsufficientData, n, wl)
	}

	step := wl - int(float64(wl)*cfg.Overlap)
	if step < 1 {
		step = 1
	}

	fftSize := nextPowerOf2(wl)
	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("welch: fft plan: %w", err)
	}

	coeffs := window.Generate(cfg.WindowType, wl)
	if coeffs == nil {
		return nil, fmt.Errorf("welch: unknown window type %d", cfg.WindowType)
	}

	// Density normalization: 1 / (fs * sum(w^2)), with one-sided
	// doubling applied later to all bins except DC and Nyquist.
	norm := 1 / (cfg.SampleRate * window.SumSquared(coeffs))

	binHz := cfg.SampleRate / float64(fftSize)
	i0 := int(math.Ceil(cfg.FMin / binHz))
	i1 := int(math.Floor(cfg.FMax / binHz))
	if i1 > fftSize/2 {
		i1 = fftSize / 2
	}
	if i0 > i1 {
		return nil, fmt.Errorf("welch: no frequency bins inside [%f, %f] Hz", cfg.FMin, cfg.FMax)
	}

	freqs := make([]float64, i1-i0+1)
	for i := range freqs {
		freqs[i] = float64(i0+i) * binHz
	}

	nBins := fftSize/2 + 1
	in := make([]complex128, fftSize)
	out := make([]complex128, fftSize)
	re := make([]float64, nBins)
	im := make([]float64, nBins)
	binPower := make([]float64, nBins)
	acc := make([]float64, nBins)

	power := make([][]float64, len(signals))
	for s, signal := range signals {
		for i := range acc {
			acc[i] = 0
		}

		segments := 0
		for start := 0; start+wl <= n; start += step {
			for i := range in {
				if i < wl {
					in[i] = complex(signal[start+i]*coeffs[i], 0)
				} else {
					in[i] = 0
				}
			}
			if err := plan.Forward(out, in); err != nil {
				return nil, fmt.Errorf("welch: fft: %w", err)
			}

			for i := range nBins {
				re[i] = real(out[i])
				im[i] = imag(out[i])
			}
			vecmath.Power(binPower, re, im)
			vecmath.AddBlockInPlace(acc, binPower)
			segments++
		}

		psd := make([]float64, len(freqs))
		for i := range psd {
			bin := i0 + i
			v := acc[bin] * norm / float64(segments)
			if bin != 0 && bin != fftSize/2 {
				v *= 2
			}
			psd[i] = v
		}
		power[s] = psd
	}

	return &Spectrum{Freqs: freqs, Power: power}, nil
}

func nextPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}

	p := 1
	for p < n {
		p <<= 1
	}

	return p
}
