// Package band scores spectral power inside named frequency bands and
// standardizes the scores across a population of signals. This is the
// statistic behind the muscle-artifact rule: sources whose high-band
// power sits far above the population mean are rejected.
package band

import (
	"errors"
	"fmt"
	"math"

	"github.com/neuroanalyst/neuroclean/dsp/welch"
)

// ErrEmptyBand reports that no spectrum bins fall inside the requested
// frequency band.
var ErrEmptyBand = errors.New("band: no spectrum bins inside requested band")

// Power returns the mean spectral power of every signal over bins whose
// frequency lies in [low, high].
func Power(spec *welch.Spectrum, low, high float64) ([]float64, error) {
	if spec == nil || len(spec.Freqs) == 0 {
		return nil, fmt.Errorf("band: empty spectrum")
	}
	if low > high {
		return nil, fmt.Errorf("band: low %f above high %f", low, high)
	}

	first, count := -1, 0
	for i, f := range spec.Freqs {
		if f >= low && f <= high {
			if first < 0 {
				first = i
			}
			count++
		}
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: [%f, %f] Hz against grid [%f, %f] Hz",
			ErrEmptyBand, low, high, spec.Freqs[0], spec.Freqs[len(spec.Freqs)-1])
	}

	out := make([]float64, len(spec.Power))
	for s, psd := range spec.Power {
		var sum float64
		for i := first; i < first+count; i++ {
			sum += psd[i]
		}
		out[s] = sum / float64(count)
	}
	return out, nil
}

// Standardize converts values to z-scores against the mean and
// population standard deviation of the whole slice. When the standard
// deviation is zero (all values identical) every z-score is 0 by
// definition rather than a division-by-zero failure.
func Standardize(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}

	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))

	out := make([]float64, len(values))
	std := math.Sqrt(variance)
	if std == 0 {
		return out
	}
	for i, v := range values {
		out[i] = (v - mean) / std
	}
	return out
}
