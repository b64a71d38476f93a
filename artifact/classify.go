// Package artifact classifies decomposition sources as ocular (EOG) or
// muscular (EMG) artifacts. Each rule scores every source, compares the
// scores against a threshold, and reports both the flagged indices and
// the full score set so the cleaning record can show why each source
// was kept or rejected.
package artifact

import (
	"fmt"
	"math"

	"github.com/neuroanalyst/neuroclean/dsp/welch"
	"github.com/neuroanalyst/neuroclean/stats/band"
)

// Rule names as they appear in cleaning records.
const (
	RuleEOG = "eog-correlation"
	RuleEMG = "emg-band-power"
)

// Auto threshold constants. EMG follows the fixed 2.0 cutoff of the
// band-power rule; EOG uses the conventional 3.0 z-score cutoff for
// correlation outliers.
const (
	AutoEMGThreshold = 2.0
	AutoEOGThreshold = 3.0
)

// EMG band definitions in Hz: spectra are estimated over
// [emgFMin, emgFMax] and scored over [emgBandLow, emgBandHigh], where
// muscle activity dominates over cortical signal.
const (
	emgFMin     = 1.0
	emgFMax     = 100.0
	emgBandLow  = 30.0
	emgBandHigh = 100.0
)

// Detection is one classification outcome: the z-score (or z-scored
// correlation) a rule assigned to a source and the cutoff it was
// compared against.
type Detection struct {
	Index     int
	Rule      string
	Score     float64
	Threshold float64
	Rejected  bool
}

// FindEMG scores every source by its mean spectral power in the
// muscle band, standardized across the source population, and flags
// sources whose z-score exceeds the threshold. The auto threshold
// resolves to AutoEMGThreshold.
func FindEMG(sources [][]float64, sampleRate float64, th Threshold) ([]Detection, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("artifact: no sources to classify")
	}

	spec, err := welch.Estimate(sources, welch.Config{
		SampleRate: sampleRate,
		FMin:       emgFMin,
		FMax:       emgFMax,
	})
	if err != nil {
		return nil, err
	}

	power, err := band.Power(spec, emgBandLow, emgBandHigh)
	if err != nil {
		return nil, err
	}

	cutoff := th.Resolve(AutoEMGThreshold)
	z := band.Standardize(power)

	out := make([]Detection, len(z))
	for i, score := range z {
		out[i] = Detection{
			Index:     i,
			Rule:      RuleEMG,
			Score:     score,
			Threshold: cutoff,
			Rejected:  score > cutoff,
		}
	}
	return out, nil
}

// FindEOG scores every source by its strongest absolute Pearson
// correlation against the eye-movement reference channels,
// standardizes the scores across sources, and flags z-scores exceeding
// the threshold. The auto threshold resolves to AutoEOGThreshold.
func FindEOG(sources, refs [][]float64, th Threshold) ([]Detection, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("artifact: no sources to classify")
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("artifact: no EOG reference channels")
	}

	scores := make([]float64, len(sources))
	for i, src := range sources {
		best := 0.0
		for _, ref := range refs {
			if c := math.Abs(pearson(src, ref)); c > best {
				best = c
			}
		}
		scores[i] = best
	}

	cutoff := th.Resolve(AutoEOGThreshold)
	z := band.Standardize(scores)

	out := make([]Detection, len(z))
	for i, score := range z {
		out[i] = Detection{
			Index:     i,
			Rule:      RuleEOG,
			Score:     score,
			Threshold: cutoff,
			Rejected:  score > cutoff,
		}
	}
	return out, nil
}

// Union merges the rejected indices of the EOG and EMG detections into
// one exclusion set: insertion order is all EOG rejections first, then
// EMG rejections not already present. An index flagged by both rules
// appears once.
func Union(eog, emg []Detection) []int {
	var out []int
	seen := make(map[int]bool)
	for _, d := range eog {
		if d.Rejected && !seen[d.Index] {
			seen[d.Index] = true
			out = append(out, d.Index)
		}
	}
	for _, d := range emg {
		if d.Rejected && !seen[d.Index] {
			seen[d.Index] = true
			out = append(out, d.Index)
		}
	}
	return out
}

// pearson computes the Pearson correlation coefficient of two signals
// of equal length. Zero-variance input yields 0.
func pearson(a, b []float64) float64 {
	n := len(a)
	if n == 0 || n != len(b) {
		return 0
	}

	var ma, mb float64
	for i := range a {
		ma += a[i]
		mb += b[i]
	}
	ma /= float64(n)
	mb /= float64(n)

	var num, va, vb float64
	for i := range a {
		da := a[i] - ma
		db := b[i] - mb
		num += da * db
		va += da * da
		vb += db * db
	}
	if va == 0 || vb == 0 {
		return 0
	}
	return num / math.Sqrt(va*vb)
}
