// Package testutil provides deterministic signal generators for tests.
package testutil

import (
	"math"
	"math/rand"
)

// Sine generates a deterministic sine wave.
func Sine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// Noise generates white noise with a fixed seed for reproducibility.
func Noise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// DC generates a constant-valued signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}
	return out
}

// Square generates a deterministic square wave, useful as a second
// independent source when testing signal separation.
func Square(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	period := sampleRate / freqHz
	for i := range out {
		phase := math.Mod(float64(i), period) / period
		if phase < 0.5 {
			out[i] = amplitude
		} else {
			out[i] = -amplitude
		}
	}
	return out
}

// Mix linearly combines source signals: out[ch] = sum_k a[ch][k]*src[k].
// All sources must have the same length.
func Mix(a [][]float64, sources [][]float64) [][]float64 {
	if len(sources) == 0 {
		return nil
	}
	n := len(sources[0])
	out := make([][]float64, len(a))
	for ch, row := range a {
		buf := make([]float64, n)
		for k, gain := range row {
			if k >= len(sources) {
				break
			}
			for i, v := range sources[k] {
				buf[i] += gain * v
			}
		}
		out[ch] = buf
	}
	return out
}

// RMS returns the root-mean-square amplitude of the signal.
func RMS(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}
	var sum float64
	for _, v := range signal {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(signal)))
}
