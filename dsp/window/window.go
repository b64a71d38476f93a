// Package window provides the taper functions used for spectral
// estimation of EEG signals.
package window

import "math"

// Type identifies a window function.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	TypeHamming
	TypeBlackman
)

// String returns the lowercase window name.
func (t Type) String() string {
	switch t {
	case TypeRectangular:
		return "rectangular"
	case TypeHann:
		return "hann"
	case TypeHamming:
		return "hamming"
	case TypeBlackman:
		return "blackman"
	default:
		return "unknown"
	}
}

// Generate returns the symmetric window coefficients for the given type
// and size. Returns nil for size <= 0 or an unknown type.
func Generate(t Type, size int) []float64 {
	if size <= 0 {
		return nil
	}
	out := make([]float64, size)
	if size == 1 {
		out[0] = 1
		return out
	}

	n := float64(size - 1)
	for i := range out {
		x := float64(i) / n
		switch t {
		case TypeRectangular:
			out[i] = 1
		case TypeHann:
			out[i] = 0.5 - 0.5*math.Cos(2*math.Pi*x)
		case TypeHamming:
			out[i] = 0.54 - 0.46*math.Cos(2*math.Pi*x)
		case TypeBlackman:
			out[i] = 0.42 - 0.5*math.Cos(2*math.Pi*x) + 0.08*math.Cos(4*math.Pi*x)
		default:
			return nil
		}
	}
	return out
}

// SumSquared returns the sum of squared coefficients, the normalization
// term for power spectral density estimates.
func SumSquared(coeffs []float64) float64 {
	var s float64
	for _, c := range coeffs {
		s += c * c
	}
	return s
}
