package welch

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/neuroanalyst/neuroclean/internal/testutil"
)

const sampleRate = 100.0

func TestEstimatePeakFrequency(t *testing.T) {
	sig := testutil.Sine(20, sampleRate, 1.0, 1000)

	spec, err := Estimate([][]float64{sig}, Config{
		SampleRate: sampleRate,
		FMin:       1,
		FMax:       49,
	})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}

	peak := 0
	for i, p := range spec.Power[0] {
		if p > spec.Power[0][peak] {
			peak = i
		}
	}
	if got := spec.Freqs[peak]; math.Abs(got-20) > 1.5 {
		t.Fatalf("peak at %.2f Hz, want ~20 Hz", got)
	}
}

func TestEstimateNonNegativeSharedGrid(t *testing.T) {
	signals := [][]float64{
		testutil.Sine(5, sampleRate, 1.0, 600),
		testutil.Noise(11, 0.5, 600),
		testutil.DC(0.3, 600),
	}

	spec, err := Estimate(signals, Config{SampleRate: sampleRate, FMin: 1, FMax: 45})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}

	if len(spec.Power) != len(signals) {
		t.Fatalf("got %d power rows, want %d", len(spec.Power), len(signals))
	}
	for s, psd := range spec.Power {
		if len(psd) != len(spec.Freqs) {
			t.Fatalf("signal %d: %d bins vs %d freqs", s, len(psd), len(spec.Freqs))
		}
		for i, p := range psd {
			if p < 0 {
				t.Fatalf("signal %d bin %d: negative power %g", s, i, p)
			}
		}
	}
	for i := 1; i < len(spec.Freqs); i++ {
		if spec.Freqs[i] <= spec.Freqs[i-1] {
			t.Fatalf("frequency grid not increasing at bin %d", i)
		}
	}
	if spec.Freqs[0] < 1 || spec.Freqs[len(spec.Freqs)-1] > 45 {
		t.Fatalf("grid [%f, %f] outside requested range", spec.Freqs[0], spec.Freqs[len(spec.Freqs)-1])
	}
}

func TestEstimateInsufficientData(t *testing.T) {
	short := testutil.Sine(5, sampleRate, 1.0, 50)

	_, err := Estimate([][]float64{short}, Config{
		SampleRate:   sampleRate,
		FMin:         1,
		FMax:         45,
		WindowLength: 100,
	})
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
}

func TestEstimateInvalidParams(t *testing.T) {
	sig := testutil.Sine(5, sampleRate, 1.0, 200)

	if _, err := Estimate([][]float64{sig}, Config{SampleRate: 0, FMin: 1, FMax: 45}); err == nil {
		t.Fatalf("expected error for zero sample rate")
	}
	if _, err := Estimate([][]float64{sig}, Config{SampleRate: sampleRate, FMin: 45, FMax: 1}); err == nil {
		t.Fatalf("expected error for fmin >= fmax")
	}
	if _, err := Estimate(nil, Config{SampleRate: sampleRate, FMin: 1, FMax: 45}); err == nil {
		t.Fatalf("expected error for empty signal set")
	}
	if _, err := Estimate([][]float64{sig, sig[:100]}, Config{SampleRate: sampleRate, FMin: 1, FMax: 45}); err == nil {
		t.Fatalf("expected error for mismatched signal lengths")
	}
}

func TestEstimateDeterministic(t *testing.T) {
	sig := testutil.Noise(3, 1.0, 500)
	cfg := Config{SampleRate: sampleRate, FMin: 1, FMax: 45}

	a, err := Estimate([][]float64{sig}, cfg)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	b, err := Estimate([][]float64{sig}, cfg)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("two estimates of identical input differ")
	}
}

func TestEstimateZeroOverlapSelectsDefault(t *testing.T) {
	sig := testutil.Noise(5, 1.0, 500)

	explicit, err := Estimate([][]float64{sig}, Config{
		SampleRate: sampleRate, FMin: 1, FMax: 45, Overlap: 0,
	})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	implicit, err := Estimate([][]float64{sig}, Config{
		SampleRate: sampleRate, FMin: 1, FMax: 45, Overlap: 0.5,
	})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if !reflect.DeepEqual(explicit, implicit) {
		t.Fatalf("an explicit zero overlap must select the 0.5 default")
	}
}

func TestEstimateParsevalScale(t *testing.T) {
	// A unit sine has total power 0.5; the integrated density should
	// land in that neighborhood.
	sig := testutil.Sine(10, sampleRate, 1.0, 2000)

	spec, err := Estimate([][]float64{sig}, Config{
		SampleRate: sampleRate,
		FMin:       0,
		FMax:       50,
	})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}

	binHz := spec.Freqs[1] - spec.Freqs[0]
	var total float64
	for _, p := range spec.Power[0] {
		total += p * binHz
	}
	if total < 0.3 || total > 0.7 {
		t.Fatalf("integrated power = %f, want ~0.5", total)
	}
}
