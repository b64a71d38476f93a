package artifact

import (
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/neuroanalyst/neuroclean/internal/testutil"
)

const sampleRate = 100.0

func rejectedIndices(dets []Detection) []int {
	var out []int
	for _, d := range dets {
		if d.Rejected {
			out = append(out, d.Index)
		}
	}
	return out
}

func TestFindEMGFlagsMuscleBandSource(t *testing.T) {
	// One source carrying only 40 Hz energy among five quiet sources
	// must stand out in the 30-100 Hz band under the auto threshold.
	const n = 1000
	sources := [][]float64{
		testutil.Noise(1, 0.01, n),
		testutil.Noise(2, 0.01, n),
		testutil.Noise(3, 0.01, n),
		testutil.Noise(4, 0.01, n),
		testutil.Noise(5, 0.01, n),
		testutil.Sine(40, sampleRate, 5.0, n),
	}

	dets, err := FindEMG(sources, sampleRate, AutoThreshold())
	if err != nil {
		t.Fatalf("FindEMG: %v", err)
	}
	if len(dets) != len(sources) {
		t.Fatalf("got %d detections, want one per source", len(dets))
	}

	hot := dets[5]
	if !hot.Rejected {
		t.Fatalf("40 Hz source not rejected, z = %f", hot.Score)
	}
	if hot.Score <= 2.0 {
		t.Fatalf("40 Hz source z = %f, want > 2.0", hot.Score)
	}
	if hot.Threshold != AutoEMGThreshold {
		t.Fatalf("threshold = %f, want auto-resolved %f", hot.Threshold, AutoEMGThreshold)
	}
	for _, d := range dets[:5] {
		if d.Rejected {
			t.Fatalf("quiet source %d rejected with z = %f", d.Index, d.Score)
		}
	}
}

func TestFindEMGAutoResolvesToTwo(t *testing.T) {
	sources := [][]float64{
		testutil.Noise(1, 1.0, 500),
		testutil.Noise(2, 1.0, 500),
		testutil.Noise(3, 1.0, 500),
	}

	dets, err := FindEMG(sources, sampleRate, AutoThreshold())
	if err != nil {
		t.Fatalf("FindEMG: %v", err)
	}
	for _, d := range dets {
		if d.Threshold != 2.0 {
			t.Fatalf("auto threshold resolved to %f, want 2.0", d.Threshold)
		}
	}
}

func TestFindEMGLiteralThreshold(t *testing.T) {
	sources := [][]float64{
		testutil.Noise(1, 1.0, 500),
		testutil.Noise(2, 1.0, 500),
	}

	dets, err := FindEMG(sources, sampleRate, FixedThreshold(0.5))
	if err != nil {
		t.Fatalf("FindEMG: %v", err)
	}
	for _, d := range dets {
		if d.Threshold != 0.5 {
			t.Fatalf("threshold = %f, want literal 0.5", d.Threshold)
		}
	}
}

func TestFindEMGInsufficientData(t *testing.T) {
	sources := [][]float64{testutil.Noise(1, 1.0, 10)}
	if _, err := FindEMG(sources, sampleRate, AutoThreshold()); err == nil {
		t.Fatalf("expected error for sources shorter than one window")
	}
}

func TestFindEOGFlagsCorrelatedSource(t *testing.T) {
	const n = 1000
	blink := testutil.Sine(1, sampleRate, 3.0, n)

	sources := [][]float64{
		testutil.Noise(10, 1.0, n),
		testutil.Noise(11, 1.0, n),
		blink, // mirrors the reference exactly
		testutil.Noise(12, 1.0, n),
		testutil.Noise(13, 1.0, n),
		testutil.Noise(14, 1.0, n),
	}

	dets, err := FindEOG(sources, [][]float64{blink}, FixedThreshold(2.0))
	if err != nil {
		t.Fatalf("FindEOG: %v", err)
	}

	got := rejectedIndices(dets)
	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("rejected = %v, want [2]", got)
	}
}

func TestFindEOGNoReferences(t *testing.T) {
	sources := [][]float64{testutil.Noise(1, 1.0, 100)}
	if _, err := FindEOG(sources, nil, AutoThreshold()); err == nil {
		t.Fatalf("expected error without reference channels")
	}
}

func TestUnionMergePolicy(t *testing.T) {
	eog := []Detection{
		{Index: 0, Rule: RuleEOG, Rejected: false},
		{Index: 1, Rule: RuleEOG, Rejected: true},
		{Index: 2, Rule: RuleEOG, Rejected: true},
	}
	emg := []Detection{
		{Index: 0, Rule: RuleEMG, Rejected: true},
		{Index: 1, Rule: RuleEMG, Rejected: false},
		{Index: 2, Rule: RuleEMG, Rejected: true}, // duplicate of EOG
	}

	got := Union(eog, emg)

	// EOG first in insertion order, then EMG additions, no duplicate.
	want := []int{1, 2, 0}
	if len(got) != len(want) {
		t.Fatalf("union = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("union = %v, want %v", got, want)
		}
	}
}

func TestUnionEmpty(t *testing.T) {
	if got := Union(nil, nil); got != nil {
		t.Fatalf("union of nothing = %v, want nil", got)
	}
}

func TestThresholdYAML(t *testing.T) {
	var cfg struct {
		EMG Threshold `yaml:"emg_threshold"`
		EOG Threshold `yaml:"eog_threshold"`
	}

	if err := yaml.Unmarshal([]byte("emg_threshold: auto\neog_threshold: 2.5\n"), &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !cfg.EMG.Auto {
		t.Fatalf("emg_threshold should be auto")
	}
	if cfg.EMG.Resolve(AutoEMGThreshold) != 2.0 {
		t.Fatalf("auto emg resolves to %f, want 2.0", cfg.EMG.Resolve(AutoEMGThreshold))
	}
	if cfg.EOG.Auto || cfg.EOG.Value != 2.5 {
		t.Fatalf("eog_threshold = %+v, want literal 2.5", cfg.EOG)
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	round := struct {
		EMG Threshold `yaml:"emg_threshold"`
		EOG Threshold `yaml:"eog_threshold"`
	}{}
	if err := yaml.Unmarshal(out, &round); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if !round.EMG.Auto || round.EOG.Value != 2.5 {
		t.Fatalf("round trip lost values: %+v", round)
	}

	if err := yaml.Unmarshal([]byte("emg_threshold: nonsense\n"), &cfg); err == nil {
		t.Fatalf("expected error for junk threshold")
	}
}

func TestThresholdString(t *testing.T) {
	if AutoThreshold().String() != "auto" {
		t.Fatalf("auto String = %q", AutoThreshold().String())
	}
	if FixedThreshold(1.5).String() != "1.5" {
		t.Fatalf("fixed String = %q", FixedThreshold(1.5).String())
	}
}
