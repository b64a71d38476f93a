package eeg

import (
	"reflect"
	"testing"
	"time"
)

func twoChannel(t *testing.T) *Recording {
	t.Helper()
	rec, err := New(
		[]string{"Cz", "Pz"},
		[][]float64{{1, 2, 3, 4}, {5, 6, 7, 8}},
		4,
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return rec
}

func TestNewValidation(t *testing.T) {
	cases := []struct {
		name  string
		names []string
		data  [][]float64
		rate  float64
	}{
		{"no channels", nil, nil, 100},
		{"name count mismatch", []string{"Cz"}, [][]float64{{1}, {2}}, 100},
		{"ragged channels", []string{"Cz", "Pz"}, [][]float64{{1, 2}, {3}}, 100},
		{"zero rate", []string{"Cz"}, [][]float64{{1}}, 0},
		{"negative rate", []string{"Cz"}, [][]float64{{1}}, -5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.names, tc.data, tc.rate); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestRecordingAccessors(t *testing.T) {
	rec := twoChannel(t)

	if rec.NumChannels() != 2 || rec.NumSamples() != 4 {
		t.Fatalf("got %d channels x %d samples", rec.NumChannels(), rec.NumSamples())
	}
	if rec.Duration() != time.Second {
		t.Fatalf("duration = %v, want 1s", rec.Duration())
	}
	if rec.ChannelIndex("Pz") != 1 {
		t.Fatalf("ChannelIndex(Pz) = %d", rec.ChannelIndex("Pz"))
	}
	if rec.ChannelIndex("Oz") != -1 {
		t.Fatalf("ChannelIndex of unknown channel should be -1")
	}
}

func TestNewCopiesCallerSlices(t *testing.T) {
	names := []string{"Cz", "Pz"}
	data := [][]float64{{1, 2}, {3, 4}}

	rec, err := New(names, data, 100)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	names[0] = "changed"
	data[0][0] = 99

	if rec.ChannelNames[0] != "Cz" {
		t.Fatalf("mutating the caller's names reached the recording")
	}
	if rec.Data[0][0] != 1 {
		t.Fatalf("mutating the caller's data reached the recording")
	}
}

func TestCopyIsIndependent(t *testing.T) {
	rec := twoChannel(t)
	dup := rec.Copy()

	dup.Data[0][0] = 99
	dup.ChannelNames[0] = "changed"

	if rec.Data[0][0] != 1 || rec.ChannelNames[0] != "Cz" {
		t.Fatalf("mutating the copy reached the original")
	}
	if !reflect.DeepEqual(rec.Data[1], dup.Data[1]) {
		t.Fatalf("copy lost data")
	}
}

func TestEOGChannels(t *testing.T) {
	cases := []struct {
		name  string
		names []string
		want  []int
	}{
		{"dedicated channels", []string{"Cz", "EOG left", "eog-R"}, []int{1, 2}},
		{"frontal fallback", []string{"Fp1", "Fp2", "Cz"}, []int{0, 1}},
		{"dedicated wins over frontal", []string{"Fp1", "VEOG"}, []int{1}},
		{"nothing usable", []string{"C3", "C4", "Pz"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := make([][]float64, len(tc.names))
			for i := range data {
				data[i] = []float64{0, 0}
			}
			rec, err := New(tc.names, data, 100)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if got := rec.EOGChannels(); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("EOGChannels() = %v, want %v", got, tc.want)
			}
		})
	}
}
