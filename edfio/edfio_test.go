package edfio

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuroanalyst/neuroclean/eeg"
	"github.com/neuroanalyst/neuroclean/internal/testutil"
)

func TestRoundTrip(t *testing.T) {
	const (
		rate    = 100.0
		samples = 250 // 2.5 s: the last record is zero padded
	)

	rec, err := eeg.New(
		[]string{"Fp1", "Cz", "EOG left"},
		[][]float64{
			testutil.Sine(10, rate, 1.0, samples),
			testutil.Sine(4, rate, 0.5, samples),
			testutil.Noise(7, 0.8, samples),
		},
		rate,
	)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "roundtrip.edf")
	require.NoError(t, Save(path, rec))

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, rec.ChannelNames, got.ChannelNames)
	assert.InDelta(t, rate, got.SampleRate, 1e-9)

	// Padded up to whole one-second records.
	require.Equal(t, 300, got.NumSamples())

	// 16-bit quantization over the channel's physical range.
	const delta = 1e-3
	for ch := range rec.Data {
		for i, want := range rec.Data[ch] {
			assert.InDelta(t, want, got.Data[ch][i], delta,
				"channel %d sample %d", ch, i)
		}
		for i := samples; i < got.NumSamples(); i++ {
			assert.InDelta(t, 0, got.Data[ch][i], delta,
				"channel %d padding sample %d", ch, i)
		}
	}
}

func TestRoundTripFlatChannel(t *testing.T) {
	rec, err := eeg.New(
		[]string{"Flat"},
		[][]float64{testutil.DC(2.5, 100)},
		100,
	)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "flat.edf")
	require.NoError(t, Save(path, rec))

	got, err := Load(path)
	require.NoError(t, err)
	for _, v := range got.Data[0] {
		assert.InDelta(t, 2.5, v, 1e-3)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.edf"))
	require.Error(t, err)
}

func TestSaveBadSampleRate(t *testing.T) {
	rec := &eeg.Recording{
		ChannelNames: []string{"Cz"},
		Data:         [][]float64{{1, 2, 3}},
		SampleRate:   0.2, // rounds to zero samples per record
	}
	err := Save(filepath.Join(t.TempDir(), "bad.edf"), rec)
	require.Error(t, err)
}
