// Package edfio loads and stores recordings in the European Data
// Format (EDF/EDF+), the common interchange format for polysomnography
// and EEG. Annotation signals are skipped on load; all data signals
// must share one sampling rate.
package edfio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/OpenPSG/edf"

	"github.com/neuroanalyst/neuroclean/eeg"
)

// ErrNoDataSignals reports a file holding only annotation signals.
var ErrNoDataSignals = errors.New("edfio: no data signals in file")

const annotationsLabel = "EDF Annotations"

// signalMeta is the per-signal header subset the loader needs; the
// sample decoding itself is left to the edf package.
type signalMeta struct {
	label            string
	samplesPerRecord int
}

type fileMeta struct {
	dataRecords    int
	recordDuration float64 // seconds
	signals        []signalMeta
}

// readMeta parses the fixed and per-signal EDF headers for the fields
// the edf reader does not expose: labels, record geometry and record
// duration.
func readMeta(r io.ReadSeeker) (*fileMeta, error) {
	fixed := make([]byte, 256)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return nil, fmt.Errorf("edfio: read header: %w", err)
	}

	dataRecords, err := strconv.Atoi(strings.TrimSpace(string(fixed[236:244])))
	if err != nil {
		return nil, fmt.Errorf("edfio: parse record count: %w", err)
	}
	recordDuration, err := strconv.ParseFloat(strings.TrimSpace(string(fixed[244:252])), 64)
	if err != nil {
		return nil, fmt.Errorf("edfio: parse record duration: %w", err)
	}
	ns, err := strconv.Atoi(strings.TrimSpace(string(fixed[252:256])))
	if err != nil {
		return nil, fmt.Errorf("edfio: parse signal count: %w", err)
	}
	if ns <= 0 {
		return nil, fmt.Errorf("edfio: header declares %d signals", ns)
	}

	perSignal := make([]byte, ns*256)
	if _, err := io.ReadFull(r, perSignal); err != nil {
		return nil, fmt.Errorf("edfio: read signal headers: %w", err)
	}

	meta := &fileMeta{
		dataRecords:    dataRecords,
		recordDuration: recordDuration,
		signals:        make([]signalMeta, ns),
	}
	// Per-signal header layout: labels, transducer, dimension,
	// physical min/max, digital min/max, prefiltering, samples per
	// record, reserved. Fields are grouped, not interleaved.
	samplesOffset := ns * (16 + 80 + 8 + 8 + 8 + 8 + 8 + 80)
	for i := 0; i < ns; i++ {
		meta.signals[i].label = strings.TrimSpace(string(perSignal[i*16 : (i+1)*16]))
		field := perSignal[samplesOffset+i*8 : samplesOffset+(i+1)*8]
		spr, err := strconv.Atoi(strings.TrimSpace(string(field)))
		if err != nil {
			return nil, fmt.Errorf("edfio: parse samples per record for signal %d: %w", i, err)
		}
		meta.signals[i].samplesPerRecord = spr
	}
	return meta, nil
}

// Load reads an EDF file into a Recording. Signals labeled
// "EDF Annotations" are dropped; the remaining signals must agree on
// samples per record so the recording has a single sampling rate.
func Load(path string) (*eeg.Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("edfio: %w", err)
	}
	defer f.Close()

	meta, err := readMeta(f)
	if err != nil {
		return nil, err
	}
	if meta.recordDuration <= 0 {
		return nil, fmt.Errorf("edfio: non-positive record duration %f", meta.recordDuration)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("edfio: %w", err)
	}
	reader, err := edf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("edfio: %w", err)
	}

	var (
		names []string
		data  [][]float64
		spr   = -1
	)
	for i, sig := range meta.signals {
		if sig.label == annotationsLabel {
			continue
		}
		if spr == -1 {
			spr = sig.samplesPerRecord
		} else if sig.samplesPerRecord != spr {
			return nil, fmt.Errorf("edfio: signal %q has %d samples per record, expected %d",
				sig.label, sig.samplesPerRecord, spr)
		}

		sr, err := reader.Signal(i)
		if err != nil {
			return nil, fmt.Errorf("edfio: %w", err)
		}
		samples := make([]float64, meta.dataRecords*sig.samplesPerRecord)
		n, err := sr.Read(samples)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("edfio: read signal %q: %w", sig.label, err)
		}
		names = append(names, sig.label)
		data = append(data, samples[:n])
	}
	if len(data) == 0 {
		return nil, ErrNoDataSignals
	}

	sampleRate := float64(spr) / meta.recordDuration
	rec, err := eeg.New(names, data, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("edfio: %w", err)
	}
	return rec, nil
}

// Save writes a Recording as an EDF file with one-second data records.
// The final partial record, if any, is zero padded.
func Save(path string, rec *eeg.Recording) error {
	spr := int(math.Round(rec.SampleRate))
	if spr <= 0 {
		return fmt.Errorf("edfio: sample rate %f rounds to no samples per record", rec.SampleRate)
	}

	signals := make([]edf.SignalHeader, rec.NumChannels())
	for i, name := range rec.ChannelNames {
		pmin, pmax := physicalRange(rec.Data[i])
		signals[i] = edf.SignalHeader{
			Label:             name,
			PhysicalDimension: "uV",
			PhysicalMin:       pmin,
			PhysicalMax:       pmax,
			DigitalMin:        -32767,
			DigitalMax:        32767,
			SamplesPerRecord:  spr,
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("edfio: %w", err)
	}
	defer f.Close()

	w, err := edf.Create(f, edf.Header{
		Version:            edf.Version0,
		StartTime:          time.Now().UTC(),
		DataRecordDuration: time.Second,
		SignalCount:        len(signals),
		Signals:            signals,
	})
	if err != nil {
		return fmt.Errorf("edfio: %w", err)
	}

	n := rec.NumSamples()
	for start := 0; start < n; start += spr {
		record := make([][]float64, len(signals))
		for ch := range signals {
			chunk := make([]float64, spr)
			copy(chunk, rec.Data[ch][start:min(start+spr, n)])
			record[ch] = chunk
		}
		if err := w.WriteRecord(record); err != nil {
			return fmt.Errorf("edfio: write record: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("edfio: %w", err)
	}
	return f.Close()
}

// physicalRange returns the calibration range for a channel, widened
// to a non-degenerate interval for flat signals.
func physicalRange(data []float64) (float64, float64) {
	if len(data) == 0 {
		return -1, 1
	}
	pmin, pmax := data[0], data[0]
	for _, v := range data {
		pmin = math.Min(pmin, v)
		pmax = math.Max(pmax, v)
	}
	if pmin == pmax {
		pmin--
		pmax++
	}
	return pmin, pmax
}
