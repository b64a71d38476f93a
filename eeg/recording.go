// Package eeg defines the multichannel recording model shared by the
// cleaning pipeline: named channels of equal-length samples at one
// sampling rate.
package eeg

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	errNoChannels   = errors.New("recording must have at least one channel")
	errNameMismatch = errors.New("channel name count must match data channel count")
)

// Recording is an ordered set of channels with channel-major sample data.
// All channels share the same length and sampling rate.
type Recording struct {
	// ChannelNames holds one label per channel, e.g. "Cz" or "EOG left".
	ChannelNames []string

	// Data is channel-major: Data[ch][sample].
	Data [][]float64

	// SampleRate is the sampling frequency in Hz.
	SampleRate float64
}

// New validates and builds a Recording. All channels must have the same
// sample count and the sample rate must be positive. Both names and
// data are copied, so later mutation of the caller's slices never
// reaches the Recording.
func New(names []string, data [][]float64, sampleRate float64) (*Recording, error) {
	if len(data) == 0 {
		return nil, errNoChannels
	}
	if len(names) != len(data) {
		return nil, fmt.Errorf("%w: %d names, %d channels", errNameMismatch, len(names), len(data))
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be > 0: %f", sampleRate)
	}
	n := len(data[0])
	owned := make([][]float64, len(data))
	for i, ch := range data {
		if len(ch) != n {
			return nil, fmt.Errorf("channel %q has %d samples, expected %d", names[i], len(ch), n)
		}
		owned[i] = append([]float64(nil), ch...)
	}
	return &Recording{
		ChannelNames: append([]string(nil), names...),
		Data:         owned,
		SampleRate:   sampleRate,
	}, nil
}

// NumChannels returns the channel count.
func (r *Recording) NumChannels() int { return len(r.Data) }

// NumSamples returns the per-channel sample count.
func (r *Recording) NumSamples() int {
	if len(r.Data) == 0 {
		return 0
	}
	return len(r.Data[0])
}

// Duration returns the recording length as wall-clock time.
func (r *Recording) Duration() time.Duration {
	if r.SampleRate <= 0 {
		return 0
	}
	secs := float64(r.NumSamples()) / r.SampleRate
	return time.Duration(secs * float64(time.Second))
}

// Copy returns a deep copy. The pipeline never mutates its input; it
// works on a copy and returns that.
func (r *Recording) Copy() *Recording {
	data := make([][]float64, len(r.Data))
	for i, ch := range r.Data {
		data[i] = append([]float64(nil), ch...)
	}
	return &Recording{
		ChannelNames: append([]string(nil), r.ChannelNames...),
		Data:         data,
		SampleRate:   r.SampleRate,
	}
}

// ChannelIndex returns the index of the named channel, or -1.
func (r *Recording) ChannelIndex(name string) int {
	for i, n := range r.ChannelNames {
		if n == name {
			return i
		}
	}
	return -1
}

// EOGChannels returns indices of eye-movement reference channels:
// any label containing "EOG" (case insensitive), falling back to
// frontal electrodes (Fp1/Fp2/Fpz prefixes) when no dedicated EOG
// channel was recorded.
func (r *Recording) EOGChannels() []int {
	var out []int
	for i, n := range r.ChannelNames {
		if strings.Contains(strings.ToUpper(n), "EOG") {
			out = append(out, i)
		}
	}
	if len(out) > 0 {
		return out
	}
	for i, n := range r.ChannelNames {
		u := strings.ToUpper(strings.TrimSpace(n))
		if strings.HasPrefix(u, "FP1") || strings.HasPrefix(u, "FP2") || strings.HasPrefix(u, "FPZ") {
			out = append(out, i)
		}
	}
	return out
}
