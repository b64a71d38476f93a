package pipeline

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/neuroanalyst/neuroclean/artifact"
)

// ErrInvalidConfig reports a configuration that fails validation
// against the recording. Validation errors are fatal and surface
// before any data is touched.
var ErrInvalidConfig = errors.New("pipeline: invalid configuration")

// Config holds every parameter of one cleaning run. A run owns its
// Config copy exclusively and never mutates it; there is no global
// configuration state.
type Config struct {
	// LowFreq and HighFreq are the bandpass edges in Hz.
	LowFreq  float64 `yaml:"l_freq"`
	HighFreq float64 `yaml:"h_freq"`

	// NotchFreqs lists powerline frequencies to notch out, in Hz.
	NotchFreqs []float64 `yaml:"notch_freqs"`

	// FilterOrder is the Butterworth order of each bandpass half.
	FilterOrder int `yaml:"filter_order"`

	// NotchQ sets the notch width (higher is narrower).
	NotchQ float64 `yaml:"notch_q"`

	// NumComponents is the decomposition component count. It is
	// capped at the channel count of the recording being cleaned.
	NumComponents int `yaml:"ica_n_components"`

	// RandomSeed fixes the decomposition initialization so a run is
	// reproducible bit for bit.
	RandomSeed int64 `yaml:"ica_random_state"`

	// EOGThreshold and EMGThreshold accept a number or "auto".
	EOGThreshold artifact.Threshold `yaml:"eog_threshold"`
	EMGThreshold artifact.Threshold `yaml:"emg_threshold"`

	// LOFNeighbors and LOFThreshold parameterize bad-channel
	// detection.
	LOFNeighbors int     `yaml:"lof_neighbors"`
	LOFThreshold float64 `yaml:"lof_threshold"`

	// Verbose enables stage logging when a logger is attached.
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns the standard cleaning parameters: a 1-40 Hz
// passband, a 60 Hz powerline notch, 15 decomposition components with
// a fixed seed, and automatic artifact thresholds.
func DefaultConfig() Config {
	return Config{
		LowFreq:       1.0,
		HighFreq:      40.0,
		NotchFreqs:    []float64{60.0},
		FilterOrder:   4,
		NotchQ:        30.0,
		NumComponents: 15,
		RandomSeed:    97,
		EOGThreshold:  artifact.AutoThreshold(),
		EMGThreshold:  artifact.AutoThreshold(),
		LOFNeighbors:  5,
		LOFThreshold:  1.5,
	}
}

// LoadConfig reads a YAML file over the defaults: absent keys keep
// their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("pipeline: read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("pipeline: parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration against the sampling rate of the
// recording about to be cleaned. An invalid filter band (inverted
// edges or a high edge at or above Nyquist) aborts the run before any
// mutation.
func (c Config) Validate(sampleRate float64) error {
	if sampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be > 0: %f", ErrInvalidConfig, sampleRate)
	}
	if c.LowFreq <= 0 {
		return fmt.Errorf("%w: low filter edge must be > 0: %f", ErrInvalidConfig, c.LowFreq)
	}
	if c.LowFreq >= c.HighFreq {
		return fmt.Errorf("%w: low filter edge %f must be below high edge %f", ErrInvalidConfig, c.LowFreq, c.HighFreq)
	}
	if c.HighFreq >= sampleRate/2 {
		return fmt.Errorf("%w: high filter edge %f at or above Nyquist %f", ErrInvalidConfig, c.HighFreq, sampleRate/2)
	}
	for _, f := range c.NotchFreqs {
		if f <= 0 || f >= sampleRate/2 {
			return fmt.Errorf("%w: notch frequency %f outside (0, Nyquist)", ErrInvalidConfig, f)
		}
	}
	if c.NumComponents <= 0 {
		return fmt.Errorf("%w: component count must be > 0: %d", ErrInvalidConfig, c.NumComponents)
	}
	return nil
}
