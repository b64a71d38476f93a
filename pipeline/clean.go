// Package pipeline orchestrates the cleaning sequence: bandpass and
// notch filtering, bad-channel repair, source decomposition, artifact
// classification and reconstruction. Only configuration errors abort a
// run; every later failure degrades the output one stage and leaves a
// skip marker in the decision record.
package pipeline

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/neuroanalyst/neuroclean/artifact"
	"github.com/neuroanalyst/neuroclean/badchan"
	"github.com/neuroanalyst/neuroclean/dsp/filter"
	"github.com/neuroanalyst/neuroclean/eeg"
	"github.com/neuroanalyst/neuroclean/ica"
)

// RuleBadChannel names the channel outlier rule in decision records.
const RuleBadChannel = "channel-lof"

// Decomposition is the fitted source model the cleaner works with.
// *ica.Decomposition satisfies it.
type Decomposition interface {
	NumSources() int
	Sources() [][]float64
	Reconstruct(exclude []int) [][]float64
}

// Decomposer fits a source model to channel-major data.
type Decomposer interface {
	Decompose(data [][]float64, numComponents int, seed int64) (Decomposition, error)
}

// BadChannelDetector scores channels and returns the flagged indices.
type BadChannelDetector interface {
	Detect(data [][]float64) (flagged []int, scores []float64, err error)
}

// EOGDetector scores sources against eye-movement reference channels.
type EOGDetector interface {
	FindEOG(sources, refs [][]float64, th artifact.Threshold) ([]artifact.Detection, error)
}

// Option configures a Cleaner.
type Option func(*Cleaner)

// WithLogger attaches a logger; stage progress is logged only when the
// configuration enables Verbose.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Cleaner) { c.log = log }
}

// WithDecomposer substitutes the source decomposition backend.
func WithDecomposer(d Decomposer) Option {
	return func(c *Cleaner) { c.decomposer = d }
}

// WithBadChannelDetector substitutes the channel outlier backend.
func WithBadChannelDetector(d BadChannelDetector) Option {
	return func(c *Cleaner) { c.badDetector = d }
}

// WithEOGDetector substitutes the eye-movement rule backend.
func WithEOGDetector(d EOGDetector) Option {
	return func(c *Cleaner) { c.eogDetector = d }
}

// Cleaner runs the cleaning sequence with a fixed configuration. It is
// stateless across runs: two calls on the same input produce the same
// output and the same record.
type Cleaner struct {
	cfg         Config
	log         logrus.FieldLogger
	decomposer  Decomposer
	badDetector BadChannelDetector
	eogDetector EOGDetector
}

// New builds a Cleaner around the given configuration.
func New(cfg Config, opts ...Option) *Cleaner {
	c := &Cleaner{
		cfg:        cfg,
		decomposer: icaDecomposer{},
		badDetector: lofDetector{cfg: badchan.Config{
			Neighbors: cfg.LOFNeighbors,
			Threshold: cfg.LOFThreshold,
		}},
		eogDetector: correlationEOG{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Clean runs the full sequence on rec and returns the cleaned copy
// together with the decision record. rec itself is never modified.
// The only fatal outcome is a configuration that fails validation
// against the recording; it is reported before any work is done.
func (c *Cleaner) Clean(rec *eeg.Recording) (*eeg.Recording, *Record, error) {
	if err := c.cfg.Validate(rec.SampleRate); err != nil {
		return nil, nil, err
	}

	record := &Record{Config: c.cfg, FinalStage: StageRaw.String()}
	out := rec.Copy()

	c.filterStage(out, record)
	c.badChannelStage(out, record)

	dec := c.decomposeStage(out, record)
	if dec == nil {
		return out, record, nil
	}

	excluded, ok := c.classifyStage(out, dec, record)
	if !ok {
		return out, record, nil
	}

	if len(excluded) > 0 {
		out.Data = dec.Reconstruct(excluded)
	}
	record.FinalStage = StageReconstructed.String()
	c.logf("reconstructed with %d of %d sources removed", len(excluded), dec.NumSources())

	return out, record, nil
}

// filterStage applies the zero-phase bandpass and the powerline notches
// to every channel in place.
func (c *Cleaner) filterStage(out *eeg.Recording, record *Record) {
	coeffs := filter.Bandpass(c.cfg.LowFreq, c.cfg.HighFreq, c.cfg.FilterOrder, out.SampleRate)
	for _, f := range c.cfg.NotchFreqs {
		coeffs = append(coeffs, filter.Notch(f, c.cfg.NotchQ, out.SampleRate))
	}
	for _, ch := range out.Data {
		filter.FiltFilt(coeffs, ch)
	}
	record.FinalStage = StageFiltered.String()
	c.logf("filtered %d channels: %.1f-%.1f Hz bandpass, notches %v",
		out.NumChannels(), c.cfg.LowFreq, c.cfg.HighFreq, c.cfg.NotchFreqs)
}

// badChannelStage flags outlier channels and rebuilds them from the
// good ones. Detection failure (e.g. too few channels) is a skip, not
// an abort.
func (c *Cleaner) badChannelStage(out *eeg.Recording, record *Record) {
	flagged, scores, err := c.badDetector.Detect(out.Data)
	if err != nil {
		record.Skips = append(record.Skips, Skip{
			Stage:  StageBadChannelsResolved.String(),
			Reason: err.Error(),
		})
		c.logf("bad-channel detection skipped: %v", err)
		return
	}

	isBad := make(map[int]bool, len(flagged))
	for _, i := range flagged {
		isBad[i] = true
	}
	for i, score := range scores {
		record.Decisions = append(record.Decisions, Decision{
			Entity:    out.ChannelNames[i],
			Rule:      RuleBadChannel,
			Score:     score,
			Threshold: c.cfg.LOFThreshold,
			Rejected:  isBad[i],
		})
	}
	for _, i := range flagged {
		record.BadChannels = append(record.BadChannels, out.ChannelNames[i])
	}

	badchan.Interpolate(out.Data, flagged)
	record.FinalStage = StageBadChannelsResolved.String()
	c.logf("bad channels: %v", record.BadChannels)
}

// decomposeStage fits the source model. The component count is capped
// at the effective rank of the data: an interpolated channel is an
// exact linear combination of the good ones and cannot support a
// component of its own. On failure the run keeps the filtered,
// channel-repaired output.
func (c *Cleaner) decomposeStage(out *eeg.Recording, record *Record) Decomposition {
	rank := out.NumChannels() - len(record.BadChannels)
	if rank < 1 {
		rank = 1
	}
	k := c.cfg.NumComponents
	if k > rank {
		k = rank
	}

	dec, err := c.decomposer.Decompose(out.Data, k, c.cfg.RandomSeed)
	if err != nil {
		record.Skips = append(record.Skips, Skip{
			Stage:  StageDecomposed.String(),
			Reason: fmt.Sprintf("decomposition skipped: %v", err),
		})
		c.logf("decomposition skipped: %v", err)
		return nil
	}
	record.FinalStage = StageDecomposed.String()
	c.logf("decomposed into %d sources", dec.NumSources())
	return dec
}

// classifyStage runs both artifact rules over the fitted sources and
// merges their rejections, eye-movement rejections first. Each rule
// fails independently: a rule that cannot run leaves a skip marker
// while the other still contributes. The second return is false only
// when neither rule completed.
func (c *Cleaner) classifyStage(out *eeg.Recording, dec Decomposition, record *Record) ([]int, bool) {
	sources := dec.Sources()

	var eogDets, emgDets []artifact.Detection
	ran := false

	if refs := c.eogReferences(out); len(refs) == 0 {
		record.Skips = append(record.Skips, Skip{
			Stage:  StageClassified.String(),
			Reason: artifact.RuleEOG + ": no eye-movement reference channels",
		})
		c.logf("eye-movement rule skipped: no reference channels")
	} else if dets, err := c.eogDetector.FindEOG(sources, refs, c.cfg.EOGThreshold); err != nil {
		record.Skips = append(record.Skips, Skip{
			Stage:  StageClassified.String(),
			Reason: artifact.RuleEOG + ": " + err.Error(),
		})
		c.logf("eye-movement rule skipped: %v", err)
	} else {
		eogDets = dets
		ran = true
	}

	if dets, err := artifact.FindEMG(sources, out.SampleRate, c.cfg.EMGThreshold); err != nil {
		record.Skips = append(record.Skips, Skip{
			Stage:  StageClassified.String(),
			Reason: artifact.RuleEMG + ": " + err.Error(),
		})
		c.logf("muscle rule skipped: %v", err)
	} else {
		emgDets = dets
		ran = true
	}

	for _, d := range eogDets {
		record.Decisions = append(record.Decisions, sourceDecision(d))
	}
	for _, d := range emgDets {
		record.Decisions = append(record.Decisions, sourceDecision(d))
	}

	if !ran {
		return nil, false
	}
	record.FinalStage = StageClassified.String()
	record.ExcludedSources = artifact.Union(eogDets, emgDets)
	c.logf("excluded sources: %v", record.ExcludedSources)
	return record.ExcludedSources, true
}

// eogReferences pulls the eye-movement reference channels out of the
// filtered recording.
func (c *Cleaner) eogReferences(out *eeg.Recording) [][]float64 {
	var refs [][]float64
	for _, i := range out.EOGChannels() {
		refs = append(refs, out.Data[i])
	}
	return refs
}

func (c *Cleaner) logf(format string, args ...interface{}) {
	if c.log != nil && c.cfg.Verbose {
		c.log.Infof(format, args...)
	}
}

func sourceDecision(d artifact.Detection) Decision {
	return Decision{
		Entity:    fmt.Sprintf("source-%d", d.Index),
		Rule:      d.Rule,
		Score:     d.Score,
		Threshold: d.Threshold,
		Rejected:  d.Rejected,
	}
}

// icaDecomposer is the default Decomposer.
type icaDecomposer struct{}

func (icaDecomposer) Decompose(data [][]float64, numComponents int, seed int64) (Decomposition, error) {
	return ica.Fit(data, ica.Config{NumComponents: numComponents, Seed: seed})
}

// lofDetector is the default BadChannelDetector.
type lofDetector struct {
	cfg badchan.Config
}

func (d lofDetector) Detect(data [][]float64) ([]int, []float64, error) {
	return badchan.Detect(data, d.cfg)
}

// correlationEOG is the default EOGDetector.
type correlationEOG struct{}

func (correlationEOG) FindEOG(sources, refs [][]float64, th artifact.Threshold) ([]artifact.Detection, error) {
	return artifact.FindEOG(sources, refs, th)
}
