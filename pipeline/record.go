package pipeline

// Stage identifies a point in the cleaning sequence. A run moves
// through the stages strictly in order; a stage that cannot run is
// skipped with a marker in the record rather than aborting the run.
type Stage int

const (
	StageRaw Stage = iota
	StageFiltered
	StageBadChannelsResolved
	StageDecomposed
	StageClassified
	StageReconstructed
)

var stageNames = [...]string{
	"raw",
	"filtered",
	"bad-channels-resolved",
	"decomposed",
	"classified",
	"reconstructed",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// Decision documents one accept/reject judgment: which entity was
// evaluated (a channel name or a source index label), under which rule,
// the score it got and the cutoff it was held to. Entities that passed
// appear alongside those that were rejected, so a reader can see the
// margin on every judgment.
type Decision struct {
	Entity    string  `yaml:"entity"`
	Rule      string  `yaml:"rule"`
	Score     float64 `yaml:"score"`
	Threshold float64 `yaml:"threshold"`
	Rejected  bool    `yaml:"rejected"`
}

// Skip documents a stage that could not run and why. Skipped stages
// degrade the result instead of failing the run.
type Skip struct {
	Stage  string `yaml:"stage"`
	Reason string `yaml:"reason"`
}

// Record is the decision record of one cleaning run: enough to explain,
// after the fact, exactly what was removed and why, and to reproduce
// the run from the same input and configuration.
type Record struct {
	Config Config `yaml:"config"`

	// BadChannels lists channel names flagged and interpolated.
	BadChannels []string `yaml:"bad_channels"`

	// Decisions holds every evaluation in order: channel outlier
	// scores first, then eye-movement rule results, then muscle rule
	// results.
	Decisions []Decision `yaml:"decisions"`

	// ExcludedSources is the final source exclusion set, eye-movement
	// rejections first.
	ExcludedSources []int `yaml:"excluded_sources"`

	// Skips lists the stages that could not run.
	Skips []Skip `yaml:"skips"`

	// FinalStage is the last stage that completed.
	FinalStage string `yaml:"final_stage"`
}

// Skipped reports whether the named stage was skipped.
func (r *Record) Skipped(stage Stage) bool {
	name := stage.String()
	for _, s := range r.Skips {
		if s.Stage == name {
			return true
		}
	}
	return false
}
