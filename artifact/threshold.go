package artifact

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Threshold is a rejection cutoff that is either a literal z-score
// value or the sentinel "auto". Auto resolves to a fixed per-rule
// constant once per classification call; it is not adaptive.
type Threshold struct {
	Value float64
	Auto  bool
}

// AutoThreshold returns the sentinel threshold.
func AutoThreshold() Threshold { return Threshold{Auto: true} }

// FixedThreshold returns a literal threshold.
func FixedThreshold(v float64) Threshold { return Threshold{Value: v} }

// Resolve returns the effective cutoff, substituting def when the
// threshold is the auto sentinel.
func (t Threshold) Resolve(def float64) float64 {
	if t.Auto {
		return def
	}
	return t.Value
}

// String renders "auto" or the numeric value.
func (t Threshold) String() string {
	if t.Auto {
		return "auto"
	}
	return strconv.FormatFloat(t.Value, 'g', -1, 64)
}

// UnmarshalYAML accepts either a number or the string "auto".
func (t *Threshold) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err == nil {
		if s == "auto" {
			*t = Threshold{Auto: true}
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("threshold must be a number or \"auto\": %q", s)
		}
		*t = Threshold{Value: v}
		return nil
	}

	var v float64
	if err := node.Decode(&v); err != nil {
		return fmt.Errorf("threshold must be a number or \"auto\"")
	}
	*t = Threshold{Value: v}
	return nil
}

// MarshalYAML renders "auto" or the numeric value.
func (t Threshold) MarshalYAML() (any, error) {
	if t.Auto {
		return "auto", nil
	}
	return t.Value, nil
}
