// Package validation implements the input and result gates that bracket every
// median calculation. Rules accumulate violations rather than short-circuit,
// so a caller sees the full picture in one pass.
package validation

import (
	"fmt"
	"math"

	"github.com/halfpoint/medianengine/internal/models"
)

// ViolationKind classifies a single validation rule failure.
type ViolationKind string

const (
	ViolationStructure   ViolationKind = "structure"
	ViolationCount       ViolationKind = "count"
	ViolationField       ViolationKind = "field"
	ViolationRange       ViolationKind = "range"
	ViolationConsistency ViolationKind = "consistency"
	ViolationSpread      ViolationKind = "spread"
)

// Violation is one failed rule with enough context to log or display.
type Violation struct {
	Kind    ViolationKind `json:"kind"`
	Field   string        `json:"field,omitempty"`
	Message string        `json:"message"`
}

func (v Violation) String() string {
	if v.Field != "" {
		return fmt.Sprintf("%s[%s]: %s", v.Kind, v.Field, v.Message)
	}
	return fmt.Sprintf("%s: %s", v.Kind, v.Message)
}

// Outcome is the verdict of a validator run.
type Outcome struct {
	IsValid    bool        `json:"is_valid"`
	Violations []Violation `json:"violations,omitempty"`
}

func (o *Outcome) add(kind ViolationKind, field, format string, args ...interface{}) {
	o.Violations = append(o.Violations, Violation{
		Kind:    kind,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	})
}

// Config holds the bounds both validators enforce.
type Config struct {
	TeamCount         int     `yaml:"team_count"`
	MaxScore          float64 `yaml:"max_score"`
	RoundingPrecision int     `yaml:"rounding_precision"`
	MedianTolerance   float64 `yaml:"median_tolerance"`
	SpreadMin         float64 `yaml:"spread_min"`
	SpreadMax         float64 `yaml:"spread_max"`
}

// DefaultConfig returns the bounds used when no configuration file overrides
// them: 12 teams, scores in [0, 300], 2-decimal rounding, stddev band (5, 50).
func DefaultConfig() Config {
	return Config{
		TeamCount:         12,
		MaxScore:          300,
		RoundingPrecision: 2,
		MedianTolerance:   0.01,
		SpreadMin:         5,
		SpreadMax:         50,
	}
}

// ScoreSetValidator gates raw score sets before any strategy runs. A failing
// outcome is terminal for the invocation: input errors are never retried with
// a different strategy.
type ScoreSetValidator struct {
	cfg Config
}

// NewScoreSetValidator creates a score set validator with the given bounds.
func NewScoreSetValidator(cfg Config) *ScoreSetValidator {
	return &ScoreSetValidator{cfg: cfg}
}

// Validate checks structural and per-field validity of a candidate set.
// Pure function, no side effects.
func (v *ScoreSetValidator) Validate(set models.ScoreSet) Outcome {
	out := Outcome{}

	if set.Entries == nil {
		out.add(ViolationStructure, "", "score set has no entries collection")
		return Outcome{IsValid: false, Violations: out.Violations}
	}

	if len(set.Entries) != v.cfg.TeamCount {
		out.add(ViolationCount, "", "expected %d entries, got %d", v.cfg.TeamCount, len(set.Entries))
	}

	seen := make(map[string]int, len(set.Entries))
	for i, e := range set.Entries {
		field := fmt.Sprintf("entries[%d]", i)

		if e.Identifier == "" {
			out.add(ViolationField, field, "missing identifier")
		} else if prev, dup := seen[e.Identifier]; dup {
			out.add(ViolationField, field, "duplicate identifier %q (first at entries[%d])", e.Identifier, prev)
		} else {
			seen[e.Identifier] = i
		}

		if math.IsNaN(e.Score) || math.IsInf(e.Score, 0) {
			out.add(ViolationField, field, "score is not a finite number")
		} else if e.Score < 0 || e.Score > v.cfg.MaxScore {
			out.add(ViolationField, field, "score %.2f outside [0, %.0f]", e.Score, v.cfg.MaxScore)
		}

		if math.IsNaN(e.ProjectedScore) || math.IsInf(e.ProjectedScore, 0) {
			out.add(ViolationField, field, "projected score is not a finite number")
		}

		if e.Weight < 0 {
			out.add(ViolationField, field, "negative weight %.2f", e.Weight)
		}
	}

	out.IsValid = len(out.Violations) == 0
	return out
}
