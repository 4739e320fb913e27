package validation

import (
	"math"
	"sort"

	"github.com/halfpoint/medianengine/internal/models"
)

// ResultValidator checks a MedianResult for internal consistency after a
// strategy has run. A failing outcome triggers the engine's fallback chain;
// it is not a hard error until the chain is exhausted.
type ResultValidator struct {
	cfg Config
}

// NewResultValidator creates a result validator with the given bounds.
func NewResultValidator(cfg Config) *ResultValidator {
	return &ResultValidator{cfg: cfg}
}

// Validate runs every consistency rule and collects all violations.
func (v *ResultValidator) Validate(result models.MedianResult) Outcome {
	out := Outcome{}

	if math.IsNaN(result.MedianValue) || math.IsInf(result.MedianValue, 0) {
		out.add(ViolationRange, "median_value", "median is not a finite number")
	} else if result.MedianValue < 0 || result.MedianValue > v.cfg.MaxScore {
		out.add(ViolationRange, "median_value", "median %.2f outside [0, %.0f]", result.MedianValue, v.cfg.MaxScore)
	}

	if len(result.RankedEntries) != v.cfg.TeamCount {
		out.add(ViolationCount, "ranked_entries", "expected %d ranked entries, got %d", v.cfg.TeamCount, len(result.RankedEntries))
	}

	// Consistency self-check: recompute the positional-average median from
	// the ranked scores regardless of which strategy produced the result.
	// Guards against a fallback formula drifting far from the expected value.
	if recomputed, ok := v.recomputeStandardMedian(result.RankedEntries); ok {
		if math.Abs(recomputed-result.MedianValue) > v.cfg.MedianTolerance {
			out.add(ViolationConsistency, "median_value",
				"median %.4f deviates from recomputed %.4f by more than %.2f",
				result.MedianValue, recomputed, v.cfg.MedianTolerance)
		}
	}

	// The spread band rejects degenerate or corrupted input sets. It binds
	// only the primary strategy: a fallback run sees the same scores, so
	// re-failing on spread would make the whole chain unwinnable for input
	// the fallback formulas handle fine.
	if result.StrategyUsed == models.StrategyStandard {
		scores := make([]float64, len(result.RankedEntries))
		for i, e := range result.RankedEntries {
			scores[i] = e.Score
		}
		_, stddev := models.MeanStdDev(scores)
		if stddev <= v.cfg.SpreadMin || stddev >= v.cfg.SpreadMax {
			out.add(ViolationSpread, "stats.std_dev",
				"score spread %.2f outside plausible band (%.0f, %.0f)", stddev, v.cfg.SpreadMin, v.cfg.SpreadMax)
		}
	}

	out.IsValid = len(out.Violations) == 0
	return out
}

// recomputeStandardMedian applies the standard positional-average formula to
// the ranked entries' scores. Returns ok=false when there are too few entries
// to straddle a midpoint.
func (v *ResultValidator) recomputeStandardMedian(entries []models.RankedEntry) (float64, bool) {
	if len(entries) < 2 {
		return 0, false
	}
	scores := make([]float64, len(entries))
	for i, e := range entries {
		scores[i] = e.Score
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))

	mid := len(scores) / 2
	raw := (scores[mid-1] + scores[mid]) / 2
	return models.Round(raw, v.cfg.RoundingPrecision), true
}
