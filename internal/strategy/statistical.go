package strategy

import (
	"sort"

	"github.com/halfpoint/medianengine/internal/models"
)

// Statistical is fallback #1: the textbook order-statistic median. It does not
// assume the set size is even, so it stays correct if the group size config
// ever changes or a short set leaks through during testing.
type Statistical struct {
	params Params
}

// NewStatistical creates the order-statistic median strategy.
func NewStatistical(p Params) *Statistical {
	return &Statistical{params: p}
}

func (s *Statistical) Name() models.StrategyName { return models.StrategyStatistical }

// Calculate sorts ascending and takes the single central value for odd sizes
// or the average of the two central values for even sizes.
func (s *Statistical) Calculate(set models.ScoreSet) (models.MedianResult, error) {
	n := len(set.Entries)
	if n == 0 {
		return models.MedianResult{}, errEmptySet(s.Name())
	}

	scores := set.Scores()
	sort.Float64s(scores)

	var raw float64
	if n%2 == 1 {
		raw = scores[n/2]
	} else {
		raw = (scores[n/2-1] + scores[n/2]) / 2
	}
	median := models.Round(raw, s.params.RoundingPrecision)

	return buildResult(set, s.Name(), median, s.params.RoundingPrecision), nil
}
