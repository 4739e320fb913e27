package strategy

import (
	"sort"

	"github.com/halfpoint/medianengine/internal/models"
)

// Standard is the primary strategy: the median is the average of the two
// scores straddling the midpoint of the descending-sorted set. For 12 teams
// those are ranks 6 and 7.
type Standard struct {
	params Params
}

// NewStandard creates the standard positional-average strategy.
func NewStandard(p Params) *Standard {
	return &Standard{params: p}
}

func (s *Standard) Name() models.StrategyName { return models.StrategyStandard }

// Calculate computes round((lowerMid + upperMid) / 2) over the sorted scores.
// A single entry is its own median.
func (s *Standard) Calculate(set models.ScoreSet) (models.MedianResult, error) {
	n := len(set.Entries)
	if n == 0 {
		return models.MedianResult{}, errEmptySet(s.Name())
	}

	scores := set.Scores()
	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))

	var median float64
	if n == 1 {
		median = models.Round(scores[0], s.params.RoundingPrecision)
	} else {
		mid := n / 2
		median = models.Round((scores[mid-1]+scores[mid])/2, s.params.RoundingPrecision)
	}

	return buildResult(set, s.Name(), median, s.params.RoundingPrecision), nil
}
