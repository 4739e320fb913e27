package strategy

import (
	"math"
	"sort"

	"github.com/halfpoint/medianengine/internal/models"
)

const weightBoundaryEpsilon = 1e-9

// Weighted is fallback #2: a weighted median over per-entry weights. Entries
// without an explicit weight count as weight 1, which degrades to the
// statistical median for uniform sets.
type Weighted struct {
	params Params
}

// NewWeighted creates the weighted median strategy.
func NewWeighted(p Params) *Weighted {
	return &Weighted{params: p}
}

func (s *Weighted) Name() models.StrategyName { return models.StrategyWeighted }

// Calculate sorts ascending by score and accumulates weights until the
// cumulative weight crosses half of the total. Landing exactly on the
// half-weight boundary averages the straddling pair; when the boundary entry
// is the last one there is no pair to straddle and its score stands alone.
func (s *Weighted) Calculate(set models.ScoreSet) (models.MedianResult, error) {
	n := len(set.Entries)
	if n == 0 {
		return models.MedianResult{}, errEmptySet(s.Name())
	}

	type weighted struct {
		score  float64
		weight float64
	}
	items := make([]weighted, n)
	var total float64
	for i, e := range set.Entries {
		w := e.Weight
		if w == 0 {
			w = 1
		}
		items[i] = weighted{score: e.Score, weight: w}
		total += w
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].score < items[j].score })

	half := total / 2
	var raw, cum float64
	for i, it := range items {
		cum += it.weight
		if math.Abs(cum-half) <= weightBoundaryEpsilon {
			if i+1 < n {
				raw = (it.score + items[i+1].score) / 2
			} else {
				raw = it.score
			}
			break
		}
		if cum > half {
			raw = it.score
			break
		}
	}

	median := models.Round(raw, s.params.RoundingPrecision)
	return buildResult(set, s.Name(), median, s.params.RoundingPrecision), nil
}
