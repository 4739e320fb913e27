// Package strategy implements the median calculation strategies and the fixed
// fallback chain the engine walks through. The chain order is a correctness
// contract: standard first, then statistical, then weighted. It is never
// reordered at runtime.
package strategy

import (
	"fmt"
	"sort"

	"github.com/halfpoint/medianengine/internal/models"
)

// Strategy is one interchangeable median calculation. Implementations must be
// deterministic and side-effect-free: the same ScoreSet always yields the
// same MedianResult.
type Strategy interface {
	Name() models.StrategyName
	Calculate(set models.ScoreSet) (models.MedianResult, error)
}

// Params carries the shared numeric knobs every strategy needs.
type Params struct {
	RoundingPrecision int
}

// Chain returns the strategies in fallback priority order.
func Chain(p Params) []Strategy {
	return []Strategy{
		NewStandard(p),
		NewStatistical(p),
		NewWeighted(p),
	}
}

// rankEntries builds the ranked view of a set against a median: sorted by
// score descending with stable order for ties, margin and WIN/LOSS/TIE per
// entry, and the derived distribution stats. Margins are rounded to the same
// precision as the median so a zero margin means TIE exactly.
func rankEntries(set models.ScoreSet, median float64, precision int) ([]models.RankedEntry, models.DerivedStats) {
	ranked := make([]models.RankedEntry, len(set.Entries))
	for i, e := range set.Entries {
		ranked[i] = models.RankedEntry{ScoreEntry: e}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	stats := models.DerivedStats{}
	if len(ranked) > 0 {
		stats.High = ranked[0].Score
		stats.Low = ranked[len(ranked)-1].Score
		stats.Spread = stats.High - stats.Low
	}
	stats.Mean, stats.StdDev = models.MeanStdDev(set.Scores())

	for i := range ranked {
		ranked[i].Rank = i + 1
		margin := models.Round(ranked[i].Score-median, precision)
		ranked[i].MarginVsMedian = margin
		switch {
		case margin > 0:
			ranked[i].Outcome = models.OutcomeWin
			stats.WinCount++
		case margin < 0:
			ranked[i].Outcome = models.OutcomeLoss
			stats.LossCount++
		default:
			ranked[i].Outcome = models.OutcomeTie
			stats.TieCount++
		}
	}
	return ranked, stats
}

// buildResult assembles a MedianResult. Timestamp and invocation identity are
// stamped by the engine, not here, so strategy output stays bit-identical for
// identical input.
func buildResult(set models.ScoreSet, name models.StrategyName, median float64, precision int) models.MedianResult {
	ranked, stats := rankEntries(set, median, precision)
	return models.MedianResult{
		Period:        set.Period,
		MedianValue:   median,
		RankedEntries: ranked,
		StrategyUsed:  name,
		Stats:         stats,
	}
}

func errEmptySet(name models.StrategyName) error {
	return fmt.Errorf("%s strategy: score set has no entries", name)
}
