package strategy

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halfpoint/medianengine/internal/models"
)

var testParams = Params{RoundingPrecision: 2}

func setFromScores(scores []float64) models.ScoreSet {
	entries := make([]models.ScoreEntry, len(scores))
	for i, s := range scores {
		entries[i] = models.ScoreEntry{
			Identifier:     fmt.Sprintf("team-%02d", i+1),
			Score:          s,
			ProjectedScore: s,
		}
	}
	return models.ScoreSet{Period: "2025-week-01", Entries: entries}
}

// The 12-team reference week: median is the average of ranks 6 and 7.
var referenceScores = []float64{124.20, 117.50, 111.50, 107.30, 101.50, 97.40, 94.30, 91.60, 87.20, 83.30, 78.70, 74.42}

func TestStandard_ReferenceWeek(t *testing.T) {
	result, err := NewStandard(testParams).Calculate(setFromScores(referenceScores))
	require.NoError(t, err)

	assert.Equal(t, 95.85, result.MedianValue, "median must be (97.40+94.30)/2")
	assert.Equal(t, models.StrategyStandard, result.StrategyUsed)
	require.Len(t, result.RankedEntries, 12)

	rank6 := result.RankedEntries[5]
	rank7 := result.RankedEntries[6]
	assert.Equal(t, 97.40, rank6.Score)
	assert.Equal(t, models.OutcomeWin, rank6.Outcome)
	assert.Equal(t, 1.55, rank6.MarginVsMedian)
	assert.Equal(t, 94.30, rank7.Score)
	assert.Equal(t, models.OutcomeLoss, rank7.Outcome)
	assert.Equal(t, -1.55, rank7.MarginVsMedian)
}

func TestStandard_RankOrdering(t *testing.T) {
	result, err := NewStandard(testParams).Calculate(setFromScores(referenceScores))
	require.NoError(t, err)

	for i, e := range result.RankedEntries {
		assert.Equal(t, i+1, e.Rank)
		if i > 0 {
			assert.GreaterOrEqual(t, result.RankedEntries[i-1].Score, e.Score,
				"ranked entries must be sorted by score descending")
		}
	}
	assert.Equal(t, 124.20, result.RankedEntries[0].Score, "rank 1 has the highest score")
}

func TestStandard_TieAtMedian(t *testing.T) {
	scores := []float64{130, 125, 120, 110, 105, 100, 100, 95, 90, 85, 80, 75}
	result, err := NewStandard(testParams).Calculate(setFromScores(scores))
	require.NoError(t, err)

	assert.Equal(t, 100.0, result.MedianValue)
	ties := 0
	for _, e := range result.RankedEntries {
		if e.Score == 100.0 {
			assert.Equal(t, models.OutcomeTie, e.Outcome, "entries at exactly the median must be TIE")
			assert.Equal(t, 0.0, e.MarginVsMedian)
			ties++
		}
	}
	assert.Equal(t, 2, ties)
	assert.Equal(t, 2, result.Stats.TieCount)
}

func TestStandard_StableRankForEqualScores(t *testing.T) {
	set := setFromScores([]float64{100, 90, 90, 90, 80, 70, 65, 60, 55, 50, 45, 40})
	first, err := NewStandard(testParams).Calculate(set)
	require.NoError(t, err)

	// team-02..team-04 all scored 90; input order must be preserved.
	assert.Equal(t, "team-02", first.RankedEntries[1].Identifier)
	assert.Equal(t, "team-03", first.RankedEntries[2].Identifier)
	assert.Equal(t, "team-04", first.RankedEntries[3].Identifier)
}

func TestStrategies_Deterministic(t *testing.T) {
	set := setFromScores(referenceScores)
	for _, strat := range Chain(testParams) {
		strat := strat
		t.Run(string(strat.Name()), func(t *testing.T) {
			first, err := strat.Calculate(set)
			require.NoError(t, err)
			second, err := strat.Calculate(set)
			require.NoError(t, err)
			assert.Equal(t, first, second, "repeated calls must yield identical results")
		})
	}
}

func TestOutcomePartition(t *testing.T) {
	result, err := NewStandard(testParams).Calculate(setFromScores(referenceScores))
	require.NoError(t, err)

	for _, e := range result.RankedEntries {
		switch {
		case e.MarginVsMedian > 0:
			assert.Equal(t, models.OutcomeWin, e.Outcome)
		case e.MarginVsMedian < 0:
			assert.Equal(t, models.OutcomeLoss, e.Outcome)
		default:
			assert.Equal(t, models.OutcomeTie, e.Outcome)
		}
	}
	total := result.Stats.WinCount + result.Stats.LossCount + result.Stats.TieCount
	assert.Equal(t, len(result.RankedEntries), total, "every entry has exactly one outcome")
}

func TestStatistical_OddAndEvenSizes(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		want   float64
	}{
		{"odd size takes the central value", []float64{10, 30, 20}, 20},
		{"even size averages the two central values", []float64{10, 20, 30, 40}, 25},
		{"single entry is its own median", []float64{42.5}, 42.5},
		{"twelve entries matches the standard formula", referenceScores, 95.85},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NewStatistical(testParams).Calculate(setFromScores(tt.scores))
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.MedianValue)
			assert.Equal(t, models.StrategyStatistical, result.StrategyUsed)
		})
	}
}

func TestWeighted_UniformWeightsMatchStatistical(t *testing.T) {
	set := setFromScores(referenceScores)
	weighted, err := NewWeighted(testParams).Calculate(set)
	require.NoError(t, err)
	statistical, err := NewStatistical(testParams).Calculate(set)
	require.NoError(t, err)

	assert.Equal(t, statistical.MedianValue, weighted.MedianValue,
		"uniform weights must degrade to the order-statistic median")
}

func TestWeighted_HalfWeightBoundary(t *testing.T) {
	// Weights 1,1,2 over ascending scores 10,20,30: cumulative weight hits
	// exactly half (2) at the second entry, so the straddling pair averages.
	set := models.ScoreSet{Entries: []models.ScoreEntry{
		{Identifier: "a", Score: 10, Weight: 1},
		{Identifier: "b", Score: 20, Weight: 1},
		{Identifier: "c", Score: 30, Weight: 2},
	}}
	result, err := NewWeighted(testParams).Calculate(set)
	require.NoError(t, err)
	assert.Equal(t, 25.0, result.MedianValue)
}

func TestWeighted_TwoEqualWeightsAverage(t *testing.T) {
	// Two equal weights land the cumulative exactly on half at the first
	// entry, so the pair averages.
	set := models.ScoreSet{Entries: []models.ScoreEntry{
		{Identifier: "a", Score: 10, Weight: 1},
		{Identifier: "b", Score: 20, Weight: 1},
	}}
	result, err := NewWeighted(testParams).Calculate(set)
	require.NoError(t, err)
	assert.Equal(t, 15.0, result.MedianValue)
}

func TestWeighted_SkewedWeightPullsMedian(t *testing.T) {
	set := models.ScoreSet{Entries: []models.ScoreEntry{
		{Identifier: "a", Score: 10, Weight: 10},
		{Identifier: "b", Score: 20, Weight: 1},
		{Identifier: "c", Score: 30, Weight: 1},
	}}
	result, err := NewWeighted(testParams).Calculate(set)
	require.NoError(t, err)
	assert.Equal(t, 10.0, result.MedianValue, "dominant weight holds the median at its score")
}

func TestChain_FixedOrder(t *testing.T) {
	chain := Chain(testParams)
	require.Len(t, chain, 3)
	assert.Equal(t, models.StrategyStandard, chain[0].Name())
	assert.Equal(t, models.StrategyStatistical, chain[1].Name())
	assert.Equal(t, models.StrategyWeighted, chain[2].Name())
}

func TestStrategies_EmptySetRejected(t *testing.T) {
	for _, strat := range Chain(testParams) {
		_, err := strat.Calculate(models.ScoreSet{Entries: []models.ScoreEntry{}})
		assert.Error(t, err, "strategy %s must reject an empty set", strat.Name())
	}
}
