// Package models defines the core value types shared across the median
// scoring engine: score inputs, ranked results, anomaly findings and the
// compressed history projection.
package models

import (
	"math"
	"time"
)

// Outcome classifies an entry's margin against the group median.
type Outcome string

const (
	OutcomeWin  Outcome = "WIN"
	OutcomeLoss Outcome = "LOSS"
	OutcomeTie  Outcome = "TIE"
)

// StrategyName identifies one of the fixed median calculation strategies.
type StrategyName string

const (
	StrategyStandard    StrategyName = "standard"
	StrategyStatistical StrategyName = "statistical"
	StrategyWeighted    StrategyName = "weighted"
)

// ScoreEntry is one competitor's observation for a period. Immutable once
// constructed; Weight is only consulted by the weighted strategy and defaults
// to 1 when zero.
type ScoreEntry struct {
	Identifier     string  `json:"identifier"`
	Score          float64 `json:"score"`
	ProjectedScore float64 `json:"projected_score"`
	Weight         float64 `json:"weight,omitempty"`
}

// ScoreSet is the fixed-size group of competitor scores for one period.
// Order is irrelevant; identifiers must be unique. Validation is owned by
// the validation package, not enforced here.
type ScoreSet struct {
	Period  string       `json:"period,omitempty"`
	Entries []ScoreEntry `json:"entries"`
}

// RankedEntry augments a ScoreEntry with its position against the median.
type RankedEntry struct {
	ScoreEntry
	Rank           int     `json:"rank"` // 1 = highest score
	MarginVsMedian float64 `json:"margin_vs_median"`
	Outcome        Outcome `json:"outcome"`
}

// DerivedStats summarizes the score distribution behind a result.
type DerivedStats struct {
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Spread    float64 `json:"spread"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"std_dev"`
	WinCount  int     `json:"win_count"`
	LossCount int     `json:"loss_count"`
	TieCount  int     `json:"tie_count"`
}

// MedianResult is the output of one strategy run over a validated ScoreSet.
type MedianResult struct {
	InvocationID     string        `json:"invocation_id,omitempty"`
	Period           string        `json:"period,omitempty"`
	MedianValue      float64       `json:"median_value"`
	RankedEntries    []RankedEntry `json:"ranked_entries"`
	StrategyUsed     StrategyName  `json:"strategy_used"`
	Stats            DerivedStats  `json:"stats"`
	Confidence       float64       `json:"confidence"`
	FlaggedForReview bool          `json:"flagged_for_review"`
	Timestamp        time.Time     `json:"timestamp"`
}

// AnomalyFinding is one suspicious observation reported by a detector.
type AnomalyFinding struct {
	Kind     string  `json:"kind"`
	Severity float64 `json:"severity"` // 0..1
	Details  string  `json:"details"`
}

// AnomalyReport is the output of a single detector run.
type AnomalyReport struct {
	DetectorName string           `json:"detector_name"`
	Findings     []AnomalyFinding `json:"findings"`
	Severity     float64          `json:"severity"`   // max over findings, 0 if none
	Confidence   float64          `json:"confidence"` // static per-detector weight
}

// AggregatedVerdict merges all detector reports for one result.
type AggregatedVerdict struct {
	HasAnomalies bool             `json:"has_anomalies"`
	Severity     float64          `json:"severity"` // max across reports
	Findings     []AnomalyFinding `json:"findings"`
}

// HistoryRecord is the compressed projection of a MedianResult kept in the
// rolling history store. The full result is not retained past the call.
type HistoryRecord struct {
	InvocationID     string       `json:"invocation_id" db:"invocation_id"`
	Timestamp        time.Time    `json:"timestamp" db:"ts"`
	MedianValue      float64      `json:"median_value" db:"median_value"`
	StrategyUsed     StrategyName `json:"strategy_used" db:"strategy_used"`
	CalculationMs    float64      `json:"calculation_ms" db:"calculation_ms"`
	Confidence       float64      `json:"confidence" db:"confidence"`
	Quality          float64      `json:"quality" db:"quality"` // 0..1
	FallbacksUsed    int          `json:"fallbacks_used" db:"fallbacks_used"`
	AnomalySeverity  float64      `json:"anomaly_severity" db:"anomaly_severity"`
	FlaggedForReview bool         `json:"flagged_for_review" db:"flagged_for_review"`
}

// Scores returns the raw score values of a set, in input order.
func (s ScoreSet) Scores() []float64 {
	out := make([]float64, len(s.Entries))
	for i, e := range s.Entries {
		out[i] = e.Score
	}
	return out
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}

// MeanStdDev computes the mean and population standard deviation of vals.
// Both are 0 for an empty slice.
func MeanStdDev(vals []float64) (mean, stddev float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))

	var sumSq float64
	for _, v := range vals {
		d := v - mean
		sumSq += d * d
	}
	return mean, math.Sqrt(sumSq / float64(len(vals)))
}
