// Package anomaly implements the statistical detectors that screen every
// median result, the aggregator that merges their reports, and the circuit
// breaker wrapper that keeps one failing detector from poisoning the rest.
//
// Detector sensitivity is tunable at runtime: each base threshold is divided
// by the detector's current sensitivity (bounded to [0.1, 1.0]), so a lower
// sensitivity widens the threshold and a sensitivity of 1.0 applies the base
// threshold as-is.
package anomaly

import (
	"fmt"
	"math"
	"sort"

	"github.com/halfpoint/medianengine/internal/models"
)

// Detector names, also the keys for sensitivity and confidence tuning.
const (
	DetectorStatisticalOutlier  = "statistical_outlier"
	DetectorHistoricalDeviation = "historical_deviation"
	DetectorPatternGap          = "pattern_gap"
	DetectorProjectionVariance  = "projection_variance"
)

// Base thresholds before sensitivity scaling.
const (
	outlierZThreshold    = 2.5
	historicalZThreshold = 2.0
	gapRatioThreshold    = 3.0
	varianceThreshold    = 0.5

	// minHistoryRecords is the floor below which historical deviation
	// abstains. Too little history is not an anomaly.
	minHistoryRecords = 5
)

// Input is everything a detector may inspect. Detectors are pure over this
// input; History is a read-only snapshot taken before the run.
type Input struct {
	Result   models.MedianResult
	ScoreSet models.ScoreSet
	History  []models.HistoryRecord
}

// Detector screens one result for a single class of statistical anomaly.
type Detector interface {
	Name() string
	Detect(in Input) (models.AnomalyReport, error)
}

// ParamSource supplies the tunable per-detector parameters. Implemented by
// tune.Params; detectors read it on every run so tuning takes effect without
// re-wiring.
type ParamSource interface {
	DetectorSensitivity(name string) float64
	DetectorConfidence(name string) float64
}

// Detectors returns the full fixed detector set in reporting order.
func Detectors(params ParamSource) []Detector {
	return []Detector{
		&StatisticalOutlier{params: params},
		&HistoricalDeviation{params: params},
		&PatternGap{params: params},
		&ProjectionVariance{params: params},
	}
}

func report(name string, confidence float64, findings []models.AnomalyFinding) models.AnomalyReport {
	severity := 0.0
	for _, f := range findings {
		if f.Severity > severity {
			severity = f.Severity
		}
	}
	return models.AnomalyReport{
		DetectorName: name,
		Findings:     findings,
		Severity:     severity,
		Confidence:   confidence,
	}
}

// StatisticalOutlier flags entries whose score sits far from the set's own
// mean, measured in standard deviations.
type StatisticalOutlier struct {
	params ParamSource
}

func (d *StatisticalOutlier) Name() string { return DetectorStatisticalOutlier }

func (d *StatisticalOutlier) Detect(in Input) (models.AnomalyReport, error) {
	scores := in.ScoreSet.Scores()
	mean, stddev := models.MeanStdDev(scores)

	var findings []models.AnomalyFinding
	if stddev > 0 {
		threshold := outlierZThreshold / d.params.DetectorSensitivity(d.Name())
		for _, e := range in.ScoreSet.Entries {
			z := (e.Score - mean) / stddev
			if math.Abs(z) > threshold {
				findings = append(findings, models.AnomalyFinding{
					Kind:     "score_outlier",
					Severity: math.Min(math.Abs(z)/3, 1),
					Details:  fmt.Sprintf("%s scored %.2f, z=%.2f against set mean %.2f", e.Identifier, e.Score, z, mean),
				})
			}
		}
	}
	return report(d.Name(), d.params.DetectorConfidence(d.Name()), findings), nil
}

// HistoricalDeviation flags a median value that sits far outside the recent
// run of medians. Abstains with an empty report until enough history exists.
type HistoricalDeviation struct {
	params ParamSource
}

func (d *HistoricalDeviation) Name() string { return DetectorHistoricalDeviation }

func (d *HistoricalDeviation) Detect(in Input) (models.AnomalyReport, error) {
	confidence := d.params.DetectorConfidence(d.Name())
	if len(in.History) < minHistoryRecords {
		return report(d.Name(), confidence, nil), nil
	}

	medians := make([]float64, len(in.History))
	for i, rec := range in.History {
		if math.IsNaN(rec.MedianValue) || math.IsInf(rec.MedianValue, 0) {
			return models.AnomalyReport{}, fmt.Errorf("malformed history record %s: non-finite median", rec.InvocationID)
		}
		medians[i] = rec.MedianValue
	}

	mean, stddev := models.MeanStdDev(medians)
	var findings []models.AnomalyFinding
	if stddev > 0 {
		z := (in.Result.MedianValue - mean) / stddev
		threshold := historicalZThreshold / d.params.DetectorSensitivity(d.Name())
		if math.Abs(z) > threshold {
			findings = append(findings, models.AnomalyFinding{
				Kind:     "historical_deviation",
				Severity: math.Min(math.Abs(z)/3, 1),
				Details:  fmt.Sprintf("median %.2f deviates z=%.2f from historical mean %.2f over %d records", in.Result.MedianValue, z, mean, len(medians)),
			})
		}
	}
	return report(d.Name(), confidence, findings), nil
}

// PatternGap flags unusual clustering: a consecutive gap in the sorted scores
// far wider than the average gap suggests a split or corrupted subgroup.
type PatternGap struct {
	params ParamSource
}

func (d *PatternGap) Name() string { return DetectorPatternGap }

func (d *PatternGap) Detect(in Input) (models.AnomalyReport, error) {
	scores := in.ScoreSet.Scores()
	if len(scores) < 3 {
		return report(d.Name(), d.params.DetectorConfidence(d.Name()), nil), nil
	}
	sort.Float64s(scores)

	gaps := make([]float64, 0, len(scores)-1)
	var totalGap float64
	for i := 1; i < len(scores); i++ {
		gap := scores[i] - scores[i-1]
		gaps = append(gaps, gap)
		totalGap += gap
	}
	avgGap := totalGap / float64(len(gaps))

	var findings []models.AnomalyFinding
	if avgGap > 0 {
		threshold := gapRatioThreshold / d.params.DetectorSensitivity(d.Name())
		oversized := 0
		for i, gap := range gaps {
			if gap > threshold*avgGap {
				oversized++
				findings = append(findings, models.AnomalyFinding{
					Kind:    "score_gap",
					Details: fmt.Sprintf("gap %.2f between %.2f and %.2f is %.1fx the average gap %.2f", gap, scores[i], scores[i+1], gap/avgGap, avgGap),
				})
			}
		}
		// Severity scales with how many oversized gaps were found.
		severity := math.Min(float64(oversized)*0.35, 1)
		for i := range findings {
			findings[i].Severity = severity
		}
	}
	return report(d.Name(), d.params.DetectorConfidence(d.Name()), findings), nil
}

// ProjectionVariance flags entries whose actual score strays far from their
// projection. Entries without a projection are skipped.
type ProjectionVariance struct {
	params ParamSource
}

func (d *ProjectionVariance) Name() string { return DetectorProjectionVariance }

func (d *ProjectionVariance) Detect(in Input) (models.AnomalyReport, error) {
	threshold := varianceThreshold / d.params.DetectorSensitivity(d.Name())

	var findings []models.AnomalyFinding
	for _, e := range in.ScoreSet.Entries {
		if e.ProjectedScore == 0 {
			continue
		}
		variance := math.Abs(e.Score-e.ProjectedScore) / e.ProjectedScore
		if variance > threshold {
			findings = append(findings, models.AnomalyFinding{
				Kind:     "projection_variance",
				Severity: math.Min(variance, 1),
				Details:  fmt.Sprintf("%s scored %.2f against projection %.2f (%.0f%% variance)", e.Identifier, e.Score, e.ProjectedScore, variance*100),
			})
		}
	}
	return report(d.Name(), d.params.DetectorConfidence(d.Name()), findings), nil
}
