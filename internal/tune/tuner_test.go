package tune

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halfpoint/medianengine/internal/models"
)

func recordsFor(strategy models.StrategyName, confidence, durationMs float64, n int) []models.HistoryRecord {
	out := make([]models.HistoryRecord, n)
	for i := range out {
		out[i] = models.HistoryRecord{
			StrategyUsed:  strategy,
			Confidence:    confidence,
			CalculationMs: durationMs,
		}
	}
	return out
}

func TestTuner_StrategyTrustBlendsConfidenceAndSpeed(t *testing.T) {
	params := NewParams(nil, nil, nil)
	tuner := NewTuner(params, 20)

	// A single strategy dominates the window: its mean duration is also the
	// maximum, so the speed term contributes nothing and trust reduces to
	// 0.7 x 0.9 + 0.3 x 0 = 0.63.
	tuner.Run(recordsFor(models.StrategyStandard, 0.9, 2.0, 10))

	assert.InDelta(t, 0.63, params.StrategyTrust(models.StrategyStandard), 1e-9)
}

func TestTuner_FasterStrategyEarnsMoreTrust(t *testing.T) {
	params := NewParams(nil, nil, nil)
	tuner := NewTuner(params, 20)

	records := append(
		recordsFor(models.StrategyStandard, 0.8, 1.0, 5),
		recordsFor(models.StrategyStatistical, 0.8, 4.0, 5)...,
	)
	tuner.Run(records)

	fast := params.StrategyTrust(models.StrategyStandard)
	slow := params.StrategyTrust(models.StrategyStatistical)
	assert.Greater(t, fast, slow)

	// standard: 0.7*0.8 + 0.3*(1 - 1/4) = 0.785
	assert.InDelta(t, 0.785, fast, 1e-9)
	// statistical: 0.7*0.8 + 0.3*(1 - 4/4) = 0.56
	assert.InDelta(t, 0.56, slow, 1e-9)
}

func TestTuner_TrustStaysWithinBounds(t *testing.T) {
	params := NewParams(nil, nil, nil)
	tuner := NewTuner(params, 20)

	tuner.Run(recordsFor(models.StrategyWeighted, 0.0, 5.0, 4))

	assert.Equal(t, MinTrust, params.StrategyTrust(models.StrategyWeighted))
}

func TestTuner_WindowLimitsInspection(t *testing.T) {
	params := NewParams(nil, nil, nil)
	tuner := NewTuner(params, 5)

	// Old low-confidence records fall outside the window; only the newest
	// five, all at 0.9, inform the pass.
	records := append(
		recordsFor(models.StrategyStandard, 0.1, 2.0, 50),
		recordsFor(models.StrategyStandard, 0.9, 2.0, 5)...,
	)
	tuner.Run(records)

	assert.InDelta(t, 0.63, params.StrategyTrust(models.StrategyStandard), 1e-9)
}

func TestTuner_AccurateFeedbackRaisesSensitivity(t *testing.T) {
	params := NewParams(nil, map[string]float64{"statistical_outlier": 0.8}, nil)
	tuner := NewTuner(params, 20)

	for i := 0; i < 10; i++ {
		tuner.RecordFeedback(Feedback{DetectorName: "statistical_outlier", Accurate: true})
	}
	tuner.Run(nil)

	assert.InDelta(t, 0.85, params.DetectorSensitivity("statistical_outlier"), 1e-9)
}

func TestTuner_FalsePositivesLowerSensitivity(t *testing.T) {
	params := NewParams(nil, map[string]float64{"pattern_gap": 0.5}, nil)
	tuner := NewTuner(params, 20)

	for i := 0; i < 4; i++ {
		tuner.RecordFeedback(Feedback{DetectorName: "pattern_gap", Accurate: i < 2, FalsePositive: i >= 2})
	}
	tuner.Run(nil)

	assert.InDelta(t, 0.45, params.DetectorSensitivity("pattern_gap"), 1e-9)
}

func TestTuner_NoFeedbackLeavesSensitivityAlone(t *testing.T) {
	params := NewParams(nil, map[string]float64{"pattern_gap": 0.5}, nil)
	tuner := NewTuner(params, 20)

	tuner.Run(nil)

	assert.Equal(t, 0.5, params.DetectorSensitivity("pattern_gap"))
}

func TestTuner_FeedbackConsumedPerPass(t *testing.T) {
	params := NewParams(nil, map[string]float64{"statistical_outlier": 0.8}, nil)
	tuner := NewTuner(params, 20)

	for i := 0; i < 5; i++ {
		tuner.RecordFeedback(Feedback{DetectorName: "statistical_outlier", Accurate: true})
	}
	tuner.Run(nil)
	require.InDelta(t, 0.85, params.DetectorSensitivity("statistical_outlier"), 1e-9)

	// A second pass without fresh labels must not nudge again.
	tuner.Run(nil)
	assert.InDelta(t, 0.85, params.DetectorSensitivity("statistical_outlier"), 1e-9)
}

func TestTuner_SensitivityClampedAtCeiling(t *testing.T) {
	params := NewParams(nil, map[string]float64{"statistical_outlier": 0.98}, nil)
	tuner := NewTuner(params, 20)

	for i := 0; i < 3; i++ {
		tuner.RecordFeedback(Feedback{DetectorName: "statistical_outlier", Accurate: true})
	}
	tuner.Run(nil)

	assert.Equal(t, MaxSensitivity, params.DetectorSensitivity("statistical_outlier"))
}

func TestParams_DefaultsWhenUnconfigured(t *testing.T) {
	params := NewParams(nil, nil, nil)

	assert.Equal(t, 0.8, params.StrategyTrust(models.StrategyStandard))
	assert.Equal(t, 0.8, params.StrategyConfidence(models.StrategyWeighted))
	assert.Equal(t, 1.0, params.DetectorSensitivity("historical_deviation"))
	assert.Equal(t, 0.8, params.DetectorConfidence("historical_deviation"))
}

func TestParams_SnapshotIsACopy(t *testing.T) {
	params := NewParams(nil, map[string]float64{"pattern_gap": 0.5}, nil)

	view := params.Snapshot()
	view.DetectorSensitivity["pattern_gap"] = 0.1

	assert.Equal(t, 0.5, params.DetectorSensitivity("pattern_gap"))
}
