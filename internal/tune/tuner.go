package tune

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/halfpoint/medianengine/internal/models"
)

// Feedback is one externally-labeled judgment of a flagged result. The engine
// cannot know on its own whether a flag was right; an external reviewer
// supplies that through RecordFeedback.
type Feedback struct {
	DetectorName  string
	Accurate      bool
	FalsePositive bool
}

// Tuner periodically inspects recent history and nudges the tunable
// parameters. Scheduling is the caller's concern; Run executes one pass.
type Tuner struct {
	params *Params
	window int // how many recent records a pass inspects

	mu       sync.Mutex
	feedback map[string][]Feedback

	// thresholds for the sensitivity nudge
	accuracyTarget    float64
	falsePositiveOver float64
}

// NewTuner creates a tuner operating on the given params, inspecting the
// newest window records per pass.
func NewTuner(params *Params, window int) *Tuner {
	if window < 1 {
		window = 20
	}
	return &Tuner{
		params:            params,
		window:            window,
		feedback:          make(map[string][]Feedback),
		accuracyTarget:    0.9,
		falsePositiveOver: 0.2,
	}
}

// RecordFeedback stores an external labeled judgment for the next pass.
func (t *Tuner) RecordFeedback(fb Feedback) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.feedback[fb.DetectorName] = append(t.feedback[fb.DetectorName], fb)
}

// Run executes one tuning pass over the most recent records.
func (t *Tuner) Run(records []models.HistoryRecord) {
	if len(records) > t.window {
		records = records[len(records)-t.window:]
	}
	t.tuneStrategyTrust(records)
	t.tuneDetectorSensitivity()
}

// tuneStrategyTrust recomputes trust per strategy as a blend of mean
// confidence and speed: 0.7 x meanConfidence + 0.3 x (1 - normalized mean
// duration). Trust informs reported confidence and diagnostics only; the
// fallback order never changes.
func (t *Tuner) tuneStrategyTrust(records []models.HistoryRecord) {
	type acc struct {
		confidence float64
		duration   float64
		count      int
	}
	perStrategy := make(map[models.StrategyName]*acc)
	maxDuration := 0.0

	for _, rec := range records {
		a, ok := perStrategy[rec.StrategyUsed]
		if !ok {
			a = &acc{}
			perStrategy[rec.StrategyUsed] = a
		}
		a.confidence += rec.Confidence
		a.duration += rec.CalculationMs
		a.count++
		if rec.CalculationMs > maxDuration {
			maxDuration = rec.CalculationMs
		}
	}

	for name, a := range perStrategy {
		meanConfidence := a.confidence / float64(a.count)
		meanDuration := a.duration / float64(a.count)
		normalized := 0.0
		if maxDuration > 0 {
			normalized = meanDuration / maxDuration
		}
		trust := 0.7*meanConfidence + 0.3*(1-normalized)
		t.params.setStrategyTrust(name, trust)
		log.Debug().
			Str("strategy", string(name)).
			Float64("trust", trust).
			Float64("mean_confidence", meanConfidence).
			Float64("mean_duration_ms", meanDuration).
			Int("records", a.count).
			Msg("strategy trust updated")
	}
}

// tuneDetectorSensitivity nudges sensitivity per detector based on labeled
// feedback: sustained accuracy tightens (raises sensitivity), a high false
// positive rate loosens. Detectors with no feedback stay where they are.
// Consumed feedback is discarded so each pass judges fresh labels.
func (t *Tuner) tuneDetectorSensitivity() {
	t.mu.Lock()
	feedback := t.feedback
	t.feedback = make(map[string][]Feedback)
	t.mu.Unlock()

	for name, labels := range feedback {
		if len(labels) == 0 {
			continue
		}
		accurate, falsePositives := 0, 0
		for _, fb := range labels {
			if fb.Accurate {
				accurate++
			}
			if fb.FalsePositive {
				falsePositives++
			}
		}
		accuracy := float64(accurate) / float64(len(labels))
		fpRate := float64(falsePositives) / float64(len(labels))

		current := t.params.DetectorSensitivity(name)
		next := current
		switch {
		case accuracy > t.accuracyTarget:
			next = current + SensitivityStep
		case fpRate > t.falsePositiveOver:
			next = current - SensitivityStep
		}
		if next != current {
			t.params.setDetectorSensitivity(name, next)
			log.Debug().
				Str("detector", name).
				Float64("sensitivity", clamp(next, MinSensitivity, MaxSensitivity)).
				Float64("accuracy", accuracy).
				Float64("false_positive_rate", fpRate).
				Int("labels", len(labels)).
				Msg("detector sensitivity updated")
		}
	}
}
