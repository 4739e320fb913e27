// Package engine orchestrates one median calculation end to end: input
// validation, the strategy fallback chain, result validation, anomaly
// detection, and history recording. A single invocation is synchronous and
// CPU-only; concurrent invocations share only the history store and the
// tunable parameters.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/halfpoint/medianengine/internal/anomaly"
	"github.com/halfpoint/medianengine/internal/history"
	"github.com/halfpoint/medianengine/internal/models"
	"github.com/halfpoint/medianengine/internal/persistence"
	"github.com/halfpoint/medianengine/internal/strategy"
	"github.com/halfpoint/medianengine/internal/telemetry/metrics"
	"github.com/halfpoint/medianengine/internal/tune"
	"github.com/halfpoint/medianengine/internal/validation"
)

// state tracks where an invocation is in the calculation protocol. Used for
// logging and failure attribution only; transitions are linear with one
// FALLBACK loop from result validation back to calculation.
type state string

const (
	stateValidatingInput    state = "VALIDATING_INPUT"
	stateCalculating        state = "CALCULATING"
	stateValidatingResult   state = "VALIDATING_RESULT"
	stateDetectingAnomalies state = "DETECTING_ANOMALIES"
	stateRecording          state = "RECORDING"
	stateDone               state = "DONE"
)

// reviewThreshold is the aggregated severity above which a result is flagged.
const reviewThreshold = 0.8

// qualityDegradedBelow triggers the quality-degraded event.
const qualityDegradedBelow = 0.5

// Options configures an Engine. Zero-value fields fall back to sane defaults
// in New.
type Options struct {
	Validation validation.Config
	Params     *tune.Params
	History    *history.Store
	Mirror     *history.RedisMirror       // optional
	Archive    persistence.HistoryArchive // optional
	Notifier   Notifier                   // optional, defaults to LogNotifier
	Metrics    *metrics.Registry          // optional
}

// Engine runs the calculation protocol. Construct with New; the zero value is
// not usable.
type Engine struct {
	cfg             validation.Config
	inputValidator  *validation.ScoreSetValidator
	resultValidator *validation.ResultValidator
	strategies      []strategy.Strategy
	detectors       []anomaly.Detector
	params          *tune.Params
	history         *history.Store
	mirror          *history.RedisMirror
	archive         persistence.HistoryArchive
	notifier        Notifier
	metrics         *metrics.Registry
	logger          zerolog.Logger

	mu          sync.Mutex
	lastVerdict models.AggregatedVerdict
}

// New wires an engine from options. The strategy chain and detector set are
// fixed; only their parameters vary at runtime.
func New(opts Options) *Engine {
	if opts.Params == nil {
		opts.Params = tune.NewParams(nil, nil, nil)
	}
	if opts.History == nil {
		opts.History = history.NewStore(100)
	}
	if opts.Notifier == nil {
		opts.Notifier = LogNotifier{}
	}
	if opts.Validation.TeamCount == 0 {
		opts.Validation = validation.DefaultConfig()
	}

	detectors := anomaly.Guard(anomaly.Detectors(opts.Params), anomaly.DefaultBreakerSettings())

	return &Engine{
		cfg:             opts.Validation,
		inputValidator:  validation.NewScoreSetValidator(opts.Validation),
		resultValidator: validation.NewResultValidator(opts.Validation),
		strategies:      strategy.Chain(strategy.Params{RoundingPrecision: opts.Validation.RoundingPrecision}),
		detectors:       detectors,
		params:          opts.Params,
		history:         opts.History,
		mirror:          opts.Mirror,
		archive:         opts.Archive,
		notifier:        opts.Notifier,
		metrics:         opts.Metrics,
		logger:          log.With().Str("component", "engine").Logger(),
	}
}

// History exposes the rolling store for diagnostics surfaces.
func (e *Engine) History() *history.Store { return e.history }

// Params exposes the tunable parameters for diagnostics surfaces.
func (e *Engine) Params() *tune.Params { return e.params }

// LastVerdict returns the aggregated anomaly verdict of the most recent
// successful calculation, for diagnostic display on request.
func (e *Engine) LastVerdict() models.AggregatedVerdict {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastVerdict
}

// Calculate runs the full protocol for one score set. On success the returned
// result may carry FlaggedForReview; the verdict is also retained for
// LastVerdict. On failure the error is an *InputError or *CalculationFailure
// and no fabricated result is returned.
func (e *Engine) Calculate(ctx context.Context, set models.ScoreSet) (models.MedianResult, models.AggregatedVerdict, error) {
	invocationID := uuid.NewString()
	logger := e.logger.With().Str("invocation_id", invocationID).Str("period", set.Period).Logger()
	started := time.Now()

	// VALIDATING_INPUT: a failure here is terminal, never retried with a
	// different strategy.
	logger.Debug().Str("state", string(stateValidatingInput)).Msg("state transition")
	if outcome := e.inputValidator.Validate(set); !outcome.IsValid {
		err := &InputError{Violations: outcome.Violations}
		logger.Warn().Err(err).Msg("input rejected")
		e.observeFailure("input", started)
		e.notifier.Notify(Event{
			Name:      EventCalculationFailed,
			Timestamp: time.Now().UTC(),
			Payload: map[string]interface{}{
				"invocation_id": invocationID,
				"period":        set.Period,
				"reason":        "invalid input",
			},
		})
		return models.MedianResult{}, models.AggregatedVerdict{}, err
	}

	// CALCULATING / VALIDATING_RESULT with FALLBACK through the fixed chain.
	var (
		result         models.MedianResult
		lastViolations []validation.Violation
		fallbacks      int
		succeeded      bool
	)
	for i, strat := range e.strategies {
		logger.Debug().Str("state", string(stateCalculating)).Str("strategy", string(strat.Name())).Msg("state transition")
		candidate, err := strat.Calculate(set)
		if err != nil {
			// Only invalid input reaches here, and the input gate already
			// passed; treat as a result validation failure for this strategy.
			logger.Error().Err(err).Str("strategy", string(strat.Name())).Msg("strategy error")
			lastViolations = []validation.Violation{{Kind: validation.ViolationStructure, Message: err.Error()}}
			continue
		}

		logger.Debug().Str("state", string(stateValidatingResult)).Str("strategy", string(strat.Name())).Msg("state transition")
		outcome := e.resultValidator.Validate(candidate)
		if outcome.IsValid {
			result = candidate
			fallbacks = i
			succeeded = true
			break
		}
		lastViolations = outcome.Violations
		logger.Warn().
			Str("strategy", string(strat.Name())).
			Int("violations", len(outcome.Violations)).
			Msg("result failed validation, falling back")
		if e.metrics != nil {
			e.metrics.IncFallback(string(strat.Name()))
		}
	}

	if !succeeded {
		err := &CalculationFailure{Attempts: len(e.strategies), LastViolations: lastViolations}
		logger.Error().Err(err).Msg("fallback chain exhausted")
		e.observeFailure("result", started)
		e.notifier.Notify(Event{
			Name:      EventCalculationFailed,
			Timestamp: time.Now().UTC(),
			Payload: map[string]interface{}{
				"invocation_id": invocationID,
				"period":        set.Period,
				"reason":        "all strategies failed validation",
			},
		})
		return models.MedianResult{}, models.AggregatedVerdict{}, err
	}

	result.InvocationID = invocationID
	result.Timestamp = time.Now().UTC()
	result.Confidence = e.params.StrategyConfidence(result.StrategyUsed) * e.params.StrategyTrust(result.StrategyUsed)

	// DETECTING_ANOMALIES: all detectors run; a guarded detector failure
	// degrades to an empty report.
	logger.Debug().Str("state", string(stateDetectingAnomalies)).Msg("state transition")
	historySnapshot := e.history.Snapshot()
	input := anomaly.Input{Result: result, ScoreSet: set, History: historySnapshot}
	reports := make([]models.AnomalyReport, 0, len(e.detectors))
	for _, det := range e.detectors {
		rep, _ := det.Detect(input) // guarded detectors never return an error
		reports = append(reports, rep)
	}
	verdict := anomaly.Aggregate(reports)
	if verdict.Severity > reviewThreshold {
		result.FlaggedForReview = true
	}

	// RECORDING: compress to a history record and append.
	logger.Debug().Str("state", string(stateRecording)).Msg("state transition")
	elapsed := time.Since(started)
	quality := computeQuality(verdict.Severity, fallbacks)
	record := models.HistoryRecord{
		InvocationID:     invocationID,
		Timestamp:        result.Timestamp,
		MedianValue:      result.MedianValue,
		StrategyUsed:     result.StrategyUsed,
		CalculationMs:    float64(elapsed.Microseconds()) / 1000,
		Confidence:       result.Confidence,
		Quality:          quality,
		FallbacksUsed:    fallbacks,
		AnomalySeverity:  verdict.Severity,
		FlaggedForReview: result.FlaggedForReview,
	}
	e.history.Append(record)
	e.persistRecord(ctx, logger, record)

	e.mu.Lock()
	e.lastVerdict = verdict
	e.mu.Unlock()

	e.observeSuccess(result, verdict, elapsed)
	e.emitResultEvents(invocationID, set.Period, result, verdict, quality)

	logger.Info().
		Str("state", string(stateDone)).
		Float64("median", result.MedianValue).
		Str("strategy", string(result.StrategyUsed)).
		Int("fallbacks", fallbacks).
		Float64("severity", verdict.Severity).
		Bool("flagged", result.FlaggedForReview).
		Dur("elapsed", elapsed).
		Msg("calculation complete")

	return result, verdict, nil
}

// persistRecord mirrors and archives best-effort; neither failure affects the
// returned result.
func (e *Engine) persistRecord(ctx context.Context, logger zerolog.Logger, record models.HistoryRecord) {
	if e.mirror != nil {
		if err := e.mirror.Append(ctx, record); err != nil {
			logger.Warn().Err(err).Msg("history mirror append failed")
		}
	}
	if e.archive != nil {
		if err := e.archive.Insert(ctx, record); err != nil {
			logger.Warn().Err(err).Msg("history archive insert failed")
		}
	}
}

func (e *Engine) emitResultEvents(invocationID, period string, result models.MedianResult, verdict models.AggregatedVerdict, quality float64) {
	now := time.Now().UTC()
	payload := map[string]interface{}{
		"invocation_id": invocationID,
		"period":        period,
		"median":        result.MedianValue,
		"strategy":      string(result.StrategyUsed),
	}
	e.notifier.Notify(Event{Name: EventResultComputed, Timestamp: now, Payload: payload})

	if result.FlaggedForReview {
		flagged := map[string]interface{}{
			"invocation_id": invocationID,
			"period":        period,
			"severity":      verdict.Severity,
			"findings":      len(verdict.Findings),
		}
		e.notifier.Notify(Event{Name: EventResultFlagged, Timestamp: now, Payload: flagged})
	}

	if quality < qualityDegradedBelow {
		degraded := map[string]interface{}{
			"invocation_id": invocationID,
			"period":        period,
			"quality":       quality,
		}
		e.notifier.Notify(Event{Name: EventQualityDegraded, Timestamp: now, Payload: degraded})
	}
}

func (e *Engine) observeSuccess(result models.MedianResult, verdict models.AggregatedVerdict, elapsed time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.ObserveCalculation(string(result.StrategyUsed), "ok", elapsed.Seconds())
	e.metrics.SetAnomalySeverity(verdict.Severity)
	if result.FlaggedForReview {
		e.metrics.IncFlagged()
	}
	e.metrics.SetHistorySize(e.history.Len())
}

func (e *Engine) observeFailure(kind string, started time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.ObserveCalculation("none", kind+"_error", time.Since(started).Seconds())
}

// computeQuality scores a calculation's trustworthiness: anomaly severity
// costs up to half, every fallback step costs a tenth, floored at zero.
func computeQuality(severity float64, fallbacks int) float64 {
	q := 1 - 0.5*severity - 0.1*float64(fallbacks)
	if q < 0 {
		return 0
	}
	return q
}
