package anomaly

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/halfpoint/medianengine/internal/models"
)

// BreakerSettings controls how quickly a failing detector is taken out of
// rotation and how long it stays benched.
type BreakerSettings struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// DefaultBreakerSettings benches a detector after 3 consecutive failures for
// 30 seconds.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{ConsecutiveFailures: 3, OpenTimeout: 30 * time.Second}
}

// Guarded wraps a Detector in a circuit breaker. A detector error or an open
// breaker yields an empty report instead of propagating: one broken detector
// must never abort the others or the calculation itself.
type Guarded struct {
	inner   Detector
	breaker *gobreaker.CircuitBreaker
}

// Guard wraps each detector with its own breaker.
func Guard(detectors []Detector, settings BreakerSettings) []Detector {
	out := make([]Detector, len(detectors))
	for i, d := range detectors {
		out[i] = NewGuarded(d, settings)
	}
	return out
}

// NewGuarded wraps a single detector.
func NewGuarded(inner Detector, settings BreakerSettings) *Guarded {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    inner.Name(),
		Timeout: settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("detector", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("detector breaker state change")
		},
	})
	return &Guarded{inner: inner, breaker: cb}
}

func (g *Guarded) Name() string { return g.inner.Name() }

// State exposes the breaker state for diagnostics and metrics.
func (g *Guarded) State() gobreaker.State { return g.breaker.State() }

// Detect runs the wrapped detector through the breaker. Failures are logged
// and converted to an empty report with the detector's name attached, so the
// aggregate stays well-formed.
func (g *Guarded) Detect(in Input) (models.AnomalyReport, error) {
	res, err := g.breaker.Execute(func() (interface{}, error) {
		return g.inner.Detect(in)
	})
	if err != nil {
		log.Warn().Err(err).Str("detector", g.inner.Name()).Msg("detector skipped")
		return models.AnomalyReport{DetectorName: g.inner.Name()}, nil
	}
	return res.(models.AnomalyReport), nil
}
