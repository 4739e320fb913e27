// Package tune owns the engine's runtime-adjustable parameters: per-strategy
// trust weights and per-detector sensitivity/confidence. Parameters are read
// by the engine and detectors on every invocation and written only through
// the Tuner, so there is a single mutation path.
package tune

import (
	"sync"

	"github.com/halfpoint/medianengine/internal/models"
)

// Bounds for tunable values.
const (
	MinSensitivity = 0.1
	MaxSensitivity = 1.0
	MinTrust       = 0.1
	MaxTrust       = 1.0

	// SensitivityStep is the nudge applied per tuning pass.
	SensitivityStep = 0.05
)

// Params is the engine's mutable tunable state. Zero value is not usable;
// construct with NewParams.
type Params struct {
	mu sync.RWMutex

	strategyTrust       map[models.StrategyName]float64
	strategyConfidence  map[models.StrategyName]float64
	detectorSensitivity map[string]float64
	detectorConfidence  map[string]float64
}

// Defaults used for any strategy or detector not explicitly configured.
const (
	defaultTrust       = 0.8
	defaultConfidence  = 0.8
	defaultSensitivity = 1.0
)

// NewParams creates tunable state seeded from the supplied initial values.
// Nil maps are allowed; lookups fall back to defaults.
func NewParams(strategyConfidence map[models.StrategyName]float64, detectorSensitivity, detectorConfidence map[string]float64) *Params {
	p := &Params{
		strategyTrust:       make(map[models.StrategyName]float64),
		strategyConfidence:  make(map[models.StrategyName]float64),
		detectorSensitivity: make(map[string]float64),
		detectorConfidence:  make(map[string]float64),
	}
	for k, v := range strategyConfidence {
		p.strategyConfidence[k] = clamp(v, 0, 1)
	}
	for k, v := range detectorSensitivity {
		p.detectorSensitivity[k] = clamp(v, MinSensitivity, MaxSensitivity)
	}
	for k, v := range detectorConfidence {
		p.detectorConfidence[k] = clamp(v, 0, 1)
	}
	return p
}

// StrategyTrust returns the tuned trust weight for a strategy.
func (p *Params) StrategyTrust(name models.StrategyName) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.strategyTrust[name]; ok {
		return v
	}
	return defaultTrust
}

// StrategyConfidence returns the configured base confidence for a strategy.
func (p *Params) StrategyConfidence(name models.StrategyName) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.strategyConfidence[name]; ok {
		return v
	}
	return defaultConfidence
}

// DetectorSensitivity implements anomaly.ParamSource.
func (p *Params) DetectorSensitivity(name string) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.detectorSensitivity[name]; ok {
		return v
	}
	return defaultSensitivity
}

// DetectorConfidence implements anomaly.ParamSource.
func (p *Params) DetectorConfidence(name string) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.detectorConfidence[name]; ok {
		return v
	}
	return defaultConfidence
}

// setStrategyTrust is the Tuner's write path.
func (p *Params) setStrategyTrust(name models.StrategyName, trust float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.strategyTrust[name] = clamp(trust, MinTrust, MaxTrust)
}

// setDetectorSensitivity is the Tuner's write path.
func (p *Params) setDetectorSensitivity(name string, sensitivity float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.detectorSensitivity[name] = clamp(sensitivity, MinSensitivity, MaxSensitivity)
}

// View is an immutable snapshot of the tunable state for diagnostics.
type View struct {
	StrategyTrust       map[models.StrategyName]float64 `json:"strategy_trust"`
	DetectorSensitivity map[string]float64              `json:"detector_sensitivity"`
	DetectorConfidence  map[string]float64              `json:"detector_confidence"`
}

// Snapshot copies the current tunable state.
func (p *Params) Snapshot() View {
	p.mu.RLock()
	defer p.mu.RUnlock()

	v := View{
		StrategyTrust:       make(map[models.StrategyName]float64, len(p.strategyTrust)),
		DetectorSensitivity: make(map[string]float64, len(p.detectorSensitivity)),
		DetectorConfidence:  make(map[string]float64, len(p.detectorConfidence)),
	}
	for k, val := range p.strategyTrust {
		v.StrategyTrust[k] = val
	}
	for k, val := range p.detectorSensitivity {
		v.DetectorSensitivity[k] = val
	}
	for k, val := range p.detectorConfidence {
		v.DetectorConfidence[k] = val
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
