package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/halfpoint/medianengine/internal/validation"
)

// Sentinel errors for errors.Is checks.
var (
	// ErrInvalidInput marks an input-level failure. Never retried with a
	// fallback strategy; the caller must supply a corrected score set.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAllStrategiesFailed marks exhaustion of the fallback chain.
	ErrAllStrategiesFailed = errors.New("all strategies failed validation")
)

// InputError carries the score set validator's violations.
type InputError struct {
	Violations []validation.Violation
}

func (e *InputError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return fmt.Sprintf("invalid input: %s", strings.Join(msgs, "; "))
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// CalculationFailure reports that every strategy's result failed validation,
// with the last strategy's violations attached.
type CalculationFailure struct {
	Attempts       int
	LastViolations []validation.Violation
}

func (e *CalculationFailure) Error() string {
	msgs := make([]string, len(e.LastViolations))
	for i, v := range e.LastViolations {
		msgs[i] = v.String()
	}
	return fmt.Sprintf("calculation failed after %d strategies: %s", e.Attempts, strings.Join(msgs, "; "))
}

func (e *CalculationFailure) Unwrap() error { return ErrAllStrategiesFailed }
