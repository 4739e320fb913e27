package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFanoutNotifier_DeliversToAll(t *testing.T) {
	a := &captureNotifier{}
	b := &captureNotifier{}
	fan := FanoutNotifier{a, b}

	fan.Notify(Event{Name: EventResultComputed})

	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}

func TestThrottledNotifier_SuppressesDegradedStorm(t *testing.T) {
	inner := &captureNotifier{}
	throttled := NewThrottledNotifier(inner, time.Hour)

	for i := 0; i < 10; i++ {
		throttled.Notify(Event{Name: EventQualityDegraded})
	}

	// The burst allowance passes; the rest of the storm is dropped.
	assert.Len(t, inner.events, 2)
}

func TestThrottledNotifier_PassesOtherEvents(t *testing.T) {
	inner := &captureNotifier{}
	throttled := NewThrottledNotifier(inner, time.Hour)

	for i := 0; i < 5; i++ {
		throttled.Notify(Event{Name: EventResultComputed})
	}
	throttled.Notify(Event{Name: EventCalculationFailed})

	assert.Len(t, inner.events, 6, "only quality-degraded is subject to the throttle")
}
