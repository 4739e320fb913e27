package engine

import (
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// EventName identifies a notification emitted to the orchestration shell.
// The engine does not prescribe transport; a Notifier may publish, enqueue,
// or call directly.
type EventName string

const (
	EventResultComputed    EventName = "result-computed"
	EventResultFlagged     EventName = "result-flagged-for-review"
	EventCalculationFailed EventName = "calculation-failed"
	EventQualityDegraded   EventName = "quality-degraded"
)

// Event is one named notification with an opaque payload.
type Event struct {
	Name      EventName              `json:"name"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// Notifier receives engine events. Implementations must not block the
// calculation path for long; the engine calls Notify synchronously.
type Notifier interface {
	Notify(event Event)
}

// LogNotifier writes events to the structured log. The default when no shell
// notifier is wired.
type LogNotifier struct{}

func (LogNotifier) Notify(event Event) {
	log.Info().
		Str("event", string(event.Name)).
		Fields(event.Payload).
		Msg("engine event")
}

// FanoutNotifier multiplexes one event to several notifiers.
type FanoutNotifier []Notifier

func (f FanoutNotifier) Notify(event Event) {
	for _, n := range f {
		n.Notify(event)
	}
}

// ThrottledNotifier rate-limits quality-degraded events: a run of degraded
// periods should not storm the shell with identical alarms. Other events
// pass through untouched.
type ThrottledNotifier struct {
	inner   Notifier
	limiter *rate.Limiter
}

// NewThrottledNotifier allows one quality-degraded event per interval with a
// small burst.
func NewThrottledNotifier(inner Notifier, interval time.Duration) *ThrottledNotifier {
	return &ThrottledNotifier{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Every(interval), 2),
	}
}

func (t *ThrottledNotifier) Notify(event Event) {
	if event.Name == EventQualityDegraded && !t.limiter.Allow() {
		log.Debug().Str("event", string(event.Name)).Msg("event suppressed by throttle")
		return
	}
	t.inner.Notify(event)
}
