package orchestrator

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/tembric/ensemble/pkg/models"
)

// EventType identifies the kind of run event.
type EventType string

const (
	EventRunStarted     EventType = "run_started"
	EventStageChanged   EventType = "stage_changed"
	EventRoleStarted    EventType = "role_started"
	EventRoleFinished   EventType = "role_finished"
	EventStepFailed     EventType = "step_failed"
	EventRetryScheduled EventType = "retry_scheduled"
	EventBudgetWarning  EventType = "budget_warning"
	EventTierAdjusted   EventType = "tier_adjusted"
	EventRunFinished    EventType = "run_finished"
)

// Event is a progress notification emitted during a run.
type Event struct {
	// Type identifies the event kind.
	Type EventType
	// RunID is the run this event belongs to.
	RunID string
	// Stage is the run stage at emission time.
	Stage Stage
	// Role is the role involved, when applicable.
	Role string
	// StepNumber is the plan step involved, when applicable.
	StepNumber int
	// Tier is the routing tier involved, when applicable.
	Tier models.Tier
	// Message is a human-readable description.
	Message string
	// Timestamp is when the event was emitted.
	Timestamp time.Time
}

// EventEmitter delivers events to a subscriber over a buffered channel.
// Emission never blocks a run for long: when the buffer stays full past a
// short grace period the event is dropped and counted.
type EventEmitter struct {
	events       chan Event
	droppedCount atomic.Uint64
}

// NewEventEmitter creates an EventEmitter with the given buffer size.
func NewEventEmitter(bufferSize int) *EventEmitter {
	return &EventEmitter{
		events: make(chan Event, bufferSize),
	}
}

// Emit sends an event. If the channel is full, it retries with a timeout
// before dropping the event.
func (e *EventEmitter) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case e.events <- event:
		return
	default:
	}

	select {
	case e.events <- event:
	case <-time.After(100 * time.Millisecond):
		count := e.droppedCount.Add(1)
		if count%10 == 1 {
			log.Printf("[orchestrator] WARNING: event channel full, dropped event (total dropped: %d): type=%s", count, event.Type)
		}
	}
}

// DroppedCount returns the total number of dropped events.
func (e *EventEmitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Events returns a read-only channel of events for subscribers.
func (e *EventEmitter) Events() <-chan Event {
	return e.events
}

// Close closes the events channel. Call only after the run has finished.
func (e *EventEmitter) Close() {
	close(e.events)
}
