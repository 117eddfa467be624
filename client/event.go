package client

import (
	"time"

	"github.com/spetersoncode/answer"
	"github.com/spetersoncode/answer/internal/retry"
)

// EventType identifies the kind of event occurring during client operations.
type EventType string

const (
	// EventRequestStart fires before a provider is called.
	EventRequestStart EventType = "request_start"

	// EventRequestComplete fires after a call finished without error.
	EventRequestComplete EventType = "request_complete"

	// EventRequestError fires when a call failed or was cancelled.
	EventRequestError EventType = "request_error"

	// EventRetry fires for every retry event of a call.
	EventRetry EventType = "retry"
)

// Event represents an observable occurrence during client operations.
type Event struct {
	Type     EventType
	Provider answer.ProviderName

	// Model is the per-call model override, if any.
	Model string

	// Duration is the elapsed time for finished calls.
	Duration time.Duration

	// Answers is the number of answer events delivered.
	Answers int

	// Error contains the error for EventRequestError.
	Error error

	// RetryEvent contains the underlying retry event for EventRetry.
	RetryEvent *retry.Event

	Timestamp time.Time
}

// emit sends an event with timestamp to the channel without blocking.
func emit(ch chan<- Event, event Event) {
	if ch == nil {
		return
	}
	event.Timestamp = time.Now()
	select {
	case ch <- event:
	default:
		// Channel full - don't block
	}
}
