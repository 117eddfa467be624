package answer

// EventType identifies the kind of answer event.
type EventType string

const (
	// EventAnswer carries answer text. The one-shot variant emits at most one;
	// streaming variants emit one per update with the cumulative text so far.
	EventAnswer EventType = "answer"

	// EventDone is the terminal event of every call. It is emitted exactly once
	// and is always last. Err is set when the call failed or was cancelled.
	EventDone EventType = "done"
)

// Answer is the payload of an EventAnswer event.
type Answer struct {
	Text           string `json:"text"`
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
}

// Event is a single progress event produced by a GenerateAnswer call.
type Event struct {
	Type EventType

	// Answer is set for EventAnswer events.
	Answer *Answer

	// Err is the reason a call ended early. Only set on EventDone.
	Err error
}

// AnswerEvent returns an EventAnswer event for a.
func AnswerEvent(a Answer) Event {
	return Event{Type: EventAnswer, Answer: &a}
}

// DoneEvent returns the terminal event, carrying err if the call failed.
func DoneEvent(err error) Event {
	return Event{Type: EventDone, Err: err}
}

// IsDone reports whether e is the terminal event.
func (e Event) IsDone() bool { return e.Type == EventDone }
