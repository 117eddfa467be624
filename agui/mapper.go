package agui

import (
	"context"
	"strings"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"

	"github.com/spetersoncode/answer"
)

// Mapper converts the events of one call to AG-UI events.
type Mapper struct {
	threadID string
	runID    string

	messageID string // current text message, "" if none is open
	sent      string // text already sent for the current message
	ended     map[string]bool
}

// NewMapper creates a new Mapper for a single run.
// Empty ids are generated.
func NewMapper(threadID, runID string) *Mapper {
	if threadID == "" {
		threadID = events.GenerateThreadID()
	}
	if runID == "" {
		runID = events.GenerateRunID()
	}
	return &Mapper{
		threadID: threadID,
		runID:    runID,
	}
}

// ThreadID returns the thread ID for this mapper.
func (m *Mapper) ThreadID() string {
	return m.threadID
}

// RunID returns the run ID for this mapper.
func (m *Mapper) RunID() string {
	return m.runID
}

// RunStarted returns a RUN_STARTED event.
func (m *Mapper) RunStarted() events.Event {
	return events.NewRunStartedEvent(m.threadID, m.runID)
}

// RunFinished returns a RUN_FINISHED event.
func (m *Mapper) RunFinished() events.Event {
	return events.NewRunFinishedEvent(m.threadID, m.runID)
}

// RunError returns a RUN_ERROR event.
func (m *Mapper) RunError(err error) events.Event {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return events.NewRunErrorEvent(msg)
}

// MapEvent converts an answer event to zero or more AG-UI events.
func (m *Mapper) MapEvent(e answer.Event) []events.Event {
	switch e.Type {
	case answer.EventAnswer:
		if e.Answer == nil {
			return nil
		}
		return m.mapAnswer(*e.Answer)

	case answer.EventDone:
		out := m.endMessage()
		if e.Err != nil {
			return append(out, m.RunError(e.Err))
		}
		return append(out, m.RunFinished())

	default:
		return nil
	}
}

func (m *Mapper) mapAnswer(a answer.Answer) []events.Event {
	var out []events.Event

	if m.messageID != "" && !strings.HasPrefix(a.Text, m.sent) {
		out = append(out, m.endMessage()...)
	}
	if m.messageID == "" {
		m.messageID = a.MessageID
		// A rewrite reuses the upstream id, which was already ended.
		if m.messageID == "" || m.ended[m.messageID] {
			m.messageID = events.GenerateMessageID()
		}
		m.sent = ""
		out = append(out, events.NewTextMessageStartEvent(m.messageID, events.WithRole(RoleAssistant)))
	}

	if delta := strings.TrimPrefix(a.Text, m.sent); delta != "" {
		out = append(out, events.NewTextMessageContentEvent(m.messageID, delta))
		m.sent = a.Text
	}
	return out
}

func (m *Mapper) endMessage() []events.Event {
	if m.messageID == "" {
		return nil
	}
	ev := events.NewTextMessageEndEvent(m.messageID)
	if m.ended == nil {
		m.ended = make(map[string]bool)
	}
	m.ended[m.messageID] = true
	m.messageID = ""
	m.sent = ""
	return []events.Event{ev}
}

// MapStream drains call and returns its mapped events, starting with
// RUN_STARTED and ending with RUN_FINISHED or RUN_ERROR. The channel is
// closed afterwards. If ctx ends, delivery stops but call is still drained.
func (m *Mapper) MapStream(ctx context.Context, call *answer.Call) <-chan events.Event {
	out := make(chan events.Event)

	go func() {
		defer close(out)

		send := func(ev events.Event) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		open := send(m.RunStarted())
		for ev := range call.Events() {
			if !open {
				continue
			}
			for _, mapped := range m.MapEvent(ev) {
				if !send(mapped) {
					open = false
					break
				}
			}
		}
	}()

	return out
}
