package agui

import (
	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"

	"github.com/spetersoncode/answer"
)

// Role constants matching AG-UI protocol.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// LastUserPrompt returns the content of the last non-empty user message.
func LastUserPrompt(msgs []events.Message) (string, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		msg := msgs[i]
		if msg.Role == RoleUser && msg.Content != nil && *msg.Content != "" {
			return *msg.Content, true
		}
	}
	return "", false
}

// SystemPrompt returns the content of the first system message, or "".
func SystemPrompt(msgs []events.Message) string {
	for _, msg := range msgs {
		if msg.Role == RoleSystem && msg.Content != nil {
			return *msg.Content
		}
	}
	return ""
}

// FromAnswer converts an answer to an assistant message, for snapshots.
func FromAnswer(a answer.Answer) events.Message {
	text := a.Text
	id := a.MessageID
	if id == "" {
		id = events.GenerateMessageID()
	}
	return events.Message{
		ID:      id,
		Role:    RoleAssistant,
		Content: &text,
	}
}
