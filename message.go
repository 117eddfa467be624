package answer

import "github.com/google/uuid"

// Role represents the role of a message sender in a conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single chat message sent upstream.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// DefaultSystemPrompt is the fixed instruction sent alongside every prompt.
const DefaultSystemPrompt = "Please return the answer formatted as markdown."

// NewID returns a fresh random identifier for messages and conversations.
func NewID() string {
	return uuid.NewString()
}

// PromptMessages builds the system and user messages for prompt.
// An empty system prompt falls back to DefaultSystemPrompt.
func PromptMessages(system, prompt string) []Message {
	if system == "" {
		system = DefaultSystemPrompt
	}
	return []Message{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: prompt},
	}
}
