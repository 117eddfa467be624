package openai

// ChatModel represents an OpenAI chat model.
type ChatModel string

const (
	GPT52    ChatModel = "gpt-5.2"
	GPT51    ChatModel = "gpt-5.1"
	GPT5Mini ChatModel = "gpt-5-mini"
	GPT4o    ChatModel = "gpt-4o"
	O4Mini   ChatModel = "o4-mini"

	// DefaultChatModel is the model used when none is configured.
	DefaultChatModel ChatModel = GPT5Mini
)

// String returns the model identifier.
func (m ChatModel) String() string { return string(m) }
