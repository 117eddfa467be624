package answer

import "context"

// Provider turns one prompt into a normalized sequence of answer events.
type Provider interface {
	// GenerateAnswer starts a request for prompt and returns immediately.
	// The returned Call delivers zero or more EventAnswer events followed by
	// exactly one EventDone. The only synchronous error is ErrEmptyPrompt.
	// Cancelling ctx aborts the upstream request; EventDone is still delivered.
	GenerateAnswer(ctx context.Context, prompt string, opts ...Option) (*Call, error)
}

// ProviderName identifies a backend variant.
type ProviderName string

// String returns the provider identifier.
func (p ProviderName) String() string { return string(p) }

// Supported providers.
const (
	ProviderChatGPT       ProviderName = "chatgpt"
	ProviderChatGPTStream ProviderName = "chatgpt-stream"
	ProviderOpenAI        ProviderName = "openai"
	ProviderAnthropic     ProviderName = "anthropic"
	ProviderGoogle        ProviderName = "google"
)

// ProviderNames lists every supported provider.
func ProviderNames() []ProviderName {
	return []ProviderName{
		ProviderChatGPT,
		ProviderChatGPTStream,
		ProviderOpenAI,
		ProviderAnthropic,
		ProviderGoogle,
	}
}
