// Package anthropic implements answer.Provider on the Anthropic Messages
// streaming API.
//
// # Basic Usage
//
//	p := anthropic.New(os.Getenv("ANTHROPIC_API_KEY"))
//
//	call, err := p.GenerateAnswer(ctx, "Explain quantum computing briefly.")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	text, err := call.Text()
//
// # Model Selection
//
// Set a default model at client creation:
//
//	p := anthropic.New(apiKey, anthropic.WithModel(anthropic.ClaudeOpus45))
//
// Or per-request:
//
//	call, err := p.GenerateAnswer(ctx, prompt, answer.WithModel(anthropic.ClaudeHaiku45.String()))
//
// Every text delta yields an answer event carrying the text accumulated so
// far. Calls create no upstream conversation, so Cleanup does nothing.
package anthropic
