package agui

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"

	"github.com/spetersoncode/answer"
)

// RunAgentInput represents the AG-UI protocol request for a run.
// This mirrors the AG-UI protocol specification and is transport-agnostic.
type RunAgentInput struct {
	ThreadID       string           `json:"thread_id"`
	RunID          string           `json:"run_id"`
	Messages       []events.Message `json:"messages"`
	Tools          []any            `json:"tools,omitempty"`
	Context        []any            `json:"context,omitempty"`
	State          any              `json:"state,omitempty"`
	ForwardedProps any              `json:"forwarded_props,omitempty"`
}

// Props are the forwarded properties understood by the answer server.
type Props struct {
	Provider    answer.ProviderName `json:"provider,omitempty"`
	Model       string              `json:"model,omitempty"`
	AutoCleanup bool                `json:"auto_cleanup,omitempty"`
}

// PreparedInput contains validated input ready for a GenerateAnswer call.
type PreparedInput struct {
	ThreadID     string
	RunID        string
	Prompt       string
	SystemPrompt string
	Props        Props
}

var (
	// ErrNoMessages is returned when the input contains no messages.
	ErrNoMessages = errors.New("no messages provided")

	// ErrNoPrompt is returned when no user message carries content.
	ErrNoPrompt = errors.New("no user prompt provided")
)

// Prepare validates the input and extracts the prompt from the last user
// message.
func (r *RunAgentInput) Prepare() (*PreparedInput, error) {
	if len(r.Messages) == 0 {
		return nil, ErrNoMessages
	}
	prompt, ok := LastUserPrompt(r.Messages)
	if !ok {
		return nil, ErrNoPrompt
	}

	props, err := decode[Props](r.ForwardedProps)
	if err != nil {
		return nil, fmt.Errorf("invalid forwarded props: %w", err)
	}

	return &PreparedInput{
		ThreadID:     r.ThreadID,
		RunID:        r.RunID,
		Prompt:       prompt,
		SystemPrompt: SystemPrompt(r.Messages),
		Props:        props,
	}, nil
}

// Options returns the call options requested by the input.
func (p *PreparedInput) Options() []answer.Option {
	var opts []answer.Option
	if p.Props.Model != "" {
		opts = append(opts, answer.WithModel(p.Props.Model))
	}
	if p.SystemPrompt != "" {
		opts = append(opts, answer.WithSystemPrompt(p.SystemPrompt))
	}
	if p.Props.AutoCleanup {
		opts = append(opts, answer.WithAutoCleanup())
	}
	return opts
}

// decode re-marshals a loosely typed JSON value into T.
// Returns the zero value of T if v is nil.
func decode[T any](v any) (T, error) {
	var result T
	if v == nil {
		return result, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, err
	}
	return result, nil
}
