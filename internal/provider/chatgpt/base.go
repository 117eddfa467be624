package chatgpt

import (
	"context"
	"log/slog"
	"strings"

	"github.com/spetersoncode/answer"
	"github.com/spetersoncode/answer/internal/stream"
)

// base holds what both variants share: settings, backend access and the
// cleanup of the conversation a call created.
type base struct {
	*settings
	backend *Backend
	name    answer.ProviderName
}

func newBase(name answer.ProviderName, defaultModel string, opts []Option) base {
	s := newSettings(defaultModel, opts)
	return base{
		settings: s,
		backend:  NewBackend(s.backendURL, s.httpClient),
		name:     name,
	}
}

// Backend returns the backend client used for cleanup and model lookup.
func (b *base) Backend() *Backend {
	return b.backend
}

// TokenSource returns the token source used by the provider.
func (b *base) TokenSource() TokenSource {
	return b.tokens
}

func validatePrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return answer.ErrEmptyPrompt
	}
	return nil
}

// resolveModel picks the model for a call: the per-call override, then the
// first model of the backend list when lookup is enabled, then the default.
func (b *base) resolveModel(ctx context.Context, log *slog.Logger, token string, options *answer.Options) string {
	if options.Model != "" {
		return options.Model
	}
	if !b.modelLookup {
		return b.model
	}

	models, err := b.backend.Models(ctx, token)
	if err != nil {
		log.Warn("model lookup failed, using default", "model", b.model, "error", err)
		return b.model
	}
	if len(models) == 0 || models[0].Slug == "" {
		log.Warn("model lookup returned no models, using default", "model", b.model)
		return b.model
	}
	return models[0].Slug
}

func (b *base) systemPromptFor(options *answer.Options) string {
	if options.SystemPrompt != "" {
		return options.SystemPrompt
	}
	return b.systemPrompt
}

// cleanupFunc returns the cleanup for a call. It does nothing unless the
// call established a conversation, in which case it hides the conversation
// in the background.
func (b *base) cleanupFunc(ctx context.Context, log *slog.Logger, conv *stream.Conversation) func() {
	return func() {
		id := conv.ID()
		if id == "" {
			return
		}
		stream.Detach(ctx, log, b.cleanupTimeout, id, func(ctx context.Context) error {
			token, err := b.tokens.Token(ctx)
			if err != nil {
				return err
			}
			return b.backend.HideConversation(ctx, token, id)
		})
	}
}
