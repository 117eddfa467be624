package chatgpt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spetersoncode/answer"
	"github.com/spetersoncode/answer/internal/stream"
	"github.com/spetersoncode/answer/sse"
)

// Completion is the one-shot variant: the upstream answers with a single
// JSON document and the call emits at most one answer.
type Completion struct {
	base
}

// NewCompletion creates the one-shot provider variant.
func NewCompletion(opts ...Option) *Completion {
	return &Completion{base: newBase(answer.ProviderChatGPT, DefaultCompletionModel, opts)}
}

type completionRequest struct {
	Messages []answer.Message `json:"messages"`
	Model    string           `json:"model"`
}

type completionResponse struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
}

// GenerateAnswer posts prompt to the completion endpoint.
func (c *Completion) GenerateAnswer(ctx context.Context, prompt string, opts ...answer.Option) (*answer.Call, error) {
	if err := validatePrompt(prompt); err != nil {
		return nil, err
	}
	options := answer.ApplyOptions(opts...)
	log := c.logger.With("provider", c.name)
	conv := &stream.Conversation{}

	call := stream.Start(ctx, options, c.cleanupFunc(ctx, log, conv), func(ctx context.Context, emit stream.Emit) error {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			log.Warn("token acquisition failed", "error", err)
			return err
		}

		model := c.resolveModel(ctx, log, token, options)
		log.Debug("requesting completion", "model", model)

		text, err := c.complete(ctx, completionRequest{
			Messages: answer.PromptMessages(c.systemPromptFor(options), prompt),
			Model:    model,
		})
		if err != nil {
			log.Warn("completion failed", "error", err)
			return err
		}
		if text == "" {
			log.Debug("completion returned no text")
			return nil
		}

		if !emit(answer.AnswerEvent(answer.Answer{
			Text:           text,
			MessageID:      answer.NewID(),
			ConversationID: conv.Begin(),
		})) {
			return answer.NewAbortError(ctx.Err())
		}
		return nil
	})

	return call, nil
}

func (c *Completion) complete(ctx context.Context, payload completionRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("chatgpt: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.completionURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("chatgpt: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", answer.NewAbortError(ctx.Err())
		}
		return "", fmt.Errorf("chatgpt: send request: %w", err)
	}
	defer resp.Body.Close()

	if err := sse.CheckResponse(resp); err != nil {
		return "", err
	}

	var completion completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		if ctx.Err() != nil {
			return "", answer.NewAbortError(ctx.Err())
		}
		return "", fmt.Errorf("chatgpt: decode response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", nil
	}
	return completion.Choices[0].Text, nil
}

var _ answer.Provider = (*Completion)(nil)
