package chatgpt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spetersoncode/answer"
	"github.com/spetersoncode/answer/internal/stream"
	"github.com/spetersoncode/answer/sse"
)

// doneMarker terminates the conversation event stream.
const doneMarker = "[DONE]"

// Conversation is the streaming variant: it posts to the backend
// conversation endpoint and emits an answer for every update, each carrying
// the full text generated so far.
type Conversation struct {
	base
	fetcher *sse.Fetcher
}

// NewConversation creates the streaming provider variant.
func NewConversation(opts ...Option) *Conversation {
	b := newBase(answer.ProviderChatGPTStream, DefaultConversationModel, opts)
	return &Conversation{
		base: b,
		fetcher: sse.NewFetcher(
			sse.WithHTTPClient(b.httpClient),
			sse.WithLogger(b.logger),
		),
	}
}

type conversationContent struct {
	ContentType string   `json:"content_type"`
	Parts       []string `json:"parts"`
}

type conversationMessage struct {
	ID      string              `json:"id"`
	Role    answer.Role         `json:"role"`
	Content conversationContent `json:"content"`
}

type conversationRequest struct {
	Action          string                `json:"action"`
	Messages        []conversationMessage `json:"messages"`
	Model           string                `json:"model"`
	ParentMessageID string                `json:"parent_message_id"`
}

type conversationUpdate struct {
	Message *struct {
		ID      string `json:"id"`
		Content struct {
			Parts []string `json:"parts"`
		} `json:"content"`
	} `json:"message"`
	ConversationID string `json:"conversation_id"`
}

// GenerateAnswer streams an answer for prompt.
func (c *Conversation) GenerateAnswer(ctx context.Context, prompt string, opts ...answer.Option) (*answer.Call, error) {
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
		log.Debug("starting conversation", "model", model)

		body, err := json.Marshal(conversationRequest{
			Action: "next",
			Messages: []conversationMessage{{
				ID:   answer.NewID(),
				Role: answer.RoleUser,
				Content: conversationContent{
					ContentType: "text",
					Parts:       []string{prompt},
				},
			}},
			Model:           model,
			ParentMessageID: answer.NewID(),
		})
		if err != nil {
			return fmt.Errorf("chatgpt: marshal request: %w", err)
		}

		var (
			updates  int
			finished bool
			stopped  bool
		)
		err = c.fetcher.Fetch(ctx, sse.Request{
			Method: http.MethodPost,
			URL:    c.backend.baseURL + "/conversation",
			Header: http.Header{
				"Content-Type":  []string{"application/json"},
				"Accept":        []string{"text/event-stream"},
				"Authorization": []string{"Bearer " + token},
			},
			Body: body,
		}, func(data string) {
			if finished || stopped {
				return
			}
			if data == doneMarker {
				finished = true
				return
			}

			var update conversationUpdate
			if err := json.Unmarshal([]byte(data), &update); err != nil {
				log.Debug("skipping malformed update", "error", err)
				return
			}
			if update.Message == nil || len(update.Message.Content.Parts) == 0 {
				return
			}
			text := update.Message.Content.Parts[0]
			if text == "" {
				return
			}

			conv.Set(update.ConversationID)
			messageID := update.Message.ID
			if messageID == "" {
				messageID = answer.NewID()
			}
			updates++
			if !emit(answer.AnswerEvent(answer.Answer{
				Text:           text,
				MessageID:      messageID,
				ConversationID: conv.Begin(),
			})) {
				stopped = true
			}
		})
		if err != nil {
			invalidateOnUnauthorized(c.tokens, err)
			log.Warn("conversation stream failed", "error", err, "updates", updates)
			return err
		}
		if stopped {
			return answer.NewAbortError(ctx.Err())
		}

		log.Debug("conversation stream finished", "updates", updates, "done_marker", finished)
		return nil
	})

	return call, nil
}

var _ answer.Provider = (*Conversation)(nil)
