package chatgpt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/spetersoncode/answer"
	"github.com/spetersoncode/answer/sse"
)

// Backend issues authenticated requests to the backend API.
type Backend struct {
	baseURL string
	client  *http.Client
}

// NewBackend creates a Backend rooted at baseURL.
func NewBackend(baseURL string, client *http.Client) *Backend {
	if client == nil {
		client = http.DefaultClient
	}
	return &Backend{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}
}

// Model describes an entry of the backend model list.
type Model struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`
	MaxTokens   int    `json:"max_tokens"`
}

// Feedback rates a generated message.
type Feedback struct {
	MessageID      string `json:"message_id"`
	ConversationID string `json:"conversation_id"`
	Rating         string `json:"rating"` // "thumbsUp" or "thumbsDown"
	Text           string `json:"text,omitempty"`
}

// do sends a JSON request and returns the response after checking its status.
// The caller closes the body.
func (b *Backend) do(ctx context.Context, token, method, path string, data any) (*http.Response, error) {
	var body io.Reader
	if data != nil {
		payload, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("chatgpt: marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("chatgpt: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := b.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, answer.NewAbortError(ctx.Err())
		}
		return nil, fmt.Errorf("chatgpt: %s %s: %w", method, path, err)
	}
	if err := sse.CheckResponse(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// SetConversationProperty patches properties of a conversation.
func (b *Backend) SetConversationProperty(ctx context.Context, token, conversationID string, props any) error {
	resp, err := b.do(ctx, token, http.MethodPatch, "/conversation/"+url.PathEscape(conversationID), props)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// HideConversation marks a conversation as not visible.
func (b *Backend) HideConversation(ctx context.Context, token, conversationID string) error {
	return b.SetConversationProperty(ctx, token, conversationID, map[string]any{"is_visible": false})
}

// SendMessageFeedback submits a rating for a generated message.
func (b *Backend) SendMessageFeedback(ctx context.Context, token string, fb Feedback) error {
	resp, err := b.do(ctx, token, http.MethodPost, "/conversation/message_feedback", fb)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// Models lists the models available to the token's account.
func (b *Backend) Models(ctx context.Context, token string) ([]Model, error) {
	resp, err := b.do(ctx, token, http.MethodGet, "/models", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out struct {
		Models []Model `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("chatgpt: decode models: %w", err)
	}
	return out.Models, nil
}
