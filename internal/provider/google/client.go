// Package google implements answer.Provider on the Gemini API through the
// google.golang.org/genai SDK.
package google

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/spetersoncode/answer"
	"github.com/spetersoncode/answer/internal/stream"
)

// Client wraps the Google GenAI SDK to implement answer.Provider.
type Client struct {
	client       *genai.Client
	model        ChatModel
	systemPrompt string
	logger       *slog.Logger
}

type clientConfig struct {
	model        ChatModel
	baseURL      string
	httpClient   *http.Client
	systemPrompt string
	logger       *slog.Logger
}

// ClientOption configures the Google client.
type ClientOption func(*clientConfig)

// WithModel sets the default model for requests.
func WithModel(model ChatModel) ClientOption {
	return func(c *clientConfig) {
		c.model = model
	}
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) ClientOption {
	return func(c *clientConfig) {
		c.baseURL = u
	}
}

// WithHTTPClient sets the HTTP client used by the SDK.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *clientConfig) {
		c.httpClient = hc
	}
}

// WithSystemPrompt sets the system instruction sent with every prompt.
func WithSystemPrompt(prompt string) ClientOption {
	return func(c *clientConfig) {
		c.systemPrompt = prompt
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// New creates a new Google GenAI client with the given API key.
func New(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	cfg := &clientConfig{
		model:  DefaultChatModel,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  cfg.httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.baseURL},
	})
	if err != nil {
		return nil, err
	}
	return &Client{
		client:       client,
		model:        cfg.model,
		systemPrompt: cfg.systemPrompt,
		logger:       cfg.logger,
	}, nil
}

// GenerateAnswer streams generated content for prompt. Every text part
// yields an answer carrying the text accumulated so far.
func (c *Client) GenerateAnswer(ctx context.Context, prompt string, opts ...answer.Option) (*answer.Call, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, answer.ErrEmptyPrompt
	}
	options := answer.ApplyOptions(opts...)
	model := c.model
	if options.Model != "" {
		model = ChatModel(options.Model)
	}
	system := options.SystemPrompt
	if system == "" {
		system = c.systemPrompt
	}
	log := c.logger.With("provider", answer.ProviderGoogle, "model", model)

	call := stream.Start(ctx, options, nil, func(ctx context.Context, emit stream.Emit) error {
		messages := answer.PromptMessages(system, prompt)
		config := &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(messages[0].Content, genai.RoleUser),
		}

		conversationID := answer.NewID()
		var text strings.Builder
		for resp, err := range c.client.Models.GenerateContentStream(ctx, model.String(), genai.Text(messages[1].Content), config) {
			if err != nil {
				if ctx.Err() != nil {
					return answer.NewAbortError(ctx.Err())
				}
				log.Warn("content stream failed", "error", err)
				return wrapError(err)
			}

			if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
				return &BlockedError{Reason: string(resp.PromptFeedback.BlockReason)}
			}
			if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
				continue
			}

			grew := false
			for _, part := range resp.Candidates[0].Content.Parts {
				if part.Text != "" {
					text.WriteString(part.Text)
					grew = true
				}
			}
			if !grew {
				continue
			}

			messageID := resp.ResponseID
			if messageID == "" {
				messageID = conversationID
			}
			if !emit(answer.AnswerEvent(answer.Answer{
				Text:           text.String(),
				MessageID:      messageID,
				ConversationID: conversationID,
			})) {
				return answer.NewAbortError(ctx.Err())
			}
		}

		log.Debug("content stream finished", "chars", text.Len())
		return nil
	})

	return call, nil
}

var _ answer.Provider = (*Client)(nil)
