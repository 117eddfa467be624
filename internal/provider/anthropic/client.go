package anthropic

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/spetersoncode/answer"
	"github.com/spetersoncode/answer/internal/stream"
)

// DefaultMaxTokens caps the length of a generated answer.
const DefaultMaxTokens = 4096

// Client wraps the Anthropic SDK to implement answer.Provider.
type Client struct {
	client       *anthropic.Client
	model        ChatModel
	maxTokens    int64
	systemPrompt string
	logger       *slog.Logger
}

type clientConfig struct {
	model        ChatModel
	maxTokens    int64
	baseURL      string
	httpClient   *http.Client
	maxRetries   int
	systemPrompt string
	logger       *slog.Logger
}

// ClientOption configures the Anthropic client.
type ClientOption func(*clientConfig)

// WithModel sets the default model for requests.
func WithModel(model ChatModel) ClientOption {
	return func(c *clientConfig) {
		c.model = model
	}
}

// WithMaxTokens sets the maximum answer length in tokens.
func WithMaxTokens(n int) ClientOption {
	return func(c *clientConfig) {
		if n > 0 {
			c.maxTokens = int64(n)
		}
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

// WithMaxRetries sets how often the SDK retries a failed request. Default 0.
func WithMaxRetries(n int) ClientOption {
	return func(c *clientConfig) {
		c.maxRetries = n
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

// New creates a new Anthropic client with the given API key.
func New(apiKey string, opts ...ClientOption) *Client {
	cfg := &clientConfig{
		model:     DefaultChatModel,
		maxTokens: DefaultMaxTokens,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(cfg.maxRetries),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(cfg.httpClient))
	}

	client := anthropic.NewClient(reqOpts...)
	return &Client{
		client:       &client,
		model:        cfg.model,
		maxTokens:    cfg.maxTokens,
		systemPrompt: cfg.systemPrompt,
		logger:       cfg.logger,
	}
}

// GenerateAnswer streams a message for prompt.
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
	log := c.logger.With("provider", answer.ProviderAnthropic, "model", model)

	call := stream.Start(ctx, options, nil, func(ctx context.Context, emit stream.Emit) error {
		messages := answer.PromptMessages(system, prompt)
		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(model.String()),
			MaxTokens: c.maxTokens,
			System:    []anthropic.TextBlockParam{{Text: messages[0].Content}},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(messages[1].Content)),
			},
		}

		s := c.client.Messages.NewStreaming(ctx, params)
		defer s.Close()

		conversationID := answer.NewID()
		messageID := conversationID
		var text strings.Builder
		for s.Next() {
			event := s.Current()
			switch event.Type {
			case "message_start":
				if id := event.AsMessageStart().Message.ID; id != "" {
					messageID = id
				}
			case "content_block_delta":
				delta := event.AsContentBlockDelta().Delta.AsTextDelta()
				if delta.Type != "text_delta" || delta.Text == "" {
					continue
				}
				text.WriteString(delta.Text)
				if !emit(answer.AnswerEvent(answer.Answer{
					Text:           text.String(),
					MessageID:      messageID,
					ConversationID: conversationID,
				})) {
					return answer.NewAbortError(ctx.Err())
				}
			}
		}

		if err := s.Err(); err != nil {
			if ctx.Err() != nil {
				return answer.NewAbortError(ctx.Err())
			}
			log.Warn("message stream failed", "error", err)
			return wrapError(err)
		}
		log.Debug("message stream finished", "chars", text.Len())
		return nil
	})

	return call, nil
}

// wrapError wraps an Anthropic SDK error with answer error categorization.
func wrapError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	return answer.NewStatusError(err.Error(), apiErr.StatusCode, err)
}

var _ answer.Provider = (*Client)(nil)
