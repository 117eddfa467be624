// Package openai implements answer.Provider on the OpenAI chat completions
// streaming API.
package openai

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/spetersoncode/answer"
	"github.com/spetersoncode/answer/internal/stream"
)

// Client wraps the OpenAI SDK to implement answer.Provider.
type Client struct {
	client       *openai.Client
	model        ChatModel
	systemPrompt string
	logger       *slog.Logger
}

// New creates a new OpenAI client with the given API key.
func New(apiKey string, opts ...ClientOption) *Client {
	cfg := &clientConfig{
		model:  DefaultChatModel,
		logger: slog.Default(),
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

	client := openai.NewClient(reqOpts...)
	return &Client{
		client:       &client,
		model:        cfg.model,
		systemPrompt: cfg.systemPrompt,
		logger:       cfg.logger,
	}
}

type clientConfig struct {
	model        ChatModel
	baseURL      string
	httpClient   *http.Client
	maxRetries   int
	systemPrompt string
	logger       *slog.Logger
}

// ClientOption configures the OpenAI client.
type ClientOption func(*clientConfig)

// WithModel sets the default model for requests.
func WithModel(model ChatModel) ClientOption {
	return func(c *clientConfig) {
		c.model = model
	}
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
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

// GenerateAnswer streams a chat completion for prompt. Every content delta
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
	log := c.logger.With("provider", answer.ProviderOpenAI, "model", model)

	call := stream.Start(ctx, options, nil, func(ctx context.Context, emit stream.Emit) error {
		messages := answer.PromptMessages(system, prompt)
		params := openai.ChatCompletionNewParams{
			Model: model.String(),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(messages[0].Content),
				openai.UserMessage(messages[1].Content),
			},
		}

		s := c.client.Chat.Completions.NewStreaming(ctx, params)
		defer s.Close()

		conversationID := answer.NewID()
		var text strings.Builder
		for s.Next() {
			chunk := s.Current()
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			text.WriteString(chunk.Choices[0].Delta.Content)

			messageID := chunk.ID
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

		if err := s.Err(); err != nil {
			if ctx.Err() != nil {
				return answer.NewAbortError(ctx.Err())
			}
			log.Warn("completion stream failed", "error", err)
			return wrapError(err)
		}
		log.Debug("completion stream finished", "chars", text.Len())
		return nil
	})

	return call, nil
}

var _ answer.Provider = (*Client)(nil)
