package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/spetersoncode/answer"
	"github.com/spetersoncode/answer/internal/provider/anthropic"
	"github.com/spetersoncode/answer/internal/provider/chatgpt"
	"github.com/spetersoncode/answer/internal/provider/google"
	"github.com/spetersoncode/answer/internal/provider/openai"
	"github.com/spetersoncode/answer/internal/retry"
	"github.com/spetersoncode/answer/internal/stream"
	"github.com/spetersoncode/answer/tokencache"
)

// APIKeys holds API keys for the SDK-backed providers.
// Only configure keys for providers you intend to use.
type APIKeys struct {
	OpenAI    string
	Anthropic string
	Google    string
}

// BaseURLs overrides the endpoints of the SDK-backed providers.
type BaseURLs struct {
	OpenAI    string
	Anthropic string
	Google    string
}

// ChatGPT configures the chatgpt and chatgpt-stream providers.
type ChatGPT struct {
	// AccessToken is used as-is when set. Otherwise tokens are acquired from
	// the session endpoint and cached.
	AccessToken string

	BackendURL    string
	SessionURL    string
	CompletionURL string

	// ModelLookup resolves the model from the backend model list.
	ModelLookup bool

	// CleanupTimeout bounds the background conversation cleanup.
	CleanupTimeout time.Duration
}

// Config holds configuration for creating a unified client.
type Config struct {
	// Provider is used by GenerateAnswer. Defaults to answer.ProviderChatGPT.
	Provider answer.ProviderName

	APIKeys  APIKeys
	BaseURLs BaseURLs
	ChatGPT  ChatGPT

	// Model is the default model for every provider. Per-call
	// answer.WithModel overrides it.
	Model string

	// SystemPrompt replaces answer.DefaultSystemPrompt.
	SystemPrompt string

	HTTPClient *http.Client
	Logger     *slog.Logger

	// RetryConfig configures retries of calls that fail with a transient
	// error before any answer was delivered. If nil, each call makes a
	// single attempt.
	RetryConfig *retry.Config

	// Events is an optional channel for receiving client operation events.
	// Events are sent non-blocking; if the channel is full, events are dropped.
	Events chan<- Event
}

// ErrMissingAPIKey is returned when a provider is used but no API key is
// configured for it.
type ErrMissingAPIKey struct {
	Provider answer.ProviderName
}

func (e *ErrMissingAPIKey) Error() string {
	return fmt.Sprintf("no API key configured for %s", e.Provider)
}

// Unwrap returns answer.ErrNoProvider.
func (e *ErrMissingAPIKey) Unwrap() error { return answer.ErrNoProvider }

// ErrUnknownProvider is returned for a provider name the client cannot build.
type ErrUnknownProvider struct {
	Provider answer.ProviderName
}

func (e *ErrUnknownProvider) Error() string {
	return fmt.Sprintf("unsupported provider: %q", string(e.Provider))
}

// Unwrap returns answer.ErrNoProvider.
func (e *ErrUnknownProvider) Unwrap() error { return answer.ErrNoProvider }

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithProvider registers p under name, replacing the built-in provider of
// that name.
func WithProvider(name answer.ProviderName, p answer.Provider) ClientOption {
	return func(c *Client) {
		c.providers[name] = p
	}
}

// Client gives access to every provider behind one answer.Provider, adding
// retries and lifecycle events. Providers are created on first use.
type Client struct {
	cfg         Config
	retryConfig retry.Config
	events      chan<- Event
	logger      *slog.Logger
	tokens      *tokencache.Cache[string]

	mu        sync.Mutex
	providers map[answer.ProviderName]answer.Provider
}

// New creates a unified client with the given configuration.
func New(cfg Config, opts ...ClientOption) *Client {
	if cfg.Provider == "" {
		cfg.Provider = answer.ProviderChatGPT
	}
	retryConfig := DisabledRetryConfig()
	if cfg.RetryConfig != nil {
		retryConfig = *cfg.RetryConfig
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		cfg:         cfg,
		retryConfig: retryConfig,
		events:      cfg.Events,
		logger:      logger,
		tokens:      tokencache.New[string](chatgpt.DefaultTokenTTL),
		providers:   make(map[answer.ProviderName]answer.Provider),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultProvider returns the provider used by GenerateAnswer.
func (c *Client) DefaultProvider() answer.ProviderName {
	return c.cfg.Provider
}

// Provider returns the provider registered under name, creating it if needed.
func (c *Client) Provider(ctx context.Context, name answer.ProviderName) (answer.Provider, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.providers[name]; ok {
		return p, nil
	}
	p, err := c.build(ctx, name)
	if err != nil {
		return nil, err
	}
	c.providers[name] = p
	return p, nil
}

func (c *Client) build(ctx context.Context, name answer.ProviderName) (answer.Provider, error) {
	switch name {
	case answer.ProviderChatGPT:
		return chatgpt.NewCompletion(c.chatgptOptions()...), nil
	case answer.ProviderChatGPTStream:
		return chatgpt.NewConversation(c.chatgptOptions()...), nil

	case answer.ProviderOpenAI:
		if c.cfg.APIKeys.OpenAI == "" {
			return nil, &ErrMissingAPIKey{Provider: name}
		}
		opts := []openai.ClientOption{openai.WithLogger(c.logger), openai.WithSystemPrompt(c.cfg.SystemPrompt)}
		if c.cfg.Model != "" {
			opts = append(opts, openai.WithModel(openai.ChatModel(c.cfg.Model)))
		}
		if c.cfg.BaseURLs.OpenAI != "" {
			opts = append(opts, openai.WithBaseURL(c.cfg.BaseURLs.OpenAI))
		}
		if c.cfg.HTTPClient != nil {
			opts = append(opts, openai.WithHTTPClient(c.cfg.HTTPClient))
		}
		return openai.New(c.cfg.APIKeys.OpenAI, opts...), nil

	case answer.ProviderAnthropic:
		if c.cfg.APIKeys.Anthropic == "" {
			return nil, &ErrMissingAPIKey{Provider: name}
		}
		opts := []anthropic.ClientOption{anthropic.WithLogger(c.logger), anthropic.WithSystemPrompt(c.cfg.SystemPrompt)}
		if c.cfg.Model != "" {
			opts = append(opts, anthropic.WithModel(anthropic.ChatModel(c.cfg.Model)))
		}
		if c.cfg.BaseURLs.Anthropic != "" {
			opts = append(opts, anthropic.WithBaseURL(c.cfg.BaseURLs.Anthropic))
		}
		if c.cfg.HTTPClient != nil {
			opts = append(opts, anthropic.WithHTTPClient(c.cfg.HTTPClient))
		}
		return anthropic.New(c.cfg.APIKeys.Anthropic, opts...), nil

	case answer.ProviderGoogle:
		if c.cfg.APIKeys.Google == "" {
			return nil, &ErrMissingAPIKey{Provider: name}
		}
		opts := []google.ClientOption{google.WithLogger(c.logger), google.WithSystemPrompt(c.cfg.SystemPrompt)}
		if c.cfg.Model != "" {
			opts = append(opts, google.WithModel(google.ChatModel(c.cfg.Model)))
		}
		if c.cfg.BaseURLs.Google != "" {
			opts = append(opts, google.WithBaseURL(c.cfg.BaseURLs.Google))
		}
		if c.cfg.HTTPClient != nil {
			opts = append(opts, google.WithHTTPClient(c.cfg.HTTPClient))
		}
		p, err := google.New(ctx, c.cfg.APIKeys.Google, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google client: %w", err)
		}
		return p, nil

	default:
		return nil, &ErrUnknownProvider{Provider: name}
	}
}

// chatgptOptions builds the options shared by both chatgpt variants. They
// share one token cache, so a token acquired by one is reused by the other.
func (c *Client) chatgptOptions() []chatgpt.Option {
	gc := c.cfg.ChatGPT
	opts := []chatgpt.Option{
		chatgpt.WithLogger(c.logger),
		chatgpt.WithTokenCache(c.tokens),
		chatgpt.WithSystemPrompt(c.cfg.SystemPrompt),
	}
	if c.cfg.HTTPClient != nil {
		opts = append(opts, chatgpt.WithHTTPClient(c.cfg.HTTPClient))
	}
	if c.cfg.Model != "" {
		opts = append(opts, chatgpt.WithModel(c.cfg.Model))
	}
	if gc.AccessToken != "" {
		opts = append(opts, chatgpt.WithAccessToken(gc.AccessToken))
	}
	if gc.BackendURL != "" {
		opts = append(opts, chatgpt.WithBackendURL(gc.BackendURL))
	}
	if gc.SessionURL != "" {
		opts = append(opts, chatgpt.WithSessionURL(gc.SessionURL))
	}
	if gc.CompletionURL != "" {
		opts = append(opts, chatgpt.WithCompletionURL(gc.CompletionURL))
	}
	if gc.ModelLookup {
		opts = append(opts, chatgpt.WithModelLookup())
	}
	if gc.CleanupTimeout > 0 {
		opts = append(opts, chatgpt.WithCleanupTimeout(gc.CleanupTimeout))
	}
	return opts
}

// GenerateAnswer requests an answer from the default provider.
// Besides answer.ErrEmptyPrompt it returns provider configuration errors
// synchronously.
func (c *Client) GenerateAnswer(ctx context.Context, prompt string, opts ...answer.Option) (*answer.Call, error) {
	return c.Generate(ctx, c.cfg.Provider, prompt, opts...)
}

// Generate requests an answer from the named provider.
//
// A call that fails with a transient error before delivering any answer is
// retried according to the retry configuration. Once an answer was
// delivered, failures are final. Cleanup applies to the last attempt.
func (c *Client) Generate(ctx context.Context, name answer.ProviderName, prompt string, opts ...answer.Option) (*answer.Call, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, answer.ErrEmptyPrompt
	}
	p, err := c.Provider(ctx, name)
	if err != nil {
		return nil, err
	}
	options := answer.ApplyOptions(opts...)
	log := c.logger.With("provider", name)

	var (
		mu      sync.Mutex
		current *answer.Call
	)
	cleanup := func() {
		mu.Lock()
		call := current
		mu.Unlock()
		if call != nil {
			call.Cleanup()
		}
	}

	call := stream.Start(ctx, options, cleanup, func(ctx context.Context, emitAnswer stream.Emit) error {
		start := time.Now()
		emit(c.events, Event{Type: EventRequestStart, Provider: name, Model: options.Model})

		var retryEvents chan retry.Event
		var forwarded <-chan struct{}
		if c.events != nil {
			retryEvents = make(chan retry.Event, 10)
			forwarded = c.forwardRetryEvents(retryEvents, name)
		}

		answers := 0
		_, err := retry.DoWithEvents(ctx, c.retryConfig, retryEvents, func() (struct{}, error) {
			attempt, err := p.GenerateAnswer(ctx, prompt, opts...)
			if err != nil {
				return struct{}{}, &finalError{err: err}
			}
			mu.Lock()
			current = attempt
			mu.Unlock()

			err = relay(attempt, emitAnswer, &answers)
			if err != nil && answers > 0 {
				return struct{}{}, &finalError{err: err}
			}
			return struct{}{}, err
		})

		if retryEvents != nil {
			close(retryEvents)
			<-forwarded
		}

		var fe *finalError
		if errors.As(err, &fe) {
			err = fe.err
		}
		var ae *answer.AbortError
		if err != nil && ctx.Err() != nil && !errors.As(err, &ae) {
			err = answer.NewAbortError(ctx.Err())
		}

		if err != nil {
			log.Warn("answer request failed", "error", err, "answers", answers)
			emit(c.events, Event{
				Type:     EventRequestError,
				Provider: name,
				Model:    options.Model,
				Duration: time.Since(start),
				Answers:  answers,
				Error:    err,
			})
			return err
		}

		log.Debug("answer request complete", "answers", answers, "duration", time.Since(start))
		emit(c.events, Event{
			Type:     EventRequestComplete,
			Provider: name,
			Model:    options.Model,
			Duration: time.Since(start),
			Answers:  answers,
		})
		return nil
	})

	return call, nil
}

// relay forwards the answers of call and returns the error of its terminal
// event. The call is always drained.
func relay(call *answer.Call, emitAnswer stream.Emit, answers *int) error {
	var err error
	stopped := false
	for ev := range call.Events() {
		if ev.IsDone() {
			err = ev.Err
			continue
		}
		if stopped {
			continue
		}
		if !emitAnswer(ev) {
			stopped = true
			continue
		}
		*answers++
	}
	return err
}

// forwardRetryEvents converts retry events to client events until ch is
// closed. The returned channel is closed when forwarding stops.
func (c *Client) forwardRetryEvents(ch <-chan retry.Event, name answer.ProviderName) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range ch {
			emit(c.events, Event{
				Type:       EventRetry,
				Provider:   name,
				RetryEvent: &ev,
			})
		}
	}()
	return done
}

// finalError marks an attempt error that must not be retried.
type finalError struct {
	err error
}

func (e *finalError) Error() string                   { return e.err.Error() }
func (e *finalError) Category() answer.ErrorCategory { return answer.ErrorPermanent }
func (e *finalError) StatusCode() int                 { return answer.StatusCodeOf(e.err) }

var _ answer.Provider = (*Client)(nil)
