package chatgpt

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/spetersoncode/answer/tokencache"
)

const (
	DefaultBackendURL    = "https://chat.openai.com/backend-api"
	DefaultSessionURL    = "https://chat.openai.com/api/auth/session"
	DefaultCompletionURL = "https://api.aioschat.com/"

	// DefaultCompletionModel is sent to the one-shot completion endpoint.
	DefaultCompletionModel = "gpt-3.5-turbo"
	// DefaultConversationModel is sent to the backend conversation endpoint.
	DefaultConversationModel = "text-davinci-002-render"

	DefaultCleanupTimeout = 30 * time.Second
)

// Option configures a provider variant.
type Option func(*settings)

type settings struct {
	backendURL     string
	sessionURL     string
	completionURL  string
	model          string
	modelLookup    bool
	systemPrompt   string
	cleanupTimeout time.Duration
	httpClient     *http.Client
	tokens         TokenSource
	tokenCache     *tokencache.Cache[string]
	logger         *slog.Logger
}

// WithBackendURL sets the base URL of the backend API.
func WithBackendURL(u string) Option {
	return func(s *settings) {
		s.backendURL = u
	}
}

// WithSessionURL sets the session endpoint used to acquire access tokens.
func WithSessionURL(u string) Option {
	return func(s *settings) {
		s.sessionURL = u
	}
}

// WithCompletionURL sets the one-shot completion endpoint.
func WithCompletionURL(u string) Option {
	return func(s *settings) {
		s.completionURL = u
	}
}

// WithModel sets the default model.
func WithModel(model string) Option {
	return func(s *settings) {
		s.model = model
	}
}

// WithModelLookup resolves the model from the backend model list, falling
// back to the default model when the lookup fails.
func WithModelLookup() Option {
	return func(s *settings) {
		s.modelLookup = true
	}
}

// WithSystemPrompt sets the system instruction sent with every prompt.
func WithSystemPrompt(prompt string) Option {
	return func(s *settings) {
		s.systemPrompt = prompt
	}
}

// WithCleanupTimeout bounds the background cleanup request.
func WithCleanupTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.cleanupTimeout = d
	}
}

// WithHTTPClient sets the HTTP client for all upstream requests.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) {
		s.httpClient = c
	}
}

// WithTokenSource replaces the session-backed token source.
func WithTokenSource(ts TokenSource) Option {
	return func(s *settings) {
		s.tokens = ts
	}
}

// WithAccessToken uses a fixed access token instead of the session endpoint.
func WithAccessToken(token string) Option {
	return WithTokenSource(StaticToken(token))
}

// WithTokenCache shares a token cache between providers.
func WithTokenCache(c *tokencache.Cache[string]) Option {
	return func(s *settings) {
		s.tokenCache = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

func newSettings(defaultModel string, opts []Option) *settings {
	s := &settings{
		backendURL:     DefaultBackendURL,
		sessionURL:     DefaultSessionURL,
		completionURL:  DefaultCompletionURL,
		model:          defaultModel,
		cleanupTimeout: DefaultCleanupTimeout,
		httpClient:     http.DefaultClient,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tokens == nil {
		if s.tokenCache == nil {
			s.tokenCache = tokencache.New[string](DefaultTokenTTL)
		}
		s.tokens = NewSessionTokenSource(s.sessionURL, s.httpClient, s.tokenCache)
	}
	return s
}
