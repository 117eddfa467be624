// Package remote fetches the settings and promotion published by the answer
// companion host.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/spetersoncode/answer"
	"github.com/spetersoncode/answer/internal/version"
	"github.com/spetersoncode/answer/sse"
	"github.com/spetersoncode/answer/tokencache"
)

// DefaultHost is the companion host queried when none is configured.
const DefaultHost = "https://chatgpt4google.com"

// DefaultConfigTTL is how long a fetched Config is reused.
const DefaultConfigTTL = 10 * time.Minute

// Config is the settings document served at {host}/api/config.
type Config struct {
	ChatGPTWebappModelName string   `json:"chatgpt_webapp_model_name"`
	OpenAIModelNames       []string `json:"openai_model_names"`
}

// Promotion is a banner shown next to answers.
type Promotion struct {
	URL    string `json:"url"`
	Title  string `json:"title,omitempty"`
	Text   string `json:"text,omitempty"`
	Image  *Image `json:"image,omitempty"`
	Footer *Link  `json:"footer,omitempty"`
	Label  *Link  `json:"label,omitempty"`
}

// Image is a promotion image.
type Image struct {
	URL  string `json:"url"`
	Size int    `json:"size,omitempty"`
}

// Link is a promotion text link.
type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// DefaultPromotion is returned when no promotion endpoint is enabled.
var DefaultPromotion = Promotion{
	URL:   "https://chat.forchange.cn/",
	Title: "FORCHANGE AI EDU",
	Text:  "https://chat.forchange.cn/",
}

const configKey = "config"

// Client talks to the companion host.
type Client struct {
	host       string
	client     *http.Client
	logger     *slog.Logger
	promotions bool
	cache      *tokencache.Cache[*Config]
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.client = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// WithPromotions enables fetching promotions from {host}/api/p.
func WithPromotions() Option {
	return func(cl *Client) { cl.promotions = true }
}

// WithConfigTTL sets how long a fetched Config is reused. Zero disables reuse.
func WithConfigTTL(ttl time.Duration) Option {
	return func(cl *Client) { cl.cache = tokencache.New[*Config](ttl) }
}

// New creates a Client for host. An empty host selects DefaultHost.
func New(host string, opts ...Option) *Client {
	if host == "" {
		host = DefaultHost
	}
	c := &Client{
		host:   strings.TrimSuffix(host, "/"),
		client: http.DefaultClient,
		logger: slog.Default(),
		cache:  tokencache.New[*Config](DefaultConfigTTL),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchConfig returns the published settings.
func (c *Client) FetchConfig(ctx context.Context) (*Config, error) {
	return c.cache.GetOrFetch(ctx, configKey, func(ctx context.Context) (*Config, error) {
		var cfg Config
		if err := c.get(ctx, "/api/config", &cfg); err != nil {
			return nil, fmt.Errorf("fetch config: %w", err)
		}
		c.logger.Debug("fetched remote config",
			"webapp_model", cfg.ChatGPTWebappModelName,
			"openai_models", len(cfg.OpenAIModelNames),
		)
		return &cfg, nil
	})
}

// FetchPromotion returns the current promotion. Without WithPromotions the
// built-in DefaultPromotion is returned and no request is made.
func (c *Client) FetchPromotion(ctx context.Context) (*Promotion, error) {
	if !c.promotions {
		p := DefaultPromotion
		return &p, nil
	}
	var p Promotion
	if err := c.get(ctx, "/api/p", &p); err != nil {
		return nil, fmt.Errorf("fetch promotion: %w", err)
	}
	return &p, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("x-version", version.Version)
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return answer.NewAbortError(ctx.Err())
		}
		return err
	}
	defer resp.Body.Close()

	if err := sse.CheckResponse(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
