// Package config loads settings for the answer commands from an optional
// YAML file, a .env file, and the environment, in increasing precedence.
package config

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/spetersoncode/answer"
	"github.com/spetersoncode/answer/client"
	"github.com/spetersoncode/answer/internal/retry"
)

// Config holds the command configuration.
type Config struct {
	// Server
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"` // debug, info, warn, error

	// Provider selection
	Provider     string `yaml:"provider"`
	Model        string `yaml:"model"`
	SystemPrompt string `yaml:"system_prompt"`

	APIKeys  APIKeys  `yaml:"api_keys"`
	BaseURLs BaseURLs `yaml:"base_urls"`
	ChatGPT  ChatGPT  `yaml:"chatgpt"`

	// RemoteHost serves /api/config for the CLI's config command.
	RemoteHost string `yaml:"remote_host"`

	MaxAttempts int           `yaml:"max_attempts"`
	Timeout     time.Duration `yaml:"timeout"`
}

// APIKeys holds keys for the SDK-backed providers.
type APIKeys struct {
	OpenAI    string `yaml:"openai"`
	Anthropic string `yaml:"anthropic"`
	Google    string `yaml:"google"`
}

// BaseURLs overrides the SDK-backed provider endpoints.
type BaseURLs struct {
	OpenAI    string `yaml:"openai"`
	Anthropic string `yaml:"anthropic"`
	Google    string `yaml:"google"`
}

// ChatGPT configures the chatgpt providers.
type ChatGPT struct {
	AccessToken    string        `yaml:"access_token"`
	BackendURL     string        `yaml:"backend_url"`
	SessionURL     string        `yaml:"session_url"`
	CompletionURL  string        `yaml:"completion_url"`
	ModelLookup    bool          `yaml:"model_lookup"`
	CleanupTimeout time.Duration `yaml:"cleanup_timeout"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Port:        "8000",
		LogLevel:    "info",
		Provider:    string(answer.ProviderChatGPT),
		MaxAttempts: retry.Disabled().MaxAttempts,
		Timeout:     2 * time.Minute,
		ChatGPT: ChatGPT{
			CleanupTimeout: 10 * time.Second,
		},
	}
}

// Load loads configuration. It loads a .env file if present (silent fail if
// not found), then the YAML file named by ANSWER_CONFIG if set, then applies
// environment variables.
func Load() (*Config, error) {
	godotenv.Load() // Load .env file if present

	cfg := Default()
	if path := os.Getenv("ANSWER_CONFIG"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile merges the YAML file at path into c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnvOrDefault("ANSWER_PORT", c.Port)
	c.LogLevel = getEnvOrDefault("ANSWER_LOG_LEVEL", c.LogLevel)
	c.Provider = getEnvOrDefault("ANSWER_PROVIDER", c.Provider)
	c.Model = getEnvOrDefault("ANSWER_MODEL", c.Model)
	c.SystemPrompt = getEnvOrDefault("ANSWER_SYSTEM_PROMPT", c.SystemPrompt)
	c.RemoteHost = getEnvOrDefault("ANSWER_REMOTE_HOST", c.RemoteHost)
	c.MaxAttempts = getEnvIntOrDefault("ANSWER_MAX_ATTEMPTS", c.MaxAttempts)
	c.Timeout = getEnvDurationOrDefault("ANSWER_TIMEOUT", c.Timeout)

	c.APIKeys.OpenAI = getEnvOrDefault("OPENAI_API_KEY", c.APIKeys.OpenAI)
	c.APIKeys.Anthropic = getEnvOrDefault("ANTHROPIC_API_KEY", c.APIKeys.Anthropic)
	c.APIKeys.Google = getEnvOrDefault("GOOGLE_API_KEY", c.APIKeys.Google)

	c.BaseURLs.OpenAI = getEnvOrDefault("OPENAI_BASE_URL", c.BaseURLs.OpenAI)
	c.BaseURLs.Anthropic = getEnvOrDefault("ANTHROPIC_BASE_URL", c.BaseURLs.Anthropic)
	c.BaseURLs.Google = getEnvOrDefault("GOOGLE_BASE_URL", c.BaseURLs.Google)

	c.ChatGPT.AccessToken = getEnvOrDefault("CHATGPT_ACCESS_TOKEN", c.ChatGPT.AccessToken)
	c.ChatGPT.BackendURL = getEnvOrDefault("CHATGPT_BACKEND_URL", c.ChatGPT.BackendURL)
	c.ChatGPT.SessionURL = getEnvOrDefault("CHATGPT_SESSION_URL", c.ChatGPT.SessionURL)
	c.ChatGPT.CompletionURL = getEnvOrDefault("CHATGPT_COMPLETION_URL", c.ChatGPT.CompletionURL)
	c.ChatGPT.ModelLookup = getEnvBoolOrDefault("CHATGPT_MODEL_LOOKUP", c.ChatGPT.ModelLookup)
	c.ChatGPT.CleanupTimeout = getEnvDurationOrDefault("CHATGPT_CLEANUP_TIMEOUT", c.ChatGPT.CleanupTimeout)
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("ANSWER_MAX_ATTEMPTS must be at least 1, got %d", c.MaxAttempts)
	}

	switch answer.ProviderName(c.Provider) {
	case answer.ProviderChatGPT, answer.ProviderChatGPTStream:
	case answer.ProviderOpenAI:
		if c.APIKeys.OpenAI == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for openai provider")
		}
	case answer.ProviderAnthropic:
		if c.APIKeys.Anthropic == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for anthropic provider")
		}
	case answer.ProviderGoogle:
		if c.APIKeys.Google == "" {
			return fmt.Errorf("GOOGLE_API_KEY is required for google provider")
		}
	default:
		return fmt.Errorf("unknown provider: %s (must be one of %s)", c.Provider, providerList())
	}

	return nil
}

// Level returns the configured log level.
func (c *Config) Level() slog.Level {
	level, _ := ParseLevel(c.LogLevel)
	return level
}

// ClientConfig converts c to the unified client configuration.
func (c *Config) ClientConfig(logger *slog.Logger) client.Config {
	rc := retry.DefaultConfig()
	rc.MaxAttempts = c.MaxAttempts

	return client.Config{
		Provider: answer.ProviderName(c.Provider),
		APIKeys: client.APIKeys{
			OpenAI:    c.APIKeys.OpenAI,
			Anthropic: c.APIKeys.Anthropic,
			Google:    c.APIKeys.Google,
		},
		BaseURLs: client.BaseURLs{
			OpenAI:    c.BaseURLs.OpenAI,
			Anthropic: c.BaseURLs.Anthropic,
			Google:    c.BaseURLs.Google,
		},
		ChatGPT: client.ChatGPT{
			AccessToken:    c.ChatGPT.AccessToken,
			BackendURL:     c.ChatGPT.BackendURL,
			SessionURL:     c.ChatGPT.SessionURL,
			CompletionURL:  c.ChatGPT.CompletionURL,
			ModelLookup:    c.ChatGPT.ModelLookup,
			CleanupTimeout: c.ChatGPT.CleanupTimeout,
		},
		Model:        c.Model,
		SystemPrompt: c.SystemPrompt,
		HTTPClient:   &http.Client{Timeout: c.Timeout},
		Logger:       logger,
		RetryConfig:  &rc,
	}
}

// ParseLevel parses a log level name.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", s)
	}
	return level, nil
}

func providerList() string {
	names := make([]string, 0, len(answer.ProviderNames()))
	for _, name := range answer.ProviderNames() {
		names = append(names, name.String())
	}
	slices.Sort(names)
	return strings.Join(names, ", ")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
