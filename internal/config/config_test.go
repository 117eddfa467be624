package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spetersoncode/answer"
)

// clearEnv isolates a test from the caller's environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ANSWER_CONFIG", "ANSWER_PORT", "ANSWER_LOG_LEVEL", "ANSWER_PROVIDER",
		"ANSWER_MODEL", "ANSWER_SYSTEM_PROMPT", "ANSWER_REMOTE_HOST",
		"ANSWER_MAX_ATTEMPTS", "ANSWER_TIMEOUT",
		"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GOOGLE_API_KEY",
		"OPENAI_BASE_URL", "ANTHROPIC_BASE_URL", "GOOGLE_BASE_URL",
		"CHATGPT_ACCESS_TOKEN", "CHATGPT_BACKEND_URL", "CHATGPT_SESSION_URL",
		"CHATGPT_COMPLETION_URL", "CHATGPT_MODEL_LOOKUP", "CHATGPT_CLEANUP_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "answer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "8000", cfg.Port)
		assert.Equal(t, "chatgpt", cfg.Provider)
		assert.Equal(t, 1, cfg.MaxAttempts)
		assert.Equal(t, 2*time.Minute, cfg.Timeout)
		assert.Equal(t, 10*time.Second, cfg.ChatGPT.CleanupTimeout)
		assert.Equal(t, slog.LevelInfo, cfg.Level())
	})

	t.Run("environment", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ANSWER_PROVIDER", "openai")
		t.Setenv("OPENAI_API_KEY", "sk-test")
		t.Setenv("ANSWER_LOG_LEVEL", "debug")
		t.Setenv("ANSWER_MAX_ATTEMPTS", "5")
		t.Setenv("CHATGPT_MODEL_LOOKUP", "true")
		t.Setenv("CHATGPT_CLEANUP_TIMEOUT", "3s")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "openai", cfg.Provider)
		assert.Equal(t, "sk-test", cfg.APIKeys.OpenAI)
		assert.Equal(t, slog.LevelDebug, cfg.Level())
		assert.Equal(t, 5, cfg.MaxAttempts)
		assert.True(t, cfg.ChatGPT.ModelLookup)
		assert.Equal(t, 3*time.Second, cfg.ChatGPT.CleanupTimeout)
	})

	t.Run("malformed numbers keep defaults", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ANSWER_MAX_ATTEMPTS", "many")
		t.Setenv("ANSWER_TIMEOUT", "soon")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 1, cfg.MaxAttempts)
		assert.Equal(t, 2*time.Minute, cfg.Timeout)
	})

	t.Run("file overridden by environment", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ANSWER_CONFIG", writeFile(t, `
port: "9000"
provider: anthropic
model: claude-haiku-4-5
api_keys:
  anthropic: file-key
chatgpt:
  backend_url: https://example.test/backend-api
  cleanup_timeout: 5s
`))
		t.Setenv("ANSWER_MODEL", "claude-sonnet-4-5")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "9000", cfg.Port)
		assert.Equal(t, "anthropic", cfg.Provider)
		assert.Equal(t, "file-key", cfg.APIKeys.Anthropic)
		assert.Equal(t, "claude-sonnet-4-5", cfg.Model)
		assert.Equal(t, "https://example.test/backend-api", cfg.ChatGPT.BackendURL)
		assert.Equal(t, 5*time.Second, cfg.ChatGPT.CleanupTimeout)
	})

	t.Run("missing file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ANSWER_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))

		_, err := Load()
		assert.ErrorContains(t, err, "read config")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ANSWER_CONFIG", writeFile(t, "port: [unclosed"))

		_, err := Load()
		assert.ErrorContains(t, err, "parse config")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"chatgpt needs no key", func(c *Config) {}, ""},
		{"chatgpt-stream", func(c *Config) { c.Provider = "chatgpt-stream" }, ""},
		{"openai without key", func(c *Config) { c.Provider = "openai" }, "OPENAI_API_KEY"},
		{"anthropic without key", func(c *Config) { c.Provider = "anthropic" }, "ANTHROPIC_API_KEY"},
		{"google without key", func(c *Config) { c.Provider = "google" }, "GOOGLE_API_KEY"},
		{"google with key", func(c *Config) { c.Provider = "google"; c.APIKeys.Google = "k" }, ""},
		{"unknown provider", func(c *Config) { c.Provider = "vertex" }, "unknown provider: vertex"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "invalid log level"},
		{"zero attempts", func(c *Config) { c.MaxAttempts = 0 }, "at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestClientConfig(t *testing.T) {
	cfg := Default()
	cfg.Provider = "google"
	cfg.APIKeys.Google = "g-key"
	cfg.BaseURLs.Google = "http://localhost:1234"
	cfg.ChatGPT.AccessToken = "tok"
	cfg.MaxAttempts = 4
	cfg.Timeout = 30 * time.Second

	logger := slog.Default()
	cc := cfg.ClientConfig(logger)

	assert.Equal(t, answer.ProviderGoogle, cc.Provider)
	assert.Equal(t, "g-key", cc.APIKeys.Google)
	assert.Equal(t, "http://localhost:1234", cc.BaseURLs.Google)
	assert.Equal(t, "tok", cc.ChatGPT.AccessToken)
	assert.Equal(t, 10*time.Second, cc.ChatGPT.CleanupTimeout)
	require.NotNil(t, cc.RetryConfig)
	assert.Equal(t, 4, cc.RetryConfig.MaxAttempts)
	assert.Equal(t, 30*time.Second, cc.HTTPClient.Timeout)
	assert.Same(t, logger, cc.Logger)

	assert.Equal(t, 1, Default().ClientConfig(logger).RetryConfig.MaxAttempts)
}

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("")
	assert.Error(t, err)
}
