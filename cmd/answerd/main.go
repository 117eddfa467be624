// Command answerd serves answers to AG-UI frontends over Server-Sent Events.
//
// Configuration is via environment variables (a .env file is honoured), or a
// YAML file named by ANSWER_CONFIG:
//
//	ANSWER_PORT          - Server port (default: 8000)
//	ANSWER_LOG_LEVEL     - debug, info, warn, or error (default: info)
//	ANSWER_PROVIDER      - chatgpt, chatgpt-stream, openai, anthropic, or google (default: chatgpt)
//	ANSWER_MODEL         - Model override (optional)
//	ANSWER_MAX_ATTEMPTS  - Attempts per call for transient failures (default: 1)
//	CHATGPT_ACCESS_TOKEN - Static ChatGPT access token (optional)
//	OPENAI_API_KEY       - OpenAI API key
//	ANTHROPIC_API_KEY    - Anthropic API key
//	GOOGLE_API_KEY       - Google API key
//
// Usage:
//
//	ANSWER_PROVIDER=openai go run ./cmd/answerd
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spetersoncode/answer/client"
	"github.com/spetersoncode/answer/internal/config"
	"github.com/spetersoncode/answer/internal/retry"
	"github.com/spetersoncode/answer/internal/stream"
	"github.com/spetersoncode/answer/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	events := make(chan client.Event, 64)
	go logClientEvents(logger, events)

	clientCfg := cfg.ClientConfig(logger)
	clientCfg.Events = events
	c := client.New(clientCfg)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(NewAnswerHandler(c)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // SSE needs no write timeout
		IdleTimeout:  120 * time.Second,
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		logger.Error("listen error", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("answer server starting",
		"port", cfg.Port,
		"provider", cfg.Provider,
		"version", version.Version,
	)

	if err := serve(ctx, logger, server, ln, cfg.ChatGPT.CleanupTimeout); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// serve runs server on ln until ctx is done. It then shuts the server down,
// waits for in-flight handlers to finish, and waits up to cleanupTimeout for
// the conversation cleanup those handlers detached.
func serve(ctx context.Context, logger *slog.Logger, server *http.Server, ln net.Listener, cleanupTimeout time.Duration) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown returns once in-flight handlers, and their deferred
	// call.Cleanup, have finished.
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	if err := <-serveErr; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	waitCtx, cancelWait := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancelWait()
	if err := stream.WaitDetached(waitCtx); err != nil {
		logger.Warn("conversation cleanup still pending at exit", "error", err)
	}
	return nil
}

// logClientEvents logs request lifecycle events emitted by the client.
func logClientEvents(logger *slog.Logger, events <-chan client.Event) {
	for ev := range events {
		switch ev.Type {
		case client.EventRetry:
			if ev.RetryEvent == nil || ev.RetryEvent.Type != retry.EventRetrying {
				continue
			}
			logger.Warn("retrying request",
				"provider", ev.Provider,
				"attempt", ev.RetryEvent.Attempt,
				"delay", ev.RetryEvent.Delay,
				"error", ev.RetryEvent.Error,
			)
		case client.EventRequestError:
			logger.Debug("request failed", "provider", ev.Provider, "error", ev.Error, "duration", ev.Duration)
		case client.EventRequestComplete:
			logger.Debug("request complete", "provider", ev.Provider, "answers", ev.Answers, "duration", ev.Duration)
		}
	}
}
