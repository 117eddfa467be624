package mcp

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/spetersoncode/answer"
	"github.com/spetersoncode/answer/internal/stream"
	"github.com/spetersoncode/answer/internal/version"
)

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	name        string
	version     string
	logger      *slog.Logger
	cleanupWait time.Duration
}

// WithName sets the server name reported to MCP clients.
func WithName(name string) ServerOption {
	return func(c *serverConfig) {
		c.name = name
	}
}

// WithVersion sets the server version reported to MCP clients.
func WithVersion(version string) ServerOption {
	return func(c *serverConfig) {
		c.version = version
	}
}

// WithLogger sets the logger used for tool calls.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(c *serverConfig) {
		c.logger = logger
	}
}

// WithCleanupWait bounds how long Serve waits for background conversation
// cleanup after the transport closes.
func WithCleanupWait(d time.Duration) ServerOption {
	return func(c *serverConfig) {
		c.cleanupWait = d
	}
}

func newServerConfig(opts []ServerOption) *serverConfig {
	cfg := &serverConfig{
		name:        "answer-mcp-server",
		version:     version.Version,
		logger:      slog.Default(),
		cleanupWait: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// NewServer creates an MCP server exposing the generate_answer tool backed
// by p.
//
// Example:
//
//	c := client.New(client.Config{Provider: answer.ProviderOpenAI, ...})
//	s := mcp.NewServer(c, mcp.WithName("answer"))
//	server.ServeStdio(s)
func NewServer(p answer.Provider, opts ...ServerOption) *server.MCPServer {
	cfg := newServerConfig(opts)

	s := server.NewMCPServer(
		cfg.name,
		cfg.version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	s.AddTool(GenerateAnswerTool(), generateAnswerHandler(p, cfg.logger))
	return s
}

// generateAnswerHandler runs one call to completion and returns the final text.
// Call failures are reported as tool errors, not protocol errors.
func generateAnswerHandler(p answer.Provider, logger *slog.Logger) func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args GenerateAnswerArgs
		if err := req.BindArguments(&args); err != nil {
			return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
		}

		call, err := p.GenerateAnswer(ctx, args.Prompt, args.options()...)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var last *answer.Answer
		err = call.Wait(func(ev answer.Event) {
			if ev.Answer != nil {
				last = ev.Answer
			}
		})
		if err != nil {
			logger.Warn("generate_answer failed", "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		if last == nil {
			return mcp.NewToolResultError("no answer received"), nil
		}

		logger.Debug("generate_answer completed",
			"conversation_id", last.ConversationID,
			"message_id", last.MessageID,
		)
		return ToCallToolResult(*last), nil
	}
}

// Serve runs an MCP server for p over in and out until in reaches EOF or
// ctx is done. In-flight tool calls finish first, then Serve waits up to the
// cleanup wait for detached conversation cleanup so it is not lost on exit.
func Serve(ctx context.Context, p answer.Provider, in io.Reader, out io.Writer, opts ...ServerOption) error {
	cfg := newServerConfig(opts)

	err := server.NewStdioServer(NewServer(p, opts...)).Listen(ctx, in, out)

	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.cleanupWait)
	defer cancel()
	if werr := stream.WaitDetached(waitCtx); werr != nil {
		cfg.logger.Warn("conversation cleanup still pending at exit", "error", werr)
	}
	return err
}

// ServeStdio starts an MCP server for p that communicates over stdin/stdout.
// This is the standard transport for MCP servers invoked as subprocesses.
// SIGINT and SIGTERM stop the server.
func ServeStdio(p answer.Provider, opts ...ServerOption) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return Serve(ctx, p, os.Stdin, os.Stdout, opts...)
}
