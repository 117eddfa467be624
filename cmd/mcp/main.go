// Command mcp serves the configured answer provider as an MCP server over stdio.
//
// MCP clients (like Claude Desktop) discover a single generate_answer tool
// that forwards the prompt to the provider selected by ANSWER_PROVIDER.
// Logs go to stderr since stdout carries the protocol.
//
// Usage:
//
//	go run ./cmd/mcp
//
// Configuration for Claude Desktop (~/Library/Application Support/Claude/claude_desktop_config.json):
//
//	{
//	    "mcpServers": {
//	        "answer": {
//	            "command": "go",
//	            "args": ["run", "./cmd/mcp"],
//	            "cwd": "/path/to/answer",
//	            "env": {"ANSWER_PROVIDER": "openai", "OPENAI_API_KEY": "sk-..."}
//	        }
//	    }
//	}
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/spetersoncode/answer/client"
	"github.com/spetersoncode/answer/internal/config"
	"github.com/spetersoncode/answer/internal/version"
	"github.com/spetersoncode/answer/mcp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	c := client.New(cfg.ClientConfig(logger))

	if err := mcp.ServeStdio(c,
		mcp.WithName("answer"),
		mcp.WithVersion(version.Version),
		mcp.WithLogger(logger),
		mcp.WithCleanupWait(cfg.ChatGPT.CleanupTimeout),
	); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("mcp server stopped", "error", err)
		os.Exit(1)
	}
}
