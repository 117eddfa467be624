package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/spetersoncode/answer"
	"github.com/spetersoncode/answer/internal/stream"
	"github.com/spetersoncode/answer/internal/version"
)

// ErrToolUnavailable is returned when the remote server does not offer the
// generate_answer tool.
var ErrToolUnavailable = errors.New("remote server has no " + ToolName + " tool")

// RemoteProvider implements [answer.Provider] by calling the generate_answer
// tool of an MCP server. Each call yields at most one answer; the remote
// server cleans up its own conversations, so Cleanup is a no-op.
type RemoteProvider struct {
	client *client.Client
}

var _ answer.Provider = (*RemoteProvider)(nil)

// NewRemoteProvider starts the MCP server command and connects to it via stdio.
func NewRemoteProvider(ctx context.Context, command string, env []string, args ...string) (*RemoteProvider, error) {
	c, err := client.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP client: %w", err)
	}
	return newRemoteProviderFromClient(ctx, c)
}

// NewRemoteProviderSSE connects to an MCP server via SSE.
func NewRemoteProviderSSE(ctx context.Context, baseURL string) (*RemoteProvider, error) {
	c, err := client.NewSSEMCPClient(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSE MCP client: %w", err)
	}
	return newRemoteProviderFromClient(ctx, c)
}

// NewRemoteProviderFromClient creates a RemoteProvider from an existing MCP
// client. The client is started and initialized here.
func NewRemoteProviderFromClient(ctx context.Context, c *client.Client) (*RemoteProvider, error) {
	return newRemoteProviderFromClient(ctx, c)
}

func newRemoteProviderFromClient(ctx context.Context, c *client.Client) (*RemoteProvider, error) {
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start MCP client: %w", err)
	}

	_, err := c.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo: mcp.Implementation{
				Name:    "answer-mcp-client",
				Version: version.Version,
			},
		},
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize MCP session: %w", err)
	}

	tools, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	for _, t := range tools.Tools {
		if t.Name == ToolName {
			return &RemoteProvider{client: c}, nil
		}
	}
	c.Close()
	return nil, ErrToolUnavailable
}

// Close closes the connection to the MCP server.
func (r *RemoteProvider) Close() error {
	return r.client.Close()
}

// GenerateAnswer implements [answer.Provider].
func (r *RemoteProvider) GenerateAnswer(ctx context.Context, prompt string, opts ...answer.Option) (*answer.Call, error) {
	if prompt == "" {
		return nil, answer.ErrEmptyPrompt
	}
	o := answer.ApplyOptions(opts...)

	args := map[string]any{"prompt": prompt}
	if o.Model != "" {
		args["model"] = o.Model
	}
	if o.SystemPrompt != "" {
		args["system_prompt"] = o.SystemPrompt
	}

	return stream.Start(ctx, o, nil, func(ctx context.Context, emit stream.Emit) error {
		result, err := r.client.CallTool(ctx, mcp.CallToolRequest{
			Params: mcp.CallToolParams{
				Name:      ToolName,
				Arguments: args,
			},
		})
		if ctx.Err() != nil {
			return answer.NewAbortError(ctx.Err())
		}
		if err != nil {
			return fmt.Errorf("call %s: %w", ToolName, err)
		}

		a := FromCallToolResult(result)
		if result.IsError {
			return errors.New(a.Text)
		}
		if a.Text == "" {
			return nil
		}
		if a.ConversationID == "" {
			a.ConversationID = answer.NewID()
		}
		if a.MessageID == "" {
			a.MessageID = answer.NewID()
		}
		emit(answer.AnswerEvent(a))
		return nil
	}), nil
}
