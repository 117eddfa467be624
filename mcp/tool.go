// Package mcp provides MCP (Model Context Protocol) integration for answer.
//
// This package provides bidirectional integration:
//
//   - Server: expose any [answer.Provider] as an MCP server with a single
//     generate_answer tool, so MCP clients can ask questions through it.
//   - Client: [RemoteProvider] implements [answer.Provider] by calling the
//     generate_answer tool of a remote MCP server.
//
// # Exposing a Provider
//
//	if err := mcp.ServeStdio(provider); err != nil {
//	    log.Fatal(err)
//	}
//
// # Consuming a Remote Server
//
//	remote, err := mcp.NewRemoteProvider(ctx, "./answer-mcp", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer remote.Close()
//
//	call, err := remote.GenerateAnswer(ctx, "What is MCP?")
package mcp

import (
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/spetersoncode/answer"
)

// ToolName is the name of the tool exposed by the server.
const ToolName = "generate_answer"

// GenerateAnswerArgs are the arguments of the generate_answer tool.
type GenerateAnswerArgs struct {
	Prompt       string `json:"prompt"`
	Model        string `json:"model,omitempty"`
	SystemPrompt string `json:"system_prompt,omitempty"`
}

// options converts the arguments to call options. Conversations created on
// behalf of MCP clients are always cleaned up.
func (a GenerateAnswerArgs) options() []answer.Option {
	opts := []answer.Option{answer.WithAutoCleanup()}
	if a.Model != "" {
		opts = append(opts, answer.WithModel(a.Model))
	}
	if a.SystemPrompt != "" {
		opts = append(opts, answer.WithSystemPrompt(a.SystemPrompt))
	}
	return opts
}

// GenerateAnswerTool returns the MCP definition of the generate_answer tool.
func GenerateAnswerTool() mcp.Tool {
	return mcp.NewTool(ToolName,
		mcp.WithDescription("Ask the configured chat backend a question and return its markdown answer"),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("The question to ask")),
		mcp.WithString("model", mcp.Description("Model override (optional)")),
		mcp.WithString("system_prompt", mcp.Description("System instruction override (optional)")),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}

// ToCallToolResult converts an answer to an MCP tool result. The text is
// the primary content and the full answer is attached as structured content.
func ToCallToolResult(a answer.Answer) *mcp.CallToolResult {
	return mcp.NewToolResultStructured(a, a.Text)
}

// FromCallToolResult extracts the answer from an MCP tool result.
// Structured content is preferred; otherwise text content is concatenated.
func FromCallToolResult(result *mcp.CallToolResult) answer.Answer {
	if result == nil {
		return answer.Answer{}
	}

	var a answer.Answer
	if result.StructuredContent != nil {
		if data, err := json.Marshal(result.StructuredContent); err == nil {
			_ = json.Unmarshal(data, &a)
		}
	}
	if a.Text == "" {
		a.Text = resultText(result)
	}
	return a
}

// resultText concatenates the text content of a result.
func resultText(result *mcp.CallToolResult) string {
	var parts []string
	for _, c := range result.Content {
		switch content := c.(type) {
		case mcp.TextContent:
			parts = append(parts, content.Text)
		case *mcp.TextContent:
			parts = append(parts, content.Text)
		}
	}
	return strings.Join(parts, "\n")
}
