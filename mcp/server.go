// Package mcp exposes the note tools to external MCP clients over stdio.
package mcp

import (
	"context"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"notepilot/config"
	"notepilot/model"
)

const instructions = `Tools for reading and editing the user's notes. ` +
	`Call list_notes or search_notes first to find note ids.`

// Dispatcher executes tool calls. *tools.Dispatcher satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, call model.ToolCall) model.ToolResult
	Catalog() []mcptypes.Tool
}

// NewServer registers every tool in d's catalog on a new MCP server.
func NewServer(d Dispatcher, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"notepilot",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	for _, tool := range d.Catalog() {
		s.AddTool(tool, handler(d, tool.Name))
	}
	return s
}

func handler(d Dispatcher, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcptypes.CallToolRequest) (*mcptypes.CallToolResult, error) {
		result := d.Dispatch(ctx, model.ToolCall{Name: name, Arguments: req.GetArguments()})
		config.Log.Debugf("[MCP] %s error=%v", name, result.IsError)
		if result.IsError {
			return mcptypes.NewToolResultError(result.Result), nil
		}
		return mcptypes.NewToolResultText(result.Result), nil
	}
}

// ServeStdio serves s on stdin/stdout until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
