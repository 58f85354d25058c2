// Package mcp implements the Model Context Protocol server for moltbot.
//
// Tools expose the task orchestrator, the arithmetic helpers and the UI
// renderers. Every rendered UI component is also registered as an MCP
// resource so clients can re-read it by URI.
package mcp

import (
	"context"
	"encoding/json"
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ashita-ai/moltbot/internal/model"
	"github.com/ashita-ai/moltbot/internal/service/orchestrator"
	"github.com/ashita-ai/moltbot/internal/service/uistore"
)

// HistorySource returns the journaled events of one task.
type HistorySource interface {
	Events(ctx context.Context, taskID string) ([]model.TaskEvent, error)
}

// Server wraps the MCP server with moltbot's services.
type Server struct {
	mcpServer *mcpserver.MCPServer
	orch      *orchestrator.Orchestrator
	ui        *uistore.Store
	history   HistorySource // nil when the journal is disabled
	logger    *slog.Logger
}

// New creates and configures a new MCP server with all resources, tools and
// prompts. history may be nil, in which case get_task_history is not offered.
func New(orch *orchestrator.Orchestrator, ui *uistore.Store, history HistorySource, logger *slog.Logger, version string) *Server {
	s := &Server{
		orch:    orch,
		ui:      ui,
		history: history,
		logger:  logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"moltbot",
		version,
		mcpserver.WithResourceCapabilities(false, true),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithPromptCapabilities(false),
		mcpserver.WithToolHandlerMiddleware(toolMiddleware(logger)),
		mcpserver.WithRecovery(),
		mcpserver.WithInstructions(serverInstructions),
	)

	s.registerResources()
	s.registerTools()
	s.registerUITools()
	s.registerPrompts()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// RemoveUIResource unregisters an evicted UI resource so resources/list
// stops offering it.
func (s *Server) RemoveUIResource(uri string) {
	s.mcpServer.RemoveResource(uri)
}

const serverInstructions = `moltbot runs simulated background tasks and renders UI components.

Create work with create_task, process_batch or orchestrate_agents; each call
returns immediately with task ids. Poll get_task_status or list_tasks until a
task reports "completed", then read its result. Rendering tools return an
embedded HTML resource that can also be re-read later by its ui:// URI.`

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

func textResult(texts ...string) *mcplib.CallToolResult {
	contents := make([]mcplib.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, mcplib.TextContent{Type: "text", Text: t})
	}
	return &mcplib.CallToolResult{Content: contents}
}

// jsonResult returns v as indented JSON, followed by optional human-readable
// notes.
func jsonResult(v any, notes ...string) *mcplib.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("failed to encode result: " + err.Error())
	}
	return textResult(append([]string{string(data)}, notes...)...)
}
