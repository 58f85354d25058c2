package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

const taskURIPrefix = "moltbot://tasks/"

func (s *Server) registerResources() {
	// moltbot://tasks/stats: task counts and the ten most recent tasks.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			taskURIPrefix+"stats",
			"Task Stats",
			mcplib.WithResourceDescription("Task counts by status and the most recent tasks"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleTaskStats,
	)

	// moltbot://tasks/{id}: snapshot of one task.
	s.mcpServer.AddResourceTemplate(
		mcplib.NewResourceTemplate(
			taskURIPrefix+"{id}",
			"Task",
			mcplib.WithTemplateDescription("Snapshot of a single task"),
			mcplib.WithTemplateMIMEType("application/json"),
		),
		s.handleTaskResource,
	)

	// ui://{kind}/{name}: fallback read path for rendered components.
	s.mcpServer.AddResourceTemplate(
		mcplib.NewResourceTemplate(
			"ui://{kind}/{name}",
			"UI Component",
			mcplib.WithTemplateDescription("HTML produced by a rendering tool"),
			mcplib.WithTemplateMIMEType("text/html"),
		),
		s.handleUIResource,
	)
}

func (s *Server) handleTaskStats(_ context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	data, err := json.MarshalIndent(s.orch.Stats(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal stats: %w", err)
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleTaskResource(_ context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	uri := request.Params.URI
	id := strings.TrimPrefix(uri, taskURIPrefix)
	if id == "" || id == uri || strings.Contains(id, "/") {
		return nil, fmt.Errorf("mcp: invalid task URI: %s", uri)
	}

	task, ok := s.orch.GetTask(id)
	if !ok {
		return nil, fmt.Errorf("mcp: task not found: %s", id)
	}
	data, err := json.MarshalIndent(task, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal task: %w", err)
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleUIResource(_ context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	uri := request.Params.URI
	res, ok := s.ui.Get(uri)
	if !ok {
		return nil, fmt.Errorf("mcp: ui resource not found: %s", uri)
	}
	return []mcplib.ResourceContents{
		mcplib.BlobResourceContents{
			URI:      res.URI,
			MIMEType: res.MIMEType,
			Blob:     res.Blob,
		},
	}, nil
}
