package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/ashita-ai/moltbot/internal/model"
)

func (s *Server) registerPrompts() {
	// orchestrate: walks the agent through starting and following a multi-agent run.
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("orchestrate",
			mcplib.WithPromptDescription("Start a multi-agent orchestration and follow it to completion"),
			mcplib.WithArgument("prompt",
				mcplib.ArgumentDescription("Goal shared by every agent"),
				mcplib.RequiredArgument(),
			),
			mcplib.WithArgument("agents",
				mcplib.ArgumentDescription("Comma-separated agent names (default: researcher, analyst, writer)"),
			),
		),
		s.handleOrchestratePrompt,
	)

	// batch: explains the fan-out and polling pattern for process_batch.
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("batch",
			mcplib.WithPromptDescription("Run a batch calculation and collect the ordered results"),
			mcplib.WithArgument("operation",
				mcplib.ArgumentDescription("square, cube or factorial"),
			),
		),
		s.handleBatchPrompt,
	)
}

func (s *Server) handleOrchestratePrompt(_ context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	prompt := request.Params.Arguments["prompt"]
	if prompt == "" {
		return nil, errors.New("prompt argument is required")
	}

	agents := model.DefaultAgents
	if raw := request.Params.Arguments["agents"]; raw != "" {
		agents = nil
		for _, a := range strings.Split(raw, ",") {
			if a = strings.TrimSpace(a); a != "" {
				agents = append(agents, a)
			}
		}
	}
	quoted := make([]string, len(agents))
	for i, a := range agents {
		quoted[i] = fmt.Sprintf("%q", a)
	}

	text := fmt.Sprintf(`Coordinate these agents on the goal below: %s.

Goal: %s

1. Call orchestrate_agents with prompt set to the goal and agents=[%s].
   Keep the orchestration_id it returns.
2. Poll list_tasks (or get_task_status for each task id) until every task
   reports status "completed". Tasks advance every few hundred milliseconds.
3. Call get_orchestration_conversation with the orchestration_id and
   summarise what each agent contributed.
4. Optionally call get_orchestration_dashboard to show overall progress.`,
		strings.Join(agents, ", "), prompt, strings.Join(quoted, ", "))

	return &mcplib.GetPromptResult{
		Description: "Orchestrate agents for: " + truncate(prompt, 80),
		Messages: []mcplib.PromptMessage{
			mcplib.NewPromptMessage(mcplib.RoleUser, mcplib.NewTextContent(text)),
		},
	}, nil
}

func (s *Server) handleBatchPrompt(_ context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	operation := request.Params.Arguments["operation"]
	if operation == "" {
		operation = model.OperationSquare
	}

	text := fmt.Sprintf(`Run a %s batch calculation.

1. Call process_batch with the numbers as items and operation=%q.
   The response lists one task id per item, in input order.
2. Poll get_task_status for each task id until it is "completed".
3. Read result.output from each task and report the outputs in the same
   order as the input items.`, operation, operation)

	return &mcplib.GetPromptResult{
		Description: fmt.Sprintf("Run a %s batch calculation", operation),
		Messages: []mcplib.PromptMessage{
			mcplib.NewPromptMessage(mcplib.RoleUser, mcplib.NewTextContent(text)),
		},
	}, nil
}
