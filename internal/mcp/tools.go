package mcp

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/ashita-ai/moltbot/internal/calc"
	"github.com/ashita-ai/moltbot/internal/model"
	"github.com/ashita-ai/moltbot/internal/render"
	"github.com/ashita-ai/moltbot/internal/service/orchestrator"
)

// orchestrationParam tags every task created by orchestrate_agents.
const orchestrationParam = "orchestrationId"

func taskTypeNames() []string {
	names := make([]string, len(model.TaskTypes))
	for i, t := range model.TaskTypes {
		names[i] = string(t)
	}
	return names
}

func statusFilterNames() []string {
	names := []string{model.StatusFilterAll}
	for _, s := range model.TaskStatuses {
		names = append(names, string(s))
	}
	return names
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcplib.NewTool("add",
			mcplib.WithDescription("Add two numbers and return the sum."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithNumber("a", mcplib.Description("First addend"), mcplib.Required()),
			mcplib.WithNumber("b", mcplib.Description("Second addend"), mcplib.Required()),
		),
		s.handleAdd,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("calculate",
			mcplib.WithDescription("Apply add, subtract, multiply or divide to two numbers."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithString("operation",
				mcplib.Description("Arithmetic operation"),
				mcplib.Enum(calc.Operations...),
				mcplib.Required(),
			),
			mcplib.WithNumber("a", mcplib.Description("Left operand"), mcplib.Required()),
			mcplib.WithNumber("b", mcplib.Description("Right operand"), mcplib.Required()),
		),
		s.handleCalculate,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("create_task",
			mcplib.WithDescription(`Create a background task and return its id immediately.

The task starts "pending", moves to "running" and reports progress through
25, 50, 75, 90 and 100 before it completes. Poll get_task_status for the
result.

Task types:
- data_processing: result reports params.records (default 100) as processed
- batch_calculation: applies params.operation (square, cube, factorial) to params.item
- image_generation: result is a placeholder image URL
- report_generation: result is a placeholder report URL and page count`),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("type",
				mcplib.Description("Kind of work to simulate"),
				mcplib.Enum(taskTypeNames()...),
				mcplib.Required(),
			),
			mcplib.WithObject("params",
				mcplib.Description("Free-form task parameters"),
			),
			mcplib.WithString("prompt",
				mcplib.Description("Optional instruction; recorded as the task's first message"),
			),
			mcplib.WithString("agent",
				mcplib.Description("Optional name of the agent working the task"),
			),
		),
		s.handleCreateTask,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("get_task_status",
			mcplib.WithDescription("Return the full snapshot of a task: status, progress, messages and, once completed, its result."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithString("task_id", mcplib.Description("Task id returned by create_task"), mcplib.Required()),
		),
		s.handleGetTaskStatus,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("list_tasks",
			mcplib.WithDescription("List tasks in creation order, optionally filtered by status."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithString("status",
				mcplib.Description("Status filter"),
				mcplib.Enum(statusFilterNames()...),
				mcplib.DefaultString(model.StatusFilterAll),
			),
		),
		s.handleListTasks,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("process_batch",
			mcplib.WithDescription("Create one batch_calculation task per item, in order, and return the batch id and task ids."),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithArray("items",
				mcplib.Description("Numbers to process"),
				mcplib.WithNumberItems(),
				mcplib.Required(),
			),
			mcplib.WithString("operation",
				mcplib.Description("Operation applied to every item"),
				mcplib.Enum(model.BatchOperations...),
				mcplib.Required(),
			),
		),
		s.handleProcessBatch,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("get_orchestration_dashboard",
			mcplib.WithDescription("Render task counts by status and the ten most recent tasks as a UI component."),
			mcplib.WithReadOnlyHintAnnotation(true),
		),
		s.handleDashboard,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("orchestrate_agents",
			mcplib.WithDescription(`Start one task per agent for a shared prompt and return an orchestration id.

Agents exchange progress messages while their tasks run. Read the combined
log with get_orchestration_conversation.`),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithString("prompt", mcplib.Description("Goal given to every agent"), mcplib.Required()),
			mcplib.WithArray("agents",
				mcplib.Description("Agent names; defaults to researcher, analyst, writer"),
				mcplib.WithStringItems(),
			),
			mcplib.WithString("task_type",
				mcplib.Description("Task type for every agent"),
				mcplib.Enum(taskTypeNames()...),
				mcplib.DefaultString(string(model.TaskTypeDataProcessing)),
			),
		),
		s.handleOrchestrateAgents,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("get_orchestration_conversation",
			mcplib.WithDescription("Return the message log of every task in an orchestration, in task order."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithString("orchestration_id",
				mcplib.Description("Id returned by orchestrate_agents"),
				mcplib.Required(),
			),
		),
		s.handleGetConversation,
	)

	if s.history != nil {
		s.mcpServer.AddTool(
			mcplib.NewTool("get_task_history",
				mcplib.WithDescription("Return the journaled lifecycle events of a task: creation, start, every checkpoint and message, completion."),
				mcplib.WithReadOnlyHintAnnotation(true),
				mcplib.WithString("task_id", mcplib.Description("Task id"), mcplib.Required()),
			),
			s.handleGetTaskHistory,
		)
	}
}

func (s *Server) handleAdd(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	a, err := request.RequireFloat("a")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	b, err := request.RequireFloat("b")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(calc.Format(calc.Add(a, b))), nil
}

func (s *Server) handleCalculate(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	operation := request.GetString("operation", "")
	a, err := request.RequireFloat("a")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	b, err := request.RequireFloat("b")
	if err != nil {
		return errorResult(err.Error()), nil
	}

	result, err := calc.Calculate(operation, a, b)
	switch {
	case errors.Is(err, calc.ErrDivideByZero):
		return textResult("Error: Cannot divide by zero"), nil
	case err != nil:
		return errorResult(fmt.Sprintf("operation must be one of %s", strings.Join(calc.Operations, ", "))), nil
	}
	return textResult(calc.Format(result)), nil
}

func (s *Server) handleCreateTask(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	taskType, err := model.ParseTaskType(request.GetString("type", ""))
	if err != nil {
		return errorResult(err.Error()), nil
	}

	params := map[string]any{}
	if raw, ok := request.GetArguments()["params"]; ok && raw != nil {
		obj, ok := raw.(map[string]any)
		if !ok {
			return errorResult("params must be an object"), nil
		}
		for k, v := range obj {
			params[k] = v
		}
	}
	if prompt := request.GetString("prompt", ""); prompt != "" {
		params["prompt"] = prompt
	}
	if agent := request.GetString("agent", ""); agent != "" {
		if err := model.ValidateAgentName(agent); err != nil {
			return errorResult(fmt.Sprintf("invalid agent: %v", err)), nil
		}
		params["agent"] = agent
	}

	task := s.orch.CreateTask(ctx, taskType, params, orchestrator.DefaultIDPrefix)
	return jsonResult(map[string]any{
		"task_id": task.ID,
		"type":    task.Type,
		"status":  task.Status,
	}, fmt.Sprintf("Task %s created (%s). Poll get_task_status for progress.", task.ID, task.Type)), nil
}

func (s *Server) handleGetTaskStatus(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	id := request.GetString("task_id", "")
	if id == "" {
		return errorResult("task_id is required"), nil
	}
	task, ok := s.orch.GetTask(id)
	if !ok {
		return textResult(fmt.Sprintf("Task not found: %s", id)), nil
	}
	return jsonResult(task), nil
}

func (s *Server) handleListTasks(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	filter, err := model.ParseStatusFilter(request.GetString("status", model.StatusFilterAll))
	if err != nil {
		return errorResult(err.Error()), nil
	}

	tasks := s.orch.ListTasks(filter)
	compact := make([]map[string]any, len(tasks))
	for i, t := range tasks {
		compact[i] = compactTask(t)
	}
	return jsonResult(map[string]any{
		"status": filter,
		"tasks":  compact,
		"total":  len(compact),
	}), nil
}

func (s *Server) handleProcessBatch(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	items, err := request.RequireFloatSlice("items")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	operation := request.GetString("operation", "")
	if !slices.Contains(model.BatchOperations, operation) {
		return errorResult(fmt.Sprintf("operation must be one of %s", strings.Join(model.BatchOperations, ", "))), nil
	}

	batch := s.orch.CreateBatch(ctx, items, operation)
	return jsonResult(map[string]any{
		"batch_id":  batch.BatchID,
		"operation": operation,
		"task_ids":  batch.TaskIDs(),
		"total":     len(batch.Tasks),
	}, fmt.Sprintf("Batch %s created with %d tasks.", batch.BatchID, len(batch.Tasks))), nil
}

func (s *Server) handleDashboard(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	stats := s.orch.Stats()
	html, err := render.Dashboard(stats)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	res := s.publishUI("dashboard", "orchestration", html)
	return uiResult(res, statsSummary(stats)), nil
}

func (s *Server) handleOrchestrateAgents(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	prompt := request.GetString("prompt", "")
	if prompt == "" {
		return errorResult("prompt is required"), nil
	}

	taskType, err := model.ParseTaskType(request.GetString("task_type", string(model.TaskTypeDataProcessing)))
	if err != nil {
		return errorResult(err.Error()), nil
	}

	agents := model.DefaultAgents
	if raw, ok := request.GetArguments()["agents"]; ok && raw != nil {
		agents = request.GetStringSlice("agents", nil)
		if len(agents) == 0 {
			return errorResult("agents must be a non-empty list of names"), nil
		}
	}
	for _, a := range agents {
		if err := model.ValidateAgentName(a); err != nil {
			return errorResult(fmt.Sprintf("invalid agent %q: %v", a, err)), nil
		}
	}

	orchestrationID := "orch_" + uuid.NewString()
	peers := make([]any, len(agents))
	for i, a := range agents {
		peers[i] = a
	}

	tasks := make([]model.Task, 0, len(agents))
	taskIDs := make([]string, 0, len(agents))
	for _, agent := range agents {
		t := s.orch.CreateTask(ctx, taskType, map[string]any{
			"prompt":           prompt,
			"agent":            agent,
			"peers":            peers,
			orchestrationParam: orchestrationID,
		}, orchestrator.DefaultIDPrefix)
		tasks = append(tasks, t)
		taskIDs = append(taskIDs, t.ID)
	}

	s.logger.Info("mcp: orchestration started",
		"orchestration_id", orchestrationID, "agents", len(agents), "type", taskType)

	return jsonResult(map[string]any{
		"orchestration_id": orchestrationID,
		"agents":           agents,
		"task_ids":         taskIDs,
	}, formatConversation(tasks)), nil
}

func (s *Server) handleGetConversation(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	id := request.GetString("orchestration_id", "")
	if id == "" {
		return errorResult("orchestration_id is required"), nil
	}

	tasks := s.orch.ListByParam(orchestrationParam, id)
	if len(tasks) == 0 {
		return textResult(fmt.Sprintf("Orchestration not found: %s", id)), nil
	}

	html, err := render.Conversation(id, tasks)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	res := s.publishUI("conversation", id, html)

	return uiResult(res, formatConversation(tasks)), nil
}

func (s *Server) handleGetTaskHistory(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	id := request.GetString("task_id", "")
	if id == "" {
		return errorResult("task_id is required"), nil
	}

	events, err := s.history.Events(ctx, id)
	if err != nil {
		return errorResult(fmt.Sprintf("history lookup failed: %v", err)), nil
	}
	if len(events) == 0 {
		if _, ok := s.orch.GetTask(id); !ok {
			return textResult(fmt.Sprintf("Task not found: %s", id)), nil
		}
	}
	return jsonResult(map[string]any{
		"task_id": id,
		"events":  events,
		"total":   len(events),
	}), nil
}
