package mcp

import (
	"fmt"
	"strings"
	"time"

	"github.com/ashita-ai/moltbot/internal/model"
)

const maxCompactContent = 200

// compactTask returns the list_tasks representation of a task: identity,
// state and timing only. Params, messages and results are left to
// get_task_status.
func compactTask(t model.Task) map[string]any {
	m := map[string]any{
		"id":         t.ID,
		"type":       t.Type,
		"status":     t.Status,
		"progress":   t.Progress,
		"created_at": t.CreatedAt,
	}
	if t.CompletedAt != nil {
		m["completed_at"] = t.CompletedAt
	}
	if agent, ok := t.Params["agent"].(string); ok && agent != "" {
		m["agent"] = agent
	}
	if n := len(t.Messages); n > 0 {
		m["last_message"] = truncate(t.Messages[n-1].Content, maxCompactContent)
	}
	return m
}

// statsSummary renders counts as a single line.
func statsSummary(s model.Stats) string {
	return fmt.Sprintf("Tasks: %d total (%d pending, %d running, %d completed, %d failed)",
		s.Total, s.Pending, s.Running, s.Completed, s.Failed)
}

// formatConversation concatenates the message logs of tasks, in task order,
// one line per message.
func formatConversation(tasks []model.Task) string {
	var b strings.Builder
	for _, t := range tasks {
		for _, m := range t.Messages {
			fmt.Fprintf(&b, "[%s] %s", m.Timestamp.UTC().Format(time.TimeOnly), m.From)
			if m.To != "" {
				fmt.Fprintf(&b, " -> %s", m.To)
			}
			fmt.Fprintf(&b, ": %s\n", m.Content)
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
