package moltbot

import (
	"maps"
	"time"

	"github.com/ashita-ai/moltbot/internal/model"
)

// Message is one entry of a task's conversation log.
type Message struct {
	Timestamp time.Time
	From      string
	To        string
	Content   string
}

// Task is the public snapshot of a task handed to hooks.
// It is a copy; mutating it has no effect on the server.
type Task struct {
	ID          string
	Type        string
	Status      string
	Progress    int
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	Params      map[string]any
	Result      any
	Error       string
	Messages    []Message
}

// TaskEvent is one lifecycle transition of a task.
// Kind is one of "created", "started", "progress", "message" or "completed".
// Message is set only for "message" events.
type TaskEvent struct {
	TaskID     string
	TaskType   string
	Kind       string
	Status     string
	Progress   int
	Message    *Message
	OccurredAt time.Time
}

func toPublicMessage(m model.Message) Message {
	return Message{
		Timestamp: m.Timestamp,
		From:      m.From,
		To:        m.To,
		Content:   m.Content,
	}
}

func toPublicTask(t model.Task) Task {
	out := Task{
		ID:          t.ID,
		Type:        string(t.Type),
		Status:      string(t.Status),
		Progress:    t.Progress,
		CreatedAt:   t.CreatedAt,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
		Params:      maps.Clone(t.Params),
		Result:      t.Result,
		Error:       t.Error,
	}
	if len(t.Messages) > 0 {
		out.Messages = make([]Message, len(t.Messages))
		for i, m := range t.Messages {
			out.Messages[i] = toPublicMessage(m)
		}
	}
	return out
}

func toPublicEvent(e model.TaskEvent) TaskEvent {
	out := TaskEvent{
		TaskID:     e.TaskID,
		TaskType:   string(e.TaskType),
		Kind:       string(e.Kind),
		Status:     string(e.Status),
		Progress:   e.Progress,
		OccurredAt: e.OccurredAt,
	}
	if e.Message != nil {
		m := toPublicMessage(*e.Message)
		out.Message = &m
	}
	return out
}
