package model

import "time"

// TaskEventKind identifies a point in a task's lifecycle.
type TaskEventKind string

const (
	TaskEventCreated   TaskEventKind = "created"
	TaskEventStarted   TaskEventKind = "started"
	TaskEventProgress  TaskEventKind = "progress"
	TaskEventMessage   TaskEventKind = "message"
	TaskEventCompleted TaskEventKind = "completed"
)

// TaskEvent is emitted by the orchestrator on every task mutation.
// Message is set only for TaskEventMessage.
type TaskEvent struct {
	TaskID     string        `json:"task_id"`
	TaskType   TaskType      `json:"task_type"`
	Kind       TaskEventKind `json:"kind"`
	Status     TaskStatus    `json:"status"`
	Progress   int           `json:"progress"`
	Message    *Message      `json:"message,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}
