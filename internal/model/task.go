// Package model defines the core domain types for moltbot.
//
// Tasks and UI resources are independent registries: a Task never references a
// UIResource and vice versa. Types use strong typing (time.Time, string enums)
// and keep map[string]any only where the caller controls the shape (Params).
package model

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"time"
)

// TaskType is the closed set of work a task can simulate.
type TaskType string

const (
	TaskTypeDataProcessing   TaskType = "data_processing"
	TaskTypeImageGeneration  TaskType = "image_generation"
	TaskTypeReportGeneration TaskType = "report_generation"
	TaskTypeBatchCalculation TaskType = "batch_calculation"
)

// TaskTypes lists every valid TaskType in declaration order.
var TaskTypes = []TaskType{
	TaskTypeDataProcessing,
	TaskTypeImageGeneration,
	TaskTypeReportGeneration,
	TaskTypeBatchCalculation,
}

// ParseTaskType validates s against the closed TaskType enumeration.
func ParseTaskType(s string) (TaskType, error) {
	t := TaskType(s)
	if slices.Contains(TaskTypes, t) {
		return t, nil
	}
	return "", fmt.Errorf("unknown task type %q", s)
}

// TaskStatus is the lifecycle state of a task. Transitions only move forward:
// pending → running → completed | failed.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// StatusFilterAll matches every task in list queries.
const StatusFilterAll = "all"

// TaskStatuses lists every TaskStatus in lifecycle order.
var TaskStatuses = []TaskStatus{
	TaskStatusPending,
	TaskStatusRunning,
	TaskStatusCompleted,
	TaskStatusFailed,
}

// IsTerminal reports whether no further transition is possible.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// ParseStatusFilter accepts "all" (or empty) plus every TaskStatus.
func ParseStatusFilter(s string) (string, error) {
	if s == "" || s == StatusFilterAll {
		return StatusFilterAll, nil
	}
	if slices.Contains(TaskStatuses, TaskStatus(s)) {
		return s, nil
	}
	return "", fmt.Errorf("unknown status filter %q", s)
}

// Batch operations accepted by batch_calculation tasks.
const (
	OperationSquare    = "square"
	OperationCube      = "cube"
	OperationFactorial = "factorial"
)

// BatchOperations lists the accepted batch operations.
var BatchOperations = []string{OperationSquare, OperationCube, OperationFactorial}

// Message is one entry in a task's append-only conversation log.
type Message struct {
	Timestamp time.Time `json:"timestamp"`
	From      string    `json:"from"`
	To        string    `json:"to,omitempty"`
	Content   string    `json:"content"`
}

// Task is a unit of simulated background work tracked by the orchestrator.
// Result is set only once Status is completed; Error only once Status is failed.
type Task struct {
	ID          string         `json:"id"`
	Type        TaskType       `json:"type"`
	Status      TaskStatus     `json:"status"`
	Progress    int            `json:"progress"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Params      map[string]any `json:"params"`
	Result      any            `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	Messages    []Message      `json:"messages"`
}

// Clone returns a copy that shares no mutable state with t.
// Param values are copied shallowly; the orchestrator never mutates them.
func (t Task) Clone() Task {
	c := t
	if t.StartedAt != nil {
		ts := *t.StartedAt
		c.StartedAt = &ts
	}
	if t.CompletedAt != nil {
		ts := *t.CompletedAt
		c.CompletedAt = &ts
	}
	c.Params = maps.Clone(t.Params)
	if c.Params == nil {
		c.Params = map[string]any{}
	}
	c.Messages = slices.Clone(t.Messages)
	if c.Messages == nil {
		c.Messages = []Message{}
	}
	return c
}

// DataProcessingResult is the result of a data_processing task.
type DataProcessingResult struct {
	Processed  any   `json:"processed"`
	DurationMS int64 `json:"duration"`
}

// BatchCalculationResult is the result of a batch_calculation task.
type BatchCalculationResult struct {
	Input     float64 `json:"input"`
	Operation string  `json:"operation"`
	Output    float64 `json:"output"`
}

// MarshalJSON encodes non-finite numbers (factorial overflow, "inf" params)
// as null, which encoding/json would otherwise reject.
func (r BatchCalculationResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Input     *float64 `json:"input"`
		Operation string   `json:"operation"`
		Output    *float64 `json:"output"`
	}{
		Input:     finite(r.Input),
		Operation: r.Operation,
		Output:    finite(r.Output),
	})
}

func finite(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

// ImageGenerationResult is the result of an image_generation task.
type ImageGenerationResult struct {
	ImageURL string `json:"image_url"`
	Format   string `json:"format"`
	Size     string `json:"size"`
}

// ReportGenerationResult is the result of a report_generation task.
type ReportGenerationResult struct {
	ReportURL string `json:"report_url"`
	Pages     int    `json:"pages"`
}

// Batch groups the tasks created from one process_batch call.
type Batch struct {
	BatchID string `json:"batch_id"`
	Tasks   []Task `json:"tasks"`
}

// TaskIDs returns the batch's task ids in input order.
func (b Batch) TaskIDs() []string {
	ids := make([]string, len(b.Tasks))
	for i, t := range b.Tasks {
		ids[i] = t.ID
	}
	return ids
}

// Stats aggregates task counts by current status.
// Recent holds the last ten created tasks, most recent first.
type Stats struct {
	Total     int    `json:"total"`
	Pending   int    `json:"pending"`
	Running   int    `json:"running"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
	Recent    []Task `json:"recent"`
}
