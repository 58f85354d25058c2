// Package orchestrator runs the in-memory task registry: it creates tasks,
// advances each one through its state machine on a dedicated goroutine, and
// answers snapshot queries.
//
// The Orchestrator is the single owner of every task record. Only CreateTask
// and a task's own progression goroutine write to it; every read returns a
// deep copy.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ashita-ai/moltbot/internal/model"
)

// DefaultStepInterval is the simulated work time between progress checkpoints.
const DefaultStepInterval = 500 * time.Millisecond

// DefaultIDPrefix is used when CreateTask is given an empty prefix.
const DefaultIDPrefix = "task"

// recentLimit bounds Stats.Recent.
const recentLimit = 10

// Recorder receives every task lifecycle event. Record is called outside the
// registry lock but on the mutating goroutine, so implementations must not block.
type Recorder interface {
	Record(event model.TaskEvent)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(event model.TaskEvent)

// Record calls f(event).
func (f RecorderFunc) Record(event model.TaskEvent) { f(event) }

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStepInterval overrides DefaultStepInterval. Non-positive values are ignored.
func WithStepInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.stepInterval = d
		}
	}
}

// WithRecorder registers a lifecycle event recorder. May be given multiple times.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorders = append(o.recorders, r)
		}
	}
}

// Orchestrator owns the task map and drives each task's progression.
type Orchestrator struct {
	logger       *slog.Logger
	stepInterval time.Duration
	recorders    []Recorder

	mu    sync.RWMutex
	tasks map[string]*model.Task
	order []string // insertion order of task ids

	runMu    sync.Mutex // guards baseCtx and draining, serialises group.Go against Drain
	baseCtx  context.Context
	draining bool
	group    errgroup.Group

	createdCounter metric.Int64Counter
	durationHist   metric.Float64Histogram
}

// New creates an Orchestrator. Progressions started before Start run under
// context.Background().
func New(logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:       logger,
		stepInterval: DefaultStepInterval,
		tasks:        make(map[string]*model.Task),
		baseCtx:      context.Background(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.createInstruments()
	return o
}

// Start sets the context that bounds all progressions and registers OTEL
// gauges. Cancelling ctx abandons in-flight progressions at their next wait
// point; abandoned tasks stay running. Call Drain first for a clean stop.
func (o *Orchestrator) Start(ctx context.Context) {
	o.runMu.Lock()
	o.baseCtx = ctx
	o.runMu.Unlock()
	o.registerMetrics()
}

// Drain waits until every tracked progression has completed or ctx expires.
// Tasks created after Drain begins are not tracked and are abandoned when the
// Start context is cancelled.
func (o *Orchestrator) Drain(ctx context.Context) error {
	o.runMu.Lock()
	o.draining = true
	o.runMu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = o.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("orchestrator: drain: %w", ctx.Err())
	}
}

// CreateTask registers a pending task and schedules its progression without
// waiting for it. The returned snapshot reflects the task at creation time.
// ctx is used only to link the progression span to the caller's trace.
func (o *Orchestrator) CreateTask(ctx context.Context, taskType model.TaskType, params map[string]any, idPrefix string) model.Task {
	if idPrefix == "" {
		idPrefix = DefaultIDPrefix
	}
	now := time.Now().UTC()

	task := &model.Task{
		ID:        newTaskID(idPrefix, now),
		Type:      taskType,
		Status:    model.TaskStatusPending,
		Progress:  0,
		CreatedAt: now,
		Params:    cloneParams(params),
		Messages:  []model.Message{},
	}

	events := []model.TaskEvent{newEvent(task, model.TaskEventCreated, now)}
	if prompt, ok := task.Params["prompt"].(string); ok && prompt != "" {
		events = append(events, appendMessage(task, now, model.AgentOrchestrator,
			agentName(task.Params, model.AgentOrchestrator), prompt))
	}

	o.mu.Lock()
	if _, exists := o.tasks[task.ID]; exists {
		o.mu.Unlock()
		panic(fmt.Sprintf("orchestrator: duplicate task id %q", task.ID))
	}
	o.tasks[task.ID] = task
	o.order = append(o.order, task.ID)
	snapshot := task.Clone()
	o.mu.Unlock()

	o.emit(events)
	o.createdCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(taskType))))
	o.logger.Info("orchestrator: task created", "task_id", task.ID, "type", taskType)

	o.spawn(task.ID, trace.LinkFromContext(ctx))
	return snapshot
}

// spawn starts the progression goroutine, tracked by the errgroup unless a
// Drain is in progress.
func (o *Orchestrator) spawn(id string, link trace.Link) {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	ctx := o.baseCtx
	if o.draining {
		go o.run(ctx, id, link)
		return
	}
	o.group.Go(func() error {
		o.run(ctx, id, link)
		return nil
	})
}

// GetTask returns a snapshot of the task, or false if the id was never issued.
func (o *Orchestrator) GetTask(id string) (model.Task, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	t, ok := o.tasks[id]
	if !ok {
		return model.Task{}, false
	}
	return t.Clone(), true
}

// ListTasks returns snapshots in insertion order. filter is "all" or a
// TaskStatus; any other value matches nothing.
func (o *Orchestrator) ListTasks(filter string) []model.Task {
	if filter == "" {
		filter = model.StatusFilterAll
	}
	return o.collect(func(t *model.Task) bool {
		return filter == model.StatusFilterAll || string(t.Status) == filter
	})
}

// ListByParam returns snapshots, in insertion order, of tasks whose params[key]
// renders to value.
func (o *Orchestrator) ListByParam(key, value string) []model.Task {
	return o.collect(func(t *model.Task) bool {
		v, ok := t.Params[key]
		return ok && v != nil && fmt.Sprint(v) == value
	})
}

func (o *Orchestrator) collect(match func(*model.Task) bool) []model.Task {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]model.Task, 0, len(o.order))
	for _, id := range o.order {
		if t := o.tasks[id]; match(t) {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Stats counts tasks by current status in a single consistent pass.
func (o *Orchestrator) Stats() model.Stats {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var s model.Stats
	s.Total = len(o.order)
	for _, id := range o.order {
		switch o.tasks[id].Status {
		case model.TaskStatusPending:
			s.Pending++
		case model.TaskStatusRunning:
			s.Running++
		case model.TaskStatusCompleted:
			s.Completed++
		case model.TaskStatusFailed:
			s.Failed++
		}
	}

	n := min(recentLimit, len(o.order))
	s.Recent = make([]model.Task, 0, n)
	for i := len(o.order) - 1; i >= len(o.order)-n; i-- {
		s.Recent = append(s.Recent, o.tasks[o.order[i]].Clone())
	}
	return s
}

// mutate applies fn to the live task under the write lock and emits the
// events it returns after unlocking.
func (o *Orchestrator) mutate(id string, fn func(t *model.Task, now time.Time) []model.TaskEvent) {
	o.mu.Lock()
	t, ok := o.tasks[id]
	if !ok {
		o.mu.Unlock()
		return
	}
	events := fn(t, time.Now().UTC())
	o.mu.Unlock()
	o.emit(events)
}

func (o *Orchestrator) emit(events []model.TaskEvent) {
	for _, r := range o.recorders {
		for _, e := range events {
			r.Record(e)
		}
	}
}

func newTaskID(prefix string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s_%d_%s", prefix, now.UnixMilli(), suffix)
}

func newEvent(t *model.Task, kind model.TaskEventKind, now time.Time) model.TaskEvent {
	return model.TaskEvent{
		TaskID:     t.ID,
		TaskType:   t.Type,
		Kind:       kind,
		Status:     t.Status,
		Progress:   t.Progress,
		OccurredAt: now,
	}
}

// appendMessage adds an entry to the task's log and returns the matching event.
func appendMessage(t *model.Task, now time.Time, from, to, content string) model.TaskEvent {
	msg := model.Message{Timestamp: now, From: from, To: to, Content: content}
	t.Messages = append(t.Messages, msg)
	e := newEvent(t, model.TaskEventMessage, now)
	e.Message = &msg
	return e
}

func cloneParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}
