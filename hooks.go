package moltbot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ashita-ai/moltbot/internal/model"
)

const (
	hookQueueSize = 1024
	hookTimeout   = 10 * time.Second
)

// hookDispatcher adapts public TaskHooks to orchestrator.Recorder. Record only
// enqueues; a single goroutine delivers events in order.
type hookDispatcher struct {
	hooks  []TaskHook
	lookup func(id string) (model.Task, bool)
	logger *slog.Logger

	mu      sync.Mutex
	closed  bool
	events  chan model.TaskEvent
	dropped atomic.Int64
	done    chan struct{}
}

func newHookDispatcher(hooks []TaskHook, logger *slog.Logger) *hookDispatcher {
	d := &hookDispatcher{
		hooks:  hooks,
		logger: logger,
		events: make(chan model.TaskEvent, hookQueueSize),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

// Record implements orchestrator.Recorder.
func (d *hookDispatcher) Record(e model.TaskEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	select {
	case d.events <- e:
	default:
		if d.dropped.Add(1) == 1 {
			d.logger.Warn("task hook queue full, dropping events", "capacity", hookQueueSize)
		}
	}
}

func (d *hookDispatcher) run() {
	defer close(d.done)
	for e := range d.events {
		d.deliver(e)
	}
}

func (d *hookDispatcher) deliver(e model.TaskEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), hookTimeout)
	defer cancel()

	event := toPublicEvent(e)
	for _, h := range d.hooks {
		if err := h.OnTaskEvent(ctx, event); err != nil {
			d.logger.Warn("task hook OnTaskEvent failed", "error", err, "task_id", e.TaskID, "kind", e.Kind)
		}
	}

	if e.Kind != model.TaskEventCompleted || d.lookup == nil {
		return
	}
	t, ok := d.lookup(e.TaskID)
	if !ok {
		return
	}
	task := toPublicTask(t)
	for _, h := range d.hooks {
		if err := h.OnTaskCompleted(ctx, task); err != nil {
			d.logger.Warn("task hook OnTaskCompleted failed", "error", err, "task_id", e.TaskID)
		}
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (d *hookDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.events)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("task hooks: drain: %w", ctx.Err())
	}
}
