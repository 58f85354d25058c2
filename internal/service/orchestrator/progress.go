package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ashita-ai/moltbot/internal/model"
	"github.com/ashita-ai/moltbot/internal/telemetry"
)

var tracer = telemetry.Tracer(scopeName)

// startProgress is the progress reported as soon as a task starts running.
const startProgress = 10

// checkpoints are visited in order, each after one step interval.
var checkpoints = []int{25, 50, 75, 90, 100}

// run drives one task from pending to completed. It is the only writer of the
// task after CreateTask returns.
func (o *Orchestrator) run(ctx context.Context, id string, link trace.Link) {
	ctx, span := tracer.Start(ctx, "orchestrator.progress",
		trace.WithNewRoot(),
		trace.WithLinks(link),
		trace.WithAttributes(attribute.String("moltbot.task_id", id)),
	)
	defer span.End()

	o.mutate(id, func(t *model.Task, now time.Time) []model.TaskEvent {
		t.Status = model.TaskStatusRunning
		t.StartedAt = &now
		t.Progress = startProgress
		span.SetAttributes(attribute.String("moltbot.task_type", string(t.Type)))
		return []model.TaskEvent{
			newEvent(t, model.TaskEventStarted, now),
			appendMessage(t, now, agentName(t.Params, model.AgentSystem), model.AgentOrchestrator,
				fmt.Sprintf("Starting %s task.", t.Type)),
		}
	})

	timer := time.NewTimer(o.stepInterval)
	defer timer.Stop()

	for _, progress := range checkpoints {
		select {
		case <-ctx.Done():
			o.logger.Warn("orchestrator: progression abandoned", "task_id", id, "error", ctx.Err())
			span.SetAttributes(attribute.Bool("moltbot.abandoned", true))
			return
		case <-timer.C:
		}

		o.mutate(id, func(t *model.Task, now time.Time) []model.TaskEvent {
			t.Progress = progress
			events := []model.TaskEvent{newEvent(t, model.TaskEventProgress, now)}
			if e, ok := checkpointMessage(t, now, progress); ok {
				events = append(events, e)
			}
			return events
		})
		o.logger.Debug("orchestrator: checkpoint", "task_id", id, "progress", progress)
		timer.Reset(o.stepInterval)
	}

	var (
		taskType model.TaskType
		elapsed  time.Duration
	)
	o.mutate(id, func(t *model.Task, now time.Time) []model.TaskEvent {
		t.Status = model.TaskStatusCompleted
		t.CompletedAt = &now
		t.Result = buildResult(t, now)
		taskType = t.Type
		elapsed = now.Sub(t.CreatedAt)
		return []model.TaskEvent{
			newEvent(t, model.TaskEventCompleted, now),
			appendMessage(t, now, agentName(t.Params, model.AgentSystem), model.AgentOrchestrator,
				"Task finished. Handing back results."),
		}
	})

	o.durationHist.Record(ctx, float64(elapsed.Milliseconds()),
		metric.WithAttributes(attribute.String("type", string(taskType))))
	o.logger.Info("orchestrator: task completed", "task_id", id, "type", taskType,
		"duration_ms", elapsed.Milliseconds())
}

// checkpointMessage returns the log entry for a checkpoint, if it has one.
// Must be called with the task write lock held.
func checkpointMessage(t *model.Task, now time.Time, progress int) (model.TaskEvent, bool) {
	agent := agentName(t.Params, model.AgentUnnamed)
	switch progress {
	case 25:
		return appendMessage(t, now, agent, model.AgentOrchestrator,
			"Starting analysis and outlining approach."), true
	case 50:
		if peer, ok := firstPeer(t.Params, agent); ok {
			return appendMessage(t, now, agent, peer,
				"Sharing interim findings; let me know if you spot gaps."), true
		}
		return appendMessage(t, now, agent, model.AgentOrchestrator,
			"Halfway done; validating assumptions."), true
	case 75:
		return appendMessage(t, now, agent, model.AgentOrchestrator,
			"Refining output and consolidating notes."), true
	case 90:
		return appendMessage(t, now, agent, model.AgentOrchestrator,
			"Final checks complete; preparing summary."), true
	}
	return model.TaskEvent{}, false
}

// agentName returns params["agent"] rendered as a string, or fallback when the
// key is absent or nil. An explicit empty string is kept.
func agentName(params map[string]any, fallback string) string {
	v, ok := params["agent"]
	if !ok || v == nil {
		return fallback
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// firstPeer returns the first non-empty entry of params["peers"] that differs
// from agent, in list order.
func firstPeer(params map[string]any, agent string) (string, bool) {
	var peers []string
	switch v := params["peers"].(type) {
	case []string:
		peers = v
	case []any:
		for _, p := range v {
			switch pv := p.(type) {
			case nil:
			case string:
				peers = append(peers, pv)
			case bool:
				if pv {
					peers = append(peers, "true")
				}
			default:
				peers = append(peers, fmt.Sprint(pv))
			}
		}
	}
	for _, p := range peers {
		if p != "" && p != agent {
			return p, true
		}
	}
	return "", false
}
