package orchestrator

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/ashita-ai/moltbot/internal/model"
	"github.com/ashita-ai/moltbot/internal/telemetry"
)

// scopeName names both the tracer and the meter of this package.
const scopeName = "moltbot/orchestrator"

// createInstruments builds the synchronous instruments. Failures fall back to
// no-op instruments so metrics can never break task creation.
func (o *Orchestrator) createInstruments() {
	meter := telemetry.Meter(scopeName)

	counter, err := meter.Int64Counter("moltbot.tasks.created",
		metric.WithDescription("Tasks created, by type"))
	if err != nil {
		o.logger.Warn("orchestrator: create counter failed", "error", err)
		counter = noop.Int64Counter{}
	}
	o.createdCounter = counter

	hist, err := meter.Float64Histogram("moltbot.task.duration",
		metric.WithDescription("Time from task creation to completion"),
		metric.WithUnit("ms"))
	if err != nil {
		o.logger.Warn("orchestrator: create histogram failed", "error", err)
		hist = noop.Float64Histogram{}
	}
	o.durationHist = hist
}

// registerMetrics registers an observable gauge of tasks per status.
// Called from Start() after the global meter provider has been initialized.
func (o *Orchestrator) registerMetrics() {
	meter := telemetry.Meter(scopeName)

	_, err := meter.Int64ObservableGauge("moltbot.tasks",
		metric.WithDescription("Current number of tasks by status"),
		metric.WithInt64Callback(func(_ context.Context, obs metric.Int64Observer) error {
			s := o.Stats()
			counts := map[model.TaskStatus]int{
				model.TaskStatusPending:   s.Pending,
				model.TaskStatusRunning:   s.Running,
				model.TaskStatusCompleted: s.Completed,
				model.TaskStatusFailed:    s.Failed,
			}
			for status, n := range counts {
				obs.Observe(int64(n), metric.WithAttributes(attribute.String("status", string(status))))
			}
			return nil
		}),
	)
	if err != nil {
		o.logger.Warn("orchestrator: register gauge failed", "error", err)
	}
}
