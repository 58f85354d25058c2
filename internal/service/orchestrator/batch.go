package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/ashita-ai/moltbot/internal/model"
)

// CreateBatch fans items out into one batch_calculation task each, preserving
// input order. Task ids are prefixed "<batchId>_<index>". Creation cannot fail,
// so there is no partial-batch rollback.
func (o *Orchestrator) CreateBatch(ctx context.Context, items []float64, operation string) model.Batch {
	batchID := fmt.Sprintf("batch_%d", time.Now().UnixMilli())

	tasks := make([]model.Task, len(items))
	for i, item := range items {
		tasks[i] = o.CreateTask(ctx, model.TaskTypeBatchCalculation, map[string]any{
			"item":      item,
			"operation": operation,
		}, fmt.Sprintf("%s_%d", batchID, i))
	}

	o.logger.Info("orchestrator: batch created", "batch_id", batchID, "size", len(items), "operation", operation)
	return model.Batch{BatchID: batchID, Tasks: tasks}
}
