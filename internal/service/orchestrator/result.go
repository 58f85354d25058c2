package orchestrator

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/ashita-ai/moltbot/internal/model"
)

// defaultRecords is reported as processed when a data_processing task has no
// records param.
const defaultRecords = 100

// buildResult computes the completed-state result for t's type.
func buildResult(t *model.Task, completedAt time.Time) any {
	switch t.Type {
	case model.TaskTypeDataProcessing:
		processed, ok := t.Params["records"]
		if !ok || processed == nil {
			processed = defaultRecords
		}
		return model.DataProcessingResult{
			Processed:  processed,
			DurationMS: completedAt.Sub(t.CreatedAt).Milliseconds(),
		}

	case model.TaskTypeBatchCalculation:
		input := toNumber(t.Params["item"])
		operation := model.OperationSquare
		if v, ok := t.Params["operation"]; ok && v != nil {
			operation = fmt.Sprint(v)
		}
		return model.BatchCalculationResult{
			Input:     input,
			Operation: operation,
			Output:    Compute(operation, input),
		}

	case model.TaskTypeImageGeneration:
		return model.ImageGenerationResult{
			ImageURL: fmt.Sprintf("https://placeholder.example/image_%s.png", t.ID),
			Format:   "png",
			Size:     "1024x1024",
		}

	case model.TaskTypeReportGeneration:
		return model.ReportGenerationResult{
			ReportURL: fmt.Sprintf("https://placeholder.example/report_%s.pdf", t.ID),
			Pages:     rand.IntN(10) + 5,
		}
	}
	return nil
}

// Compute applies a batch operation to input. Unknown operations square.
// Factorial multiplies 2..input, so every input below 2 (negatives included)
// yields 1.
func Compute(operation string, input float64) float64 {
	switch operation {
	case model.OperationCube:
		return input * input * input
	case model.OperationFactorial:
		out := 1.0
		for i := 2.0; i <= input; i++ {
			out *= i
		}
		return out
	default:
		return input * input
	}
}

// toNumber converts a param value to float64; missing or unparseable values are 0.
func toNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	case bool:
		if n {
			return 1
		}
	}
	return 0
}
