package model_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/moltbot/internal/model"
)

func TestParseTaskType(t *testing.T) {
	for _, tt := range model.TaskTypes {
		got, err := model.ParseTaskType(string(tt))
		require.NoError(t, err)
		assert.Equal(t, tt, got)
	}

	_, err := model.ParseTaskType("video_generation")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "video_generation")
}

func TestParseStatusFilter(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", model.StatusFilterAll, false},
		{"all", model.StatusFilterAll, false},
		{"pending", "pending", false},
		{"running", "running", false},
		{"completed", "completed", false},
		{"failed", "failed", false},
		{"done", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := model.ParseStatusFilter(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTaskStatus_IsTerminal(t *testing.T) {
	assert.False(t, model.TaskStatusPending.IsTerminal())
	assert.False(t, model.TaskStatusRunning.IsTerminal())
	assert.True(t, model.TaskStatusCompleted.IsTerminal())
	assert.True(t, model.TaskStatusFailed.IsTerminal())
}

func TestTaskClone_Independent(t *testing.T) {
	started := time.Now()
	orig := model.Task{
		ID:        "task_1",
		Status:    model.TaskStatusRunning,
		StartedAt: &started,
		Params:    map[string]any{"agent": "writer"},
		Messages:  []model.Message{{From: "a", Content: "hi"}},
	}

	c := orig.Clone()
	c.Params["agent"] = "changed"
	c.Messages[0].Content = "changed"
	*c.StartedAt = started.Add(time.Hour)

	assert.Equal(t, "writer", orig.Params["agent"])
	assert.Equal(t, "hi", orig.Messages[0].Content)
	assert.Equal(t, started, *orig.StartedAt)
}

func TestTaskClone_NilCollections(t *testing.T) {
	c := model.Task{ID: "x"}.Clone()
	assert.NotNil(t, c.Params)
	assert.NotNil(t, c.Messages)
	assert.Nil(t, c.StartedAt)
	assert.Nil(t, c.CompletedAt)
}

func TestBatchTaskIDs(t *testing.T) {
	b := model.Batch{BatchID: "batch_1", Tasks: []model.Task{{ID: "a"}, {ID: "b"}, {ID: "c"}}}
	assert.Equal(t, []string{"a", "b", "c"}, b.TaskIDs())
}

func TestUIResourceName(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"ui://weather/san-francisco-1", "san-francisco-1"},
		{"ui://table/sales/", "sales"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, model.UIResource{URI: tt.uri}.Name(), tt.uri)
	}
}

func TestBatchCalculationResult_NonFiniteAsNull(t *testing.T) {
	data, err := json.Marshal(model.BatchCalculationResult{Input: 200, Operation: model.OperationFactorial, Output: math.Inf(1)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"input":200,"operation":"factorial","output":null}`, string(data))

	data, err = json.Marshal(model.BatchCalculationResult{Input: math.NaN(), Operation: model.OperationSquare, Output: math.NaN()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"input":null,"operation":"square","output":null}`, string(data))

	data, err = json.Marshal(model.BatchCalculationResult{Input: 3, Operation: model.OperationCube, Output: 27})
	require.NoError(t, err)
	assert.JSONEq(t, `{"input":3,"operation":"cube","output":27}`, string(data))
}
