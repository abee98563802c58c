package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateIfNeeded(t *testing.T) {
	t.Run("passes through normal payload", func(t *testing.T) {
		payload, _ := json.Marshal(ExecutionStepPayload{
			Type:   EventTypeExecutionStep,
			FlowID: "flow-abc",
			Node:   "fetch",
		})

		result, err := truncateIfNeeded(string(payload))
		require.NoError(t, err)
		assert.Contains(t, result, EventTypeExecutionStep)
		assert.Contains(t, result, "flow-abc")
	})

	t.Run("truncates oversized payload", func(t *testing.T) {
		longNode := make([]byte, 8000)
		for i := range longNode {
			longNode[i] = 'a'
		}
		payload, _ := json.Marshal(ExecutionStepPayload{
			Type:    EventTypeExecutionStep,
			EventID: "evt-123",
			FlowID:  "flow-abc",
			Node:    string(longNode),
		})

		result, err := truncateIfNeeded(string(payload))
		require.NoError(t, err)
		assert.Contains(t, result, "truncated")
		assert.Less(t, len(result), 8000)
	})

	t.Run("does not truncate small payload", func(t *testing.T) {
		payload, _ := json.Marshal(StepProgressPayload{
			Type:   EventTypeStepProgress,
			Detail: "hello",
		})

		result, err := truncateIfNeeded(string(payload))
		require.NoError(t, err)
		assert.NotContains(t, result, "truncated")
	})

	t.Run("truncated payload preserves routing fields", func(t *testing.T) {
		longNode := make([]byte, 8000)
		for i := range longNode {
			longNode[i] = 'x'
		}
		payload, _ := json.Marshal(ExecutionStepPayload{
			Type:    EventTypeExecutionStep,
			EventID: "evt-456",
			FlowID:  "flow-789",
			Node:    string(longNode),
		})

		result, err := truncateIfNeeded(string(payload))
		require.NoError(t, err)

		assert.Contains(t, result, EventTypeExecutionStep)
		assert.Contains(t, result, "evt-456")
		assert.Contains(t, result, "flow-789")
		assert.Contains(t, result, `"truncated":true`)
	})
}

func TestInjectDBEventIDAndTruncate(t *testing.T) {
	payload, _ := json.Marshal(ExecutionStepPayload{
		Type:   EventTypeExecutionStep,
		FlowID: "flow-abc",
		Node:   "fetch",
	})

	result, err := injectDBEventIDAndTruncate(payload, 42)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(result), &decoded))
	assert.EqualValues(t, 42, decoded["db_event_id"])
	assert.Equal(t, "flow-abc", decoded["flow_id"])
}
