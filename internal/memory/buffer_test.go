package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orbitflow/orbitflow/internal/agent"
)

func TestBuffer_AppendEvictsOldestBeyondWindow(t *testing.T) {
	b := NewBuffer()

	for i := 0; i < 5; i++ {
		assert.NoError(t, b.AppendWithWindow("agent-1", Item{Tool: "t", Params: map[string]any{"i": i}}, 3))
	}

	items := b.Load("agent-1")
	assert.Len(t, items, 3)
	assert.Equal(t, 2, items[0].Params["i"])
	assert.Equal(t, 4, items[2].Params["i"])
}

func TestBuffer_ClearRemovesAllEntries(t *testing.T) {
	b := NewBuffer()
	assert.NoError(t, b.AppendWithWindow("agent-1", Item{Tool: "t"}, 6))

	assert.NoError(t, b.Clear("agent-1"))
	assert.Empty(t, b.Load("agent-1"))
}

func TestBuffer_SatisfiesAgentShortTermStore(t *testing.T) {
	b := NewBuffer()

	var store agent.ShortTermStore = b
	assert.NoError(t, store.Append("agent-1", agent.ShortTermEntry{Tool: "http_get"}))
	assert.NoError(t, store.Clear("agent-1"))
}
