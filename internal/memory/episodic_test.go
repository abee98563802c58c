package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/orbitflow/orbitflow/internal/agent"
)

func TestApplyDecay_CappedAtOne(t *testing.T) {
	now := time.Now()
	ep := Episode{Importance: 1.0, Timestamp: now, LastAccessed: now}

	current := applyDecay(ep, now)

	assert.LessOrEqual(t, current, 1.0)
}

func TestApplyDecay_OlderEpisodesDecayMore(t *testing.T) {
	now := time.Now()
	fresh := Episode{Importance: 0.8, Timestamp: now.Add(-1 * time.Hour), LastAccessed: now.Add(-2 * time.Hour)}
	old := Episode{Importance: 0.8, Timestamp: now.Add(-200 * time.Hour), LastAccessed: now.Add(-200 * time.Hour)}

	assert.Greater(t, applyDecay(fresh, now), applyDecay(old, now))
}

func TestApplyDecay_RecentAccessBoosts(t *testing.T) {
	now := time.Now()
	base := Episode{Importance: 0.5, Timestamp: now.Add(-48 * time.Hour), LastAccessed: now.Add(-48 * time.Hour)}
	recentlyAccessed := base
	recentlyAccessed.LastAccessed = now.Add(-10 * time.Minute)

	assert.Greater(t, applyDecay(recentlyAccessed, now), applyDecay(base, now))
}

func TestEpisodic_ConsolidateRemovesLowImportanceOldEpisodes(t *testing.T) {
	e := NewEpisodic()
	e.episodes["agent-1"] = []Episode{
		{ID: "stale", Importance: 0.1, Timestamp: time.Now().Add(-72 * time.Hour), LastAccessed: time.Now().Add(-72 * time.Hour)},
		{ID: "fresh", Importance: 0.1, Timestamp: time.Now().Add(-1 * time.Hour), LastAccessed: time.Now().Add(-1 * time.Hour)},
		{ID: "important", Importance: 0.9, Timestamp: time.Now().Add(-72 * time.Hour), LastAccessed: time.Now().Add(-72 * time.Hour)},
	}

	removed, remaining := e.Consolidate("agent-1")

	assert.Equal(t, 1, removed)
	assert.Equal(t, 2, remaining)
	ids := map[string]bool{}
	for _, ep := range e.episodes["agent-1"] {
		ids[ep.ID] = true
	}
	assert.True(t, ids["fresh"])
	assert.True(t, ids["important"])
	assert.False(t, ids["stale"])
}

func TestEpisodic_RetrieveRanksByCurrentImportance(t *testing.T) {
	e := NewEpisodic()
	low := e.Store("agent-1", "a minor note", "neutral", false, false, false)
	_ = low
	high := e.Store("agent-1", "a critical decision was made", "strong_positive", true, false, true)

	results := e.Retrieve("agent-1", "", 168, 10)

	assert.Equal(t, high.ID, results[0].ID)
}

func TestEpisodic_PersistSatisfiesAgentLongTermStore(t *testing.T) {
	e := NewEpisodic()

	var store agent.LongTermStore = e
	assert.NoError(t, store.Persist("agent-1", agent.LongTermItem{Prompt: "p", Response: "r"}))

	results := e.Retrieve("agent-1", "", 168, 10)
	assert.Len(t, results, 1)
	assert.Contains(t, results[0].Content, "p")
	assert.Contains(t, results[0].Content, "r")
}
