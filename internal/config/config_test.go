package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitflow/orbitflow/internal/agent"
)

func TestConfig_GetAgent(t *testing.T) {
	cfg := baseValidConfig()

	a, err := cfg.GetAgent("summarizer")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", a.Model)

	_, err = cfg.GetAgent("missing")
	assert.ErrorIs(t, err, ErrAgentNotFound)
}

func TestConfig_LoadSatisfiesAgentConfigStore(t *testing.T) {
	cfg := baseValidConfig()

	var store agent.ConfigStore = cfg
	a, err := store.Load("summarizer")
	require.NoError(t, err)
	assert.Equal(t, "summarizer", a.AgentID)
}

func TestConfig_GetLLMProvider(t *testing.T) {
	cfg := baseValidConfig()

	p, err := cfg.GetLLMProvider("gpt-")
	require.NoError(t, err)
	assert.Equal(t, "localhost:50051", p.GRPCAddr)

	_, err = cfg.GetLLMProvider("missing-")
	assert.ErrorIs(t, err, ErrLLMProviderNotFound)
}
