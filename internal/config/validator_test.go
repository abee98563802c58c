package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitflow/orbitflow/internal/agent"
)

func baseValidConfig() *Config {
	return &Config{
		Server:   ServerConfig{Addr: ":8080"},
		Database: DatabaseConfig{DSN: "postgres://localhost/orbitflow"},
		Defaults: Defaults{Temperature: 0.2, MaxIterations: 20},
		AgentRegistry: map[string]agent.Config{
			"summarizer": {AgentID: "summarizer", DefaultPrompt: "summarize", Model: "gpt-4o-mini"},
		},
		LLMProviderRegistry: map[string]LLMProviderConfig{
			"gpt-": {GRPCAddr: "localhost:50051", InputRate: 0.005, OutputRate: 0.015},
		},
	}
}

func TestValidator_ValidConfigPasses(t *testing.T) {
	require.NoError(t, NewValidator(baseValidConfig()).ValidateAll())
}

func TestValidator_MissingDatabaseDSNFails(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Database.DSN = ""

	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingRequiredField)
}

func TestValidator_AgentMissingPromptFails(t *testing.T) {
	cfg := baseValidConfig()
	cfg.AgentRegistry["summarizer"] = agent.Config{AgentID: "summarizer", Model: "gpt-4o-mini"}

	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "default_prompt", verr.Field)
}

func TestValidator_AgentModelWithoutMatchingProviderFails(t *testing.T) {
	cfg := baseValidConfig()
	cfg.AgentRegistry["summarizer"] = agent.Config{AgentID: "summarizer", DefaultPrompt: "summarize", Model: "claude-3"}

	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no llm_providers entry matches")
}

func TestValidator_AgentWithoutModelDefersToSystemDefault(t *testing.T) {
	cfg := baseValidConfig()
	cfg.AgentRegistry["summarizer"] = agent.Config{AgentID: "summarizer", DefaultPrompt: "summarize"}

	require.NoError(t, NewValidator(cfg).ValidateAll())
}

func TestValidator_ProviderMissingGRPCAddrFails(t *testing.T) {
	cfg := baseValidConfig()
	cfg.LLMProviderRegistry["gpt-"] = LLMProviderConfig{InputRate: 0.005, OutputRate: 0.015}

	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingRequiredField)
}
