package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validOrbitflowYAML = `
server:
  addr: ":9090"
database:
  dsn: "${DATABASE_DSN}"
defaults:
  max_iterations: 10
agents:
  summarizer:
    default_prompt: "Summarize the input."
    model: "gpt-4o-mini"
    tools: ["http_get"]
`

const validLLMProvidersYAML = `
llm_providers:
  gpt-:
    grpc_addr: "localhost:50051"
    input_rate_per_1k: 0.005
    output_rate_per_1k: 0.015
`

func writeTestConfigDir(t *testing.T, orbitflowYAML, llmProvidersYAML string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orbitflow.yaml"), []byte(orbitflowYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "llm-providers.yaml"), []byte(llmProvidersYAML), 0o644))
	return dir
}

func TestInitialize_LoadsAgentsAndProviders(t *testing.T) {
	dir := writeTestConfigDir(t, validOrbitflowYAML, validLLMProvidersYAML)
	t.Setenv("DATABASE_DSN", "postgres://localhost/orbitflow")

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Contains(t, cfg.AgentRegistry, "summarizer")
	assert.Equal(t, "summarizer", cfg.AgentRegistry["summarizer"].AgentID)
	assert.Equal(t, 10, cfg.Defaults.MaxIterations)
	assert.Contains(t, cfg.LLMProviderRegistry, "gpt-")

	stats := cfg.Stats()
	assert.Equal(t, 1, stats.Agents)
	assert.Equal(t, 1, stats.LLMProviders)
}

func TestInitialize_ConfigNotFound(t *testing.T) {
	_, err := Initialize(context.Background(), "/nonexistent/directory")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestInitialize_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orbitflow.yaml"), []byte("{{{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "llm-providers.yaml"), []byte(""), 0o644))

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidYAML)
}

func TestInitialize_EnvExpansion(t *testing.T) {
	t.Setenv("ORBITFLOW_DB_DSN", "postgres://envtest/orbitflow")
	orbitflowYAML := `
database:
  dsn: "${ORBITFLOW_DB_DSN}"
agents:
  summarizer:
    default_prompt: "Summarize the input."
`
	dir := writeTestConfigDir(t, orbitflowYAML, validLLMProvidersYAML)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "postgres://envtest/orbitflow", cfg.Database.DSN)
}

func TestInitialize_MissingRequiredFieldFailsValidation(t *testing.T) {
	orbitflowYAML := `
agents:
  summarizer:
    default_prompt: "Summarize the input."
`
	dir := writeTestConfigDir(t, orbitflowYAML, validLLMProvidersYAML)

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database validation failed")
}
