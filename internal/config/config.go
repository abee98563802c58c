// Package config loads, merges, and validates orbitflowd's YAML
// configuration: system settings, persistence DSNs, the LLM provider
// catalog, and per-agent defaults. Grounded on codeready-toolchain-tarsy's
// pkg/config package (config.go/loader.go/envexpand.go/validator.go/
// errors.go/defaults.go), generalized from tarsy's agent-chain/MCP-server
// vocabulary to orbitflow's trigger/flow/agent vocabulary.
package config

import (
	"time"

	"github.com/orbitflow/orbitflow/internal/agent"
)

// Config is the umbrella configuration object returned by Initialize and
// threaded through cmd/orbitflowd/main.go.
type Config struct {
	configDir string

	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig

	Defaults Defaults

	// AgentRegistry holds one agent.Config per configured agent_id.
	AgentRegistry map[string]agent.Config

	// LLMProviderRegistry holds one provider entry per model-name prefix,
	// feeding agent.ClientResolver and agent.Catalog at startup.
	LLMProviderRegistry map[string]LLMProviderConfig

	Retention RetentionConfig
}

// ServerConfig holds the Gin HTTP surface's bind address and WebSocket
// origin allow-list.
type ServerConfig struct {
	Addr             string   `yaml:"addr"`
	DashboardURL     string   `yaml:"dashboard_url"`
	AllowedWSOrigins []string `yaml:"allowed_ws_origins"`
}

// DatabaseConfig holds the pgx/v5 + golang-migrate connection settings.
type DatabaseConfig struct {
	DSN               string `yaml:"dsn"`
	MigrationsPath    string `yaml:"migrations_path"`
	MaxConns          int32  `yaml:"max_conns"`
	ConnectTimeoutSec int    `yaml:"connect_timeout_seconds"`
}

// RedisConfig holds the go-redis/v9 client settings backing
// internal/memory/redisbuf.
type RedisConfig struct {
	Addr           string        `yaml:"addr"`
	DB             int           `yaml:"db"`
	BufferWindow   int           `yaml:"buffer_window"`
	BufferTTL      time.Duration `yaml:"buffer_ttl"`
}

// LLMProviderConfig describes one LLM backend reachable via the gRPC
// sidecar bridge (internal/agent.GRPCLLMClient), keyed by the model-name
// prefix it serves (e.g. "gpt-", "claude-", "gemini-").
type LLMProviderConfig struct {
	GRPCAddr    string  `yaml:"grpc_addr"`
	InputRate   float64 `yaml:"input_rate_per_1k"`
	OutputRate  float64 `yaml:"output_rate_per_1k"`
}

// RetentionConfig holds the retention settings for executed-flow and
// agent-run history. They are loaded and defaulted here; no component in
// this repository reads them to prune history.
type RetentionConfig struct {
	ExecutionRetentionDays int           `yaml:"execution_retention_days"`
	EventTTL               time.Duration `yaml:"event_ttl"`
	CleanupInterval        time.Duration `yaml:"cleanup_interval"`
}

// ConfigDir returns the configuration directory path used to load this Config.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// GetAgent retrieves an agent configuration by ID.
func (c *Config) GetAgent(agentID string) (*agent.Config, error) {
	cfg, ok := c.AgentRegistry[agentID]
	if !ok {
		return nil, ErrAgentNotFound
	}
	return &cfg, nil
}

// Load satisfies internal/agent.ConfigStore, so *Config can be passed
// directly to agent.New without an adapter.
func (c *Config) Load(agentID string) (*agent.Config, error) {
	return c.GetAgent(agentID)
}

// GetLLMProvider retrieves the provider entry registered for a model-name prefix.
func (c *Config) GetLLMProvider(prefix string) (*LLMProviderConfig, error) {
	cfg, ok := c.LLMProviderRegistry[prefix]
	if !ok {
		return nil, ErrLLMProviderNotFound
	}
	return &cfg, nil
}

// Stats summarizes loaded configuration for startup logging.
type Stats struct {
	Agents       int
	LLMProviders int
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() Stats {
	return Stats{
		Agents:       len(c.AgentRegistry),
		LLMProviders: len(c.LLMProviderRegistry),
	}
}
