package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/orbitflow/orbitflow/internal/agent"
)

// orbitflowYAML represents the complete orbitflow.yaml file structure.
type orbitflowYAML struct {
	Server    *ServerConfig           `yaml:"server"`
	Database  *DatabaseConfig         `yaml:"database"`
	Redis     *RedisConfig            `yaml:"redis"`
	Defaults  *Defaults               `yaml:"defaults"`
	Agents    map[string]agent.Config `yaml:"agents"`
	Retention *RetentionConfig        `yaml:"retention"`
}

// llmProvidersYAML represents the complete llm-providers.yaml file structure.
type llmProvidersYAML struct {
	LLMProviders map[string]LLMProviderConfig `yaml:"llm_providers"`
}

// Initialize loads, validates, and returns ready-to-use configuration. This
// is the primary entry point, called once from cmd/orbitflowd/main.go.
//
// Steps: load orbitflow.yaml + llm-providers.yaml -> expand env vars ->
// parse YAML -> apply defaults -> validate -> return.
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := NewValidator(cfg).ValidateAll(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("configuration initialized", "agents", stats.Agents, "llm_providers", stats.LLMProviders)
	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	orbCfg, err := loader.loadOrbitflowYAML()
	if err != nil {
		return nil, NewLoadError("orbitflow.yaml", err)
	}

	llmProviders, err := loader.loadLLMProvidersYAML()
	if err != nil {
		return nil, NewLoadError("llm-providers.yaml", err)
	}

	for agentID, cfg := range orbCfg.Agents {
		if cfg.AgentID == "" {
			cfg.AgentID = agentID
			orbCfg.Agents[agentID] = cfg
		}
	}

	server := ServerConfig{Addr: DefaultServerAddr, DashboardURL: DefaultDashboardURL}
	if orbCfg.Server != nil {
		if orbCfg.Server.Addr != "" {
			server.Addr = orbCfg.Server.Addr
		}
		if orbCfg.Server.DashboardURL != "" {
			server.DashboardURL = orbCfg.Server.DashboardURL
		}
		server.AllowedWSOrigins = orbCfg.Server.AllowedWSOrigins
	}

	var db DatabaseConfig
	if orbCfg.Database != nil {
		db = *orbCfg.Database
	}

	redis := RedisConfig{BufferWindow: DefaultBufferWindow}
	if orbCfg.Redis != nil {
		redis = *orbCfg.Redis
		if redis.BufferWindow == 0 {
			redis.BufferWindow = DefaultBufferWindow
		}
	}

	defaults := Defaults{}
	if orbCfg.Defaults != nil {
		defaults = *orbCfg.Defaults
	}
	if defaults.Temperature == 0 {
		defaults.Temperature = agent.DefaultTemperature
	}
	if defaults.MaxIterations == 0 {
		defaults.MaxIterations = agent.DefaultMaxIterations
	}

	retention := DefaultRetention()
	if orbCfg.Retention != nil {
		if orbCfg.Retention.ExecutionRetentionDays > 0 {
			retention.ExecutionRetentionDays = orbCfg.Retention.ExecutionRetentionDays
		}
		if orbCfg.Retention.EventTTL > 0 {
			retention.EventTTL = orbCfg.Retention.EventTTL
		}
		if orbCfg.Retention.CleanupInterval > 0 {
			retention.CleanupInterval = orbCfg.Retention.CleanupInterval
		}
	}

	return &Config{
		configDir:           configDir,
		Server:              server,
		Database:            db,
		Redis:               redis,
		Defaults:            defaults,
		AgentRegistry:       orbCfg.Agents,
		LLMProviderRegistry: llmProviders.LLMProviders,
		Retention:           retention,
	}, nil
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return nil
}

func (l *configLoader) loadOrbitflowYAML() (*orbitflowYAML, error) {
	cfg := &orbitflowYAML{Agents: make(map[string]agent.Config)}
	if err := l.loadYAML("orbitflow.yaml", cfg); err != nil {
		return nil, err
	}
	if cfg.Agents == nil {
		cfg.Agents = make(map[string]agent.Config)
	}
	return cfg, nil
}

func (l *configLoader) loadLLMProvidersYAML() (*llmProvidersYAML, error) {
	cfg := &llmProvidersYAML{LLMProviders: make(map[string]LLMProviderConfig)}
	if err := l.loadYAML("llm-providers.yaml", cfg); err != nil {
		return nil, err
	}
	if cfg.LLMProviders == nil {
		cfg.LLMProviders = make(map[string]LLMProviderConfig)
	}
	return cfg, nil
}
