package config

import "time"

// Defaults holds system-wide fallback values applied when a specific agent
// or server setting isn't overridden in YAML.
type Defaults struct {
	LLMProviderPrefix string        `yaml:"llm_provider_prefix,omitempty"`
	Temperature       float64       `yaml:"temperature,omitempty"`
	MaxIterations     int           `yaml:"max_iterations,omitempty" validate:"omitempty,min=1"`
	PollInterval      time.Duration `yaml:"poll_interval,omitempty"`
}

// DefaultServerAddr is used when no server.addr is configured.
const DefaultServerAddr = ":8080"

// DefaultDashboardURL is used when no server.dashboard_url is configured.
const DefaultDashboardURL = "http://localhost:5173"

// DefaultBufferWindow is used when no redis.buffer_window is configured.
const DefaultBufferWindow = 6

// DefaultRetention returns the built-in retention policy applied when the
// top-level retention YAML block is absent.
func DefaultRetention() RetentionConfig {
	return RetentionConfig{
		ExecutionRetentionDays: 90,
		EventTTL:               30 * 24 * time.Hour,
		CleanupInterval:        1 * time.Hour,
	}
}
