package agent

// DefaultMaxIterations bounds a run when neither the agent config nor the
// request overrides it.
const DefaultMaxIterations = 20

// DefaultTemperature is used when neither the agent config nor the request
// overrides it.
const DefaultTemperature = 0.2

// Config is the fixed-per-run agent definition. Mutations create a new
// version rather than modifying the live object — this package only ever
// reads one.
type Config struct {
	AgentID       string            `yaml:"agent_id"`
	DefaultPrompt string            `yaml:"default_prompt"`
	Tools         []string          `yaml:"tools,omitempty"`
	MemorySchema  map[string]string `yaml:"memory_schema,omitempty"`
	Model         string            `yaml:"model,omitempty"`
	Temperature   float64           `yaml:"temperature,omitempty" validate:"omitempty,min=0,max=2"`
	MaxIterations int               `yaml:"max_iterations,omitempty" validate:"omitempty,min=1"`
}

// ConfigStore loads an AgentConfig by id.
type ConfigStore interface {
	Load(agentID string) (*Config, error)
}

// Effective is the resolved-for-this-run configuration: the agent config's
// values, overridden by whatever the caller supplied.
type Effective struct {
	Model         string
	Temperature   float64
	MaxIterations int
}

// ResolveEffectiveConfig applies the override hierarchy config → request,
// the same last-non-zero-wins pattern as the teacher's resolveMaxIterations/
// resolveLLMBackend.
func ResolveEffectiveConfig(cfg *Config, temperature *float64, maxIterations *int) Effective {
	eff := Effective{
		Model:         cfg.Model,
		Temperature:   cfg.Temperature,
		MaxIterations: cfg.MaxIterations,
	}
	if eff.Temperature == 0 {
		eff.Temperature = DefaultTemperature
	}
	if eff.MaxIterations == 0 {
		eff.MaxIterations = DefaultMaxIterations
	}
	if temperature != nil {
		eff.Temperature = *temperature
	}
	if maxIterations != nil {
		eff.MaxIterations = *maxIterations
	}
	return eff
}
