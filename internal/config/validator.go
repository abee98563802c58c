package config

import (
	"fmt"
	"strings"
)

// Validator validates loaded configuration comprehensively, failing fast at
// the first error found.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll validates in order: server -> database -> agents ->
// LLM providers -> defaults, so dependencies are checked before dependents.
func (v *Validator) ValidateAll() error {
	if err := v.validateServer(); err != nil {
		return fmt.Errorf("server validation failed: %w", err)
	}
	if err := v.validateDatabase(); err != nil {
		return fmt.Errorf("database validation failed: %w", err)
	}
	if err := v.validateAgents(); err != nil {
		return fmt.Errorf("agent validation failed: %w", err)
	}
	if err := v.validateLLMProviders(); err != nil {
		return fmt.Errorf("LLM provider validation failed: %w", err)
	}
	if err := v.validateDefaults(); err != nil {
		return fmt.Errorf("defaults validation failed: %w", err)
	}
	return nil
}

func (v *Validator) validateServer() error {
	if v.cfg.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr", ErrMissingRequiredField)
	}
	return nil
}

func (v *Validator) validateDatabase() error {
	if v.cfg.Database.DSN == "" {
		return fmt.Errorf("%w: database.dsn", ErrMissingRequiredField)
	}
	return nil
}

func (v *Validator) validateAgents() error {
	for id, a := range v.cfg.AgentRegistry {
		if a.DefaultPrompt == "" {
			return NewValidationError("agent", id, "default_prompt", ErrMissingRequiredField)
		}
		if a.Temperature < 0 || a.Temperature > 2 {
			return NewValidationError("agent", id, "temperature", fmt.Errorf("%w: must be within [0, 2], got %v", ErrInvalidValue, a.Temperature))
		}
		if a.MaxIterations < 0 {
			return NewValidationError("agent", id, "max_iterations", fmt.Errorf("%w: must be non-negative, got %d", ErrInvalidValue, a.MaxIterations))
		}
		if !v.hasMatchingProvider(a.Model) {
			return NewValidationError("agent", id, "model", fmt.Errorf("%w: no llm_providers entry matches prefix of %q", ErrInvalidValue, a.Model))
		}
	}
	return nil
}

// hasMatchingProvider reports whether some configured provider prefix is a
// prefix of model, or model is empty (agent defers to the system default).
func (v *Validator) hasMatchingProvider(model string) bool {
	if model == "" {
		return true
	}
	for prefix := range v.cfg.LLMProviderRegistry {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

func (v *Validator) validateLLMProviders() error {
	for prefix, p := range v.cfg.LLMProviderRegistry {
		if p.GRPCAddr == "" {
			return NewValidationError("llm_provider", prefix, "grpc_addr", ErrMissingRequiredField)
		}
		if p.InputRate < 0 || p.OutputRate < 0 {
			return NewValidationError("llm_provider", prefix, "rate", fmt.Errorf("%w: rates must be non-negative", ErrInvalidValue))
		}
	}
	return nil
}

func (v *Validator) validateDefaults() error {
	if v.cfg.Defaults.Temperature < 0 || v.cfg.Defaults.Temperature > 2 {
		return NewValidationError("defaults", "", "temperature", fmt.Errorf("%w: must be within [0, 2]", ErrInvalidValue))
	}
	if v.cfg.Defaults.MaxIterations < 1 {
		return NewValidationError("defaults", "", "max_iterations", fmt.Errorf("%w: must be at least 1", ErrInvalidValue))
	}
	return nil
}
