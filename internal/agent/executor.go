package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/orbitflow/orbitflow/internal/dispatch"
	"github.com/orbitflow/orbitflow/internal/handler"
)

// Status is the terminal state of a single agent run.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Result is execute_agent's return value.
type Result struct {
	Status        Status
	Final         string
	Iterations    int
	Usage         Usage
	Cost          float64
	Model         string
	Err           error
}

// Executor runs the bounded reason-act loop. It owns no persistent state
// beyond what it writes into the short-term and long-term memory stores
// injected at construction.
type Executor struct {
	configs   ConfigStore
	resolver  *ClientResolver
	catalog   Catalog
	dispatch  *dispatch.Dispatcher
	shortTerm ShortTermStore
	longTerm  LongTermStore
	logger    *slog.Logger
}

// New creates an Executor.
func New(configs ConfigStore, resolver *ClientResolver, catalog Catalog, dispatcher *dispatch.Dispatcher, shortTerm ShortTermStore, longTerm LongTermStore, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		configs:   configs,
		resolver:  resolver,
		catalog:   catalog,
		dispatch:  dispatcher,
		shortTerm: shortTerm,
		longTerm:  longTerm,
		logger:    logger,
	}
}

// Run executes execute_agent(agent_id, user_prompt, creds, temperature?,
// max_iterations?): load config, resolve effective params, clear short-term
// memory, iterate reason/act up to effective_max_iterations, then persist
// one long-term item. ctx cancellation is checked at the top of every
// iteration; a cancellation mid-flight discards the in-flight LLM response
// and returns status: cancelled with whatever tool results were already
// appended to short-term memory left in place.
func (e *Executor) Run(ctx context.Context, agentID, userPrompt string, creds handler.Creds, temperature *float64, maxIterations *int) Result {
	logger := e.logger.With("agent_id", agentID)

	cfg, err := e.configs.Load(agentID)
	if err != nil {
		return Result{Status: StatusError, Err: fmt.Errorf("loading agent config %s: %w", agentID, err)}
	}
	eff := ResolveEffectiveConfig(cfg, temperature, maxIterations)

	client, ok := e.resolver.Resolve(eff.Model)
	if !ok {
		return Result{Status: StatusError, Model: eff.Model, Err: fmt.Errorf("no LLM client registered for model %q", eff.Model)}
	}

	if err := e.shortTerm.Clear(agentID); err != nil {
		logger.Error("failed to clear short-term memory", "error", err)
	}

	tools := make([]ToolDefinition, 0, len(cfg.Tools))
	for _, name := range cfg.Tools {
		tools = append(tools, ToolDefinition{Name: name})
	}

	messages := []Message{
		{Role: RoleSystem, Content: cfg.DefaultPrompt},
		{Role: RoleUser, Content: userPrompt},
	}

	var cumulative Usage
	var final string
	var iterations int
	status := StatusSuccess

	for iterations = 1; iterations <= eff.MaxIterations; iterations++ {
		if err := ctx.Err(); err != nil {
			status = StatusCancelled
			break
		}

		resp, err := client.Chat(ctx, ChatRequest{Messages: messages, Temperature: eff.Temperature, Tools: tools})
		if err != nil {
			if ctx.Err() != nil {
				status = StatusCancelled
				break
			}
			return Result{
				Status:     StatusError,
				Iterations: iterations,
				Usage:      cumulative,
				Model:      eff.Model,
				Cost:       e.catalog.Cost(eff.Model, cumulative),
				Err:        fmt.Errorf("LLM chat failed: %w", err),
			}
		}

		cumulative.InputTokens += resp.Usage.InputTokens
		cumulative.OutputTokens += resp.Usage.OutputTokens
		logger.Info("llm turn", "iteration", iterations, "input_tokens", resp.Usage.InputTokens, "output_tokens", resp.Usage.OutputTokens)

		if len(resp.ToolSteps) == 0 {
			final = resp.Content
			break
		}

		messages = append(messages, Message{Role: RoleAssistant, Content: resp.Content})
		for _, step := range resp.ToolSteps {
			outcome := e.dispatch.Dispatch(ctx, step.Tool, handler.Params(step.Params), creds, dispatch.Options{SmartInputEnabled: true})
			resultSummary := summarizeOutcome(outcome)

			if err := e.shortTerm.Append(agentID, ShortTermEntry{Tool: step.Tool, Params: step.Params, Result: resultSummary}); err != nil {
				logger.Error("failed to append short-term entry", "tool", step.Tool, "error", err)
			}

			messages = append(messages, Message{
				Role:       RoleTool,
				Content:    toJSON(resultSummary),
				ToolCallID: step.CallID,
			})
		}
	}

	if iterations > eff.MaxIterations && final == "" && status == StatusSuccess {
		final = "max_iterations_exceeded"
		iterations = eff.MaxIterations
	}

	if status != StatusCancelled {
		if err := e.longTerm.Persist(agentID, LongTermItem{Prompt: userPrompt, Response: final}); err != nil {
			logger.Error("failed to persist long-term memory item", "error", err)
		}
	}

	return Result{
		Status:     status,
		Final:      final,
		Iterations: iterations,
		Usage:      cumulative,
		Cost:       e.catalog.Cost(eff.Model, cumulative),
		Model:      eff.Model,
	}
}

// summarizeOutcome turns a dispatch Outcome into the value recorded in
// short-term memory and injected back to the LLM. A tool failure is
// surfaced as content, not an aborting error — the loop continues so the
// LLM can plan around it.
func summarizeOutcome(outcome dispatch.Outcome) map[string]any {
	switch outcome.Kind {
	case dispatch.OutcomeResult:
		return map[string]any{
			"status": string(outcome.Result.Status),
			"output": outcome.Result.Output,
			"error":  outcome.Result.Error,
		}
	case dispatch.OutcomeRequiresUserInput:
		return map[string]any{
			"status":      "requires_user_input",
			"form_schema": outcome.FormSchema,
		}
	case dispatch.OutcomeValidationError:
		return map[string]any{
			"status": "error",
			"error":  outcome.Err.Error(),
		}
	default:
		return map[string]any{
			"status": "error",
			"error":  outcome.Err.Error(),
		}
	}
}

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
