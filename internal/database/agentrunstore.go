package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/orbitflow/orbitflow/internal/agent"
)

// AgentRunStore records one audit row per completed internal/agent.Executor.Run
// call into the agent_runs table. It is separate from internal/memory's
// episodic store: episodic memory feeds the agent's own next-run context,
// while agent_runs is an operator-facing audit trail queried by the API
// surface (list/inspect past runs), matching the ent schema documented in
// ent/schema/agentrun.go.
type AgentRunStore struct {
	pool *Pool
}

// NewAgentRunStore wraps pool for agent-run auditing.
func NewAgentRunStore(pool *Pool) *AgentRunStore {
	return &AgentRunStore{pool: pool}
}

// Record inserts one audit row for a finished agent run. agentID and
// executionID identify the agent and the specific run; result is the
// Executor's terminal Result.
func (s *AgentRunStore) Record(ctx context.Context, agentID string, executionID uuid.UUID, prompt string, result agent.Result) error {
	var errMsg *string
	if result.Err != nil {
		msg := result.Err.Error()
		errMsg = &msg
	}

	const q = `
INSERT INTO agent_runs (execution_id, agent_id, status, prompt, response, iterations, input_tokens, output_tokens, cost_usd, model, error)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (execution_id) DO NOTHING`

	_, err := s.pool.Exec(ctx, q,
		executionID, agentID, result.Status, prompt, nullIfEmpty(result.Final), result.Iterations,
		result.Usage.InputTokens, result.Usage.OutputTokens, result.Cost, nullIfEmpty(result.Model), errMsg)
	if err != nil {
		return fmt.Errorf("recording agent run %s: %w", executionID, err)
	}
	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
