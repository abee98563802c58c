package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/orbitflow/orbitflow/internal/workflow"
)

// FlowStore loads workflow.Flow records from the flows table, satisfying
// internal/workflow.Store. Steps are stored as a single JSONB column since
// only internal/workflow interprets their shape.
type FlowStore struct {
	pool *Pool
}

// NewFlowStore wraps pool as an internal/workflow.Store.
func NewFlowStore(pool *Pool) *FlowStore {
	return &FlowStore{pool: pool}
}

var _ workflow.Store = (*FlowStore)(nil)

// stepRow mirrors workflow.Step for JSON (de)serialization; workflow.Step
// itself carries no json tags since it's also used as an in-process value
// object, so the store keeps its own wire shape here.
type stepRow struct {
	Node      string         `json:"node"`
	Action    string         `json:"action"`
	Params    map[string]any `json:"params,omitempty"`
	CredsRef  string         `json:"creds_ref,omitempty"`
	OnError   string         `json:"on_error,omitempty"`
	OutputKey string         `json:"output_key,omitempty"`
}

// Load fetches a single Flow by id.
func (s *FlowStore) Load(flowID uuid.UUID) (*workflow.Flow, error) {
	const q = `SELECT flow_id, owner_id, is_active, steps FROM flows WHERE flow_id = $1`

	var flow workflow.Flow
	var stepsJSON []byte
	err := s.pool.QueryRow(context.Background(), q, flowID).Scan(&flow.FlowID, &flow.OwnerID, &flow.IsActive, &stepsJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("flow %s: %w", flowID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading flow %s: %w", flowID, err)
	}

	var rows []stepRow
	if len(stepsJSON) > 0 {
		if err := json.Unmarshal(stepsJSON, &rows); err != nil {
			return nil, fmt.Errorf("unmarshaling flow steps: %w", err)
		}
	}
	flow.Steps = make([]workflow.Step, len(rows))
	for i, r := range rows {
		flow.Steps[i] = workflow.Step{
			Node:      r.Node,
			Action:    r.Action,
			Params:    r.Params,
			CredsRef:  r.CredsRef,
			OnError:   r.OnError,
			OutputKey: r.OutputKey,
		}
	}
	return &flow, nil
}

// Save upserts a Flow definition, used by the flow-management API surface
// when a user creates or edits a flow.
func (s *FlowStore) Save(flow *workflow.Flow) error {
	rows := make([]stepRow, len(flow.Steps))
	for i, step := range flow.Steps {
		rows[i] = stepRow{
			Node:      step.Node,
			Action:    step.Action,
			Params:    step.Params,
			CredsRef:  step.CredsRef,
			OnError:   step.OnError,
			OutputKey: step.OutputKey,
		}
	}
	stepsJSON, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshaling flow steps: %w", err)
	}

	const q = `
INSERT INTO flows (flow_id, owner_id, is_active, steps, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (flow_id) DO UPDATE SET
	owner_id = EXCLUDED.owner_id,
	is_active = EXCLUDED.is_active,
	steps = EXCLUDED.steps,
	updated_at = now()`

	if _, err := s.pool.Exec(context.Background(), q, flow.FlowID, flow.OwnerID, flow.IsActive, stepsJSON); err != nil {
		return fmt.Errorf("saving flow %s: %w", flow.FlowID, err)
	}
	return nil
}
