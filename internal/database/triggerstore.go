package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/orbitflow/orbitflow/internal/trigger"
)

// TriggerStore persists trigger.Registration records to the
// trigger_registrations table, satisfying internal/trigger.Store. Every
// trigger type (cron, webhook, push, poll) shares this table, keyed by
// trigger_type; internal/scheduler loads the armed registrations from it at
// startup and resumes each by type.
type TriggerStore struct {
	pool *Pool
}

// NewTriggerStore wraps pool as an internal/trigger.Store.
func NewTriggerStore(pool *Pool) *TriggerStore {
	return &TriggerStore{pool: pool}
}

var _ trigger.Store = (*TriggerStore)(nil)

// Save upserts a Registration, matching the handler's
// "load or create, then write back" usage pattern for Detail updates.
func (s *TriggerStore) Save(reg *trigger.Registration) error {
	args, err := json.Marshal(reg.Args)
	if err != nil {
		return fmt.Errorf("marshaling trigger args: %w", err)
	}
	detail, err := json.Marshal(reg.Detail)
	if err != nil {
		return fmt.Errorf("marshaling trigger detail: %w", err)
	}

	const q = `
INSERT INTO trigger_registrations (trigger_id, flow_id, user_id, trigger_type, args, state, detail, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (trigger_id) DO UPDATE SET
	flow_id = EXCLUDED.flow_id,
	user_id = EXCLUDED.user_id,
	trigger_type = EXCLUDED.trigger_type,
	args = EXCLUDED.args,
	state = EXCLUDED.state,
	detail = EXCLUDED.detail,
	updated_at = EXCLUDED.updated_at`

	_, err = s.pool.Exec(context.Background(), q,
		reg.TriggerID, reg.FlowID, reg.UserID, reg.TriggerType, args, reg.State, detail, reg.CreatedAt, reg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving trigger registration %s: %w", reg.TriggerID, err)
	}
	return nil
}

// Get loads a single Registration by id.
func (s *TriggerStore) Get(triggerID uuid.UUID) (*trigger.Registration, error) {
	const q = `
SELECT trigger_id, flow_id, user_id, trigger_type, args, state, detail, created_at, updated_at
FROM trigger_registrations WHERE trigger_id = $1`

	row := s.pool.QueryRow(context.Background(), q, triggerID)
	reg, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("trigger %s: %w", triggerID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading trigger %s: %w", triggerID, err)
	}
	return reg, nil
}

// ListByState returns every Registration currently in state s, used at
// startup by internal/scheduler to resume armed registrations.
func (s *TriggerStore) ListByState(st trigger.State) ([]*trigger.Registration, error) {
	const q = `
SELECT trigger_id, flow_id, user_id, trigger_type, args, state, detail, created_at, updated_at
FROM trigger_registrations WHERE state = $1 ORDER BY created_at`

	rows, err := s.pool.Query(context.Background(), q, st)
	if err != nil {
		return nil, fmt.Errorf("listing triggers in state %s: %w", st, err)
	}
	defer rows.Close()

	var out []*trigger.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning trigger registration: %w", err)
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}

// Delete removes a Registration, used when a trigger is explicitly
// unregistered rather than merely disarmed.
func (s *TriggerStore) Delete(triggerID uuid.UUID) error {
	_, err := s.pool.Exec(context.Background(), `DELETE FROM trigger_registrations WHERE trigger_id = $1`, triggerID)
	if err != nil {
		return fmt.Errorf("deleting trigger %s: %w", triggerID, err)
	}
	return nil
}

// rowScanner is satisfied by both pgx.Row (QueryRow) and pgx.Rows (Query).
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (*trigger.Registration, error) {
	var reg trigger.Registration
	var args, detail []byte
	if err := row.Scan(&reg.TriggerID, &reg.FlowID, &reg.UserID, &reg.TriggerType, &args, &reg.State, &detail, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
		return nil, err
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &reg.Args); err != nil {
			return nil, fmt.Errorf("unmarshaling args: %w", err)
		}
	}
	if len(detail) > 0 {
		if err := json.Unmarshal(detail, &reg.Detail); err != nil {
			return nil, fmt.Errorf("unmarshaling detail: %w", err)
		}
	}
	return &reg, nil
}
