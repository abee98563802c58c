package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the publisher needs, satisfied by
// internal/database's pool wrapper and faked in tests with a simple
// in-memory stub.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Publisher publishes events for WebSocket delivery. Persistent events are
// stored in the events table then broadcast via NOTIFY, held until COMMIT
// since pg_notify is transactional. Transient events (step.progress) are
// broadcast via NOTIFY only.
type Publisher struct {
	db DB
}

// NewPublisher creates a new Publisher.
func NewPublisher(db DB) *Publisher {
	return &Publisher{db: db}
}

// PublishTriggerFired persists and broadcasts a trigger.fired event to both
// the trigger-specific channel and the global triggers channel.
func (p *Publisher) PublishTriggerFired(ctx context.Context, payload TriggerFiredPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal TriggerFiredPayload: %w", err)
	}
	if err := p.persistAndNotify(ctx, TriggerChannel(payload.TriggerID), body); err != nil {
		return err
	}
	return p.notifyOnly(ctx, GlobalTriggersChannel, body)
}

// PublishExecutionStarted persists and broadcasts an execution.started event.
func (p *Publisher) PublishExecutionStarted(ctx context.Context, payload ExecutionStartedPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal ExecutionStartedPayload: %w", err)
	}
	return p.persistAndNotify(ctx, FlowChannel(payload.FlowID), body)
}

// PublishExecutionStep persists and broadcasts an execution.step event.
func (p *Publisher) PublishExecutionStep(ctx context.Context, payload ExecutionStepPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal ExecutionStepPayload: %w", err)
	}
	return p.persistAndNotify(ctx, FlowChannel(payload.FlowID), body)
}

// PublishExecutionCompleted persists and broadcasts the terminal
// execution.completed event of a flow run.
func (p *Publisher) PublishExecutionCompleted(ctx context.Context, payload ExecutionCompletedPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal ExecutionCompletedPayload: %w", err)
	}
	return p.persistAndNotify(ctx, FlowChannel(payload.FlowID), body)
}

// PublishAgentIteration persists and broadcasts an agent.iteration event.
// Published on the agent's owning flow channel when driven by a workflow
// step, or on a dedicated agent:{agent_id} channel otherwise.
func (p *Publisher) PublishAgentIteration(ctx context.Context, channel string, payload AgentIterationPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal AgentIterationPayload: %w", err)
	}
	return p.persistAndNotify(ctx, channel, body)
}

// PublishStepProgress broadcasts a step.progress transient event (no DB
// persistence) — high frequency tool-call progress within one step.
func (p *Publisher) PublishStepProgress(ctx context.Context, payload StepProgressPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal StepProgressPayload: %w", err)
	}
	return p.notifyOnly(ctx, FlowChannel(payload.ExecutionID), body)
}

// persistAndNotify persists a pre-marshaled event to the events table and
// broadcasts via NOTIFY in a single transaction.
func (p *Publisher) persistAndNotify(ctx context.Context, channel string, payloadJSON []byte) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var eventID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO events (channel, payload, created_at) VALUES ($1, $2, $3) RETURNING id`,
		channel, payloadJSON, time.Now(),
	).Scan(&eventID)
	if err != nil {
		return fmt.Errorf("persist event: %w", err)
	}

	notifyPayload, err := injectDBEventIDAndTruncate(payloadJSON, eventID)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, "SELECT pg_notify($1, $2)", channel, notifyPayload); err != nil {
		return fmt.Errorf("pg_notify: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit event transaction: %w", err)
	}
	return nil
}

// notifyOnly broadcasts a pre-marshaled event via NOTIFY without persisting to DB.
func (p *Publisher) notifyOnly(ctx context.Context, channel string, payloadJSON []byte) error {
	notifyPayload, err := truncateIfNeeded(string(payloadJSON))
	if err != nil {
		return err
	}
	if _, err := p.db.Exec(ctx, "SELECT pg_notify($1, $2)", channel, notifyPayload); err != nil {
		return fmt.Errorf("pg_notify: %w", err)
	}
	return nil
}

// injectDBEventIDAndTruncate adds db_event_id to the JSON payload for NOTIFY
// delivery and applies truncation if the result exceeds PostgreSQL's limit.
func injectDBEventIDAndTruncate(payloadJSON []byte, dbEventID int64) (string, error) {
	var m map[string]any
	if err := json.Unmarshal(payloadJSON, &m); err != nil {
		return "", fmt.Errorf("unmarshal payload for db_event_id injection: %w", err)
	}
	m["db_event_id"] = dbEventID

	enriched, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal enriched NOTIFY payload: %w", err)
	}
	return truncateIfNeeded(string(enriched))
}

// truncateIfNeeded returns the payload as-is if it fits PostgreSQL's
// 8000-byte NOTIFY limit, otherwise a minimal truncation envelope.
func truncateIfNeeded(payloadStr string) (string, error) {
	if len(payloadStr) <= 7900 {
		return payloadStr, nil
	}
	return buildTruncatedPayload([]byte(payloadStr))
}

// buildTruncatedPayload extracts only the routing fields a client needs to
// fetch the complete event from the database.
func buildTruncatedPayload(payloadBytes []byte) (string, error) {
	var routing struct {
		Type      string `json:"type"`
		EventID   string `json:"event_id"`
		FlowID    string `json:"flow_id"`
		DBEventID *int64 `json:"db_event_id,omitempty"`
	}
	if err := json.Unmarshal(payloadBytes, &routing); err != nil {
		return "", fmt.Errorf("extract routing fields for truncation: %w", err)
	}

	truncated := map[string]any{
		"type":      routing.Type,
		"event_id":  routing.EventID,
		"flow_id":   routing.FlowID,
		"truncated": true,
	}
	if routing.DBEventID != nil {
		truncated["db_event_id"] = *routing.DBEventID
	}

	out, err := json.Marshal(truncated)
	if err != nil {
		return "", fmt.Errorf("marshal truncated payload: %w", err)
	}
	return string(out), nil
}
