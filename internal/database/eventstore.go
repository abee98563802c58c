package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/orbitflow/orbitflow/internal/events"
)

// EventStore queries the events table for catchup replay, satisfying
// internal/events.CatchupQuerier. internal/events.Publisher writes rows
// through the pool directly (it only needs Begin/Exec, which *pgxpool.Pool
// already implements — see pool_test.go), so there is no separate writer
// type here.
type EventStore struct {
	pool *Pool
}

// NewEventStore wraps pool as an internal/events.CatchupQuerier.
func NewEventStore(pool *Pool) *EventStore {
	return &EventStore{pool: pool}
}

var _ events.CatchupQuerier = (*EventStore)(nil)

// GetCatchupEvents returns up to limit events recorded on channel after
// sinceID, ordered oldest-first, for replay to a newly (re)subscribed
// WebSocket connection.
func (s *EventStore) GetCatchupEvents(ctx context.Context, channel string, sinceID, limit int) ([]events.CatchupEvent, error) {
	const q = `
SELECT id, payload FROM events
WHERE channel = $1 AND id > $2
ORDER BY id ASC
LIMIT $3`

	rows, err := s.pool.Query(ctx, q, channel, sinceID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying catchup events for %s: %w", channel, err)
	}
	defer rows.Close()

	var out []events.CatchupEvent
	for rows.Next() {
		var ev events.CatchupEvent
		var payload []byte
		if err := rows.Scan(&ev.ID, &payload); err != nil {
			return nil, fmt.Errorf("scanning catchup event: %w", err)
		}
		if err := json.Unmarshal(payload, &ev.Payload); err != nil {
			return nil, fmt.Errorf("unmarshaling catchup event payload: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
