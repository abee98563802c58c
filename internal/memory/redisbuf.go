package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/orbitflow/orbitflow/internal/agent"
)

// RedisBuffer is a short-term memory store with the same window-eviction
// semantics as Buffer, backed by a Redis list so it survives process
// restarts. Uses LPUSH + LTRIM for the window and EXPIRE for the TTL, per
// the handler's "identical semantics, durable" contract.
type RedisBuffer struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBuffer creates a RedisBuffer. ttl of zero disables expiry.
func NewRedisBuffer(client *redis.Client, ttl time.Duration) *RedisBuffer {
	return &RedisBuffer{client: client, ttl: ttl}
}

func (r *RedisBuffer) key(agentID string) string {
	return "agent_memory:short_term:" + agentID
}

// Load returns the current buffer contents for agentID, oldest first.
func (r *RedisBuffer) Load(ctx context.Context, agentID string) ([]Item, error) {
	raw, err := r.client.LRange(ctx, r.key(agentID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("loading redis buffer for %s: %w", agentID, err)
	}
	items := make([]Item, 0, len(raw))
	// LPUSH inserts at the head, so the list is newest-first; reverse to
	// return oldest-first like Buffer.Load.
	for i := len(raw) - 1; i >= 0; i-- {
		var item Item
		if err := json.Unmarshal([]byte(raw[i]), &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// AppendWithWindow pushes item onto the head of the list, trims to window
// entries, and refreshes the TTL if one is configured.
func (r *RedisBuffer) AppendWithWindow(ctx context.Context, agentID string, item Item, window int) error {
	if window <= 0 {
		window = DefaultWindow
	}
	if item.Timestamp.IsZero() {
		item.Timestamp = time.Now()
	}
	encoded, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encoding buffer item: %w", err)
	}

	key := r.key(agentID)
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, key, encoded)
	pipe.LTrim(ctx, key, 0, int64(window-1))
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("appending to redis buffer for %s: %w", agentID, err)
	}
	return nil
}

// Append satisfies internal/agent.ShortTermStore using DefaultWindow and a
// background context, since that interface predates per-call contexts.
func (r *RedisBuffer) Append(agentID string, entry agent.ShortTermEntry) error {
	return r.AppendWithWindow(context.Background(), agentID, Item{Tool: entry.Tool, Params: entry.Params, Result: entry.Result}, DefaultWindow)
}

// Clear removes the buffer list for agentID.
func (r *RedisBuffer) Clear(agentID string) error {
	if err := r.client.Del(context.Background(), r.key(agentID)).Err(); err != nil {
		return fmt.Errorf("clearing redis buffer for %s: %w", agentID, err)
	}
	return nil
}
