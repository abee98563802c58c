package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// EpisodicMemoryItem holds the schema definition for the EpisodicMemoryItem
// entity: one importance-scored episode as computed by
// internal/memory's episodic store. internal/memory keeps this store
// in-process (a mutex-guarded map, matching the handler's own in-memory episodic
// cache) rather than against Postgres, so this schema documents the
// persisted shape a durable backing store would use without currently
// being read or written by internal/database.
type EpisodicMemoryItem struct {
	ent.Schema
}

// Fields of the EpisodicMemoryItem.
func (EpisodicMemoryItem) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("agent_id").
			Immutable(),
		field.Text("content"),
		field.Time("timestamp").
			Default(time.Now).
			Immutable(),
		field.Float("importance").
			Comment("Keyword-weighted base importance score in [0, 1]; time decay is applied when read, not stored"),
		field.Time("last_accessed").
			Default(time.Now),
		field.Int("access_count").
			Default(0),
	}
}

// Indexes of the EpisodicMemoryItem.
func (EpisodicMemoryItem) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("agent_id", "importance"),
		index.Fields("agent_id", "timestamp"),
	}
}
