package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// CoreMemorySection holds the schema definition for the CoreMemorySection
// entity: a named, size-bounded block of an agent's persistent self-model
// (persona, user facts, working scratchpad) as managed by
// internal/memory's core store. Like EpisodicMemoryItem, this is carried
// in-process today; the schema documents the durable shape without being
// wired to internal/database yet.
type CoreMemorySection struct {
	ent.Schema
}

// Fields of the CoreMemorySection.
func (CoreMemorySection) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("agent_id").
			Immutable(),
		field.String("section_name").
			Comment("e.g. 'persona', 'user_facts', 'scratchpad'"),
		field.Text("content"),
		field.Int("char_limit").
			Comment("Maximum allowed content length for this section"),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Indexes of the CoreMemorySection.
func (CoreMemorySection) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("agent_id", "section_name").
			Unique(),
	}
}
