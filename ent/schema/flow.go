package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Flow holds the schema definition for the Flow entity: an ordered list of
// steps run to completion by execute_complete_workflow. Documents the
// shape persisted by internal/database.FlowStore.
type Flow struct {
	ent.Schema
}

// Fields of the Flow.
func (Flow) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("flow_id").
			Unique().
			Immutable(),
		field.String("owner_id"),
		field.Bool("is_active").
			Default(true),
		field.JSON("steps", []map[string]interface{}{}).
			Comment("Ordered [{node, action, params, creds_ref, on_error, output_key}] list, opaque outside internal/workflow"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Indexes of the Flow.
func (Flow) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("owner_id"),
	}
}
