package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// TriggerRegistration holds the schema definition for the TriggerRegistration
// entity: the durable record behind one armed trigger (cron, webhook, push,
// or poll). Documents the shape persisted by internal/database.TriggerStore,
// which reads and writes through pgx/v5 directly rather than a generated
// ent client (see DESIGN.md's persistence decision).
type TriggerRegistration struct {
	ent.Schema
}

// Fields of the TriggerRegistration.
func (TriggerRegistration) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("trigger_id").
			Unique().
			Immutable(),
		field.String("flow_id").
			Immutable(),
		field.String("user_id").
			Immutable(),
		field.Enum("trigger_type").
			Values("cron", "webhook", "push", "poll").
			Immutable(),
		field.JSON("args", map[string]interface{}{}).
			Optional().
			Comment("Type-specific construction payload, owned by the handler that created the registration"),
		field.Enum("state").
			Values("new", "armed", "disarmed", "failed").
			Default("new"),
		field.JSON("detail", map[string]interface{}{}).
			Optional().
			Comment("Continuation state: resume tokens, scheduler job ids, expiry"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Edges of the TriggerRegistration.
func (TriggerRegistration) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("webhook_events", WebhookEvent.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the TriggerRegistration.
func (TriggerRegistration) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("state"),
		index.Fields("flow_id"),
	}
}
