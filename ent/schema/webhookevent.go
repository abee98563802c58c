package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// WebhookEvent holds the schema definition for the WebhookEvent entity: one
// received delivery against a webhook trigger, kept for idempotent-dedupe
// and replay. Grounded on the handler's "dedupe on (trigger_id,
// upstream_event_id)" requirement in internal/trigger/webhook.
type WebhookEvent struct {
	ent.Schema
}

// Fields of the WebhookEvent.
func (WebhookEvent) Fields() []ent.Field {
	return []ent.Field{
		field.String("trigger_id").
			Immutable(),
		field.String("upstream_event_id").
			Optional().
			Nillable().
			Comment("Provider delivery id, when the source supplies one"),
		field.JSON("payload", map[string]interface{}{}),
		field.Time("received_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the WebhookEvent.
func (WebhookEvent) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("trigger", TriggerRegistration.Type).
			Ref("webhook_events").
			Field("trigger_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the WebhookEvent.
func (WebhookEvent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("trigger_id", "upstream_event_id").
			Unique().
			Annotations(entsql.IndexWhere("upstream_event_id IS NOT NULL")),
	}
}
