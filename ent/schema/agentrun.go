package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// AgentRun holds the schema definition for the AgentRun entity: an audit
// record of one execute_agent call, written after internal/agent.Executor.Run
// terminates. Documents the shape persisted by the agent_runs table, which
// internal/database.AgentRunStore writes (the executor's long-term memory
// side effect goes through internal/memory's episodic store, not this
// table).
type AgentRun struct {
	ent.Schema
}

// Fields of the AgentRun.
func (AgentRun) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("execution_id").
			Unique().
			Immutable(),
		field.String("agent_id").
			Immutable(),
		field.Enum("status").
			Values("success", "error", "cancelled"),
		field.Text("prompt").
			Immutable(),
		field.Text("response").
			Optional().
			Nillable(),
		field.Int("iterations").
			Default(0),
		field.Int("input_tokens").
			Default(0),
		field.Int("output_tokens").
			Default(0),
		field.Float("cost_usd").
			Default(0),
		field.String("model").
			Optional().
			Nillable(),
		field.String("error").
			Optional().
			Nillable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Indexes of the AgentRun.
func (AgentRun) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("agent_id", "created_at"),
	}
}
