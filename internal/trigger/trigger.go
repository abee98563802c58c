// Package trigger defines the state machine and shared record types common
// to every trigger type (cron, webhook, push, poll): a registration moves
// through new -> armed -> {disarmed, failed}, and an armed registration
// loops on fire/renew until explicitly disarmed. Individual trigger types
// live in subpackages and implement Arm/Disarm against this shared shape.
package trigger

import (
	"time"

	"github.com/google/uuid"
)

// State is a trigger registration's position in the state machine.
//
//	[new] --arm--> [armed] --fire--> [armed]
//	      |             \--renew--> [armed]
//	      |             \--disarm--> [disarmed]
//	      \--arm-fail--> [failed]
//
// armed is the only state in which events are accepted; disarmed and
// failed discard events. A failed registration requires explicit re-arm.
type State string

const (
	StateNew       State = "new"
	StateArmed     State = "armed"
	StateDisarmed  State = "disarmed"
	StateFailed    State = "failed"
)

// Type names the kind of trigger a Registration belongs to.
type Type string

const (
	TypeCron    Type = "cron"
	TypeWebhook Type = "webhook"
	TypePush    Type = "push"
	TypePoll    Type = "poll"
)

// Registration is the durable record for one armed trigger. Args and
// State are type-specific payloads owned exclusively by the handler that
// created the registration — no other component may write them.
type Registration struct {
	TriggerID   uuid.UUID
	FlowID      uuid.UUID
	UserID      string
	TriggerType Type
	Args        map[string]any
	State       State
	Detail      map[string]any // type-specific continuation state: resume tokens, job ids, expiry
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CanAccept reports whether a registration in this state may process an
// incoming fire/notification.
func (s State) CanAccept() bool {
	return s == StateArmed
}

// Event is what a trigger produces when it fires; the Execution Helper
// consumes exactly one Event per firing.
type Event struct {
	TriggerType   Type
	FlowID        uuid.UUID
	UserID        string
	Payload       map[string]any
	SourceHeaders map[string]string
	// UpstreamEventID, when the source provides one (GitHub delivery id,
	// Drive change id, webhook token+timestamp), seeds the Execution
	// Helper's idempotent execution_id derivation.
	UpstreamEventID string
}

// Sink receives Events fired by any trigger type and routes them to the
// Workflow Execution Helper. Kept as a narrow interface so trigger
// subpackages don't import internal/workflow directly.
type Sink interface {
	Fire(event Event) error
}

// Store persists Registrations across process restarts. Trigger
// subpackages use it to record state transitions and Detail updates;
// internal/scheduler uses it to load armed registrations at startup.
type Store interface {
	Save(reg *Registration) error
	Get(triggerID uuid.UUID) (*Registration, error)
	ListByState(s State) ([]*Registration, error)
	Delete(triggerID uuid.UUID) error
}
