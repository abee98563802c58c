// Package events provides real-time event delivery via WebSocket and
// PostgreSQL NOTIFY/LISTEN for cross-pod distribution.
//
// Besides GlobalTriggersChannel (every trigger.fired event, declared below),
// two per-entity channels carry events:
//
//   - TriggerChannel(triggerID) — fires whenever a trigger evaluates,
//     regardless of whether it produced a flow execution. Subscribers use
//     this to watch a single registration (e.g. a webhook endpoint's
//     activity feed).
//   - FlowChannel(flowID) — fires for every step of a flow execution or
//     agent run driven by that flow, so a UI can render a live timeline.
//
// Event payloads are always persisted to the events table before being
// broadcast via NOTIFY, except for the high-frequency step.progress
// events, which are NOTIFY-only and lost on reconnect (a client that
// missed them still sees the terminal execution.completed event).
package events

// Persistent event types (stored in DB + NOTIFY).
const (
	EventTypeTriggerFired      = "trigger.fired"
	EventTypeExecutionStarted  = "execution.started"
	EventTypeExecutionStep     = "execution.step"
	EventTypeExecutionComplete = "execution.completed"
	EventTypeAgentIteration    = "agent.iteration"
)

// Transient event types (NOTIFY only, no DB persistence).
const (
	EventTypeStepProgress = "step.progress"
)

// GlobalTriggersChannel carries trigger.fired events for every registration,
// independent of which specific trigger fired. Dashboards subscribe here for
// a live activity feed across the whole system.
const GlobalTriggersChannel = "triggers"

// TriggerChannel returns the channel name for a single trigger registration's
// events. Format: "trigger:{trigger_id}"
func TriggerChannel(triggerID string) string {
	return "trigger:" + triggerID
}

// FlowChannel returns the channel name for a single flow's execution
// timeline. Format: "flow:{flow_id}"
func FlowChannel(flowID string) string {
	return "flow:" + flowID
}

// ClientMessage is the JSON structure for client -> server WebSocket messages.
type ClientMessage struct {
	Action      string `json:"action"`                  // "subscribe", "unsubscribe", "catchup", "ping"
	Channel     string `json:"channel,omitempty"`       // channel name, e.g. "flow:abc-123"
	LastEventID *int   `json:"last_event_id,omitempty"` // for catchup
}
