package events

// TriggerFiredPayload is the payload for trigger.fired events. Published
// whenever a webhook, poll tick, cron tick, or push message evaluates,
// whether or not it resulted in a flow execution.
type TriggerFiredPayload struct {
	Type      string `json:"type"` // always EventTypeTriggerFired
	EventID   string `json:"event_id"`
	TriggerID string `json:"trigger_id"`
	Source    string `json:"source"` // "webhook", "poll", "cron", "push"
	Matched   bool   `json:"matched"`
	Timestamp string `json:"timestamp"` // RFC3339Nano
}

// ExecutionStartedPayload is the payload for execution.started events.
// Published when the Workflow Execution Helper begins running a flow.
type ExecutionStartedPayload struct {
	Type        string `json:"type"` // always EventTypeExecutionStarted
	EventID     string `json:"event_id"`
	FlowID      string `json:"flow_id"`
	ExecutionID string `json:"execution_id"`
	Timestamp   string `json:"timestamp"`
}

// ExecutionStepPayload is the payload for execution.step events. Published
// once per step after it completes (success or failure).
type ExecutionStepPayload struct {
	Type        string `json:"type"` // always EventTypeExecutionStep
	EventID     string `json:"event_id"`
	FlowID      string `json:"flow_id"`
	ExecutionID string `json:"execution_id"`
	Node        string `json:"node"`
	Action      string `json:"action"`
	Status      string `json:"status"` // "success", "error", "skipped"
	Timestamp   string `json:"timestamp"`
}

// ExecutionCompletedPayload is the payload for execution.completed events,
// the terminal event of a flow run.
type ExecutionCompletedPayload struct {
	Type        string `json:"type"` // always EventTypeExecutionComplete
	EventID     string `json:"event_id"`
	FlowID      string `json:"flow_id"`
	ExecutionID string `json:"execution_id"`
	Status      string `json:"status"` // "success", "error", "skipped"
	Reason      string `json:"reason,omitempty"`
	Timestamp   string `json:"timestamp"`
}

// AgentIterationPayload is the payload for agent.iteration events, published
// once per reason-act loop iteration so a UI can render agent progress live.
type AgentIterationPayload struct {
	Type      string `json:"type"` // always EventTypeAgentIteration
	EventID   string `json:"event_id"`
	AgentID   string `json:"agent_id"`
	Iteration int    `json:"iteration"`
	ToolCount int    `json:"tool_count"`
	Timestamp string `json:"timestamp"`
}

// StepProgressPayload is the payload for step.progress transient events —
// high frequency, not persisted.
type StepProgressPayload struct {
	Type        string `json:"type"` // always EventTypeStepProgress
	ExecutionID string `json:"execution_id"`
	Node        string `json:"node"`
	Detail      string `json:"detail"`
	Timestamp   string `json:"timestamp"`
}
