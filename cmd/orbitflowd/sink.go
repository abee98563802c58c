package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/orbitflow/orbitflow/internal/events"
	"github.com/orbitflow/orbitflow/internal/trigger"
	"github.com/orbitflow/orbitflow/internal/workflow"
)

// flowSink bridges every trigger subpackage's trigger.Sink dependency and
// the webhook package's Synchronous dependency to a single
// workflow.Helper instance, publishing the trigger.fired/execution.*
// events each firing produces along the way. internal/trigger deliberately
// has no dependency on internal/workflow or internal/events (see
// trigger.Sink's doc comment); this type is the one place those three
// packages meet, so it lives at the process-wiring layer rather than in
// any of them.
type flowSink struct {
	helper    *workflow.Helper
	publisher *events.Publisher
	logger    *slog.Logger
}

func newFlowSink(helper *workflow.Helper, publisher *events.Publisher, logger *slog.Logger) *flowSink {
	return &flowSink{helper: helper, publisher: publisher, logger: logger}
}

// Fire satisfies trigger.Sink: every cron tick, webhook delivery (immediate
// mode), push notification, and poll tick routes here. The workflow run
// itself executes synchronously on the caller's goroutine, matching the
// at-most-one-in-flight-per-firing shape cron.Scheduler.fire and
// poll.Loop.tick already assume.
func (f *flowSink) Fire(event trigger.Event) error {
	ctx := context.Background()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	// trigger.Event carries no trigger_id of its own (see internal/trigger's
	// Event doc); the upstream event id is the closest per-firing identity
	// when the source provides one, falling back to the flow id so the
	// per-trigger channel is still scoped to something stable.
	triggerChannelKey := event.UpstreamEventID
	if triggerChannelKey == "" {
		triggerChannelKey = event.FlowID.String()
	}

	triggerEventID := uuid.New().String()
	if err := f.publisher.PublishTriggerFired(ctx, events.TriggerFiredPayload{
		Type:      events.EventTypeTriggerFired,
		EventID:   triggerEventID,
		TriggerID: triggerChannelKey,
		Source:    string(event.TriggerType),
		Matched:   true,
		Timestamp: now,
	}); err != nil {
		f.logger.Error("publishing trigger.fired failed", "flow_id", event.FlowID, "error", err)
	}

	result := f.run(ctx, event)
	if result.Status == workflow.StatusError {
		return result.Err
	}
	return nil
}

// RunSync satisfies webhook.Synchronous: RespondDelayed webhooks call this
// directly (bypassing Fire) so the HTTP response can carry the flow's own
// outcome instead of a bare "accepted".
func (f *flowSink) RunSync(event trigger.Event) (map[string]any, error) {
	result := f.run(context.Background(), event)
	out := map[string]any{
		"status":       result.Status,
		"reason":       result.Reason,
		"execution_id": result.ExecutionID,
	}
	if result.Err != nil {
		return out, result.Err
	}
	return out, nil
}

func (f *flowSink) run(ctx context.Context, event trigger.Event) workflow.ExecutionResult {
	triggerData := event.Payload
	if triggerData == nil {
		triggerData = map[string]any{}
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	startedEventID := uuid.New().String()
	if err := f.publisher.PublishExecutionStarted(ctx, events.ExecutionStartedPayload{
		Type:      events.EventTypeExecutionStarted,
		EventID:   startedEventID,
		FlowID:    event.FlowID.String(),
		Timestamp: now,
	}); err != nil {
		f.logger.Error("publishing execution.started failed", "flow_id", event.FlowID, "error", err)
	}

	result := f.helper.ExecuteCompleteWorkflow(ctx, event.FlowID, event.UserID, triggerData, nil, string(event.TriggerType), event.UpstreamEventID)

	var reason string
	if result.Reason != workflow.ReasonNone {
		reason = string(result.Reason)
	}
	completedEventID := uuid.New().String()
	if err := f.publisher.PublishExecutionCompleted(ctx, events.ExecutionCompletedPayload{
		Type:        events.EventTypeExecutionComplete,
		EventID:     completedEventID,
		FlowID:      event.FlowID.String(),
		ExecutionID: result.ExecutionID,
		Status:      string(result.Status),
		Reason:      reason,
		Timestamp:   time.Now().UTC().Format(time.RFC3339Nano),
	}); err != nil {
		f.logger.Error("publishing execution.completed failed", "flow_id", event.FlowID, "error", err)
	}

	if result.Err != nil {
		f.logger.Error("flow execution failed", "flow_id", event.FlowID, "execution_id", result.ExecutionID, "error", result.Err)
	}
	return result
}
