// Package workflow implements the Workflow Execution Helper:
// execute_complete_workflow(flow_id, user_id, trigger_data, inputs) →
// ExecutionResult. Grounded on codeready-toolchain-tarsy's
// pkg/queue/executor.go Execute() chain loop (resolve config, reject
// empty stage lists, sequential fail-fast stage loop, per-stage structured
// logging) adapted from tarsy's fixed alert-chain shape to a flow's
// generic ordered Step{node, action, params} list.
package workflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/orbitflow/orbitflow/internal/dispatch"
	"github.com/orbitflow/orbitflow/internal/handler"
)

// Step is one entry in a flow's ordered step list.
type Step struct {
	Node     string
	Action   string
	Params   handler.Params
	CredsRef string
	// OnError, when set to "continue", lets the helper proceed to the
	// next step after this one errors instead of short-circuiting the
	// whole flow.
	OnError string
	// OutputKey, when non-empty, is the key under which this step's
	// output is threaded into the next step's params.
	OutputKey string
}

// Flow is the opaque-to-the-core flow record; only this package
// interprets Steps.
type Flow struct {
	FlowID   uuid.UUID
	OwnerID  string
	IsActive bool
	Steps    []Step
}

// Store loads a Flow by id.
type Store interface {
	Load(flowID uuid.UUID) (*Flow, error)
}

// CredsResolver resolves a step's CredsRef to the credential map passed
// through to the dispatcher.
type CredsResolver interface {
	Resolve(credsRef string) (handler.Creds, error)
}

// Reason names why an ExecutionResult isn't a plain success.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonFlowNotFound Reason = "flow_not_found"
	ReasonInactive     Reason = "inactive"
	ReasonForbidden    Reason = "forbidden"
	ReasonNoSteps      Reason = "no_steps"
)

// Status is the outcome of execute_complete_workflow.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// StepOutcome records one step's dispatch outcome within a run.
type StepOutcome struct {
	Node   string
	Action string
	Result *handler.Result
	Err    error
}

// ExecutionResult is execute_complete_workflow's return value.
type ExecutionResult struct {
	Status      Status
	Reason      Reason
	ExecutionID string
	Steps       []StepOutcome
	Err         error
}

// Helper runs flows to completion.
type Helper struct {
	store      Store
	dispatcher *dispatch.Dispatcher
	creds      CredsResolver
	logger     *slog.Logger
}

// New creates a workflow Helper.
func New(store Store, dispatcher *dispatch.Dispatcher, creds CredsResolver, logger *slog.Logger) *Helper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Helper{store: store, dispatcher: dispatcher, creds: creds, logger: logger}
}

// ExecuteCompleteWorkflow loads a flow, checks it's active and owned by
// userID, then runs its steps in order through the dispatcher, threading
// each step's declared output into the next step's params. A step error
// short-circuits the run unless the step declares on_error: continue.
// triggerSource and upstreamEventID (both optional) seed DeriveExecutionID
// for idempotent downstream consumption.
func (h *Helper) ExecuteCompleteWorkflow(ctx context.Context, flowID uuid.UUID, userID string, triggerData map[string]any, inputs handler.Params, triggerSource, upstreamEventID string) ExecutionResult {
	logger := h.logger.With("flow_id", flowID, "user_id", userID)

	flow, err := h.store.Load(flowID)
	if err != nil {
		logger.Error("flow not found", "error", err)
		return ExecutionResult{Status: StatusError, Reason: ReasonFlowNotFound, Err: err}
	}

	if !flow.IsActive {
		logger.Info("flow inactive, skipping")
		return ExecutionResult{Status: StatusSkipped, Reason: ReasonInactive}
	}

	if flow.OwnerID != userID {
		logger.Warn("flow owner mismatch, forbidden")
		return ExecutionResult{Status: StatusError, Reason: ReasonForbidden}
	}

	if len(flow.Steps) == 0 {
		return ExecutionResult{Status: StatusError, Reason: ReasonNoSteps}
	}

	env := handler.Params{"trigger_data": triggerData}
	for k, v := range inputs {
		env[k] = v
	}

	executionID := DeriveExecutionID(flowID, triggerSource, upstreamEventID)
	result := ExecutionResult{Status: StatusSuccess, ExecutionID: executionID}

	var lastOutputKey string
	var lastOutput any
	for _, step := range flow.Steps {
		params := mergeParams(step.Params, env)
		if lastOutputKey != "" {
			params[lastOutputKey] = lastOutput
		}

		creds := handler.Creds{}
		if step.CredsRef != "" && h.creds != nil {
			resolved, err := h.creds.Resolve(step.CredsRef)
			if err != nil {
				logger.Error("credential resolution failed", "node", step.Node, "action", step.Action, "error", err)
				result.Steps = append(result.Steps, StepOutcome{Node: step.Node, Action: step.Action, Err: err})
				if step.OnError != "continue" {
					result.Status = StatusError
					result.Err = err
					return result
				}
				continue
			}
			creds = resolved
		}

		name := step.Node
		if step.Action != "" {
			name = step.Node + "." + step.Action
		}

		outcome := h.dispatcher.Dispatch(ctx, name, params, creds, dispatch.Options{})
		so := StepOutcome{Node: step.Node, Action: step.Action}

		switch outcome.Kind {
		case dispatch.OutcomeResult:
			so.Result = outcome.Result
			if outcome.Result.Status == handler.StatusError {
				so.Err = fmt.Errorf("%s", outcome.Result.Error)
			}
		default:
			so.Err = outcome.Err
		}
		result.Steps = append(result.Steps, so)

		if so.Err != nil {
			logger.Error("step failed", "node", step.Node, "action", step.Action, "error", so.Err)
			if step.OnError != "continue" {
				result.Status = StatusError
				result.Err = so.Err
				return result
			}
			continue
		}

		if step.OutputKey != "" && so.Result != nil {
			lastOutputKey = step.OutputKey
			lastOutput = so.Result.Output
		}
	}

	return result
}

func mergeParams(stepParams handler.Params, env handler.Params) handler.Params {
	merged := make(handler.Params, len(stepParams)+len(env))
	for k, v := range env {
		merged[k] = v
	}
	for k, v := range stepParams {
		merged[k] = v
	}
	return merged
}

// DeriveExecutionID produces a stable idempotency key from
// (flow_id, trigger_source, upstream_event_id) when the upstream signals
// an event id (GitHub delivery id, Drive change id, webhook token +
// timestamp). Downstream steps may consult it to skip repeat work. Absent
// an upstream event id, each call gets a fresh id since there's no stable
// source identity to deduplicate against.
func DeriveExecutionID(flowID uuid.UUID, triggerSource, upstreamEventID string) string {
	if upstreamEventID == "" {
		return uuid.New().String()
	}
	sum := sha256.Sum256([]byte(flowID.String() + "|" + triggerSource + "|" + upstreamEventID))
	return hex.EncodeToString(sum[:16])
}
