// Package dispatch implements the Dispatcher: resolving a "name[.action]"
// across the tool and node namespaces, running parameter validation and
// smart reconciliation ahead of the call, enforcing a per-handler deadline,
// and normalizing every outcome — success, handler error, or a
// RequiresUserInput signal — into a single return shape the caller can
// switch on. Grounded on codeready-toolchain-tarsy's pkg/mcp/executor.go
// Execute() method, generalized from MCP-only tool calls to the full
// tool+node dispatch contract.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/orbitflow/orbitflow/internal/handler"
	"github.com/orbitflow/orbitflow/internal/registry"
	"github.com/orbitflow/orbitflow/internal/validate"
)

// DefaultDeadline is the per-handler invocation deadline when the handler
// doesn't override it.
const DefaultDeadline = 60 * time.Second

// MaxDeadline is the system cap a handler may not exceed.
const MaxDeadline = 300 * time.Second

// Deadliner lets a handler declare a longer-than-default invocation
// deadline, capped at MaxDeadline.
type Deadliner interface {
	Deadline() time.Duration
}

// Options controls per-dispatch behavior.
type Options struct {
	// SmartInputEnabled triggers smart reconciliation before invocation;
	// if input is required, Dispatch returns a RequiresUserInput outcome
	// instead of calling the handler.
	SmartInputEnabled bool
	// Strict enables the validator's "unexpected keys" check.
	Strict bool
}

// Outcome is the tagged-union-style result of a single Dispatch call. The
// caller must check Kind before touching the other fields: RequiresUserInput
// is a distinct result variant, not an exception, and ValidationError/
// NotFound are fatal to the dispatch but not to the caller.
type Outcome struct {
	Kind OutcomeKind

	// Set when Kind == OutcomeResult.
	Result *handler.Result

	// Set when Kind == OutcomeRequiresUserInput.
	HandlerName string
	FormSchema  map[string]any

	// Set when Kind == OutcomeNotFound or OutcomeValidationError.
	Err error
}

// OutcomeKind discriminates Outcome's active field.
type OutcomeKind string

const (
	OutcomeResult            OutcomeKind = "result"
	OutcomeRequiresUserInput OutcomeKind = "requires_user_input"
	OutcomeNotFound          OutcomeKind = "not_found"
	OutcomeValidationError   OutcomeKind = "validation_error"
)

// Dispatcher resolves handler names against a Registry and invokes them.
type Dispatcher struct {
	reg *registry.Registry
}

// New creates a Dispatcher over the given registry.
func New(reg *registry.Registry) *Dispatcher {
	return &Dispatcher{reg: reg}
}

// Dispatch resolves, validates, and invokes a single handler call.
//
// Ordering guarantee: a single call to Dispatch is sequential end-to-end;
// concurrent calls with the same handler name are allowed — handlers are
// stateless or self-guarding.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, params handler.Params, creds handler.Creds, opts Options) Outcome {
	h, specs, err := d.resolve(name)
	if err != nil {
		return Outcome{Kind: OutcomeNotFound, Err: err}
	}

	if opts.SmartInputEnabled {
		rec := validate.Reconcile(name, specs, params)
		if rec.NeedsUserInput {
			return Outcome{
				Kind:        OutcomeRequiresUserInput,
				HandlerName: name,
				FormSchema:  rec.FormSchema,
			}
		}
		params = rec.Discovered
	}

	vr := validate.Validate(specs, params, opts.Strict)
	if !vr.Valid {
		return Outcome{Kind: OutcomeValidationError, Err: &validate.ValidationError{Result: vr}}
	}

	return Outcome{Kind: OutcomeResult, Result: d.invoke(ctx, h, params, creds)}
}

// resolve tries the tool namespace first, then falls back to the node
// namespace's triple-key resolution.
func (d *Dispatcher) resolve(name string) (handler.Handler, []handler.ParameterSpec, error) {
	h, specs, err := d.reg.GetTool(name)
	if err == nil {
		return h, specs, nil
	}
	node, action := registry.SplitName(name)
	return d.reg.GetNode(node, action)
}

// invoke enforces the per-handler deadline and wraps any panic or error
// from Execute as a HandlerResult — never propagated raw across this
// boundary.
func (d *Dispatcher) invoke(ctx context.Context, h handler.Handler, params handler.Params, creds handler.Creds) *handler.Result {
	deadline := DefaultDeadline
	if dl, ok := h.(Deadliner); ok {
		deadline = dl.Deadline()
		if deadline > MaxDeadline {
			deadline = MaxDeadline
		}
	}

	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	start := time.Now()
	result, err := d.safeExecute(ctx, h, params, creds)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		return &handler.Result{
			Status:     handler.StatusError,
			Error:      err.Error(),
			DurationMS: elapsed,
		}
	}
	if result == nil {
		result = &handler.Result{Status: handler.StatusError, Error: "handler returned no result"}
	}
	result.DurationMS = elapsed
	return result
}

// safeExecute recovers from a handler panic and turns it into an error, so
// a single misbehaving handler can never bring down the dispatcher or a
// concurrent sibling dispatch.
func (d *Dispatcher) safeExecute(ctx context.Context, h handler.Handler, params handler.Params, creds handler.Creds) (result *handler.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panicked: %v", p)
		}
	}()
	return h.Execute(ctx, params, creds)
}
