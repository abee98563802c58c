// Package handler defines the leaf contracts shared by every executable
// unit in the system: the Handler interface, its parameter contract, and
// its result shape. Nothing in this package depends on the registry,
// validator, or dispatcher — they depend on it.
package handler

import "context"

// Kind classifies which namespace(s) a handler registers under.
type Kind string

const (
	KindTool  Kind = "tool"
	KindNode  Kind = "node"
	KindBoth  Kind = "both"
)

// Capability is an optional tag advertising a cross-cutting ability.
type Capability string

const (
	CapabilityMemory            Capability = "memory"
	CapabilityTriggerSchedulable Capability = "trigger-schedulable"
)

// ParamType is the declared semantic type of a handler parameter.
type ParamType string

const (
	TypeString   ParamType = "string"
	TypeInteger  ParamType = "integer"
	TypeNumber   ParamType = "number"
	TypeBoolean  ParamType = "boolean"
	TypeSequence ParamType = "sequence"
	TypeMapping  ParamType = "mapping"
	TypeAny      ParamType = "any"
)

// ParameterSpec describes one parameter of a handler's execute contract.
// The full ParameterSpec list is the handler's public contract.
type ParameterSpec struct {
	Name        string
	Type        ParamType
	Required    bool
	Default     any
	Description string
}

// Params is the loosely-typed parameter map every handler receives.
type Params map[string]any

// Creds is the loosely-typed credential map threaded alongside Params.
// Handlers must never log Creds verbatim — see internal/redact.
type Creds map[string]any

// Status is the terminal state of a single handler invocation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Result is the contract every handler must obey.
// A handler never panics or returns a raw Go error across the dispatcher
// boundary; infrastructure failures aside, this is always what comes back.
type Result struct {
	Status     Status
	Output     any
	Error      string
	DurationMS int64
	Metadata   map[string]any
}

// Handler is the atomic executable unit.
// Implementations are stateless across invocations; any state a handler
// needs (buffers, caches) is held by an injected store, not the handler
// itself — handlers are constructed fresh per dispatch.
type Handler interface {
	// Execute runs the handler's logic. It must never panic; any failure
	// is reported via Result{Status: StatusError}. Execute should respect
	// ctx's deadline (the dispatcher enforces a per-handler deadline) and
	// return promptly on cancellation.
	Execute(ctx context.Context, params Params, creds Creds) (*Result, error)
}

// Spec is implemented by handlers that declare their own parameter list
// instead of relying on registration-time introspection (the statically
// typed analogue of runtime signature introspection — see internal/validate
// for the derivation path used when a handler does not implement Spec).
type Spec interface {
	ParameterSpecs() []ParameterSpec
}

// Descriptor is the static metadata a handler constructor declares at
// registration time: which namespace(s) it wants, its kind/capabilities,
// and an optional usage-mode tag (free-form, e.g. "read-only", "trigger").
type Descriptor struct {
	Name         string
	Kind         Kind
	UsageMode    string
	Capabilities []Capability
}

// Constructor builds a fresh Handler instance. Handlers take no
// constructor arguments — credentials flow through Execute instead.
type Constructor func() Handler

// Registration bundles a constructor with its static descriptor, the unit
// the registry accepts when a handler is registered at startup.
type Registration struct {
	Descriptor  Descriptor
	Constructor Constructor
}
