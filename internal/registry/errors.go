package registry

import "fmt"

// NotFoundError is returned when a handler cannot be resolved in either
// namespace. It carries the keys that were tried and the candidates that
// were available, so callers can produce an actionable error message.
type NotFoundError struct {
	Namespace string   // "tool" or "node"
	Tried     []string // keys attempted, in resolution order
	Available []string // candidate names registered in this namespace
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s handler not found: tried %v (available: %v)", e.Namespace, e.Tried, e.Available)
}

// InstantiationError wraps a panic or error raised by a handler constructor.
type InstantiationError struct {
	Name string
	Err  error
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("handler %q: constructor failed: %v", e.Name, e.Err)
}

func (e *InstantiationError) Unwrap() error { return e.Err }
