// Package taskerr implements the cross-cutting error taxonomy: sentinel
// and typed errors distinguishing NotFound, ValidationError,
// RequiresUserInput, AuthError, RateLimited, Transient, and Fatal, in the
// same sentinel-plus-typed-wrapper shape as codeready-toolchain-tarsy's
// pkg/services/errors.go.
package taskerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is comparisons.
var (
	ErrNotFound  = errors.New("not found")
	ErrAuth      = errors.New("authentication or authorization failed")
	ErrRateLimited = errors.New("rate limited")
	ErrTransient = errors.New("transient failure")
	ErrFatal     = errors.New("unclassified fatal error")
)

// Kind names the taxonomy member an error belongs to; API callers receive
// structured error envelopes tagged with one of these.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindValidation        Kind = "validation_error"
	KindRequiresUserInput Kind = "requires_user_input"
	KindAuth              Kind = "auth_error"
	KindRateLimited       Kind = "rate_limited"
	KindTransient         Kind = "transient"
	KindFatal             Kind = "fatal"
)

// NotFoundError reports a missing handler, flow, model, or trigger
// registration.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// AuthError reports missing or invalid credentials. Never retried.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string  { return "auth error: " + e.Reason }
func (e *AuthError) Unwrap() error { return ErrAuth }

// RateLimitedError reports upstream throttling. Retryable with back-off.
type RateLimitedError struct {
	RetryAfterSeconds int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %ds", e.RetryAfterSeconds)
}
func (e *RateLimitedError) Unwrap() error { return ErrRateLimited }

// TransientError reports a network/5xx/timeout failure. Same retry policy
// as RateLimitedError.
type TransientError struct {
	Cause error
}

func (e *TransientError) Error() string  { return fmt.Sprintf("transient failure: %v", e.Cause) }
func (e *TransientError) Unwrap() error { return ErrTransient }

// FatalError wraps an unclassified error with the context needed for
// logging: request id, handler name, sanitized params.
type FatalError struct {
	RequestID string
	Handler   string
	Cause     error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal error in handler %q (request %s): %v", e.Handler, e.RequestID, e.Cause)
}
func (e *FatalError) Unwrap() error { return ErrFatal }

// KindOf classifies an error into its taxonomy Kind for envelope tagging.
// RequiresUserInput is intentionally not reachable here — it is a distinct
// result variant (see internal/dispatch), never an error value: it isn't a
// fault, and must stay distinguishable from ValidationError.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAuth):
		return KindAuth
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrTransient):
		return KindTransient
	default:
		var ve *ValidationError
		if errors.As(err, &ve) {
			return KindValidation
		}
		return KindFatal
	}
}

// ValidationError reports a parameter mismatch. Defined here (rather than
// only in internal/validate) so the taxonomy's KindOf can classify it
// without an import cycle; internal/validate.ValidationError embeds this
// shape's semantics via its own Result-carrying type.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
