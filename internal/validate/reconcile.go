package validate

import (
	"github.com/orbitflow/orbitflow/internal/handler"
)

// Reconciliation is the smart reconciler's output. If MissingOrInvalid()
// is empty, NeedsUserInput is false and the caller may proceed with
// Discovered directly.
type Reconciliation struct {
	Discovered      handler.Params
	Missing         []string
	Invalid         []string
	NeedsUserInput  bool
	FormSchema      map[string]any
}

// MissingOrInvalid returns the union of Missing and Invalid, the subset a
// form schema is generated for.
func (r Reconciliation) MissingOrInvalid() []string {
	out := make([]string, 0, len(r.Missing)+len(r.Invalid))
	out = append(out, r.Missing...)
	out = append(out, r.Invalid...)
	return out
}

// Reconcile compares a caller-discovered parameter map against a handler's
// cached spec list and classifies every required or present parameter into
// discovered/missing/invalid, generating a minimal form schema for the
// union of missing and invalid.
//
// Testable property: Discovered ∪ Missing ∪ Invalid == required names,
// pairwise disjoint.
func Reconcile(handlerName string, specs []handler.ParameterSpec, discovered handler.Params) Reconciliation {
	rec := Reconciliation{Discovered: handler.Params{}}

	var missingOrInvalid []string
	for _, s := range specs {
		v, present := discovered[s.Name]
		switch {
		case !present && s.Required:
			rec.Missing = append(rec.Missing, s.Name)
			missingOrInvalid = append(missingOrInvalid, s.Name)
		case present && !typeMatches(s.Type, v):
			rec.Invalid = append(rec.Invalid, s.Name)
			missingOrInvalid = append(missingOrInvalid, s.Name)
		case present:
			rec.Discovered[s.Name] = v
		}
	}
	// Carry through any discovered keys that aren't part of the declared
	// spec (e.g. handler-optional passthrough fields) — they're neither
	// missing nor invalid, just unclassified extras.
	for k, v := range discovered {
		if _, already := rec.Discovered[k]; already {
			continue
		}
		if !contains(rec.Missing, k) && !contains(rec.Invalid, k) {
			rec.Discovered[k] = v
		}
	}

	rec.NeedsUserInput = len(missingOrInvalid) > 0
	if rec.NeedsUserInput {
		rec.FormSchema = FormSchema(handlerName, specs, missingOrInvalid)
	}
	return rec
}

// Merge combines discovered parameters with user-supplied overrides.
// Rightmost (user-supplied) wins on key conflict: merged = discovered ⊕
// user_supplied.
func Merge(discovered, userSupplied handler.Params) handler.Params {
	merged := make(handler.Params, len(discovered)+len(userSupplied))
	for k, v := range discovered {
		merged[k] = v
	}
	for k, v := range userSupplied {
		merged[k] = v
	}
	return merged
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
