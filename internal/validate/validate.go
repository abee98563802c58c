// Package validate implements the Parameter Validator & Smart Reconciler:
// two-phase validation (static spec derivation, cached once per handler;
// runtime validation, run before every dispatch) plus the
// smart-reconciliation algorithm that classifies a caller-discovered
// parameter map into discovered/missing/invalid and emits a minimal
// JSON-Schema form for the remainder.
package validate

import (
	"fmt"

	"github.com/orbitflow/orbitflow/internal/handler"
)

// Result is produced by Validate for every dispatch.
type Result struct {
	Valid           bool
	MissingRequired []string
	InvalidTypes    []TypeMismatch
	Unexpected      []string
}

// TypeMismatch records one parameter whose provided value didn't match its
// declared type.
type TypeMismatch struct {
	Name     string
	Expected handler.ParamType
	Actual   string
}

func (m TypeMismatch) String() string {
	return fmt.Sprintf("%s: expected %s, got %s", m.Name, m.Expected, m.Actual)
}

// ValidationError is returned when required parameters are missing or
// provided values don't type-check. It is non-retryable at the dispatcher
// level.
type ValidationError struct {
	Result Result
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("parameter validation failed: missing=%v invalid=%v unexpected=%v",
		e.Result.MissingRequired, e.Result.InvalidTypes, e.Result.Unexpected)
}

// Validate runs Phase II (runtime) validation of params against specs.
// strict controls whether unrecognized keys are reported; the dispatcher
// defaults to strict=false so extra keys pass through.
func Validate(specs []handler.ParameterSpec, params handler.Params, strict bool) Result {
	result := Result{Valid: true}

	bySpec := make(map[string]handler.ParameterSpec, len(specs))
	for _, s := range specs {
		bySpec[s.Name] = s
	}

	for _, s := range specs {
		v, present := params[s.Name]
		if !present {
			if s.Required {
				result.MissingRequired = append(result.MissingRequired, s.Name)
				result.Valid = false
			}
			continue
		}
		if !typeMatches(s.Type, v) {
			result.InvalidTypes = append(result.InvalidTypes, TypeMismatch{
				Name:     s.Name,
				Expected: s.Type,
				Actual:   goTypeName(v),
			})
			result.Valid = false
		}
	}

	if strict {
		for k := range params {
			if _, known := bySpec[k]; !known {
				result.Unexpected = append(result.Unexpected, k)
				result.Valid = false
			}
		}
	}

	return result
}

// typeMatches checks type compatibility: primitive kinds by identity,
// sequence/mapping containers by outer kind only, "any" always accepts.
// Callers treat a parameter as absent only when its key is missing, so a
// present-but-nil value reaches this point and matches only TypeAny.
func typeMatches(want handler.ParamType, v any) bool {
	if want == handler.TypeAny {
		return true
	}
	if v == nil {
		return false
	}
	switch want {
	case handler.TypeString:
		_, ok := v.(string)
		return ok
	case handler.TypeBoolean:
		_, ok := v.(bool)
		return ok
	case handler.TypeInteger:
		switch v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		case float64:
			f := v.(float64)
			return f == float64(int64(f)) // JSON numbers decode as float64
		}
		return false
	case handler.TypeNumber:
		switch v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
			return true
		}
		return false
	case handler.TypeSequence:
		switch v.(type) {
		case []any, []string, []int, []float64:
			return true
		}
		return false
	case handler.TypeMapping:
		switch v.(type) {
		case map[string]any:
			return true
		}
		return false
	default:
		return true
	}
}

func goTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "nil"
	case string:
		return "string"
	case bool:
		return "boolean"
	case map[string]any:
		return "mapping"
	case []any:
		return "sequence"
	default:
		return fmt.Sprintf("%T", v)
	}
}
