package webhook

import "fmt"

// FormProvider names a recognized form-submission webhook shape.
type FormProvider string

const (
	ProviderTypeform     FormProvider = "typeform"
	ProviderGravityForms FormProvider = "gravity_forms"
	ProviderGoogleForms  FormProvider = "google_forms"
	ProviderGeneric      FormProvider = "generic"
)

// NormalizedForm is the canonical shape every provider's payload is
// converted to before a flow sees it.
type NormalizedForm struct {
	FormData map[string]any
	Metadata map[string]any
}

// NormalizeForm converts a provider's raw webhook payload into the
// canonical {form_data, metadata} pair, grounded on
// original_source/app/handlers/form_webhook_trigger_handler.py's
// validate_form_payload per-provider branches.
func NormalizeForm(provider FormProvider, payload map[string]any) (*NormalizedForm, error) {
	switch provider {
	case ProviderTypeform:
		return normalizeTypeform(payload)
	case ProviderGravityForms:
		return normalizeGravityForms(payload)
	case ProviderGoogleForms:
		return normalizeGoogleForms(payload)
	case ProviderGeneric, "":
		return normalizeGeneric(payload)
	default:
		return nil, fmt.Errorf("unsupported form provider %q", provider)
	}
}

// normalizeTypeform pulls field/value pairs out of form_response.answers,
// dispatching on each answer's declared field type.
func normalizeTypeform(payload map[string]any) (*NormalizedForm, error) {
	formResponse, _ := payload["form_response"].(map[string]any)
	answers, _ := formResponse["answers"].([]any)

	data := map[string]any{}
	for _, a := range answers {
		answer, ok := a.(map[string]any)
		if !ok {
			continue
		}
		field, _ := answer["field"].(map[string]any)
		fieldID, _ := field["id"].(string)
		if fieldID == "" {
			fieldID = "unknown"
		}
		fieldType, _ := field["type"].(string)

		switch fieldType {
		case "email":
			data[fieldID] = answer["email"]
		case "short_text", "long_text":
			data[fieldID] = answer["text"]
		case "number":
			data[fieldID] = answer["number"]
		case "boolean":
			data[fieldID] = answer["boolean"]
		case "choice":
			if choice, ok := answer["choice"].(map[string]any); ok {
				data[fieldID] = choice["label"]
			}
		default:
			data[fieldID] = firstNonNil(answer["text"], answer["email"], answer["number"])
		}
	}

	return &NormalizedForm{
		FormData: data,
		Metadata: map[string]any{
			"provider":     string(ProviderTypeform),
			"form_id":      formResponse["form_id"],
			"submitted_at": formResponse["submitted_at"],
			"total_fields": len(answers),
		},
	}, nil
}

// normalizeGravityForms reads the {form, entry} payload shape Gravity Forms
// posts, prefixing entry's numeric field ids so they survive as valid map
// keys downstream.
func normalizeGravityForms(payload map[string]any) (*NormalizedForm, error) {
	entry, _ := payload["entry"].(map[string]any)
	formInfo, _ := payload["form"].(map[string]any)

	data := map[string]any{}
	for fieldID, value := range entry {
		if isNumeric(fieldID) {
			data["field_"+fieldID] = value
		}
	}

	return &NormalizedForm{
		FormData: data,
		Metadata: map[string]any{
			"provider":     string(ProviderGravityForms),
			"form_id":      formInfo["id"],
			"form_title":   formInfo["title"],
			"date_created": formInfo["date_created"],
			"total_fields": len(data),
		},
	}, nil
}

// normalizeGoogleForms takes the most recent entry in responses[], which
// may carry a batch of submissions.
func normalizeGoogleForms(payload map[string]any) (*NormalizedForm, error) {
	responses, _ := payload["responses"].([]any)
	if len(responses) == 0 {
		return nil, fmt.Errorf("no responses found in google_forms payload")
	}
	latest, _ := responses[len(responses)-1].(map[string]any)
	data, _ := latest["responses"].(map[string]any)

	return &NormalizedForm{
		FormData: data,
		Metadata: map[string]any{
			"provider":        string(ProviderGoogleForms),
			"timestamp":       latest["timestamp"],
			"total_responses": len(responses),
			"total_fields":    len(data),
		},
	}, nil
}

// normalizeGeneric falls back to a flat "data" object, or the raw payload
// itself if no "data" key is present.
func normalizeGeneric(payload map[string]any) (*NormalizedForm, error) {
	data, ok := payload["data"].(map[string]any)
	if !ok {
		data = payload
	}
	return &NormalizedForm{
		FormData: data,
		Metadata: map[string]any{
			"provider":     string(ProviderGeneric),
			"timestamp":    payload["timestamp"],
			"form_id":      payload["form_id"],
			"total_fields": len(data),
		},
	}, nil
}

func firstNonNil(vals ...any) any {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
