package validate

import (
	"testing"

	"github.com/orbitflow/orbitflow/internal/handler"
)

// TestReconcile_TelegramSendMessage mirrors the spec's smart-input
// reconciliation scenario directly: dispatching Telegram.send_message with
// only chat_id discovered must report message missing and hand back a
// form schema requiring it.
func TestReconcile_TelegramSendMessage(t *testing.T) {
	specs := telegramSendMessageSpecs()
	rec := Reconcile("Telegram.send_message", specs, handler.Params{"chat_id": "@kyra"})

	if !rec.NeedsUserInput {
		t.Fatal("expected NeedsUserInput=true when 'message' is missing")
	}
	if len(rec.Missing) != 1 || rec.Missing[0] != "message" {
		t.Fatalf("expected missing=[message], got %v", rec.Missing)
	}
	if rec.Discovered["chat_id"] != "@kyra" {
		t.Fatalf("expected chat_id to carry through as discovered, got %v", rec.Discovered)
	}

	required, _ := rec.FormSchema["required"].([]any)
	if len(required) != 1 || required[0] != "message" {
		t.Fatalf("expected form schema required=[message], got %v", rec.FormSchema["required"])
	}
	props, _ := rec.FormSchema["properties"].(map[string]any)
	messageProp, _ := props["message"].(map[string]any)
	if messageProp["type"] != "string" {
		t.Fatalf("expected properties.message.type=string, got %v", messageProp)
	}
}

func TestReconcile_AllDiscoveredNeedsNoUserInput(t *testing.T) {
	specs := telegramSendMessageSpecs()
	rec := Reconcile("Telegram.send_message", specs, handler.Params{"chat_id": "@kyra", "message": "hi"})

	if rec.NeedsUserInput {
		t.Fatal("expected NeedsUserInput=false when every required parameter is discovered")
	}
	if len(rec.MissingOrInvalid()) != 0 {
		t.Fatalf("expected no missing/invalid parameters, got %v", rec.MissingOrInvalid())
	}
}

func TestReconcile_InvalidTypeClassifiedSeparatelyFromMissing(t *testing.T) {
	specs := telegramSendMessageSpecs()
	rec := Reconcile("Telegram.send_message", specs, handler.Params{"chat_id": "@kyra", "message": 42})

	if len(rec.Invalid) != 1 || rec.Invalid[0] != "message" {
		t.Fatalf("expected invalid=[message], got %v", rec.Invalid)
	}
	if len(rec.Missing) != 0 {
		t.Fatalf("expected no missing parameters, got %v", rec.Missing)
	}
	if !rec.NeedsUserInput {
		t.Fatal("expected NeedsUserInput=true on an invalid-typed required parameter")
	}
}

// TestReconcile_DiscoveredMissingInvalidPartitionRequired checks the
// testable property named directly in the spec: discovered ∪ missing ∪
// invalid == required, and the three sets are pairwise disjoint.
func TestReconcile_DiscoveredMissingInvalidPartitionRequired(t *testing.T) {
	specs := []handler.ParameterSpec{
		{Name: "a", Type: handler.TypeString, Required: true},
		{Name: "b", Type: handler.TypeString, Required: true},
		{Name: "c", Type: handler.TypeString, Required: true},
	}
	rec := Reconcile("x", specs, handler.Params{"a": "ok", "b": 123})

	seen := map[string]int{}
	for k := range rec.Discovered {
		seen[k]++
	}
	for _, k := range rec.Missing {
		seen[k]++
	}
	for _, k := range rec.Invalid {
		seen[k]++
	}
	for _, s := range specs {
		if seen[s.Name] != 1 {
			t.Fatalf("expected %q to land in exactly one of discovered/missing/invalid, got count %d", s.Name, seen[s.Name])
		}
	}
}

func TestReconcile_PassesThroughUnclassifiedExtraKeys(t *testing.T) {
	specs := telegramSendMessageSpecs()
	rec := Reconcile("Telegram.send_message", specs, handler.Params{"chat_id": "@kyra", "message": "hi", "passthrough": true})

	if rec.Discovered["passthrough"] != true {
		t.Fatalf("expected an undeclared extra key to pass through as discovered, got %v", rec.Discovered)
	}
}

func TestMerge_UserSuppliedOverridesDiscovered(t *testing.T) {
	merged := Merge(handler.Params{"chat_id": "@kyra"}, handler.Params{"chat_id": "@override", "message": "hi"})
	if merged["chat_id"] != "@override" {
		t.Fatalf("expected user-supplied value to win, got %v", merged["chat_id"])
	}
	if merged["message"] != "hi" {
		t.Fatalf("expected message to carry through, got %v", merged["message"])
	}
}
