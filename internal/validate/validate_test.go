package validate

import (
	"testing"

	"github.com/orbitflow/orbitflow/internal/handler"
)

func telegramSendMessageSpecs() []handler.ParameterSpec {
	return []handler.ParameterSpec{
		{Name: "chat_id", Type: handler.TypeString, Required: true},
		{Name: "message", Type: handler.TypeString, Required: true},
	}
}

func TestValidate_MissingRequired(t *testing.T) {
	result := Validate(telegramSendMessageSpecs(), handler.Params{"chat_id": "@kyra"}, false)
	if result.Valid {
		t.Fatal("expected invalid result when 'message' is missing")
	}
	if len(result.MissingRequired) != 1 || result.MissingRequired[0] != "message" {
		t.Fatalf("expected missing=[message], got %v", result.MissingRequired)
	}
}

func TestValidate_TypeMismatch(t *testing.T) {
	result := Validate(telegramSendMessageSpecs(), handler.Params{"chat_id": "@kyra", "message": 42}, false)
	if result.Valid {
		t.Fatal("expected invalid result on type mismatch")
	}
	if len(result.InvalidTypes) != 1 || result.InvalidTypes[0].Name != "message" {
		t.Fatalf("expected one invalid type for 'message', got %v", result.InvalidTypes)
	}
}

func TestValidate_StrictRejectsUnexpectedKeys(t *testing.T) {
	params := handler.Params{"chat_id": "@kyra", "message": "hi", "extra": "nope"}
	lenient := Validate(telegramSendMessageSpecs(), params, false)
	if !lenient.Valid {
		t.Fatal("expected lenient validation to pass with an extra key")
	}
	strict := Validate(telegramSendMessageSpecs(), params, true)
	if strict.Valid {
		t.Fatal("expected strict validation to reject the extra key")
	}
	if len(strict.Unexpected) != 1 || strict.Unexpected[0] != "extra" {
		t.Fatalf("expected unexpected=[extra], got %v", strict.Unexpected)
	}
}

func TestValidate_AllPresentAndTyped(t *testing.T) {
	result := Validate(telegramSendMessageSpecs(), handler.Params{"chat_id": "@kyra", "message": "hi"}, false)
	if !result.Valid {
		t.Fatalf("expected valid result, got %+v", result)
	}
}
