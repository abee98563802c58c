package validate

import (
	"testing"

	"github.com/orbitflow/orbitflow/internal/handler"
)

func TestFormSchema_GeneratesValidJSONSchema(t *testing.T) {
	specs := telegramSendMessageSpecs()
	schema := FormSchema("Telegram.send_message", specs, []string{"message"})

	if err := ValidateFormSchema(schema); err != nil {
		t.Fatalf("generated form schema is not valid JSON Schema: %v", err)
	}
	if schema["type"] != "object" {
		t.Fatalf("expected object schema, got %v", schema["type"])
	}
}

func TestFormSchema_OnlyIncludesRequestedSubset(t *testing.T) {
	specs := telegramSendMessageSpecs()
	schema := FormSchema("Telegram.send_message", specs, []string{"message"})

	props, _ := schema["properties"].(map[string]any)
	if _, ok := props["chat_id"]; ok {
		t.Fatal("expected chat_id to be excluded since it wasn't in the requested subset")
	}
	if _, ok := props["message"]; !ok {
		t.Fatal("expected message to be included")
	}
}
