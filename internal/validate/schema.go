package validate

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	jsonschemav6 "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/orbitflow/orbitflow/internal/handler"
)

// FormSchema builds a minimal JSON-Schema-shaped description, suitable to
// render a user-facing form, covering only the given subset of a handler's
// parameters. It's built from invopop/jsonschema's *jsonschema.Schema type
// rather than hand-assembled maps, then flattened to map[string]any the way
// functiontool.schemaToMap does it.
func FormSchema(handlerName string, specs []handler.ParameterSpec, subset []string) map[string]any {
	want := make(map[string]bool, len(subset))
	for _, n := range subset {
		want[n] = true
	}

	root := &jsonschema.Schema{
		Title:      fmt.Sprintf("Missing parameters for %s", handlerName),
		Type:       "object",
		Properties: jsonschema.NewProperties(),
	}

	for _, s := range specs {
		if !want[s.Name] {
			continue
		}
		prop := &jsonschema.Schema{
			Type:        jsonSchemaType(s.Type),
			Description: s.Description,
		}
		if s.Default != nil {
			prop.Default = s.Default
		}
		root.Properties.Set(s.Name, prop)
		if s.Required {
			root.Required = append(root.Required, s.Name)
		}
	}

	m, err := schemaToMap(root)
	if err != nil {
		// A schema we just built failing to round-trip through JSON would be
		// a bug in this function, not a caller error; fall back to an empty
		// object schema rather than propagating an encoding error upward.
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return m
}

func jsonSchemaType(t handler.ParamType) string {
	switch t {
	case handler.TypeString:
		return "string"
	case handler.TypeInteger:
		return "integer"
	case handler.TypeNumber:
		return "number"
	case handler.TypeBoolean:
		return "boolean"
	case handler.TypeSequence:
		return "array"
	case handler.TypeMapping:
		return "object"
	default:
		return "string"
	}
}

func schemaToMap(schema *jsonschema.Schema) (map[string]any, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	delete(result, "$schema")
	delete(result, "$id")
	return result, nil
}

// ValidateFormSchema checks that a generated form schema is itself
// well-formed JSON Schema, using santhosh-tekuri/jsonschema/v6's compiler
// against the 2020-12 meta-schema. Used by tests and by the API layer
// before a form schema is ever handed to a client.
func ValidateFormSchema(schema map[string]any) error {
	var doc any = schema

	c := jsonschemav6.NewCompiler()
	if err := c.AddResource("form-schema.json", doc); err != nil {
		return fmt.Errorf("schema is not valid JSON Schema: %w", err)
	}
	if _, err := c.Compile("form-schema.json"); err != nil {
		return fmt.Errorf("schema is not valid JSON Schema: %w", err)
	}
	return nil
}
