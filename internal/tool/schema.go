package tool

import (
	"encoding/json"
	"fmt"
	"strings"
)

type FieldType string

const (
	FieldString  FieldType = "string"
	FieldInteger FieldType = "integer"
	FieldBoolean FieldType = "boolean"
	FieldObject  FieldType = "object"
)

// FieldSpec describes one argument of a tool.
type FieldSpec struct {
	Name        string
	Type        FieldType
	Description string
	Required    bool
	Enum        []string
}

// Parameters derives the JSON-schema object advertised to the model.
func Parameters(fields []FieldSpec) map[string]interface{} {
	properties := make(map[string]interface{}, len(fields))
	required := []string{}

	for _, f := range fields {
		prop := map[string]interface{}{"type": string(f.Type)}
		if f.Description != "" {
			prop["description"] = f.Description
		}
		if len(f.Enum) > 0 {
			enum := make([]interface{}, len(f.Enum))
			for i, v := range f.Enum {
				enum[i] = v
			}
			prop["enum"] = enum
		}
		properties[f.Name] = prop

		if f.Required {
			required = append(required, f.Name)
		}
	}

	schema := map[string]interface{}{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// DecodeObjectStrings replaces JSON-encoded object arguments with the decoded
// object. Backends whose schema dialect has no free-form object advertise
// those fields as strings, so both forms are accepted. Blank strings count as
// absent.
func DecodeObjectStrings(fields []FieldSpec, args map[string]any) error {
	for _, f := range fields {
		if f.Type != FieldObject {
			continue
		}
		text, ok := args[f.Name].(string)
		if !ok {
			continue
		}
		if strings.TrimSpace(text) == "" {
			delete(args, f.Name)
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(text), &obj); err != nil {
			return fmt.Errorf("field '%s' is neither an object nor a JSON-encoded object: %w", f.Name, err)
		}
		args[f.Name] = obj
	}
	return nil
}
