package tool

import (
	"encoding/json"
	"fmt"
	"math"
)

// ValidateArgs validates already decoded arguments.
func ValidateArgs(schema map[string]interface{}, input map[string]interface{}) error {
	if input == nil {
		input = map[string]interface{}{}
	}
	return validateObject(schema, input)
}

func validateObject(schema map[string]interface{}, input map[string]interface{}) error {
	// Check Required Fields
	if required, ok := schema["required"].([]interface{}); ok {
		for _, field := range required {
			fieldName, ok := field.(string)
			if !ok {
				continue // Malformed schema
			}
			if _, exists := input[fieldName]; !exists {
				return fmt.Errorf("missing required field: %s", fieldName)
			}
		}
	} else if required, ok := schema["required"].([]string); ok {
		for _, fieldName := range required {
			if _, exists := input[fieldName]; !exists {
				return fmt.Errorf("missing required field: %s", fieldName)
			}
		}
	}

	properties, ok := schema["properties"].(map[string]interface{})
	if !ok {
		return nil // No properties defined
	}

	strict := schema["additionalProperties"] == false

	for key, value := range input {
		propSchema, defined := properties[key]
		if !defined {
			if strict {
				return fmt.Errorf("unknown field: %s", key)
			}
			continue
		}

		propSchemaMap, ok := propSchema.(map[string]interface{})
		if !ok {
			continue
		}

		if err := validateType(key, propSchemaMap, value); err != nil {
			return err
		}
	}

	return nil
}

func validateType(fieldName string, schema map[string]interface{}, value interface{}) error {
	expectedType, ok := schema["type"].(string)
	if !ok {
		return nil // Type not specified
	}

	switch expectedType {
	case "string":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("field '%s' expected string, got %T", fieldName, value)
		}
		return validateEnum(fieldName, schema, s)
	case "number":
		if _, ok := toFloat(value); !ok {
			return fmt.Errorf("field '%s' expected number, got %T", fieldName, value)
		}
	case "integer":
		f, ok := toFloat(value)
		if !ok {
			return fmt.Errorf("field '%s' expected integer, got %T", fieldName, value)
		}
		if f != math.Trunc(f) {
			return fmt.Errorf("field '%s' expected integer, got %v", fieldName, f)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("field '%s' expected boolean, got %T", fieldName, value)
		}
	case "array":
		arr, ok := value.([]interface{})
		if !ok {
			return fmt.Errorf("field '%s' expected array, got %T", fieldName, value)
		}
		if itemsSchema, ok := schema["items"].(map[string]interface{}); ok {
			for i, item := range arr {
				if err := validateType(fmt.Sprintf("%s[%d]", fieldName, i), itemsSchema, item); err != nil {
					return err
				}
			}
		}
	case "object":
		obj, ok := value.(map[string]interface{})
		if !ok {
			return fmt.Errorf("field '%s' expected object, got %T", fieldName, value)
		}
		return validateObject(schema, obj)
	}

	return nil
}

func validateEnum(fieldName string, schema map[string]interface{}, value string) error {
	enum, ok := schema["enum"].([]interface{})
	if !ok || len(enum) == 0 {
		return nil
	}
	for _, allowed := range enum {
		if allowed == value {
			return nil
		}
	}
	return fmt.Errorf("field '%s' value %q is not one of %v", fieldName, value, enum)
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
