package tools

import (
	"fmt"
	"math"
	"strings"
)

// ValidationError reports the first argument that does not match a schema.
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error at %s: %s", e.Path, e.Message)
}

func newValidationError(path, message string) error {
	return &ValidationError{Path: path, Message: message}
}

// SchemaValidator checks tool call arguments against a ToolSchema.
type SchemaValidator struct {
	schema *ToolSchema
}

func NewSchemaValidator(schema *ToolSchema) *SchemaValidator {
	return &SchemaValidator{schema: schema}
}

// Validate returns a *ValidationError for the first mismatch in params. A
// nil schema accepts anything.
func (v *SchemaValidator) Validate(params map[string]any) error {
	if v.schema == nil {
		return nil
	}
	return v.validateObject(v.schema.Properties, v.schema.Required, v.schema.AdditionalProperties, params, "")
}

func (v *SchemaValidator) validateObject(props map[string]*Property, required []string, additional *bool, value map[string]any, path string) error {
	for _, name := range required {
		if _, ok := value[name]; !ok {
			return newValidationError(joinPath(path, name), "required property is missing")
		}
	}
	if additional != nil && !*additional {
		for key := range value {
			if _, ok := props[key]; !ok {
				return newValidationError(path, fmt.Sprintf("additional property %q is not allowed", key))
			}
		}
	}
	for name, prop := range props {
		val, ok := value[name]
		if !ok {
			continue
		}
		if err := v.validateValue(prop, val, joinPath(path, name)); err != nil {
			return err
		}
	}
	return nil
}

func (v *SchemaValidator) validateValue(prop *Property, value any, path string) error {
	if prop.Type == "" {
		return nil
	}
	if value == nil {
		if prop.Type != "null" {
			return newValidationError(path, "value cannot be null")
		}
		return nil
	}

	switch prop.Type {
	case "string":
		str, ok := value.(string)
		if !ok {
			return newValidationError(path, fmt.Sprintf("expected string, got %T", value))
		}
		if prop.MinLength != nil && len(str) < *prop.MinLength {
			return newValidationError(path, fmt.Sprintf("string length %d is less than minimum %d", len(str), *prop.MinLength))
		}
	case "number":
		if _, ok := toFloat64(value); !ok {
			return newValidationError(path, fmt.Sprintf("expected number, got %T", value))
		}
	case "integer":
		f, ok := toFloat64(value)
		if !ok || f != math.Trunc(f) {
			return newValidationError(path, fmt.Sprintf("expected integer, got %v", value))
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return newValidationError(path, fmt.Sprintf("expected boolean, got %T", value))
		}
	case "array":
		arr, ok := value.([]any)
		if !ok {
			return newValidationError(path, fmt.Sprintf("expected array, got %T", value))
		}
		if prop.MinLength != nil && len(arr) < *prop.MinLength {
			return newValidationError(path, fmt.Sprintf("array length %d is less than minimum %d", len(arr), *prop.MinLength))
		}
		if prop.Items != nil {
			for i, item := range arr {
				if err := v.validateValue(prop.Items, item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
					return err
				}
			}
		}
	case "object":
		obj, ok := value.(map[string]any)
		if !ok {
			return newValidationError(path, fmt.Sprintf("expected object, got %T", value))
		}
		if err := v.validateObject(prop.Properties, prop.Required, nil, obj, path); err != nil {
			return err
		}
	case "null":
		return newValidationError(path, "value must be null")
	}

	if len(prop.Enum) > 0 && !inEnum(prop.Enum, value) {
		return newValidationError(path, fmt.Sprintf("value %v is not in enum %v", value, prop.Enum))
	}
	return nil
}

func inEnum(enum []any, value any) bool {
	switch value.(type) {
	case map[string]any, []any:
		return false
	}
	for _, allowed := range enum {
		if allowed == value {
			return true
		}
	}
	return false
}

func joinPath(base, segment string) string {
	if base == "" {
		return segment
	}
	return strings.Join([]string{base, segment}, ".")
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}
