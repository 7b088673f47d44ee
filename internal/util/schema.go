// Package util holds the schema helpers behind prism input validation:
// deriving an input declaration from a Go struct and checking handler input
// against one.
package util

import (
	"fmt"
	"math"
	"reflect"
	"strings"
)

// ValidationError reports an input field that failed schema validation.
type ValidationError struct {
	Field   string `json:"field"`
	Value   any    `json:"value"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// property is the typed view of one declared input field. The loose schema
// map is normalized into these once per validation, so the rest of the code
// never touches the map shape.
type property struct {
	typ      string
	required bool
}

// parseProperties normalizes a schema map into typed properties. A field
// listed as required but absent from properties still gets a presence check.
// The required list tolerates both []string and []any; the latter appears
// after a round-trip through JSON or YAML.
func parseProperties(schema map[string]any) map[string]property {
	props := make(map[string]property)
	if raw, ok := schema["properties"].(map[string]any); ok {
		for name, entry := range raw {
			var p property
			if m, ok := entry.(map[string]any); ok {
				p.typ, _ = m["type"].(string)
			}
			props[name] = p
		}
	}
	markRequired := func(name string) {
		p := props[name]
		p.required = true
		props[name] = p
	}
	switch req := schema["required"].(type) {
	case []string:
		for _, name := range req {
			markRequired(name)
		}
	case []any:
		for _, r := range req {
			if name, ok := r.(string); ok {
				markRequired(name)
			}
		}
	}
	return props
}

// SchemaFromStruct derives the minimal JSON-Schema-like input declaration a
// prism carries from a Go struct. Field names follow json tags, a
// `description` tag becomes the field description, and non-pointer fields
// without omitempty are required. Fields promoted from embedded structs are
// included.
func SchemaFromStruct(structType any) map[string]any {
	t := reflect.TypeOf(structType)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	properties := map[string]any{}
	schema := map[string]any{"type": "object", "properties": properties}
	if t == nil || t.Kind() != reflect.Struct {
		return schema
	}

	var required []string
	for _, field := range reflect.VisibleFields(t) {
		if !field.IsExported() || field.Anonymous {
			continue
		}
		name, omitempty, skip := fieldName(field)
		if skip {
			continue
		}
		entry := map[string]any{"type": jsonType(field.Type)}
		if desc := field.Tag.Get("description"); desc != "" {
			entry["description"] = desc
		}
		properties[name] = entry
		if field.Type.Kind() != reflect.Ptr && !omitempty {
			required = append(required, name)
		}
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// fieldName resolves a struct field's schema name from its json tag.
func fieldName(field reflect.StructField) (name string, omitempty, skip bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	name = field.Name
	parts := strings.Split(tag, ",")
	if parts[0] != "" {
		name = parts[0]
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitempty = true
		}
	}
	return name, omitempty, false
}

// ValidateInput checks handler input against a minimal JSON-Schema-like map:
// required fields must be present and typed fields must match. Extra fields
// pass through; the prism receives the full input either way.
func ValidateInput(input map[string]any, schema map[string]any) error {
	props := parseProperties(schema)
	for name, prop := range props {
		if !prop.required {
			continue
		}
		if _, present := input[name]; !present {
			return &ValidationError{Field: name, Message: "required field is missing"}
		}
	}
	for name, value := range input {
		prop, declared := props[name]
		if !declared {
			continue
		}
		if !matchesType(value, prop.typ) {
			return &ValidationError{
				Field:   name,
				Value:   value,
				Message: fmt.Sprintf("expected type %s, got %T", prop.typ, value),
			}
		}
	}
	return nil
}

func matchesType(value any, expectedType string) bool {
	if expectedType == "" || value == nil {
		return true
	}
	switch expectedType {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		switch value.(type) {
		case float64, float32, int, int32, int64:
			return true
		}
		return false
	case "integer":
		switch n := value.(type) {
		case int, int32, int64:
			return true
		case float64:
			// JSON decoding yields float64; whole values count as integers.
			return n == math.Trunc(n)
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		return reflect.ValueOf(value).Kind() == reflect.Slice
	case "object":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}

func jsonType(t reflect.Type) string {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	default:
		return "string"
	}
}
