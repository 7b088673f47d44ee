package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleInput struct {
	A      string   `json:"a" description:"Field A"`
	B      *int     `json:"b" description:"Optional pointer field"`
	C      int      `json:"c,omitempty" description:"Omitempty field"`
	D      []string `json:"d"`
	hidden int
}

func TestSchemaFromStruct(t *testing.T) {
	schema := SchemaFromStruct(sampleInput{})

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "a")
	assert.Contains(t, props, "b")
	assert.Contains(t, props, "c")
	assert.Contains(t, props, "d")
	assert.NotContains(t, props, "hidden")

	a := props["a"].(map[string]any)
	assert.Equal(t, "string", a["type"])
	assert.Equal(t, "Field A", a["description"])
	assert.Equal(t, "integer", props["b"].(map[string]any)["type"])
	assert.Equal(t, "array", props["d"].(map[string]any)["type"])

	// required excludes pointer and omitempty fields
	required, _ := schema["required"].([]string)
	assert.ElementsMatch(t, []string{"a", "d"}, required)
}

type identified struct {
	ID string `json:"id"`
}

type embeddingInput struct {
	identified
	Note string `json:"note,omitempty"`
}

func TestSchemaFromStructPromotesEmbeddedFields(t *testing.T) {
	schema := SchemaFromStruct(embeddingInput{})

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "id")
	assert.Contains(t, props, "note")
	assert.NotContains(t, props, "identified")

	required, _ := schema["required"].([]string)
	assert.ElementsMatch(t, []string{"id"}, required)
}

func TestSchemaFromStructNonStruct(t *testing.T) {
	schema := SchemaFromStruct("not a struct")
	assert.Equal(t, "object", schema["type"])
	assert.Empty(t, schema["properties"])
}

func TestValidateInput(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"x": map[string]any{"type": "integer"},
			"s": map[string]any{"type": "string"},
		},
		"required": []any{"x"},
	}

	assert.NoError(t, ValidateInput(map[string]any{"x": 1, "s": "ok"}, schema))
	// whole-valued floats count as integers (JSON decoding produces them)
	assert.NoError(t, ValidateInput(map[string]any{"x": float64(3)}, schema))
	// extra fields are allowed
	assert.NoError(t, ValidateInput(map[string]any{"x": 1, "extra": true}, schema))

	err := ValidateInput(map[string]any{}, schema)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "x", verr.Field)
	assert.Contains(t, verr.Message, "required field is missing")

	err = ValidateInput(map[string]any{"x": "nope"}, schema)
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "expected type integer")

	err = ValidateInput(map[string]any{"x": 1, "s": 42}, schema)
	assert.Error(t, err)
}

func TestValidateInputRequiredOutsideProperties(t *testing.T) {
	schema := map[string]any{"required": []string{"token"}}

	err := ValidateInput(map[string]any{}, schema)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "token", verr.Field)

	assert.NoError(t, ValidateInput(map[string]any{"token": "t"}, schema))
}

func TestValidateInputTypeMatrix(t *testing.T) {
	tests := []struct {
		typ   string
		value any
		ok    bool
	}{
		{"string", "s", true},
		{"string", 1, false},
		{"number", 1.5, true},
		{"number", 2, true},
		{"number", "2", false},
		{"integer", 3, true},
		{"integer", 3.5, false},
		{"boolean", true, true},
		{"boolean", "true", false},
		{"array", []any{1}, true},
		{"array", "not", false},
		{"object", map[string]any{}, true},
		{"object", []any{}, false},
		{"", "anything goes", true},
	}
	for _, tt := range tests {
		schema := map[string]any{
			"properties": map[string]any{"v": map[string]any{"type": tt.typ}},
		}
		err := ValidateInput(map[string]any{"v": tt.value}, schema)
		if tt.ok {
			assert.NoError(t, err, "type %q value %#v", tt.typ, tt.value)
		} else {
			assert.Error(t, err, "type %q value %#v", tt.typ, tt.value)
		}
	}
}
