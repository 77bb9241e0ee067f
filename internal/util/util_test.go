package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectSchema(t *testing.T) {
	schema := ObjectSchema([]Property{
		{Name: "location", Type: "string", Description: "Where to go", Required: true},
		{Name: "volume", Type: "integer"},
	})

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "location")
	assert.Contains(t, props, "volume")
	assert.Equal(t, []string{"location"}, schema["required"])
	assert.Equal(t, false, schema["additionalProperties"])
}

func TestValidateParameters(t *testing.T) {
	schema, err := CompileSchema("sample", ObjectSchema([]Property{
		{Name: "x", Type: "integer", Required: true},
		{Name: "label", Type: "string"},
	}))
	require.NoError(t, err)

	assert.NoError(t, ValidateParameters(map[string]any{"x": 5}, schema))
	assert.NoError(t, ValidateParameters(map[string]any{"x": 5.0, "label": "a"}, schema))

	err = ValidateParameters(map[string]any{"x": "not-int"}, schema)
	require.Error(t, err)
	vErr, ok := err.(*ValidationError)
	require.True(t, ok, "expected ValidationError, got %T", err)
	assert.Equal(t, "x", vErr.Field)
	assert.Equal(t, "not-int", vErr.Value)

	err = ValidateParameters(map[string]any{}, schema)
	require.Error(t, err)
	assert.IsType(t, &ValidationError{}, err)

	err = ValidateParameters(map[string]any{"x": 1, "extra": true}, schema)
	assert.Error(t, err)
}

func TestValidateParameters_NilParamsAgainstEmptySchema(t *testing.T) {
	schema, err := CompileSchema("empty", ObjectSchema(nil))
	require.NoError(t, err)
	assert.NoError(t, ValidateParameters(nil, schema))
}

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("plain text", nil)
	require.NoError(t, err)
	assert.Equal(t, "plain text", out)

	out, err = RenderTemplate(`{{ upper .Name }} {{ default "n/a" .Missing }} {{ json .Levels }}`, map[string]any{
		"Name":   "fog",
		"Levels": map[string]int{"fog_fluid_level": 90},
	})
	require.NoError(t, err)
	assert.Equal(t, `FOG n/a {"fog_fluid_level":90}`, out)

	_, err = RenderTemplate("{{ .Broken ", nil)
	assert.Error(t, err)
}
