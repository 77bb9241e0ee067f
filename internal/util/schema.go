package util

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidationError represents parameter validation errors with detailed information.
type ValidationError struct {
	Field   string `json:"field"`   // Field that failed validation
	Value   any    `json:"value"`   // Value that was provided
	Message string `json:"message"` // Human-readable error message
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// Property describes one named property of an object schema.
type Property struct {
	Name        string
	Type        string // string, integer, number, boolean
	Description string
	Required    bool
}

// ObjectSchema builds a JSON schema object with the given properties.
// Additional properties are rejected.
func ObjectSchema(props []Property) map[string]any {
	properties := make(map[string]any, len(props))
	required := make([]string, 0, len(props))

	for _, p := range props {
		fieldSchema := map[string]any{"type": p.Type}
		if p.Description != "" {
			fieldSchema["description"] = p.Description
		}
		properties[p.Name] = fieldSchema
		if p.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}

	return schema
}

// CompileSchema compiles a schema map under a synthetic resource name.
func CompileSchema(name string, schema map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema %s: %w", name, err)
	}

	url := "mem://actions/" + name + ".json"
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}

	return c.Compile(url)
}

// ValidateParameters validates params against a compiled schema. Values are
// normalized through a JSON round trip first so plain Go ints and JSON decoded
// float64s are treated alike.
func ValidateParameters(params map[string]any, schema *jsonschema.Schema) error {
	if params == nil {
		params = map[string]any{}
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return &ValidationError{Message: fmt.Sprintf("arguments are not JSON encodable: %v", err)}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return &ValidationError{Message: err.Error()}
	}

	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return toValidationError(ve, params)
		}
		return &ValidationError{Message: err.Error()}
	}

	return nil
}

// toValidationError reports the deepest cause, which names the offending field.
func toValidationError(ve *jsonschema.ValidationError, params map[string]any) *ValidationError {
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}

	field := strings.TrimPrefix(leaf.InstanceLocation, "/")
	var value any
	if field != "" {
		value = params[field]
	}

	return &ValidationError{Field: field, Value: value, Message: leaf.Message}
}
