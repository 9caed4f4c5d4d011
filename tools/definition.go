package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/invopop/jsonschema"

	"github.com/petasbytes/fsagent/internal/safety"
)

// Function executes a tool with raw JSON arguments.
type Function func(ctx context.Context, input json.RawMessage) (string, error)

// ToolDefinition describes one tool to the model and binds its handler.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema anthropic.ToolInputSchemaParam
	Function    Function
	// ReadOnly tools return their output as result data rather than a status message.
	ReadOnly bool
}

// GenerateSchema reflects T into an inline JSON schema. Fields without
// omitempty are listed as required.
func GenerateSchema[T any]() anthropic.ToolInputSchemaParam {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	return anthropic.ToolInputSchemaParam{
		Properties: schema.Properties,
		Required:   schema.Required,
	}
}

// Decode parses tool arguments into T, rejecting non-objects and unknown fields.
// Empty input and JSON null decode as an empty object.
func Decode[T any](input json.RawMessage) (T, error) {
	var v T
	trimmed := bytes.TrimSpace(input)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		trimmed = []byte("{}")
	}
	if trimmed[0] != '{' {
		return v, safety.InvalidArguments("arguments must be a JSON object")
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, safety.InvalidArguments("invalid arguments: %v", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return v, safety.InvalidArguments("invalid arguments: trailing data after object")
	}
	return v, nil
}

// require fails with InvalidArguments when value is blank.
func require(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return safety.InvalidArguments("%s is required", field)
	}
	return nil
}

// ToAnthropic converts definitions into the tool list sent with a Messages request.
func ToAnthropic(defs []ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, d := range defs {
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        d.Name,
			Description: anthropic.String(d.Description),
			InputSchema: d.InputSchema,
		}})
	}
	return out
}
