// Package tools defines the capability registry of the assistant: the
// provider-agnostic schema types describing callable functions, the executor
// contract every capability implements, and the manager that validates and
// dispatches the tool calls requested by the model.
package tools

import (
	"encoding/json"
	"fmt"
)

// ToolTypeFunction is the standard type for function-based tools.
const ToolTypeFunction = "function"

// Tool is the schema of a callable function as described to the LLM.
type Tool struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

// Function carries the name, description, and parameter schema of a tool.
// The description is what the model reads to decide when to call it.
type Function struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  JSONSchema `json:"parameters"`
}

// JSONSchema is a typed subset of JSON Schema sufficient for tool parameters.
// Keeping it structured (instead of map[string]interface{}) lets the manager
// validate arguments before an executor ever runs.
type JSONSchema struct {
	Type        string                 `json:"type"`
	Description string                 `json:"description,omitempty"`
	Properties  map[string]*JSONSchema `json:"properties,omitempty"`
	Items       *JSONSchema            `json:"items,omitempty"`
	Enum        []string               `json:"enum,omitempty"`
	Required    []string               `json:"required,omitempty"`
}

// ToolCall is a request from the LLM to execute one tool with given arguments.
type ToolCall struct {
	// ID ties the execution result back to this request in the transcript.
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction holds the name and raw JSON arguments of a requested call.
type ToolCallFunction struct {
	Name string `json:"name"`
	// Arguments is a JSON object encoded as a string, exactly as emitted by
	// the model. The manager validates it against the tool's schema and the
	// executor unmarshals it into its own argument struct.
	Arguments string `json:"arguments"`
}

// NewFunctionTool builds a Tool with the standard "function" type.
func NewFunctionTool(name, description string, parameters JSONSchema) Tool {
	return Tool{
		Type: ToolTypeFunction,
		Function: Function{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}

// ValidateArguments checks a raw JSON argument string against the schema:
// the payload must be a JSON object, every required property must be present,
// and every known property must have the declared type. Unknown properties
// are tolerated; models occasionally add extras and rejecting them only
// burns a tool round.
func (s JSONSchema) ValidateArguments(raw string) error {
	if s.Type != "object" {
		return fmt.Errorf("tool parameter schema must be an object, got %q", s.Type)
	}

	if raw == "" {
		raw = "{}"
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return fmt.Errorf("arguments are not a JSON object: %w", err)
	}

	for _, name := range s.Required {
		if _, ok := args[name]; !ok {
			return fmt.Errorf("missing required argument %q", name)
		}
	}

	for name, value := range args {
		propSchema, ok := s.Properties[name]
		if !ok {
			continue
		}
		if err := propSchema.checkType(name, value); err != nil {
			return err
		}
	}
	return nil
}

func (s *JSONSchema) checkType(name string, value any) error {
	if value == nil {
		return fmt.Errorf("argument %q is null", name)
	}
	switch s.Type {
	case "string":
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("argument %q must be a string", name)
		}
		if len(s.Enum) > 0 {
			for _, allowed := range s.Enum {
				if str == allowed {
					return nil
				}
			}
			return fmt.Errorf("argument %q must be one of %v", name, s.Enum)
		}
	case "number":
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("argument %q must be a number", name)
		}
	case "integer":
		f, ok := value.(float64)
		if !ok || f != float64(int64(f)) {
			return fmt.Errorf("argument %q must be an integer", name)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("argument %q must be a boolean", name)
		}
	case "array":
		items, ok := value.([]any)
		if !ok {
			return fmt.Errorf("argument %q must be an array", name)
		}
		if s.Items != nil {
			for i, item := range items {
				if err := s.Items.checkType(fmt.Sprintf("%s[%d]", name, i), item); err != nil {
					return err
				}
			}
		}
	case "object":
		if _, ok := value.(map[string]any); !ok {
			return fmt.Errorf("argument %q must be an object", name)
		}
	}
	return nil
}
