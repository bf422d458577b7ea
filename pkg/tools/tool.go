// Package tools declares the client-side tools advertised to the agent with
// every run and validates the arguments the agent sends back.
//
// A Tool is a name, a description and a JSON Schema for its arguments:
//
//	tool := &Tool{
//		Name:        "click_element",
//		Description: "Click a visible element of the host application",
//		Schema: &ToolSchema{
//			Type: "object",
//			Properties: map[string]*Property{
//				"target_id": {Type: "string", Description: "Target to click"},
//			},
//			Required: []string{"target_id"},
//		},
//	}
//
// Tools are collected in a Registry, which turns them into the tool
// definitions of a run input and checks incoming tool call arguments.
package tools

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/site-operator/go-sdk/pkg/core"
)

// Tool is a function the agent may call on the client.
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Schema      *ToolSchema `json:"parameters"`
}

// ToolSchema is the JSON Schema of a tool's arguments. The top level is
// always an object.
type ToolSchema struct {
	Type                 string               `json:"type"`
	Properties           map[string]*Property `json:"properties,omitempty"`
	Required             []string             `json:"required,omitempty"`
	AdditionalProperties *bool                `json:"additionalProperties,omitempty"`
	Description          string               `json:"description,omitempty"`
}

// Property is the schema of one argument. An empty Type accepts any JSON
// value.
type Property struct {
	Type        string               `json:"type,omitempty"`
	Description string               `json:"description,omitempty"`
	Enum        []any                `json:"enum,omitempty"`
	MinLength   *int                 `json:"minLength,omitempty"`
	Items       *Property            `json:"items,omitempty"`
	Properties  map[string]*Property `json:"properties,omitempty"`
	Required    []string             `json:"required,omitempty"`
}

var propertyTypes = map[string]bool{
	"": true, "string": true, "number": true, "integer": true,
	"boolean": true, "array": true, "object": true, "null": true,
}

// Validate checks the tool definition.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return errors.New("tool name is required")
	}
	if t.Description == "" {
		return fmt.Errorf("tool %s: description is required", t.Name)
	}
	if t.Schema == nil {
		return fmt.Errorf("tool %s: schema is required", t.Name)
	}
	if err := t.Schema.Validate(); err != nil {
		return fmt.Errorf("tool %s: %w", t.Name, err)
	}
	return nil
}

// Validate checks that the schema is an object schema whose required
// properties are declared.
func (s *ToolSchema) Validate() error {
	if s.Type != "object" {
		return fmt.Errorf("schema type must be 'object', got %q", s.Type)
	}
	for name, prop := range s.Properties {
		if err := prop.Validate(); err != nil {
			return fmt.Errorf("property %s: %w", name, err)
		}
	}
	for _, name := range s.Required {
		if _, ok := s.Properties[name]; !ok {
			return fmt.Errorf("required property %q is not defined", name)
		}
	}
	return nil
}

func (p *Property) Validate() error {
	if p == nil {
		return errors.New("property is nil")
	}
	if !propertyTypes[p.Type] {
		return fmt.Errorf("unknown type %q", p.Type)
	}
	if p.Type == "array" && p.Items != nil {
		if err := p.Items.Validate(); err != nil {
			return fmt.Errorf("items: %w", err)
		}
	}
	for name, child := range p.Properties {
		if err := child.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Clone returns a deep copy of the tool.
func (t *Tool) Clone() *Tool {
	if t == nil {
		return nil
	}
	out := *t
	if t.Schema != nil {
		schema := *t.Schema
		schema.Properties = cloneProperties(t.Schema.Properties)
		schema.Required = append([]string(nil), t.Schema.Required...)
		if t.Schema.AdditionalProperties != nil {
			v := *t.Schema.AdditionalProperties
			schema.AdditionalProperties = &v
		}
		out.Schema = &schema
	}
	return &out
}

func cloneProperties(in map[string]*Property) map[string]*Property {
	if in == nil {
		return nil
	}
	out := make(map[string]*Property, len(in))
	for k, p := range in {
		out[k] = p.clone()
	}
	return out
}

func (p *Property) clone() *Property {
	if p == nil {
		return nil
	}
	out := *p
	out.Enum = append([]any(nil), p.Enum...)
	out.Required = append([]string(nil), p.Required...)
	if p.MinLength != nil {
		v := *p.MinLength
		out.MinLength = &v
	}
	out.Items = p.Items.clone()
	out.Properties = cloneProperties(p.Properties)
	return &out
}

// Definition converts the tool to the form sent in a run input.
func (t *Tool) Definition() (core.Tool, error) {
	params, err := json.Marshal(t.Schema)
	if err != nil {
		return core.Tool{}, fmt.Errorf("encode %s schema: %w", t.Name, err)
	}
	return core.Tool{Name: t.Name, Description: t.Description, Parameters: params}, nil
}
