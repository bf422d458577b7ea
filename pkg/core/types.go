package core

import (
	"encoding/json"

	"github.com/site-operator/go-sdk/pkg/core/events"
)

// ContextItem is a piece of ambient knowledge forwarded to the agent with
// every run (current time, application context, ...).
type ContextItem struct {
	Description string `json:"description"`
	Value       string `json:"value"`
}

// Tool describes a client-side tool the agent may call.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// RunAgentInput is the request body of a single agent run.
type RunAgentInput struct {
	ThreadID       string           `json:"threadId"`
	RunID          string           `json:"runId"`
	Messages       []events.Message `json:"messages"`
	State          any              `json:"state"`
	Tools          []Tool           `json:"tools"`
	Context        []ContextItem    `json:"context"`
	ForwardedProps any              `json:"forwardedProps,omitempty"`
}

// Validate checks the fields every transport relies on.
func (in *RunAgentInput) Validate() error {
	if in == nil {
		return &ConfigError{Field: "input", Value: nil, Err: ErrInvalidConfig}
	}
	if in.ThreadID == "" {
		return &ConfigError{Field: "threadId", Value: in.ThreadID, Err: ErrInvalidConfig}
	}
	if in.RunID == "" {
		return &ConfigError{Field: "runId", Value: in.RunID, Err: ErrInvalidConfig}
	}
	return nil
}

// NewContextItem builds a context item whose value is the JSON encoding of v.
// Strings are forwarded as-is.
func NewContextItem(description string, v any) (ContextItem, error) {
	if s, ok := v.(string); ok {
		return ContextItem{Description: description, Value: s}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ContextItem{}, err
	}
	return ContextItem{Description: description, Value: string(data)}, nil
}
