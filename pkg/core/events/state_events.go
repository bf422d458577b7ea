package events

import (
	"bytes"
	"encoding/json"
	"fmt"
)

var validJSONPatchOps = map[string]bool{
	"add":     true,
	"remove":  true,
	"replace": true,
	"move":    true,
	"copy":    true,
	"test":    true,
}

// StateSnapshotEvent contains a complete snapshot of the state
type StateSnapshotEvent struct {
	*BaseEvent
	Snapshot any `json:"snapshot"`
}

// NewStateSnapshotEvent creates a new state snapshot event
func NewStateSnapshotEvent(snapshot any) *StateSnapshotEvent {
	return &StateSnapshotEvent{
		BaseEvent: NewBaseEvent(EventTypeStateSnapshot),
		Snapshot:  snapshot,
	}
}

// Validate validates the state snapshot event
func (e *StateSnapshotEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}
	if e.Snapshot == nil {
		return fmt.Errorf("StateSnapshotEvent validation failed: snapshot field is required")
	}
	return nil
}

// ToJSON serializes the event to JSON
func (e *StateSnapshotEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// JSONPatchOperation represents a JSON Patch operation (RFC 6902)
type JSONPatchOperation struct {
	Op    string `json:"op"`              // "add", "remove", "replace", "move", "copy", "test"
	Path  string `json:"path"`            // JSON Pointer path
	Value any    `json:"value,omitempty"` // Value for add, replace, test operations
	From  string `json:"from,omitempty"`  // Source path for move, copy operations
}

// Validate checks a single patch operation.
func (op JSONPatchOperation) Validate() error {
	if !validJSONPatchOps[op.Op] {
		return fmt.Errorf("op field must be one of: add, remove, replace, move, copy, test, got: %s", op.Op)
	}
	if op.Path == "" {
		return fmt.Errorf("path field is required")
	}
	if (op.Op == "add" || op.Op == "replace" || op.Op == "test") && op.Value == nil {
		return fmt.Errorf("value field is required for %s operation", op.Op)
	}
	if (op.Op == "move" || op.Op == "copy") && op.From == "" {
		return fmt.Errorf("from field is required for %s operation", op.Op)
	}
	return nil
}

// StateDeltaEvent contains incremental state changes using JSON Patch
type StateDeltaEvent struct {
	*BaseEvent
	Delta []JSONPatchOperation `json:"delta"`
}

// NewStateDeltaEvent creates a new state delta event
func NewStateDeltaEvent(delta []JSONPatchOperation) *StateDeltaEvent {
	return &StateDeltaEvent{
		BaseEvent: NewBaseEvent(EventTypeStateDelta),
		Delta:     delta,
	}
}

// Validate validates the state delta event
func (e *StateDeltaEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}
	if len(e.Delta) == 0 {
		return fmt.Errorf("StateDeltaEvent validation failed: delta field must contain at least one operation")
	}
	for i, op := range e.Delta {
		if err := op.Validate(); err != nil {
			return fmt.Errorf("StateDeltaEvent validation failed: invalid operation at index %d: %w", i, err)
		}
	}
	return nil
}

// ToJSON serializes the event to JSON
func (e *StateDeltaEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Message represents a message in the conversation.
//
// On the wire "content" is a string for text roles and a JSON object for
// activity messages; the latter is kept verbatim in ContentObject.
type Message struct {
	ID            string          `json:"id"`
	Role          string          `json:"role"`
	Content       *string         `json:"-"`
	ContentObject json.RawMessage `json:"-"`
	Name          *string         `json:"name,omitempty"`
	ToolCalls     []ToolCall      `json:"toolCalls,omitempty"`
	ToolCallID    *string         `json:"toolCallId,omitempty"`
	ActivityType  string          `json:"activityType,omitempty"`
}

type messageWire struct {
	ID           string          `json:"id"`
	Role         string          `json:"role"`
	Content      json.RawMessage `json:"content,omitempty"`
	Name         *string         `json:"name,omitempty"`
	ToolCalls    []ToolCall      `json:"toolCalls,omitempty"`
	ToolCallID   *string         `json:"toolCallId,omitempty"`
	ActivityType string          `json:"activityType,omitempty"`
}

// MarshalJSON writes content as a string or as the raw object.
func (m Message) MarshalJSON() ([]byte, error) {
	w := messageWire{
		ID:           m.ID,
		Role:         m.Role,
		Name:         m.Name,
		ToolCalls:    m.ToolCalls,
		ToolCallID:   m.ToolCallID,
		ActivityType: m.ActivityType,
	}
	switch {
	case len(m.ContentObject) > 0:
		w.Content = m.ContentObject
	case m.Content != nil:
		data, err := json.Marshal(*m.Content)
		if err != nil {
			return nil, err
		}
		w.Content = data
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts both string and structured content.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w messageWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*m = Message{
		ID:           w.ID,
		Role:         w.Role,
		Name:         w.Name,
		ToolCalls:    w.ToolCalls,
		ToolCallID:   w.ToolCallID,
		ActivityType: w.ActivityType,
	}
	raw := bytes.TrimSpace(w.Content)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("message %s: invalid content: %w", w.ID, err)
		}
		m.Content = &s
	default:
		m.ContentObject = append(json.RawMessage(nil), raw...)
	}
	return nil
}

// ToolCall represents a tool call within a message
type ToolCall struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

// Function represents a function call
type Function struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// MessagesSnapshotEvent contains a snapshot of all messages
type MessagesSnapshotEvent struct {
	*BaseEvent
	Messages []Message `json:"messages"`
}

// NewMessagesSnapshotEvent creates a new messages snapshot event
func NewMessagesSnapshotEvent(messages []Message) *MessagesSnapshotEvent {
	return &MessagesSnapshotEvent{
		BaseEvent: NewBaseEvent(EventTypeMessagesSnapshot),
		Messages:  messages,
	}
}

// Validate validates the messages snapshot event
func (e *MessagesSnapshotEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}
	for i, msg := range e.Messages {
		if err := validateMessage(msg); err != nil {
			return fmt.Errorf("invalid message at index %d: %w", i, err)
		}
	}
	return nil
}

func validateMessage(msg Message) error {
	if msg.ID == "" {
		return fmt.Errorf("message id field is required")
	}
	if msg.Role == "" {
		return fmt.Errorf("message role field is required")
	}
	for i, toolCall := range msg.ToolCalls {
		if err := validateToolCall(toolCall); err != nil {
			return fmt.Errorf("invalid tool call at index %d: %w", i, err)
		}
	}
	return nil
}

func validateToolCall(toolCall ToolCall) error {
	if toolCall.ID == "" {
		return fmt.Errorf("tool call id field is required")
	}
	if toolCall.Type == "" {
		return fmt.Errorf("tool call type field is required")
	}
	if toolCall.Function.Name == "" {
		return fmt.Errorf("function name field is required")
	}
	return nil
}

// ToJSON serializes the event to JSON
func (e *MessagesSnapshotEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
