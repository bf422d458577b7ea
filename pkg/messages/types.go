package messages

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/site-operator/go-sdk/pkg/core/events"
	"github.com/site-operator/go-sdk/pkg/ids"
)

// MessageRole represents the role of a message sender
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
	RoleTool      MessageRole = "tool"
	RoleDeveloper MessageRole = "developer"
	RoleActivity  MessageRole = "activity"
)

// Validate validates that a role is one of the allowed values
func (r MessageRole) Validate() error {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool, RoleDeveloper, RoleActivity:
		return nil
	default:
		return fmt.Errorf("invalid role: %s", r)
	}
}

// ToolCall represents a tool/function call within a message
type ToolCall = events.ToolCall

// Function represents a function call
type Function = events.Function

// NewToolCall builds a function tool call.
func NewToolCall(id, name, arguments string) ToolCall {
	return ToolCall{ID: id, Type: "function", Function: Function{Name: name, Arguments: arguments}}
}

// Message is one entry of a conversation.
//
// Text roles use Content. Activity messages carry structured JSON in Data,
// tagged by ActivityType. IsThinking marks the local placeholder shown
// while waiting for the first assistant token; it is never sent to the agent.
type Message struct {
	ID           string          `json:"id"`
	Role         MessageRole     `json:"role"`
	Content      string          `json:"content,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
	ActivityType string          `json:"activityType,omitempty"`
	Name         string          `json:"name,omitempty"`
	ToolCalls    []ToolCall      `json:"toolCalls,omitempty"`
	ToolCallID   string          `json:"toolCallId,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	IsThinking   bool            `json:"isThinking,omitempty"`
}

func newMessage(role MessageRole, content string) Message {
	return Message{
		ID:        ids.NewMessageID(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// NewUserMessage creates a new user message
func NewUserMessage(content string) Message {
	return newMessage(RoleUser, content)
}

// NewAssistantMessage creates a new assistant message
func NewAssistantMessage(content string) Message {
	return newMessage(RoleAssistant, content)
}

// NewAssistantMessageWithTools creates an assistant message that only carries tool calls
func NewAssistantMessageWithTools(toolCalls ...ToolCall) Message {
	m := newMessage(RoleAssistant, "")
	m.ToolCalls = toolCalls
	return m
}

// NewSystemMessage creates a new system message
func NewSystemMessage(content string) Message {
	return newMessage(RoleSystem, content)
}

// NewDeveloperMessage creates a new developer message
func NewDeveloperMessage(content string) Message {
	return newMessage(RoleDeveloper, content)
}

// NewToolMessage creates a tool result message. An empty toolCallID gets a
// generated one.
func NewToolMessage(content, toolCallID string) Message {
	m := newMessage(RoleTool, content)
	if toolCallID == "" {
		toolCallID = ids.NewToolCallID()
	}
	m.ToolCallID = toolCallID
	return m
}

// NewActivityMessage creates an activity message with structured content.
func NewActivityMessage(activityType string, data any) (Message, error) {
	raw, err := marshalData(data)
	if err != nil {
		return Message{}, fmt.Errorf("activity %s: %w", activityType, err)
	}
	m := newMessage(RoleActivity, "")
	m.ActivityType = activityType
	m.Data = raw
	return m, nil
}

// NewTextActivityMessage wraps plain text as {"text": content}.
func NewTextActivityMessage(activityType, content string) Message {
	m, _ := NewActivityMessage(activityType, map[string]string{"text": content})
	return m
}

// NewPlaceholder returns the optimistic "thinking" assistant message.
func NewPlaceholder() Message {
	m := newMessage(RoleAssistant, "")
	m.IsThinking = true
	return m
}

// New builds a message of the given role from text content.
func New(role MessageRole, content string) (Message, error) {
	switch role {
	case RoleUser:
		return NewUserMessage(content), nil
	case RoleAssistant:
		return NewAssistantMessage(content), nil
	case RoleSystem:
		return NewSystemMessage(content), nil
	case RoleDeveloper:
		return NewDeveloperMessage(content), nil
	case RoleTool:
		return NewToolMessage(content, ""), nil
	case RoleActivity:
		return NewTextActivityMessage("text", content), nil
	default:
		return Message{}, fmt.Errorf("invalid role: %s", role)
	}
}

// Validate validates the message according to its role
func (m Message) Validate() error {
	if m.ID == "" {
		return NewValidationError("message id is required", ValidationViolation{Field: "id", Message: "id is required"})
	}
	if err := m.Role.Validate(); err != nil {
		return NewValidationError(err.Error(), ValidationViolation{Field: "role", Message: "unknown role", Value: m.Role})
	}

	switch m.Role {
	case RoleTool:
		if m.ToolCallID == "" {
			return NewValidationError("tool message toolCallId is required", ValidationViolation{Field: "toolCallId", Message: "toolCallId is required"})
		}
	case RoleActivity:
		if m.ActivityType == "" {
			return NewValidationError("activity message activityType is required", ValidationViolation{Field: "activityType", Message: "activityType is required"})
		}
	case RoleAssistant:
		for i, tc := range m.ToolCalls {
			if tc.ID == "" {
				return fmt.Errorf("tool call at index %d missing ID", i)
			}
			if tc.Function.Name == "" {
				return fmt.Errorf("tool call at index %d missing function name", i)
			}
		}
	}
	return nil
}

// Clone returns a copy that shares no mutable state with m.
func (m Message) Clone() Message {
	out := m
	if m.Data != nil {
		out.Data = append(json.RawMessage(nil), m.Data...)
	}
	if m.ToolCalls != nil {
		out.ToolCalls = append([]ToolCall(nil), m.ToolCalls...)
	}
	return out
}

// ToWire converts the message to its protocol representation.
func (m Message) ToWire() events.Message {
	w := events.Message{
		ID:           m.ID,
		Role:         string(m.Role),
		ToolCalls:    m.ToolCalls,
		ActivityType: m.ActivityType,
	}
	if m.Role == RoleActivity || len(m.Data) > 0 {
		w.ContentObject = m.Data
	} else if m.Content != "" || len(m.ToolCalls) == 0 {
		content := m.Content
		w.Content = &content
	}
	if m.Name != "" {
		name := m.Name
		w.Name = &name
	}
	if m.ToolCallID != "" {
		id := m.ToolCallID
		w.ToolCallID = &id
	}
	return w
}

// FromWire converts a protocol message.
func FromWire(w events.Message) Message {
	m := Message{
		ID:           w.ID,
		Role:         MessageRole(w.Role),
		ToolCalls:    w.ToolCalls,
		ActivityType: w.ActivityType,
		CreatedAt:    time.Now(),
	}
	if w.Content != nil {
		m.Content = *w.Content
	}
	if len(w.ContentObject) > 0 {
		m.Data = append(json.RawMessage(nil), w.ContentObject...)
	}
	if w.Name != nil {
		m.Name = *w.Name
	}
	if w.ToolCallID != nil {
		m.ToolCallID = *w.ToolCallID
	}
	return m
}

// ToWireList converts messages for a run request, skipping placeholders.
func ToWireList(msgs []Message) []events.Message {
	out := make([]events.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.IsThinking {
			continue
		}
		out = append(out, m.ToWire())
	}
	return out
}

func marshalData(data any) (json.RawMessage, error) {
	switch d := data.(type) {
	case nil:
		return json.RawMessage("{}"), nil
	case json.RawMessage:
		return d, nil
	case []byte:
		if !json.Valid(d) {
			return nil, fmt.Errorf("data is not valid JSON")
		}
		return json.RawMessage(d), nil
	case string:
		if t := strings.TrimSpace(d); strings.HasPrefix(t, "{") && json.Valid([]byte(t)) {
			return json.RawMessage(d), nil
		}
		return json.Marshal(map[string]string{"text": d})
	default:
		return json.Marshal(d)
	}
}
