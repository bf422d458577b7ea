package events

import (
	"encoding/json"
	"fmt"
)

// ActivitySnapshotEvent publishes the full content of an activity message.
// Activity messages carry structured, non-text output such as generative UI
// surfaces or host actions.
type ActivitySnapshotEvent struct {
	*BaseEvent
	MessageID    string          `json:"messageId"`
	ActivityType string          `json:"activityType"`
	Content      json.RawMessage `json:"content"`
	// Replace defaults to true when absent.
	Replace *bool `json:"replace,omitempty"`
}

// NewActivitySnapshotEvent creates a new activity snapshot event. content is
// marshaled to JSON unless it already is a json.RawMessage.
func NewActivitySnapshotEvent(messageID, activityType string, content any, options ...ActivitySnapshotOption) (*ActivitySnapshotEvent, error) {
	raw, err := toRaw(content)
	if err != nil {
		return nil, fmt.Errorf("activity %s: %w", messageID, err)
	}
	event := &ActivitySnapshotEvent{
		BaseEvent:    NewBaseEvent(EventTypeActivitySnapshot),
		MessageID:    messageID,
		ActivityType: activityType,
		Content:      raw,
	}
	for _, opt := range options {
		opt(event)
	}
	return event, nil
}

// ActivitySnapshotOption defines options for creating activity snapshot events
type ActivitySnapshotOption func(*ActivitySnapshotEvent)

// WithReplace sets the replace flag of the snapshot
func WithReplace(replace bool) ActivitySnapshotOption {
	return func(e *ActivitySnapshotEvent) {
		e.Replace = &replace
	}
}

// ShouldReplace reports whether the snapshot replaces prior content.
func (e *ActivitySnapshotEvent) ShouldReplace() bool {
	return e.Replace == nil || *e.Replace
}

// Validate validates the activity snapshot event
func (e *ActivitySnapshotEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}
	if e.MessageID == "" {
		return fmt.Errorf("ActivitySnapshotEvent validation failed: messageId field is required")
	}
	if e.ActivityType == "" {
		return fmt.Errorf("ActivitySnapshotEvent validation failed: activityType field is required")
	}
	return nil
}

// ToJSON serializes the event to JSON
func (e *ActivitySnapshotEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ActivityDeltaEvent patches the content of an activity message
type ActivityDeltaEvent struct {
	*BaseEvent
	MessageID    string               `json:"messageId"`
	ActivityType string               `json:"activityType"`
	Patch        []JSONPatchOperation `json:"patch"`
}

// NewActivityDeltaEvent creates a new activity delta event
func NewActivityDeltaEvent(messageID, activityType string, patch []JSONPatchOperation) *ActivityDeltaEvent {
	return &ActivityDeltaEvent{
		BaseEvent:    NewBaseEvent(EventTypeActivityDelta),
		MessageID:    messageID,
		ActivityType: activityType,
		Patch:        patch,
	}
}

// Validate validates the activity delta event
func (e *ActivityDeltaEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}
	if e.MessageID == "" {
		return fmt.Errorf("ActivityDeltaEvent validation failed: messageId field is required")
	}
	if len(e.Patch) == 0 {
		return fmt.Errorf("ActivityDeltaEvent validation failed: patch must contain at least one operation")
	}
	for i, op := range e.Patch {
		if err := op.Validate(); err != nil {
			return fmt.Errorf("ActivityDeltaEvent validation failed: invalid operation at index %d: %w", i, err)
		}
	}
	return nil
}

// ToJSON serializes the event to JSON
func (e *ActivityDeltaEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func toRaw(v any) (json.RawMessage, error) {
	switch c := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return c, nil
	case []byte:
		if !json.Valid(c) {
			return nil, fmt.Errorf("content is not valid JSON")
		}
		return json.RawMessage(c), nil
	default:
		return json.Marshal(c)
	}
}
