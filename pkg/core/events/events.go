package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/site-operator/go-sdk/pkg/ids"
)

// EventType represents the type of AG-UI event
type EventType string

// AG-UI Event Type constants
const (
	EventTypeTextMessageStart   EventType = "TEXT_MESSAGE_START"
	EventTypeTextMessageContent EventType = "TEXT_MESSAGE_CONTENT"
	EventTypeTextMessageEnd     EventType = "TEXT_MESSAGE_END"
	EventTypeToolCallStart      EventType = "TOOL_CALL_START"
	EventTypeToolCallArgs       EventType = "TOOL_CALL_ARGS"
	EventTypeToolCallEnd        EventType = "TOOL_CALL_END"
	EventTypeToolCallResult     EventType = "TOOL_CALL_RESULT"
	EventTypeStateSnapshot      EventType = "STATE_SNAPSHOT"
	EventTypeStateDelta         EventType = "STATE_DELTA"
	EventTypeMessagesSnapshot   EventType = "MESSAGES_SNAPSHOT"
	EventTypeActivitySnapshot   EventType = "ACTIVITY_SNAPSHOT"
	EventTypeActivityDelta      EventType = "ACTIVITY_DELTA"
	EventTypeRaw                EventType = "RAW"
	EventTypeCustom             EventType = "CUSTOM"
	EventTypeRunStarted         EventType = "RUN_STARTED"
	EventTypeRunFinished        EventType = "RUN_FINISHED"
	EventTypeRunError           EventType = "RUN_ERROR"
	EventTypeStepStarted        EventType = "STEP_STARTED"
	EventTypeStepFinished       EventType = "STEP_FINISHED"

	// EventTypeUnknown represents an unrecognized event type
	EventTypeUnknown EventType = "UNKNOWN"
)

// ErrUnknownEventType is returned when decoding an event whose type is not recognized.
var ErrUnknownEventType = errors.New("unknown event type")

var validEventTypes = map[EventType]bool{
	EventTypeTextMessageStart:   true,
	EventTypeTextMessageContent: true,
	EventTypeTextMessageEnd:     true,
	EventTypeToolCallStart:      true,
	EventTypeToolCallArgs:       true,
	EventTypeToolCallEnd:        true,
	EventTypeToolCallResult:     true,
	EventTypeStateSnapshot:      true,
	EventTypeStateDelta:         true,
	EventTypeMessagesSnapshot:   true,
	EventTypeActivitySnapshot:   true,
	EventTypeActivityDelta:      true,
	EventTypeRaw:                true,
	EventTypeCustom:             true,
	EventTypeRunStarted:         true,
	EventTypeRunFinished:        true,
	EventTypeRunError:           true,
	EventTypeStepStarted:        true,
	EventTypeStepFinished:       true,
}

// Event defines the common interface for all AG-UI events
type Event interface {
	// Type returns the event type
	Type() EventType

	// Timestamp returns the event timestamp (Unix milliseconds)
	Timestamp() *int64

	// SetTimestamp sets the event timestamp
	SetTimestamp(timestamp int64)

	// Validate validates the event structure and content
	Validate() error

	// ToJSON serializes the event to JSON
	ToJSON() ([]byte, error)

	// GetBaseEvent returns the underlying base event
	GetBaseEvent() *BaseEvent
}

// BaseEvent provides common fields and functionality for all events
type BaseEvent struct {
	EventType   EventType `json:"type"`
	TimestampMs *int64    `json:"timestamp,omitempty"`
	RawEvent    any       `json:"rawEvent,omitempty"`
}

// Type returns the event type
func (b *BaseEvent) Type() EventType {
	return b.EventType
}

// Timestamp returns the event timestamp
func (b *BaseEvent) Timestamp() *int64 {
	return b.TimestampMs
}

// SetTimestamp sets the event timestamp
func (b *BaseEvent) SetTimestamp(timestamp int64) {
	b.TimestampMs = &timestamp
}

// GetBaseEvent returns the base event
func (b *BaseEvent) GetBaseEvent() *BaseEvent {
	return b
}

// NewBaseEvent creates a new base event with the given type and current timestamp
func NewBaseEvent(eventType EventType) *BaseEvent {
	now := time.Now().UnixMilli()
	return &BaseEvent{
		EventType:   eventType,
		TimestampMs: &now,
	}
}

// Validate validates the base event structure
func (b *BaseEvent) Validate() error {
	if b == nil {
		return fmt.Errorf("BaseEvent validation failed: base event is missing")
	}

	if b.EventType == "" {
		return fmt.Errorf("BaseEvent validation failed: type field is required")
	}

	if !IsValidEventType(b.EventType) {
		return fmt.Errorf("BaseEvent validation failed: invalid event type '%s'", b.EventType)
	}

	return nil
}

// IsValidEventType reports whether eventType is part of the protocol.
func IsValidEventType(eventType EventType) bool {
	return validEventTypes[eventType]
}

// GenerateMessageID returns a new message identifier.
func GenerateMessageID() string {
	return ids.NewMessageID()
}

// GenerateThreadID returns a new thread identifier.
func GenerateThreadID() string {
	return ids.NewThreadID()
}

// GenerateToolCallID returns a new tool call identifier.
func GenerateToolCallID() string {
	return ids.NewToolCallID()
}

// GenerateRunID returns a new run identifier.
func GenerateRunID() string {
	return ids.Short("run")
}

// ValidateSequence validates a sequence of events according to AG-UI protocol rules
func ValidateSequence(events []Event) error {
	if len(events) == 0 {
		return nil
	}

	activeRuns := make(map[string]bool)
	finishedRuns := make(map[string]bool)
	activeMessages := make(map[string]bool)
	activeToolCalls := make(map[string]bool)
	activeSteps := make(map[string]bool)

	for i, event := range events {
		if err := event.Validate(); err != nil {
			return fmt.Errorf("event %d validation failed: %w", i, err)
		}

		switch e := event.(type) {
		case *RunStartedEvent:
			if activeRuns[e.RunID] {
				return fmt.Errorf("run %s already started", e.RunID)
			}
			if finishedRuns[e.RunID] {
				return fmt.Errorf("cannot restart finished run %s", e.RunID)
			}
			activeRuns[e.RunID] = true

		case *RunFinishedEvent:
			if !activeRuns[e.RunID] {
				return fmt.Errorf("cannot finish run %s that was not started", e.RunID)
			}
			delete(activeRuns, e.RunID)
			finishedRuns[e.RunID] = true

		case *RunErrorEvent:
			if e.RunID != "" {
				if !activeRuns[e.RunID] {
					return fmt.Errorf("cannot error run %s that was not started", e.RunID)
				}
				delete(activeRuns, e.RunID)
				finishedRuns[e.RunID] = true
			}

		case *StepStartedEvent:
			if activeSteps[e.StepName] {
				return fmt.Errorf("step %s already started", e.StepName)
			}
			activeSteps[e.StepName] = true

		case *StepFinishedEvent:
			if !activeSteps[e.StepName] {
				return fmt.Errorf("cannot finish step %s that was not started", e.StepName)
			}
			delete(activeSteps, e.StepName)

		case *TextMessageStartEvent:
			if activeMessages[e.MessageID] {
				return fmt.Errorf("message %s already started", e.MessageID)
			}
			activeMessages[e.MessageID] = true

		case *TextMessageContentEvent:
			if !activeMessages[e.MessageID] {
				return fmt.Errorf("cannot add content to message %s that was not started", e.MessageID)
			}

		case *TextMessageEndEvent:
			if !activeMessages[e.MessageID] {
				return fmt.Errorf("cannot end message %s that was not started", e.MessageID)
			}
			delete(activeMessages, e.MessageID)

		case *ToolCallStartEvent:
			if activeToolCalls[e.ToolCallID] {
				return fmt.Errorf("tool call %s already started", e.ToolCallID)
			}
			activeToolCalls[e.ToolCallID] = true

		case *ToolCallArgsEvent:
			if !activeToolCalls[e.ToolCallID] {
				return fmt.Errorf("cannot add args to tool call %s that was not started", e.ToolCallID)
			}

		case *ToolCallEndEvent:
			if !activeToolCalls[e.ToolCallID] {
				return fmt.Errorf("cannot end tool call %s that was not started", e.ToolCallID)
			}
			delete(activeToolCalls, e.ToolCallID)

		case *ToolCallResultEvent, *StateSnapshotEvent, *StateDeltaEvent, *MessagesSnapshotEvent,
			*ActivitySnapshotEvent, *ActivityDeltaEvent, *RawEvent, *CustomEvent:
			// Snapshots, results and pass-through events may appear anywhere.

		default:
			return fmt.Errorf("unknown event type in sequence: %s", event.Type())
		}
	}

	return nil
}
