package events

import (
	"encoding/json"
	"fmt"
)

// EventFromJSON parses an event from JSON data
func EventFromJSON(data []byte) (Event, error) {
	var base struct {
		Type EventType `json:"type"`
	}

	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("failed to parse event type: %w", err)
	}

	event, err := newEventOfType(base.Type)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s event: %w", base.Type, err)
	}

	return event, nil
}

func newEventOfType(t EventType) (Event, error) {
	switch t {
	case EventTypeRunStarted:
		return &RunStartedEvent{}, nil
	case EventTypeRunFinished:
		return &RunFinishedEvent{}, nil
	case EventTypeRunError:
		return &RunErrorEvent{}, nil
	case EventTypeStepStarted:
		return &StepStartedEvent{}, nil
	case EventTypeStepFinished:
		return &StepFinishedEvent{}, nil
	case EventTypeTextMessageStart:
		return &TextMessageStartEvent{}, nil
	case EventTypeTextMessageContent:
		return &TextMessageContentEvent{}, nil
	case EventTypeTextMessageEnd:
		return &TextMessageEndEvent{}, nil
	case EventTypeToolCallStart:
		return &ToolCallStartEvent{}, nil
	case EventTypeToolCallArgs:
		return &ToolCallArgsEvent{}, nil
	case EventTypeToolCallEnd:
		return &ToolCallEndEvent{}, nil
	case EventTypeToolCallResult:
		return &ToolCallResultEvent{}, nil
	case EventTypeStateSnapshot:
		return &StateSnapshotEvent{}, nil
	case EventTypeStateDelta:
		return &StateDeltaEvent{}, nil
	case EventTypeMessagesSnapshot:
		return &MessagesSnapshotEvent{}, nil
	case EventTypeActivitySnapshot:
		return &ActivitySnapshotEvent{}, nil
	case EventTypeActivityDelta:
		return &ActivityDeltaEvent{}, nil
	case EventTypeRaw:
		return &RawEvent{}, nil
	case EventTypeCustom:
		return &CustomEvent{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, t)
	}
}

// EventsToJSON serializes a batch of events as a JSON array.
func EventsToJSON(events []Event) ([]byte, error) {
	raws := make([]json.RawMessage, 0, len(events))
	for i, e := range events {
		data, err := e.ToJSON()
		if err != nil {
			return nil, fmt.Errorf("event %d (%s): %w", i, e.Type(), err)
		}
		raws = append(raws, data)
	}
	return json.Marshal(raws)
}

// EventsFromJSON parses a JSON array of events.
func EventsFromJSON(data []byte) ([]Event, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("failed to parse event array: %w", err)
	}
	out := make([]Event, 0, len(raws))
	for i, raw := range raws {
		e, err := EventFromJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}
