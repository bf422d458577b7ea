package client

import (
	"encoding/json"
	"strings"

	"github.com/site-operator/go-sdk/pkg/core/events"
)

// ToolCall is a tool call assembled from its START, ARGS and END events.
type ToolCall struct {
	ID              string
	Name            string
	ParentMessageID string
	// RawArgs is the concatenation of every ARGS delta.
	RawArgs string
}

// Args decodes RawArgs. Empty arguments decode to an empty map.
func (c ToolCall) Args() (map[string]any, error) {
	out := map[string]any{}
	if strings.TrimSpace(c.RawArgs) == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(c.RawArgs), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Subscriber receives the events of a run in delivery order. OnEvent is
// called for every event before the typed handler.
type Subscriber interface {
	OnEvent(e events.Event)

	OnRunStarted(e *events.RunStartedEvent)
	OnRunFinished(e *events.RunFinishedEvent)
	OnRunError(e *events.RunErrorEvent)
	OnStepStarted(e *events.StepStartedEvent)
	OnStepFinished(e *events.StepFinishedEvent)

	OnTextMessageStart(e *events.TextMessageStartEvent)
	OnTextMessageContent(e *events.TextMessageContentEvent)
	OnTextMessageEnd(e *events.TextMessageEndEvent)

	OnToolCallStart(e *events.ToolCallStartEvent)
	OnToolCallArgs(e *events.ToolCallArgsEvent)
	OnToolCallEnd(e *events.ToolCallEndEvent, call ToolCall)
	OnToolCallResult(e *events.ToolCallResultEvent)

	OnStateSnapshot(e *events.StateSnapshotEvent)
	OnStateDelta(e *events.StateDeltaEvent)
	OnMessagesSnapshot(e *events.MessagesSnapshotEvent)
	OnActivitySnapshot(e *events.ActivitySnapshotEvent)
	OnActivityDelta(e *events.ActivityDeltaEvent)

	OnCustomEvent(e *events.CustomEvent)
	OnClientToolCall(call events.ClientToolCall)
	OnRawEvent(e *events.RawEvent)

	// OnRunFailed is called when the transport fails before the run
	// reached RUN_FINISHED or RUN_ERROR.
	OnRunFailed(err error)
}

// NoopSubscriber implements Subscriber with empty methods. Embed it to
// handle only some events.
type NoopSubscriber struct{}

func (NoopSubscriber) OnEvent(events.Event)                                 {}
func (NoopSubscriber) OnRunStarted(*events.RunStartedEvent)                 {}
func (NoopSubscriber) OnRunFinished(*events.RunFinishedEvent)               {}
func (NoopSubscriber) OnRunError(*events.RunErrorEvent)                     {}
func (NoopSubscriber) OnStepStarted(*events.StepStartedEvent)               {}
func (NoopSubscriber) OnStepFinished(*events.StepFinishedEvent)             {}
func (NoopSubscriber) OnTextMessageStart(*events.TextMessageStartEvent)     {}
func (NoopSubscriber) OnTextMessageContent(*events.TextMessageContentEvent) {}
func (NoopSubscriber) OnTextMessageEnd(*events.TextMessageEndEvent)         {}
func (NoopSubscriber) OnToolCallStart(*events.ToolCallStartEvent)           {}
func (NoopSubscriber) OnToolCallArgs(*events.ToolCallArgsEvent)             {}
func (NoopSubscriber) OnToolCallEnd(*events.ToolCallEndEvent, ToolCall)     {}
func (NoopSubscriber) OnToolCallResult(*events.ToolCallResultEvent)         {}
func (NoopSubscriber) OnStateSnapshot(*events.StateSnapshotEvent)           {}
func (NoopSubscriber) OnStateDelta(*events.StateDeltaEvent)                 {}
func (NoopSubscriber) OnMessagesSnapshot(*events.MessagesSnapshotEvent)     {}
func (NoopSubscriber) OnActivitySnapshot(*events.ActivitySnapshotEvent)     {}
func (NoopSubscriber) OnActivityDelta(*events.ActivityDeltaEvent)           {}
func (NoopSubscriber) OnCustomEvent(*events.CustomEvent)                    {}
func (NoopSubscriber) OnClientToolCall(events.ClientToolCall)               {}
func (NoopSubscriber) OnRawEvent(*events.RawEvent)                          {}
func (NoopSubscriber) OnRunFailed(error)                                    {}

var _ Subscriber = NoopSubscriber{}
