// Package events provides the AG-UI protocol event types consumed by the
// site-operator chat core.
//
// # Event Types
//
// Run Lifecycle Events:
//   - RUN_STARTED, RUN_FINISHED, RUN_ERROR
//   - STEP_STARTED, STEP_FINISHED
//
// Message Events:
//   - TEXT_MESSAGE_START, TEXT_MESSAGE_CONTENT, TEXT_MESSAGE_END
//
// Tool Events:
//   - TOOL_CALL_START, TOOL_CALL_ARGS, TOOL_CALL_END, TOOL_CALL_RESULT
//
// State Events:
//   - STATE_SNAPSHOT, STATE_DELTA (JSON Patch, RFC 6902)
//   - MESSAGES_SNAPSHOT
//
// Activity Events:
//   - ACTIVITY_SNAPSHOT: full content of a structured activity message
//   - ACTIVITY_DELTA: JSON Patch against an activity message's content
//
// Custom Events:
//   - RAW, CUSTOM (including client_tool_call)
//
// # Basic Usage
//
//	import "github.com/site-operator/go-sdk/pkg/core/events"
//
//	runEvent := events.NewRunStartedEvent("thr_1a2b3c4d", events.GenerateRunID())
//	msgStart := events.NewTextMessageStartEvent("msg_1", events.WithRole("assistant"))
//	msgContent := events.NewTextMessageContentEvent("msg_1", "Hello")
//	msgEnd := events.NewTextMessageEndEvent("msg_1")
//
//	if err := events.ValidateSequence([]events.Event{runEvent, msgStart, msgContent, msgEnd}); err != nil {
//		log.Fatal(err)
//	}
//
// # Decoding
//
// EventFromJSON dispatches on the "type" field. Unknown types return an
// error wrapping ErrUnknownEventType so stream readers can skip them.
package events
