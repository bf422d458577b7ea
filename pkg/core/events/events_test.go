package events

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventFromJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, e Event)
	}{
		{
			name:  "run started",
			input: `{"type":"RUN_STARTED","threadId":"thr_1","runId":"run_1"}`,
			check: func(t *testing.T, e Event) {
				rs := e.(*RunStartedEvent)
				assert.Equal(t, "thr_1", rs.ThreadID)
				assert.Equal(t, "run_1", rs.RunID)
			},
		},
		{
			name:  "text message start without role",
			input: `{"type":"TEXT_MESSAGE_START","messageId":"m1"}`,
			check: func(t *testing.T, e Event) {
				assert.Equal(t, "assistant", e.(*TextMessageStartEvent).RoleOrDefault())
			},
		},
		{
			name:  "tool call result",
			input: `{"type":"TOOL_CALL_RESULT","messageId":"m2","toolCallId":"tc_1","content":"done"}`,
			check: func(t *testing.T, e Event) {
				r := e.(*ToolCallResultEvent)
				assert.Equal(t, "tc_1", r.ToolCallID)
				assert.Equal(t, "done", r.Content)
			},
		},
		{
			name:  "activity snapshot keeps raw content",
			input: `{"type":"ACTIVITY_SNAPSHOT","messageId":"a1","activityType":"a2ui","content":{"deleteSurface":{"surfaceId":"s"}},"replace":false}`,
			check: func(t *testing.T, e Event) {
				a := e.(*ActivitySnapshotEvent)
				assert.Equal(t, "a2ui", a.ActivityType)
				assert.JSONEq(t, `{"deleteSurface":{"surfaceId":"s"}}`, string(a.Content))
				assert.False(t, a.ShouldReplace())
			},
		},
		{
			name:  "activity delta",
			input: `{"type":"ACTIVITY_DELTA","messageId":"a1","activityType":"a2ui","patch":[{"op":"replace","path":"/x","value":1}]}`,
			check: func(t *testing.T, e Event) {
				d := e.(*ActivityDeltaEvent)
				require.Len(t, d.Patch, 1)
				assert.Equal(t, "/x", d.Patch[0].Path)
				assert.NoError(t, d.Validate())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := EventFromJSON([]byte(tt.input))
			require.NoError(t, err)
			tt.check(t, e)
		})
	}
}

func TestEventFromJSONErrors(t *testing.T) {
	_, err := EventFromJSON([]byte(`{"type":"NOPE"}`))
	assert.True(t, errors.Is(err, ErrUnknownEventType))

	_, err = EventFromJSON([]byte(`not json`))
	assert.Error(t, err)
}

func TestActivitySnapshotDefaultsToReplace(t *testing.T) {
	e, err := NewActivitySnapshotEvent("a1", "a2ui", map[string]any{"k": "v"})
	require.NoError(t, err)
	assert.True(t, e.ShouldReplace())

	e, err = NewActivitySnapshotEvent("a1", "a2ui", nil, WithReplace(false))
	require.NoError(t, err)
	assert.False(t, e.ShouldReplace())

	_, err = NewActivitySnapshotEvent("a1", "a2ui", []byte("{broken"))
	assert.Error(t, err)
}

func TestMessageContentForms(t *testing.T) {
	t.Run("string content", func(t *testing.T) {
		var m Message
		require.NoError(t, json.Unmarshal([]byte(`{"id":"m","role":"user","content":"hi"}`), &m))
		require.NotNil(t, m.Content)
		assert.Equal(t, "hi", *m.Content)
		assert.Nil(t, m.ContentObject)

		out, err := json.Marshal(m)
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":"m","role":"user","content":"hi"}`, string(out))
	})

	t.Run("object content", func(t *testing.T) {
		var m Message
		require.NoError(t, json.Unmarshal([]byte(`{"id":"a","role":"activity","activityType":"a2ui","content":{"operations":[]}}`), &m))
		assert.Nil(t, m.Content)
		assert.JSONEq(t, `{"operations":[]}`, string(m.ContentObject))
		assert.Equal(t, "a2ui", m.ActivityType)

		out, err := json.Marshal(m)
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":"a","role":"activity","activityType":"a2ui","content":{"operations":[]}}`, string(out))
	})

	t.Run("null content", func(t *testing.T) {
		var m Message
		require.NoError(t, json.Unmarshal([]byte(`{"id":"x","role":"assistant","content":null}`), &m))
		assert.Nil(t, m.Content)
		assert.Nil(t, m.ContentObject)
	})
}

func TestClientToolCall(t *testing.T) {
	e := NewClientToolCallEvent("highlight", map[string]any{"id": "btn"})
	call, ok := e.AsClientToolCall()
	require.True(t, ok)
	assert.Equal(t, "highlight", call.ToolName)

	data, err := e.ToJSON()
	require.NoError(t, err)
	decoded, err := EventFromJSON(data)
	require.NoError(t, err)
	call, ok = decoded.(*CustomEvent).AsClientToolCall()
	require.True(t, ok)
	assert.Equal(t, "btn", call.Args["id"])

	_, ok = NewCustomEvent("other").AsClientToolCall()
	assert.False(t, ok)
}

func TestValidateSequence(t *testing.T) {
	t.Run("valid run", func(t *testing.T) {
		seq := []Event{
			NewRunStartedEvent("thr", "run"),
			NewTextMessageStartEvent("m1"),
			NewTextMessageContentEvent("m1", "hi"),
			NewTextMessageEndEvent("m1"),
			NewToolCallStartEvent("tc1", "navigate_user"),
			NewToolCallArgsEvent("tc1", `{"path":"/x"}`),
			NewToolCallEndEvent("tc1"),
			NewRunFinishedEvent("thr", "run"),
		}
		assert.NoError(t, ValidateSequence(seq))
	})

	t.Run("content before start", func(t *testing.T) {
		seq := []Event{NewTextMessageContentEvent("m1", "hi")}
		assert.ErrorContains(t, ValidateSequence(seq), "not started")
	})

	t.Run("restart finished run", func(t *testing.T) {
		seq := []Event{
			NewRunStartedEvent("thr", "run"),
			NewRunFinishedEvent("thr", "run"),
			NewRunStartedEvent("thr", "run"),
		}
		assert.ErrorContains(t, ValidateSequence(seq), "cannot restart")
	})
}

func TestEventsJSONBatch(t *testing.T) {
	in := []Event{NewRunStartedEvent("t", "r"), NewRunFinishedEvent("t", "r")}
	data, err := EventsToJSON(in)
	require.NoError(t, err)
	out, err := EventsFromJSON(data)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, EventTypeRunFinished, out[1].Type())
}

func TestGenerators(t *testing.T) {
	assert.Regexp(t, `^msg_[0-9a-f]{8}$`, GenerateMessageID())
	assert.Regexp(t, `^thr_[0-9a-f]{8}$`, GenerateThreadID())
	assert.Regexp(t, `^tc_[0-9a-f]{8}$`, GenerateToolCallID())
	assert.Regexp(t, `^run_`, GenerateRunID())
}

func TestRunEvents(t *testing.T) {
	t.Run("options", func(t *testing.T) {
		started := NewRunStartedEvent("thr", "run_2", WithParentRunID("run_1"))
		assert.Equal(t, "run_1", started.ParentRunID)

		finished := NewRunFinishedEvent("thr", "run_2", WithResult(map[string]any{"rows": 3}))
		data, err := finished.ToJSON()
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"RUN_FINISHED","threadId":"thr","runId":"run_2","result":{"rows":3}}`, stripTimestamp(t, data))

		e, err := EventFromJSON(data)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"rows": 3.0}, e.(*RunFinishedEvent).Result)

		failed := NewRunErrorEvent("boom", WithErrorCode("overloaded"), WithRunID("run_2"))
		require.NotNil(t, failed.Code)
		assert.Equal(t, "overloaded", *failed.Code)
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name  string
			event Event
			err   error
		}{
			{"started", NewRunStartedEvent("thr", "run"), nil},
			{"started without thread", NewRunStartedEvent("", "run"), errThreadIDRequired},
			{"finished without run", NewRunFinishedEvent("thr", ""), errRunIDRequired},
			{"step without name", NewStepStartedEvent(""), errStepNameRequired},
			{"step finished", NewStepFinishedEvent("plan"), nil},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := tt.event.Validate()
				if tt.err == nil {
					assert.NoError(t, err)
					return
				}
				assert.ErrorIs(t, err, tt.err)
			})
		}
	})
}

func stripTimestamp(t *testing.T, data []byte) string {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	delete(m, "timestamp")
	out, err := json.Marshal(m)
	require.NoError(t, err)
	return string(out)
}
