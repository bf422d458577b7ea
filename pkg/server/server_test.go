package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/site-operator/go-sdk/internal/protocol"
	"github.com/site-operator/go-sdk/pkg/conversation"
	"github.com/site-operator/go-sdk/pkg/core"
	"github.com/site-operator/go-sdk/pkg/core/events"
	"github.com/site-operator/go-sdk/pkg/server"
)

func newTestServer(t *testing.T) (*server.Server, *httptest.Server) {
	t.Helper()
	s := server.New(server.Config{})
	s.RegisterAgent(server.DefaultAgent, &server.EchoAgent{})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func userInput(text string) core.RunAgentInput {
	return core.RunAgentInput{
		Messages: []events.Message{{ID: "m1", Role: "user", Content: &text}},
	}
}

func runSSE(t *testing.T, url string, input core.RunAgentInput) []events.Event {
	t.Helper()
	body, err := json.Marshal(input)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var out []events.Event
	r := protocol.NewSSEReader(resp.Body)
	for {
		frame, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		e, err := events.EventFromJSON(frame.Data)
		require.NoError(t, err)
		out = append(out, e)
	}
}

func types(evs []events.Event) []events.EventType {
	out := make([]events.EventType, len(evs))
	for i, e := range evs {
		out[i] = e.Type()
	}
	return out
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegistry(t *testing.T) {
	s := server.New(server.Config{})
	_, ok := s.GetAgent("x")
	assert.False(t, ok)

	s.RegisterAgent("x", &server.EchoAgent{})
	_, ok = s.GetAgent("x")
	assert.True(t, ok)

	s.UnregisterAgent("x")
	_, ok = s.GetAgent("x")
	assert.False(t, ok)
}

func TestSSEEcho(t *testing.T) {
	_, ts := newTestServer(t)
	evs := runSSE(t, ts.URL+"/agent", userInput("hello there"))

	require.NotEmpty(t, evs)
	assert.Equal(t, events.EventTypeRunStarted, evs[0].Type())
	assert.Equal(t, events.EventTypeRunFinished, evs[len(evs)-1].Type())
	assert.Contains(t, types(evs), events.EventTypeStateSnapshot)

	var text strings.Builder
	for _, e := range evs {
		if c, ok := e.(*events.TextMessageContentEvent); ok {
			text.WriteString(c.Delta)
		}
	}
	assert.Equal(t, "You said: hello there", text.String())

	started := evs[0].(*events.RunStartedEvent)
	assert.NotEmpty(t, started.ThreadID)
	assert.NotEmpty(t, started.RunID)
}

func TestSSECommands(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		name  string
		input string
		check func(t *testing.T, evs []events.Event)
	}{
		{
			name:  "navigate",
			input: "Go to /leads",
			check: func(t *testing.T, evs []events.Event) {
				var start *events.ToolCallStartEvent
				var args string
				for _, e := range evs {
					switch ev := e.(type) {
					case *events.ToolCallStartEvent:
						start = ev
					case *events.ToolCallArgsEvent:
						args += ev.Delta
					}
				}
				require.NotNil(t, start)
				assert.Equal(t, "navigate_user", start.ToolCallName)
				assert.JSONEq(t, `{"path":"/leads","reason":"requested by user"}`, args)
			},
		},
		{
			name:  "form",
			input: "form",
			check: func(t *testing.T, evs []events.Event) {
				var snaps []*events.ActivitySnapshotEvent
				for _, e := range evs {
					if s, ok := e.(*events.ActivitySnapshotEvent); ok {
						snaps = append(snaps, s)
					}
				}
				require.Len(t, snaps, 2)
				assert.Equal(t, "a2ui", snaps[0].ActivityType)
				assert.True(t, snaps[0].ShouldReplace())
				assert.False(t, snaps[1].ShouldReplace())
				assert.Equal(t, snaps[0].MessageID, snaps[1].MessageID)
			},
		},
		{
			name:  "click",
			input: "click btn.save",
			check: func(t *testing.T, evs []events.Event) {
				var snap *events.ActivitySnapshotEvent
				for _, e := range evs {
					if s, ok := e.(*events.ActivitySnapshotEvent); ok {
						snap = s
					}
				}
				require.NotNil(t, snap)
				assert.Equal(t, "click", snap.ActivityType)
				assert.JSONEq(t, `{"targetId":"btn.save"}`, string(snap.Content))
			},
		},
		{
			name:  "fail",
			input: "fail",
			check: func(t *testing.T, evs []events.Event) {
				last, ok := evs[len(evs)-1].(*events.RunErrorEvent)
				require.True(t, ok)
				assert.Equal(t, server.ErrScriptedFailure.Error(), last.Message)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := userInput(tt.input)
			input.ThreadID = "thread_fixed"
			input.RunID = "run_fixed"
			evs := runSSE(t, ts.URL+"/agent", input)
			require.NotEmpty(t, evs)
			tt.check(t, evs)
		})
	}
}

func TestSSEUnknownAgent(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Post(ts.URL+"/agent/missing", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSSEBadBody(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Post(ts.URL+"/agent", "application/json", strings.NewReader(`{bad`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAgentFunc(t *testing.T) {
	s := server.New(server.Config{})
	s.RegisterAgent("custom", server.AgentFunc(func(ctx context.Context, in *core.RunAgentInput, emit func(events.Event) error) error {
		if err := emit(events.NewRunStartedEvent(in.ThreadID, in.RunID)); err != nil {
			return err
		}
		return emit(events.NewRunFinishedEvent(in.ThreadID, in.RunID))
	}))
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	evs := runSSE(t, ts.URL+"/agent/custom", core.RunAgentInput{ThreadID: "t1", RunID: "r1"})
	assert.Equal(t, []events.EventType{events.EventTypeRunStarted, events.EventTypeRunFinished}, types(evs))
}

func TestConversationsAPI(t *testing.T) {
	_, ts := newTestServer(t)
	base := ts.URL + conversation.Path

	resp, err := http.Post(base, "application/json", strings.NewReader(`{"title":"Leads"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created conversation.Conversation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	assert.Equal(t, "Leads", created.Title)
	assert.Equal(t, "dev", created.UserID)

	resp, err = http.Get(base + "/" + created.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(base + "/missing")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	req, err := http.NewRequest(http.MethodPut, base+"/"+created.ID, strings.NewReader(`{"title":"Renamed"}`))
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	var updated conversation.Conversation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
	resp.Body.Close()
	assert.Equal(t, "Renamed", updated.Title)

	req, err = http.NewRequest(http.MethodDelete, base+"/"+created.ID, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(base)
	require.NoError(t, err)
	var list []conversation.Conversation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	assert.Empty(t, list)
}
