package client

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/site-operator/go-sdk/pkg/core"
	"github.com/site-operator/go-sdk/pkg/core/events"
	"github.com/site-operator/go-sdk/pkg/messages"
	"github.com/site-operator/go-sdk/pkg/transport"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "http url", config: Config{URL: "http://localhost:8080/agent"}},
		{name: "websocket url", config: Config{URL: "wss://api.example.com/agent/ws"}},
		{name: "explicit transport", config: Config{Transport: transport.Func(nil)}},
		{name: "empty URL", config: Config{}, wantErr: true},
		{name: "invalid URL scheme", config: Config{URL: "://invalid-scheme"}, wantErr: true},
		{name: "malformed URL", config: Config{URL: "http://[::1:80"}, wantErr: true},
		{name: "unsupported scheme", config: Config{URL: "ftp://example.com"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent, err := New(tt.config)
			if tt.wantErr {
				var configErr *core.ConfigError
				require.ErrorAs(t, err, &configErr)
				assert.Equal(t, "URL", configErr.Field)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, agent.ThreadID())
			assert.False(t, agent.IsRunning())
		})
	}
}

type recordingSubscriber struct {
	NoopSubscriber
	seen      []events.EventType
	toolCalls []ToolCall
	client    []events.ClientToolCall
	custom    []string
	failed    error
	running   []bool
	agent     *Agent
}

func (s *recordingSubscriber) OnEvent(e events.Event) {
	s.seen = append(s.seen, e.Type())
	if s.agent != nil {
		s.running = append(s.running, s.agent.IsRunning())
	}
}

func (s *recordingSubscriber) OnToolCallEnd(_ *events.ToolCallEndEvent, call ToolCall) {
	s.toolCalls = append(s.toolCalls, call)
}

func (s *recordingSubscriber) OnClientToolCall(call events.ClientToolCall) {
	s.client = append(s.client, call)
}

func (s *recordingSubscriber) OnCustomEvent(e *events.CustomEvent) {
	s.custom = append(s.custom, e.Name)
}

func (s *recordingSubscriber) OnRunFailed(err error) {
	s.failed = err
}

func scripted(evs ...events.Event) transport.Func {
	return func(_ context.Context, _ *core.RunAgentInput, handle transport.Handler) error {
		for _, e := range evs {
			handle(e)
		}
		return nil
	}
}

func TestRunAgentDispatch(t *testing.T) {
	agent, err := New(Config{
		ThreadID: "thr_1",
		Transport: scripted(
			events.NewRunStartedEvent("thr_1", "run_1"),
			events.NewToolCallStartEvent("tc1", "navigate_user", events.WithParentMessageID("m1")),
			events.NewToolCallArgsEvent("tc1", `{"path":`),
			events.NewToolCallArgsEvent("tc1", `"/leads"}`),
			events.NewToolCallEndEvent("tc1"),
			events.NewClientToolCallEvent("executePlan", map[string]any{"type": "navigate", "toPath": "/"}),
			events.NewCustomEvent("other"),
			events.NewRunFinishedEvent("thr_1", "run_1"),
		),
	})
	require.NoError(t, err)

	sub := &recordingSubscriber{agent: agent}
	require.NoError(t, agent.RunAgent(context.Background(), RunOptions{}, sub))

	assert.Len(t, sub.seen, 8)
	for _, r := range sub.running {
		assert.True(t, r)
	}
	assert.False(t, agent.IsRunning())

	require.Len(t, sub.toolCalls, 1)
	call := sub.toolCalls[0]
	assert.Equal(t, "navigate_user", call.Name)
	assert.Equal(t, "m1", call.ParentMessageID)
	args, err := call.Args()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"path": "/leads"}, args)

	require.Len(t, sub.client, 1)
	assert.Equal(t, "executePlan", sub.client[0].ToolName)
	assert.Equal(t, []string{"other"}, sub.custom)
	assert.NoError(t, sub.failed)
}

func TestToolCallArgs(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    map[string]any
		wantErr bool
	}{
		{"empty", "", map[string]any{}, false},
		{"whitespace", "  ", map[string]any{}, false},
		{"object", `{"a":1}`, map[string]any{"a": float64(1)}, false},
		{"malformed", "{bad json", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToolCall{RawArgs: tt.raw}.Args()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunAgentInput(t *testing.T) {
	var got *core.RunAgentInput
	agent, err := New(Config{
		ThreadID: "thr_1",
		Transport: transport.Func(func(_ context.Context, in *core.RunAgentInput, _ transport.Handler) error {
			got = in
			return nil
		}),
	})
	require.NoError(t, err)

	agent.AddMessage(messages.NewUserMessage("hi"))
	agent.AddMessage(messages.NewPlaceholder())
	require.NoError(t, agent.SetState(struct {
		Page string `json:"page"`
	}{Page: "/leads"}))

	require.NoError(t, agent.RunAgent(context.Background(), RunOptions{
		Context: []core.ContextItem{{Description: "now", Value: "noon"}},
	}, nil))

	require.NotNil(t, got)
	assert.Equal(t, "thr_1", got.ThreadID)
	assert.NotEmpty(t, got.RunID)
	require.Len(t, got.Messages, 1, "placeholders are not sent")
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, map[string]any{"page": "/leads"}, got.State)
	assert.Len(t, got.Context, 1)
	assert.NotNil(t, got.Tools)
}

func TestRunAgentFailure(t *testing.T) {
	boom := errors.New("connection reset")
	agent, err := New(Config{Transport: transport.Func(func(_ context.Context, _ *core.RunAgentInput, handle transport.Handler) error {
		handle(events.NewRunStartedEvent("t", "r"))
		return boom
	})})
	require.NoError(t, err)

	sub := &recordingSubscriber{}
	err = agent.RunAgent(context.Background(), RunOptions{}, sub)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, sub.failed, boom)
	assert.False(t, agent.IsRunning())
}

func TestRunAgentInProgress(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	agent, err := New(Config{Transport: transport.Func(func(context.Context, *core.RunAgentInput, transport.Handler) error {
		close(started)
		<-release
		return nil
	})})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- agent.RunAgent(context.Background(), RunOptions{}, nil) }()
	<-started
	assert.True(t, agent.IsRunning())
	assert.ErrorIs(t, agent.RunAgent(context.Background(), RunOptions{}, nil), core.ErrRunInProgress)
	close(release)
	require.NoError(t, <-done)
}

func TestMessagesAndState(t *testing.T) {
	agent, err := New(Config{Transport: transport.Func(nil)})
	require.NoError(t, err)

	m := messages.NewAssistantMessage("Hi")
	agent.AddMessage(m)
	assert.True(t, agent.UpdateMessage(m.ID, func(msg *messages.Message) { msg.Content += " there" }))
	assert.False(t, agent.UpdateMessage("missing", func(*messages.Message) {}))
	require.Len(t, agent.Messages(), 1)
	assert.Equal(t, "Hi there", agent.Messages()[0].Content)

	agent.SetMessages(nil)
	assert.Empty(t, agent.Messages())

	agent.SetThreadID("thr_other")
	assert.Equal(t, "thr_other", agent.ThreadID())

	assert.Error(t, agent.SetState(map[string]any{"ch": make(chan int)}))
	require.NoError(t, agent.SetState(nil))
	assert.Nil(t, agent.State())
}
