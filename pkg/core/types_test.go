package core

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/site-operator/go-sdk/pkg/core/events"
)

func TestRunAgentInputValidate(t *testing.T) {
	tests := []struct {
		name    string
		input   *RunAgentInput
		wantErr string
	}{
		{name: "nil input", input: nil, wantErr: "input"},
		{name: "missing thread", input: &RunAgentInput{RunID: "run_1"}, wantErr: "threadId"},
		{name: "missing run", input: &RunAgentInput{ThreadID: "thr_1"}, wantErr: "runId"},
		{name: "valid", input: &RunAgentInput{ThreadID: "thr_1", RunID: "run_1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.wantErr, cfgErr.Field)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestRunAgentInputJSON(t *testing.T) {
	content := "hello"
	input := RunAgentInput{
		ThreadID: "thr_1",
		RunID:    "run_1",
		Messages: []events.Message{{ID: "msg_1", Role: "user", Content: &content}},
		State:    map[string]any{"k": "v"},
		Tools:    []Tool{},
		Context:  []ContextItem{{Description: "d", Value: "v"}},
	}

	data, err := json.Marshal(input)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "thr_1", raw["threadId"])
	assert.Equal(t, "run_1", raw["runId"])
	assert.Len(t, raw["messages"], 1)
	assert.NotContains(t, raw, "forwardedProps")
}

func TestNewContextItem(t *testing.T) {
	item, err := NewContextItem("plain", "text")
	require.NoError(t, err)
	assert.Equal(t, "text", item.Value)

	item, err = NewContextItem("object", map[string]int{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, item.Value)

	_, err = NewContextItem("bad", make(chan int))
	assert.Error(t, err)
}

func TestErrorsUnwrap(t *testing.T) {
	cause := errors.New("boom")

	cfg := &ConfigError{Field: "URL", Value: "", Err: cause}
	assert.ErrorIs(t, cfg, cause)
	assert.Contains(t, cfg.Error(), "URL")

	proto := &ProtocolError{Operation: "decode", Code: 2, Err: cause}
	assert.ErrorIs(t, proto, cause)
	assert.Contains(t, proto.Error(), "decode")

	tr := &TransportError{Transport: "sse", URL: "http://x", Err: cause}
	assert.ErrorIs(t, tr, cause)
	assert.Contains(t, tr.Error(), "sse")
}
