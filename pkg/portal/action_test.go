package portal

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionJSON(t *testing.T) {
	t.Run("extension fields survive", func(t *testing.T) {
		var a Action
		require.NoError(t, json.Unmarshal([]byte(`{"type":"scroll","direction":"down","amount":3}`), &a))
		assert.Equal(t, "scroll", a.Type)
		assert.Equal(t, "down", a.Extra["direction"])

		data, err := json.Marshal(a)
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"scroll","direction":"down","amount":3}`, string(data))
	})

	t.Run("snake case fields", func(t *testing.T) {
		var a Action
		require.NoError(t, json.Unmarshal([]byte(`{"type":"plan","steps":[{"type":"click","target_id":"btn.save"},{"type":"navigate","to_path":"/x"}]}`), &a))
		require.Len(t, a.Steps, 2)
		assert.Equal(t, "btn.save", a.Steps[0].TargetID)
		assert.Equal(t, "/x", a.Steps[1].ToPath)
		assert.Empty(t, a.Steps[0].Extra)
	})
}

func TestActionValidate(t *testing.T) {
	tests := []struct {
		name    string
		action  Action
		wantErr bool
	}{
		{"navigate path", Navigate("/leads", ""), false},
		{"navigate route", Action{Type: ActionNavigate, ToRouteID: "leads.list"}, false},
		{"navigate nowhere", Action{Type: ActionNavigate}, true},
		{"click", Click("btn", ""), false},
		{"click without target", Action{Type: ActionClick}, true},
		{"open without target", Action{Type: ActionOpen}, true},
		{"trigger", Action{Type: ActionTrigger, Trigger: "export"}, false},
		{"empty plan", Plan(), true},
		{"plan with bad step", Plan(Navigate("/", ""), Action{Type: ActionSetValue}), true},
		{"extension", Action{Type: "scroll"}, false},
		{"missing type", Action{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.action.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFromToolCall(t *testing.T) {
	tests := []struct {
		name string
		tool string
		args map[string]any
		want Action
		ok   bool
	}{
		{
			name: "navigate_user",
			tool: "navigate_user",
			args: map[string]any{"path": "/leads", "reason": "asked"},
			want: Action{Type: ActionNavigate, ToPath: "/leads", Reason: "asked"},
			ok:   true,
		},
		{
			name: "click_element",
			tool: "click_element",
			args: map[string]any{"target_id": "btn.save"},
			want: Action{Type: ActionClick, TargetID: "btn.save"},
			ok:   true,
		},
		{
			name: "set_value",
			tool: "set_value",
			args: map[string]any{"target_id": "in.name", "value": "Ada"},
			want: Action{Type: ActionSetValue, TargetID: "in.name", Value: "Ada"},
			ok:   true,
		},
		{
			name: "executePlan",
			tool: "executePlan",
			args: map[string]any{"type": "navigate", "toPath": "/"},
			want: Action{Type: ActionNavigate, ToPath: "/"},
			ok:   true,
		},
		{
			name: "execute_ui_plan without type",
			tool: "execute_ui_plan",
			args: map[string]any{"steps": []any{map[string]any{"type": "click", "targetId": "b"}}},
			want: Plan(Click("b", "")),
			ok:   true,
		},
		{
			name: "other tool",
			tool: "search",
			args: map[string]any{},
			ok:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := FromToolCall(tt.tool, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestFromActivity(t *testing.T) {
	a, err := FromActivity("navigation", json.RawMessage(`{"toPath":"/leads"}`))
	require.NoError(t, err)
	assert.Equal(t, ActionNavigate, a.Type)
	assert.True(t, IsActivityType("setValue"))
	assert.False(t, IsActivityType("a2ui"))

	_, err = FromActivity("click", json.RawMessage(`{bad`))
	assert.Error(t, err)
}
