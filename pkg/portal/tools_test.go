package portal

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/site-operator/go-sdk/pkg/tools"
)

func TestToolDefinitions(t *testing.T) {
	defs, err := ToolDefinitions()
	require.NoError(t, err)

	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
		assert.NotEmpty(t, d.Description)
	}
	assert.Equal(t, []string{ToolClickElement, ToolExecutePlan, ToolExecuteUIPlan, ToolNavigateUser, ToolSetValue}, names)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(defs[0].Parameters, &schema))
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []any{"target_id"}, schema["required"])
}

func TestFromToolCallAliases(t *testing.T) {
	tests := []struct {
		name string
		tool string
		args map[string]any
		want Action
	}{
		{
			name: "camel case target",
			tool: ToolClickElement,
			args: map[string]any{"targetId": "btn.save"},
			want: Click("btn.save", ""),
		},
		{
			name: "route id",
			tool: ToolNavigateUser,
			args: map[string]any{"toRouteId": "leads", "to_path": "/leads"},
			want: Action{Type: ActionNavigate, ToRouteID: "leads", ToPath: "/leads"},
		},
		{
			name: "null value",
			tool: ToolSetValue,
			args: map[string]any{"target_id": "in.name", "value": nil},
			want: SetValue("in.name", nil, ""),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := FromToolCall(tt.tool, tt.args)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromToolCallRejectsBadArguments(t *testing.T) {
	tests := []struct {
		name string
		tool string
		args map[string]any
		path string
	}{
		{"missing target", ToolClickElement, map[string]any{"reason": "save"}, "target_id"},
		{"empty target", ToolClickElement, map[string]any{"target_id": ""}, "target_id"},
		{"numeric path", ToolNavigateUser, map[string]any{"path": 3.0}, "path"},
		{"missing value", ToolSetValue, map[string]any{"target_id": "in.name"}, "value"},
		{"steps not a list", ToolExecutePlan, map[string]any{"steps": "click"}, "steps"},
		{"unknown step type", ToolExecuteUIPlan, map[string]any{"steps": []any{map[string]any{"type": "hover"}}}, "steps[0].type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok, err := FromToolCall(tt.tool, tt.args)
			assert.True(t, ok)
			var verr *tools.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.path, verr.Path)
		})
	}
}
