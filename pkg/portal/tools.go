package portal

import (
	"github.com/site-operator/go-sdk/pkg/core"
	"github.com/site-operator/go-sdk/pkg/tools"
)

// Client tools the agent calls to drive the host application.
const (
	ToolExecutePlan   = "executePlan"
	ToolExecuteUIPlan = "execute_ui_plan"
	ToolNavigateUser  = "navigate_user"
	ToolClickElement  = "click_element"
	ToolSetValue      = "set_value"
)

func reasonProperty() *tools.Property {
	return &tools.Property{Type: "string", Description: "Why the step is taken, shown to the user"}
}

func targetProperty(verb string) *tools.Property {
	one := 1
	return &tools.Property{Type: "string", MinLength: &one, Description: "Target id of the element to " + verb}
}

func planSchema() *tools.ToolSchema {
	step := &tools.Property{
		Type: "object",
		Properties: map[string]*tools.Property{
			"type":      {Type: "string", Enum: []any{ActionNavigate, ActionOpen, ActionClick, ActionSetValue, ActionTrigger, ActionPlan}},
			"toPath":    {Type: "string"},
			"toRouteId": {Type: "string"},
			"targetId":  {Type: "string"},
			"trigger":   {Type: "string"},
			"value":     {},
			"reason":    {Type: "string"},
		},
		Required: []string{"type"},
	}
	return &tools.ToolSchema{
		Type: "object",
		Properties: map[string]*tools.Property{
			"type":   {Type: "string", Description: "Action type. Defaults to plan when steps are given"},
			"steps":  {Type: "array", Items: step, Description: "Actions run in order; the plan stops at the first failure"},
			"reason": reasonProperty(),
		},
	}
}

var vocabulary = tools.NewRegistry().MustRegister(
	&tools.Tool{
		Name:        ToolExecutePlan,
		Description: "Run a sequence of host application actions",
		Schema:      planSchema(),
	},
	&tools.Tool{
		Name:        ToolExecuteUIPlan,
		Description: "Run a sequence of host application actions",
		Schema:      planSchema(),
	},
	&tools.Tool{
		Name:        ToolNavigateUser,
		Description: "Navigate the host application to a route or path",
		Schema: &tools.ToolSchema{
			Type: "object",
			Properties: map[string]*tools.Property{
				"path":     {Type: "string", Description: "Path to open"},
				"route_id": {Type: "string", Description: "Route id from the application context"},
				"reason":   reasonProperty(),
			},
		},
	},
	&tools.Tool{
		Name:        ToolClickElement,
		Description: "Click a visible element of the host application",
		Schema: &tools.ToolSchema{
			Type: "object",
			Properties: map[string]*tools.Property{
				"target_id": targetProperty("click"),
				"reason":    reasonProperty(),
			},
			Required: []string{"target_id"},
		},
	},
	&tools.Tool{
		Name:        ToolSetValue,
		Description: "Set the value of a visible input of the host application",
		Schema: &tools.ToolSchema{
			Type: "object",
			Properties: map[string]*tools.Property{
				"target_id": targetProperty("fill"),
				"value":     {Description: "New value"},
				"reason":    reasonProperty(),
			},
			Required: []string{"target_id", "value"},
		},
	},
)

// Tools returns the client tool vocabulary.
func Tools() *tools.Registry {
	return vocabulary
}

// ToolDefinitions returns the vocabulary as advertised in a run input.
func ToolDefinitions() ([]core.Tool, error) {
	return vocabulary.Definitions()
}

// argAliases maps the camelCase and legacy argument names agents send to the
// advertised ones.
var argAliases = map[string]string{
	"targetId":  "target_id",
	"toPath":    "path",
	"to_path":   "path",
	"routeId":   "route_id",
	"toRouteId": "route_id",
}

func canonicalArgs(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}
	for alias, name := range argAliases {
		v, ok := out[alias]
		if !ok {
			continue
		}
		if _, exists := out[name]; !exists {
			out[name] = v
		}
		delete(out, alias)
	}
	return out
}
