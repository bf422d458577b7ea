package portal

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Action types
const (
	ActionNavigate = "navigate"
	ActionOpen     = "open"
	ActionClick    = "click"
	ActionSetValue = "setValue"
	ActionPlan     = "plan"
	ActionTrigger  = "trigger"
)

// Action is a host operation requested by the agent. Unknown types are
// allowed; their extra fields are kept in Extra.
type Action struct {
	Type      string         `json:"type" yaml:"type"`
	ToRouteID string         `json:"toRouteId,omitempty" yaml:"toRouteId,omitempty"`
	ToPath    string         `json:"toPath,omitempty" yaml:"toPath,omitempty"`
	TargetID  string         `json:"targetId,omitempty" yaml:"targetId,omitempty"`
	Trigger   string         `json:"trigger,omitempty" yaml:"trigger,omitempty"`
	Value     any            `json:"value,omitempty" yaml:"value,omitempty"`
	Reason    string         `json:"reason,omitempty" yaml:"reason,omitempty"`
	Steps     []Action       `json:"steps,omitempty" yaml:"steps,omitempty"`
	Extra     map[string]any `json:"-" yaml:",inline"`
}

var knownActionFields = map[string]bool{
	"type": true, "toRouteId": true, "toPath": true, "targetId": true,
	"trigger": true, "value": true, "reason": true, "steps": true,
}

type actionAlias Action

// MarshalJSON flattens Extra into the object.
func (a Action) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(actionAlias(a))
	if err != nil || len(a.Extra) == 0 {
		return data, err
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	for k, v := range a.Extra {
		if !knownActionFields[k] {
			obj[k] = v
		}
	}
	return json.Marshal(obj)
}

// UnmarshalJSON keeps unknown fields in Extra. Snake case field names
// (target_id, to_path, to_route_id) are accepted.
func (a *Action) UnmarshalJSON(data []byte) error {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	for snake, camel := range map[string]string{"target_id": "targetId", "to_path": "toPath", "to_route_id": "toRouteId"} {
		if v, ok := obj[snake]; ok {
			if _, exists := obj[camel]; !exists {
				obj[camel] = v
			}
			delete(obj, snake)
		}
	}
	normalized, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	var alias actionAlias
	if err := json.Unmarshal(normalized, &alias); err != nil {
		return err
	}
	*a = Action(alias)
	for k, v := range obj {
		if knownActionFields[k] {
			continue
		}
		if a.Extra == nil {
			a.Extra = make(map[string]any)
		}
		a.Extra[k] = v
	}
	return nil
}

// Validate checks the fields each known type requires.
func (a Action) Validate() error {
	switch a.Type {
	case "":
		return errors.New("action type is required")
	case ActionNavigate:
		if a.ToRouteID == "" && a.ToPath == "" {
			return errors.New("navigate action needs toRouteId or toPath")
		}
	case ActionOpen, ActionClick, ActionSetValue:
		if a.TargetID == "" {
			return fmt.Errorf("%s action needs targetId", a.Type)
		}
	case ActionTrigger:
		if a.Trigger == "" {
			return errors.New("trigger action needs trigger")
		}
	case ActionPlan:
		if len(a.Steps) == 0 {
			return errors.New("plan action needs steps")
		}
		for i, step := range a.Steps {
			if err := step.Validate(); err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
		}
	}
	return nil
}

// NeedsTarget reports whether the action must wait for its target to be
// visible.
func (a Action) NeedsTarget() bool {
	return a.Type == ActionClick || a.Type == ActionSetValue
}

// Navigate builds a navigate action to a path.
func Navigate(path, reason string) Action {
	return Action{Type: ActionNavigate, ToPath: path, Reason: reason}
}

// Click builds a click action.
func Click(targetID, reason string) Action {
	return Action{Type: ActionClick, TargetID: targetID, Reason: reason}
}

// SetValue builds a setValue action.
func SetValue(targetID string, value any, reason string) Action {
	return Action{Type: ActionSetValue, TargetID: targetID, Value: value, Reason: reason}
}

// Plan builds a plan of sequential steps.
func Plan(steps ...Action) Action {
	return Action{Type: ActionPlan, Steps: steps}
}

var activityActionTypes = map[string]string{
	"navigation": ActionNavigate,
	"click":      ActionClick,
	"setValue":   ActionSetValue,
	"plan":       ActionPlan,
}

// IsActivityType reports whether an activity type carries a host action.
func IsActivityType(activityType string) bool {
	_, ok := activityActionTypes[activityType]
	return ok
}

// ParseAction decodes an action from JSON text or decoded JSON.
func ParseAction(raw any) (Action, error) {
	var data []byte
	switch t := raw.(type) {
	case string:
		data = []byte(strings.TrimSpace(t))
	case []byte:
		data = t
	case json.RawMessage:
		data = t
	case Action:
		return t, nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return Action{}, fmt.Errorf("encode action: %w", err)
		}
		data = b
	}
	var a Action
	if err := json.Unmarshal(data, &a); err != nil {
		return Action{}, fmt.Errorf("decode action: %w", err)
	}
	return a, nil
}

// FromActivity decodes the content of a host action activity. Content
// without a type takes it from the activity type.
func FromActivity(activityType string, content json.RawMessage) (Action, error) {
	a, err := ParseAction(content)
	if err != nil {
		return Action{}, err
	}
	if a.Type == "" {
		a.Type = activityActionTypes[activityType]
	}
	return a, nil
}

// FromToolCall maps a call to one of the client tools to an action. ok is
// false for tools outside the vocabulary. Arguments are checked against the
// tool's schema; a mismatch is returned as an error wrapping a
// *tools.ValidationError.
func FromToolCall(name string, args map[string]any) (Action, bool, error) {
	if !vocabulary.Has(name) {
		return Action{}, false, nil
	}
	if name == ToolExecutePlan || name == ToolExecuteUIPlan {
		if err := vocabulary.ValidateArgs(name, args); err != nil {
			return Action{}, true, err
		}
		a, err := ParseAction(args)
		if err == nil && a.Type == "" && len(a.Steps) > 0 {
			a.Type = ActionPlan
		}
		return a, true, err
	}

	args = canonicalArgs(args)
	if err := vocabulary.ValidateArgs(name, args); err != nil {
		return Action{}, true, err
	}
	str := func(key string) string {
		v, _ := args[key].(string)
		return v
	}
	switch name {
	case ToolNavigateUser:
		a := Navigate(str("path"), str("reason"))
		a.ToRouteID = str("route_id")
		return a, true, nil
	case ToolClickElement:
		return Click(str("target_id"), str("reason")), true, nil
	default:
		return SetValue(str("target_id"), args["value"], str("reason")), true, nil
	}
}
