package a2ui

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind identifies the variant of a canonical message.
type Kind string

const (
	KindBeginRendering  Kind = "beginRendering"
	KindSurfaceUpdate   Kind = "surfaceUpdate"
	KindDataModelUpdate Kind = "dataModelUpdate"
	KindDeleteSurface   Kind = "deleteSurface"
)

// ToolPrefix marks agent tool calls that carry A2UI payloads.
const ToolPrefix = "a2ui_"

// ActivityType is the activity type of canonical A2UI activity events.
const ActivityType = "a2ui"

var kinds = []Kind{KindBeginRendering, KindSurfaceUpdate, KindDataModelUpdate, KindDeleteSurface}

// Message is the canonical A2UI v0.8 message. Exactly one field is set.
type Message struct {
	BeginRendering  *BeginRendering  `json:"beginRendering,omitempty"`
	SurfaceUpdate   *SurfaceUpdate   `json:"surfaceUpdate,omitempty"`
	DataModelUpdate *DataModelUpdate `json:"dataModelUpdate,omitempty"`
	DeleteSurface   *DeleteSurface   `json:"deleteSurface,omitempty"`
}

// BeginRendering starts (or restarts) a surface at the given root component.
type BeginRendering struct {
	SurfaceID string         `json:"surfaceId"`
	Root      string         `json:"root"`
	Styles    map[string]any `json:"styles,omitempty"`
}

// SurfaceUpdate adds or replaces components of a surface.
type SurfaceUpdate struct {
	SurfaceID  string      `json:"surfaceId"`
	Components []Component `json:"components"`
}

// Component is a single node. Component holds one entry mapping the
// component type (e.g. "Text", "Column") to its properties.
type Component struct {
	ID        string         `json:"id"`
	Weight    *float64       `json:"weight,omitempty"`
	Component map[string]any `json:"component"`
}

// DataModelUpdate writes Contents below Path in the surface data model.
// An empty path addresses the model root.
type DataModelUpdate struct {
	SurfaceID string     `json:"surfaceId"`
	Path      string     `json:"path,omitempty"`
	Contents  []ValueMap `json:"contents"`
}

// ValueMap is one data model entry. Exactly one value field is set.
type ValueMap struct {
	Key          string     `json:"key"`
	ValueString  *string    `json:"valueString,omitempty"`
	ValueNumber  *float64   `json:"valueNumber,omitempty"`
	ValueBoolean *bool      `json:"valueBoolean,omitempty"`
	ValueMap     []ValueMap `json:"valueMap,omitempty"`
}

// DeleteSurface removes a surface and everything it holds.
type DeleteSurface struct {
	SurfaceID string `json:"surfaceId"`
}

// Kind returns the populated variant, or "" for an empty message.
func (m Message) Kind() Kind {
	switch {
	case m.BeginRendering != nil:
		return KindBeginRendering
	case m.SurfaceUpdate != nil:
		return KindSurfaceUpdate
	case m.DataModelUpdate != nil:
		return KindDataModelUpdate
	case m.DeleteSurface != nil:
		return KindDeleteSurface
	}
	return ""
}

// SurfaceID returns the surface the message addresses.
func (m Message) SurfaceID() string {
	switch m.Kind() {
	case KindBeginRendering:
		return m.BeginRendering.SurfaceID
	case KindSurfaceUpdate:
		return m.SurfaceUpdate.SurfaceID
	case KindDataModelUpdate:
		return m.DataModelUpdate.SurfaceID
	case KindDeleteSurface:
		return m.DeleteSurface.SurfaceID
	}
	return ""
}

// Validate checks that exactly one variant is set and that it names a surface.
func (m Message) Validate() error {
	set := 0
	for _, ok := range []bool{m.BeginRendering != nil, m.SurfaceUpdate != nil, m.DataModelUpdate != nil, m.DeleteSurface != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("a2ui message must set exactly one variant, got %d", set)
	}
	if m.SurfaceID() == "" {
		return fmt.Errorf("%s: surfaceId is required", m.Kind())
	}
	switch m.Kind() {
	case KindBeginRendering:
		if m.BeginRendering.Root == "" {
			return errors.New("beginRendering: root is required")
		}
	case KindSurfaceUpdate:
		for i, c := range m.SurfaceUpdate.Components {
			if c.ID == "" {
				return fmt.Errorf("surfaceUpdate: component %d has no id", i)
			}
		}
	case KindDataModelUpdate:
		for _, v := range m.DataModelUpdate.Contents {
			if err := v.Validate(); err != nil {
				return fmt.Errorf("dataModelUpdate: %w", err)
			}
		}
	}
	return nil
}

// NewBeginRendering builds a beginRendering message.
func NewBeginRendering(surfaceID, root string) Message {
	return Message{BeginRendering: &BeginRendering{SurfaceID: surfaceID, Root: root}}
}

// NewSurfaceUpdate builds a surfaceUpdate message.
func NewSurfaceUpdate(surfaceID string, components ...Component) Message {
	return Message{SurfaceUpdate: &SurfaceUpdate{SurfaceID: surfaceID, Components: components}}
}

// NewDataModelUpdate builds a dataModelUpdate message.
func NewDataModelUpdate(surfaceID, path string, contents ...ValueMap) Message {
	return Message{DataModelUpdate: &DataModelUpdate{SurfaceID: surfaceID, Path: path, Contents: contents}}
}

// NewDeleteSurface builds a deleteSurface message.
func NewDeleteSurface(surfaceID string) Message {
	return Message{DeleteSurface: &DeleteSurface{SurfaceID: surfaceID}}
}

// NewComponent builds a component of the given type.
func NewComponent(id, typ string, props map[string]any) Component {
	if props == nil {
		props = map[string]any{}
	}
	return Component{ID: id, Component: map[string]any{typ: props}}
}

// Type returns the component type name.
func (c Component) Type() string {
	keys := make([]string, 0, len(c.Component))
	for k := range c.Component {
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	return keys[0]
}

// Props returns the properties of the component type.
func (c Component) Props() map[string]any {
	props, _ := c.Component[c.Type()].(map[string]any)
	return props
}

// Children returns referenced child ids from children.explicitList or child.
func (c Component) Children() []string {
	props := c.Props()
	if props == nil {
		return nil
	}
	var out []string
	if children, ok := props["children"].(map[string]any); ok {
		if list, ok := children["explicitList"].([]any); ok {
			for _, v := range list {
				if id, ok := v.(string); ok && id != "" {
					out = append(out, id)
				}
			}
		}
	}
	if child, ok := props["child"].(string); ok && child != "" {
		out = append(out, child)
	}
	return out
}

// String builds a string entry.
func String(key, v string) ValueMap { return ValueMap{Key: key, ValueString: &v} }

// Number builds a number entry.
func Number(key string, v float64) ValueMap { return ValueMap{Key: key, ValueNumber: &v} }

// Bool builds a boolean entry.
func Bool(key string, v bool) ValueMap { return ValueMap{Key: key, ValueBoolean: &v} }

// Map builds a nested entry.
func Map(key string, entries ...ValueMap) ValueMap {
	if entries == nil {
		entries = []ValueMap{}
	}
	return ValueMap{Key: key, ValueMap: entries}
}

// Validate checks that the key has no leading slash and one value is set.
func (v ValueMap) Validate() error {
	if strings.HasPrefix(v.Key, "/") {
		return fmt.Errorf("value key %q has a leading slash", v.Key)
	}
	set := 0
	for _, ok := range []bool{v.ValueString != nil, v.ValueNumber != nil, v.ValueBoolean != nil, v.ValueMap != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("value %q must set exactly one variant, got %d", v.Key, set)
	}
	for _, child := range v.ValueMap {
		if err := child.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Value returns the entry as a plain Go value. Nested maps become
// map[string]any.
func (v ValueMap) Value() any {
	switch {
	case v.ValueString != nil:
		return *v.ValueString
	case v.ValueNumber != nil:
		return *v.ValueNumber
	case v.ValueBoolean != nil:
		return *v.ValueBoolean
	case v.ValueMap != nil:
		out := make(map[string]any, len(v.ValueMap))
		for _, child := range v.ValueMap {
			out[child.Key] = child.Value()
		}
		return out
	}
	return nil
}

// IsToolName reports whether a tool call name carries an A2UI payload.
func IsToolName(name string) bool {
	return strings.HasPrefix(name, ToolPrefix)
}
