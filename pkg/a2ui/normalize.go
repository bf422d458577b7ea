package a2ui

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrMalformedPayload is wrapped by every normalization failure.
var ErrMalformedPayload = errors.New("malformed a2ui payload")

// Shims are the deprecated payload shapes still accepted by Normalize. The
// canonical contract is an ACTIVITY_SNAPSHOT with activity type "a2ui" whose
// content is a single canonical message or {"operations": [...]}.
const (
	ShimToolCall        = "tool call arguments"
	ShimActivityWrapper = "activity wrapper"
	ShimSnakeCase       = "snake_case keys"
	ShimMessagesList    = "messages list"
	ShimFlatType        = "flat type field"
	ShimLegacyValue     = "untyped value"
)

var toolKinds = map[string]Kind{
	"a2ui_begin_rendering":   KindBeginRendering,
	"a2ui_surface_update":    KindSurfaceUpdate,
	"a2ui_update_surface":    KindSurfaceUpdate,
	"a2ui_data_model_update": KindDataModelUpdate,
	"a2ui_update_data_model": KindDataModelUpdate,
	"a2ui_delete_surface":    KindDeleteSurface,
}

// Normalize converts a raw payload into canonical messages. raw may be JSON
// text (string, []byte, json.RawMessage), decoded JSON (map[string]any,
// []any) or any JSON-marshalable value. Empty text is treated as {} and
// yields no messages.
//
// Items that cannot be interpreted are skipped; the returned error wraps
// ErrMalformedPayload for each of them while the remaining messages are
// still returned.
func Normalize(raw any) ([]Message, error) {
	msgs, _, err := normalize(raw)
	return msgs, err
}

// FromToolCall normalizes the arguments of an a2ui_* tool call. Known tool
// names carry the bare message body; other a2ui_ tools carry canonical
// payloads.
func FromToolCall(name string, args any) ([]Message, error) {
	msgs, _, err := normalizeToolCall(name, args)
	return msgs, err
}

func normalize(raw any) ([]Message, []string, error) {
	v, err := decode(raw)
	if err != nil {
		return nil, nil, malformed(err)
	}
	n := &normalizer{}
	n.collect(n.camelize(v))
	return n.result()
}

func normalizeToolCall(name string, args any) ([]Message, []string, error) {
	v, err := decode(args)
	if err != nil {
		return nil, nil, malformed(fmt.Errorf("tool %s: %w", name, err))
	}
	n := &normalizer{}
	n.shim(ShimToolCall)
	v = n.camelize(v)

	kind, known := toolKinds[name]
	body, isMap := v.(map[string]any)
	if known && isMap && !isEnvelope(body) {
		if len(body) > 0 {
			n.emit(kind, body)
		}
		return n.result()
	}
	n.collect(v)
	return n.result()
}

type normalizer struct {
	out   []Message
	shims []string
	errs  []error
}

func (n *normalizer) result() ([]Message, []string, error) {
	return n.out, n.shims, errors.Join(n.errs...)
}

func (n *normalizer) shim(name string) {
	for _, s := range n.shims {
		if s == name {
			return
		}
	}
	n.shims = append(n.shims, name)
}

func (n *normalizer) fail(err error) {
	n.errs = append(n.errs, malformed(err))
}

func (n *normalizer) collect(v any) {
	switch t := v.(type) {
	case nil:
	case string:
		inner, err := decode(t)
		if err != nil {
			n.fail(err)
			return
		}
		n.collect(n.camelize(inner))
	case []any:
		for _, item := range t {
			n.collect(item)
		}
	case map[string]any:
		n.collectObject(t)
	default:
		n.fail(fmt.Errorf("unexpected %T", v))
	}
}

func (n *normalizer) collectObject(obj map[string]any) {
	if len(obj) == 0 {
		return
	}
	if ops, ok := obj["operations"]; ok {
		n.collect(ops)
		return
	}
	if msgs, ok := obj["messages"]; ok {
		n.shim(ShimMessagesList)
		n.collect(msgs)
		return
	}
	if role, _ := obj["role"].(string); role == "activity" {
		n.shim(ShimActivityWrapper)
		if at, _ := obj["activityType"].(string); at != ActivityType {
			n.fail(fmt.Errorf("activity wrapper with activity type %q", at))
			return
		}
		n.collect(obj["content"])
		return
	}

	found := false
	for _, k := range kinds {
		if body, ok := obj[string(k)]; ok {
			found = true
			n.emitAny(k, body)
		}
	}
	if found {
		return
	}

	if typ, ok := obj["type"].(string); ok {
		kind := Kind(snakeToCamel(typ))
		if !isKind(kind) {
			n.fail(fmt.Errorf("unknown message type %q", typ))
			return
		}
		n.shim(ShimFlatType)
		body := make(map[string]any, len(obj)-1)
		for k, v := range obj {
			if k != "type" {
				body[k] = v
			}
		}
		n.emit(kind, body)
		return
	}
	n.fail(fmt.Errorf("unrecognized payload with keys %s", strings.Join(sortedKeys(obj), ",")))
}

func (n *normalizer) emitAny(kind Kind, body any) {
	if s, ok := body.(string); ok {
		inner, err := decode(s)
		if err != nil {
			n.fail(fmt.Errorf("%s: %w", kind, err))
			return
		}
		body = n.camelize(inner)
	}
	obj, ok := body.(map[string]any)
	if !ok {
		n.fail(fmt.Errorf("%s: body is %T, not an object", kind, body))
		return
	}
	n.emit(kind, obj)
}

func (n *normalizer) emit(kind Kind, body map[string]any) {
	switch kind {
	case KindDataModelUpdate:
		n.fixDataModel(body)
	case KindSurfaceUpdate:
		if comps, ok := body["components"]; !ok || comps == nil {
			body["components"] = []any{}
		}
	}

	data, err := json.Marshal(map[string]any{string(kind): body})
	if err != nil {
		n.fail(fmt.Errorf("%s: %w", kind, err))
		return
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		n.fail(fmt.Errorf("%s: %w", kind, err))
		return
	}
	if err := msg.Validate(); err != nil {
		n.fail(err)
		return
	}
	n.out = append(n.out, msg)
}

func (n *normalizer) fixDataModel(body map[string]any) {
	if p, ok := body["path"].(string); ok {
		body["path"] = strings.TrimLeft(p, "/")
	}
	switch contents := body["contents"].(type) {
	case []any:
		for i, c := range contents {
			contents[i] = n.fixValue(c)
		}
	case map[string]any:
		n.shim(ShimLegacyValue)
		body["contents"] = valueEntries(contents)
	case nil:
		body["contents"] = []any{}
	}
}

func (n *normalizer) fixValue(v any) any {
	entry, ok := v.(map[string]any)
	if !ok {
		return v
	}
	if k, ok := entry["key"].(string); ok {
		entry["key"] = strings.TrimLeft(k, "/")
	}
	if legacy, ok := entry["value"]; ok && !hasTypedValue(entry) {
		n.shim(ShimLegacyValue)
		delete(entry, "value")
		for k, val := range typedValue(legacy) {
			entry[k] = val
		}
	}
	if children, ok := entry["valueMap"].([]any); ok {
		for i, c := range children {
			children[i] = n.fixValue(c)
		}
	}
	return entry
}

func hasTypedValue(entry map[string]any) bool {
	for _, k := range []string{"valueString", "valueNumber", "valueBoolean", "valueMap"} {
		if _, ok := entry[k]; ok {
			return true
		}
	}
	return false
}

// typedValue maps an untyped JSON value to the matching ValueMap field.
func typedValue(v any) map[string]any {
	switch t := v.(type) {
	case string:
		return map[string]any{"valueString": t}
	case float64:
		return map[string]any{"valueNumber": t}
	case bool:
		return map[string]any{"valueBoolean": t}
	case map[string]any:
		return map[string]any{"valueMap": valueEntries(t)}
	case []any:
		m := make(map[string]any, len(t))
		for i, item := range t {
			m[strconv.Itoa(i)] = item
		}
		return map[string]any{"valueMap": valueEntries(m)}
	case nil:
		return map[string]any{"valueString": ""}
	default:
		return map[string]any{"valueString": fmt.Sprint(t)}
	}
}

func valueEntries(obj map[string]any) []any {
	out := make([]any, 0, len(obj))
	for _, k := range sortedKeys(obj) {
		entry := map[string]any{"key": strings.TrimLeft(k, "/")}
		for fk, fv := range typedValue(obj[k]) {
			entry[fk] = fv
		}
		out = append(out, entry)
	}
	return out
}

// camelize rewrites snake_case object keys to camelCase. Legacy untyped
// values and map-shaped contents are left alone: their keys are data, not
// field names.
func (n *normalizer) camelize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			ck := k
			if strings.Contains(k, "_") {
				ck = snakeToCamel(k)
				if ck != k {
					n.shim(ShimSnakeCase)
				}
			}
			if ck == "value" {
				out[ck] = val
				continue
			}
			if _, isMap := val.(map[string]any); isMap && ck == "contents" {
				out[ck] = val
				continue
			}
			out[ck] = n.camelize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = n.camelize(item)
		}
		return out
	}
	return v
}

func snakeToCamel(s string) string {
	parts := strings.Split(s, "_")
	var b strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i == 0 || b.Len() == 0 {
			b.WriteString(p)
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]) + p[1:])
	}
	if b.Len() == 0 {
		return s
	}
	return b.String()
}

func decode(raw any) (any, error) {
	var data []byte
	switch t := raw.(type) {
	case nil:
		return nil, nil
	case string:
		data = []byte(t)
	case []byte:
		data = t
	case json.RawMessage:
		data = t
	case map[string]any, []any:
		return t, nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		data = b
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return map[string]any{}, nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func isEnvelope(obj map[string]any) bool {
	for _, k := range []string{"operations", "messages", "role"} {
		if _, ok := obj[k]; ok {
			return true
		}
	}
	for _, k := range kinds {
		if _, ok := obj[string(k)]; ok {
			return true
		}
	}
	return false
}

func isKind(k Kind) bool {
	for _, known := range kinds {
		if k == known {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func malformed(err error) error {
	return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
}
