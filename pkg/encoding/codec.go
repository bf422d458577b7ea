package encoding

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/site-operator/go-sdk/pkg/core/events"
)

// Codec converts events to and from their byte representation.
type Codec interface {
	Encode(event events.Event) ([]byte, error)
	Decode(data []byte) (events.Event, error)
	ContentType() string
	// Binary reports whether encoded frames must be sent as binary messages.
	Binary() bool
}

// Content types
const (
	ContentTypeJSON    = "application/json"
	ContentTypeMsgPack = "application/msgpack"
)

// JSONCodec is the default codec.
type JSONCodec struct{}

// NewJSON returns the JSON codec.
func NewJSON() JSONCodec { return JSONCodec{} }

// Encode encodes the event as JSON.
func (JSONCodec) Encode(event events.Event) ([]byte, error) {
	if event == nil {
		return nil, fmt.Errorf("encode: nil event")
	}
	return event.ToJSON()
}

// Decode decodes a JSON event.
func (JSONCodec) Decode(data []byte) (events.Event, error) {
	return events.EventFromJSON(data)
}

// ContentType returns application/json.
func (JSONCodec) ContentType() string { return ContentTypeJSON }

// Binary is false for JSON.
func (JSONCodec) Binary() bool { return false }

// MsgPackCodec encodes events as MessagePack maps carrying the same field
// names as the JSON form.
type MsgPackCodec struct{}

// NewMsgPack returns the MessagePack codec.
func NewMsgPack() MsgPackCodec { return MsgPackCodec{} }

// Encode encodes the event as MessagePack.
func (MsgPackCodec) Encode(event events.Event) ([]byte, error) {
	if event == nil {
		return nil, fmt.Errorf("encode: nil event")
	}
	data, err := event.ToJSON()
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event.Type(), err)
	}
	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("encode %s: %w", event.Type(), err)
	}
	out, err := msgpack.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event.Type(), err)
	}
	return out, nil
}

// Decode decodes a MessagePack event.
func (MsgPackCodec) Decode(data []byte) (events.Event, error) {
	var generic map[string]any
	if err := msgpack.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("decode msgpack event: %w", err)
	}
	jsonData, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("decode msgpack event: %w", err)
	}
	return events.EventFromJSON(jsonData)
}

// ContentType returns application/msgpack.
func (MsgPackCodec) ContentType() string { return ContentTypeMsgPack }

// Binary is true for MessagePack.
func (MsgPackCodec) Binary() bool { return true }

// Marshal encodes an arbitrary JSON-tagged value with the codec's format.
func Marshal(codec Codec, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if !codec.Binary() {
		return data, nil
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	return msgpack.Marshal(generic)
}

// Unmarshal decodes data produced by Marshal into v.
func Unmarshal(codec Codec, data []byte, v any) error {
	if !codec.Binary() {
		return json.Unmarshal(data, v)
	}
	var generic any
	if err := msgpack.Unmarshal(data, &generic); err != nil {
		return err
	}
	jsonData, err := json.Marshal(generic)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonData, v)
}

// ForName returns the codec registered under name ("json" or "msgpack").
func ForName(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return NewJSON(), nil
	case "msgpack", "messagepack":
		return NewMsgPack(), nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

// ForContentType picks a codec from a Content-Type header value.
func ForContentType(contentType string) Codec {
	if strings.Contains(contentType, "msgpack") {
		return NewMsgPack()
	}
	return NewJSON()
}
