// Package encoding provides event encoding and decoding for agent transports.
//
// Supported formats:
//   - JSON: the default wire format for SSE streams and WebSocket text frames
//   - MessagePack: compact binary format for WebSocket binary frames
//
// Example usage:
//
//	import "github.com/site-operator/go-sdk/pkg/encoding"
//
//	codec, err := encoding.ForName("msgpack")
//	if err != nil {
//		log.Fatal(err)
//	}
//	data, err := codec.Encode(event)
//	event, err = codec.Decode(data)
package encoding
