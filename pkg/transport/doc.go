// Package transport runs agents over the network.
//
// A Transport sends one RunAgentInput and delivers every decoded event to a
// Handler until the run finishes, fails, or the context is cancelled.
//
// Supported transports:
//   - HTTPSSE: POST the input and read a text/event-stream response
//   - WebSocket: send the input as the first frame (JSON or MessagePack)
//     and read events from text or binary frames
//
// Example usage:
//
//	t, err := transport.NewHTTPSSE(transport.HTTPConfig{URL: "http://localhost:8003/agent"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	err = t.Run(ctx, input, func(e events.Event) {
//		fmt.Println(e.Type())
//	})
package transport
