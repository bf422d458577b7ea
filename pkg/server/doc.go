// Package server is a development backend for the site operator widget.
//
// It hosts agents over Server-Sent Events (POST /agent) and WebSocket
// (GET /agent/ws) and serves the conversations REST API under
// /api/v2/conversations from an in-memory store. Prometheus metrics are
// exposed at /metrics.
//
// Example usage:
//
//	s := server.New(server.Config{Address: ":8003"})
//	s.RegisterAgent(server.DefaultAgent, &server.EchoAgent{})
//	if err := s.ListenAndServe(ctx); err != nil {
//		log.Fatal(err)
//	}
package server
