// Package middleware provides HTTP interceptors shared by the SDK's clients
// and the development server.
//
// Client side, RoundTripper middleware adds bearer authentication to every
// outgoing request (agent runs and conversation REST calls alike) and logs
// requests. Server side, handler middleware logs requests and recovers panics.
//
// Example usage:
//
//	import "github.com/site-operator/go-sdk/pkg/middleware"
//
//	rt := middleware.ChainClient(http.DefaultTransport,
//		middleware.BearerAuth(middleware.StaticToken(token)),
//		middleware.ClientLogging(logger),
//	)
//	httpClient := &http.Client{Transport: rt}
package middleware
