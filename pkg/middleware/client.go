package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip implements http.RoundTripper.
func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// ClientMiddleware wraps an http.RoundTripper.
type ClientMiddleware func(http.RoundTripper) http.RoundTripper

// ChainClient applies middlewares so the first one sees the request first.
func ChainClient(base http.RoundTripper, mws ...ClientMiddleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	for i := len(mws) - 1; i >= 0; i-- {
		base = mws[i](base)
	}
	return base
}

// TokenSource returns the current bearer token. An empty token disables auth.
type TokenSource func() string

// StaticToken returns a TokenSource that always yields token.
func StaticToken(token string) TokenSource {
	return func() string { return token }
}

// BearerAuth adds "Authorization: Bearer <token>" to requests that do not
// already carry an Authorization header.
func BearerAuth(tokens TokenSource) ClientMiddleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if tokens == nil || r.Header.Get("Authorization") != "" {
				return next.RoundTrip(r)
			}
			token := tokens()
			if token == "" {
				return next.RoundTrip(r)
			}
			clone := r.Clone(r.Context())
			clone.Header.Set("Authorization", "Bearer "+token)
			return next.RoundTrip(clone)
		})
	}
}

// ClientLogging logs every outgoing request at debug level.
func ClientLogging(logger logrus.FieldLogger) ClientMiddleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)
			entry := logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"url":      r.URL.String(),
				"duration": time.Since(start),
			})
			if err != nil {
				entry.WithError(err).Debug("http request failed")
				return resp, err
			}
			entry.WithField("status", resp.StatusCode).Debug("http request")
			return resp, nil
		})
	}
}
