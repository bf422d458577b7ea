package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/site-operator/go-sdk/internal/protocol"
	"github.com/site-operator/go-sdk/pkg/core"
	"github.com/site-operator/go-sdk/pkg/encoding"
	"github.com/site-operator/go-sdk/pkg/middleware"
)

// HTTPConfig configures the HTTP/SSE transport.
type HTTPConfig struct {
	// URL of the agent endpoint that accepts a POSTed run and answers with an event stream.
	URL string
	// Client overrides the HTTP client. When nil one is built with NewHTTPClient.
	Client *http.Client
	// Token, when set, adds bearer authentication.
	Token middleware.TokenSource
	// Headers are added to every request.
	Headers map[string]string
	Logger  logrus.FieldLogger
}

// HTTPSSE posts the run input and consumes a text/event-stream response.
type HTTPSSE struct {
	url     string
	client  *http.Client
	headers map[string]string
	codec   encoding.Codec
	logger  logrus.FieldLogger
}

// NewHTTPSSE creates an HTTP/SSE transport.
func NewHTTPSSE(cfg HTTPConfig) (*HTTPSSE, error) {
	if cfg.URL == "" {
		return nil, &core.ConfigError{Field: "URL", Value: cfg.URL, Err: errors.New("agent URL cannot be empty")}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = discardLogger()
	}
	client := cfg.Client
	if client == nil {
		client = NewHTTPClient(middleware.BearerAuth(cfg.Token), middleware.ClientLogging(logger))
	}
	return &HTTPSSE{
		url:     cfg.URL,
		client:  client,
		headers: cfg.Headers,
		codec:   encoding.NewJSON(),
		logger:  logger,
	}, nil
}

// Run implements Transport.
func (t *HTTPSSE) Run(ctx context.Context, input *core.RunAgentInput, handle Handler) error {
	if err := input.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("encode run input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return &core.TransportError{Transport: "sse", URL: t.url, Err: err}
	}
	req.Header.Set("Content-Type", encoding.ContentTypeJSON)
	req.Header.Set("Accept", "text/event-stream")
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &core.TransportError{Transport: "sse", URL: t.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError("sse", t.url, resp)
	}

	reader := protocol.NewSSEReader(resp.Body)
	for {
		frame, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &core.TransportError{Transport: "sse", URL: t.url, Err: err}
		}

		event, err := t.codec.Decode(frame.Data)
		if err != nil {
			t.logger.WithError(err).WithField("frame", string(frame.Data)).Warn("skipping malformed event")
			continue
		}
		handle(event)
		if isTerminal(event) {
			return nil
		}
	}
}
