package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"

	"github.com/site-operator/go-sdk/pkg/core"
	"github.com/site-operator/go-sdk/pkg/core/events"
	"github.com/site-operator/go-sdk/pkg/middleware"
)

// Handler receives decoded events in delivery order.
type Handler func(events.Event)

// Transport runs one agent request and streams the resulting events to handle.
// Run returns when the stream ends, the context is cancelled, or the
// connection fails. Cancelling ctx is how callers stop a run.
type Transport interface {
	Run(ctx context.Context, input *core.RunAgentInput, handle Handler) error
}

// Func adapts a function to Transport.
type Func func(ctx context.Context, input *core.RunAgentInput, handle Handler) error

// Run implements Transport.
func (f Func) Run(ctx context.Context, input *core.RunAgentInput, handle Handler) error {
	return f(ctx, input, handle)
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// NewHTTPClient returns an HTTP client whose transport negotiates HTTP/2 and
// runs every request through mws.
func NewHTTPClient(mws ...middleware.ClientMiddleware) *http.Client {
	base := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	// Falls back to HTTP/1.1 when the transport is already configured.
	_ = http2.ConfigureTransport(base)

	// No client timeout: runs are long-lived streams bounded by ctx.
	return &http.Client{Transport: middleware.ChainClient(base, mws...)}
}

func isTerminal(e events.Event) bool {
	switch e.Type() {
	case events.EventTypeRunFinished, events.EventTypeRunError:
		return true
	}
	return false
}

func statusError(kind, url string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &core.TransportError{
		Transport: kind,
		URL:       url,
		Err: &core.ProtocolError{
			Operation: "run",
			Code:      resp.StatusCode,
			Err:       fmt.Errorf("unexpected status %s: %s", resp.Status, body),
		},
	}
}
