package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/site-operator/go-sdk/pkg/core"
	"github.com/site-operator/go-sdk/pkg/encoding"
	"github.com/site-operator/go-sdk/pkg/middleware"
)

// WriteTimeout bounds a single frame write.
const WriteTimeout = 10 * time.Second

// WebSocketConfig configures the WebSocket transport.
type WebSocketConfig struct {
	// URL is a ws:// or wss:// endpoint.
	URL string
	// Codec selects how the run input is written. Incoming text frames are
	// always JSON and binary frames MessagePack.
	Codec  encoding.Codec
	Dialer *websocket.Dialer
	Token  middleware.TokenSource
	Logger logrus.FieldLogger
}

// WebSocket sends the run input as the first frame and reads events until
// the run terminates or the server closes the connection.
type WebSocket struct {
	url    string
	codec  encoding.Codec
	dialer *websocket.Dialer
	token  middleware.TokenSource
	logger logrus.FieldLogger
}

// NewWebSocket creates a WebSocket transport.
func NewWebSocket(cfg WebSocketConfig) (*WebSocket, error) {
	if cfg.URL == "" {
		return nil, &core.ConfigError{Field: "URL", Value: cfg.URL, Err: errors.New("agent URL cannot be empty")}
	}
	codec := cfg.Codec
	if codec == nil {
		codec = encoding.NewJSON()
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	logger := cfg.Logger
	if logger == nil {
		logger = discardLogger()
	}
	return &WebSocket{url: cfg.URL, codec: codec, dialer: dialer, token: cfg.Token, logger: logger}, nil
}

// Run implements Transport.
func (t *WebSocket) Run(ctx context.Context, input *core.RunAgentInput, handle Handler) error {
	if err := input.Validate(); err != nil {
		return err
	}

	header := http.Header{}
	if t.token != nil {
		if tok := t.token(); tok != "" {
			header.Set("Authorization", "Bearer "+tok)
		}
	}

	conn, resp, err := t.dialer.DialContext(ctx, t.url, header)
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return statusError("websocket", t.url, resp)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &core.TransportError{Transport: "websocket", URL: t.url, Err: err}
	}
	defer conn.Close()

	if err := t.writeInput(conn, input); err != nil {
		return &core.TransportError{Transport: "websocket", URL: t.url, Err: err}
	}

	done := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(done)
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return nil
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return &core.TransportError{Transport: "websocket", URL: t.url, Err: err}
			}

			codec := encoding.Codec(encoding.NewJSON())
			if msgType == websocket.BinaryMessage {
				codec = encoding.NewMsgPack()
			}
			event, err := codec.Decode(data)
			if err != nil {
				t.logger.WithError(err).Warn("skipping malformed event")
				continue
			}
			handle(event)
			if isTerminal(event) {
				t.closeNormally(conn)
				return nil
			}
		}
	})

	g.Go(func() error {
		select {
		case <-gctx.Done():
			// Unblocks ReadMessage.
			conn.Close()
			return nil
		case <-done:
			return nil
		}
	})

	return g.Wait()
}

func (t *WebSocket) writeInput(conn *websocket.Conn, input *core.RunAgentInput) error {
	msgType := websocket.TextMessage
	if t.codec.Binary() {
		msgType = websocket.BinaryMessage
	}
	data, err := encoding.Marshal(t.codec, input)
	if err != nil {
		return fmt.Errorf("encode run input: %w", err)
	}
	if err := conn.SetWriteDeadline(time.Now().Add(WriteTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(msgType, data)
}

func (t *WebSocket) closeNormally(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run complete")
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		t.logger.WithError(err).Debug("close handshake failed")
	}
}
