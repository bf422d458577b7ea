package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/site-operator/go-sdk/internal/metrics"
	"github.com/site-operator/go-sdk/internal/protocol"
	"github.com/site-operator/go-sdk/pkg/conversation"
	"github.com/site-operator/go-sdk/pkg/core"
	"github.com/site-operator/go-sdk/pkg/core/events"
	"github.com/site-operator/go-sdk/pkg/encoding"
)

const maxBodySize = 8 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, msg string, status int) {
	respondJSON(w, errorResponse{Error: msg}, status)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

type conversationsHandler struct {
	store  ConversationStore
	logger logrus.FieldLogger
}

func (h *conversationsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.List(r.Context())
	if err != nil {
		h.fail(w, "list", err)
		return
	}
	respondJSON(w, items, http.StatusOK)
}

func (h *conversationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get", err)
		return
	}
	respondJSON(w, c, http.StatusOK)
}

func (h *conversationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req conversation.CreateRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	c, err := h.store.Create(r.Context(), req)
	if err != nil {
		h.fail(w, "create", err)
		return
	}
	respondJSON(w, c, http.StatusCreated)
}

func (h *conversationsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch conversation.Patch
	if err := decodeJSON(r, &patch); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	c, err := h.store.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.fail(w, "update", err)
		return
	}
	respondJSON(w, c, http.StatusOK)
}

func (h *conversationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *conversationsHandler) fail(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, conversation.ErrNotFound) {
		respondError(w, err.Error(), http.StatusNotFound)
		return
	}
	h.logger.WithError(err).WithField("op", op).Error("conversation store failed")
	respondError(w, "internal error", http.StatusInternalServerError)
}

// prepareInput fills ids the client left out.
func prepareInput(in *core.RunAgentInput) {
	if in.ThreadID == "" {
		in.ThreadID = events.GenerateThreadID()
	}
	if in.RunID == "" {
		in.RunID = events.GenerateRunID()
	}
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	agent, name, ok := s.agentFor(r)
	if !ok {
		respondError(w, fmt.Sprintf("agent %q not found", name), http.StatusNotFound)
		return
	}

	var input core.RunAgentInput
	if err := decodeJSON(r, &input); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	prepareInput(&input)

	sse := protocol.NewSSEWriter(w)
	w.WriteHeader(http.StatusOK)

	logger := s.logger.WithFields(logrus.Fields{"agent": name, "thread_id": input.ThreadID, "run_id": input.RunID})
	emit := func(e events.Event) error {
		data, err := e.ToJSON()
		if err != nil {
			return err
		}
		return sse.WriteData(data)
	}
	s.runAgent(r.Context(), agent, &input, emit, logger)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	agent, name, ok := s.agentFor(r)
	if !ok {
		respondError(w, fmt.Sprintf("agent %q not found", name), http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	msgType, data, err := conn.ReadMessage()
	if err != nil {
		s.logger.WithError(err).Warn("failed to read run input")
		return
	}
	codec := encoding.Codec(encoding.NewJSON())
	if msgType == websocket.BinaryMessage {
		codec = encoding.NewMsgPack()
	}
	var input core.RunAgentInput
	if err := encoding.Unmarshal(codec, data, &input); err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseUnsupportedData, "invalid run input"),
			time.Now().Add(time.Second))
		return
	}
	prepareInput(&input)

	logger := s.logger.WithFields(logrus.Fields{"agent": name, "thread_id": input.ThreadID, "run_id": input.RunID, "codec": codec.ContentType()})

	g, ctx := errgroup.WithContext(r.Context())
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The reader only detects disconnects; clients send nothing after the input.
	g.Go(func() error {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return nil
			}
		}
	})

	frameType := websocket.TextMessage
	if codec.Binary() {
		frameType = websocket.BinaryMessage
	}
	emit := func(e events.Event) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		data, err := codec.Encode(e)
		if err != nil {
			return err
		}
		if err := conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
			return err
		}
		return conn.WriteMessage(frameType, data)
	}

	s.runAgent(ctx, agent, &input, emit, logger)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	cancel()
	conn.Close()
	_ = g.Wait()
}

func (s *Server) runAgent(ctx context.Context, agent Agent, input *core.RunAgentInput, emit func(events.Event) error, logger logrus.FieldLogger) {
	logger.Debug("run started")
	err := agent.Run(ctx, input, emit)
	switch {
	case err == nil:
		metrics.RunsTotal.WithLabelValues("finished").Inc()
		logger.Debug("run finished")
	case ctx.Err() != nil:
		metrics.RunsTotal.WithLabelValues("cancelled").Inc()
		logger.Info("client disconnected during run")
	default:
		metrics.RunsTotal.WithLabelValues("error").Inc()
		logger.WithError(err).Warn("agent run failed")
		if emitErr := emit(events.NewRunErrorEvent(err.Error(), events.WithRunID(input.RunID))); emitErr != nil {
			logger.WithError(emitErr).Debug("failed to report run error")
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
