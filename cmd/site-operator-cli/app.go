package main

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/site-operator/go-sdk/internal/config"
	"github.com/site-operator/go-sdk/pkg/a2ui"
	"github.com/site-operator/go-sdk/pkg/a2ui/surface"
	"github.com/site-operator/go-sdk/pkg/chat"
	"github.com/site-operator/go-sdk/pkg/client"
	"github.com/site-operator/go-sdk/pkg/conversation"
	"github.com/site-operator/go-sdk/pkg/encoding"
	"github.com/site-operator/go-sdk/pkg/middleware"
	"github.com/site-operator/go-sdk/pkg/portal"
	"github.com/site-operator/go-sdk/pkg/storage"
	"github.com/site-operator/go-sdk/pkg/transport"
)

// session is a chat service wired to the configured agent, conversations
// API and thread store, with a terminal host registered on its bridge.
type session struct {
	svc     *chat.Service
	host    *host
	closers []io.Closer
}

func (s *session) Close() {
	s.svc.Close()
	for _, c := range s.closers {
		_ = c.Close()
	}
}

func newConversationStore(cfg *config.Config, log logrus.FieldLogger) (chat.ConversationStore, error) {
	if cfg.API.URL == "" {
		return conversation.NewMemory(""), nil
	}
	var token middleware.TokenSource
	if cfg.API.Token != "" {
		token = middleware.StaticToken(cfg.API.Token)
	}
	return conversation.New(conversation.Config{APIURL: cfg.API.URL, Token: token, Logger: log})
}

func newTransport(cfg *config.Config, log logrus.FieldLogger) (transport.Transport, error) {
	var token middleware.TokenSource
	if cfg.Agent.Token != "" {
		token = middleware.StaticToken(cfg.Agent.Token)
	}
	kind, err := cfg.TransportKind()
	if err != nil {
		return nil, err
	}
	if kind == config.TransportWebSocket {
		codec, err := encoding.ForName(cfg.Agent.Codec)
		if err != nil {
			return nil, err
		}
		return transport.NewWebSocket(transport.WebSocketConfig{URL: cfg.Agent.URL, Codec: codec, Token: token, Logger: log})
	}
	return transport.NewHTTPSSE(transport.HTTPConfig{URL: cfg.Agent.URL, Token: token, Logger: log})
}

func newSession(ctx context.Context, cfg *config.Config, log *logrus.Logger, out io.Writer) (*session, error) {
	s := &session{}

	var threads storage.ThreadStore = storage.NewMemory()
	if cfg.Storage.ThreadPath != "" {
		db, err := storage.OpenPebble(cfg.Storage.ThreadPath)
		if err != nil {
			return nil, err
		}
		threads = db
		s.closers = append(s.closers, db)
	}

	conversations, err := newConversationStore(cfg, log)
	if err != nil {
		return nil, err
	}
	tr, err := newTransport(cfg, log)
	if err != nil {
		return nil, err
	}
	agent, err := client.New(client.Config{Transport: tr, Logger: log})
	if err != nil {
		return nil, err
	}

	appContext, err := cfg.AppContext()
	if err != nil {
		return nil, err
	}
	bridge := portal.New(portal.WithTargetTimeout(cfg.Portal.TargetTimeout), portal.WithLogger(log))

	svc, err := chat.New(chat.Config{
		Agent:         agent,
		Bridge:        bridge,
		A2UI:          a2ui.NewService(surface.NewProcessor(surface.WithLogger(log)), a2ui.WithLogger(log)),
		Conversations: conversations,
		Threads:       threads,
		Logger:        log,
	})
	if err != nil {
		return nil, err
	}
	s.svc = svc
	s.host = &host{svc: svc, context: appContext, out: out}

	if err := svc.Initialize(ctx); err != nil {
		log.WithError(err).Warn("initialization incomplete")
	}
	bridge.RegisterPortal(appContext, &portal.Handlers{ExecutePlan: s.host.execute})
	s.host.enter(svc.AppState().Location.Path)
	svc.SetSuggestedPrompts(cfg.App.Prompts)
	return s, nil
}

// host plays the host application: it tracks the current route and
// reports the actions the agent performs.
type host struct {
	svc     *chat.Service
	context portal.AppContext
	out     io.Writer
}

func (h *host) execute(_ context.Context, action portal.Action) portal.Result {
	switch action.Type {
	case portal.ActionNavigate:
		path := action.ToPath
		if route, ok := h.context.Route(action.ToRouteID); ok {
			path = route.Path
		}
		fmt.Fprintf(h.out, "\n[navigate] %s\n", path)
		h.enter(path)
	case portal.ActionOpen:
		fmt.Fprintf(h.out, "\n[open] %s\n", action.ToPath)
	case portal.ActionClick:
		fmt.Fprintf(h.out, "\n[click] %s\n", action.TargetID)
	case portal.ActionSetValue:
		fmt.Fprintf(h.out, "\n[set value] %s = %v\n", action.TargetID, action.Value)
	default:
		return portal.Result{Status: portal.StatusError, Details: fmt.Sprintf("unsupported action %q", action.Type)}
	}
	return portal.Result{Status: portal.StatusOK}
}

// enter moves to path and exposes the click targets of its route.
func (h *host) enter(path string) {
	loc := portal.Location{Path: path}
	targets := []string{}
	if h.context.Nav != nil {
		for _, t := range h.context.Nav.GlobalClickTargets {
			targets = append(targets, t.ID)
		}
	}
	for _, r := range h.context.Routes() {
		if r.Path != path {
			continue
		}
		loc.RouteID = r.ID
		loc.Title = r.Title
		for _, t := range r.ClickTargets {
			targets = append(targets, t.ID)
		}
	}
	h.svc.SetAppLocation(loc)
	h.svc.SetAppUI(portal.UIState{VisibleClickTargetIDs: targets})
}
