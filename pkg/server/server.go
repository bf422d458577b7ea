package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/site-operator/go-sdk/internal/metrics"
	"github.com/site-operator/go-sdk/pkg/conversation"
	"github.com/site-operator/go-sdk/pkg/core"
	"github.com/site-operator/go-sdk/pkg/core/events"
	"github.com/site-operator/go-sdk/pkg/middleware"
)

// DefaultAgent is the agent served at /agent.
const DefaultAgent = "default"

// Agent produces the events of one run. emit fails once the client is gone.
type Agent interface {
	Run(ctx context.Context, input *core.RunAgentInput, emit func(events.Event) error) error
}

// AgentFunc adapts a function to Agent.
type AgentFunc func(ctx context.Context, input *core.RunAgentInput, emit func(events.Event) error) error

// Run implements Agent.
func (f AgentFunc) Run(ctx context.Context, input *core.RunAgentInput, emit func(events.Event) error) error {
	return f(ctx, input, emit)
}

// ConversationStore persists conversations for the REST endpoints.
type ConversationStore interface {
	List(ctx context.Context) ([]conversation.Conversation, error)
	Get(ctx context.Context, id string) (*conversation.Conversation, error)
	Create(ctx context.Context, req conversation.CreateRequest) (*conversation.Conversation, error)
	Update(ctx context.Context, id string, patch conversation.Patch) (*conversation.Conversation, error)
	Delete(ctx context.Context, id string) error
}

// Config contains configuration options for the server.
type Config struct {
	// Address is the server listen address (e.g., ":8080")
	Address string
	Logger  logrus.FieldLogger
	// Conversations defaults to an in-memory store.
	Conversations ConversationStore
	// ShutdownTimeout bounds graceful shutdown. Defaults to 5s.
	ShutdownTimeout time.Duration
}

// Server is a development backend: it hosts agents over SSE and WebSocket
// and serves the conversations API.
type Server struct {
	config        Config
	agents        map[string]Agent
	mu            sync.RWMutex
	conversations ConversationStore
	logger        logrus.FieldLogger
	router        chi.Router
	upgrader      websocket.Upgrader
}

// New creates a server with the specified configuration.
func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	store := config.Conversations
	if store == nil {
		store = conversation.NewMemory("dev")
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 5 * time.Second
	}
	s := &Server{
		config:        config,
		agents:        make(map[string]Agent),
		conversations: store,
		logger:        logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	s.setupRouter()
	return s
}

// RegisterAgent registers an agent with the server under the specified name.
func (s *Server) RegisterAgent(name string, agent Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[name] = agent
}

// UnregisterAgent removes an agent from the server.
func (s *Server) UnregisterAgent(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.agents, name)
}

// GetAgent retrieves a registered agent by name.
func (s *Server) GetAgent(name string) (Agent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agent, exists := s.agents[name]
	return agent, exists
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(s.logger))
	r.Use(middleware.Logger(s.logger))
	r.Use(instrument)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route(conversation.Path, func(r chi.Router) {
		h := &conversationsHandler{store: s.conversations, logger: s.logger}
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})

	r.Post("/agent", s.handleSSE)
	r.Get("/agent/ws", s.handleWebSocket)
	r.Post("/agent/{name}", s.handleSSE)
	r.Get("/agent/{name}/ws", s.handleWebSocket)

	s.router = r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.config.Address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.WithField("address", s.config.Address).Info("starting development server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down development server")
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) agentFor(r *http.Request) (Agent, string, bool) {
	name := chi.URLParam(r, "name")
	if name == "" {
		name = DefaultAgent
	}
	agent, ok := s.GetAgent(name)
	return agent, name, ok
}

func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		pattern := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}
