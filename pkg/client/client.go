package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/site-operator/go-sdk/pkg/core"
	"github.com/site-operator/go-sdk/pkg/core/events"
	"github.com/site-operator/go-sdk/pkg/encoding"
	"github.com/site-operator/go-sdk/pkg/ids"
	"github.com/site-operator/go-sdk/pkg/messages"
	"github.com/site-operator/go-sdk/pkg/middleware"
	"github.com/site-operator/go-sdk/pkg/transport"
)

// Config contains configuration options for the agent.
type Config struct {
	// URL is the agent endpoint. http(s) URLs use Server-Sent Events and
	// ws(s) URLs use WebSocket. Ignored when Transport is set.
	URL string
	// ThreadID resumes an existing thread. A new id is generated when empty.
	ThreadID  string
	Transport transport.Transport
	// Codec selects the WebSocket input encoding.
	Codec  encoding.Codec
	Token  middleware.TokenSource
	Logger logrus.FieldLogger
}

// RunOptions are forwarded to the agent with a single run.
type RunOptions struct {
	RunID          string
	Context        []core.ContextItem
	Tools          []core.Tool
	ForwardedProps any
}

// Agent holds the client side of one conversation with an agent: its
// messages, thread id and shared state. It runs the agent through a
// transport and dispatches the resulting events to a Subscriber.
type Agent struct {
	mu        sync.RWMutex
	transport transport.Transport
	history   *messages.History
	threadID  string
	state     any
	running   bool
	logger    logrus.FieldLogger
}

// New creates an agent with the specified configuration.
func New(config Config) (*Agent, error) {
	logger := config.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}

	tr := config.Transport
	if tr == nil {
		var err error
		tr, err = transportFor(config, logger)
		if err != nil {
			return nil, err
		}
	}

	threadID := config.ThreadID
	if threadID == "" {
		threadID = ids.NewThreadID()
	}
	return &Agent{
		transport: tr,
		history:   messages.NewHistory(),
		threadID:  threadID,
		logger:    logger,
	}, nil
}

func transportFor(config Config, logger logrus.FieldLogger) (transport.Transport, error) {
	if config.URL == "" {
		return nil, &core.ConfigError{
			Field: "URL",
			Value: config.URL,
			Err:   errors.New("agent URL cannot be empty"),
		}
	}
	u, err := url.Parse(config.URL)
	if err != nil {
		return nil, &core.ConfigError{
			Field: "URL",
			Value: config.URL,
			Err:   fmt.Errorf("invalid agent URL: %w", err),
		}
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return transport.NewHTTPSSE(transport.HTTPConfig{URL: config.URL, Token: config.Token, Logger: logger})
	case "ws", "wss":
		return transport.NewWebSocket(transport.WebSocketConfig{URL: config.URL, Codec: config.Codec, Token: config.Token, Logger: logger})
	default:
		return nil, &core.ConfigError{
			Field: "URL",
			Value: config.URL,
			Err:   fmt.Errorf("unsupported scheme %q", u.Scheme),
		}
	}
}

// Messages returns a copy of the message list.
func (a *Agent) Messages() []messages.Message {
	return a.history.All()
}

// SetMessages replaces the message list.
func (a *Agent) SetMessages(msgs []messages.Message) {
	a.history.Replace(msgs)
}

// AddMessage appends msg, or replaces the message with the same id.
func (a *Agent) AddMessage(msg messages.Message) {
	a.history.Upsert(msg)
}

// UpdateMessage applies fn to the message with id. It reports whether the
// message exists.
func (a *Agent) UpdateMessage(id string, fn func(*messages.Message)) bool {
	return a.history.Update(id, fn)
}

// History exposes the underlying message list.
func (a *Agent) History() *messages.History {
	return a.history
}

// IsRunning reports whether a run is in progress.
func (a *Agent) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}

// ThreadID returns the current thread id.
func (a *Agent) ThreadID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.threadID
}

// SetThreadID switches the agent to another thread.
func (a *Agent) SetThreadID(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.threadID = id
}

// State returns the state sent with every run.
func (a *Agent) State() any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// SetState replaces the state sent with every run. v is converted to plain
// JSON values (maps, slices, strings, float64, bool) so it can be encoded
// by any codec.
func (a *Agent) SetState(v any) error {
	normalized, err := normalizeState(v)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = normalized
	return nil
}

func normalizeState(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	value, err := structpb.NewValue(generic)
	if err != nil {
		return nil, fmt.Errorf("state is not JSON compatible: %w", err)
	}
	return value.AsInterface(), nil
}

// RunAgent runs the agent once with the current messages and state and
// dispatches every event to sub. It returns after the run ends. Only one
// run may be active at a time.
func (a *Agent) RunAgent(ctx context.Context, opts RunOptions, sub Subscriber) error {
	if sub == nil {
		sub = NoopSubscriber{}
	}

	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return core.ErrRunInProgress
	}
	a.running = true
	threadID := a.threadID
	state := a.state
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	runID := opts.RunID
	if runID == "" {
		runID = ids.Short("run")
	}
	input := &core.RunAgentInput{
		ThreadID:       threadID,
		RunID:          runID,
		Messages:       messages.ToWireList(a.history.All()),
		State:          state,
		Tools:          opts.Tools,
		Context:        opts.Context,
		ForwardedProps: opts.ForwardedProps,
	}
	if input.Tools == nil {
		input.Tools = []core.Tool{}
	}
	if input.Context == nil {
		input.Context = []core.ContextItem{}
	}

	logger := a.logger.WithFields(logrus.Fields{"thread_id": threadID, "run_id": runID})
	d := &dispatcher{sub: sub, calls: make(map[string]*ToolCall), logger: logger}

	logger.Debug("starting run")
	err := a.transport.Run(ctx, input, d.dispatch)
	if err != nil && !d.terminal {
		logger.WithError(err).Warn("run failed")
		sub.OnRunFailed(err)
		return err
	}
	return nil
}

type dispatcher struct {
	sub      Subscriber
	calls    map[string]*ToolCall
	terminal bool
	logger   logrus.FieldLogger
}

func (d *dispatcher) dispatch(e events.Event) {
	d.sub.OnEvent(e)

	switch ev := e.(type) {
	case *events.RunStartedEvent:
		d.sub.OnRunStarted(ev)
	case *events.RunFinishedEvent:
		d.terminal = true
		d.sub.OnRunFinished(ev)
	case *events.RunErrorEvent:
		d.terminal = true
		d.sub.OnRunError(ev)
	case *events.StepStartedEvent:
		d.sub.OnStepStarted(ev)
	case *events.StepFinishedEvent:
		d.sub.OnStepFinished(ev)
	case *events.TextMessageStartEvent:
		d.sub.OnTextMessageStart(ev)
	case *events.TextMessageContentEvent:
		d.sub.OnTextMessageContent(ev)
	case *events.TextMessageEndEvent:
		d.sub.OnTextMessageEnd(ev)
	case *events.ToolCallStartEvent:
		call := &ToolCall{ID: ev.ToolCallID, Name: ev.ToolCallName}
		if ev.ParentMessageID != nil {
			call.ParentMessageID = *ev.ParentMessageID
		}
		d.calls[ev.ToolCallID] = call
		d.sub.OnToolCallStart(ev)
	case *events.ToolCallArgsEvent:
		if call, ok := d.calls[ev.ToolCallID]; ok {
			call.RawArgs += ev.Delta
		} else {
			d.logger.WithField("tool_call_id", ev.ToolCallID).Warn("args for unknown tool call")
		}
		d.sub.OnToolCallArgs(ev)
	case *events.ToolCallEndEvent:
		call, ok := d.calls[ev.ToolCallID]
		if !ok {
			call = &ToolCall{ID: ev.ToolCallID}
		}
		delete(d.calls, ev.ToolCallID)
		d.sub.OnToolCallEnd(ev, *call)
	case *events.ToolCallResultEvent:
		d.sub.OnToolCallResult(ev)
	case *events.StateSnapshotEvent:
		d.sub.OnStateSnapshot(ev)
	case *events.StateDeltaEvent:
		d.sub.OnStateDelta(ev)
	case *events.MessagesSnapshotEvent:
		d.sub.OnMessagesSnapshot(ev)
	case *events.ActivitySnapshotEvent:
		d.sub.OnActivitySnapshot(ev)
	case *events.ActivityDeltaEvent:
		d.sub.OnActivityDelta(ev)
	case *events.CustomEvent:
		if call, ok := ev.AsClientToolCall(); ok {
			d.sub.OnClientToolCall(call)
			return
		}
		d.sub.OnCustomEvent(ev)
	case *events.RawEvent:
		d.sub.OnRawEvent(ev)
	default:
		d.logger.WithField("event", e.Type()).Debug("unhandled event type")
	}
}
