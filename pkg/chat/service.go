package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/site-operator/go-sdk/internal/metrics"
	"github.com/site-operator/go-sdk/internal/utils"
	"github.com/site-operator/go-sdk/pkg/a2ui"
	"github.com/site-operator/go-sdk/pkg/a2ui/surface"
	"github.com/site-operator/go-sdk/pkg/client"
	"github.com/site-operator/go-sdk/pkg/conversation"
	"github.com/site-operator/go-sdk/pkg/core"
	"github.com/site-operator/go-sdk/pkg/inspector"
	"github.com/site-operator/go-sdk/pkg/messages"
	"github.com/site-operator/go-sdk/pkg/portal"
	"github.com/site-operator/go-sdk/pkg/state"
	"github.com/site-operator/go-sdk/pkg/storage"
)

// Context item descriptions sent with every run.
const (
	ContextDateTime   = "Current date and time"
	ContextAgentState = "AgentState"
)

// Change identifies what a Subscribe callback is notified about.
type Change string

const (
	ChangeMessages      Change = "messages"
	ChangeRun           Change = "run"
	ChangeAppContext    Change = "app_context"
	ChangeAppState      Change = "app_state"
	ChangeAgentState    Change = "agent_state"
	ChangePrompts       Change = "prompts"
	ChangeConversations Change = "conversations"
	ChangeThread        Change = "thread"
	ChangeError         Change = "error"
)

// ConversationStore persists conversations. *conversation.Client and
// *conversation.Memory implement it.
type ConversationStore interface {
	List(ctx context.Context) ([]conversation.Conversation, error)
	Get(ctx context.Context, id string) (*conversation.Conversation, error)
	Create(ctx context.Context, req conversation.CreateRequest) (*conversation.Conversation, error)
	Update(ctx context.Context, id string, patch conversation.Patch) (*conversation.Conversation, error)
	Delete(ctx context.Context, id string) error
}

// AgentContext is the state forwarded to the agent on every run.
type AgentContext struct {
	AppContext *portal.AppContext `json:"appContext,omitempty"`
	AppState   portal.AppState    `json:"appState"`
}

// Config contains the collaborators of a Service. Agent and Bridge are
// required. The rest default to in-process implementations.
type Config struct {
	Agent         *client.Agent
	Bridge        *portal.Bridge
	A2UI          *a2ui.Service
	Conversations ConversationStore
	Threads       storage.ThreadStore
	Inspector     *inspector.Inspector
	Logger        logrus.FieldLogger
	// Tools are advertised to the agent on every run. Nil advertises the
	// portal tool vocabulary; an empty slice advertises nothing.
	Tools []core.Tool
}

// Service is the chat orchestrator. It is the only writer of the agent's
// message list and owns the host application state, suggested prompts and
// the conversation list.
type Service struct {
	agent         *client.Agent
	bridge        *portal.Bridge
	a2ui          *a2ui.Service
	conversations ConversationStore
	threads       storage.ThreadStore
	inspector     *inspector.Inspector
	agentState    *state.Manager
	machine       RunMachine
	tools         []core.Tool
	logger        logrus.FieldLogger
	now           func() time.Time

	mu             sync.RWMutex
	appContext     *portal.AppContext
	appState       portal.AppState
	prompts        []Prompt
	promptsVisible bool
	summaries      []conversation.Summary
	lastErr        error

	changes utils.Observers[Change]
	actions sync.WaitGroup
	unsub   func()
}

// New creates a chat service.
func New(config Config) (*Service, error) {
	if config.Agent == nil {
		return nil, &core.ConfigError{Field: "Agent", Err: errors.New("agent is required")}
	}
	if config.Bridge == nil {
		return nil, &core.ConfigError{Field: "Bridge", Err: errors.New("portal bridge is required")}
	}

	logger := config.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	svc := &Service{
		agent:         config.Agent,
		bridge:        config.Bridge,
		a2ui:          config.A2UI,
		conversations: config.Conversations,
		threads:       config.Threads,
		inspector:     config.Inspector,
		agentState:    state.NewManager(),
		tools:         config.Tools,
		logger:        logger,
		now:           time.Now,
		appState:      portal.NewAppState(),
	}
	if svc.a2ui == nil {
		svc.a2ui = a2ui.NewService(surface.NewProcessor(), a2ui.WithLogger(logger))
	}
	if svc.conversations == nil {
		svc.conversations = conversation.NewMemory("")
	}
	if svc.threads == nil {
		svc.threads = storage.NewMemory()
	}
	if svc.inspector == nil {
		svc.inspector = inspector.New()
	}
	if svc.tools == nil {
		defs, err := portal.ToolDefinitions()
		if err != nil {
			return nil, err
		}
		svc.tools = defs
	}
	if appContext, ok := svc.bridge.Context(); ok {
		svc.appContext = &appContext
	}
	return svc, nil
}

// Initialize adopts portal registrations, resumes the persisted thread and
// loads the conversation list. A persisted thread that cannot be loaded is
// forgotten and an error is returned.
func (s *Service) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.unsub == nil {
		s.unsub = s.bridge.OnRegistered(func(appContext portal.AppContext) {
			s.SetAppContext(appContext)
		})
	}
	s.mu.Unlock()
	s.inspector.SetContext(s.agentContext())

	var errs []error
	threadID, err := s.threads.Load(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("load thread: %w", err))
	}
	if threadID != "" {
		if err := s.LoadConversation(ctx, threadID); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.RefreshConversations(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Close detaches from the bridge and waits for launched portal actions.
func (s *Service) Close() {
	s.mu.Lock()
	unsub := s.unsub
	s.unsub = nil
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
	s.actions.Wait()
}

// Wait blocks until every portal action launched by a run has completed.
func (s *Service) Wait() {
	s.actions.Wait()
}

// Subscribe registers fn for state changes and returns its remover.
func (s *Service) Subscribe(fn func(Change)) func() {
	return s.changes.Add(fn)
}

func (s *Service) notify(c Change) {
	if c == ChangeMessages {
		s.inspector.SetMessages(s.agent.Messages())
	}
	s.changes.Notify(c)
}

// SendMessage adds a message with the given role and runs the agent. The
// conversation is created on first send. The returned error reports a
// failed run; the message stays in the list either way.
func (s *Service) SendMessage(ctx context.Context, content string, role messages.MessageRole) error {
	if role == "" {
		role = messages.RoleUser
	}
	msg, err := messages.New(role, content)
	if err != nil {
		return err
	}
	if s.agent.IsRunning() {
		return core.ErrRunInProgress
	}
	if err := s.ensureConversation(ctx); err != nil {
		s.logger.WithError(err).Warn("continuing without a persisted conversation")
	}

	s.agent.AddMessage(msg)
	s.agent.AddMessage(messages.NewPlaceholder())
	if err := s.machine.Begin(); err != nil {
		s.logger.WithError(err).Warn("send during a run")
	}
	s.notify(ChangeMessages)
	return s.run(ctx)
}

// Reload drops every message after the last user message and runs the
// agent again.
func (s *Service) Reload(ctx context.Context) error {
	if s.agent.IsRunning() {
		return core.ErrRunInProgress
	}
	h := s.agent.History()
	last, ok := h.Last(func(m messages.Message) bool { return m.Role == messages.RoleUser })
	if !ok {
		return fmt.Errorf("reload: no user message")
	}
	h.Truncate(h.IndexOf(last.ID) + 1)
	s.agent.AddMessage(messages.NewPlaceholder())
	if err := s.machine.Begin(); err != nil {
		s.logger.WithError(err).Warn("reload during a run")
	}
	s.notify(ChangeMessages)
	return s.run(ctx)
}

func (s *Service) run(ctx context.Context) error {
	agentCtx := s.agentContext()
	if err := s.agent.SetState(agentCtx); err != nil {
		s.logger.WithError(err).Warn("app state not forwarded")
	}
	items := s.contextItems(agentCtx)

	s.setLastError(nil)
	s.inspector.ClearStream()
	sub := newSubscriber(ctx, s)
	err := s.agent.RunAgent(ctx, client.RunOptions{Context: items, Tools: s.tools}, sub)
	if err == nil && s.machine.State().Running() {
		s.logger.Warn("stream ended without a terminal event")
		sub.finish(nil)
	}
	switch {
	case err == nil && s.LastError() == nil:
		metrics.RunsTotal.WithLabelValues("finished").Inc()
	case errors.Is(err, context.Canceled):
		metrics.RunsTotal.WithLabelValues("cancelled").Inc()
	default:
		metrics.RunsTotal.WithLabelValues("error").Inc()
	}
	s.HideSuggestedPrompts()
	s.persistMessages(ctx)
	s.notify(ChangeRun)
	if err != nil {
		return err
	}
	return s.LastError()
}

func (s *Service) contextItems(agentCtx AgentContext) []core.ContextItem {
	items := []core.ContextItem{{Description: ContextDateTime, Value: s.now().Format(time.RFC1123)}}
	item, err := core.NewContextItem(ContextAgentState, agentCtx)
	if err != nil {
		s.logger.WithError(err).Warn("agent state context omitted")
		return items
	}
	return append(items, item)
}

func (s *Service) ensureConversation(ctx context.Context) error {
	threadID := s.agent.ThreadID()
	if threadID != "" && s.isPersisted(threadID) {
		return nil
	}
	s.mu.RLock()
	var appContext any
	if s.appContext != nil {
		appContext = *s.appContext
	}
	s.mu.RUnlock()

	conv, err := s.conversations.Create(ctx, conversation.CreateRequest{AppContext: appContext})
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	s.agent.SetThreadID(conv.ID)
	if err := s.threads.Save(ctx, conv.ID); err != nil {
		s.logger.WithError(err).Warn("thread id not persisted")
	}
	s.mu.Lock()
	s.summaries = append([]conversation.Summary{conv.Summary()}, s.summaries...)
	s.mu.Unlock()
	s.notify(ChangeThread)
	s.notify(ChangeConversations)
	return nil
}

func (s *Service) isPersisted(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.summaries {
		if c.ID == id {
			return true
		}
	}
	return false
}

func (s *Service) persistMessages(ctx context.Context) {
	threadID := s.agent.ThreadID()
	if !s.isPersisted(threadID) {
		return
	}
	running := false
	_, err := s.conversations.Update(ctx, threadID, conversation.Patch{
		Messages:  s.agent.Messages(),
		IsRunning: &running,
	})
	if err != nil {
		s.logger.WithError(err).WithField("thread_id", threadID).Warn("messages not persisted")
	}
}

// launch executes action on the bridge without blocking the caller.
func (s *Service) launch(ctx context.Context, action portal.Action, source string) {
	s.actions.Add(1)
	go func() {
		defer s.actions.Done()
		res := s.bridge.ExecutePlan(ctx, action)
		entry := s.logger.WithFields(logrus.Fields{
			"source": source,
			"action": action.Type,
			"status": res.Status,
		})
		if !res.OK() {
			entry.WithField("details", res.Details).Warn("portal action failed")
			return
		}
		entry.Debug("portal action executed")
	}()
}

// Messages returns the full message list.
func (s *Service) Messages() []messages.Message {
	return s.agent.Messages()
}

// VisibleMessages returns the messages the thread shows, in order.
func (s *Service) VisibleMessages() []messages.Message {
	all := s.agent.Messages()
	out := make([]messages.Message, 0, len(all))
	for _, m := range all {
		if s.IsVisible(m) {
			out = append(out, m)
		}
	}
	return out
}

// IsVisible applies the visibility filter with this service's A2UI
// extraction.
func (s *Service) IsVisible(msg messages.Message) bool {
	return Visible(msg, s.a2ui)
}

// IsRunning reports whether a run is active.
func (s *Service) IsRunning() bool {
	return s.agent.IsRunning() || s.machine.State().Running()
}

// RunState returns the streaming state.
func (s *Service) RunState() RunState {
	return s.machine.State()
}

// ThreadID returns the active thread id.
func (s *Service) ThreadID() string {
	return s.agent.ThreadID()
}

// AgentState returns the last state published by the agent.
func (s *Service) AgentState() map[string]any {
	return s.agentState.Get()
}

// A2UI returns the generative UI service.
func (s *Service) A2UI() *a2ui.Service {
	return s.a2ui
}

// LastError returns the error of the last run, if any.
func (s *Service) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *Service) setLastError(err error) {
	s.mu.Lock()
	changed := s.lastErr != nil || err != nil
	s.lastErr = err
	s.mu.Unlock()
	if changed {
		s.changes.Notify(ChangeError)
	}
}

func (s *Service) agentContext() AgentContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := AgentContext{AppState: s.appState}
	if s.appContext != nil {
		c := *s.appContext
		out.AppContext = &c
	}
	return out
}

// AppContext returns the host application context.
func (s *Service) AppContext() (portal.AppContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.appContext == nil {
		return portal.AppContext{}, false
	}
	return *s.appContext, true
}

// AppState returns the host application state.
func (s *Service) AppState() portal.AppState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.appState
}

// SetAppContext replaces the host application context.
func (s *Service) SetAppContext(appContext portal.AppContext) {
	if appContext.V == "" {
		appContext.V = portal.SchemaVersion
	}
	s.mu.Lock()
	s.appContext = &appContext
	s.mu.Unlock()
	s.inspector.SetContext(s.agentContext())
	s.notify(ChangeAppContext)
}

// SetAppState replaces the host application state.
func (s *Service) SetAppState(appState portal.AppState) {
	if appState.V == "" {
		appState.V = portal.SchemaVersion
	}
	s.updateAppState(func(st *portal.AppState) { *st = appState })
	s.bridge.SetVisibleTargets(appState.UI.VisibleClickTargetIDs)
}

// SetAppLocation replaces the location part of the state.
func (s *Service) SetAppLocation(location portal.Location) {
	s.updateAppState(func(st *portal.AppState) { st.Location = location })
}

// SetAppUI replaces the UI part of the state and forwards the visible
// targets to the bridge.
func (s *Service) SetAppUI(ui portal.UIState) {
	if ui.VisibleClickTargetIDs == nil {
		ui.VisibleClickTargetIDs = []string{}
	}
	s.updateAppState(func(st *portal.AppState) { st.UI = ui })
	s.bridge.SetVisibleTargets(ui.VisibleClickTargetIDs)
}

// SetAppFocus sets or, with nil, clears the focused entity.
func (s *Service) SetAppFocus(focus *portal.Focus) {
	s.updateAppState(func(st *portal.AppState) { st.Focus = focus })
}

func (s *Service) updateAppState(fn func(*portal.AppState)) {
	s.mu.Lock()
	fn(&s.appState)
	s.mu.Unlock()
	s.inspector.SetContext(s.agentContext())
	s.notify(ChangeAppState)
}

// StartNewThread forgets the persisted thread and clears the conversation
// locally. The server side conversation is kept.
func (s *Service) StartNewThread(ctx context.Context) error {
	if s.agent.IsRunning() {
		return core.ErrRunInProgress
	}
	err := s.threads.Clear(ctx)
	if err != nil {
		err = fmt.Errorf("clear thread: %w", err)
	}
	s.resetThread("")
	return err
}

func (s *Service) resetThread(threadID string) {
	s.agent.SetMessages(nil)
	s.agent.SetThreadID(threadID)
	s.a2ui.Reset()
	s.machine.Finish()
	s.inspector.ClearStream()
	s.setLastError(nil)
	s.notify(ChangeThread)
	s.notify(ChangeMessages)
}

// LoadConversation replaces the active conversation with the stored one.
// On failure the service falls back to an empty thread.
func (s *Service) LoadConversation(ctx context.Context, id string) error {
	if s.agent.IsRunning() {
		return core.ErrRunInProgress
	}
	conv, err := s.conversations.Get(ctx, id)
	if err != nil {
		s.logger.WithError(err).WithField("thread_id", id).Warn("conversation not loaded")
		if clearErr := s.threads.Clear(ctx); clearErr != nil {
			s.logger.WithError(clearErr).Warn("thread id not cleared")
		}
		s.resetThread("")
		return fmt.Errorf("load conversation %s: %w", id, err)
	}

	s.resetThread(conv.ID)
	s.a2ui.ProcessMessages(conv.Messages)
	s.agent.SetMessages(conv.Messages)
	if err := s.threads.Save(ctx, conv.ID); err != nil {
		s.logger.WithError(err).Warn("thread id not persisted")
	}
	s.mu.Lock()
	if !containsSummary(s.summaries, conv.ID) {
		s.summaries = append([]conversation.Summary{conv.Summary()}, s.summaries...)
	}
	s.mu.Unlock()
	s.notify(ChangeMessages)
	return nil
}

// DeleteConversation deletes a stored conversation. Deleting the active
// one starts a new thread.
func (s *Service) DeleteConversation(ctx context.Context, id string) error {
	if err := s.conversations.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete conversation %s: %w", id, err)
	}
	s.mu.Lock()
	kept := s.summaries[:0:0]
	for _, c := range s.summaries {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	s.summaries = kept
	s.mu.Unlock()
	s.notify(ChangeConversations)
	if s.agent.ThreadID() == id {
		return s.StartNewThread(ctx)
	}
	return nil
}

// RefreshConversations reloads the conversation list.
func (s *Service) RefreshConversations(ctx context.Context) error {
	list, err := s.conversations.List(ctx)
	if err != nil {
		return fmt.Errorf("list conversations: %w", err)
	}
	summaries := make([]conversation.Summary, len(list))
	for i, c := range list {
		summaries[i] = c.Summary()
	}
	s.mu.Lock()
	s.summaries = summaries
	s.mu.Unlock()
	s.notify(ChangeConversations)
	return nil
}

// Conversations returns the last loaded conversation list.
func (s *Service) Conversations() []conversation.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]conversation.Summary, len(s.summaries))
	copy(out, s.summaries)
	return out
}

func containsSummary(list []conversation.Summary, id string) bool {
	for _, c := range list {
		if c.ID == id {
			return true
		}
	}
	return false
}
