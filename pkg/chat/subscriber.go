package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/site-operator/go-sdk/internal/metrics"
	"github.com/site-operator/go-sdk/pkg/a2ui"
	"github.com/site-operator/go-sdk/pkg/client"
	"github.com/site-operator/go-sdk/pkg/core/events"
	"github.com/site-operator/go-sdk/pkg/messages"
	"github.com/site-operator/go-sdk/pkg/portal"
	"github.com/site-operator/go-sdk/pkg/state"
)

// subscriber applies the events of one run to a Service. Handlers never
// return errors: malformed input is logged and skipped.
type subscriber struct {
	client.NoopSubscriber

	svc    *Service
	ctx    context.Context
	logger logrus.FieldLogger
}

func newSubscriber(ctx context.Context, svc *Service) *subscriber {
	return &subscriber{
		svc:    svc,
		ctx:    context.WithoutCancel(ctx),
		logger: svc.logger.WithField("thread_id", svc.agent.ThreadID()),
	}
}

var _ client.Subscriber = (*subscriber)(nil)

func (s *subscriber) history() *messages.History {
	return s.svc.agent.History()
}

func (s *subscriber) OnEvent(e events.Event) {
	metrics.EventsTotal.WithLabelValues(string(e.Type())).Inc()
	s.svc.inspector.Record(e)
}

func (s *subscriber) OnRunStarted(e *events.RunStartedEvent) {
	if err := s.svc.machine.Begin(); err != nil {
		s.logger.WithError(err).Warn("run started twice")
	}
	s.ensurePlaceholder()
	s.logger.WithField("run_id", e.RunID).Debug("run started")
	s.svc.notify(ChangeRun)
}

// ensurePlaceholder leaves exactly one thinking message in the history.
func (s *subscriber) ensurePlaceholder() {
	h := s.history()
	seen := false
	h.RemoveIf(func(m messages.Message) bool {
		if !m.IsThinking {
			return false
		}
		if seen {
			return true
		}
		seen = true
		return false
	})
	if !seen {
		h.Upsert(messages.NewPlaceholder())
	}
	s.svc.notify(ChangeMessages)
}

func (s *subscriber) OnTextMessageStart(e *events.TextMessageStartEvent) {
	logger := s.logger.WithField("message_id", e.MessageID)
	if err := s.svc.machine.FirstToken(); err != nil {
		logger.WithError(err).Warn("text message outside a run")
	}
	role := messages.RoleAssistant
	if e.Role != nil && *e.Role != "" {
		role = messages.MessageRole(*e.Role)
	}

	h := s.history()
	if ph, ok := h.Last(isThinking); ok {
		if h.Has(e.MessageID) {
			h.Remove(ph.ID)
		} else {
			h.Rename(ph.ID, e.MessageID)
		}
	}
	if !h.Update(e.MessageID, func(m *messages.Message) {
		m.IsThinking = false
		m.Role = role
	}) {
		msg := messages.NewAssistantMessage("")
		msg.ID = e.MessageID
		msg.Role = role
		h.Upsert(msg)
	}
	s.svc.notify(ChangeMessages)
}

func (s *subscriber) OnTextMessageContent(e *events.TextMessageContentEvent) {
	logger := s.logger.WithField("message_id", e.MessageID)
	if err := s.svc.machine.Append(); err != nil {
		logger.WithError(err).Warn("dropping content")
		return
	}
	if !s.history().Update(e.MessageID, func(m *messages.Message) {
		m.Content += e.Delta
	}) {
		logger.Debug("content for unknown message")
		return
	}
	s.svc.notify(ChangeMessages)
}

func (s *subscriber) OnTextMessageEnd(e *events.TextMessageEndEvent) {
	s.svc.notify(ChangeMessages)
}

func (s *subscriber) OnToolCallEnd(_ *events.ToolCallEndEvent, call client.ToolCall) {
	logger := s.logger.WithFields(logrus.Fields{"tool": call.Name, "tool_call_id": call.ID})

	if a2ui.IsToolName(call.Name) {
		msg := messages.NewAssistantMessageWithTools(messages.NewToolCall(call.ID, call.Name, call.RawArgs))
		msg.ID = call.ID
		s.consolidate(msg)
		return
	}

	args, err := call.Args()
	if err != nil {
		logger.WithError(err).Warn("skipping tool call with malformed arguments")
		return
	}
	action, ok, err := portal.FromToolCall(call.Name, args)
	switch {
	case !ok:
		logger.Debug("tool call handled by the agent")
	case err != nil:
		logger.WithError(err).Warn("skipping malformed portal action")
	default:
		s.svc.launch(s.ctx, action, call.Name)
	}
}

func (s *subscriber) OnToolCallResult(e *events.ToolCallResultEvent) {
	msg := messages.NewToolMessage(e.Content, e.ToolCallID)
	if e.MessageID != "" {
		msg.ID = e.MessageID
	}
	s.consolidate(msg)
}

func (s *subscriber) consolidate(msg messages.Message) {
	h := s.history()
	h.Replace(s.svc.a2ui.ConsolidateStream(msg, h.All()))
	s.svc.notify(ChangeMessages)
}

func (s *subscriber) OnStateSnapshot(e *events.StateSnapshotEvent) {
	if err := s.svc.agentState.Snapshot(e.Snapshot); err != nil {
		s.logger.WithError(err).Warn("skipping state snapshot")
		return
	}
	s.svc.notify(ChangeAgentState)
}

func (s *subscriber) OnStateDelta(e *events.StateDeltaEvent) {
	if err := s.svc.agentState.ApplyPatch(e.Delta); err != nil {
		s.logger.WithError(err).Warn("skipping state delta")
		return
	}
	s.svc.notify(ChangeAgentState)
}

func (s *subscriber) OnMessagesSnapshot(e *events.MessagesSnapshotEvent) {
	incoming := make([]messages.Message, 0, len(e.Messages))
	for _, w := range e.Messages {
		msg := messages.FromWire(w)
		if msg.ID == "" {
			s.logger.WithField("role", w.Role).Warn("skipping snapshot message without id")
			continue
		}
		if hiddenInSnapshot(msg) {
			continue
		}
		incoming = append(incoming, msg)
	}

	merged := preserveLocal(s.history().All(), incoming)
	s.svc.a2ui.ProcessMessages(merged)
	s.history().Replace(merged)
	s.svc.notify(ChangeMessages)
}

// hiddenInSnapshot drops tool results and assistant messages that only
// carry calls to agent-side tools.
func hiddenInSnapshot(msg messages.Message) bool {
	if a2ui.IsA2UIMessage(msg) {
		return false
	}
	switch msg.Role {
	case messages.RoleTool:
		return true
	case messages.RoleAssistant:
		return len(msg.ToolCalls) > 0 && strings.TrimSpace(msg.Content) == ""
	}
	return false
}

// preserveLocal returns incoming with the activity and thinking messages of
// current that it lacks, each placed after the message it followed locally.
func preserveLocal(current, incoming []messages.Message) []messages.Message {
	out := make([]messages.Message, len(incoming), len(incoming)+len(current))
	copy(out, incoming)
	pos := make(map[string]int, len(out))
	for i, m := range out {
		pos[m.ID] = i
	}

	anchor := -1
	for _, m := range current {
		if i, ok := pos[m.ID]; ok {
			anchor = i
			continue
		}
		if m.Role != messages.RoleActivity && !m.IsThinking {
			continue
		}
		at := anchor + 1
		out = append(out, messages.Message{})
		copy(out[at+1:], out[at:])
		out[at] = m
		for id, i := range pos {
			if i >= at {
				pos[id] = i + 1
			}
		}
		pos[m.ID] = at
		anchor = at
	}
	return out
}

func (s *subscriber) OnActivitySnapshot(e *events.ActivitySnapshotEvent) {
	logger := s.logger.WithFields(logrus.Fields{"message_id": e.MessageID, "activity": e.ActivityType})

	switch {
	case e.ActivityType == a2ui.ActivityType:
		s.consolidate(s.svc.a2ui.ProcessSnapshot(e))
		return
	case portal.IsActivityType(e.ActivityType):
		action, err := portal.FromActivity(e.ActivityType, e.Content)
		if err != nil {
			logger.WithError(err).Warn("skipping malformed portal activity")
		} else {
			s.svc.launch(s.ctx, action, e.ActivityType)
		}
	}

	h := s.history()
	if !e.ShouldReplace() && h.Has(e.MessageID) {
		return
	}
	h.Upsert(a2ui.SnapshotMessage(e))
	s.svc.notify(ChangeMessages)
}

func (s *subscriber) OnActivityDelta(e *events.ActivityDeltaEvent) {
	logger := s.logger.WithFields(logrus.Fields{"message_id": e.MessageID, "activity": e.ActivityType})

	h := s.history()
	msg, ok := h.Get(e.MessageID)
	if !ok {
		logger.Warn("delta for unknown activity")
		return
	}
	doc := msg.Data
	if len(doc) == 0 {
		doc = json.RawMessage("{}")
	}
	patched, err := state.PatchDocument(doc, e.Patch)
	if err != nil {
		logger.WithError(err).Warn("skipping activity delta")
		return
	}
	h.Update(e.MessageID, func(m *messages.Message) { m.Data = patched })

	activityType := e.ActivityType
	if activityType == "" {
		activityType = msg.ActivityType
	}
	if activityType == a2ui.ActivityType {
		snapshot, err := events.NewActivitySnapshotEvent(e.MessageID, activityType, json.RawMessage(patched))
		if err != nil {
			logger.WithError(err).Warn("skipping activity delta")
			return
		}
		s.svc.a2ui.ProcessSnapshot(snapshot)
	}
	s.svc.notify(ChangeMessages)
}

func (s *subscriber) OnClientToolCall(call events.ClientToolCall) {
	logger := s.logger.WithField("tool", call.ToolName)
	action, ok, err := portal.FromToolCall(call.ToolName, call.Args)
	switch {
	case !ok:
		logger.Warn("unsupported client tool call")
	case err != nil:
		logger.WithError(err).Warn("skipping malformed client tool call")
	default:
		s.svc.launch(s.ctx, action, call.ToolName)
	}
}

func (s *subscriber) OnCustomEvent(e *events.CustomEvent) {
	s.logger.WithField("name", e.Name).Debug("custom event")
}

func (s *subscriber) OnRawEvent(e *events.RawEvent) {
	s.logger.Debug("raw event")
}

func (s *subscriber) OnRunFinished(e *events.RunFinishedEvent) {
	logger := s.logger.WithField("run_id", e.RunID)
	if e.Result != nil {
		logger = logger.WithField("result", e.Result)
	}
	logger.Debug("run finished")
	s.finish(nil)
}

func (s *subscriber) OnRunError(e *events.RunErrorEvent) {
	err := fmt.Errorf("run error: %s", e.Message)
	fields := logrus.Fields{"run_id": e.RunID}
	if e.Code != nil {
		fields["code"] = *e.Code
	}
	s.logger.WithFields(fields).WithError(err).Error("agent reported an error")
	s.finish(err)
}

func (s *subscriber) OnRunFailed(err error) {
	s.logger.WithError(err).Error("run failed")
	content, _ := json.Marshal(map[string]string{"error": err.Error()})
	s.svc.inspector.RecordRaw("RUN_FAILED", content)
	s.finish(err)
}

// finish ends the run and drops the thinking placeholder. err is kept as
// the last error when set.
func (s *subscriber) finish(err error) {
	s.svc.machine.Finish()
	s.history().RemoveIf(isThinking)
	if err != nil {
		s.svc.setLastError(err)
	}
	s.svc.notify(ChangeRun)
	s.svc.notify(ChangeMessages)
}

func isThinking(m messages.Message) bool {
	return m.IsThinking
}
