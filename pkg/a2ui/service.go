package a2ui

import (
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/site-operator/go-sdk/internal/metrics"
	"github.com/site-operator/go-sdk/internal/utils"
	"github.com/site-operator/go-sdk/pkg/core/events"
	"github.com/site-operator/go-sdk/pkg/ids"
	"github.com/site-operator/go-sdk/pkg/messages"
)

// Processor maintains live surfaces from canonical messages.
type Processor interface {
	ProcessMessages(msgs []Message)
	// Root returns the current root component id and styles of a surface.
	Root(surfaceID string) (root string, styles map[string]any, ok bool)
	Clear()
}

// Update is published after a batch has been applied to the processor.
type Update struct {
	MessageIDs []string
	SurfaceIDs []string
}

// Service maps chat messages to canonical A2UI payloads, applies them to a
// Processor exactly once per message id, and tracks which message owns each
// surface so incremental updates do not produce new chat bubbles.
type Service struct {
	mu        sync.Mutex
	processor Processor
	processed map[string]struct{}
	origins   map[string]messages.Message
	updates   utils.Observers[Update]
	logger    logrus.FieldLogger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a service that applies payloads to processor.
func NewService(processor Processor, opts ...Option) *Service {
	l := logrus.New()
	l.SetOutput(io.Discard)
	s := &Service{
		processor: processor,
		processed: make(map[string]struct{}),
		origins:   make(map[string]messages.Message),
		logger:    l,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Processor returns the underlying processor.
func (s *Service) Processor() Processor {
	return s.processor
}

// OnUpdate registers fn for processor updates and returns its remover.
func (s *Service) OnUpdate(fn func(Update)) func() {
	return s.updates.Add(fn)
}

// IsA2UIMessage reports whether msg carries A2UI payloads: an assistant
// message with an a2ui_ tool call, an activity of type "a2ui", or a legacy
// tool message wrapping an a2ui activity.
func IsA2UIMessage(msg messages.Message) bool {
	switch msg.Role {
	case messages.RoleAssistant:
		for _, tc := range msg.ToolCalls {
			if IsToolName(tc.Function.Name) {
				return true
			}
		}
	case messages.RoleActivity:
		return msg.ActivityType == ActivityType
	case messages.RoleTool:
		_, ok := legacyToolContent(msg)
		return ok
	}
	return false
}

// IsA2UIMessage is the method form of the package function.
func (s *Service) IsA2UIMessage(msg messages.Message) bool {
	return IsA2UIMessage(msg)
}

// Payloads extracts the canonical messages embedded in msg without touching
// the processor. Malformed items are skipped silently; they are logged once
// when the message is processed.
func (s *Service) Payloads(msg messages.Message) []Message {
	return s.extract(msg, false)
}

// IsBeginRenderingOnly reports whether every payload in msg is a bare
// beginRendering. Such messages have nothing to show yet.
func (s *Service) IsBeginRenderingOnly(msg messages.Message) bool {
	payloads := s.extract(msg, false)
	if len(payloads) == 0 {
		return false
	}
	for _, p := range payloads {
		if p.Kind() != KindBeginRendering {
			return false
		}
	}
	return true
}

// ProcessMessages applies the payloads of every message not yet processed
// in one processor batch. Thinking placeholders are never marked processed.
// Every message in msgs, processed or not, is recorded as the owner of the
// surfaces it addresses unless an earlier message in msgs already owns them.
// It returns the number of canonical messages applied.
func (s *Service) ProcessMessages(msgs []messages.Message) int {
	s.mu.Lock()
	var (
		batch  []Message
		msgIDs []string
	)
	for _, msg := range msgs {
		if s.isProcessedLocked(msg) {
			s.registerLocked(s.extract(msg, false), msg, msgs)
			continue
		}
		payloads := s.extract(msg, true)
		if !msg.IsThinking && msg.ID != "" {
			s.processed[msg.ID] = struct{}{}
		}
		if len(payloads) == 0 {
			continue
		}
		s.registerLocked(payloads, msg, msgs)
		batch = append(batch, payloads...)
		msgIDs = append(msgIDs, msg.ID)
	}
	update, ok := s.applyLocked(batch, msgIDs)
	s.mu.Unlock()

	if ok {
		s.updates.Notify(update)
	}
	return len(batch)
}

// ConsolidateStream adds newMsg to current. A message whose payloads address
// a surface already owned by a message in current is merged into that owner
// instead of being appended. Payloads are applied to the processor unless
// the message id was already processed. current is not modified.
func (s *Service) ConsolidateStream(newMsg messages.Message, current []messages.Message) []messages.Message {
	out := make([]messages.Message, len(current), len(current)+1)
	copy(out, current)

	payloads := s.extract(newMsg, true)
	if len(payloads) == 0 {
		return upsert(out, newMsg)
	}

	s.mu.Lock()
	var (
		update  Update
		applied bool
	)
	if !s.isProcessedLocked(newMsg) {
		if !newMsg.IsThinking && newMsg.ID != "" {
			s.processed[newMsg.ID] = struct{}{}
		}
		update, applied = s.applyLocked(payloads, []string{newMsg.ID})
	}

	if idx := indexOf(out, newMsg.ID); idx >= 0 {
		out[idx] = newMsg
		s.registerLocked(payloads, newMsg, out)
		s.mu.Unlock()
		s.notify(update, applied)
		return out
	}

	if owner, idx := s.ownerLocked(payloads, out); idx >= 0 {
		merged := mergeInto(out[idx], newMsg, s.extract(out[idx], false), payloads)
		out[idx] = merged
		s.registerLocked(payloads, merged, out)
		s.logger.WithFields(logrus.Fields{
			"message_id": newMsg.ID,
			"owner_id":   owner,
		}).Debug("consolidated a2ui update into existing surface")
		s.mu.Unlock()
		s.notify(update, applied)
		return out
	}

	s.registerLocked(payloads, newMsg, out)
	s.mu.Unlock()
	s.notify(update, applied)
	return append(out, newMsg)
}

// ProcessSnapshot applies an a2ui ACTIVITY_SNAPSHOT. Surfaces that receive
// components or a new root are deleted first unless the event sets replace
// to false, so stale components never survive a fresh snapshot. It returns
// the activity message for the event.
func (s *Service) ProcessSnapshot(event *events.ActivitySnapshotEvent) messages.Message {
	msg := SnapshotMessage(event)
	payloads, shims, err := normalize([]byte(event.Content))
	s.logNormalize(msg, shims, err)

	s.mu.Lock()
	if event.MessageID != "" {
		s.processed[event.MessageID] = struct{}{}
	}
	var batch []Message
	if event.ShouldReplace() {
		batch = s.replaceLocked(payloads)
	} else {
		batch = payloads
	}
	update, ok := s.applyLocked(batch, []string{event.MessageID})
	s.mu.Unlock()

	if ok {
		s.updates.Notify(update)
	}
	return msg
}

// SnapshotMessage converts an activity snapshot into an activity message.
func SnapshotMessage(event *events.ActivitySnapshotEvent) messages.Message {
	msg, err := messages.NewActivityMessage(event.ActivityType, event.Content)
	if err != nil {
		msg = messages.NewTextActivityMessage(event.ActivityType, string(event.Content))
	}
	if event.MessageID != "" {
		msg.ID = event.MessageID
	}
	return msg
}

// Surfaces returns the ids of surfaces owned by a message, mapped to the
// owning message id.
func (s *Service) Surfaces() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.origins))
	for sid, m := range s.origins {
		out[sid] = m.ID
	}
	return out
}

// Origin returns the message that owns a surface.
func (s *Service) Origin(surfaceID string) (messages.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.origins[surfaceID]
	return m, ok
}

// Reset forgets processed ids and owners and clears every surface.
func (s *Service) Reset() {
	s.mu.Lock()
	s.processed = make(map[string]struct{})
	s.origins = make(map[string]messages.Message)
	s.processor.Clear()
	s.mu.Unlock()
	s.updates.Notify(Update{})
}

func (s *Service) notify(update Update, ok bool) {
	if ok {
		s.updates.Notify(update)
	}
}

func (s *Service) isProcessedLocked(msg messages.Message) bool {
	if msg.IsThinking || msg.ID == "" {
		return false
	}
	_, ok := s.processed[msg.ID]
	return ok
}

// applyLocked repairs roots and hands batch to the processor.
func (s *Service) applyLocked(batch []Message, msgIDs []string) (Update, bool) {
	if len(batch) == 0 {
		return Update{}, false
	}
	batch = s.repairLocked(batch)
	s.processor.ProcessMessages(batch)

	seen := make(map[string]bool)
	var surfaces []string
	for _, m := range batch {
		metrics.A2UIPayloadsTotal.WithLabelValues(string(m.Kind())).Inc()
		if sid := m.SurfaceID(); !seen[sid] {
			seen[sid] = true
			surfaces = append(surfaces, sid)
		}
	}
	s.logger.WithFields(logrus.Fields{
		"payloads": len(batch),
		"surfaces": surfaces,
	}).Debug("applied a2ui batch")
	return Update{MessageIDs: msgIDs, SurfaceIDs: surfaces}, true
}

type rootState struct {
	root   string
	styles map[string]any
}

// repairLocked prepends a beginRendering to every surfaceUpdate whose
// components omit the surface's current root. The first listed component
// becomes the new root.
func (s *Service) repairLocked(batch []Message) []Message {
	roots := make(map[string]*rootState)
	current := func(sid string) *rootState {
		if r, ok := roots[sid]; ok {
			return r
		}
		r := &rootState{}
		if root, styles, ok := s.processor.Root(sid); ok {
			r.root, r.styles = root, styles
		}
		roots[sid] = r
		return r
	}

	out := make([]Message, 0, len(batch))
	for _, m := range batch {
		sid := m.SurfaceID()
		switch m.Kind() {
		case KindBeginRendering:
			r := current(sid)
			r.root = m.BeginRendering.Root
			if m.BeginRendering.Styles != nil {
				r.styles = m.BeginRendering.Styles
			}
		case KindDeleteSurface:
			roots[sid] = &rootState{}
		case KindSurfaceUpdate:
			comps := m.SurfaceUpdate.Components
			r := current(sid)
			if len(comps) > 0 && !containsComponent(comps, r.root) {
				s.logger.WithFields(logrus.Fields{
					"surface_id": sid,
					"old_root":   r.root,
					"new_root":   comps[0].ID,
				}).Debug("surface update omits root, re-rooting")
				out = append(out, Message{BeginRendering: &BeginRendering{
					SurfaceID: sid,
					Root:      comps[0].ID,
					Styles:    r.styles,
				}})
				r.root = comps[0].ID
			}
		}
		out = append(out, m)
	}
	return out
}

// replaceLocked prepends a deleteSurface for every surface that receives a
// beginRendering or surfaceUpdate. A prior root is carried over when the
// new components still contain it.
func (s *Service) replaceLocked(payloads []Message) []Message {
	type plan struct {
		hasBegin bool
		comps    []Component
	}
	plans := make(map[string]*plan)
	var order []string
	for _, m := range payloads {
		if k := m.Kind(); k != KindBeginRendering && k != KindSurfaceUpdate {
			continue
		}
		sid := m.SurfaceID()
		p, ok := plans[sid]
		if !ok {
			p = &plan{}
			plans[sid] = p
			order = append(order, sid)
		}
		if m.Kind() == KindBeginRendering {
			p.hasBegin = true
		} else {
			p.comps = append(p.comps, m.SurfaceUpdate.Components...)
		}
	}

	out := make([]Message, 0, len(payloads)+2*len(order))
	for _, sid := range order {
		out = append(out, NewDeleteSurface(sid))
		p := plans[sid]
		if p.hasBegin {
			continue
		}
		if root, styles, ok := s.processor.Root(sid); ok && root != "" && containsComponent(p.comps, root) {
			out = append(out, Message{BeginRendering: &BeginRendering{SurfaceID: sid, Root: root, Styles: styles}})
		}
	}
	return append(out, payloads...)
}

// registerLocked records owner for the surfaces addressed by payloads. A
// surface keeps its recorded owner while that owner is still in list.
func (s *Service) registerLocked(payloads []Message, owner messages.Message, list []messages.Message) {
	for _, p := range payloads {
		sid := p.SurfaceID()
		if p.Kind() == KindDeleteSurface {
			delete(s.origins, sid)
			continue
		}
		if existing, ok := s.origins[sid]; ok && existing.ID != owner.ID && indexOf(list, existing.ID) >= 0 {
			continue
		}
		s.origins[sid] = owner
	}
}

// ownerLocked finds the message in list owning a surface addressed by payloads.
func (s *Service) ownerLocked(payloads []Message, list []messages.Message) (string, int) {
	for _, p := range payloads {
		owner, ok := s.origins[p.SurfaceID()]
		if !ok {
			continue
		}
		if idx := indexOf(list, owner.ID); idx >= 0 {
			return owner.ID, idx
		}
	}
	return "", -1
}

// extract normalizes the a2ui payloads carried by msg. Problems are logged
// only when logged is set.
func (s *Service) extract(msg messages.Message, logged bool) []Message {
	var (
		out   []Message
		shims []string
		err   error
	)
	switch msg.Role {
	case messages.RoleAssistant:
		for _, tc := range msg.ToolCalls {
			if !IsToolName(tc.Function.Name) {
				continue
			}
			msgs, sh, e := normalizeToolCall(tc.Function.Name, tc.Function.Arguments)
			if e != nil && logged {
				s.logger.WithError(e).WithFields(logrus.Fields{
					"message_id": msg.ID,
					"tool":       tc.Function.Name,
				}).Warn("dropping malformed a2ui tool arguments")
			}
			out = append(out, msgs...)
			shims = append(shims, sh...)
		}
	case messages.RoleActivity:
		if msg.ActivityType != ActivityType {
			return nil
		}
		var raw any = []byte(msg.Data)
		if len(msg.Data) == 0 {
			raw = msg.Content
		}
		out, shims, err = normalize(raw)
	case messages.RoleTool:
		content, ok := legacyToolContent(msg)
		if !ok {
			return nil
		}
		out, shims, err = normalize(content)
		shims = append(shims, ShimActivityWrapper)
	default:
		return nil
	}
	if logged {
		s.logNormalize(msg, shims, err)
	}
	return out
}

func (s *Service) logNormalize(msg messages.Message, shims []string, err error) {
	fields := logrus.Fields{"message_id": msg.ID, "role": msg.Role}
	if err != nil {
		s.logger.WithError(err).WithFields(fields).Warn("dropping malformed a2ui payload")
	}
	if len(shims) > 0 {
		s.logger.WithFields(fields).WithField("shims", shims).Debug("deprecated a2ui payload shape")
	}
}

// legacyToolContent returns the JSON object of a tool message that wraps an
// a2ui activity as {"role":"activity","activity_type":"a2ui",...}.
func legacyToolContent(msg messages.Message) (map[string]any, bool) {
	if msg.Role != messages.RoleTool {
		return nil, false
	}
	var raw []byte
	if len(msg.Data) > 0 {
		raw = msg.Data
	} else {
		trimmed := strings.TrimSpace(msg.Content)
		if !strings.HasPrefix(trimmed, "{") {
			return nil, false
		}
		raw = []byte(trimmed)
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}
	if role, _ := obj["role"].(string); role != "activity" {
		return nil, false
	}
	at, _ := obj["activity_type"].(string)
	if at == "" {
		at, _ = obj["activityType"].(string)
	}
	if at != ActivityType {
		return nil, false
	}
	return obj, true
}

// mergeInto folds the payloads of update into owner. Assistant owners gain
// the tool calls; other owners get {"operations": [...]} content.
func mergeInto(owner, update messages.Message, ownerPayloads, updatePayloads []Message) messages.Message {
	out := owner.Clone()
	if out.Role == messages.RoleAssistant && update.Role == messages.RoleAssistant {
		for _, tc := range update.ToolCalls {
			if IsToolName(tc.Function.Name) {
				out.ToolCalls = append(out.ToolCalls, tc)
			}
		}
		return out
	}

	if out.Role == messages.RoleAssistant {
		data, err := json.Marshal(map[string]any{"operations": updatePayloads})
		if err != nil {
			return out
		}
		id := update.ID
		if id == "" {
			id = ids.NewToolCallID()
		}
		out.ToolCalls = append(out.ToolCalls, messages.NewToolCall(id, ToolPrefix+"operations", string(data)))
		return out
	}

	ops := append(append([]Message(nil), ownerPayloads...), updatePayloads...)
	data, err := json.Marshal(map[string]any{"operations": ops})
	if err != nil {
		return out
	}
	switch out.Role {
	case messages.RoleTool:
		wrapped, err := json.Marshal(map[string]any{
			"role":          "activity",
			"activity_type": ActivityType,
			"content":       json.RawMessage(data),
		})
		if err == nil {
			out.Content = string(wrapped)
			out.Data = nil
		}
	default:
		out.Data = data
		out.Content = ""
	}
	return out
}

func containsComponent(comps []Component, id string) bool {
	if id == "" {
		return false
	}
	for _, c := range comps {
		if c.ID == id {
			return true
		}
	}
	return false
}

func indexOf(list []messages.Message, id string) int {
	if id == "" {
		return -1
	}
	for i, m := range list {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func upsert(list []messages.Message, msg messages.Message) []messages.Message {
	if idx := indexOf(list, msg.ID); idx >= 0 {
		list[idx] = msg
		return list
	}
	return append(list, msg)
}
