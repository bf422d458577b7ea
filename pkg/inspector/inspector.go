// Package inspector keeps a debugging view of the chat core: the most
// recent protocol events, the application context sent to the agent and
// the current message list.
package inspector

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/site-operator/go-sdk/internal/utils"
	"github.com/site-operator/go-sdk/pkg/core/events"
	"github.com/site-operator/go-sdk/pkg/messages"
)

// MaxEvents bounds the event stream.
const MaxEvents = 100

// TimeFormat is the wall-clock format of Entry.Time.
const TimeFormat = "15:04:05"

// Change names what changed in a notification.
type Change string

const (
	ChangeStream   Change = "stream"
	ChangeContext  Change = "context"
	ChangeMessages Change = "messages"
)

// Entry is one recorded event.
type Entry struct {
	Event   string          `json:"event"`
	Content json.RawMessage `json:"content,omitempty"`
	Time    string          `json:"time"`
}

// View is a point-in-time copy of the inspector state.
type View struct {
	// Events are newest first.
	Events   []Entry            `json:"events"`
	Context  any                `json:"context,omitempty"`
	Messages []messages.Message `json:"messages"`
}

// Inspector is safe for concurrent use.
type Inspector struct {
	mu       sync.RWMutex
	events   []Entry
	context  any
	messages []messages.Message
	changes  utils.Observers[Change]
	now      func() time.Time
}

// New returns an empty Inspector.
func New() *Inspector {
	return &Inspector{now: time.Now}
}

// Record adds a protocol event to the stream.
func (i *Inspector) Record(e events.Event) {
	content, err := e.ToJSON()
	if err != nil {
		content = nil
	}
	i.RecordRaw(string(e.Type()), content)
}

// RecordRaw adds an arbitrary named entry, such as a transport failure.
func (i *Inspector) RecordRaw(name string, content json.RawMessage) {
	entry := Entry{Event: name, Content: content, Time: i.now().Format(TimeFormat)}
	i.mu.Lock()
	i.events = append([]Entry{entry}, i.events...)
	if len(i.events) > MaxEvents {
		i.events = i.events[:MaxEvents]
	}
	i.mu.Unlock()
	i.changes.Notify(ChangeStream)
}

// ClearStream drops all recorded events.
func (i *Inspector) ClearStream() {
	i.mu.Lock()
	i.events = nil
	i.mu.Unlock()
	i.changes.Notify(ChangeStream)
}

// SetContext replaces the context view.
func (i *Inspector) SetContext(ctx any) {
	i.mu.Lock()
	i.context = ctx
	i.mu.Unlock()
	i.changes.Notify(ChangeContext)
}

// SetMessages replaces the message view.
func (i *Inspector) SetMessages(msgs []messages.Message) {
	cp := make([]messages.Message, len(msgs))
	for n, m := range msgs {
		cp[n] = m.Clone()
	}
	i.mu.Lock()
	i.messages = cp
	i.mu.Unlock()
	i.changes.Notify(ChangeMessages)
}

// Events returns the recorded events, newest first.
func (i *Inspector) Events() []Entry {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]Entry, len(i.events))
	copy(out, i.events)
	return out
}

// View returns a copy of the whole state.
func (i *Inspector) View() View {
	i.mu.RLock()
	defer i.mu.RUnlock()
	v := View{
		Events:   make([]Entry, len(i.events)),
		Context:  i.context,
		Messages: make([]messages.Message, len(i.messages)),
	}
	copy(v.Events, i.events)
	for n, m := range i.messages {
		v.Messages[n] = m.Clone()
	}
	return v
}

// OnChange registers fn and returns a function that removes it.
func (i *Inspector) OnChange(fn func(Change)) func() {
	return i.changes.Add(fn)
}
