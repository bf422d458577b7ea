package conversation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/site-operator/go-sdk/pkg/ids"
	"github.com/site-operator/go-sdk/pkg/messages"
)

// ErrNotFound is returned by Memory for unknown ids.
var ErrNotFound = errors.New("conversation not found")

// Memory is an in-process conversation store with the same methods as
// Client. Conversation ids are thread ids.
type Memory struct {
	mu     sync.RWMutex
	items  map[string]*Conversation
	userID string
}

// NewMemory creates an empty store owned by userID.
func NewMemory(userID string) *Memory {
	return &Memory{items: make(map[string]*Conversation), userID: userID}
}

// List returns conversations, most recently updated first.
func (m *Memory) List(_ context.Context) ([]Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Conversation, 0, len(m.items))
	for _, c := range m.items {
		out = append(out, copyConversation(c))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Get returns one conversation.
func (m *Memory) Get(_ context.Context, id string) (*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := copyConversation(c)
	return &out, nil
}

// Create stores a new conversation.
func (m *Memory) Create(_ context.Context, req CreateRequest) (*Conversation, error) {
	if req.Title == "" {
		req.Title = DefaultTitle
	}
	now := time.Now()
	c := &Conversation{
		ID:         ids.NewThreadID(),
		Messages:   []messages.Message{},
		Title:      req.Title,
		UserID:     m.userID,
		AppContext: req.AppContext,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.mu.Lock()
	m.items[c.ID] = c
	m.mu.Unlock()
	out := copyConversation(c)
	return &out, nil
}

// Update applies patch.
func (m *Memory) Update(_ context.Context, id string, patch Patch) (*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	patch.Apply(c)
	c.UpdatedAt = time.Now()
	out := copyConversation(c)
	return &out, nil
}

// Delete removes a conversation.
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func copyConversation(c *Conversation) Conversation {
	out := *c
	out.Messages = make([]messages.Message, len(c.Messages))
	for i, msg := range c.Messages {
		out.Messages[i] = msg.Clone()
	}
	return out
}
