// Package storage persists the active thread id between sessions.
package storage

import (
	"context"
	"sync"
	"time"
)

// ThreadKey is the key under which the active thread id is stored.
const ThreadKey = "site-operator:threadId"

// ThreadStore remembers the thread a user was last working in.
type ThreadStore interface {
	// Load returns the stored thread id, or "" when nothing is stored.
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, threadID string) error
	Clear(ctx context.Context) error
}

type record struct {
	ThreadID  string    `msgpack:"threadId"`
	UpdatedAt time.Time `msgpack:"updatedAt"`
}

// Memory is a process-local ThreadStore.
type Memory struct {
	mu       sync.Mutex
	threadID string
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Load implements ThreadStore.
func (m *Memory) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threadID, nil
}

// Save implements ThreadStore.
func (m *Memory) Save(_ context.Context, threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threadID = threadID
	return nil
}

// Clear implements ThreadStore.
func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threadID = ""
	return nil
}
