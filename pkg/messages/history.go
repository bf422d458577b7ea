package messages

import (
	"sync"
)

// History is an ordered, id-indexed, concurrency-safe list of messages.
// Stored values are copies; callers never share slices with the history.
type History struct {
	mu       sync.RWMutex
	messages []Message
	index    map[string]int
}

// NewHistory creates a history pre-filled with msgs.
func NewHistory(msgs ...Message) *History {
	h := &History{index: make(map[string]int)}
	h.replaceLocked(msgs)
	return h
}

// Add appends msg. It fails if the id already exists.
func (h *History) Add(msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.index[msg.ID]; exists {
		return NewDuplicateError(msg.ID)
	}
	h.appendLocked(msg)
	return nil
}

// Upsert replaces the message with the same id in place, or appends it.
// It reports whether an existing message was replaced.
func (h *History) Upsert(msg Message) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if idx, ok := h.index[msg.ID]; ok {
		h.messages[idx] = msg.Clone()
		return true
	}
	h.appendLocked(msg)
	return false
}

// Update applies fn to the message with the given id.
func (h *History) Update(id string, fn func(*Message)) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	idx, ok := h.index[id]
	if !ok {
		return false
	}
	m := h.messages[idx].Clone()
	fn(&m)
	m.ID = id
	h.messages[idx] = m
	return true
}

// Rename changes the id of a message in place. It fails when id is unknown
// or newID is already taken.
func (h *History) Rename(id, newID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	idx, ok := h.index[id]
	if !ok {
		return false
	}
	if _, taken := h.index[newID]; taken && newID != id {
		return false
	}
	h.messages[idx].ID = newID
	delete(h.index, id)
	h.index[newID] = idx
	return true
}

// Get retrieves a message by ID
func (h *History) Get(id string) (Message, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	idx, ok := h.index[id]
	if !ok {
		return Message{}, false
	}
	return h.messages[idx].Clone(), true
}

// Has reports whether a message with id exists.
func (h *History) Has(id string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.index[id]
	return ok
}

// Remove deletes the message with id.
func (h *History) Remove(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	idx, ok := h.index[id]
	if !ok {
		return false
	}
	h.messages = append(h.messages[:idx], h.messages[idx+1:]...)
	h.reindexLocked()
	return true
}

// RemoveIf deletes every message matching pred and returns how many were removed.
func (h *History) RemoveIf(pred func(Message) bool) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	kept := h.messages[:0]
	removed := 0
	for _, m := range h.messages {
		if pred(m) {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	h.messages = kept
	if removed > 0 {
		h.reindexLocked()
	}
	return removed
}

// Truncate keeps only the first n messages.
func (h *History) Truncate(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n < 0 {
		n = 0
	}
	if n >= len(h.messages) {
		return
	}
	h.messages = h.messages[:n]
	h.reindexLocked()
}

// Replace swaps the whole content of the history.
func (h *History) Replace(msgs []Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.replaceLocked(msgs)
}

// Clear removes all messages.
func (h *History) Clear() {
	h.Replace(nil)
}

// All returns a copy of all messages in order.
func (h *History) All() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]Message, len(h.messages))
	for i, m := range h.messages {
		result[i] = m.Clone()
	}
	return result
}

// Len returns the number of messages.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

// IndexOf returns the position of id, or -1.
func (h *History) IndexOf(id string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if idx, ok := h.index[id]; ok {
		return idx
	}
	return -1
}

// Last returns the last message matching pred.
func (h *History) Last(pred func(Message) bool) (Message, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for i := len(h.messages) - 1; i >= 0; i-- {
		if pred(h.messages[i]) {
			return h.messages[i].Clone(), true
		}
	}
	return Message{}, false
}

func (h *History) appendLocked(msg Message) {
	h.messages = append(h.messages, msg.Clone())
	h.index[msg.ID] = len(h.messages) - 1
}

func (h *History) replaceLocked(msgs []Message) {
	h.messages = make([]Message, 0, len(msgs))
	h.index = make(map[string]int, len(msgs))
	for _, m := range msgs {
		if idx, ok := h.index[m.ID]; ok {
			h.messages[idx] = m.Clone()
			continue
		}
		h.appendLocked(m)
	}
}

func (h *History) reindexLocked() {
	h.index = make(map[string]int, len(h.messages))
	for i, m := range h.messages {
		h.index[m.ID] = i
	}
}
