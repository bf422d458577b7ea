package messages

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory(t *testing.T) {
	t.Run("Add and retrieve messages", func(t *testing.T) {
		h := NewHistory()

		msg1 := NewUserMessage("First message")
		msg2 := NewAssistantMessage("Second message")

		require.NoError(t, h.Add(msg1))
		require.NoError(t, h.Add(msg2))
		assert.Equal(t, 2, h.Len())

		got, ok := h.Get(msg1.ID)
		require.True(t, ok)
		assert.Equal(t, "First message", got.Content)
		assert.Equal(t, 1, h.IndexOf(msg2.ID))
		assert.Equal(t, -1, h.IndexOf("missing"))
	})

	t.Run("Prevent duplicate messages", func(t *testing.T) {
		h := NewHistory()
		msg := NewUserMessage("Test message")
		require.NoError(t, h.Add(msg))

		err := h.Add(msg)
		var mErr *MessageError
		require.True(t, errors.As(err, &mErr))
		assert.Equal(t, ErrorTypeDuplicate, mErr.Type)
	})

	t.Run("Upsert replaces in place", func(t *testing.T) {
		a := NewUserMessage("a")
		b := NewAssistantMessage("b")
		h := NewHistory(a, b)

		a.Content = "a2"
		assert.True(t, h.Upsert(a))
		assert.Equal(t, 0, h.IndexOf(a.ID))

		c := NewAssistantMessage("c")
		assert.False(t, h.Upsert(c))
		assert.Equal(t, 3, h.Len())
		assert.Equal(t, "a2", h.All()[0].Content)
	})

	t.Run("Update applies function", func(t *testing.T) {
		m := NewAssistantMessage("")
		h := NewHistory(m)
		ok := h.Update(m.ID, func(msg *Message) { msg.Content += "x"; msg.ID = "hijack" })
		require.True(t, ok)
		got, _ := h.Get(m.ID)
		assert.Equal(t, "x", got.Content)
		assert.False(t, h.Update("missing", func(*Message) {}))
	})

	t.Run("Remove and RemoveIf reindex", func(t *testing.T) {
		a, b, c := NewUserMessage("a"), NewPlaceholder(), NewAssistantMessage("c")
		h := NewHistory(a, b, c)

		assert.Equal(t, 1, h.RemoveIf(func(m Message) bool { return m.IsThinking }))
		assert.Equal(t, 1, h.IndexOf(c.ID))
		assert.True(t, h.Remove(a.ID))
		assert.Equal(t, 0, h.IndexOf(c.ID))
		assert.False(t, h.Remove(a.ID))
	})

	t.Run("Truncate and Last", func(t *testing.T) {
		u1, a1, u2, a2 := NewUserMessage("1"), NewAssistantMessage("1"), NewUserMessage("2"), NewAssistantMessage("2")
		h := NewHistory(u1, a1, u2, a2)

		last, ok := h.Last(func(m Message) bool { return m.Role == RoleUser })
		require.True(t, ok)
		assert.Equal(t, u2.ID, last.ID)

		h.Truncate(h.IndexOf(u2.ID) + 1)
		assert.Equal(t, 3, h.Len())
		assert.False(t, h.Has(a2.ID))
	})

	t.Run("Replace deduplicates", func(t *testing.T) {
		a := NewUserMessage("a")
		a2 := a
		a2.Content = "again"
		h := NewHistory()
		h.Replace([]Message{a, a2})
		assert.Equal(t, 1, h.Len())
		assert.Equal(t, "again", h.All()[0].Content)
		h.Clear()
		assert.Equal(t, 0, h.Len())
	})

	t.Run("Rename", func(t *testing.T) {
		a := NewPlaceholder()
		b := NewUserMessage("b")
		h := NewHistory(a, b)
		require.True(t, h.Rename(a.ID, "msg_stream"))
		assert.False(t, h.Has(a.ID))
		assert.Equal(t, 0, h.IndexOf("msg_stream"))
		assert.False(t, h.Rename("missing", "x"))
		assert.False(t, h.Rename("msg_stream", b.ID))
	})

	t.Run("All returns copies", func(t *testing.T) {
		m := NewAssistantMessageWithTools(NewToolCall("tc", "x", "{}"))
		h := NewHistory(m)
		all := h.All()
		all[0].ToolCalls[0].ID = "mutated"
		got, _ := h.Get(m.ID)
		assert.Equal(t, "tc", got.ToolCalls[0].ID)
	})
}

func TestHistoryConcurrency(t *testing.T) {
	h := NewHistory()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m := NewUserMessage("x")
			h.Upsert(m)
			_ = h.All()
			h.Update(m.ID, func(msg *Message) { msg.Content = "y" })
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, h.Len())
}
