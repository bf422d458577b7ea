package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/site-operator/go-sdk/pkg/ids"
	"github.com/site-operator/go-sdk/pkg/messages"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("u1")

	first, err := m.Create(ctx, CreateRequest{Title: "First"})
	require.NoError(t, err)
	assert.True(t, ids.HasKind(first.ID, ids.Thread))
	assert.Equal(t, "u1", first.UserID)

	time.Sleep(2 * time.Millisecond)
	second, err := m.Create(ctx, CreateRequest{})
	require.NoError(t, err)
	assert.Equal(t, DefaultTitle, second.Title)

	list, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "most recently updated first")

	time.Sleep(2 * time.Millisecond)
	title := "Renamed"
	_, err = m.Update(ctx, first.ID, Patch{Title: &title})
	require.NoError(t, err)
	list, err = m.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, list[0].ID)

	require.NoError(t, m.Delete(ctx, first.ID))
	_, err = m.Get(ctx, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.Delete(ctx, first.ID), ErrNotFound)
	_, err = m.Update(ctx, first.ID, Patch{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("u1")
	c, err := m.Create(ctx, CreateRequest{})
	require.NoError(t, err)
	_, err = m.Update(ctx, c.ID, Patch{Messages: []messages.Message{messages.NewUserMessage("hi")}})
	require.NoError(t, err)

	got, err := m.Get(ctx, c.ID)
	require.NoError(t, err)
	got.Messages[0].Content = "changed"
	got.Title = "changed"

	again, err := m.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "hi", again.Messages[0].Content)
	assert.Equal(t, DefaultTitle, again.Title)
}

func TestPatchApply(t *testing.T) {
	running := true
	c := Conversation{Title: "a"}
	Patch{IsRunning: &running}.Apply(&c)
	assert.Equal(t, "a", c.Title)
	assert.True(t, c.IsRunning)
	assert.Nil(t, c.Messages)
}
