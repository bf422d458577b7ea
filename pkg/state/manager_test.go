package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/site-operator/go-sdk/pkg/core/events"
)

func TestManager(t *testing.T) {
	t.Run("starts empty", func(t *testing.T) {
		m := NewManager()
		assert.JSONEq(t, `{}`, string(m.Raw()))
		assert.Empty(t, m.Get())
	})

	t.Run("snapshot then patch", func(t *testing.T) {
		m := NewManager()
		require.NoError(t, m.Snapshot(map[string]any{"step": 1, "items": []any{"a"}}))
		require.NoError(t, m.ApplyPatch([]events.JSONPatchOperation{
			{Op: "replace", Path: "/step", Value: 2},
			{Op: "add", Path: "/items/-", Value: "b"},
			{Op: "add", Path: "/nested/deep", Value: true},
		}))

		var got struct {
			Step   int            `json:"step"`
			Items  []string       `json:"items"`
			Nested map[string]any `json:"nested"`
		}
		require.NoError(t, m.Unmarshal(&got))
		assert.Equal(t, 2, got.Step)
		assert.Equal(t, []string{"a", "b"}, got.Items)
		assert.Equal(t, true, got.Nested["deep"])
	})

	t.Run("failed patch leaves document unchanged", func(t *testing.T) {
		m := NewManager()
		require.NoError(t, m.Snapshot(map[string]any{"a": 1}))
		err := m.ApplyPatch([]events.JSONPatchOperation{
			{Op: "replace", Path: "/a", Value: 2},
			{Op: "remove", Path: "/missing"},
		})
		require.Error(t, err)
		assert.JSONEq(t, `{"a":1}`, string(m.Raw()))
	})

	t.Run("invalid operation rejected", func(t *testing.T) {
		m := NewManager()
		err := m.ApplyPatch([]events.JSONPatchOperation{{Op: "frobnicate", Path: "/a"}})
		assert.ErrorContains(t, err, "patch operation 0")
	})

	t.Run("nil snapshot resets", func(t *testing.T) {
		m := NewManager()
		require.NoError(t, m.Snapshot(map[string]any{"a": 1}))
		require.NoError(t, m.Snapshot(nil))
		assert.JSONEq(t, `{}`, string(m.Raw()))
	})
}

func TestPatchDocument(t *testing.T) {
	out, err := PatchDocument([]byte(`{"operations":[]}`), []events.JSONPatchOperation{
		{Op: "add", Path: "/operations/-", Value: map[string]any{"deleteSurface": map[string]any{"surfaceId": "s"}}},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"operations":[{"deleteSurface":{"surfaceId":"s"}}]}`, string(out))

	out, err = PatchDocument(nil, []events.JSONPatchOperation{{Op: "add", Path: "/x", Value: 1}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1}`, string(out))

	same, err := PatchDocument([]byte(`{"y":1}`), nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"y":1}`, string(same))
}
