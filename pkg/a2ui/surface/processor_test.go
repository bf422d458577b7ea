package surface

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/site-operator/go-sdk/pkg/a2ui"
)

func column(id string, children ...string) a2ui.Component {
	list := make([]any, len(children))
	for i, c := range children {
		list[i] = c
	}
	return a2ui.NewComponent(id, "Column", map[string]any{
		"children": map[string]any{"explicitList": list},
	})
}

func text(id, s string) a2ui.Component {
	return a2ui.NewComponent(id, "Text", map[string]any{"text": s})
}

func TestProcessorBuildsTree(t *testing.T) {
	p := NewProcessor()
	p.ProcessMessages([]a2ui.Message{
		a2ui.NewBeginRendering("s1", "root"),
		a2ui.NewSurfaceUpdate("s1",
			column("root", "title", "card"),
			text("title", "Hello"),
			a2ui.NewComponent("card", "Card", map[string]any{"child": "body"}),
			text("body", "World"),
		),
	})

	s, ok := p.Surface("s1")
	require.True(t, ok)
	assert.Equal(t, "root", s.RootComponentID)
	assert.Len(t, s.Components, 4)

	tree := s.ComponentTree
	require.NotNil(t, tree)
	assert.Equal(t, "Column", tree.Type)
	require.Len(t, tree.Children, 2)
	assert.Equal(t, "title", tree.Children[0].ID)
	require.Len(t, tree.Children[1].Children, 1)
	assert.Equal(t, "body", tree.Children[1].Children[0].ID)
	assert.Equal(t, 1, p.Calls())
}

func TestProcessorCycleSafe(t *testing.T) {
	p := NewProcessor()
	p.ProcessMessages([]a2ui.Message{
		a2ui.NewBeginRendering("s1", "a"),
		a2ui.NewSurfaceUpdate("s1", column("a", "b", "missing"), column("b", "a")),
	})

	s, ok := p.Surface("s1")
	require.True(t, ok)
	require.NotNil(t, s.ComponentTree)
	require.Len(t, s.ComponentTree.Children, 1)
	assert.Empty(t, s.ComponentTree.Children[0].Children)
}

func TestProcessorDataModel(t *testing.T) {
	p := NewProcessor()
	p.ProcessMessages([]a2ui.Message{
		a2ui.NewDataModelUpdate("s1", "form",
			a2ui.String("name", "Ada"),
			a2ui.Number("age", 36),
			a2ui.Map("address", a2ui.String("city", "London")),
		),
		a2ui.NewDataModelUpdate("s1", "", a2ui.Bool("ready", true)),
	})

	s, ok := p.Surface("s1")
	require.True(t, ok)

	tests := []struct {
		path string
		want any
	}{
		{"form/name", "Ada"},
		{"form/age", 36.0},
		{"/form/address/city", "London"},
		{"ready", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			v, ok := s.Value(tt.path)
			require.True(t, ok)
			assert.Equal(t, tt.want, v)
		})
	}

	_, ok = s.Value("form/missing")
	assert.False(t, ok)
}

func TestProcessorDeleteAndClear(t *testing.T) {
	p := NewProcessor()
	p.ProcessMessages([]a2ui.Message{
		a2ui.NewBeginRendering("s1", "root"),
		a2ui.NewBeginRendering("s2", "root"),
	})
	assert.Len(t, p.Surfaces(), 2)

	p.ProcessMessages([]a2ui.Message{a2ui.NewDeleteSurface("s1")})
	_, ok := p.Surface("s1")
	assert.False(t, ok)
	root, _, ok := p.Root("s2")
	assert.True(t, ok)
	assert.Equal(t, "root", root)

	p.Clear()
	assert.Empty(t, p.Surfaces())
}

func TestSurfaceCopiesAreIndependent(t *testing.T) {
	p := NewProcessor()
	p.ProcessMessages([]a2ui.Message{a2ui.NewDataModelUpdate("s1", "", a2ui.String("k", "v"))})

	s, _ := p.Surface("s1")
	s.DataModel["k"] = "changed"

	again, _ := p.Surface("s1")
	assert.Equal(t, "v", again.DataModel["k"])
}
