package surface

import (
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/site-operator/go-sdk/pkg/a2ui"
)

// Node is a resolved component with its children attached.
type Node struct {
	ID       string
	Type     string
	Props    map[string]any
	Weight   *float64
	Children []*Node
}

// Surface is the live state of one rendered surface. Values returned by the
// Processor are copies; the component property maps are shared and must be
// treated as read-only.
type Surface struct {
	ID              string
	RootComponentID string
	Styles          map[string]any
	Components      map[string]a2ui.Component
	DataModel       map[string]any
	// ComponentTree is nil until the root component is known.
	ComponentTree *Node
}

// Processor applies canonical messages to a set of surfaces.
type Processor struct {
	mu       sync.RWMutex
	surfaces map[string]*Surface
	calls    int
	logger   logrus.FieldLogger
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProcessor creates an empty processor.
func NewProcessor(opts ...Option) *Processor {
	l := logrus.New()
	l.SetOutput(io.Discard)
	p := &Processor{surfaces: make(map[string]*Surface), logger: l}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessMessages applies msgs in order.
func (p *Processor) ProcessMessages(msgs []a2ui.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++
	dirty := make(map[string]bool)
	for _, msg := range msgs {
		sid := msg.SurfaceID()
		switch msg.Kind() {
		case a2ui.KindBeginRendering:
			s := p.surfaceLocked(sid)
			s.RootComponentID = msg.BeginRendering.Root
			if msg.BeginRendering.Styles != nil {
				s.Styles = msg.BeginRendering.Styles
			}
			dirty[sid] = true
		case a2ui.KindSurfaceUpdate:
			s := p.surfaceLocked(sid)
			for _, c := range msg.SurfaceUpdate.Components {
				s.Components[c.ID] = c
			}
			dirty[sid] = true
		case a2ui.KindDataModelUpdate:
			s := p.surfaceLocked(sid)
			applyData(s.DataModel, msg.DataModelUpdate)
		case a2ui.KindDeleteSurface:
			delete(p.surfaces, sid)
			delete(dirty, sid)
		default:
			p.logger.WithField("surface_id", sid).Warn("ignoring empty a2ui message")
		}
	}
	for sid := range dirty {
		if s, ok := p.surfaces[sid]; ok {
			s.ComponentTree = buildTree(s)
		}
	}
}

// Surfaces returns a copy of every live surface keyed by id.
func (p *Processor) Surfaces() map[string]*Surface {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]*Surface, len(p.surfaces))
	for id, s := range p.surfaces {
		out[id] = s.clone()
	}
	return out
}

// Surface returns a copy of one surface.
func (p *Processor) Surface(id string) (*Surface, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.surfaces[id]
	if !ok {
		return nil, false
	}
	return s.clone(), true
}

// Root returns the root component id and styles of a surface.
func (p *Processor) Root(surfaceID string) (string, map[string]any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.surfaces[surfaceID]
	if !ok {
		return "", nil, false
	}
	return s.RootComponentID, s.Styles, true
}

// Clear removes every surface.
func (p *Processor) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.surfaces = make(map[string]*Surface)
}

// Calls returns how many batches have been applied.
func (p *Processor) Calls() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.calls
}

func (p *Processor) surfaceLocked(id string) *Surface {
	s, ok := p.surfaces[id]
	if !ok {
		s = &Surface{
			ID:         id,
			Components: make(map[string]a2ui.Component),
			DataModel:  make(map[string]any),
		}
		p.surfaces[id] = s
	}
	return s
}

func (s *Surface) clone() *Surface {
	out := *s
	out.Components = make(map[string]a2ui.Component, len(s.Components))
	for id, c := range s.Components {
		out.Components[id] = c
	}
	out.DataModel, _ = deepCopy(s.DataModel).(map[string]any)
	return &out
}

// Value resolves a slash separated path in the data model.
func (s *Surface) Value(path string) (any, bool) {
	var cur any = s.DataModel
	for _, seg := range segments(path) {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[seg]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func applyData(model map[string]any, u *a2ui.DataModelUpdate) {
	base := segments(u.Path)
	for _, entry := range u.Contents {
		path := append(append([]string(nil), base...), segments(entry.Key)...)
		if len(path) == 0 {
			if m, ok := entry.Value().(map[string]any); ok {
				for k, v := range m {
					model[k] = v
				}
			}
			continue
		}
		setPath(model, path, entry.Value())
	}
}

func setPath(model map[string]any, path []string, v any) {
	cur := model
	for _, seg := range path[:len(path)-1] {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[seg] = next
		}
		cur = next
	}
	cur[path[len(path)-1]] = v
}

func segments(path string) []string {
	var out []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

func buildTree(s *Surface) *Node {
	if s.RootComponentID == "" {
		return nil
	}
	return buildNode(s.Components, s.RootComponentID, map[string]bool{})
}

// buildNode skips missing components and any child already on the path.
func buildNode(components map[string]a2ui.Component, id string, onPath map[string]bool) *Node {
	c, ok := components[id]
	if !ok || onPath[id] {
		return nil
	}
	onPath[id] = true
	defer delete(onPath, id)

	n := &Node{ID: id, Type: c.Type(), Props: c.Props(), Weight: c.Weight}
	for _, childID := range c.Children() {
		if child := buildNode(components, childID, onPath); child != nil {
			n.Children = append(n.Children, child)
		}
	}
	return n
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	}
	return v
}
