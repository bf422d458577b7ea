package tools

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/site-operator/go-sdk/pkg/core"
)

// ErrToolNotFound is returned for names the registry does not hold.
var ErrToolNotFound = errors.New("tool not found")

// Registry holds the tools of one client. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	tools      map[string]*Tool
	validators map[string]*SchemaValidator
}

func NewRegistry() *Registry {
	return &Registry{
		tools:      make(map[string]*Tool),
		validators: make(map[string]*SchemaValidator),
	}
}

// Register adds tools. It fails on an invalid definition or a name that is
// already registered; tools before the failing one stay registered.
func (r *Registry) Register(tools ...*Tool) error {
	for _, tool := range tools {
		if tool == nil {
			return errors.New("tool cannot be nil")
		}
		if err := tool.Validate(); err != nil {
			return fmt.Errorf("tool validation failed: %w", err)
		}

		r.mu.Lock()
		if _, exists := r.tools[tool.Name]; exists {
			r.mu.Unlock()
			return fmt.Errorf("tool %q already registered", tool.Name)
		}
		stored := tool.Clone()
		r.tools[tool.Name] = stored
		r.validators[tool.Name] = NewSchemaValidator(stored.Schema)
		r.mu.Unlock()
	}
	return nil
}

// MustRegister is Register for package level vocabularies. It panics on error.
func (r *Registry) MustRegister(tools ...*Tool) *Registry {
	if err := r.Register(tools...); err != nil {
		panic(err)
	}
	return r
}

// Get returns a copy of the named tool.
func (r *Registry) Get(name string) (*Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}
	return tool.Clone(), nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns copies of every tool, sorted by name.
func (r *Registry) List() []*Tool {
	names := r.Names()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Tool, 0, len(names))
	for _, name := range names {
		if tool, ok := r.tools[name]; ok {
			out = append(out, tool.Clone())
		}
	}
	return out
}

// ValidateArgs checks tool call arguments against the named tool's schema.
func (r *Registry) ValidateArgs(name string, args map[string]any) error {
	r.mu.RLock()
	v, ok := r.validators[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}
	if err := v.Validate(args); err != nil {
		return fmt.Errorf("%s arguments: %w", name, err)
	}
	return nil
}

// Definitions returns the tools as sent in a run input, sorted by name.
func (r *Registry) Definitions() ([]core.Tool, error) {
	tools := r.List()
	out := make([]core.Tool, 0, len(tools))
	for _, tool := range tools {
		def, err := tool.Definition()
		if err != nil {
			return nil, err
		}
		out = append(out, def)
	}
	return out, nil
}
