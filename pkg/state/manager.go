package state

import (
	"encoding/json"
	"fmt"
	"sync"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/site-operator/go-sdk/pkg/core/events"
)

// Manager holds the agent's shared state document. Snapshots replace it;
// deltas are applied as RFC 6902 patches.
type Manager struct {
	mu  sync.RWMutex
	doc []byte
}

// NewManager creates a manager with an empty object document.
func NewManager() *Manager {
	return &Manager{doc: []byte("{}")}
}

// Snapshot replaces the whole document with v.
func (m *Manager) Snapshot(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("state snapshot: %w", err)
	}
	if v == nil {
		data = []byte("{}")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc = data
	return nil
}

// ApplyPatch applies ops atomically. The document is unchanged on error.
func (m *Manager) ApplyPatch(ops []events.JSONPatchOperation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := PatchDocument(m.doc, ops)
	if err != nil {
		return err
	}
	m.doc = next
	return nil
}

// Raw returns a copy of the current JSON document.
func (m *Manager) Raw() json.RawMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append(json.RawMessage(nil), m.doc...)
}

// Get returns the document decoded as a map. Non-object documents yield nil.
func (m *Manager) Get() map[string]any {
	var out map[string]any
	if err := m.Unmarshal(&out); err != nil {
		return nil
	}
	return out
}

// Unmarshal decodes the current document into v.
func (m *Manager) Unmarshal(v any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return json.Unmarshal(m.doc, v)
}

// PatchDocument applies ops to doc and returns the new document.
func PatchDocument(doc []byte, ops []events.JSONPatchOperation) ([]byte, error) {
	if len(ops) == 0 {
		return doc, nil
	}
	for i, op := range ops {
		if err := op.Validate(); err != nil {
			return nil, fmt.Errorf("patch operation %d: %w", i, err)
		}
	}

	patchJSON, err := json.Marshal(ops)
	if err != nil {
		return nil, fmt.Errorf("encode patch: %w", err)
	}
	patch, err := jsonpatch.DecodePatch(patchJSON)
	if err != nil {
		return nil, fmt.Errorf("decode patch: %w", err)
	}
	if len(doc) == 0 {
		doc = []byte("{}")
	}
	opts := jsonpatch.NewApplyOptions()
	opts.EnsurePathExistsOnAdd = true
	out, err := patch.ApplyWithOptions(doc, opts)
	if err != nil {
		return nil, fmt.Errorf("apply patch: %w", err)
	}
	return out, nil
}
