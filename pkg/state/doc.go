// Package state keeps the agent's shared state document in sync with
// STATE_SNAPSHOT and STATE_DELTA events, and patches activity content for
// ACTIVITY_DELTA events, using JSON Patch (RFC 6902).
//
// Example usage:
//
//	import "github.com/site-operator/go-sdk/pkg/state"
//
//	sm := state.NewManager()
//	_ = sm.Snapshot(map[string]any{"step": 1})
//	err := sm.ApplyPatch([]events.JSONPatchOperation{
//		{Op: "replace", Path: "/step", Value: 2},
//	})
//	current := sm.Get()
package state
