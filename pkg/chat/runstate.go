package chat

import (
	"fmt"
	"sync"

	"github.com/site-operator/go-sdk/pkg/core"
)

// RunState is the streaming state of the active conversation.
type RunState int

const (
	// Idle means no run is active.
	Idle RunState = iota
	// AwaitingFirstToken means a run started and the thinking placeholder is
	// shown.
	AwaitingFirstToken
	// Streaming means an assistant message is receiving content.
	Streaming
)

func (s RunState) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingFirstToken:
		return "awaiting_first_token"
	case Streaming:
		return "streaming"
	default:
		return fmt.Sprintf("RunState(%d)", int(s))
	}
}

// Running reports whether a run is active.
func (s RunState) Running() bool {
	return s != Idle
}

// RunMachine guards RunState transitions. Illegal transitions return an
// error wrapping core.ErrIllegalTransition and leave the state unchanged.
type RunMachine struct {
	mu    sync.RWMutex
	state RunState
}

// State returns the current state.
func (m *RunMachine) State() RunState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Begin enters AwaitingFirstToken. It is accepted again while already
// awaiting so that the optimistic placeholder and RUN_STARTED agree.
func (m *RunMachine) Begin() error {
	return m.transition("begin", AwaitingFirstToken, Idle, AwaitingFirstToken)
}

// FirstToken enters Streaming when a text message starts. A run may stream
// several assistant messages.
func (m *RunMachine) FirstToken() error {
	return m.transition("first_token", Streaming, AwaitingFirstToken, Streaming)
}

// Append validates that content may be appended.
func (m *RunMachine) Append() error {
	return m.transition("append", Streaming, Streaming)
}

// Finish returns to Idle from any state.
func (m *RunMachine) Finish() {
	m.mu.Lock()
	m.state = Idle
	m.mu.Unlock()
}

func (m *RunMachine) transition(op string, to RunState, from ...RunState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range from {
		if m.state == f {
			m.state = to
			return nil
		}
	}
	return fmt.Errorf("%s while %s: %w", op, m.state, core.ErrIllegalTransition)
}
