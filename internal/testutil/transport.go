package testutil

import (
	"context"
	"sync"

	"github.com/site-operator/go-sdk/pkg/core"
	"github.com/site-operator/go-sdk/pkg/core/events"
	"github.com/site-operator/go-sdk/pkg/transport"
)

// Run is the scripted result of one agent run.
type Run struct {
	Events []events.Event
	// Err is returned after the events have been delivered.
	Err error
}

// Scripted is a transport that replays one Run per call, in order. Calls
// beyond the script deliver nothing.
type Scripted struct {
	mu     sync.Mutex
	runs   []Run
	inputs []*core.RunAgentInput

	// Before is called with the input before any event is delivered.
	Before func(in *core.RunAgentInput)
}

var _ transport.Transport = (*Scripted)(nil)

// NewScripted returns a transport that replays runs.
func NewScripted(runs ...Run) *Scripted {
	return &Scripted{runs: runs}
}

// Events is shorthand for a successful Run.
func Events(evs ...events.Event) Run {
	return Run{Events: evs}
}

// Push appends runs to the script.
func (s *Scripted) Push(runs ...Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, runs...)
}

// Run implements transport.Transport.
func (s *Scripted) Run(ctx context.Context, in *core.RunAgentInput, handle transport.Handler) error {
	s.mu.Lock()
	s.inputs = append(s.inputs, in)
	var run Run
	if len(s.runs) > 0 {
		run = s.runs[0]
		s.runs = s.runs[1:]
	}
	before := s.Before
	s.mu.Unlock()

	if before != nil {
		before(in)
	}
	for _, e := range run.Events {
		if err := ctx.Err(); err != nil {
			return err
		}
		handle(e)
	}
	return run.Err
}

// Inputs returns the inputs of every call so far.
func (s *Scripted) Inputs() []*core.RunAgentInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*core.RunAgentInput, len(s.inputs))
	copy(out, s.inputs)
	return out
}

// TextRun scripts a run that streams one assistant message made of deltas.
func TextRun(threadID, runID, messageID string, deltas ...string) Run {
	evs := []events.Event{
		events.NewRunStartedEvent(threadID, runID),
		events.NewTextMessageStartEvent(messageID, events.WithRole("assistant")),
	}
	for _, d := range deltas {
		evs = append(evs, events.NewTextMessageContentEvent(messageID, d))
	}
	evs = append(evs,
		events.NewTextMessageEndEvent(messageID),
		events.NewRunFinishedEvent(threadID, runID),
	)
	return Run{Events: evs}
}

// ToolCall returns the START, ARGS and END events of a tool call.
func ToolCall(id, name, args string) []events.Event {
	return []events.Event{
		events.NewToolCallStartEvent(id, name),
		events.NewToolCallArgsEvent(id, args),
		events.NewToolCallEndEvent(id),
	}
}
