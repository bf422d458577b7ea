package events

import (
	"encoding/json"
	"errors"
)

var (
	errThreadIDRequired = errors.New("thread ID is required")
	errRunIDRequired    = errors.New("run ID is required")
	errStepNameRequired = errors.New("step name is required")
)

// validateRun checks the identifiers every run lifecycle event carries.
func validateRun(base *BaseEvent, threadID, runID string) error {
	if err := base.Validate(); err != nil {
		return err
	}
	if threadID == "" {
		return errThreadIDRequired
	}
	if runID == "" {
		return errRunIDRequired
	}
	return nil
}

// RunStartedEvent opens a run on a thread. The chat service answers it by
// showing a thinking placeholder until the first content arrives.
type RunStartedEvent struct {
	*BaseEvent
	ThreadID string `json:"threadId"`
	RunID    string `json:"runId"`
	// ParentRunID links a run started on behalf of another run.
	ParentRunID string `json:"parentRunId,omitempty"`
}

// RunStartedOption configures a RunStartedEvent.
type RunStartedOption func(*RunStartedEvent)

// WithParentRunID sets the run that caused this one.
func WithParentRunID(id string) RunStartedOption {
	return func(e *RunStartedEvent) {
		e.ParentRunID = id
	}
}

func NewRunStartedEvent(threadID, runID string, opts ...RunStartedOption) *RunStartedEvent {
	e := &RunStartedEvent{
		BaseEvent: NewBaseEvent(EventTypeRunStarted),
		ThreadID:  threadID,
		RunID:     runID,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *RunStartedEvent) Validate() error {
	return validateRun(e.BaseEvent, e.ThreadID, e.RunID)
}

func (e *RunStartedEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// RunFinishedEvent closes a run successfully.
type RunFinishedEvent struct {
	*BaseEvent
	ThreadID string `json:"threadId"`
	RunID    string `json:"runId"`
	// Result is the run's final output as the agent reports it: any JSON
	// value, or nil when the agent has nothing beyond the streamed messages.
	// The chat service only logs it.
	Result any `json:"result,omitempty"`
}

// RunFinishedOption configures a RunFinishedEvent.
type RunFinishedOption func(*RunFinishedEvent)

// WithResult attaches the run's final output.
func WithResult(result any) RunFinishedOption {
	return func(e *RunFinishedEvent) {
		e.Result = result
	}
}

func NewRunFinishedEvent(threadID, runID string, opts ...RunFinishedOption) *RunFinishedEvent {
	e := &RunFinishedEvent{
		BaseEvent: NewBaseEvent(EventTypeRunFinished),
		ThreadID:  threadID,
		RunID:     runID,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *RunFinishedEvent) Validate() error {
	return validateRun(e.BaseEvent, e.ThreadID, e.RunID)
}

func (e *RunFinishedEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// RunErrorEvent ends a run with an agent-side failure. It carries no thread
// ID; RunID is optional.
type RunErrorEvent struct {
	*BaseEvent
	Code    *string `json:"code,omitempty"`
	Message string  `json:"message"`
	RunID   string  `json:"runId,omitempty"`
}

// RunErrorOption configures a RunErrorEvent.
type RunErrorOption func(*RunErrorEvent)

func NewRunErrorEvent(message string, opts ...RunErrorOption) *RunErrorEvent {
	e := &RunErrorEvent{
		BaseEvent: NewBaseEvent(EventTypeRunError),
		Message:   message,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithErrorCode sets the machine readable error code.
func WithErrorCode(code string) RunErrorOption {
	return func(e *RunErrorEvent) {
		e.Code = &code
	}
}

// WithRunID names the failed run.
func WithRunID(runID string) RunErrorOption {
	return func(e *RunErrorEvent) {
		e.RunID = runID
	}
}

func (e *RunErrorEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}
	if e.Message == "" {
		return errors.New("error message is required")
	}
	return nil
}

func (e *RunErrorEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// StepStartedEvent and StepFinishedEvent bracket a named step inside a run.
// They are recorded by the event inspector and otherwise ignored.
type StepStartedEvent struct {
	*BaseEvent
	StepName string `json:"stepName"`
}

func NewStepStartedEvent(stepName string) *StepStartedEvent {
	return &StepStartedEvent{
		BaseEvent: NewBaseEvent(EventTypeStepStarted),
		StepName:  stepName,
	}
}

func (e *StepStartedEvent) Validate() error {
	return validateStep(e.BaseEvent, e.StepName)
}

func (e *StepStartedEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

type StepFinishedEvent struct {
	*BaseEvent
	StepName string `json:"stepName"`
}

func NewStepFinishedEvent(stepName string) *StepFinishedEvent {
	return &StepFinishedEvent{
		BaseEvent: NewBaseEvent(EventTypeStepFinished),
		StepName:  stepName,
	}
}

func (e *StepFinishedEvent) Validate() error {
	return validateStep(e.BaseEvent, e.StepName)
}

func (e *StepFinishedEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func validateStep(base *BaseEvent, name string) error {
	if err := base.Validate(); err != nil {
		return err
	}
	if name == "" {
		return errStepNameRequired
	}
	return nil
}
