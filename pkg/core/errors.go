package core

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrRunInProgress     = errors.New("a run is already in progress")
	ErrNoPortal          = errors.New("No portal registered")
	ErrTargetNotVisible  = errors.New("target not visible")
	ErrIllegalTransition = errors.New("illegal run state transition")
)

// ConfigError represents configuration-related errors
type ConfigError struct {
	Field string
	Value any
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field %s (value: %v): %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ProtocolError represents protocol-level errors
type ProtocolError struct {
	Operation string
	Code      int
	Err       error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error in %s (code: %d): %v", e.Operation, e.Code, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// TransportError wraps failures of the underlying agent connection.
type TransportError struct {
	Transport string
	URL       string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport error (%s): %v", e.Transport, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
