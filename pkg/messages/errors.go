package messages

import "fmt"

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeValidation indicates a validation error
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeNotFound indicates a resource not found error
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeDuplicate indicates an id collision
	ErrorTypeDuplicate ErrorType = "duplicate"
)

// MessageError is the base error type for message-related errors
type MessageError struct {
	Type    ErrorType
	Message string
	Field   string
	Value   any
	Cause   error
}

// Error implements the error interface
func (e MessageError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s error in field '%s': %s", e.Type, e.Field, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e MessageError) Unwrap() error {
	return e.Cause
}

// ValidationError represents validation failures
type ValidationError struct {
	MessageError
	Violations []ValidationViolation
}

// ValidationViolation represents a single validation violation
type ValidationViolation struct {
	Field   string
	Message string
	Value   any
}

// NewValidationError creates a new validation error
func NewValidationError(message string, violations ...ValidationViolation) *ValidationError {
	return &ValidationError{
		MessageError: MessageError{
			Type:    ErrorTypeValidation,
			Message: message,
		},
		Violations: violations,
	}
}

// Error implements the error interface with detailed violations
func (e ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return e.MessageError.Error()
	}

	msg := fmt.Sprintf("%s error: %s", e.Type, e.Message)
	for _, v := range e.Violations {
		msg += fmt.Sprintf("\n  - %s: %s", v.Field, v.Message)
	}
	return msg
}

// NewNotFoundError reports a missing message id
func NewNotFoundError(id string) *MessageError {
	return &MessageError{Type: ErrorTypeNotFound, Message: "message not found", Field: "id", Value: id}
}

// NewDuplicateError reports an id that already exists
func NewDuplicateError(id string) *MessageError {
	return &MessageError{Type: ErrorTypeDuplicate, Message: fmt.Sprintf("message with ID %s already exists", id), Field: "id", Value: id}
}
