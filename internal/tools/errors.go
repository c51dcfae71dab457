package tools

import (
	"errors"
	"fmt"
)

// Sentinel errors for registry operations.
var (
	// ErrToolNotFound is returned when resolving a name with no registered tool.
	ErrToolNotFound = errors.New("tool not found")

	// ErrDuplicateTool is returned when registering a name that already exists.
	ErrDuplicateTool = errors.New("tool already registered")
)

// ValidationError represents a tool argument validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) ValidationError {
	return ValidationError{Field: field, Message: message}
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// NotFoundError wraps ErrToolNotFound with the offending name.
func NotFoundError(name string) error {
	return fmt.Errorf("%w: %s", ErrToolNotFound, name)
}

// DuplicateError wraps ErrDuplicateTool with the colliding name.
func DuplicateError(name string) error {
	return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
}
