package engine

import (
	"errors"
	"fmt"
)

// RuntimeError is a structured engine error.
type RuntimeError struct {
	// Code identifies the error kind.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Cascade is the token of the cascade that failed, when there is one.
	Cascade string

	// Details holds additional context for logs and traces.
	Details map[string]string
}

// RuntimeErrorCode identifies engine error kinds.
type RuntimeErrorCode string

const (
	// ErrCodeQuotaExceeded means a timestamp delivered more events than the
	// step quota allows, typically because of cyclic routes.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeUnknownNode means a DEF name or handle did not resolve.
	ErrCodeUnknownNode RuntimeErrorCode = "UNKNOWN_NODE"

	// ErrCodeUnknownType means a type ID or kind name did not resolve.
	ErrCodeUnknownType RuntimeErrorCode = "UNKNOWN_TYPE"

	// ErrCodeInvalidEvent means a queued event is missing data.
	ErrCodeInvalidEvent RuntimeErrorCode = "INVALID_EVENT"
)

func (e *RuntimeError) Error() string {
	if e.Cascade != "" {
		return fmt.Sprintf("%s: %s (cascade=%s)", e.Code, e.Message, e.Cascade)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrCascadeInProgress is returned by operations that must run between
// cascades, such as collection, when called during delivery.
var ErrCascadeInProgress = errors.New("operation not allowed while an event cascade is in progress")

// IsQuotaError reports whether err is a quota violation.
func IsQuotaError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeQuotaExceeded
	}
	var se *StepsExceededError
	return errors.As(err, &se)
}

// IsUnknownNode reports whether err is an unresolved node reference.
func IsUnknownNode(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == ErrCodeUnknownNode
}

// NewUnknownNodeError reports an unresolved DEF name.
func NewUnknownNodeError(name string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownNode,
		Message: fmt.Sprintf("no node named %q", name),
		Details: map[string]string{"name": name},
	}
}

// NewUnknownTypeError reports an unresolved type or kind.
func NewUnknownTypeError(name string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownType,
		Message: fmt.Sprintf("no type or kind named %q", name),
		Details: map[string]string{"name": name},
	}
}
