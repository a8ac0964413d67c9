package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents a failure detected while executing loop tasks.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Seq is the logical time of the failing task.
	Seq int64

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeTaskPanic indicates a posted task panicked.
	ErrCodeTaskPanic RuntimeErrorCode = "TASK_PANIC"

	// ErrCodeQuotaExceeded indicates a drain ran out of steps.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Seq != 0 {
		return fmt.Sprintf("%s: %s (seq=%d)", e.Code, e.Message, e.Seq)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsPanicError reports whether err is a recovered task panic.
func IsPanicError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeTaskPanic
	}
	return false
}

// IsQuotaError reports whether err is a step quota error.
func IsQuotaError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeQuotaExceeded
	}
	var se *StepsExceededError
	return errors.As(err, &se)
}

// NewPanicError wraps a recovered panic value.
func NewPanicError(seq int64, recovered any) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeTaskPanic,
		Message: fmt.Sprintf("task panicked: %v", recovered),
		Seq:     seq,
	}
}
