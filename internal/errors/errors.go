// Package errors provides centralized error definitions and error handling
// utilities for the copydesk codebase. It defines semantic error types,
// constructors with context, and classification helpers.
//
// Gate failures are deliberately NOT errors: they are GateResult values.
// This package covers the conditions that are errors — invalid transitions,
// missing drafts, exhausted regeneration budgets, and infrastructure
// failures propagated from collaborators.
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Sentinel errors for the approval and publish subsystems.
var (
	// ErrDraftNotFound indicates an action targeted a nonexistent draft id.
	ErrDraftNotFound = New("draft not found")

	// ErrInvalidTransition indicates a (status, action) pair absent from the
	// approval transition table. The draft is left unchanged.
	ErrInvalidTransition = New("invalid status transition")

	// ErrRegenerationLimit indicates a draft has exhausted its regeneration
	// budget and must be surfaced to the operator instead of retried.
	ErrRegenerationLimit = New("regeneration limit exceeded")

	// ErrPublishPaused indicates global publishing is paused.
	ErrPublishPaused = New("publishing is paused")

	// ErrSubscriberLimit indicates the event bus subscriber cap was reached.
	ErrSubscriberLimit = New("subscriber limit reached")
)

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("draft", "abc123")
//	fmt.Println(err) // "draft 'abc123' not found"
type NotFoundError struct {
	ResourceType string
	ResourceID   string
	cause        error
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{ResourceType: resourceType, ResourceID: resourceID}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Unwrap returns the underlying error.
func (e *NotFoundError) Unwrap() error { return e.cause }

// Is reports whether this error matches the target. NotFoundError for a
// draft matches the ErrDraftNotFound sentinel.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	if e.ResourceType == "draft" && errors.Is(target, ErrDraftNotFound) {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// InvalidTransitionError is returned when a transition is attempted that the
// approval table does not allow. It carries both sides of the mismatch so an
// operator sees the current status versus the attempted action.
type InvalidTransitionError struct {
	DraftID string
	Current string // the draft's status at decision time
	Action  string // the attempted action
}

// NewInvalidTransitionError creates a new InvalidTransitionError.
func NewInvalidTransitionError(draftID, current, action string) *InvalidTransitionError {
	return &InvalidTransitionError{DraftID: draftID, Current: current, Action: action}
}

// Error returns the formatted error message.
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition for draft %s: action %q is not allowed from status %q",
		e.DraftID, e.Action, e.Current)
}

// Is reports whether this error matches the target.
func (e *InvalidTransitionError) Is(target error) bool {
	if _, ok := target.(*InvalidTransitionError); ok {
		return true
	}
	return errors.Is(target, ErrInvalidTransition)
}

// RegenerationLimitError is returned when a regeneration is requested for a
// draft that has already exhausted its budget.
type RegenerationLimitError struct {
	DraftID string
	Count   int
	Max     int
}

// NewRegenerationLimitError creates a new RegenerationLimitError.
func NewRegenerationLimitError(draftID string, count, max int) *RegenerationLimitError {
	return &RegenerationLimitError{DraftID: draftID, Count: count, Max: max}
}

// Error returns the formatted error message.
func (e *RegenerationLimitError) Error() string {
	return fmt.Sprintf("draft %s exhausted its regeneration budget (%d of %d)", e.DraftID, e.Count, e.Max)
}

// Is reports whether this error matches the target.
func (e *RegenerationLimitError) Is(target error) bool {
	if _, ok := target.(*RegenerationLimitError); ok {
		return true
	}
	return errors.Is(target, ErrRegenerationLimit)
}

// ValidationError represents invalid input or configuration.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// WithValue attaches the offending value.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation error [field=%s, value=%v]: %s", e.Field, e.Value, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error [field=%s]: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// IsUserFacing returns true if the error message is safe to display to
// operators. Business errors are; raw infrastructure errors are not.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var notFound *NotFoundError
	var invalid *InvalidTransitionError
	var regen *RegenerationLimitError
	var validation *ValidationError

	if As(err, &notFound) || As(err, &invalid) || As(err, &regen) || As(err, &validation) {
		return true
	}
	return Is(err, ErrPublishPaused)
}

// Wrap wraps an error with additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to persist draft")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
