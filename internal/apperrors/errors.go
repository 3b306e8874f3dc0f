// Package apperrors provides sentinel and custom error types shared across the
// retrieval, generation, and feedback layers. The HTTP mapping that turns
// them into RFC 7807 problem responses is response.WriteError in
// internal/api/response.
package apperrors

// ErrNotFound represents a "not found" error.
// Use when a requested resource (chunk, session) doesn't exist.
var ErrNotFound = &NotFoundError{}

// NotFoundError is a sentinel error for resources that are not found.
type NotFoundError struct {
	Resource string
	Message  string
}

// NewNotFoundError creates a new NotFoundError with a custom message.
func NewNotFoundError(resource, message string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		Message:  message,
	}
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Resource != "" {
		return e.Resource + " not found"
	}

	return "resource not found"
}

// Is implements the error interface for error comparison.
func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)

	return ok
}

// ErrValidation represents a validation error.
// Use when client input fails struct-tag validation.
var ErrValidation = &ValidationError{}

// ValidationError is a sentinel error for validation failures.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a new ValidationError with a custom message.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Field != "" {
		return "validation failed for field: " + e.Field
	}

	return "validation error"
}

// Is implements the error interface for error comparison.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)

	return ok
}

// ErrInvalidInput represents an invalid input error.
// Use when client input is invalid but not a struct-tag validation failure
// (e.g. a query containing NULL bytes, a k outside the configured range).
var ErrInvalidInput = &InvalidInputError{}

// InvalidInputError is a sentinel error for invalid input data.
type InvalidInputError struct {
	Field   string
	Message string
}

// NewInvalidInputError creates a new InvalidInputError with a custom message.
func NewInvalidInputError(field, message string) *InvalidInputError {
	return &InvalidInputError{
		Field:   field,
		Message: message,
	}
}

// Error implements the error interface.
func (e *InvalidInputError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Field != "" {
		return "invalid input for field: " + e.Field
	}

	return "invalid input"
}

// Is implements the error interface for error comparison.
func (e *InvalidInputError) Is(target error) bool {
	_, ok := target.(*InvalidInputError)

	return ok
}

// ErrLimitExceeded is the sentinel for limit-exceeded errors (e.g. k > K_MAX).
var ErrLimitExceeded = &LimitExceededError{}

// LimitExceededError is a sentinel error for limit-exceeded conditions.
type LimitExceededError struct {
	Message string
}

// NewLimitExceededError creates a LimitExceededError with a custom message.
func NewLimitExceededError(message string) *LimitExceededError {
	return &LimitExceededError{Message: message}
}

// Error implements the error interface.
func (e *LimitExceededError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return "limit exceeded"
}

// Is implements the error interface for error comparison.
func (e *LimitExceededError) Is(target error) bool {
	_, ok := target.(*LimitExceededError)

	return ok
}

// ErrConflict is the sentinel for resource conflicts (e.g. a duplicate
// source_session_id on workflow_memories, rejected by the unique constraint).
var ErrConflict = &ConflictError{}

// ConflictError is a sentinel error for resource conflicts.
type ConflictError struct {
	Message string
}

// NewConflictError creates a ConflictError with a custom message.
func NewConflictError(message string) *ConflictError {
	return &ConflictError{Message: message}
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return "conflict"
}

// Is implements the error interface for error comparison.
func (e *ConflictError) Is(target error) bool {
	_, ok := target.(*ConflictError)

	return ok
}

// ErrAlreadyFinalised is the sentinel for feedback submitted against a
// session that has already received feedback. Feedback is write-once.
var ErrAlreadyFinalised = &AlreadyFinalisedError{}

// AlreadyFinalisedError is a sentinel error for a session whose feedback_status
// is no longer pending.
type AlreadyFinalisedError struct {
	Message string
}

// NewAlreadyFinalisedError creates an AlreadyFinalisedError with a custom message.
func NewAlreadyFinalisedError(message string) *AlreadyFinalisedError {
	return &AlreadyFinalisedError{Message: message}
}

// Error implements the error interface.
func (e *AlreadyFinalisedError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return "session feedback already finalised"
}

// Is implements the error interface for error comparison.
func (e *AlreadyFinalisedError) Is(target error) bool {
	_, ok := target.(*AlreadyFinalisedError)

	return ok
}

// ErrProvider is the sentinel for failures originating in an external
// embedding or generation provider (the provider is reachable but returned
// an error, or returned a malformed response).
var ErrProvider = &ProviderError{}

// ProviderError wraps a failure from an embedding or generator provider.
type ProviderError struct {
	Provider string
	Message  string
	Err      error
}

// NewProviderError creates a ProviderError with a custom message.
func NewProviderError(provider, message string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Message: message, Err: err}
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "provider error"
	}
	if e.Provider != "" {
		msg = e.Provider + ": " + msg
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap allows errors.Is/As to reach the underlying provider error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is implements the error interface for error comparison.
func (e *ProviderError) Is(target error) bool {
	_, ok := target.(*ProviderError)

	return ok
}

// ErrStore is the sentinel for failures talking to the chunk, session, or
// workflow-memory store (connection errors, constraint violations other than
// the ones with dedicated sentinels above).
var ErrStore = &StoreError{}

// StoreError wraps a failure from the persistence layer.
type StoreError struct {
	Message string
	Err     error
}

// NewStoreError creates a StoreError with a custom message.
func NewStoreError(message string, err error) *StoreError {
	return &StoreError{Message: message, Err: err}
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "store error"
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap allows errors.Is/As to reach the underlying store error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is implements the error interface for error comparison.
func (e *StoreError) Is(target error) bool {
	_, ok := target.(*StoreError)

	return ok
}

// ErrTimeout is the sentinel for a call that exceeded its configured deadline
// (embed, retrieve, or generate).
var ErrTimeout = &TimeoutError{}

// TimeoutError marks an operation that exceeded its context deadline.
type TimeoutError struct {
	Operation string
	Message   string
}

// NewTimeoutError creates a TimeoutError with a custom message.
func NewTimeoutError(operation, message string) *TimeoutError {
	return &TimeoutError{Operation: operation, Message: message}
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Operation != "" {
		return e.Operation + " timed out"
	}
	return "operation timed out"
}

// Is implements the error interface for error comparison.
func (e *TimeoutError) Is(target error) bool {
	_, ok := target.(*TimeoutError)

	return ok
}
