package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Common error types used across the fanout module

var (
	// ErrClosed indicates that an operation was attempted on a closed resource
	ErrClosed = errors.New("resource is closed")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCapacityExceeded indicates that a capacity limit was exceeded
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrInvalidConfiguration indicates invalid configuration parameters
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrRateLimited indicates that a request was rate limited
	ErrRateLimited = errors.New("rate limited")

	// ErrInterrupted indicates that a blocking wait was cut short
	ErrInterrupted = errors.New("operation interrupted")

	// ErrCacheMiss indicates that a cache lookup found nothing
	ErrCacheMiss = errors.New("cache miss")
)

// ValidationError describes a rejected configuration or input value.
type ValidationError struct {
	Module string
	Field  string
	Value  interface{}
	Reason string
	Hint   string
}

// NewValidationError creates a ValidationError without a hint.
func NewValidationError(module, field string, value interface{}, reason string) *ValidationError {
	return &ValidationError{
		Module: module,
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// WithHint attaches a remediation hint and returns the same error for chaining.
func (e *ValidationError) WithHint(hint string) *ValidationError {
	e.Hint = hint
	return e
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: invalid %s=%v (%s)", e.Module, e.Field, e.Value, e.Reason)
	if e.Hint != "" {
		msg += " - " + e.Hint
	}
	return msg
}

// Unwrap makes every ValidationError match ErrInvalidConfiguration.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// OperationError wraps a failure of a named operation inside a module.
type OperationError struct {
	Module    string
	Operation string
	Cause     error
	Context   string
}

// NewOperationError creates an OperationError for module.operation.
func NewOperationError(module, operation string, cause error) *OperationError {
	return &OperationError{
		Module:    module,
		Operation: operation,
		Cause:     cause,
	}
}

// WithContext attaches extra detail and returns the same error for chaining.
func (e *OperationError) WithContext(context string) *OperationError {
	e.Context = context
	return e
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("%s.%s failed: %v", e.Module, e.Operation, e.Cause)
	if e.Context != "" {
		msg += " (" + e.Context + ")"
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Cause
}

// SourceError reports the failure of a single source query. It never
// describes more than one source.
type SourceError struct {
	Source string
	Query  string
	Err    error
}

// NewSourceError wraps err as the failure of source answering query.
func NewSourceError(source, query string, err error) *SourceError {
	return &SourceError{Source: source, Query: query, Err: err}
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %q query %q: %v", e.Source, e.Query, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// AggregationTimeoutError is the batch-level signal returned when an
// aggregation deadline expired before every source answered.
type AggregationTimeoutError struct {
	Timeout time.Duration
	Pending []string
}

func (e *AggregationTimeoutError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("aggregation timed out after %v, pending: %s", e.Timeout, strings.Join(e.Pending, ", "))
	}
	return fmt.Sprintf("aggregation deadline exceeded, pending: %s", strings.Join(e.Pending, ", "))
}

// Is reports true for ErrTimeout so callers can test with errors.Is.
func (e *AggregationTimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// IsRetryable returns true if the error indicates a condition that might
// be resolved by retrying the operation
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrRateLimited)
}

// IsTemporary returns true if the error indicates a temporary condition
func IsTemporary(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrCapacityExceeded)
}

// IsValidationError reports whether err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// IsSourceError reports whether err is or wraps a SourceError.
func IsSourceError(err error) bool {
	var serr *SourceError
	return errors.As(err, &serr)
}
