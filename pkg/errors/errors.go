// Package errors defines the error taxonomy of the reconciliation engine.
//
// Only two conditions are errors at all: a record source that cannot be read
// (fatal, the run aborts before any write) and a rejected mutation (recorded
// against the affected entry, the run continues). Expected matching outcomes
// such as no-candidate, low-similarity or ambiguous-group are report data and
// never travel as errors.
package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Category groups errors by where they originate
type Category string

const (
	// CategorySource covers unreadable extract or directory sources; always fatal
	CategorySource Category = "source"
	// CategoryWrite covers mutations the record store rejected; never fatal
	CategoryWrite Category = "write"
	// CategoryValidation covers malformed records and field values
	CategoryValidation Category = "validation"
	// CategoryConfiguration covers invalid engine or CLI configuration
	CategoryConfiguration Category = "configuration"
	// CategoryInternal covers conditions that indicate a bug
	CategoryInternal Category = "internal"
)

// Code identifies a specific error condition within a category
type Code string

const (
	CodeSourceUnavailable Code = "source_unavailable"
	CodeWriteFailure      Code = "write_failure"
	CodeInvalidData       Code = "invalid_data"
	CodeMissingField      Code = "missing_field"
	CodeInvalidConfig     Code = "invalid_config"
	CodeUnexpectedError   Code = "unexpected_error"
)

// Context carries additional structured information about an error
type Context map[string]interface{}

// EngineError is the base error type for all engine errors
type EngineError struct {
	Category   Category          `json:"category"`
	Code       Code              `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// IsFatal reports whether the error must abort the whole run
func (e *EngineError) IsFatal() bool {
	return e.Category == CategorySource
}

// GetExitCode returns the CLI exit code for the error
func (e *EngineError) GetExitCode() int {
	switch e.Category {
	case CategorySource:
		return 2
	case CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryWrite, CategoryInternal:
		return 5
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *EngineError) WithContext(key string, value interface{}) *EngineError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *EngineError) WithSuggestion(suggestion string) *EngineError {
	e.Suggestion = suggestion
	return e
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// New creates a new EngineError
func New(category Category, code Code, message string) *EngineError {
	return &EngineError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with EngineError context
func Wrap(err error, category Category, code Code, message string) *EngineError {
	if err == nil {
		return nil
	}

	return &EngineError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// SourceUnavailable creates the fatal error for an unreadable record source
func SourceUnavailable(source string, err error) *EngineError {
	message := fmt.Sprintf("record source unavailable: %s", source)

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategorySource, CodeSourceUnavailable, message)
	} else {
		result = New(CategorySource, CodeSourceUnavailable, message)
	}

	return result.
		WithSuggestion("check the store connection or source file path and re-run").
		WithContext("source", source)
}

// WriteFailure creates the per-entry error for a rejected mutation
func WriteFailure(entryID string, err error) *EngineError {
	message := fmt.Sprintf("failed to persist resolution for entry %s", entryID)

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryWrite, CodeWriteFailure, message)
	} else {
		result = New(CategoryWrite, CodeWriteFailure, message)
	}

	return result.
		WithSuggestion("the entry stays unresolved in the store; fix the store and re-run").
		WithContext("entry_id", entryID)
}

// ValidationError creates a validation-related error
func ValidationError(code Code, field string, value interface{}, err error) *EngineError {
	var message string
	switch code {
	case CodeMissingField:
		message = fmt.Sprintf("required field '%s' is missing or empty", field)
	default:
		message = fmt.Sprintf("invalid value in field '%s': %v", field, value)
	}

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryValidation, code, message)
	} else {
		result = New(CategoryValidation, code, message)
	}

	return result.
		WithContext("field", field).
		WithContext("value", value)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(setting string, value interface{}, err error) *EngineError {
	message := fmt.Sprintf("invalid configuration for '%s': %v", setting, value)

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryConfiguration, CodeInvalidConfig, message)
	} else {
		result = New(CategoryConfiguration, CodeInvalidConfig, message)
	}

	return result.
		WithSuggestion("check the configuration documentation for valid values").
		WithContext("setting", setting).
		WithContext("value", value)
}

// InternalError creates an error for conditions that indicate a bug
func InternalError(operation string, err error) *EngineError {
	message := fmt.Sprintf("unexpected error during %s", operation)

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryInternal, CodeUnexpectedError, message)
	} else {
		result = New(CategoryInternal, CodeUnexpectedError, message)
	}

	return result.
		WithSuggestion("this is likely a bug - please report it with the error details").
		WithContext("operation", operation)
}

// AsEngineError extracts an EngineError from an error chain
func AsEngineError(err error) (*EngineError, bool) {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr, true
	}
	return nil, false
}

// IsSourceUnavailable reports whether the error chain contains the fatal
// source-unavailable condition
func IsSourceUnavailable(err error) bool {
	if engineErr, ok := AsEngineError(err); ok {
		return engineErr.Code == CodeSourceUnavailable
	}
	return false
}

// WrapIfNeeded wraps an error if it is not already an EngineError
func WrapIfNeeded(err error, category Category, code Code, message string) *EngineError {
	if err == nil {
		return nil
	}

	if engineErr, ok := AsEngineError(err); ok {
		return engineErr
	}

	return Wrap(err, category, code, message)
}
