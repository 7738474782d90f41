// Package errors defines the categorized application error type used across
// the service. Data-level reconciliation problems never surface here; they
// become reason codes inside the engine result. This package covers the true
// faults: bad caller input, broken files, bad configuration, and storage
// failures.
package errors

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Category groups errors by the subsystem that produced them.
type Category string

const (
	CategoryInput         Category = "input"
	CategoryParse         Category = "parse"
	CategoryConfiguration Category = "configuration"
	CategoryStorage       Category = "storage"
	CategoryInternal      Category = "internal"
)

// Code identifies a specific failure within a category.
type Code string

const (
	// Input errors
	CodeInvalidInput     Code = "invalid_input"
	CodeInvalidCycleDate Code = "invalid_cycle_date"

	// Parse errors
	CodeFileNotFound  Code = "file_not_found"
	CodeInvalidFormat Code = "invalid_format"
	CodeMissingColumn Code = "missing_column"
	CodeInvalidAmount Code = "invalid_amount"
	CodeInvalidDate   Code = "invalid_date"

	// Configuration errors
	CodeInvalidConfig Code = "invalid_config"
	CodeMissingConfig Code = "missing_config"

	// Storage errors
	CodeStorageUnavailable Code = "storage_unavailable"
	CodeTxFailed           Code = "tx_failed"
	CodeNotFound           Code = "not_found"

	// Internal errors
	CodeUnexpected Code = "unexpected_error"
)

// Error is the application error type. It carries a category and code for
// programmatic handling, an optional operator suggestion, and the stack of
// the point where it was created.
type Error struct {
	Category   Category `json:"category"`
	Code       Code     `json:"code"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
	Cause      error    `json:"-"`

	stack error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Suggestion != "" {
		msg = fmt.Sprintf("%s (suggestion: %s)", msg, e.Suggestion)
	}
	return msg
}

// Unwrap returns the underlying cause error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithSuggestion attaches an operator-facing remediation hint.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// StackTrace exposes the capture point for verbose CLI output.
func (e *Error) StackTrace() string {
	return fmt.Sprintf("%+v", e.stack)
}

// ExitCode maps the category to a CLI process exit code.
func (e *Error) ExitCode() int {
	switch e.Category {
	case CategoryInput:
		return 2
	case CategoryParse:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryStorage:
		return 5
	default:
		return 1
	}
}

func newError(cat Category, code Code, msg string, cause error) *Error {
	return &Error{
		Category: cat,
		Code:     code,
		Message:  msg,
		Cause:    cause,
		stack:    pkgerrors.New(msg),
	}
}

// InputError creates an error for structurally invalid caller input.
func InputError(code Code, msg string, cause error) *Error {
	return newError(CategoryInput, code, msg, cause)
}

// ParseError creates an error for unreadable or malformed files.
func ParseError(code Code, msg string, cause error) *Error {
	return newError(CategoryParse, code, msg, cause)
}

// ConfigurationError creates an error for invalid configuration.
func ConfigurationError(code Code, msg string, cause error) *Error {
	return newError(CategoryConfiguration, code, msg, cause)
}

// StorageError creates an error for persistence failures.
func StorageError(code Code, msg string, cause error) *Error {
	return newError(CategoryStorage, code, msg, cause)
}

// InternalError creates an error for unexpected conditions.
func InternalError(msg string, cause error) *Error {
	return newError(CategoryInternal, CodeUnexpected, msg, cause)
}

// IsCategory reports whether err is an application Error of the category.
func IsCategory(err error, cat Category) bool {
	var appErr *Error
	if pkgerrors.As(err, &appErr) {
		return appErr.Category == cat
	}
	return false
}

// AsError unwraps err into an application Error, if it is one.
func AsError(err error, target **Error) bool {
	return pkgerrors.As(err, target)
}

// HasCode reports whether err is an application Error with the code.
func HasCode(err error, code Code) bool {
	var appErr *Error
	if pkgerrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
