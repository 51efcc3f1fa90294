// Package errors provides the structured error type (HappoError) used for
// category-based classification across the orchestrator, plus the render
// failure types and the single-vs-aggregate policy applied per target pass.
package errors

import (
	"fmt"
)

// ErrorCategory represents the category of a happo error for classification.
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryAuth       ErrorCategory = "auth"

	// Orchestration errors
	CategoryRender    ErrorCategory = "render"
	CategoryPackaging ErrorCategory = "packaging"
	CategoryUpload    ErrorCategory = "upload"
	CategoryRemote    ErrorCategory = "remote"

	// Runtime and infrastructure errors
	CategoryBundler  ErrorCategory = "bundler"
	CategoryStorage  ErrorCategory = "storage"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
)

// HappoError is a structured error with category, retryability, and context.
type HappoError struct {
	Category  ErrorCategory `json:"category"`
	Severity  ErrorSeverity `json:"severity"`
	Message   string        `json:"message"`
	Cause     error         `json:"cause,omitempty"`
	Retryable bool          `json:"retryable"`
	Context   ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for HappoError.
type ContextFields map[string]any

// Error implements the error interface.
func (e *HappoError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling.
func (e *HappoError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error.
func (e *HappoError) WithContext(key string, value any) *HappoError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new HappoError.
func New(category ErrorCategory, severity ErrorSeverity, message string) *HappoError {
	return &HappoError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new HappoError that wraps an existing error.
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *HappoError {
	return &HappoError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// WrapRetryable creates a new retryable HappoError that wraps an existing error.
func WrapRetryable(err error, category ErrorCategory, severity ErrorSeverity, message string) *HappoError {
	return &HappoError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: true,
	}
}

// IsCategory checks if an error belongs to a specific category.
func IsCategory(err error, category ErrorCategory) bool {
	if he, ok := err.(*HappoError); ok {
		return he.Category == category
	}
	return false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if he, ok := err.(*HappoError); ok {
		return he.Retryable
	}
	return false
}

// GetCategory extracts the category from an error, or returns
// CategoryInternal if not a HappoError.
func GetCategory(err error) ErrorCategory {
	if he, ok := err.(*HappoError); ok {
		return he.Category
	}
	return CategoryInternal
}
