package errors

import (
	"fmt"
	"strings"
)

// RenderError reports a single example that failed to render for a target.
// It is surfaced verbatim when it is the only failure in a target pass, so
// the original cause stays inspectable for debugging.
type RenderError struct {
	Component string
	Variant   string
	Target    string
	Cause     error
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	return fmt.Sprintf("render failed for %s/%s on %s: %v",
		e.Component, e.Variant, e.Target, e.Cause)
}

// Unwrap returns the underlying render failure.
func (e *RenderError) Unwrap() error {
	return e.Cause
}

// AggregateRenderError wraps two or more render failures from one target
// pass. Every constituent error remains inspectable: Unwrap exposes the full
// set for errors.Is/As, and Errors preserves example attribution.
type AggregateRenderError struct {
	Errors []*RenderError
}

// Error lists every failing example.
func (e *AggregateRenderError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d examples failed to render:", len(e.Errors))
	for _, re := range e.Errors {
		b.WriteString("\n  - ")
		b.WriteString(re.Error())
	}
	return b.String()
}

// Unwrap exposes each underlying render error for errors.Is/As traversal.
func (e *AggregateRenderError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, re := range e.Errors {
		errs[i] = re
	}
	return errs
}

// CombineRenderErrors applies the per-target failure policy: nil for an empty
// set, the original error for exactly one failure, and an enumerable
// aggregate for two or more.
func CombineRenderErrors(errs []*RenderError) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return &AggregateRenderError{Errors: errs}
	}
}
