// Package errors implements the error taxonomy used across the ingest
// pipeline and query engine: usage, source, transient backend, permanent
// backend, and invariant violations (spec §7).
package errors

import "fmt"

// Class classifies an error for retry/propagation decisions.
type Class string

const (
	ClassUsage     Class = "usage"
	ClassSource    Class = "source"
	ClassTransient Class = "transient"
	ClassPermanent Class = "permanent"
	ClassInvariant Class = "invariant"
)

// AppError is the error shape surfaced at process boundaries (HTTP
// responses, CLI exit reporting).
type AppError struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Class      Class                  `json:"class"`
	Details    map[string]interface{} `json:"details,omitempty"`
	StatusCode int                    `json:"-"`
	cause      error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.cause }

func New(code string, class Class, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Class:      class,
		Message:    message,
		StatusCode: statusCode,
		Details:    make(map[string]interface{}),
	}
}

func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

func (e *AppError) WithCause(err error) *AppError {
	clone := *e
	clone.cause = err
	return &clone
}

// IsRetryable reports whether the error's class should be retried by the
// Bulk Loader / Backend Adapter.
func (e *AppError) IsRetryable() bool {
	return e != nil && e.Class == ClassTransient
}
