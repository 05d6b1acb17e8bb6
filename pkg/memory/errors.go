package memory

import (
	"fmt"

	"github.com/Parswanadh/memory-mcp-server/internal/logger"
)

var redactor = logger.NewRedactor()

// ValidationError means an input failed a contract (bounds, enum membership,
// a required field). It is surfaced to the caller verbatim.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for the named field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// BackendError wraps a failure from the EmbeddingProvider or VectorStore
// capability. Sensitive substrings (bearer tokens, API keys, connection
// string credentials) are redacted before the message crosses the process
// boundary.
type BackendError struct {
	Component string
	Err       error
}

func (e *BackendError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Component, e.Err)
	return redactor.Redact(msg)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// NewBackendError wraps err as a BackendError attributed to component
// ("embedding-provider", "vector-store:memory", etc). Returns nil if err is
// nil, so it is safe to use as `return memory.NewBackendError("x", err)`.
func NewBackendError(component string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Component: component, Err: err}
}

// ConflictingState means a cache/store invariant was violated even after a
// retry. It is fatal for the in-flight operation; the engine recovers on the
// next successful write for the affected id.
type ConflictingState struct {
	ID      string
	Message string
}

func (e *ConflictingState) Error() string {
	return fmt.Sprintf("conflicting state for %q: %s", e.ID, e.Message)
}

// FatalInit means the process cannot start: the configured vector store is
// unreachable, or the embedding provider lacks credentials. Callers should
// exit non-zero.
type FatalInit struct {
	Reason string
	Err    error
}

func (e *FatalInit) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *FatalInit) Unwrap() error {
	return e.Err
}
