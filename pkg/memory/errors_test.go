package memory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("importance", "must be between 0 and 1")
	assert.Equal(t, "importance: must be between 0 and 1", err.Error())

	bare := &ValidationError{Message: "no field"}
	assert.Equal(t, "no field", bare.Error())
}

func TestBackendError(t *testing.T) {
	assert.Nil(t, NewBackendError("vector-store", nil))

	wrapped := NewBackendError("embedding-provider", errors.New("connection refused"))
	assert.Contains(t, wrapped.Error(), "embedding-provider")
	assert.Contains(t, wrapped.Error(), "connection refused")
	assert.ErrorIs(t, wrapped, wrapped.(*BackendError).Err)
}

func TestBackendError_RedactsSecrets(t *testing.T) {
	wrapped := NewBackendError("embedding-provider", errors.New("request failed: api_key=sk-verysecretabcdefghijklmnop123"))
	assert.NotContains(t, wrapped.Error(), "sk-verysecretabcdefghijklmnop123")
}

func TestConflictingState(t *testing.T) {
	err := &ConflictingState{ID: "rec-1", Message: "store/cache mismatch"}
	assert.Contains(t, err.Error(), "rec-1")
	assert.Contains(t, err.Error(), "store/cache mismatch")
}

func TestFatalInit(t *testing.T) {
	bare := &FatalInit{Reason: "missing API key"}
	assert.Equal(t, "missing API key", bare.Error())

	wrapped := &FatalInit{Reason: "failed to connect", Err: errors.New("dial tcp: refused")}
	assert.Contains(t, wrapped.Error(), "failed to connect")
	assert.Contains(t, wrapped.Error(), "dial tcp")
	assert.ErrorIs(t, wrapped, wrapped.Err)
}
