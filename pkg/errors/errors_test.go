package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorPassesThroughTypedErrors(t *testing.T) {
	err := Clone(ErrNotFound, "App not found")
	got := FromError(err)
	assert.Equal(t, http.StatusNotFound, got.Status)
	assert.Equal(t, "App not found", got.Message)
}

func TestFromErrorWrapsUnknownErrors(t *testing.T) {
	got := FromError(errors.New("pq: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, got.Status)
	assert.Equal(t, ErrInternal.Code, got.Code)
	// The raw detail is retained for logging, not exposed in the message.
	assert.Equal(t, ErrInternal.Message, got.Message)
	assert.ErrorContains(t, got.Err, "connection refused")
}

func TestCloneDoesNotMutateSentinel(t *testing.T) {
	clone := Clone(ErrInvalidAction, "custom message")
	assert.Equal(t, "custom message", clone.Message)
	assert.Equal(t, "Invalid action", ErrInvalidAction.Message)
	assert.Equal(t, ErrInvalidAction.Code, clone.Code)
}

func TestWrapUnwraps(t *testing.T) {
	inner := errors.New("boom")
	wrapped := Wrap(inner, "X", 500, "outer")
	assert.ErrorIs(t, wrapped, inner)
	assert.Contains(t, wrapped.Error(), "outer")
}
