package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIErrorImplementsError(t *testing.T) {
	err := New(http.StatusNotFound, "NOT_FOUND", "Resource not found")
	assert.Equal(t, "Resource not found", err.Error())
	assert.Equal(t, http.StatusNotFound, err.StatusCode)
	assert.Equal(t, "NOT_FOUND", err.ErrorCode)
}

func TestNewWithDetails(t *testing.T) {
	err := NewWithDetails(http.StatusBadRequest, "INVALID_PATH", "Request path is not valid", "/../etc")
	assert.Equal(t, "/../etc", err.Details)
}

func TestResolutionError(t *testing.T) {
	err := ResolutionError(errors.New("session closed"))
	assert.Equal(t, http.StatusInternalServerError, err.StatusCode)
	assert.Equal(t, "RESOLUTION_FAILED", err.ErrorCode)
	assert.Equal(t, "session closed", err.Details)
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, ErrNotFound)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.ErrorCode)
}

func TestErrPanic(t *testing.T) {
	err := ErrPanic("boom")
	assert.Equal(t, http.StatusInternalServerError, err.StatusCode)
	rec, ok := err.Details.(PanicRecovery)
	require.True(t, ok)
	assert.Equal(t, "boom", rec.Message)
}
