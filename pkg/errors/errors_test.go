package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_StatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want int
	}{
		{"validation", NewValidationError("Please enter ingredients"), http.StatusBadRequest},
		{"rate limit", NewTooManyRequestsError(10), http.StatusTooManyRequests},
		{"transport", NewTransportError("recipe-api", stderrors.New("refused")), http.StatusBadGateway},
		{"status", NewStatusError("recipe-api", 500), http.StatusBadGateway},
		{"parse", NewParseError("recipe-api", stderrors.New("eof")), http.StatusBadGateway},
		{"internal", NewInternalError(""), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.StatusCode())
		})
	}
}

func TestIs_WrappedError(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := fmt.Errorf("generate: %w", NewTransportError("recipe-api", cause))

	assert.True(t, Is(err, CodeTransport))
	assert.False(t, Is(err, CodeParse))
	assert.Equal(t, CodeTransport, GetCode(err))
	assert.ErrorIs(t, err, cause)
}

func TestGetCode_PlainError(t *testing.T) {
	assert.Equal(t, CodeInternal, GetCode(stderrors.New("boom")))
	assert.False(t, Is(nil, CodeInternal))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ignored"))

	appErr := NewParseError("recipe-api", stderrors.New("bad json"))
	assert.Same(t, appErr, Wrap(appErr, "ignored"))

	wrapped := Wrap(stderrors.New("boom"), "render failed")
	require.NotNil(t, wrapped)
	assert.Equal(t, CodeInternal, wrapped.Code)
	assert.Equal(t, "render failed", wrapped.Message)
}

func TestNewStatusError_Metadata(t *testing.T) {
	err := NewStatusError("recipe-api", http.StatusServiceUnavailable)

	assert.Equal(t, http.StatusServiceUnavailable, err.Metadata["status"])
	assert.Contains(t, err.Error(), "status 503")
}
