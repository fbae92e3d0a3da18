package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := New(ErrCodeInvalidInput, "destination is required")
	assert.Equal(t, "INVALID_INPUT: destination is required", err.Error())

	wrapped := Wrap(errors.New("disk full"), ErrCodeDatabaseQuery, "failed to record message")
	assert.Equal(t, "DATABASE_QUERY: failed to record message: disk full", wrapped.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, ErrCodeSMSAPI, "send failed")
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.True(t, errors.Is(err, cause))
}

func TestAppError_WithContext(t *testing.T) {
	err := New(ErrCodeTemplateNotFound, "template not found").
		WithContext("slug", "boas-vindas")
	assert.Equal(t, "boas-vindas", err.Context["slug"])
}

func TestWrapRetryable(t *testing.T) {
	err := WrapRetryable(errors.New("timeout"), ErrCodeZAPIAPI, "status lookup failed")
	assert.True(t, IsRetryable(err))

	plain := Wrap(errors.New("bad token"), ErrCodeZAPIAPI, "send failed")
	assert.False(t, IsRetryable(plain))
	assert.False(t, IsRetryable(errors.New("not an app error")))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeProviderDisabled, GetCode(New(ErrCodeProviderDisabled, "sms disabled")))
	assert.Equal(t, ErrCodeInternalError, GetCode(errors.New("plain")))
}

func TestIsCode(t *testing.T) {
	err := New(ErrCodeCategoryDisabled, "marketing sends disabled")
	assert.True(t, IsCode(err, ErrCodeCategoryDisabled))
	assert.False(t, IsCode(err, ErrCodeProviderDisabled))
	assert.False(t, IsCode(errors.New("plain"), ErrCodeCategoryDisabled))
}
