package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsSetType(t *testing.T) {
	assert.True(t, IsValidation(NewValidation("bad input")))
	assert.True(t, IsNotFound(NewNotFound("missing")))
	assert.True(t, IsInternal(NewInternal("broken", errors.New("cause"))))
	assert.True(t, IsUnavailable(NewUnavailable("down", errors.New("cause"))))

	assert.False(t, IsNotFound(NewValidation("bad input")))
	assert.False(t, IsValidation(nil))
}

func TestWrapPreservesType(t *testing.T) {
	err := Wrap(NewNotFound("product 1 not found"), "loading product")

	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "loading product")
	assert.Contains(t, err.Error(), "product 1 not found")
}

func TestWrapPlainErrorBecomesInternal(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, "querying store")

	assert.True(t, IsInternal(err))
	assert.True(t, errors.Is(err, cause))
}

func TestWrapNilIsNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "context"))
	assert.NoError(t, Wrapf(nil, "context %d", 1))
}

func TestWrapfFormatsMessage(t *testing.T) {
	err := Wrapf(NewNotFound("missing"), "cache warmup failed for tenant %d", 7)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache warmup failed for tenant 7")
	assert.True(t, IsNotFound(err))
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("root cause")
	err := NewInternal("wrapper", cause)

	assert.True(t, errors.Is(err, cause))

	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, ErrorTypeInternal, appErr.Type)
}
