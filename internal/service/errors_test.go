package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"filevault/internal/repository"
)

func TestError(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("wrapped: %w", platform("list files", cause))

	assert.ErrorIs(t, err, ErrPlatform)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrPlatform, KindOf(err))
	assert.Equal(t, "wrapped: list files: platform error: connection reset", err.Error())
}

func TestErrorKinds(t *testing.T) {
	assert.ErrorIs(t, platform("find", repository.ErrNotFound), ErrNotFound)
	assert.ErrorIs(t, invalid("rename", "name is required"), ErrInvalidInput)
	assert.Equal(t, "me: unauthenticated", unauthenticated("me").Error())
	assert.Equal(t, ErrPlatform, KindOf(errors.New("foreign")))
	assert.Nil(t, KindOf(nil))
}
