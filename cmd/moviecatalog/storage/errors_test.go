package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap("insert", nil))

	cause := errors.New("connection refused")
	err := Wrap("insert", cause)
	assert.True(t, IsStorageError(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "storage insert: connection refused", err.Error())

	// wrapping twice keeps the innermost operation
	assert.Same(t, err, Wrap("import", err))

	// absence is never turned into a storage error
	assert.Equal(t, ErrNotFound, Wrap("update", ErrNotFound))
	assert.False(t, IsStorageError(ErrNotFound))
}

func TestIsInvalidInput(t *testing.T) {
	assert.True(t, IsInvalidInput(Wrap("insert", ErrIDAssigned)))
	assert.True(t, IsInvalidInput(Wrap("update", fmt.Errorf("%w: title", ErrInvalidMovie))))
	assert.True(t, IsInvalidInput(Wrap("update", ErrMissingID)))
	assert.False(t, IsInvalidInput(Wrap("insert", errors.New("boom"))))
	assert.False(t, IsInvalidInput(ErrNotFound))
}
