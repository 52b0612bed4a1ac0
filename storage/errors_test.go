package storage_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esoco/esoco-storage/storage"
)

func TestStorageErrorWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := storage.NewStorageError("open", cause)

	require.Error(t, err)
	assert.True(t, storage.IsStorageError(err))
	assert.ErrorIs(t, err, cause)
}

func TestNewStorageErrorNilIsNil(t *testing.T) {
	assert.Nil(t, storage.NewStorageError("open", nil))
}

func TestUnsupportedError(t *testing.T) {
	err := storage.NewUnsupported("position_of", "no window function support")
	assert.True(t, storage.IsUnsupported(err))
	assert.Contains(t, err.Error(), "position_of")
}

func TestNotFoundError(t *testing.T) {
	err := storage.NewNotFoundErrorWithID("Customer", 42)
	assert.True(t, storage.IsNotFound(err))
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Contains(t, err.Error(), "42")
}

func TestNotSingularError(t *testing.T) {
	err := storage.NewNotSingularErrorWithCount("Customer", 3)
	assert.True(t, storage.IsNotSingular(err))
	assert.Equal(t, 3, err.Count())
}

func TestConstraintError(t *testing.T) {
	cause := errors.New("UNIQUE constraint failed: customer.email")
	err := storage.NewConstraintError("email must be unique", cause)
	assert.True(t, storage.IsConstraintViolation(err))
	assert.ErrorIs(t, err, cause)
}

func TestValidationError(t *testing.T) {
	err := storage.NewValidationError("Age", errors.New("must be positive"))
	assert.True(t, storage.IsValidationError(err))
	assert.ErrorIs(t, err, err.Err)
}

func TestRollbackErrorUnwrapsToCause(t *testing.T) {
	cause := errors.New("store_reference failed")
	err := &storage.RollbackError{Cause: cause}
	assert.ErrorIs(t, err, cause)
}

func TestAggregateErrorCollapsesSingle(t *testing.T) {
	only := errors.New("one error")
	err := storage.NewAggregateError(nil, only, nil)
	assert.Equal(t, only, err)
}

func TestAggregateErrorMultiple(t *testing.T) {
	err := storage.NewAggregateError(errors.New("a"), errors.New("b"))
	require.Error(t, err)
	var agg *storage.AggregateError
	require.True(t, errors.As(err, &agg))
	assert.Len(t, agg.Errors, 2)
}

func TestAggregateErrorAllNilIsNil(t *testing.T) {
	assert.Nil(t, storage.NewAggregateError(nil, nil))
}

func TestSentinelErrors(t *testing.T) {
	assert.EqualError(t, storage.ErrNotFound, "storage: entity not found")
	assert.EqualError(t, storage.ErrNotSingular, "storage: entity not singular")
	assert.EqualError(t, storage.ErrTxStarted, "storage: cannot start a transaction within a transaction")
}
