package common

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueueError_Is(t *testing.T) {
	cause := errors.New("database is locked")
	err := ErrBackend.Wrap(cause)

	require.ErrorIs(t, err, ErrBackend)
	require.ErrorIs(t, err, cause)
	require.NotErrorIs(t, err, ErrEmptyQueue)
	require.Equal(t, "backend: database is locked", err.Error())

	wrapped := fmt.Errorf("pop: %w", ErrPartialDelivery.Wrap(err))
	require.ErrorIs(t, wrapped, ErrPartialDelivery)
	require.ErrorIs(t, wrapped, ErrBackend)
	require.ErrorIs(t, wrapped, cause)

	var queueErr QueueError
	require.True(t, errors.As(wrapped, &queueErr))
	require.Equal(t, ErrCodePartialDelivery, queueErr.Code)
}

func TestQueueError_SentinelsAreDistinct(t *testing.T) {
	sentinels := []QueueError{ErrEmptyQueue, ErrInvalidQueueName, ErrInvalidLockTimeout, ErrNotFoundQueue, ErrNotFoundMessage, ErrPartialDelivery, ErrBackend}
	for i, a := range sentinels {
		require.Equal(t, a.Code, a.Error())
		require.Nil(t, a.Unwrap())
		for j, b := range sentinels {
			require.Equal(t, i == j, errors.Is(a, b), "%s vs %s", a.Code, b.Code)
		}
	}
}

func TestValidateQueueName(t *testing.T) {
	valid := []string{"q", "test_queue", "Orders2024", "a" + strings.Repeat("b", 62)}
	for _, name := range valid {
		require.NoError(t, ValidateQueueName(name), name)
	}

	invalid := []string{"", "_queue", "9queue", "my-queue", "my queue", `"queue"`, "queue;", "a" + strings.Repeat("b", 63), RegistryTable}
	for _, name := range invalid {
		require.ErrorIs(t, ValidateQueueName(name), ErrInvalidQueueName, name)
	}
}
