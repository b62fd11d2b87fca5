package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoff_Success(t *testing.T) {
	attempts := 0
	operation := func() error {
		attempts++
		return nil
	}

	err := RetryWithBackoff(context.Background(), operation, 3, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, attempts, "should succeed on first try")
}

func TestRetryWithBackoff_EventualSuccess(t *testing.T) {
	attempts := 0
	operation := func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}

	err := RetryWithBackoff(context.Background(), operation, 5, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts, "should succeed on third attempt")
}

func TestRetryWithBackoff_AllAttemptsFail(t *testing.T) {
	attempts := 0
	expectedErr := errors.New("persistent error")
	operation := func() error {
		attempts++
		return expectedErr
	}

	err := RetryWithBackoff(context.Background(), operation, 3, 10*time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, expectedErr, err, "should return the original error")
	assert.Equal(t, 3, attempts, "should attempt exactly maxAttempts times")
}

func TestRetryWithBackoff_NonRetryableShortCircuits(t *testing.T) {
	attempts := 0
	operation := func() error {
		attempts++
		return ErrNotFound
	}

	err := RetryWithBackoff(context.Background(), operation, 5, 10*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, attempts, "permanent errors must not be retried")
}

func TestRetryWithBackoff_ValidationShortCircuits(t *testing.T) {
	attempts := 0
	operation := func() error {
		attempts++
		return ErrInvalidEntityType
	}

	err := RetryWithBackoff(context.Background(), operation, 5, 10*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidEntityType)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoff_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	operation := func() error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	}

	err := RetryWithBackoff(ctx, operation, 10, 10*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled, "should return context.Canceled")
	assert.LessOrEqual(t, attempts, 2, "should stop when context is canceled")
}

func TestRetryWithBackoff_InvalidMaxAttempts(t *testing.T) {
	err := RetryWithBackoff(context.Background(), func() error { return nil }, 0, time.Millisecond)
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestRetryWithBackoff_LinearBackoff(t *testing.T) {
	attempts := 0
	var delays []time.Duration
	lastTime := time.Now()

	operation := func() error {
		attempts++
		if attempts > 1 {
			delays = append(delays, time.Since(lastTime))
		}
		lastTime = time.Now()
		if attempts < 3 {
			return errors.New("error")
		}
		return nil
	}

	base := 20 * time.Millisecond
	err := RetryWithBackoff(context.Background(), operation, 5, base)
	require.NoError(t, err)
	require.Len(t, delays, 2)

	// Delays grow linearly: 1*base, then 2*base.
	assert.GreaterOrEqual(t, delays[0], base)
	assert.GreaterOrEqual(t, delays[1], 2*base)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ClassPermanent, Classify(ErrNotFound))
	assert.Equal(t, ClassValidation, Classify(ErrEmptyQuery))
	assert.Equal(t, ClassValidation, Classify(ErrUnknownTool))
	assert.Equal(t, ClassTransient, Classify(errors.New("connection reset")))

	wrapped := errors.Join(errors.New("sync product 7"), ErrNotFound)
	assert.Equal(t, ClassPermanent, Classify(wrapped))
	assert.False(t, IsRetryable(wrapped))
	assert.True(t, IsPermanent(wrapped))
}
