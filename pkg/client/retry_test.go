package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetry_SucceedsWithoutRetrying(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), func() error {
		attempts++
		return nil
	}, 3, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetry_RecoversFromTransientFailure(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return &Error{Kind: KindHTTP, Status: 503, Message: "unavailable"}
		}
		return nil
	}, 3, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_ExhaustsBudget(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), func() error {
		attempts++
		return &Error{Kind: KindNetwork, Message: "connection refused"}
	}, 3, time.Millisecond)

	require.Error(t, err)
	// maxRetries retries on top of the initial attempt.
	assert.Equal(t, 4, attempts)

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, KindNetwork, ce.Kind)
}

func TestRetry_DoesNotRetryNonRetryableStatus(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), func() error {
		attempts++
		return &Error{Kind: KindHTTP, Status: 401, Message: "unauthorized"}
	}, 3, time.Millisecond)

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetry_DoesNotRetryCancellation(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), func() error {
		attempts++
		return &Error{Kind: KindCancelled, Message: "superseded"}
	}, 3, time.Millisecond)

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.True(t, IsCancelled(err))
}

func TestRetry_ContextCancellationStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := Retry(ctx, func() error {
		attempts++
		cancel()
		return &Error{Kind: KindNetwork, Message: "flaky"}
	}, 5, 10*time.Millisecond)

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

// The delay doubles on every retry, with no jitter.
func TestRetry_DelaysDouble(t *testing.T) {
	var stamps []time.Time
	initial := 20 * time.Millisecond

	_ = Retry(context.Background(), func() error {
		stamps = append(stamps, time.Now())
		return &Error{Kind: KindTimeout, Message: "timed out"}
	}, 2, initial)

	require.Len(t, stamps, 3)
	firstGap := stamps[1].Sub(stamps[0])
	secondGap := stamps[2].Sub(stamps[1])

	assert.GreaterOrEqual(t, firstGap, initial)
	assert.GreaterOrEqual(t, secondGap, 2*initial)
	assert.Less(t, secondGap, 10*initial)
}
