package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dawidpereira/quetty-sub002/internal/apperrors"
	"github.com/dawidpereira/quetty-sub002/internal/ratelimit"
)

func TestLimiter_AdmitsUpToBurstThenRejects(t *testing.T) {
	l := ratelimit.New(1, 3)

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Check())
	}

	err := l.Check()
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.KindRateLimited))
}

func TestLimiter_RefillsOverTime(t *testing.T) {
	l := ratelimit.New(20, 1)

	require.NoError(t, l.Check())
	require.Error(t, l.Check())

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, l.Check(), "tokens should have refilled after waiting")
}

func TestLimiter_CheckNAllOrNothing(t *testing.T) {
	l := ratelimit.New(1, 5)

	err := l.CheckN(5)
	require.NoError(t, err)

	err = l.CheckN(1)
	require.Error(t, err)
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperrors.KindRateLimited, appErr.Kind)
	require.Greater(t, appErr.RetryAfter, time.Duration(0))
}

func TestLimiter_WaitUntilReadyBlocksThenAdmits(t *testing.T) {
	l := ratelimit.New(50, 1)
	require.NoError(t, l.Check())

	start := time.Now()
	err := l.WaitUntilReady(context.Background())
	require.NoError(t, err)
	require.Greater(t, time.Since(start), time.Duration(0))
}

func TestLimiter_WaitUntilReadyRespectsCancellation(t *testing.T) {
	l := ratelimit.New(0.1, 1)
	require.NoError(t, l.Check())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.WaitUntilReady(ctx)
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.KindCancelled))
}

func TestLimiter_AvailableCapacityReflectsBucketState(t *testing.T) {
	l := ratelimit.New(1, 10)
	require.Equal(t, int64(10), l.AvailableCapacity())

	require.NoError(t, l.CheckN(4))
	require.Equal(t, int64(6), l.AvailableCapacity())
}
