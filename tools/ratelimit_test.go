package tools_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gobii-run/agentcore/tools"
)

func TestInMemoryRateLimiterAllowsWithinLimit(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := tools.NewInMemoryRateLimiter(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(context.Background(), "owner-1", "search", 3, time.Hour)
		require.NoError(t, err)
		require.True(t, allowed)
	}
}

func TestInMemoryRateLimiterRejectsOverLimit(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := tools.NewInMemoryRateLimiter(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		_, err := limiter.Allow(context.Background(), "owner-1", "search", 3, time.Hour)
		require.NoError(t, err)
	}
	allowed, err := limiter.Allow(context.Background(), "owner-1", "search", 3, time.Hour)
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestInMemoryRateLimiterScopesPerOwnerAndTool(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := tools.NewInMemoryRateLimiter(func() time.Time { return now })

	_, err := limiter.Allow(context.Background(), "owner-1", "search", 1, time.Hour)
	require.NoError(t, err)

	allowedOtherOwner, err := limiter.Allow(context.Background(), "owner-2", "search", 1, time.Hour)
	require.NoError(t, err)
	require.True(t, allowedOtherOwner)

	allowedOtherTool, err := limiter.Allow(context.Background(), "owner-1", "scrape", 1, time.Hour)
	require.NoError(t, err)
	require.True(t, allowedOtherTool)
}

func TestInMemoryRateLimiterWindowExpires(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := tools.NewInMemoryRateLimiter(func() time.Time { return now })

	_, err := limiter.Allow(context.Background(), "owner-1", "search", 1, time.Hour)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	allowed, err := limiter.Allow(context.Background(), "owner-1", "search", 1, time.Hour)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestInMemoryRateLimiterZeroLimitMeansUnlimited(t *testing.T) {
	t.Parallel()
	limiter := tools.NewInMemoryRateLimiter(nil)
	allowed, err := limiter.Allow(context.Background(), "owner-1", "search", 0, time.Hour)
	require.NoError(t, err)
	require.True(t, allowed)
}
