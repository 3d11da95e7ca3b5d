package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	c := NewMemoryCache().WithClock(func() time.Time { return now })

	require.NoError(t, c.Set(ctx, "quizzes", []string{"a", "b"}, 10*time.Minute))

	var got []string
	require.NoError(t, c.Get(ctx, "quizzes", &got))
	assert.Equal(t, []string{"a", "b"}, got)

	now = now.Add(9 * time.Minute)
	require.NoError(t, c.Get(ctx, "quizzes", &got))

	now = now.Add(time.Minute)
	assert.ErrorIs(t, c.Get(ctx, "quizzes", &got), ErrCacheMiss)
}

func TestMemoryCacheDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	require.NoError(t, c.Set(ctx, "learner:1:a", 1, 0))
	require.NoError(t, c.Set(ctx, "learner:1:b", 2, 0))
	require.NoError(t, c.Set(ctx, "learner:2:a", 3, 0))

	require.NoError(t, c.Delete(ctx, "learner:2:a"))
	require.NoError(t, c.DeletePattern(ctx, "learner:1:*"))

	var v int
	assert.ErrorIs(t, c.Get(ctx, "learner:1:a", &v), ErrCacheMiss)
	assert.ErrorIs(t, c.Get(ctx, "learner:1:b", &v), ErrCacheMiss)
	assert.ErrorIs(t, c.Get(ctx, "learner:2:a", &v), ErrCacheMiss)
}
