package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pitchfund/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryBucketRefills(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bucket := newMemoryBucket(func() time.Time { return now })
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := bucket.Allow(ctx, "k", 1, 3)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i)
	}

	res, err := bucket.Allow(ctx, "k", 1, 3)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, time.Second, res.RetryAfter)

	now = now.Add(time.Second)
	res, err = bucket.Allow(ctx, "k", 1, 3)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = bucket.Allow(ctx, "other", 1, 3)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 2, res.Remaining)
}

func TestMemoryBucketRejectsBadInput(t *testing.T) {
	bucket := NewMemoryBucket()
	_, err := bucket.Allow(context.Background(), "", 1, 1)
	assert.Error(t, err)
	_, err = bucket.Allow(context.Background(), "k", 0, 1)
	assert.Error(t, err)
	_, err = bucket.Allow(context.Background(), "k", 1, 0)
	assert.Error(t, err)
}

func TestWriteLimiterKeysByActorAndAction(t *testing.T) {
	limiter := NewWriteLimiterWithBucket(NewMemoryBucket(), 0.001, 1)
	ctx := context.Background()

	res, err := limiter.AllowActor(ctx, snowflake.ID(1), "invest")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = limiter.AllowActor(ctx, snowflake.ID(1), "invest")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	res, err = limiter.AllowActor(ctx, snowflake.ID(1), "declare")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = limiter.AllowActor(ctx, snowflake.ID(2), "invest")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestDisabledWriteLimiterAdmitsEverything(t *testing.T) {
	limiter := NewWriteLimiter(config.Config{}, nil, zap.NewNop())
	assert.Nil(t, limiter)
	assert.False(t, limiter.Enabled())

	res, err := limiter.AllowActor(context.Background(), snowflake.ID(1), "invest")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	enabled := NewWriteLimiter(config.Config{Limits: config.RateLimitConfig{Enabled: true, WriteRate: 1, WriteBurst: 1}}, nil, zap.NewNop())
	assert.True(t, enabled.Enabled())
}

func TestCastToFloatParsesStrings(t *testing.T) {
	assert.Equal(t, 2.5, castToFloat("2.5"))
	assert.Equal(t, 3.0, castToFloat(int64(3)))
	assert.Equal(t, 0.0, castToFloat("nope"))
	assert.Equal(t, int64(1), castToInt(int64(1)))
}

func TestDefaultBucketTTL(t *testing.T) {
	assert.Equal(t, 20*time.Second, defaultBucketTTL(1, 10))
	assert.Equal(t, time.Second, defaultBucketTTL(0, 10))
}
