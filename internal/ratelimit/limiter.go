package ratelimit

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/pitchfund/internal/config"
	"go.uber.org/zap"
)

const keyWrite = "pitchfund:ratelimit:write:%s:%s"

// WriteLimiter throttles money-moving requests per user. A nil limiter admits everything.
type WriteLimiter struct {
	bucket Bucket
	rate   float64
	burst  int
}

func NewWriteLimiter(cfg config.Config, client *redis.Client, log *zap.Logger) *WriteLimiter {
	limits := cfg.Limits
	if !limits.Enabled || limits.WriteRate <= 0 || limits.WriteBurst <= 0 {
		log.Info("write rate limiting disabled")
		return nil
	}

	var bucket Bucket
	if client != nil {
		bucket = NewTokenBucket(client)
	} else {
		bucket = NewMemoryBucket()
	}
	return NewWriteLimiterWithBucket(bucket, limits.WriteRate, limits.WriteBurst)
}

func NewWriteLimiterWithBucket(bucket Bucket, rate float64, burst int) *WriteLimiter {
	return &WriteLimiter{bucket: bucket, rate: rate, burst: burst}
}

func (l *WriteLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// AllowActor spends one token from the actor's bucket for action.
func (l *WriteLimiter) AllowActor(ctx context.Context, actorID snowflake.ID, action string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyWrite, strings.TrimSpace(action), actorID.String())
	return l.bucket.Allow(ctx, key, l.rate, l.burst)
}
