package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// RedisLocker holds locks as SET NX keys with a token so only the owner can release.
type RedisLocker struct {
	client *redis.Client
	script *redis.Script
	cfg    Config
}

func NewRedisLocker(client *redis.Client, cfg Config) *RedisLocker {
	if client == nil {
		return nil
	}
	return &RedisLocker{
		client: client,
		script: redis.NewScript(releaseScript),
		cfg:    cfg.withDefaults(),
	}
}

// TryLock makes one attempt and returns the owner token when it succeeds.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, errors.New("lock client not configured")
	}
	if key == "" {
		return "", false, ErrEmptyKey
	}
	if ttl <= 0 {
		return "", false, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *RedisLocker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if key == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{key}, token).Err()
}

// Acquire retries TryLock until it succeeds, ctx ends or the acquire limit passes.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	deadline := time.Now().Add(l.cfg.AcquireLimit)
	ticker := time.NewTicker(l.cfg.RetryEvery)
	defer ticker.Stop()

	for {
		token, ok, err := l.TryLock(ctx, key, l.cfg.TTL)
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = l.Release(releaseCtx, key, token)
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrNotAcquired
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
