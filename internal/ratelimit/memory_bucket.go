package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

type memoryState struct {
	tokens float64
	ts     time.Time
}

// MemoryBucket is the single-process token bucket used when Redis is not configured.
type MemoryBucket struct {
	mu      sync.Mutex
	buckets map[string]memoryState
	now     func() time.Time
}

func NewMemoryBucket() *MemoryBucket {
	return newMemoryBucket(time.Now)
}

func newMemoryBucket(now func() time.Time) *MemoryBucket {
	return &MemoryBucket{buckets: make(map[string]memoryState), now: now}
}

func (m *MemoryBucket) Allow(_ context.Context, key string, rate float64, burst int) (*Result, error) {
	if err := validate(key, rate, burst); err != nil {
		return &Result{Allowed: false}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	state, ok := m.buckets[key]
	if !ok {
		state = memoryState{tokens: float64(burst), ts: now}
	} else {
		elapsed := now.Sub(state.ts).Seconds()
		if elapsed < 0 {
			elapsed = 0
		}
		state.tokens = math.Min(float64(burst), state.tokens+elapsed*rate)
		state.ts = now
	}

	allowed := state.tokens >= 1
	if allowed {
		state.tokens--
	}
	m.buckets[key] = state
	m.evict(now, rate, burst)

	return decide(allowed, state.tokens, rate, burst), nil
}

// evict drops buckets idle long enough to have refilled completely.
func (m *MemoryBucket) evict(now time.Time, rate float64, burst int) {
	if len(m.buckets) < 1024 {
		return
	}
	ttl := defaultBucketTTL(rate, burst)
	for key, state := range m.buckets {
		if now.Sub(state.ts) > ttl {
			delete(m.buckets, key)
		}
	}
}
