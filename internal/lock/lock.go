package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrEmptyKey    = errors.New("lock key is empty")
	ErrNotAcquired = errors.New("lock not acquired")
)

// Locker serializes work on a key across callers. Calling release more than once is safe.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// KeyedMutex is an in-process Locker. It only serializes within one process.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyLock)}
}

func (m *KeyedMutex) Acquire(ctx context.Context, key string) (func(), error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		m.unref(key, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			m.unref(key, l)
		})
	}, nil
}

func (m *KeyedMutex) unref(key string, l *keyLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, key)
	}
}

// Config tunes distributed lock acquisition.
type Config struct {
	TTL          time.Duration
	RetryEvery   time.Duration
	AcquireLimit time.Duration
}

func DefaultConfig() Config {
	return Config{
		TTL:          30 * time.Second,
		RetryEvery:   50 * time.Millisecond,
		AcquireLimit: 5 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TTL <= 0 {
		c.TTL = d.TTL
	}
	if c.RetryEvery <= 0 {
		c.RetryEvery = d.RetryEvery
	}
	if c.AcquireLimit <= 0 {
		c.AcquireLimit = d.AcquireLimit
	}
	return c
}

// PitchDistributionKey names the lock held while a profit declaration runs.
func PitchDistributionKey(pitchID string) string {
	return "pitchfund:lock:pitch:" + pitchID + ":distribution"
}
