package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/senirlioglu/envanter-risk-analizi/internal/domain"
)

const lockKeyPrefix = "lock:analysis:"

// RunLocker prevents two analysis runs for the same period from
// overlapping. Obtain returns domain.ErrRunInProgress when the period is
// already locked.
type RunLocker interface {
	Obtain(ctx context.Context, period string) (release func(context.Context) error, err error)
}

type redisRunLocker struct {
	locker *redislock.Client
	ttl    time.Duration
}

func NewRedisRunLocker(client *redis.Client, ttl time.Duration) RunLocker {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &redisRunLocker{locker: redislock.New(client), ttl: ttl}
}

func (l *redisRunLocker) Obtain(ctx context.Context, period string) (func(context.Context) error, error) {
	lock, err := l.locker.Obtain(ctx, lockKeyPrefix+period, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, domain.ErrRunInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("could not obtain lock for period %s: %w", period, err)
	}
	return func(ctx context.Context) error {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return err
		}
		return nil
	}, nil
}

// localRunLocker is the in-process fallback when redis is disabled.
type localRunLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalRunLocker() RunLocker {
	return &localRunLocker{held: make(map[string]struct{})}
}

func (l *localRunLocker) Obtain(_ context.Context, period string) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[period]; ok {
		return nil, domain.ErrRunInProgress
	}
	l.held[period] = struct{}{}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, period)
			l.mu.Unlock()
		})
		return nil
	}, nil
}
