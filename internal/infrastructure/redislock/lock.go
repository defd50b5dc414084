package redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopify-hubspot-sync/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	// ErrLockNotAcquired is returned when the key is already locked by someone else
	ErrLockNotAcquired = fmt.Errorf("%w: lock not acquired", domain.ErrConflict)
	// ErrLockNotHeld is returned when releasing a lock that expired or was taken over
	ErrLockNotHeld = errors.New("lock not held")
)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// Lock is a held distributed lock
type Lock struct {
	rdb    redis.Scripter
	key    string
	value  string
	logger zerolog.Logger
}

// Locker hands out Redis-backed locks with SET NX semantics
type Locker struct {
	rdb       redis.UniversalClient
	keyPrefix string
	logger    zerolog.Logger
}

// NewLocker creates a new Locker
func NewLocker(rdb redis.UniversalClient, keyPrefix string, logger zerolog.Logger) *Locker {
	if keyPrefix == "" {
		keyPrefix = "lock:"
	}
	return &Locker{
		rdb:       rdb,
		keyPrefix: keyPrefix,
		logger:    logger,
	}
}

// Acquire attempts to take the lock once
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	lockKey := l.keyPrefix + key
	lockValue := uuid.New().String()

	ok, err := l.rdb.SetNX(ctx, lockKey, lockValue, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}

	l.logger.Debug().Str("key", lockKey).Msg("Acquired lock")
	return &Lock{
		rdb:    l.rdb,
		key:    lockKey,
		value:  lockValue,
		logger: l.logger,
	}, nil
}

// Release deletes the lock only if this holder still owns it
func (lock *Lock) Release(ctx context.Context) error {
	result, err := releaseScript.Run(ctx, lock.rdb, []string{lock.key}, lock.value).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if result == 0 {
		return ErrLockNotHeld
	}

	lock.logger.Debug().Str("key", lock.key).Msg("Released lock")
	return nil
}

// Extend resets the lock's TTL if this holder still owns it
func (lock *Lock) Extend(ctx context.Context, ttl time.Duration) error {
	result, err := extendScript.Run(ctx, lock.rdb, []string{lock.key}, lock.value, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("failed to extend lock: %w", err)
	}
	if result == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// WithLock runs fn while holding key. The TTL is extended every ttl/3 until
// fn returns, so ttl only bounds how long a crashed holder blocks others.
// The lock is released on a context detached from ctx so a cancelled caller
// still frees it.
func (l *Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func() error) error {
	lock, err := l.Acquire(ctx, key, ttl)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		lock.keepAlive(context.WithoutCancel(ctx), ttl, done)
	}()

	defer func() {
		close(done)
		<-stopped
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			l.logger.Warn().Err(err).Str("key", lock.key).Msg("Failed to release lock")
		}
	}()

	return fn()
}

func (lock *Lock) keepAlive(ctx context.Context, ttl time.Duration, done <-chan struct{}) {
	interval := ttl / 3
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := lock.Extend(ctx, ttl); err != nil {
				lock.logger.Warn().Err(err).Str("key", lock.key).Msg("Failed to extend lock")
				if errors.Is(err, ErrLockNotHeld) {
					return
				}
			}
		}
	}
}
