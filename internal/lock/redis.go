package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisLocker is a distributed Locker for running several service replicas
// against one database.
type RedisLocker struct {
	client      *redislock.Client
	ttl         time.Duration
	waitTimeout time.Duration
	backoff     time.Duration
	log         *zap.Logger
}

// NewRedisLocker wraps a go-redis client. ttl bounds how long a crashed holder
// keeps the key, waitTimeout bounds how long Lock retries.
func NewRedisLocker(rdb redis.UniversalClient, ttl, waitTimeout time.Duration, log *zap.Logger) *RedisLocker {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisLocker{
		client:      redislock.New(rdb),
		ttl:         ttl,
		waitTimeout: waitTimeout,
		backoff:     50 * time.Millisecond,
		log:         log,
	}
}

// Lock obtains key, retrying with linear backoff until waitTimeout or ctx ends.
// While held the key is refreshed every ttl/2, so a long transaction keeps
// its lock. If a refresh fails the loss is logged.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	obtainCtx := ctx
	if l.waitTimeout > 0 {
		var cancel context.CancelFunc
		obtainCtx, cancel = context.WithTimeout(ctx, l.waitTimeout)
		defer cancel()
	}

	lk, err := l.client.Obtain(obtainCtx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(l.backoff),
	})
	if err != nil {
		err = obtainError(err)
		if errors.Is(err, ErrNotObtained) {
			l.log.Warn("Could not obtain lock", zap.String("key", key), zap.Error(err))
		} else {
			l.log.Error("Error obtaining lock", zap.String("key", key), zap.Error(err))
		}
		return nil, err
	}

	// Keep the key alive until unlock
	keepCtx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go l.keepAlive(keepCtx, lk, key, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			stop()
			<-done

			// released with a fresh context so a cancelled request still frees the key
			if err := lk.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				l.log.Warn("Failed to release lock", zap.String("key", key), zap.Error(err))
			}
		})
	}, nil
}

// keepAlive extends the lock's TTL at half its length until ctx ends
func (l *RedisLocker) keepAlive(ctx context.Context, lk *redislock.Lock, key string, done chan<- struct{}) {
	defer close(done)

	interval := refreshInterval(l.ttl)
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := lk.Refresh(ctx, l.ttl, nil); err != nil {
				if ctx.Err() != nil {
					return
				}
				l.log.Error("Lost lock before release", zap.String("key", key), zap.Error(err))
				return
			}
		}
	}
}

func refreshInterval(ttl time.Duration) time.Duration {
	return ttl / 2
}

// obtainError maps redislock and context failures to ErrNotObtained.
// Other errors, such as a broken connection, pass through.
func obtainError(err error) error {
	if errors.Is(err, redislock.ErrNotObtained) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return ErrNotObtained
	}
	return err
}
