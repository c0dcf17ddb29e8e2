// Package lock provides short-lived distributed locks on Redis.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"

	"github.com/ghuser/branchpos/pkg/cache"
)

// ErrNotObtained is returned when another holder owns the lock.
var ErrNotObtained = errors.New("lock not obtained")

// Release frees a held lock.
type Release func(ctx context.Context) error

// Locker obtains named locks backed by bsm/redislock.
type Locker struct {
	client *redislock.Client
	prefix string
}

// NewLocker returns a Locker whose keys are namespaced as "lock:{name}".
func NewLocker(r *cache.RedisClient) *Locker {
	return &Locker{client: redislock.New(r.Client()), prefix: "lock:"}
}

// Obtain tries once to take the lock for ttl. It does not wait: when another
// holder owns the key it returns ErrNotObtained.
func (l *Locker) Obtain(ctx context.Context, name string, ttl time.Duration) (Release, error) {
	lk, err := l.client.Obtain(ctx, l.prefix+name, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrNotObtained
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", name, err)
	}
	return func(ctx context.Context) error {
		if err := lk.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return fmt.Errorf("release lock %s: %w", name, err)
		}
		return nil
	}, nil
}
