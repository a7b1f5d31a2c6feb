// Package redislock provides a token-based distributed lock on redis.
// It is a general cross-instance mutual-exclusion building block; job claim
// correctness never depends on it (the store's row locking handles that).
package redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// unlockScript deletes the key only if it still holds the caller's token,
// so a process can never release a lock it lost to TTL expiry and takeover.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// extendScript refreshes the TTL under the same ownership check.
var extendScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
else
	return 0
end
`)

// ErrNotHeld is returned by Unlock and Extend when the key no longer holds
// the caller's token.
var ErrNotHeld = errors.New("lock not held by this token")

// Locker is a token-based distributed lock backed by a redis client.
type Locker struct {
	client *redis.Client
	prefix string
}

// NewLocker creates a Locker. Keys are namespaced under prefix.
func NewLocker(client *redis.Client, prefix string) (*Locker, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if prefix == "" {
		prefix = "lock"
	}
	return &Locker{client: client, prefix: prefix}, nil
}

func (l *Locker) key(name string) string {
	return l.prefix + ":" + name
}

// TryLock atomically sets the key to a fresh opaque token if absent.
// Returns the token and true on acquisition, or empty and false when the
// lock is already held elsewhere.
func (l *Locker) TryLock(ctx context.Context, name string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, l.key(name), token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire lock %q: %w", name, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Unlock releases the lock via compare-and-delete.
// Returns ErrNotHeld if the key holds a different token or none at all.
func (l *Locker) Unlock(ctx context.Context, name, token string) error {
	released, err := unlockScript.Run(ctx, l.client, []string{l.key(name)}, token).Int()
	if err != nil {
		return fmt.Errorf("release lock %q: %w", name, err)
	}
	if released == 0 {
		return fmt.Errorf("%w: %q", ErrNotHeld, name)
	}
	return nil
}

// Extend refreshes the lock's TTL via compare-and-expire.
// Returns ErrNotHeld if the key holds a different token or none at all.
func (l *Locker) Extend(ctx context.Context, name, token string, ttl time.Duration) error {
	extended, err := extendScript.Run(ctx, l.client, []string{l.key(name)}, token, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("extend lock %q: %w", name, err)
	}
	if extended == 0 {
		return fmt.Errorf("%w: %q", ErrNotHeld, name)
	}
	return nil
}
