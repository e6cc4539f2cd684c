package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultLockTTL = 30 * time.Second

// OrderLocker grants per-order mutual exclusion so no two settlement
// operations on the same order can both pass their precondition checks.
type OrderLocker interface {
	Acquire(ctx context.Context, orderID uuid.UUID) (OrderLock, error)
}

// OrderLock is a held per-order lock.
type OrderLock interface {
	Release(ctx context.Context) error
}

// redisStore defines the operations used by the redis-backed locker.
type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Eval(ctx context.Context, script string, keys []string, args ...any) (any, error)
	LockKey(scope, id string) string
}

// releaseScript deletes the lock only when the stored owner still matches,
// in one server-side step. A Get-then-Del pair could delete a lock that
// expired and was re-acquired between the two calls.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`

// RedisOrderLocker implements OrderLocker using Redis SETNX + TTL.
type RedisOrderLocker struct {
	client redisStore
	ttl    time.Duration
}

// ErrOrderBusy reports that another settlement operation holds the order.
var ErrOrderBusy = errors.New("settlement already in progress for order")

// NewRedisOrderLocker constructs a Redis-backed per-order locker.
func NewRedisOrderLocker(client redisStore, ttl time.Duration) (*RedisOrderLocker, error) {
	if client == nil {
		return nil, errors.New("redis client required for order locker")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisOrderLocker{client: client, ttl: ttl}, nil
}

// Acquire tries to own the order for the configured TTL.
func (l *RedisOrderLocker) Acquire(ctx context.Context, orderID uuid.UUID) (OrderLock, error) {
	key := l.client.LockKey("order", orderID.String())
	owner := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, owner, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("setnx: %w", err)
	}
	if !ok {
		return nil, ErrOrderBusy
	}
	return &redisOrderLock{client: l.client, key: key, owner: owner}, nil
}

type redisOrderLock struct {
	client redisStore
	key    string
	owner  string
}

// Release frees the lock only if the owner value still matches.
func (l *redisOrderLock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	if _, err := l.client.Eval(ctx, releaseScript, []string{l.key}, l.owner); err != nil {
		if errors.Is(err, redis.Nil) {
			l.owner = ""
			return nil
		}
		return fmt.Errorf("release lock: %w", err)
	}
	l.owner = ""
	return nil
}
