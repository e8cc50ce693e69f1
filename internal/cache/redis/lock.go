// File: internal/cache/redis/lock.go
// ============================================
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another run owns the lock
var ErrLockHeld = errors.New("redis: lock held")

// deletes the key only when it still holds our token
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

type Locker struct {
	rdb      *redis.Client
	prefix   string
	unlockSc *redis.Script
}

func NewLocker(c *Client) *Locker {
	return &Locker{
		rdb:      c.Underlying(),
		prefix:   c.key("lock:"),
		unlockSc: redis.NewScript(unlockLua),
	}
}

// Acquire takes the lock for ttl and returns its release func. Calling release
// more than once is harmless.
func (l *Locker) Acquire(ctx context.Context, name string, ttl time.Duration) (func(), error) {
	token := uuid.New().String()
	key := l.prefix + name

	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true

		// the run context may already be cancelled
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = l.unlockSc.Run(unlockCtx, l.rdb, []string{key}, token).Err()
	}
	return release, nil
}
