// Package runlock provides an advisory single-active-run lock on Redis.
//
// The engine assumes a single active run per store; that stays a documented
// precondition of the core. This lock is taken only by the reporter binary,
// as a convenience for operators who run it from more than one place.
package runlock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"stayreg/internal/platform/redis"
)

// ErrHeld means another run currently holds the lock.
var ErrHeld = errors.New("run lock held by another process")

// releaseScript deletes the lock only if this process still owns it.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock is a held advisory lock.
type Lock struct {
	client *redis.Client
	key    string
	token  string
}

// Acquire takes the lock or returns ErrHeld. The TTL bounds how long a
// crashed run can block its successor.
func Acquire(ctx context.Context, client *redis.Client, key string, ttl time.Duration) (*Lock, error) {
	token := uuid.NewString()
	ok, err := client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrHeld
	}
	return &Lock{client: client, key: key, token: token}, nil
}

// Release frees the lock if this process still owns it.
func (l *Lock) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err()
}
