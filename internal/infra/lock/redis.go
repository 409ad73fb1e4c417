package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"staydesk/internal/app/policies"
	"staydesk/internal/domain/shared/fault"
)

const (
	DefaultLockTTL       = 30 * time.Second
	defaultRetryInterval = 25 * time.Millisecond
	releaseTimeout       = 2 * time.Second
)

// releaseScript deletes the key only while it still holds our token, so a
// holder whose TTL ran out never frees someone else's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a lock shared by every instance talking to the same Redis. TTL
// bounds how long a crashed holder can block the room.
type Redis struct {
	Client        redis.UniversalClient
	Prefix        string
	TTL           time.Duration
	RetryInterval time.Duration
}

func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	return &Redis{Client: client, Prefix: prefix, TTL: ttl}
}

func (r *Redis) Acquire(ctx context.Context, key string, timeout time.Duration) (policies.Release, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	name := r.Prefix + "lock:" + key
	deadline := time.Now().Add(timeout)
	for {
		ok, err := r.Client.SetNX(ctx, name, token, r.ttl()).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, &fault.LockTimeoutError{Key: key, Timeout: timeout, Err: ctx.Err()}
			}
			return nil, err
		}
		if ok {
			return r.releaser(name, token), nil
		}
		wait := r.retryInterval()
		if remaining := time.Until(deadline); remaining <= 0 {
			return nil, &fault.LockTimeoutError{Key: key, Timeout: timeout}
		} else if remaining < wait {
			wait = remaining
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, &fault.LockTimeoutError{Key: key, Timeout: timeout, Err: ctx.Err()}
		case <-timer.C:
		}
	}
}

func (r *Redis) releaser(name, token string) policies.Release {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()
			// an unreleased key expires after TTL
			_ = releaseScript.Run(ctx, r.Client, []string{name}, token).Err()
		})
	}
}

func (r *Redis) ttl() time.Duration {
	if r.TTL <= 0 {
		return DefaultLockTTL
	}
	return r.TTL
}

func (r *Redis) retryInterval() time.Duration {
	if r.RetryInterval <= 0 {
		return defaultRetryInterval
	}
	return r.RetryInterval
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

var _ policies.Locker = (*Redis)(nil)
